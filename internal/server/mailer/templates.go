package mailer

import (
	"bytes"
	"html/template"
)

var (
	verificationTmpl = template.Must(template.New("verification").Parse(`<h1>Confirm your email address</h1>
<p>Hello, {{.Name}}!</p>
<p>To finish signing up for docmark, confirm your email address by following the link below.</p>
<p><a href="{{.Link}}" target="_blank">Confirm email address</a></p>
<p>If the link does not work, paste this URL into your browser:</p>
<p>{{.Link}}</p>`))

	approvalTmpl = template.Must(template.New("approval").Parse(`<h1>Your account has been approved</h1>
<p>Hello, {{.Name}}!</p>
<p>An administrator approved your docmark account. You can sign in now.</p>
<p><a href="{{.Link}}" target="_blank">Sign in</a></p>`))

	resetTmpl = template.Must(template.New("reset").Parse(`<h1>Reset your password</h1>
<p>Hello, {{.Name}}!</p>
<p>A password reset was requested for your account. Follow the link below to choose a new password.</p>
<p><a href="{{.Link}}" target="_blank">Reset password</a></p>
<p>If the link does not work, paste this URL into your browser:</p>
<p>{{.Link}}</p>
<p>The link is valid for {{.Validity}}.</p>
<p>If you did not request a reset you can ignore this email.</p>`))

	testTmpl = template.Must(template.New("test").Parse(`<h1>SMTP settings test</h1>
<p>This message checks that the SMTP settings below are working.</p>
<ul>
<li>Host: {{.Host}}</li>
<li>Port: {{.Port}}</li>
<li>Secure connection: {{if .Secure}}yes{{else}}no{{end}}</li>
<li>User: {{.AuthUser}}</li>
<li>From email: {{.FromEmail}}</li>
<li>From name: {{.FromName}}</li>
</ul>
<p>If you received it, the settings are correct.</p>`))
)

type linkData struct {
	Name     string
	Link     string
	Validity string
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
