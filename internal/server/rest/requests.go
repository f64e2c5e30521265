package rest

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/docmark/internal/common"
	"github.com/dmitrijs2005/docmark/internal/cryptox"
	"github.com/dmitrijs2005/docmark/internal/server/models"
	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

type validatable interface {
	Validate() error
}

// bind decodes the body into req by content type and validates it. Both
// failures are reported as common.ErrorValidation.
func bind(c *gin.Context, req validatable) error {
	if err := c.ShouldBind(req); err != nil {
		return fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}
	if err := req.Validate(); err != nil {
		return fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}
	return nil
}

// passwordBytes rejects passwords bcrypt cannot hash. validation.Length
// counts runes, not bytes.
var passwordBytes = validation.By(func(v any) error {
	if s, _ := v.(string); len(s) > cryptox.MaxPasswordBytes {
		return fmt.Errorf("must be at most %d bytes long", cryptox.MaxPasswordBytes)
	}
	return nil
})

type registerRequest struct {
	Name     string `json:"name" form:"name"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

func (r registerRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 200), passwordBytes),
	)
}

type loginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

func (r loginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

type forgotPasswordRequest struct {
	Email string `json:"email" form:"email"`
}

func (r forgotPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

type resetPasswordRequest struct {
	Password string `json:"password" form:"password"`
}

func (r resetPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Password, validation.Required, validation.Length(6, 200), passwordBytes),
	)
}

type roleRequest struct {
	Role string `json:"role" form:"role"`
}

func (r roleRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Role, validation.Required),
	)
}

// idsRequest is the body of the bulk deletes. An empty list is left to the
// services, which answer with common.ErrNoIDs.
type idsRequest struct {
	IDs []string `json:"ids"`
}

func (r idsRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.IDs, validation.By(noBlankIDs)),
	)
}

type convertURLRequest struct {
	URL string `json:"url" form:"url"`
}

func (r convertURLRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.URL, validation.Required, is.URL),
	)
}

type apiKeyRequest struct {
	Name     string `json:"name"`
	Service  string `json:"service"`
	Key      string `json:"key"`
	Model    string `json:"model"`
	IsActive *bool  `json:"isActive"`
}

func (r apiKeyRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Key, validation.Required),
		validation.Field(&r.Service, validation.Required, validation.By(oneOfFold(models.KnownServices))),
	)
}

func (r apiKeyRequest) model(id string) *models.ApiKey {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return &models.ApiKey{ID: id, Name: r.Name, Service: r.Service, Key: r.Key, Model: r.Model, IsActive: active}
}

type smtpAuth struct {
	User string `json:"user"`
	Pass string `json:"pass"`
}

// smtpRequest mirrors the admin console payload: credentials are nested
// under "auth".
type smtpRequest struct {
	Host      string    `json:"host"`
	Port      int       `json:"port"`
	Secure    *bool     `json:"secure"`
	Auth      *smtpAuth `json:"auth"`
	FromEmail string    `json:"fromEmail"`
	FromName  string    `json:"fromName"`
	IsActive  *bool     `json:"isActive"`
	TestEmail string    `json:"testEmail"`
}

func (r smtpRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Host, validation.Required),
		validation.Field(&r.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&r.Auth, validation.Required),
		validation.Field(&r.FromEmail, validation.Required, is.Email),
		validation.Field(&r.FromName, validation.Required),
	)
}

func (r smtpRequest) config() *models.SmtpConfig {
	cfg := &models.SmtpConfig{
		Host:      r.Host,
		Port:      r.Port,
		Secure:    true,
		FromEmail: r.FromEmail,
		FromName:  r.FromName,
		IsActive:  true,
	}
	if r.Secure != nil {
		cfg.Secure = *r.Secure
	}
	if r.IsActive != nil {
		cfg.IsActive = *r.IsActive
	}
	if r.Auth != nil {
		cfg.AuthUser, cfg.AuthPass = r.Auth.User, r.Auth.Pass
	}
	return cfg
}

func (a smtpAuth) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.User, validation.Required),
		validation.Field(&a.Pass, validation.Required),
	)
}

// smtpTestRequest is smtpRequest plus a mandatory recipient.
type smtpTestRequest struct {
	smtpRequest
}

func (r smtpTestRequest) Validate() error {
	if err := r.smtpRequest.Validate(); err != nil {
		return err
	}
	return validation.ValidateStruct(&r.smtpRequest,
		validation.Field(&r.smtpRequest.TestEmail, validation.Required, is.Email),
	)
}

// smtpPatchRequest is the partial update body: every field is optional.
type smtpPatchRequest struct {
	Host      *string   `json:"host"`
	Port      *int      `json:"port"`
	Secure    *bool     `json:"secure"`
	Auth      *smtpAuth `json:"auth"`
	FromEmail *string   `json:"fromEmail"`
	FromName  *string   `json:"fromName"`
	IsActive  *bool     `json:"isActive"`
}

func (r smtpPatchRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Port, validation.NilOrNotEmpty, validation.Min(1), validation.Max(65535)),
		validation.Field(&r.FromEmail, is.Email),
	)
}

type testEmailRequest struct {
	TestEmail string `json:"testEmail"`
}

func (r testEmailRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.TestEmail, validation.Required, is.Email),
	)
}

type settingsRequest struct {
	ServerURL string `json:"SERVER_URL"`
}

func (r settingsRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ServerURL, validation.Required, is.URL),
	)
}

type openAIKeyRequest struct {
	Key   string `json:"openai_api_key" form:"openai_api_key"`
	Model string `json:"openai_model" form:"openai_model"`
}

func (r openAIKeyRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Key, validation.Required),
	)
}

func noBlankIDs(value interface{}) error {
	ids, _ := value.([]string)
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("must not contain blank ids")
		}
	}
	return nil
}

// oneOfFold accepts a string equal to one of allowed, ignoring case.
func oneOfFold(allowed []interface{}) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		for _, a := range allowed {
			if as, ok := a.(string); ok && strings.EqualFold(as, s) {
				return nil
			}
		}
		return fmt.Errorf("must be one of %v", allowed)
	}
}
