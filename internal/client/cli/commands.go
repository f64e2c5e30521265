package cli

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/dmitrijs2005/docmark/internal/common"
)

var (
	errNotLoggedIn = errors.New("not logged in, use 'login' first")
	errNotAdmin    = errors.New("this console needs an admin account")
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Login authenticates with the email from args or a prompt and a password
// read without echo. Non-admin sessions are refused.
func (a *App) Login(ctx context.Context, args []string) error {
	var email string
	if len(args) > 0 {
		email = args[0]
	} else {
		var err error
		if email, err = getSimpleText(a.reader, "Enter email", a.out); err != nil {
			return err
		}
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	u, err := a.api.Login(ctx, email, password)
	if err != nil {
		return err
	}
	if u.Role != common.RoleAdmin {
		return errNotAdmin
	}

	a.user = u
	fmt.Fprintf(a.out, "Logged in as %s\n", u.Email)
	return nil
}

func (a *App) Me(ctx context.Context) error {
	if !a.isLoggedIn() {
		return errNotLoggedIn
	}
	u, err := a.api.Me(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s <%s> role=%s id=%s\n", u.Name, u.Email, u.Role, u.ID)
	return nil
}

func (a *App) Users(ctx context.Context) error {
	if !a.isLoggedIn() {
		return errNotLoggedIn
	}
	users, err := a.api.Users(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tEMAIL\tNAME\tROLE\tSTATUS")
	for _, u := range users {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", u.ID, u.Email, u.Name, u.Role, u.Status())
	}
	return tw.Flush()
}

func (a *App) Approve(ctx context.Context, args []string) error {
	if err := a.need(args, 1, "approve <id>"); err != nil {
		return err
	}
	u, err := a.api.Approve(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Approved %s\n", u.Email)
	return nil
}

func (a *App) Verify(ctx context.Context, args []string) error {
	if err := a.need(args, 1, "verify <id>"); err != nil {
		return err
	}
	u, err := a.api.Verify(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Verified %s\n", u.Email)
	return nil
}

func (a *App) Role(ctx context.Context, args []string) error {
	if err := a.need(args, 2, "role <id> <user|admin>"); err != nil {
		return err
	}
	u, err := a.api.ChangeRole(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s is now %s\n", u.Email, u.Role)
	return nil
}

func (a *App) Delete(ctx context.Context, args []string) error {
	if err := a.need(args, 1, "delete <id...>"); err != nil {
		return err
	}
	n, err := a.api.Delete(ctx, args...)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted %d account(s)\n", n)
	return nil
}

// need checks the session and that at least n arguments were given.
func (a *App) need(args []string, n int, usage string) error {
	if !a.isLoggedIn() {
		return errNotLoggedIn
	}
	if len(args) < n {
		return fmt.Errorf("usage: %s", usage)
	}
	return nil
}
