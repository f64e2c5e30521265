package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeExec struct {
	loggedIn bool

	calls []string
	err   error
}

func (f *fakeExec) record(name string, args []string) error {
	f.calls = append(f.calls, strings.TrimSpace(name+" "+strings.Join(args, " ")))
	return f.err
}

func (f *fakeExec) isLoggedIn() bool { return f.loggedIn }
func (f *fakeExec) Login(ctx context.Context, args []string) error {
	f.loggedIn = true
	return f.record("login", args)
}
func (f *fakeExec) Me(ctx context.Context) error                     { return f.record("me", nil) }
func (f *fakeExec) Users(ctx context.Context) error                  { return f.record("users", nil) }
func (f *fakeExec) Approve(ctx context.Context, args []string) error { return f.record("approve", args) }
func (f *fakeExec) Verify(ctx context.Context, args []string) error  { return f.record("verify", args) }
func (f *fakeExec) Role(ctx context.Context, args []string) error    { return f.record("role", args) }
func (f *fakeExec) Delete(ctx context.Context, args []string) error  { return f.record("delete", args) }

func captureOutput(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	origPrint := printlnFn
	printlnFn = func(a ...any) (int, error) {
		lines = append(lines, strings.TrimSuffix(fmt.Sprintln(a...), "\n"))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = origPrint })
	return &lines
}

func TestRunREPL_Dispatch(t *testing.T) {
	out := captureOutput(t)

	input := bufio.NewReader(strings.NewReader(strings.Join([]string{
		"help",
		"login root@example.com",
		"",
		"me",
		"ls",
		"approve u1",
		"verify u1",
		"role u1 admin",
		"rm u1 u2",
		"foobar",
		"exit",
		"users",
	}, "\n")))

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "status" }, input)

	assert.Equal(t, []string{
		"login root@example.com", "me", "users", "approve u1", "verify u1", "role u1 admin", "delete u1 u2",
	}, exec.calls)
	assert.Contains(t, *out, "Available commands: login [email], exit")
	assert.Contains(t, *out, "Unknown command: foobar")
	assert.Contains(t, *out, "Bye!")
}

func TestRunREPL_ReportsErrorsAndStopsOnEOF(t *testing.T) {
	out := captureOutput(t)

	exec := &fakeExec{loggedIn: true, err: errors.New("403: forbidden")}
	runREPL(context.Background(), exec, func() string { return "s" }, bufio.NewReader(strings.NewReader("users")))

	assert.Equal(t, []string{"users"}, exec.calls)
	assert.Contains(t, *out, "Error: 403: forbidden")
}
