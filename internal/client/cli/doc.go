// Package cli provides the interactive docmark admin console.
//
// The console logs in against the HTTP API with an admin account and then
// manages the account lifecycle: list users, approve, verify, change roles
// and delete. The REPL is started via App.Run(ctx), which blocks until the
// user exits.
package cli
