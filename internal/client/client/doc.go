// Package client is the admin console's view of the docmark HTTP API.
//
// HTTPClient implements Client over JSON. Login stores the session token and
// every later call sends it as a bearer token.
//
// # Error Handling
//
// Transport failures wrap ErrUnavailable. Responses with status 401 and 403
// match ErrUnauthorized and ErrForbidden with errors.Is; every failed
// response also yields an *APIError with the server's message.
package client
