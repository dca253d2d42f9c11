// Package server holds the HTTP server configuration.
//
// The start command builds the Fiber app from this Config: listen port,
// read timeout, body limit and the API key enforced by the auth middleware.
package server
