// Package middleware contains HTTP middleware for the Fiber application.
//
// # Components
//
//   - auth: API key validation for the character endpoints.
//   - rayid: a request id (ray id) per request, stored in the context and
//     echoed in the response headers for tracing.
//
// rayid is registered first so every later log line carries the id.
package middleware
