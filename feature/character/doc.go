// Package character implements the characters feature: storage of character
// documents and their versioned updates.
//
// # Components
//
//   - Repository: GORM storage of the characters table. It is the
//     CharacterRepository the version manager reads current state from.
//   - Service: create, read, apply and sync operations on top of the
//     version manager and the batch reconciler.
//   - Handler: HTTP endpoints.
//   - Feature: registers the handler with the application.
//
// # HTTP Endpoints
//
//   - POST /characters : create a character (version 1).
//   - GET  /characters/:id : stored character.
//   - GET  /characters/:id/versions : latest version.
//   - GET  /characters/:id/versions/:version : a retained version.
//   - GET  /characters/:id/history : retained versions.
//   - POST /characters/:id/changes : apply a partial document with an optional base version.
//   - POST /characters/:id/sync : replay field-level changes, skipping stale ones.
//   - GET  /characters/:id/archive[/:version] : versions evicted to object storage.
//
// Errors map to 404 (entity not found), 409 (state conflict), 400 (validation)
// and 500.
package character
