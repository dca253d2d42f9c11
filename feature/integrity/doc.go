// Package integrity provides operational health checks for the sync service.
//
// Unlike the 'character' package which serves the versioning API, this package
// validates the infrastructure the version manager depends on.
//
// # Checks Provided
//
//   - Schema: Validates that the characters table matches the GORM model (columns, types).
//   - Archive: Checks that the version archive bucket exists and counts archived versions.
//   - Ledger: Compares the newest retained version of every tracked character with the live row.
//
// # HTTP Endpoints
//
//   - GET /integrity : Runs all checks.
//   - GET /integrity/schema : Runs the schema check.
//   - GET /integrity/archive : Runs the archive check (supports ?fix=true).
//   - GET /integrity/ledger : Runs the ledger drift check.
package integrity
