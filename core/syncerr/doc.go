// Package syncerr defines the closed set of error kinds produced by the
// state versioning engine.
//
// Callers switch on the kind instead of matching concrete types:
//
//	switch syncerr.KindOf(err) {
//	case syncerr.KindEntityNotFound:
//	    // 404
//	case syncerr.KindStateConflict:
//	    // re-fetch, retry with a fresh base version
//	case syncerr.KindValidation:
//	    // reject the request
//	}
//
// errors.Is works against the exported sentinels (ErrEntityNotFound,
// ErrStateConflict, ErrValidation) at any depth of a wrap chain.
package syncerr
