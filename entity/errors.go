package entity

import "errors"

// Service-level error kinds. Handlers map these to HTTP status codes,
// the forwarder uses the upstream pair to decide between retry and a
// terminal failed ledger row.
var (
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrForbidden         = errors.New("forbidden")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("already exists")
	ErrValidation        = errors.New("validation failed")
	ErrDeprecated        = errors.New("deprecated")
	ErrUpstreamTransient = errors.New("upstream transient failure")
	ErrUpstreamPermanent = errors.New("upstream permanent failure")
	ErrStoreUnavailable  = errors.New("store unavailable")
	ErrArtifactInvalid   = errors.New("artifact invalid")
	ErrRateLimited       = errors.New("rate limited")
)
