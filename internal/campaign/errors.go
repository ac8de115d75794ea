package campaign

import "errors"

// Sentinel errors for the send orchestration layer. All of these are
// precondition failures: they abort before any job is enqueued and
// leave the campaign untouched in draft.
var (
	ErrNotFound          = errors.New("campaign not found")
	ErrArtistNotFound    = errors.New("artist not found")
	ErrNotSendable       = errors.New("campaign is not in a sendable status")
	ErrDomainNotVerified = errors.New("artist sending domain is not verified")
)
