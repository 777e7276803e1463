package twitter

import "errors"

// Error kinds for the twitter package. Callers branch on these with
// errors.Is instead of matching message text.
var (
	// ErrRateLimited is returned when the platform rejects a call with 429.
	// The dispatch scheduler interprets it as "stay pending, try next tick".
	ErrRateLimited = errors.New("twitter rate limited")

	// ErrForbidden is returned on a 403; frequently triggered by flagged
	// links rather than by the prose itself.
	ErrForbidden = errors.New("twitter forbidden")

	// ErrUploadFailed is returned when a media upload fails.
	ErrUploadFailed = errors.New("media upload failed")
)
