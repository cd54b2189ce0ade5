package collab

import "errors"

var (
	// ErrNotFound means the locator could not identify a snippet for the hint.
	ErrNotFound = errors.New("collab: snippet not found")
	// ErrUnauthorized means the provider rejected the configured credentials.
	ErrUnauthorized = errors.New("collab: unauthorized")
	// ErrRateLimited means the provider throttled the request.
	ErrRateLimited = errors.New("collab: rate limited")
	// ErrUnavailable means the provider returned a server-side failure.
	ErrUnavailable = errors.New("collab: provider unavailable")
	// ErrEgressBlocked means the request was stopped by the egress allowlist.
	ErrEgressBlocked = errors.New("collab: egress blocked by policy")
)
