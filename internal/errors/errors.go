package errors

import (
	"errors"
	"fmt"
)

// Custom error types for the URL shortener application

// ErrInvalidFormat is returned when a short code is too short to even carry a
// signature. Codes like this are always a client error, never retried.
var ErrInvalidFormat = errors.New("short code is invalid")

// ErrSignatureMismatch is returned when a short code's embedded signature does
// not match the one recomputed with the server secret. This is how forged or
// tampered codes are kept off the redirect path.
var ErrSignatureMismatch = errors.New("signature of short code is invalid")

// ErrDecodeFailed is returned when the payload part of a short code is not
// valid base64url and cannot be restored to a URL.
var ErrDecodeFailed = errors.New("failed to decode the short code")

// ErrInvalidURL is returned when the provided URL is invalid
var ErrInvalidURL = errors.New("invalid URL format")

// ErrLinkNotFound is returned when no link matches the given short code
var ErrLinkNotFound = errors.New("short link not found")

// ErrCampaignNotFound is returned when the referenced campaign doesn't exist
var ErrCampaignNotFound = errors.New("campaign not found")

// ErrBlocked is returned by the abuse guard when the client IP is blocked,
// either globally or for the requested destination URL.
var ErrBlocked = errors.New("ip is blocked for this destination")

// ErrCacheMiss is returned by the cache layer when a key does not exist.
// Callers treat it as a signal to fall through to the next resolution tier,
// never as a failure.
var ErrCacheMiss = errors.New("cache key not found")

// ErrShortCodeGenerationFailed is returned when we can't generate a unique short code
var ErrShortCodeGenerationFailed = errors.New("failed to generate unique short code")

// ErrClickRecordingFailed is returned when click recording fails
type ErrClickRecordingFailed struct {
	OriginalURL string
	Reason      string
}

func (e ErrClickRecordingFailed) Error() string {
	return fmt.Sprintf("failed to record click for %s: %s", e.OriginalURL, e.Reason)
}

// ErrReconcileFailed is returned when a reconciliation cycle cannot fold the
// accumulated click counts into the durable store.
type ErrReconcileFailed struct {
	Pairs  int
	Reason string
}

func (e ErrReconcileFailed) Error() string {
	return fmt.Sprintf("failed to reconcile %d click counter(s): %s", e.Pairs, e.Reason)
}

// ErrConfigLoad is returned when configuration loading fails
type ErrConfigLoad struct {
	Path   string
	Reason string
}

func (e ErrConfigLoad) Error() string {
	return fmt.Sprintf("failed to load config from %s: %s", e.Path, e.Reason)
}
