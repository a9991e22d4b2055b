package githubapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/go-github/v57/github"
)

// RateLimitedError means the upstream quota is exhausted. Callers must not
// retry before RetryAfter has elapsed.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("github rate limit exceeded, retry after %s", e.RetryAfter)
}

// NotFoundError is the soft-failure signal for per-repository lookups:
// the repository is unusable, not the pipeline.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("github resource not found: %s", e.Resource)
}

// UpstreamError carries a non-2xx status that is neither a rate limit nor a
// not-found, with enough of the upstream response to diagnose it.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("github returned status %d: %s", e.StatusCode, e.Body)
}

// MalformedResponseError means the response decoded into an unexpected
// shape. Fatal to its call site, never to sibling repositories.
type MalformedResponseError struct {
	Reason string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed github response: %s", e.Reason)
}

// IsRateLimited reports whether err classifies as quota exhaustion.
func IsRateLimited(err error) bool {
	var rl *RateLimitedError
	return errors.As(err, &rl)
}

// IsNotFound reports whether err classifies as a missing resource.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// classify maps go-github client errors onto the error kinds the pipeline
// dispatches on. Transport failures pass through wrapped, so callers can
// still distinguish them from upstream statuses.
func classify(resource string, err error) error {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return &RateLimitedError{RetryAfter: time.Until(rateErr.Rate.Reset.Time)}
	}

	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return &RateLimitedError{RetryAfter: abuseErr.GetRetryAfter()}
	}

	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError
	if errors.As(err, &typeErr) || errors.As(err, &syntaxErr) {
		return &MalformedResponseError{Reason: resource + ": " + err.Error()}
	}

	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		switch respErr.Response.StatusCode {
		case 404, 410:
			return &NotFoundError{Resource: resource}
		case 403, 429:
			// GitHub reports secondary limits as plain 403s too.
			return &RateLimitedError{RetryAfter: time.Minute}
		default:
			return &UpstreamError{
				StatusCode: respErr.Response.StatusCode,
				Body:       respErr.Message,
			}
		}
	}

	return fmt.Errorf("github request for %s: %w", resource, err)
}
