package dispatcher

import "fmt"

// RateLimitError marks a rate limit or timeout on a provider call.
type RateLimitError struct {
	Provider string
	Model    string
	Reason   string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit: %s/%s - %s", e.Provider, e.Model, e.Reason)
}

// HTTPError is a non-2xx status from a downstream service.
type HTTPError struct {
	StatusCode int
	Body       string
	Service    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d from %s: %s", e.StatusCode, e.Service, e.Body)
}

// ValidationError is fatal; retrying the same payload cannot succeed.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s", e.Message)
}
