package provider

import (
	"errors"
	"fmt"

	"solfolio/internal/domain"
)

// ErrMissingAPIKey is returned before any network call when a provider that
// requires a key has none configured.
var ErrMissingAPIKey = errors.New("api key not configured")

// APIError is a non-200 answer from a provider.
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	body := e.Body
	if len(body) > 256 {
		body = body[:256] + "..."
	}
	return fmt.Sprintf("%s API error %d: %s", e.Provider, e.StatusCode, body)
}

// Status classifies the outcome of one provider call. empty marks a
// successful call that returned no usable data.
func Status(provider, op string, err error, empty bool) domain.SourceStatus {
	s := domain.SourceStatus{Provider: provider, Op: op, State: domain.SourceOK}
	switch {
	case errors.Is(err, ErrMissingAPIKey):
		s.State = domain.SourceMissingKey
	case err != nil:
		s.State = domain.SourceError
		s.Error = err.Error()
	case empty:
		s.State = domain.SourceEmpty
	}
	return s
}
