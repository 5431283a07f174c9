package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	coherecore "github.com/cohere-ai/cohere-go/v2/core"
	"github.com/hyperjump/wantokmatch/internal/errs"
	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

// HTTPError is a non-2xx response from a provider.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// Temporary reports whether the request may succeed if retried.
func (e *HTTPError) Temporary() bool {
	return transientStatus(e.StatusCode)
}

func transientStatus(code int) bool {
	return code == 0 || code == http.StatusTooManyRequests || code == http.StatusRequestTimeout || code >= 500
}

// IsTransient reports whether err is worth retrying: timeouts, network
// failures, malformed responses, 429 and 5xx. Other 4xx responses, missing
// credentials and caller mistakes are permanent.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) ||
		errors.Is(err, errs.ErrProviderUnavailable) ||
		errors.Is(err, errs.ErrInvalidInput) {
		return false
	}

	var he *HTTPError
	if errors.As(err, &he) {
		return he.Temporary()
	}
	var ce *coherecore.APIError
	if errors.As(err, &ce) {
		return transientStatus(ce.StatusCode)
	}
	var oe *openai.APIError
	if errors.As(err, &oe) {
		return transientStatus(oe.HTTPStatusCode)
	}
	var re *openai.RequestError
	if errors.As(err, &re) {
		return transientStatus(re.HTTPStatusCode)
	}
	var ge genai.APIError
	if errors.As(err, &ge) {
		return transientStatus(ge.Code)
	}
	return true
}
