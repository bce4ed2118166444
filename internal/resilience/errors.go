package resilience

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

// APIError is a non-2xx response from an LLM provider. It carries the
// status and raw body so failed units of work can be diagnosed from the
// process log.
type APIError struct {
	Provider string
	Status   int
	Body     string
}

func (e *APIError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("%s: api error %d: %s", e.Provider, e.Status, body)
}

// ExtractionError means the model returned text that does not contain
// the structured fields the caller required.
type ExtractionError struct {
	Reason string
}

func (e *ExtractionError) Error() string {
	return "extraction failed: " + e.Reason
}

// ValidationError means a unit of work has unusable input (for example
// a company with no stored profile). It marks the unit Skipped rather
// than Error: an expected outcome, not a failure.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Reason
}

// ConfigurationError means the environment is unusable (required sheet
// or column absent). It aborts the entire run.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration: " + e.Reason
}

// IsExtraction reports whether err is (or wraps) an ExtractionError.
func IsExtraction(err error) bool {
	var ee *ExtractionError
	return errors.As(err, &ee)
}

// RetryTransientOrExtraction retries transient failures and extraction
// failures. Model output is stochastic; asking again often yields the
// structured fields a first reply omitted.
func RetryTransientOrExtraction(err error) bool {
	return IsTransient(err) || IsExtraction(err)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsConfiguration reports whether err is (or wraps) a ConfigurationError.
func IsConfiguration(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// IsTransient reports whether err is safe to retry: a retryable API
// status, a network-level timeout, or a known transient transport
// failure. Extraction, validation and configuration errors are never
// transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var ae *APIError
	if errors.As(err, &ae) {
		return IsTransientHTTPStatus(ae.Status)
	}

	var ee *ExtractionError
	if errors.As(err, &ee) {
		return false
	}
	if IsValidation(err) || IsConfiguration(err) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	// String heuristics for errors wrapped by HTTP clients and SDKs.
	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
		"transport connection broken",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// IsTransientHTTPStatus reports whether an HTTP status indicates a
// transient server-side issue.
func IsTransientHTTPStatus(status int) bool {
	switch status {
	case 408, 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
