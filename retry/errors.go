package retry

import (
	"errors"
	"net"
	"net/url"
	"strings"
	"syscall"

	"github.com/spetersoncode/gamecraft"
)

// statusCoder is an interface for errors that carry an HTTP status code.
// Both the Anthropic and OpenAI SDK errors implement this interface.
type statusCoder interface {
	StatusCode() int
}

// IsTransient determines if an error is transient and should be retried.
// Classified pipeline errors answer for themselves via their taxonomy
// kind. Unclassified errors fall back to heuristic detection:
// - Rate limits (HTTP 429)
// - Server errors (HTTP 5xx)
// - Network timeouts, connection resets, DNS failures
// - Well-known transient message patterns from provider SDKs
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var ce *gamecraft.Error
	if errors.As(err, &ce) {
		return ce.Retryable()
	}

	var sc statusCoder
	if errors.As(err, &sc) {
		if isTransientStatusCode(sc.StatusCode()) {
			return true
		}
	}

	if code := extractGoogleAPIErrorCode(err); code > 0 {
		if isTransientStatusCode(code) {
			return true
		}
	}

	if isTransientNetworkError(err) {
		return true
	}

	return hasTransientMessage(err)
}

// isTransientStatusCode checks if an HTTP status code indicates a transient error.
func isTransientStatusCode(code int) bool {
	if code == 429 {
		return true
	}
	return code >= 500 && code < 600
}

// extractGoogleAPIErrorCode extracts the status code from a Google API
// error. googleapi.Error exposes a Code field rather than a StatusCode
// method, so the code is recovered from the message pattern.
func extractGoogleAPIErrorCode(err error) int {
	errStr := err.Error()
	if !strings.Contains(errStr, "googleapi:") {
		return 0
	}
	for _, code := range []struct {
		pattern string
		code    int
	}{
		{"Error 429", 429},
		{"Error 500", 500},
		{"Error 502", 502},
		{"Error 503", 503},
		{"Error 504", 504},
	} {
		if strings.Contains(errStr, code.pattern) {
			return code.code
		}
	}
	return 0
}

// isTransientNetworkError checks for network-level transient errors.
func isTransientNetworkError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return true
		}
		if urlErr.Err != nil && isTransientNetworkError(urlErr.Err) {
			return true
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.Temporary()
	}

	var syscallErr syscall.Errno
	if errors.As(err, &syscallErr) {
		switch syscallErr {
		case syscall.ECONNRESET, syscall.ECONNREFUSED, syscall.ETIMEDOUT:
			return true
		}
	}

	return false
}

// hasTransientMessage matches well-known transient error strings surfaced
// by provider SDKs that wrap their causes into plain errors.
func hasTransientMessage(err error) bool {
	msg := strings.ToLower(err.Error())
	patterns := []string{
		"connection reset",
		"connection refused",
		"timeout",
		"rate limit",
		"too many requests",
		"service unavailable",
		"bad gateway",
		"gateway timeout",
	}
	for _, p := range patterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
