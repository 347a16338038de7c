package utils

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// --- Sentinel Errors for Categorization ---
var (
	ErrAttemptsExhausted = errors.New("attempt budget exhausted")     // Wraps the last observed outcome error
	ErrBlocked           = errors.New("blocked by target site (403)") // Terminal, not a bug
	ErrClientHTTPError   = errors.New("client HTTP error (4xx)")
	ErrServerHTTPError   = errors.New("server HTTP error (5xx)")
	ErrRateLimited       = errors.New("rate limited by target (429)")
	ErrRobotsDisallowed  = errors.New("disallowed by robots.txt")
	ErrMaxDepthExceeded  = errors.New("maximum traversal depth exceeded")
	ErrFrontierOverflow  = errors.New("frontier capacity exceeded")
	ErrParsing           = errors.New("parsing error") // Wraps specific parsing error (HTML, URL, JSON)
	ErrDatabase          = errors.New("database error")
	ErrSemaphoreTimeout  = errors.New("timeout acquiring semaphore")
	ErrRequestCreation   = errors.New("failed to create HTTP request")
	ErrResponseBodyRead  = errors.New("failed to read response body")
	ErrConfigValidation  = errors.New("configuration validation error")
	ErrSinkWrite         = errors.New("sink write error")
)

// WrapErrorf wraps a sentinel error with a formatted message.
func WrapErrorf(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}

// CategorizeError maps an error to a predefined category string for logging
// and run statistics.
func CategorizeError(err error) string {
	if err == nil {
		return "None"
	}

	switch {
	case errors.Is(err, ErrAttemptsExhausted):
		if errors.Is(err, ErrServerHTTPError) {
			return "Exhausted_HTTPServer"
		}
		if errors.Is(err, ErrRateLimited) {
			return "Exhausted_RateLimited"
		}
		msg := strings.ToLower(err.Error())
		if strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded") {
			return "Exhausted_NetworkTimeout"
		}
		if strings.Contains(msg, "connection refused") {
			return "Exhausted_ConnectionRefused"
		}
		if strings.Contains(msg, "no such host") {
			return "Exhausted_DNSLookup"
		}
		return "Exhausted_NetworkOther"
	case errors.Is(err, ErrBlocked):
		return "HTTP_403"
	case errors.Is(err, ErrRateLimited):
		return "HTTP_429"
	case errors.Is(err, ErrClientHTTPError):
		if strings.Contains(err.Error(), " 404 ") {
			return "HTTP_404"
		}
		return "HTTP_4xx"
	case errors.Is(err, ErrServerHTTPError):
		return "HTTP_5xx"
	case errors.Is(err, ErrRobotsDisallowed):
		return "Policy_Robots"
	case errors.Is(err, ErrMaxDepthExceeded):
		return "Policy_MaxDepth"
	case errors.Is(err, ErrFrontierOverflow):
		return "Policy_FrontierOverflow"
	case errors.Is(err, ErrParsing):
		msg := err.Error()
		if strings.Contains(msg, "URL") {
			return "Content_ParsingURL"
		}
		if strings.Contains(msg, "HTML") {
			return "Content_ParsingHTML"
		}
		if strings.Contains(msg, "JSON") {
			return "Content_ParsingJSON"
		}
		return "Content_ParsingOther"
	case errors.Is(err, ErrDatabase):
		return "Database_Other"
	case errors.Is(err, ErrSemaphoreTimeout):
		return "Resource_SemaphoreTimeout"
	case errors.Is(err, ErrRequestCreation):
		return "Internal_RequestCreation"
	case errors.Is(err, ErrResponseBodyRead):
		return "Network_BodyRead"
	case errors.Is(err, ErrConfigValidation):
		return "Config_Validation"
	case errors.Is(err, ErrSinkWrite):
		return "Sink_Write"
	}

	// --- Fallback checks for common underlying error types/strings ---

	if errors.Is(err, context.Canceled) {
		return "System_ContextCanceled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		if strings.Contains(err.Error(), "semaphore") {
			return "Resource_SemaphoreTimeout"
		}
		return "System_ContextDeadlineExceeded"
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "Network_Timeout"
	}
	lowerMsg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lowerMsg, "timeout"):
		return "Network_TimeoutGeneric"
	case strings.Contains(lowerMsg, "connection refused"):
		return "Network_ConnectionRefused"
	case strings.Contains(lowerMsg, "no such host"):
		return "Network_DNSLookup"
	case strings.Contains(lowerMsg, "tls"), strings.Contains(lowerMsg, "certificate"):
		return "Network_TLS"
	case strings.Contains(lowerMsg, "reset by peer"):
		return "Network_ConnectionReset"
	}

	return "Unknown"
}
