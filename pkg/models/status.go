package models

// FetchStatus classifies the outcome of a fetch attempt
type FetchStatus string

const (
	StatusUnset        FetchStatus = ""              // Zero value = no attempt recorded
	StatusSuccess      FetchStatus = "success"       // HTTP 2xx (redirects followed)
	StatusBlocked      FetchStatus = "blocked"       // HTTP 403, site-level rejection, terminal
	StatusRateLimited  FetchStatus = "rate_limited"  // HTTP 429, transient
	StatusClientError  FetchStatus = "client_error"  // Other 4xx (and unfollowed 3xx), terminal
	StatusServerError  FetchStatus = "server_error"  // HTTP 5xx, transient
	StatusNetworkError FetchStatus = "network_error" // DNS/TCP/TLS failure, transient
	StatusTimeout      FetchStatus = "timeout"       // Deadline exceeded, transient
)

// String implements fmt.Stringer for logging
func (s FetchStatus) String() string {
	if s == "" {
		return "unset"
	}
	return string(s)
}

// Transient reports whether the status warrants a retry under the fetch
// policy. Blocked and client errors are terminal for the target.
func (s FetchStatus) Transient() bool {
	switch s {
	case StatusRateLimited, StatusServerError, StatusNetworkError, StatusTimeout:
		return true
	}
	return false
}

// IsValid returns true if the status is a known operational value
func (s FetchStatus) IsValid() bool {
	switch s {
	case StatusSuccess, StatusBlocked, StatusRateLimited, StatusClientError,
		StatusServerError, StatusNetworkError, StatusTimeout:
		return true
	}
	return false
}
