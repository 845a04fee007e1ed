package reliability

// IsRetryableHTTPStatus classifies gateway HTTP status codes that indicate a
// transient condition rather than a caller or configuration error.
func IsRetryableHTTPStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

// ErrorClass buckets a gateway HTTP status for metrics labels.
func ErrorClass(code int) string {
	if IsRetryableHTTPStatus(code) {
		return "transient"
	}
	return "permanent"
}
