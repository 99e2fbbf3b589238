package models

// ErrorCode is a machine-readable error code returned to API clients
type ErrorCode string

const (
	ErrInvalidRequest  ErrorCode = "INVALID_REQUEST"
	ErrInvalidUsername ErrorCode = "INVALID_USERNAME"
	ErrUserNotFound    ErrorCode = "USER_NOT_FOUND"
	ErrNoDataAvailable ErrorCode = "NO_DATA_AVAILABLE"
	ErrInternal        ErrorCode = "INTERNAL_ERROR"
)

const (
	ResponseTypeAnalyze = "analyze"
	ResponseTypeError   = "error"
)

// AnalyzeRequest is the request to compute a user's wrapped stats
type AnalyzeRequest struct {
	Username string `json:"username"`
	Limit    int    `json:"limit,omitempty"`
}

// AnalyzeResponse wraps the computed stats for a user
type AnalyzeResponse struct {
	Type        string       `json:"type"`
	Username    string       `json:"username"`
	Stats       WrappedStats `json:"stats"`
	GeneratedAt int64        `json:"generatedAt"` // epoch milliseconds
}

// ErrorResponse is returned when an analysis cannot be produced
type ErrorResponse struct {
	Type    string    `json:"type"`
	Message string    `json:"message"`
	Code    ErrorCode `json:"code,omitempty"`
}

// CacheStatus describes the state of the result cache
type CacheStatus struct {
	Backend        string `json:"backend"`
	Connected      bool   `json:"connected"`
	TotalEntries   int    `json:"total_entries"`
	ExpiredEntries int    `json:"expired_entries"`
	OldestEntry    int64  `json:"oldest_entry"`
	NewestEntry    int64  `json:"newest_entry"`
	SizeBytes      int64  `json:"size_bytes"`
}
