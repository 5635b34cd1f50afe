package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidOrder         ErrorCode = 102
	ErrCodeInvalidSide          ErrorCode = 103
	ErrCodeInvalidOrderType     ErrorCode = 104
	ErrCodeInvalidInterval      ErrorCode = 105

	// Venue errors (200-299). These mirror the venue error taxonomy:
	// unauthenticated, rejected, transient, not found, malformed.
	ErrCodeVenueUnauthenticated ErrorCode = 200
	ErrCodeVenueRejected        ErrorCode = 201
	ErrCodeVenueTransient       ErrorCode = 202
	ErrCodeVenueNotFound        ErrorCode = 203
	ErrCodeVenueMalformed       ErrorCode = 204

	// Order errors (300-399)
	ErrCodeOrderNotFound       ErrorCode = 300
	ErrCodeOrderNotBound       ErrorCode = 301
	ErrCodeDirectoryConflict   ErrorCode = 302
	ErrCodeOrderDispatchFailed ErrorCode = 303

	// Market data errors (400-499)
	ErrCodeSymbolNotSubscribed ErrorCode = 400
	ErrCodeMarketDataMissing   ErrorCode = 401

	// Engine errors (500-599)
	ErrCodeEngineInitFailed   ErrorCode = 500
	ErrCodeEngineNotReady     ErrorCode = 501
	ErrCodeVenueNotConfigured ErrorCode = 502
)
