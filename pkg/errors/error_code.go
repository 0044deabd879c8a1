package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1
	ErrCodePanic   ErrorCode = 2

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidOrderIntent   ErrorCode = 102
	ErrCodeInvalidDate          ErrorCode = 103
	ErrCodeInvalidDateRange     ErrorCode = 104
	ErrCodeInvalidOrder         ErrorCode = 105
	ErrCodeInvalidBar           ErrorCode = 106
	ErrCodeMissingCredentials   ErrorCode = 107
	ErrCodeInvalidVersion       ErrorCode = 110
	ErrCodeUnsupportedVenue     ErrorCode = 111
	ErrCodeIllegalTransition    ErrorCode = 112

	// Data/Resource errors (200-299)
	ErrCodeDataNotFound          ErrorCode = 200
	ErrCodeDataSourceUnavailable ErrorCode = 201
	ErrCodeQueryFailed           ErrorCode = 202
	ErrCodeHistoricalDataFailed  ErrorCode = 203
	ErrCodeNoDataFound           ErrorCode = 204
	ErrCodeUnorderedBars         ErrorCode = 205
	ErrCodeExportFailed          ErrorCode = 206

	// Strategy errors (400-499)
	ErrCodeStrategyConfigError  ErrorCode = 401
	ErrCodeStrategyRuntimeError ErrorCode = 402
	ErrCodeUnknownStrategy      ErrorCode = 403
	ErrCodeVersionMismatch      ErrorCode = 404
	ErrCodeStrategyExists       ErrorCode = 405

	// Trading errors (500-599)
	ErrCodeOrderFailed          ErrorCode = 500
	ErrCodeInsufficientCash     ErrorCode = 501
	ErrCodeInsufficientPosition ErrorCode = 502
	ErrCodeUnknownSymbol        ErrorCode = 503
	ErrCodeBalanceQueryFailed   ErrorCode = 504
	ErrCodePositionQueryFailed  ErrorCode = 505
	ErrCodeVenueInitFailed      ErrorCode = 506
	ErrCodeOrderNotFound        ErrorCode = 507

	// Run errors (600-699)
	ErrCodeRunInitFailed   ErrorCode = 600
	ErrCodeRunFailed       ErrorCode = 601
	ErrCodeRunAlreadyDone  ErrorCode = 602
	ErrCodeStreamExhausted ErrorCode = 603

	// Market data errors (700-799)
	ErrCodeMarketDataFetchFailed ErrorCode = 700
	ErrCodeMarketDataWriteFailed ErrorCode = 701
	ErrCodeMarketDataParseFailed ErrorCode = 702
	ErrCodeInvalidTimespan       ErrorCode = 703
	ErrCodeInvalidProvider       ErrorCode = 704

	// Task errors (800-899)
	ErrCodeTaskNotFound    ErrorCode = 800
	ErrCodeTaskStoreFailed ErrorCode = 801
	ErrCodeTaskQueueFull   ErrorCode = 802
)
