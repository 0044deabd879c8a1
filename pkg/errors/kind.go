package errors

// Kind classifies an error by how the caller is expected to react to it.
type Kind string

const (
	// KindConfiguration errors fail fast and are never retried.
	KindConfiguration Kind = "configuration"
	// KindTransient errors come from remote I/O and may be retried with backoff.
	KindTransient Kind = "transient"
	// KindRejection errors are domain outcomes recorded on an order or request.
	// The run continues.
	KindRejection Kind = "rejection"
	// KindFatal errors terminate a run.
	KindFatal Kind = "fatal"
)

var codeKinds = map[ErrorCode]Kind{
	ErrCodeInvalidParameter:     KindConfiguration,
	ErrCodeInvalidConfiguration: KindConfiguration,
	ErrCodeInvalidDate:          KindConfiguration,
	ErrCodeInvalidDateRange:     KindConfiguration,
	ErrCodeMissingCredentials:   KindConfiguration,
	ErrCodeInvalidVersion:       KindConfiguration,
	ErrCodeUnsupportedVenue:     KindConfiguration,
	ErrCodeStrategyConfigError:  KindConfiguration,
	ErrCodeUnknownStrategy:      KindConfiguration,
	ErrCodeVersionMismatch:      KindConfiguration,
	ErrCodeStrategyExists:       KindConfiguration,
	ErrCodeInvalidTimespan:      KindConfiguration,
	ErrCodeInvalidProvider:      KindConfiguration,

	ErrCodeMarketDataFetchFailed: KindTransient,
	ErrCodeBalanceQueryFailed:    KindTransient,
	ErrCodePositionQueryFailed:   KindTransient,
	ErrCodeOrderFailed:           KindTransient,
	ErrCodeDataSourceUnavailable: KindTransient,

	ErrCodeInvalidOrderIntent:   KindRejection,
	ErrCodeInvalidOrder:         KindRejection,
	ErrCodeInsufficientCash:     KindRejection,
	ErrCodeInsufficientPosition: KindRejection,
	ErrCodeUnknownSymbol:        KindRejection,
}

// Kind returns the classification of the error code.
// Codes without an explicit classification are fatal.
func (c ErrorCode) Kind() Kind {
	if kind, ok := codeKinds[c]; ok {
		return kind
	}

	return KindFatal
}

// KindOf returns the classification of err.
// Errors that are not *Error are treated as fatal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}

	return GetCode(err).Kind()
}

// IsRetryable reports whether err is a transient error.
func IsRetryable(err error) bool {
	return KindOf(err) == KindTransient
}

// IsRejection reports whether err is a domain rejection.
func IsRejection(err error) bool {
	return KindOf(err) == KindRejection
}
