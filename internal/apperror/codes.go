package apperror

// Code represents a unique error code for the application.
type Code string

// General error codes
const (
	// General validation
	CodeRequiredField   Code = "REQUIRED_FIELD"
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeInvalidState    Code = "INVALID_STATE"
	CodeNotFound        Code = "NOT_FOUND"
	CodeValidationError Code = "VALIDATION_ERROR"

	// Configuration
	CodeConfigurationError Code = "CONFIGURATION_ERROR"

	// External service errors
	CodeExternalServiceError Code = "EXTERNAL_SERVICE_ERROR"
	CodeServiceUnavailable   Code = "SERVICE_UNAVAILABLE"

	// System errors
	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Backrun-engine error codes
const (
	// Quoting errors
	CodeQuoteFailed  Code = "QUOTE_FAILED"
	CodeInvalidQuote Code = "INVALID_QUOTE"

	// Route execution errors
	CodeUnknownProtocol     Code = "UNKNOWN_PROTOCOL"
	CodePoolCallFailed      Code = "POOL_CALL_FAILED"
	CodeInsufficientOutput  Code = "INSUFFICIENT_OUTPUT"
	CodeInsufficientBalance Code = "INSUFFICIENT_BALANCE"
	CodeRepaymentNotTaken   Code = "REPAYMENT_NOT_TAKEN"
	CodeUnprofitableRoute   Code = "UNPROFITABLE_ROUTE"
	CodeRouteNotCyclic      Code = "ROUTE_NOT_CYCLIC"
	CodePoolNotFound        Code = "POOL_NOT_FOUND"

	// Distribution errors
	CodeConfigNotFound     Code = "DISTRIBUTION_CONFIG_NOT_FOUND"
	CodeShareSumExceeded   Code = "SHARE_SUM_EXCEEDED"
	CodeDuplicateRecipient Code = "DUPLICATE_RECIPIENT"
	CodeMissingFallback    Code = "MISSING_FALLBACK_RECIPIENT"
	CodeShareCapExceeded   Code = "SHARE_CAP_EXCEEDED"

	// Invariant violations (fatal, never absorbed)
	CodeLeftoverBalance   Code = "LEFTOVER_BALANCE"
	CodeDistributionDrift Code = "DISTRIBUTION_DRIFT"

	// Authorization errors
	CodeUnauthorizedCaller Code = "UNAUTHORIZED_CALLER"

	// WebSocket / feed errors
	CodeWebSocketConnectionError Code = "WEBSOCKET_CONNECTION_ERROR"
	CodeWebSocketClosed          Code = "WEBSOCKET_CLOSED"
	CodeEventDecodeFailed        Code = "EVENT_DECODE_FAILED"
)

// messages holds default messages for well-known codes.
var messages = map[Code]string{
	CodeQuoteFailed:         "quoter request failed",
	CodeInvalidQuote:        "quoter returned an invalid quote",
	CodeUnknownProtocol:     "unrecognized dex protocol tag",
	CodePoolCallFailed:      "pool call failed",
	CodeInsufficientOutput:  "hop output does not cover committed obligations",
	CodeInsufficientBalance: "insufficient token balance",
	CodeRepaymentNotTaken:   "pool completed loan without taking repayment",
	CodeUnprofitableRoute:   "route output at or below breakeven",
	CodeRouteNotCyclic:      "mid-route start requires a cyclic token path",
	CodePoolNotFound:        "pool not found",
	CodeConfigNotFound:      "distribution config not found",
	CodeShareSumExceeded:    "distribution shares exceed 10000 bps",
	CodeDuplicateRecipient:  "duplicate recipient in distribution config",
	CodeMissingFallback:     "under-allocated config requires a fallback recipient",
	CodeShareCapExceeded:    "recipient share exceeds the configured cap",
	CodeLeftoverBalance:     "nonzero balance left on the router after invocation",
	CodeDistributionDrift:   "distributed total does not equal input amount",
	CodeUnauthorizedCaller:  "caller is not authorized",
	CodeEventDecodeFailed:   "failed to decode swap event",
}
