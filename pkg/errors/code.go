package errors

// ErrorCode represents a unique error identifier
type ErrorCode int

// Error code ranges allocation:
// 10000-10999: System & Common errors
// 11000-11999: Session & Stage module errors
// 12000-12999: Problem & Fixture module errors
// 13000-13999: Evaluation & Harness module errors

const (
	// ========== System & Common Errors (10000-10999) ==========

	// Success
	Success ErrorCode = 10000

	// Generic errors (10000-10099)
	InternalServerError ErrorCode = 10001
	InvalidParams       ErrorCode = 10002
	NotFound            ErrorCode = 10003
	Unauthorized        ErrorCode = 10004
	Forbidden           ErrorCode = 10005
	TooManyRequests     ErrorCode = 10006
	ServiceUnavailable  ErrorCode = 10007
	Timeout             ErrorCode = 10008

	// Database errors (10100-10199)
	DatabaseError     ErrorCode = 10100
	RecordNotFound    ErrorCode = 10101
	TransactionFailed ErrorCode = 10102

	// Cache errors (10200-10299)
	CacheError ErrorCode = 10200

	// Validation errors (10300-10399)
	ValidationFailed   ErrorCode = 10300
	RequiredFieldEmpty ErrorCode = 10301

	// ========== Session & Stage Module Errors (11000-11999) ==========

	// Session lifecycle (11000-11099)
	SessionNotFound     ErrorCode = 11000
	SessionCompleted    ErrorCode = 11001
	SessionCreateFailed ErrorCode = 11002
	SessionUpdateFailed ErrorCode = 11003
	UnknownStage        ErrorCode = 11004

	// Attempts (11100-11199)
	AttemptCreateFailed ErrorCode = 11100

	// ========== Problem & Fixture Module Errors (12000-12999) ==========

	// Problems (12000-12099)
	ProblemNotFound ErrorCode = 12000

	// Fixtures (12100-12199)
	SignatureNotFound ErrorCode = 12100
	TestCasesNotFound ErrorCode = 12101

	// Languages (12200-12299)
	LanguageNotSupported ErrorCode = 12200

	// ========== Evaluation & Harness Module Errors (13000-13999) ==========

	// Evaluation (13000-13099)
	EvaluatorFailed  ErrorCode = 13000
	MalformedPayload ErrorCode = 13001

	// Harness (13100-13199)
	SandboxUnavailable ErrorCode = 13100
	SandboxBadResponse ErrorCode = 13101
	TestRunSaveFailed  ErrorCode = 13102
	RunTooFrequently   ErrorCode = 13103
	CodeTooLarge       ErrorCode = 13104
)

// errorMessages maps error codes to their default English messages
var errorMessages = map[ErrorCode]string{
	// System & Common
	Success:             "Success",
	InternalServerError: "Internal server error",
	InvalidParams:       "Invalid parameters",
	NotFound:            "Resource not found",
	Unauthorized:        "Unauthorized access",
	Forbidden:           "Access forbidden",
	TooManyRequests:     "Too many requests, please try again later",
	ServiceUnavailable:  "Service temporarily unavailable",
	Timeout:             "Request timeout",

	// Database
	DatabaseError:     "Database operation failed",
	RecordNotFound:    "Record not found in database",
	TransactionFailed: "Database transaction failed",

	// Cache
	CacheError: "Cache operation failed",

	// Validation
	ValidationFailed:   "Validation failed",
	RequiredFieldEmpty: "Required field is empty",

	// Session & Stage
	SessionNotFound:     "Session not found",
	SessionCompleted:    "Session is already completed",
	SessionCreateFailed: "Failed to create session",
	SessionUpdateFailed: "Failed to update session",
	UnknownStage:        "Unknown stage",
	AttemptCreateFailed: "Failed to record attempt",

	// Problem & Fixtures
	ProblemNotFound:      "Problem not found",
	SignatureNotFound:    "No signature found",
	TestCasesNotFound:    "No tests found",
	LanguageNotSupported: "Programming language not supported",

	// Evaluation & Harness
	EvaluatorFailed:    "Evaluator failed",
	MalformedPayload:   "Malformed stage payload",
	SandboxUnavailable: "Code runner is unavailable",
	SandboxBadResponse: "Code runner returned a malformed response",
	TestRunSaveFailed:  "Failed to record test run",
	RunTooFrequently:   "Running tests too frequently, please wait",
	CodeTooLarge:       "Code is too large",
}

// Message returns the default message for the error code
func (c ErrorCode) Message() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return "Unknown error"
}

// HTTPStatus returns the recommended HTTP status code for the error code
func (c ErrorCode) HTTPStatus() int {
	switch {
	case c == Success:
		return 200
	case c == Unauthorized:
		return 401
	case c == Forbidden:
		return 403
	case c == NotFound, c == SessionNotFound, c == ProblemNotFound:
		return 404
	case c == SessionCompleted:
		return 409
	case c == TooManyRequests, c == RunTooFrequently:
		return 429
	case c == ServiceUnavailable, c == SandboxUnavailable:
		return 503
	case c >= 10300 && c < 10400: // Validation errors
		return 400
	case c == InvalidParams, c == MalformedPayload, c == CodeTooLarge, c == LanguageNotSupported:
		return 400
	default:
		return 500
	}
}
