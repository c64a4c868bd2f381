// Package retry provides error classification, exponential backoff with
// jitter, and per-operation circuit breaking for every externally-fallible
// call the engine makes (oracle round-trips and tool invocations).
package retry

import "strings"

// ErrorType buckets an error into a class with its own retry policy.
type ErrorType string

const (
	// ErrorTypeNetwork covers connection resets and transport failures.
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeTimeout covers deadline and timeout failures.
	ErrorTypeTimeout ErrorType = "timeout"
	// ErrorTypeRateLimit covers throttling responses.
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeParsing covers malformed responses (bad JSON and similar).
	ErrorTypeParsing ErrorType = "parsing"
	// ErrorTypeToolMissing covers lookups for tools that do not exist.
	ErrorTypeToolMissing ErrorType = "tool_missing"
	// ErrorTypeOracle covers failures reported by the oracle itself.
	ErrorTypeOracle ErrorType = "oracle"
	// ErrorTypeUnknown is the default bucket for unrecognized errors.
	ErrorTypeUnknown ErrorType = "unknown"
)

// classPatterns maps lowercase substrings to error types. Order matters:
// the first match wins, so more specific patterns come first.
var classPatterns = []struct {
	substr string
	typ    ErrorType
}{
	{"rate limit", ErrorTypeRateLimit},
	{"rate_limit", ErrorTypeRateLimit},
	{"too many requests", ErrorTypeRateLimit},
	{"429", ErrorTypeRateLimit},
	{"timeout", ErrorTypeTimeout},
	{"timed out", ErrorTypeTimeout},
	{"deadline exceeded", ErrorTypeTimeout},
	{"connection reset", ErrorTypeNetwork},
	{"connection refused", ErrorTypeNetwork},
	{"broken pipe", ErrorTypeNetwork},
	{"no such host", ErrorTypeNetwork},
	{"econnreset", ErrorTypeNetwork},
	{"tool not found", ErrorTypeToolMissing},
	{"unknown tool", ErrorTypeToolMissing},
	{"invalid json", ErrorTypeParsing},
	{"malformed json", ErrorTypeParsing},
	{"unexpected end of json", ErrorTypeParsing},
	{"parse error", ErrorTypeParsing},
	{"oracle error", ErrorTypeOracle},
	{"oracle failure", ErrorTypeOracle},
	{"completion failed", ErrorTypeOracle},
	{"overloaded", ErrorTypeOracle},
}

// nonRetryablePatterns match errors that should never be retried,
// regardless of how many attempts remain.
var nonRetryablePatterns = []string{
	"auth",
	"unauthorized",
	"invalid request",
	"permission denied",
	"forbidden",
	"tool not found",
	"unknown tool",
}

// Classify maps an error to its type. A nil error is unknown.
func Classify(err error) ErrorType {
	if err == nil {
		return ErrorTypeUnknown
	}
	msg := strings.ToLower(err.Error())
	for _, p := range classPatterns {
		if strings.Contains(msg, p.substr) {
			return p.typ
		}
	}
	return ErrorTypeUnknown
}

// nonRetryable reports whether the error message matches a pattern that
// rules out retrying entirely.
func nonRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, p := range nonRetryablePatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
