package retry

import (
	"errors"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		msg  string
		want ErrorType
	}{
		{"connection reset by peer", ErrorTypeNetwork},
		{"dial tcp: connection refused", ErrorTypeNetwork},
		{"request timed out", ErrorTypeTimeout},
		{"context deadline exceeded", ErrorTypeTimeout},
		{"429 Too Many Requests", ErrorTypeRateLimit},
		{"rate limit exceeded, slow down", ErrorTypeRateLimit},
		{"invalid JSON in response", ErrorTypeParsing},
		{"unexpected end of JSON input", ErrorTypeParsing},
		{"tool not found: calculator", ErrorTypeToolMissing},
		{"oracle error: model overload", ErrorTypeOracle},
		{"something else entirely", ErrorTypeUnknown},
	}

	for _, tt := range tests {
		got := Classify(errors.New(tt.msg))
		if got != tt.want {
			t.Errorf("Classify(%q) = %s, want %s", tt.msg, got, tt.want)
		}
	}
}

func TestClassifyNil(t *testing.T) {
	if got := Classify(nil); got != ErrorTypeUnknown {
		t.Errorf("Classify(nil) = %s, want unknown", got)
	}
}

func TestNonRetryable(t *testing.T) {
	retryable := []string{
		"connection reset",
		"rate limit exceeded",
		"timed out waiting",
	}
	for _, msg := range retryable {
		if nonRetryable(errors.New(msg)) {
			t.Errorf("expected %q to be retryable", msg)
		}
	}

	fatal := []string{
		"authentication failed",
		"401 unauthorized",
		"invalid request body",
		"permission denied: /etc/secret",
		"tool not found: nope",
	}
	for _, msg := range fatal {
		if !nonRetryable(errors.New(msg)) {
			t.Errorf("expected %q to be non-retryable", msg)
		}
	}
}
