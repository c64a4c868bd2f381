package retry

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"
)

// Policy is the attempt budget and starting delay for one error type.
type Policy struct {
	// MaxAttempts is the total number of attempts allowed (including the first).
	MaxAttempts int `yaml:"max_attempts"`
	// BaseDelay is the delay before the second attempt.
	BaseDelay time.Duration `yaml:"base_delay"`
}

// DefaultPolicies returns the built-in per-error-type policy table.
func DefaultPolicies() map[ErrorType]Policy {
	return map[ErrorType]Policy{
		ErrorTypeNetwork:     {MaxAttempts: 4, BaseDelay: 500 * time.Millisecond},
		ErrorTypeTimeout:     {MaxAttempts: 3, BaseDelay: time.Second},
		ErrorTypeRateLimit:   {MaxAttempts: 5, BaseDelay: 2 * time.Second},
		ErrorTypeParsing:     {MaxAttempts: 2, BaseDelay: 250 * time.Millisecond},
		ErrorTypeToolMissing: {MaxAttempts: 1, BaseDelay: 0},
		ErrorTypeOracle:      {MaxAttempts: 3, BaseDelay: time.Second},
		ErrorTypeUnknown:     {MaxAttempts: 2, BaseDelay: 500 * time.Millisecond},
	}
}

// policyFile is the YAML shape of a policy override file.
type policyFile struct {
	Policies map[string]Policy `yaml:"policies"`
}

// LoadPolicies reads policy overrides from a YAML file and merges them
// over the defaults. Unknown error-type keys are rejected so typos in the
// file surface immediately.
func LoadPolicies(path string) (map[ErrorType]Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}

	var file policyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse policy file: %w", err)
	}

	policies := DefaultPolicies()
	for key, p := range file.Policies {
		typ := ErrorType(key)
		if _, known := policies[typ]; !known {
			return nil, fmt.Errorf("unknown error type %q in %s", key, path)
		}
		if p.MaxAttempts < 1 {
			return nil, fmt.Errorf("error type %q: max_attempts must be >= 1", key)
		}
		policies[typ] = p
	}
	return policies, nil
}
