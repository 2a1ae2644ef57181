package params

import (
	"errors"
	"fmt"
)

// ErrConfiguration is matched by every ConfigurationError.
var ErrConfiguration = errors.New("configuration error")

// ConfigurationError reports a parameter that is missing or invalid for an
// index combination used by the formulation.
type ConfigurationError struct {
	Param  string
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("configuration error: %s: %s", e.Param, e.Reason)
	}
	return fmt.Sprintf("configuration error: %s%s: %s", e.Param, e.Key, e.Reason)
}

// Is makes errors.Is(err, ErrConfiguration) hold for any ConfigurationError.
func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

func missing(param, key string) error {
	return &ConfigurationError{Param: param, Key: key, Reason: "missing"}
}

func invalid(param, key, reason string) error {
	return &ConfigurationError{Param: param, Key: key, Reason: reason}
}
