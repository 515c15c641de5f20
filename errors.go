package sqlpager

import (
	"errors"
	"fmt"
)

// ErrParameterFormat is matched by every *ParameterFormatError.
var ErrParameterFormat = errors.New("sqlpager: invalid parameter format")

// ParameterFormatError reports a named parameter key that cannot be bound.
type ParameterFormatError struct {
	Key    string
	Reason string
}

// Error returns the error string.
func (e *ParameterFormatError) Error() string {
	return fmt.Sprintf("sqlpager: invalid parameter key '%s': %s", e.Key, e.Reason)
}

// Is reports whether the target error is ErrParameterFormat.
func (e *ParameterFormatError) Is(err error) bool {
	return err == ErrParameterFormat
}

// IsParameterFormat returns true if the error is a ParameterFormatError.
func IsParameterFormat(err error) bool {
	if err == nil {
		return false
	}
	var e *ParameterFormatError
	return errors.As(err, &e) || errors.Is(err, ErrParameterFormat)
}
