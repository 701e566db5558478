package qlight

import (
	"errors"
	"strings"
)

var (
	ErrInvalidArgument   = errors.New("qlight: invalid argument")
	ErrNoResponse        = errors.New("qlight: no response")
	ErrMalformedResponse = errors.New("qlight: malformed response")
	ErrValidation        = errors.New("qlight: validation failure")
)

// ValidationError 应答长度正确但违反协议约束
type ValidationError struct {
	Reasons []string
}

func (e *ValidationError) Error() string {
	if len(e.Reasons) == 0 {
		return ErrValidation.Error()
	}
	return ErrValidation.Error() + ": " + strings.Join(e.Reasons, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }
