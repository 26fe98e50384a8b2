package siteindex

import (
	"errors"
	"fmt"
)

// Code is a site-index solver outcome. It is a namespace of its own and is
// never mixed with growth-model return codes or input "unset" markers.
type Code int

const (
	CodeBelowBreastHeight       Code = -1
	CodeNoAnswer                Code = -4
	CodeUnknownCurve            Code = -5
	CodeGrowthInterceptTotalAge Code = -9
	CodeInvalidAgeType          Code = -11
)

func (c Code) String() string {
	switch c {
	case CodeBelowBreastHeight:
		return "height below breast height"
	case CodeNoAnswer:
		return "no answer"
	case CodeUnknownCurve:
		return "unknown curve"
	case CodeGrowthInterceptTotalAge:
		return "growth intercept curve used with total age"
	case CodeInvalidAgeType:
		return "invalid age type"
	default:
		return fmt.Sprintf("code %d", int(c))
	}
}

// Error is returned by every solver operation that cannot produce a value.
type Error struct {
	Code   Code
	Op     string
	Detail string
}

func (e *Error) Error() string {
	msg := e.Code.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

// Is matches errors by code so callers can compare against the sentinels.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

// Sentinels for errors.Is.
var (
	ErrBelowBreastHeight       = &Error{Code: CodeBelowBreastHeight}
	ErrNoAnswer                = &Error{Code: CodeNoAnswer}
	ErrUnknownCurve            = &Error{Code: CodeUnknownCurve}
	ErrGrowthInterceptTotalAge = &Error{Code: CodeGrowthInterceptTotalAge}
	ErrInvalidAgeType          = &Error{Code: CodeInvalidAgeType}
)

func newError(code Code, op, format string, args ...any) *Error {
	return &Error{Code: code, Op: op, Detail: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the solver code from err. ok is false when err does not
// come from this package.
func CodeOf(err error) (Code, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return 0, false
}

// LegacyResult renders an operation result in the legacy floating point
// form, where negative values carry the error code.
func LegacyResult(value float64, err error) float64 {
	if err == nil {
		return value
	}
	if code, ok := CodeOf(err); ok {
		return float64(code)
	}
	return float64(CodeNoAnswer)
}
