package projection

import (
	"fmt"

	"vdypcore/internal/growth"
	"vdypcore/pkg/domain"
)

// StageFailure is the captured cause of a failed component run. Code is
// growth.CodeOK when the failure did not come from a model return code.
type StageFailure struct {
	Component domain.Component
	Type      domain.ProjectionType
	Code      growth.ReturnCode
	Err       error
}

func (f *StageFailure) Error() string {
	switch {
	case f.Code != growth.CodeOK && f.Err != nil:
		return fmt.Sprintf("%s (%s) returned %s: %v", f.Component, f.Type, f.Code, f.Err)
	case f.Code != growth.CodeOK:
		return fmt.Sprintf("%s (%s) returned %s", f.Component, f.Type, f.Code)
	case f.Err != nil:
		return fmt.Sprintf("%s (%s) failed: %v", f.Component, f.Type, f.Err)
	default:
		return fmt.Sprintf("%s (%s) failed", f.Component, f.Type)
	}
}

func (f *StageFailure) Unwrap() error {
	return f.Err
}

// RetryEligible reports whether the failure allows the Initial stage to be
// re-attempted with VRI-start.
func (f *StageFailure) RetryEligible() bool {
	return f != nil && f.Component == domain.ComponentFipStart && f.Code.RetryEligible()
}

// ReturnCode returns the model return code, or CodeOK for a nil failure.
func (f *StageFailure) ReturnCode() growth.ReturnCode {
	if f == nil {
		return growth.CodeOK
	}
	return f.Code
}
