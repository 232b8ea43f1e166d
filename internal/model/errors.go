package model

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrUnplaceableWorkload  = errors.New("unplaceable workload")
)

// UnplaceableError reports a workload whose request does not fit on an
// empty node.
type UnplaceableError struct {
	Workload Workload
	Spec     NodeSpec
}

func (e *UnplaceableError) Error() string {
	free := e.Spec.Capacity().Sub(e.Spec.SystemRequest)
	return fmt.Sprintf("%s: %s workload requests cpu=%g mem=%g but an empty node has cpu=%g mem=%g free",
		ErrUnplaceableWorkload, e.Workload.Class,
		e.Workload.Request.CPU, e.Workload.Request.Mem, free.CPU, free.Mem)
}

func (e *UnplaceableError) Unwrap() error {
	return ErrUnplaceableWorkload
}

// Invalidf builds an ErrInvalidConfiguration with a formatted detail.
func Invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfiguration, fmt.Sprintf(format, args...))
}
