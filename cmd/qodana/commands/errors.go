package commands

import (
	"fmt"

	"github.com/Sumatoshi-tech/qodana/pkg/exitstatus"
)

// ExitError carries the exit status of a finished command. Err is nil for
// threshold violations, whose description has already been printed.
type ExitError struct {
	Status exitstatus.Status
	Err    error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}

	return fmt.Sprintf("exit status %d: %s", e.Status.Code, e.Status.Description)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func startupError(err error) *ExitError {
	return &ExitError{
		Status: exitstatus.Status{Code: exitstatus.StartupError, Description: err.Error()},
		Err:    err,
	}
}
