package route

import (
	"errors"
	"fmt"

	"github.com/timvw/pane-relay/internal/model"
)

// Error is a routing failure tagged with the outcome reason reported to
// consumers.
type Error struct {
	Reason  model.Reason
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// fail builds a tagged routing error.
func fail(reason model.Reason, err error, format string, args ...any) *Error {
	return &Error{
		Reason:  reason,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// resultOf converts a routing error into the structured consumer result.
// Non-tagged errors are reported as delivery failures.
func resultOf(err error) model.Result {
	var re *Error
	if errors.As(err, &re) {
		return model.Fail(re.Reason, re.Message)
	}
	return model.Fail(model.ReasonDeliveryFailed, err.Error())
}
