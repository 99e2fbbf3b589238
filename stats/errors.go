package stats

import (
	"fmt"

	"github.com/brettboylen/reddit-wrapped/models"
)

// Error is returned by the collector when an analysis cannot be produced
type Error struct {
	Code    models.ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code models.ErrorCode, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}
