package service

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrUnavailable     = errors.New("work item is not available")
	ErrForbidden       = errors.New("not allowed")
	ErrAlreadyTerminal = errors.New("work item already completed")
	ErrAlreadyOpen     = errors.New("attendance already open for today")
	ErrNoOpenRecord    = errors.New("no open attendance record")
	ErrDuplicateCode   = errors.New("could not allocate a unique access code")
	ErrNotMember       = errors.New("not a member of this site")
)

// ValidationError is a rejected user input. MessageID names the localized
// explanation shown when re-prompting.
type ValidationError struct {
	Field     string
	MessageID string
	Data      map[string]any
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.MessageID)
}

func invalid(field, messageID string, data ...map[string]any) *ValidationError {
	e := &ValidationError{Field: field, MessageID: messageID}
	if len(data) > 0 {
		e.Data = data[0]
	}
	return e
}

// AsValidation unwraps err into a ValidationError when it is one.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
