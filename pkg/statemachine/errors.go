package statemachine

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyState        = errors.New("statemachine: state cannot be empty")
	ErrInvalidTransition = errors.New("statemachine: transition from and to cannot be empty")
	ErrNotAllowed        = errors.New("statemachine: transition not allowed")
)

// TransitionError reports a move the table does not allow.
type TransitionError struct {
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("no transition available from state '%s' to '%s'", e.From, e.To)
}

// Is lets errors.Is(err, ErrNotAllowed) match any TransitionError.
func (e *TransitionError) Is(target error) bool {
	return target == ErrNotAllowed
}

// IsTransitionError reports whether err carries a *TransitionError.
func IsTransitionError(err error) bool {
	var e *TransitionError
	return errors.As(err, &e)
}
