package workflow

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// InputError indicates a caller supplied missing or malformed input
type InputError struct {
	Field   string
	Message string
}

func (e *InputError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid input %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("invalid input: %s", e.Message)
}

// NotFoundError indicates a referenced entity does not exist
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

func notFound(entity string, id uuid.UUID) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id.String()}
}

// BusinessRuleError indicates a request that is well-formed but not allowed
// in the current lifecycle state. It is raised before any node runs.
type BusinessRuleError struct {
	Rule    string
	Message string
}

func (e *BusinessRuleError) Error() string {
	return fmt.Sprintf("%s: %s", e.Rule, e.Message)
}

// Business rule identifiers
const (
	RuleProfileNotValidated = "profile_not_validated"
	RuleRunNotPaused        = "run_not_paused"
	RuleRunFailed           = "run_failed"
)

// RunError reports a run that ended at the error terminal
type RunError struct {
	Step    string
	Kind    ErrorKind
	Message string
}

func (e *RunError) Error() string {
	return e.Message
}

// runError converts a failed terminal state into a RunError, or nil.
func runError(s *State) error {
	if !s.Failed() {
		return nil
	}
	kind := s.ErrorKind
	if kind == "" {
		kind = ErrorKindCollaborator
	}
	return &RunError{Step: s.FailedStep, Kind: kind, Message: s.Error}
}

// stepFailure carries the node that produced a step error.
type stepFailure struct {
	step string
	err  error
}

func (e *stepFailure) Error() string {
	return fmt.Sprintf("%s failed: %v", e.step, e.err)
}

func (e *stepFailure) Unwrap() error {
	return e.err
}

// ErrRejected is recorded when a reviewer rejects the draft.
var ErrRejected = errors.New("user rejected the draft data")

// classify reports the error kind of a step failure.
func classify(err error) ErrorKind {
	var (
		inputErr    *InputError
		notFoundErr *NotFoundError
		ruleErr     *BusinessRuleError
	)
	switch {
	case errors.Is(err, ErrRejected),
		errors.As(err, &inputErr),
		errors.As(err, &notFoundErr),
		errors.As(err, &ruleErr):
		return ErrorKindInput
	}
	return ErrorKindCollaborator
}
