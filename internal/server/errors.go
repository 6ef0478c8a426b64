// Package server provides the HTTP REST API for the career navigator.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/career-navigator/internal/workflow"
)

// ErrEmailAlreadyExists indicates email is already registered
type ErrEmailAlreadyExists struct {
	Email string
}

func (e *ErrEmailAlreadyExists) Error() string {
	return fmt.Sprintf("email already registered: %s", e.Email)
}

// ErrUsernameTaken indicates the requested username belongs to another account
type ErrUsernameTaken struct {
	Username string
}

func (e *ErrUsernameTaken) Error() string {
	return fmt.Sprintf("username already taken: %s", e.Username)
}

// ErrInvalidCredentials indicates invalid login credentials
type ErrInvalidCredentials struct{}

func (e *ErrInvalidCredentials) Error() string {
	return "invalid email or password"
}

// ErrForbidden indicates an authenticated caller acting on another user's data
type ErrForbidden struct {
	Resource string
}

func (e *ErrForbidden) Error() string {
	return fmt.Sprintf("not allowed to access %s", e.Resource)
}

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		inputErr    *workflow.InputError
		notFoundErr *workflow.NotFoundError
		ruleErr     *workflow.BusinessRuleError
		runErr      *workflow.RunError
		validErr    *ErrValidation
		emailErr    *ErrEmailAlreadyExists
		usernameErr *ErrUsernameTaken
		credErr     *ErrInvalidCredentials
		forbidErr   *ErrForbidden
	)
	switch {
	case errors.As(err, &inputErr), errors.As(err, &validErr):
		return http.StatusBadRequest
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound
	case errors.As(err, &ruleErr), errors.As(err, &emailErr), errors.As(err, &usernameErr):
		return http.StatusConflict
	case errors.As(err, &runErr):
		if runErr.Kind == workflow.ErrorKindInput {
			return http.StatusUnprocessableEntity
		}
		return http.StatusBadGateway
	case errors.As(err, &credErr):
		return http.StatusUnauthorized
	case errors.As(err, &forbidErr):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// errorBody is the JSON shape of every error response
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
	Step  string `json:"step,omitempty"`
	Field string `json:"field,omitempty"`
}

func errorBodyOf(err error, status int) errorBody {
	body := errorBody{Error: err.Error()}

	var (
		inputErr *workflow.InputError
		ruleErr  *workflow.BusinessRuleError
		runErr   *workflow.RunError
		validErr *ErrValidation
	)
	switch {
	case errors.As(err, &inputErr):
		body.Code, body.Field = "invalid_input", inputErr.Field
	case errors.As(err, &validErr):
		body.Code, body.Field = "invalid_input", validErr.Field
	case errors.As(err, &ruleErr):
		body.Code = ruleErr.Rule
	case errors.As(err, &runErr):
		body.Code, body.Step = "run_failed", runErr.Step
	}

	// Internal failures are not echoed to clients.
	if status == http.StatusInternalServerError {
		body = errorBody{Error: "internal server error"}
	}
	return body
}
