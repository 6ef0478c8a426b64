package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/career-navigator/internal/db"
	"github.com/jonathan/career-navigator/internal/workflow"
)

// LoginResponse is returned by register and login
type LoginResponse struct {
	User      *db.User  `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UpdatePasswordRequest is the body of PUT /users/{user_id}/password
type UpdatePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
}

// AuthHandler handles authentication-related HTTP requests.
type AuthHandler struct {
	userService *UserService
	jwtService  *JWTService
	validator   *validator.Validate
}

// NewAuthHandler creates a new AuthHandler with the given dependencies.
func NewAuthHandler(userService *UserService, jwtService *JWTService) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		jwtService:  jwtService,
		validator:   validator.New(),
	}
}

// Register handles user registration requests.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.fail(w, validationError(err))
		return
	}

	user, err := h.userService.Register(r.Context(), &req)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.issueToken(w, http.StatusCreated, user)
}

// Login handles user login requests.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.fail(w, validationError(err))
		return
	}

	user, err := h.userService.Login(r.Context(), &req)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.issueToken(w, http.StatusOK, user)
}

func (h *AuthHandler) issueToken(w http.ResponseWriter, status int, user *db.User) {
	token, expiresAt, err := h.jwtService.GenerateToken(user.ID)
	if err != nil {
		h.fail(w, fmt.Errorf("failed to generate token: %w", err))
		return
	}
	_ = writeJSON(w, status, LoginResponse{User: user, Token: token, ExpiresAt: expiresAt})
}

func (h *AuthHandler) fail(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	_ = writeJSON(w, status, errorBodyOf(err, status))
}

// handleUpdatePassword handles password update requests for the token owner.
func (s *Server) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUUID(r, "user_id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.authorizeUser(r, userID); err != nil {
		s.writeError(w, r, err)
		return
	}

	var req UpdatePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.validator.Struct(req); err != nil {
		s.writeError(w, r, validationError(err))
		return
	}

	if err := s.authHandler.userService.UpdatePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"message": "Password updated successfully"})
}

// handleMe returns the user the bearer token belongs to.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	userID := s.callerID(r)
	user, err := s.store.GetUserByID(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if user == nil {
		s.writeError(w, r, &workflow.NotFoundError{Entity: "user", ID: userID.String()})
		return
	}
	s.jsonResponse(w, http.StatusOK, user)
}

// validationError converts validator errors into an ErrValidation naming the first failing field.
func validationError(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		ve := validationErrors[0]
		return &ErrValidation{Field: ve.Field(), Message: fmt.Sprintf("failed %q check", ve.Tag())}
	}
	return &ErrValidation{Field: "body", Message: "invalid request"}
}
