package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/jonathan/career-navigator/internal/config"
	"github.com/jonathan/career-navigator/internal/db"
	"github.com/jonathan/career-navigator/internal/logging"
	"github.com/jonathan/career-navigator/internal/server/middleware"
	"github.com/jonathan/career-navigator/internal/server/ratelimit"
	"github.com/jonathan/career-navigator/internal/workflow"
)

// WorkflowService is the workflow facade the HTTP layer drives.
// *workflow.Service satisfies it.
type WorkflowService interface {
	Ingest(ctx context.Context, req workflow.IngestRequest) (*workflow.IngestResult, error)
	Confirm(ctx context.Context, userID uuid.UUID) (*workflow.ConfirmResult, error)
	Validate(ctx context.Context, userID uuid.UUID) (*workflow.ValidationReport, error)
	Generate(ctx context.Context, userID uuid.UUID, kind workflow.ArtifactKind) (*db.GeneratedProduct, error)
	GenerateForReview(ctx context.Context, userID uuid.UUID, kind workflow.ArtifactKind) (*workflow.RunStatus, error)
	GetStatus(ctx context.Context, runID string) (*workflow.RunStatus, error)
	Resume(ctx context.Context, runID string, decision workflow.Decision) (*workflow.RunStatus, error)
	Diagram() string
}

var _ WorkflowService = (*workflow.Service)(nil)

// Store is the persistence the REST handlers read and edit directly.
// *db.DB satisfies it.
type Store interface {
	CreateUser(ctx context.Context, u *db.User) (*db.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*db.User, error)
	GetUserByEmail(ctx context.Context, email string) (*db.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	UpdateUser(ctx context.Context, u *db.User) (*db.User, error)

	GetProfileByUserID(ctx context.Context, userID uuid.UUID) (*db.Profile, error)
	UpdateProfile(ctx context.Context, p *db.Profile) (*db.Profile, error)

	CreateJobExperience(ctx context.Context, j *db.JobExperience) (*db.JobExperience, error)
	GetJobExperienceByID(ctx context.Context, id uuid.UUID) (*db.JobExperience, error)
	ListJobExperiencesByUserID(ctx context.Context, userID uuid.UUID) ([]db.JobExperience, error)
	UpdateJobExperience(ctx context.Context, j *db.JobExperience) (*db.JobExperience, error)
	DeleteJobExperience(ctx context.Context, id uuid.UUID) error

	CreateCourse(ctx context.Context, c *db.Course) (*db.Course, error)
	GetCourseByID(ctx context.Context, id uuid.UUID) (*db.Course, error)
	ListCoursesByUserID(ctx context.Context, userID uuid.UUID) ([]db.Course, error)
	UpdateCourse(ctx context.Context, c *db.Course) (*db.Course, error)
	DeleteCourse(ctx context.Context, id uuid.UUID) error

	CreateAcademicRecord(ctx context.Context, a *db.AcademicRecord) (*db.AcademicRecord, error)
	GetAcademicRecordByID(ctx context.Context, id uuid.UUID) (*db.AcademicRecord, error)
	ListAcademicRecordsByUserID(ctx context.Context, userID uuid.UUID) ([]db.AcademicRecord, error)
	UpdateAcademicRecord(ctx context.Context, a *db.AcademicRecord) (*db.AcademicRecord, error)
	DeleteAcademicRecord(ctx context.Context, id uuid.UUID) error

	GetProductByID(ctx context.Context, id uuid.UUID) (*db.GeneratedProduct, error)
	ListProductsByUserID(ctx context.Context, userID uuid.UUID, productType db.ProductType) ([]db.GeneratedProduct, error)

	Ping(ctx context.Context) error
}

var _ Store = (*db.DB)(nil)

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	handler     http.Handler
	workflow    WorkflowService
	store       Store
	rateLimiter *ratelimit.Limiter
	jwtService  *JWTService
	authHandler *AuthHandler
	validator   *validator.Validate
	logger      *slog.Logger
}

// Config holds server configuration. A nil JWT disables authentication;
// a nil RateLimit uses ratelimit.DefaultConfig.
type Config struct {
	Port      int
	Workflow  WorkflowService
	Store     Store
	JWT       *config.JWTConfig
	Password  *config.PasswordConfig
	RateLimit *ratelimit.Config
	Logger    *slog.Logger
}

// New creates a new server instance
func New(cfg Config) (*Server, error) {
	if cfg.Workflow == nil {
		return nil, errors.New("server: workflow service is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("server: store is required")
	}

	s := &Server{
		workflow:  cfg.Workflow,
		store:     cfg.Store,
		validator: validator.New(),
		logger:    cfg.Logger,
	}
	if s.logger == nil {
		s.logger = logging.Logger()
	}

	rateConfig := cfg.RateLimit
	if rateConfig == nil {
		rateConfig = ratelimit.DefaultConfig()
	}
	s.rateLimiter = ratelimit.NewLimiter(rateConfig)

	if cfg.JWT != nil {
		passwordConfig := cfg.Password
		if passwordConfig == nil {
			var err error
			passwordConfig, err = config.NewPasswordConfig(bcrypt.DefaultCost, "")
			if err != nil {
				return nil, fmt.Errorf("failed to create password config: %w", err)
			}
		}
		s.jwtService = NewJWTService(cfg.JWT)
		s.authHandler = NewAuthHandler(NewUserService(cfg.Store, passwordConfig), s.jwtService)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	// Authentication endpoints
	if s.authHandler != nil {
		mux.HandleFunc("POST /auth/register", s.authHandler.Register)
		mux.HandleFunc("POST /auth/login", s.authHandler.Login)
		mux.Handle("GET /auth/me", s.protect(s.handleMe))
		mux.Handle("PUT /users/{user_id}/password", s.protect(s.handleUpdatePassword))
	}

	// Workflow endpoints
	mux.Handle("POST /workflow/ingest", s.protect(s.handleIngest))
	mux.Handle("POST /workflow/users/{user_id}/confirm", s.protect(s.handleConfirm))
	mux.Handle("POST /workflow/users/{user_id}/validate", s.protect(s.handleValidate))
	mux.Handle("POST /workflow/users/{user_id}/generate", s.protect(s.handleGenerate))
	mux.Handle("GET /workflow/runs/{run_id}", s.protect(s.handleGetRun))
	mux.Handle("POST /workflow/runs/{run_id}/resume", s.protect(s.handleResume))
	mux.HandleFunc("GET /workflow/graph", s.handleGraph)

	// User and profile endpoints
	mux.Handle("GET /users/{user_id}", s.protect(s.handleGetUser))
	mux.Handle("GET /users/{user_id}/profile", s.protect(s.handleGetProfile))
	mux.Handle("PUT /users/{user_id}/profile", s.protect(s.handleUpdateProfile))

	// Job experience endpoints
	mux.Handle("GET /users/{user_id}/jobs", s.protect(s.handleListJobs))
	mux.Handle("POST /users/{user_id}/jobs", s.protect(s.handleCreateJob))
	mux.Handle("PUT /users/{user_id}/jobs/{id}", s.protect(s.handleUpdateJob))
	mux.Handle("DELETE /users/{user_id}/jobs/{id}", s.protect(s.handleDeleteJob))

	// Course endpoints
	mux.Handle("GET /users/{user_id}/courses", s.protect(s.handleListCourses))
	mux.Handle("POST /users/{user_id}/courses", s.protect(s.handleCreateCourse))
	mux.Handle("PUT /users/{user_id}/courses/{id}", s.protect(s.handleUpdateCourse))
	mux.Handle("DELETE /users/{user_id}/courses/{id}", s.protect(s.handleDeleteCourse))

	// Academic record endpoints
	mux.Handle("GET /users/{user_id}/academic-records", s.protect(s.handleListAcademicRecords))
	mux.Handle("POST /users/{user_id}/academic-records", s.protect(s.handleCreateAcademicRecord))
	mux.Handle("PUT /users/{user_id}/academic-records/{id}", s.protect(s.handleUpdateAcademicRecord))
	mux.Handle("DELETE /users/{user_id}/academic-records/{id}", s.protect(s.handleDeleteAcademicRecord))

	// Generated product endpoints
	mux.Handle("GET /users/{user_id}/products", s.protect(s.handleListProducts))
	mux.Handle("GET /users/{user_id}/products/{id}", s.protect(s.handleGetProduct))

	s.handler = s.withRecover(s.withLogging(s.withCORS(s.withRateLimit(mux))))
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // Generation runs call the LLM
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the fully wrapped request handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// AuthEnabled reports whether bearer tokens are required.
func (s *Server) AuthEnabled() bool {
	return s.jwtService != nil
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", s.httpServer.Addr, "auth", s.AuthEnabled())
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		s.rateLimiter.Stop()
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := s.httpServer.Shutdown(shutdownCtx)
	s.rateLimiter.Stop()
	if err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// protect requires a valid bearer token when authentication is enabled.
func (s *Server) protect(h http.HandlerFunc) http.Handler {
	if s.jwtService == nil {
		return h
	}
	return middleware.AuthMiddleware(s.jwtService.AsTokenValidator())(h)
}

// authorizeUser rejects callers whose token belongs to a different user.
func (s *Server) authorizeUser(r *http.Request, userID uuid.UUID) error {
	if s.jwtService == nil {
		return nil
	}
	callerID, err := middleware.GetUserID(r)
	if err != nil {
		return &ErrInvalidCredentials{}
	}
	if callerID != userID {
		return &ErrForbidden{Resource: "user " + userID.String()}
	}
	return nil
}

// callerID returns the authenticated user, or uuid.Nil when auth is disabled.
func (s *Server) callerID(r *http.Request) uuid.UUID {
	if s.jwtService == nil {
		return uuid.Nil
	}
	id, err := middleware.GetUserID(r)
	if err != nil {
		return uuid.Nil
	}
	return id
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.rateLimiter.Allow(s.extractClientID(r), r.URL.Path, r.Method)
		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, r, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

// withRecover turns handler panics into 500 responses
func (s *Server) withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("handler panic", "method", r.Method, "path", r.URL.Path, "panic", fmt.Sprint(rec))
				s.errorResponse(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		s.logger.Warn("health check failed", "error", err)
		s.jsonResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "database": "unreachable"})
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	if err := writeJSON(w, status, data); err != nil {
		s.logger.Error("failed to encode JSON response", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, errorBody{Error: message})
}

// writeError maps err onto its status code and JSON body
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	s.jsonResponse(w, status, errorBodyOf(err, status))
}

// decodeJSON reads a JSON request body into dst
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<20))
	if err := dec.Decode(dst); err != nil {
		return &ErrValidation{Field: "body", Message: "invalid JSON request body"}
	}
	return nil
}

// pathUUID parses a UUID path value
func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, &ErrValidation{Field: name, Message: "must be a UUID"}
	}
	return id, nil
}

// extractClientID extracts the client identifier from the request.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, r *http.Request, info ratelimit.Info) {
	response := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}

	if info.RetryAfter > 0 {
		seconds := int(info.RetryAfter.Seconds())
		if seconds < 1 {
			seconds = 1
		}
		response["retry_after"] = seconds
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
	}

	s.logger.Warn("rate limit exceeded", "path", r.URL.Path, "limit", info.Limit, "reset", info.ResetTime.Format(time.RFC3339))
	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
