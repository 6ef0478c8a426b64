package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/jonathan/career-navigator/internal/db"
	"github.com/jonathan/career-navigator/internal/llm"
	"github.com/jonathan/career-navigator/internal/logging"
)

// TextFetcher turns a profile URL into plain text.
type TextFetcher interface {
	FetchText(ctx context.Context, url string) (string, error)
}

// ServiceConfig holds optional collaborators of a Service
type ServiceConfig struct {
	Fetcher  TextFetcher
	Logger   *slog.Logger
	Tracer   trace.Tracer
	MaxSteps int
}

// Service translates caller intents into graph runs.
type Service struct {
	repos    Repositories
	runnable *Runnable
	store    *CheckpointStore
	fetcher  TextFetcher
	validate *validator.Validate
	logger   *slog.Logger
}

// NewService compiles the workflow graph over the given collaborators.
func NewService(repos Repositories, client llm.Client, kv KV, cfg ServiceConfig) (*Service, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Logger()
	}
	store := NewCheckpointStore(kv)

	opts := []Option{WithCheckpointer(store), WithLogger(logger), WithMaxSteps(cfg.MaxSteps)}
	if cfg.Tracer != nil {
		opts = append(opts, WithTracer(cfg.Tracer))
	}
	runnable, err := BuildGraph(repos, client, logger).Compile(opts...)
	if err != nil {
		return nil, err
	}

	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	return &Service{
		repos:    repos,
		runnable: runnable,
		store:    store,
		fetcher:  cfg.Fetcher,
		validate: v,
		logger:   logger,
	}, nil
}

// Diagram renders the workflow graph as a Mermaid flowchart.
func (svc *Service) Diagram() string {
	return svc.runnable.Mermaid()
}

// IngestRequest is raw profile content to extract into a draft.
type IngestRequest struct {
	InputKind InputKind `json:"input_kind" validate:"required,oneof=cv network_profile"`
	RawText   string    `json:"raw_text,omitempty"`
	SourceURL string    `json:"source_url,omitempty" validate:"omitempty,url"`
	UserID    uuid.UUID `json:"user_id,omitempty"`
	Email     string    `json:"email,omitempty" validate:"omitempty,email"`
	Name      string    `json:"name,omitempty"`
}

// IngestResult reports the draft created by an ingestion run
type IngestResult struct {
	RunID             string      `json:"run_id"`
	UserID            uuid.UUID   `json:"user_id"`
	ProfileID         uuid.UUID   `json:"profile_id"`
	JobExperienceIDs  []uuid.UUID `json:"job_experience_ids"`
	CourseIDs         []uuid.UUID `json:"course_ids"`
	AcademicRecordIDs []uuid.UUID `json:"academic_record_ids"`
	IsDraft           bool        `json:"is_draft"`
	NeedsHumanReview  bool        `json:"needs_human_review"`
}

// Ingest extracts raw content into a draft profile and pauses for review.
// A network profile given only as a URL is fetched first.
func (svc *Service) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	if err := svc.validate.Struct(req); err != nil {
		return nil, inputErrorFrom(err)
	}
	if req.UserID != uuid.Nil {
		if err := svc.requireUser(ctx, req.UserID); err != nil {
			return nil, err
		}
	}

	raw := req.RawText
	if strings.TrimSpace(raw) == "" && req.SourceURL != "" && req.InputKind == InputNetworkProfile {
		if svc.fetcher == nil {
			return nil, &InputError{Field: "source_url", Message: "URL ingestion is not configured"}
		}
		text, err := svc.fetcher.FetchText(ctx, req.SourceURL)
		if err != nil {
			return nil, &RunError{Step: "fetch", Kind: ErrorKindCollaborator, Message: fmt.Sprintf("fetch failed: %v", err)}
		}
		raw = text
	}
	if strings.TrimSpace(raw) == "" {
		return nil, &InputError{Field: "raw_text", Message: "raw text or a network profile URL is required"}
	}

	key := RunKey(req.UserID, raw)
	unlock := svc.store.Lock(key)
	defer unlock()

	s := NewState(req.InputKind)
	s.UserID = req.UserID
	s.RawText = raw
	s.SourceURL = req.SourceURL
	s.CandidateEmail = req.Email
	s.CandidateName = req.Name

	final := svc.runnable.Invoke(ctx, s, key)
	if err := runError(final); err != nil {
		return nil, err
	}
	runID := svc.saveAlias(ctx, key, final)

	return &IngestResult{
		RunID:             runID,
		UserID:            final.UserID,
		ProfileID:         final.ProfileID,
		JobExperienceIDs:  final.JobExperienceIDs,
		CourseIDs:         final.CourseIDs,
		AcademicRecordIDs: final.AcademicRecordIDs,
		IsDraft:           final.IsDraft,
		NeedsHumanReview:  final.NeedsHumanReview,
	}, nil
}

// saveAlias stores a run that resolved its user under the user key too,
// and returns the key later calls should use.
func (svc *Service) saveAlias(ctx context.Context, key string, s *State) string {
	if !s.HasUser() {
		return key
	}
	userKey := RunKey(s.UserID, "")
	if userKey == key {
		return key
	}
	unlock := svc.store.Lock(userKey)
	defer unlock()
	if err := svc.store.Save(ctx, userKey, s); err != nil {
		svc.logger.Error("failed to save checkpoint alias", "run_id", key, "alias", userKey, "error", err)
		return key
	}
	return userKey
}

// ConfirmResult is returned when a draft is confirmed
type ConfirmResult struct {
	ProfileID uuid.UUID `json:"profile_id"`
	IsDraft   bool      `json:"is_draft"`
	Message   string    `json:"message"`
}

// Confirm marks the user's draft as confirmed and ready for validation.
func (svc *Service) Confirm(ctx context.Context, userID uuid.UUID) (*ConfirmResult, error) {
	profile, err := svc.requireProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile.IsDraft = false
	updated, err := svc.repos.UpdateProfile(ctx, profile)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, notFound("profile", userID)
	}

	key := RunKey(userID, "")
	unlock := svc.store.Lock(key)
	defer unlock()
	s, err := svc.store.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	if s != nil && !s.Failed() {
		s.Completed = false
		s.IsDraft = false
		s.IsConfirmed = true
		s.NeedsHumanReview = false
		s.HumanDecision = DecisionApprove
		s.ResumeAt = ""
		if err := svc.store.Save(ctx, key, s); err != nil {
			return nil, err
		}
	}

	return &ConfirmResult{
		ProfileID: updated.ID,
		IsDraft:   false,
		Message:   "Draft confirmed, ready for validation",
	}, nil
}

// Validate runs guardrail validation on the user's stored profile.
func (svc *Service) Validate(ctx context.Context, userID uuid.UUID) (*ValidationReport, error) {
	profile, err := svc.requireProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	key := RunKey(userID, "")
	unlock := svc.store.Lock(key)
	defer unlock()

	s := NewState(inputKindOf(profile))
	s.UserID = userID
	s.IsDraft = profile.IsDraft
	s.IsConfirmed = true
	s.HumanDecision = DecisionApprove

	final := svc.runnable.Invoke(ctx, s, key)
	if err := runError(final); err != nil {
		return nil, err
	}
	if final.ValidationReport == nil {
		return nil, &RunError{Step: NodeValidate, Kind: ErrorKindCollaborator, Message: "validation produced no report"}
	}
	return final.ValidationReport, nil
}

// Generate creates and persists one artifact for a validated profile.
func (svc *Service) Generate(ctx context.Context, userID uuid.UUID, kind ArtifactKind) (*db.GeneratedProduct, error) {
	final, err := svc.generate(ctx, userID, kind, DecisionApprove)
	if err != nil {
		return nil, err
	}
	if final.ArtifactID == uuid.Nil {
		return nil, &RunError{Step: NodeSaveProduct, Kind: ErrorKindCollaborator, Message: "generation finished without a product"}
	}
	product, err := svc.repos.GetProductByID(ctx, final.ArtifactID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, notFound("product", final.ArtifactID)
	}
	return product, nil
}

// GenerateForReview generates an artifact and pauses before persisting it.
// Resume with approve stores it.
func (svc *Service) GenerateForReview(ctx context.Context, userID uuid.UUID, kind ArtifactKind) (*RunStatus, error) {
	final, err := svc.generate(ctx, userID, kind, "")
	if err != nil {
		return nil, err
	}
	return statusOf(RunKey(userID, ""), final), nil
}

func (svc *Service) generate(ctx context.Context, userID uuid.UUID, kind ArtifactKind, decision Decision) (*State, error) {
	if !kind.Valid() {
		return nil, &InputError{Field: "artifact_kind", Message: fmt.Sprintf("unknown artifact kind %q", kind)}
	}
	profile, err := svc.requireProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !profile.IsValidated {
		return nil, &BusinessRuleError{Rule: RuleProfileNotValidated, Message: "profile must be validated before generating artifacts"}
	}

	key := RunKey(userID, "")
	unlock := svc.store.Lock(key)
	defer unlock()

	s := NewState(inputKindOf(profile))
	s.UserID = userID
	s.IsDraft = profile.IsDraft
	s.IsConfirmed = true
	s.IsValidated = true
	s.ArtifactKind = kind
	s.HumanDecision = decision

	final := svc.runnable.Invoke(ctx, s, key)
	if err := runError(final); err != nil {
		return nil, err
	}
	return final, nil
}

// Run status values
const (
	StatusNotStarted     = "not_started"
	StatusInProgress     = "in_progress"
	StatusAwaitingReview = "awaiting_review"
	StatusFailed         = "failed"
	StatusCompleted      = "completed"
)

// RunStatus is the caller-facing projection of a checkpoint
type RunStatus struct {
	RunID            string            `json:"run_id"`
	Status           string            `json:"status"`
	CurrentStep      string            `json:"current_step,omitempty"`
	ResumeAt         string            `json:"resume_at,omitempty"`
	NeedsHumanReview bool              `json:"needs_human_review"`
	IsDraft          bool              `json:"is_draft"`
	IsConfirmed      bool              `json:"is_confirmed"`
	IsValidated      bool              `json:"is_validated"`
	ArtifactKind     ArtifactKind      `json:"artifact_kind,omitempty"`
	ArtifactID       *uuid.UUID        `json:"artifact_id,omitempty"`
	ValidationReport *ValidationReport `json:"validation_report,omitempty"`
	Error            string            `json:"error,omitempty"`
}

func statusOf(runID string, s *State) *RunStatus {
	st := &RunStatus{
		RunID:            runID,
		Status:           StatusInProgress,
		CurrentStep:      s.CurrentStep,
		ResumeAt:         s.ResumeAt,
		NeedsHumanReview: s.NeedsHumanReview,
		IsDraft:          s.IsDraft,
		IsConfirmed:      s.IsConfirmed,
		IsValidated:      s.IsValidated,
		ArtifactKind:     s.ArtifactKind,
		ValidationReport: s.ValidationReport,
		Error:            s.Error,
	}
	if s.ArtifactID != uuid.Nil {
		id := s.ArtifactID
		st.ArtifactID = &id
	}
	switch {
	case s.Failed():
		st.Status = StatusFailed
	case s.Paused():
		st.Status = StatusAwaitingReview
	case s.Completed:
		st.Status = StatusCompleted
	}
	return st
}

// GetStatus projects the last checkpoint of a run. A user run without a
// checkpoint falls back to the stored profile flags.
func (svc *Service) GetStatus(ctx context.Context, runID string) (*RunStatus, error) {
	if err := ParseRunKey(runID); err != nil {
		return nil, err
	}
	s, err := svc.store.Load(ctx, runID)
	if err != nil {
		return nil, err
	}
	if s != nil {
		return statusOf(runID, s), nil
	}

	notStarted := &RunStatus{RunID: runID, Status: StatusNotStarted}
	userID, ok := userOfKey(runID)
	if !ok {
		return notStarted, nil
	}
	profile, err := svc.repos.GetProfileByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return notStarted, nil
	}
	return &RunStatus{
		RunID:       runID,
		Status:      StatusCompleted,
		IsDraft:     profile.IsDraft,
		IsConfirmed: !profile.IsDraft,
		IsValidated: profile.IsValidated,
	}, nil
}

// Resume applies a human decision to a paused run and continues it from
// the node it paused at.
func (svc *Service) Resume(ctx context.Context, runID string, decision Decision) (*RunStatus, error) {
	if err := ParseRunKey(runID); err != nil {
		return nil, err
	}
	if !decision.Valid() {
		return nil, &InputError{Field: "decision", Message: fmt.Sprintf("unknown decision %q", decision)}
	}

	unlock := svc.store.Lock(runID)
	defer unlock()

	s, err := svc.store.Load(ctx, runID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, &NotFoundError{Entity: "run", ID: runID}
	}
	if s.Failed() {
		return nil, &BusinessRuleError{Rule: RuleRunFailed, Message: "run ended with an error and cannot be resumed"}
	}
	if !s.Paused() {
		return nil, &BusinessRuleError{Rule: RuleRunNotPaused, Message: "run is not waiting for review"}
	}

	s.HumanDecision = decision
	final := svc.runnable.Resume(ctx, s, runID)
	if err := runError(final); err != nil {
		return nil, err
	}
	return statusOf(svc.saveAlias(ctx, runID, final), final), nil
}

func (svc *Service) requireUser(ctx context.Context, userID uuid.UUID) error {
	u, err := svc.repos.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if u == nil {
		return notFound("user", userID)
	}
	return nil
}

func (svc *Service) requireProfile(ctx context.Context, userID uuid.UUID) (*db.Profile, error) {
	if err := svc.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	profile, err := svc.repos.GetProfileByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, notFound("profile", userID)
	}
	return profile, nil
}

func inputKindOf(p *db.Profile) InputKind {
	if p.CVContent == "" && p.NetworkProfileData != "" {
		return InputNetworkProfile
	}
	return InputCV
}

func userOfKey(key string) (uuid.UUID, bool) {
	if !strings.HasPrefix(key, userKeyPrefix) {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(strings.TrimPrefix(key, userKeyPrefix))
	return id, err == nil
}

// inputErrorFrom converts validator errors into an InputError naming the
// first failing field.
func inputErrorFrom(err error) error {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		return &InputError{Field: ve[0].Field(), Message: fmt.Sprintf("failed %q check", ve[0].Tag())}
	}
	return &InputError{Message: err.Error()}
}
