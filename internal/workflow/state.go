// Package workflow wires extraction, draft persistence, human review,
// guardrail validation and artifact generation into one step graph.
package workflow

import (
	"github.com/google/uuid"
)

// InputKind identifies the raw input format of an ingestion run
type InputKind string

// Input kinds
const (
	InputCV             InputKind = "cv"
	InputNetworkProfile InputKind = "network_profile"
)

// Valid reports whether k is a known input kind.
func (k InputKind) Valid() bool {
	return k == InputCV || k == InputNetworkProfile
}

// ArtifactKind is the closed set of artifacts a run can generate
type ArtifactKind string

// Artifact kinds
const (
	ArtifactCV            ArtifactKind = "cv"
	ArtifactCareerPath    ArtifactKind = "career_path"
	ArtifactCareerPlan1Y  ArtifactKind = "career_plan_1y"
	ArtifactCareerPlan3Y  ArtifactKind = "career_plan_3y"
	ArtifactCareerPlan5Y  ArtifactKind = "career_plan_5y"
	ArtifactNetworkExport ArtifactKind = "network_export"
)

// ArtifactKinds lists every artifact kind in display order.
func ArtifactKinds() []ArtifactKind {
	return []ArtifactKind{
		ArtifactCV, ArtifactCareerPath,
		ArtifactCareerPlan1Y, ArtifactCareerPlan3Y, ArtifactCareerPlan5Y,
		ArtifactNetworkExport,
	}
}

// Valid reports whether k is a known artifact kind.
func (k ArtifactKind) Valid() bool {
	_, ok := artifactStrategies[k]
	return ok
}

// Decision is the human verdict at a pause node
type Decision string

// Human decisions
const (
	DecisionApprove Decision = "approve"
	DecisionEdit    Decision = "edit"
	DecisionReject  Decision = "reject"
)

// Valid reports whether d is one of approve, edit or reject.
func (d Decision) Valid() bool {
	switch d {
	case DecisionApprove, DecisionEdit, DecisionReject:
		return true
	}
	return false
}

// ErrorKind separates bad input from collaborator faults
type ErrorKind string

// Error kinds
const (
	ErrorKindInput        ErrorKind = "input"
	ErrorKindCollaborator ErrorKind = "collaborator"
)

// Severity of a validation issue
type Severity string

// Severities
const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// ValidationIssue is one problem found by guardrail validation
type ValidationIssue struct {
	Field    string   `json:"field"`
	Kind     string   `json:"kind"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// ValidationWarning is an advisory note that does not block generation
type ValidationWarning struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// ValidationReport is the outcome of one validation step
type ValidationReport struct {
	IsValid           bool                `json:"is_valid"`
	Errors            []ValidationIssue   `json:"errors"`
	Warnings          []ValidationWarning `json:"warnings"`
	CompletenessScore float64             `json:"completeness_score"`
	Recommendations   []string            `json:"recommendations"`
}

// HasCritical reports whether any error is critical.
func (r *ValidationReport) HasCritical() bool {
	if r == nil {
		return false
	}
	for _, e := range r.Errors {
		if e.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

// State is the record threaded through every node of one run.
// A nil uuid means the id has not been resolved yet.
type State struct {
	UserID    uuid.UUID `json:"user_id"`
	InputKind InputKind `json:"input_kind"`

	RawText        string `json:"raw_text,omitempty"`
	SourceURL      string `json:"source_url,omitempty"`
	CandidateEmail string `json:"candidate_email,omitempty"`
	CandidateName  string `json:"candidate_name,omitempty"`

	ParsedRecord *Bundle `json:"parsed_record,omitempty"`

	ProfileID         uuid.UUID   `json:"profile_id"`
	JobExperienceIDs  []uuid.UUID `json:"job_experience_ids"`
	CourseIDs         []uuid.UUID `json:"course_ids"`
	AcademicRecordIDs []uuid.UUID `json:"academic_record_ids"`

	IsDraft     bool `json:"is_draft"`
	IsConfirmed bool `json:"is_confirmed"`
	IsValidated bool `json:"is_validated"`

	ValidationReport *ValidationReport `json:"validation_report,omitempty"`

	ArtifactKind           ArtifactKind   `json:"artifact_kind,omitempty"`
	GeneratedCV            *string        `json:"generated_cv,omitempty"`
	GeneratedCareerPath    map[string]any `json:"generated_career_path,omitempty"`
	GeneratedCareerPlan1Y  map[string]any `json:"generated_career_plan_1y,omitempty"`
	GeneratedCareerPlan3Y  map[string]any `json:"generated_career_plan_3y,omitempty"`
	GeneratedCareerPlan5Y  map[string]any `json:"generated_career_plan_5y,omitempty"`
	GeneratedNetworkExport map[string]any `json:"generated_network_export,omitempty"`
	ArtifactID             uuid.UUID      `json:"artifact_id"`

	NeedsHumanReview bool     `json:"needs_human_review"`
	HumanDecision    Decision `json:"human_decision,omitempty"`

	Error       string    `json:"error,omitempty"`
	ErrorKind   ErrorKind `json:"error_kind,omitempty"`
	FailedStep  string    `json:"failed_step,omitempty"`
	CurrentStep string    `json:"current_step"`
	// Completed is set when a run reaches END without failing or pausing.
	Completed bool `json:"completed"`
	// ResumeAt names the pause node a resumed run starts from.
	ResumeAt string `json:"resume_at,omitempty"`
}

// NewState returns the initial state of a fresh run.
func NewState(kind InputKind) *State {
	return &State{
		InputKind:         kind,
		IsDraft:           true,
		JobExperienceIDs:  []uuid.UUID{},
		CourseIDs:         []uuid.UUID{},
		AcademicRecordIDs: []uuid.UUID{},
		CurrentStep:       "start",
	}
}

// Failed reports whether the run hit a hard stop.
func (s *State) Failed() bool {
	return s.Error != ""
}

// Paused reports whether the run is waiting for a human decision.
// A failed run is never paused.
func (s *State) Paused() bool {
	return s.NeedsHumanReview && s.Error == ""
}

// HasUser reports whether the user id has been resolved.
func (s *State) HasUser() bool {
	return s.UserID != uuid.Nil
}

// pause parks the run at node until a decision arrives.
func (s *State) pause(node string) {
	s.NeedsHumanReview = true
	s.ResumeAt = node
}
