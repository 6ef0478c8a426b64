package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jonathan/career-navigator/internal/llm"
	"github.com/jonathan/career-navigator/internal/prompts"
	"github.com/jonathan/career-navigator/internal/schemas"
)

const validationPromptKey = "guardrail-validation"

// validate runs guardrail validation over the stored profile and persists
// the outcome onto the profile's is_validated flag. An unreadable model
// response becomes an invalid report, not a run error.
func (n *steps) validate(ctx context.Context, s *State) error {
	if !s.HasUser() {
		return &InputError{Field: "user_id", Message: "validation requires a user"}
	}
	data, err := n.loadProfileData(ctx, s.UserID)
	if err != nil {
		return err
	}
	if data.Profile == nil {
		return notFound("profile", s.UserID)
	}

	payload, err := json.MarshalIndent(validationPayload(data), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode profile data: %w", err)
	}
	prompt, err := prompts.Render(prompts.ValidationFile, validationPromptKey,
		map[string]string{"ProfileData": string(payload)})
	if err != nil {
		return err
	}
	resp, err := n.llm.GenerateJSON(ctx, prompt, llm.TierStandard)
	if err != nil {
		return fmt.Errorf("guardrail model call: %w", err)
	}

	report := decodeReport(resp)
	s.ValidationReport = report
	s.IsValidated = report.IsValid
	s.ProfileID = data.Profile.ID

	data.Profile.IsValidated = report.IsValid
	if _, err := n.repos.UpdateProfile(ctx, data.Profile); err != nil {
		return err
	}
	n.logger.Info("validated profile",
		"user_id", s.UserID,
		"is_valid", report.IsValid,
		"errors", len(report.Errors),
		"completeness", report.CompletenessScore,
	)
	return nil
}

func validationPayload(d *profileData) map[string]any {
	return map[string]any{
		"profile":          d.Profile,
		"job_experiences":  d.JobExperiences,
		"courses":          d.Courses,
		"academic_records": d.AcademicRecords,
	}
}

type rawReport struct {
	IsValid bool `json:"is_valid"`
	Errors  []struct {
		Field     looseString `json:"field"`
		ErrorType looseString `json:"error_type"`
		Kind      looseString `json:"kind"`
		Message   looseString `json:"message"`
		Severity  looseString `json:"severity"`
	} `json:"errors"`
	Warnings          []json.RawMessage `json:"warnings"`
	CompletenessScore looseNumber       `json:"completeness_score"`
	Recommendations   looseStrings      `json:"recommendations"`
}

// decodeReport parses and normalizes a validation response.
func decodeReport(resp string) *ValidationReport {
	obj, err := llm.ExtractJSONObject(resp)
	if err != nil {
		return formatFailureReport(err)
	}
	if err := schemas.Validate(schemas.ValidationReport, obj); err != nil {
		return formatFailureReport(err)
	}
	var raw rawReport
	if err := json.Unmarshal([]byte(obj), &raw); err != nil {
		return formatFailureReport(err)
	}

	report := &ValidationReport{
		IsValid:         raw.IsValid,
		Errors:          make([]ValidationIssue, 0, len(raw.Errors)),
		Warnings:        make([]ValidationWarning, 0, len(raw.Warnings)),
		Recommendations: raw.Recommendations.list(),
	}
	for _, e := range raw.Errors {
		kind := string(e.Kind)
		if kind == "" {
			kind = string(e.ErrorType)
		}
		report.Errors = append(report.Errors, ValidationIssue{
			Field:    string(e.Field),
			Kind:     kind,
			Message:  string(e.Message),
			Severity: normalizeSeverity(string(e.Severity)),
		})
	}
	for _, w := range raw.Warnings {
		if warning, ok := decodeWarning(w); ok {
			report.Warnings = append(report.Warnings, warning)
		}
	}
	if score := raw.CompletenessScore.floatPtr(); score != nil {
		report.CompletenessScore = clamp01(*score)
	}
	return report
}

// decodeWarning accepts either {"field", "message"} or a bare string.
func decodeWarning(data json.RawMessage) (ValidationWarning, bool) {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		text = strings.TrimSpace(text)
		return ValidationWarning{Message: text}, text != ""
	}
	var obj struct {
		Field   looseString `json:"field"`
		Message looseString `json:"message"`
	}
	if err := json.Unmarshal(data, &obj); err != nil || obj.Message == "" {
		return ValidationWarning{}, false
	}
	return ValidationWarning{Field: string(obj.Field), Message: string(obj.Message)}, true
}

func normalizeSeverity(s string) Severity {
	switch Severity(strings.ToLower(strings.TrimSpace(s))) {
	case SeverityCritical:
		return SeverityCritical
	case SeverityInfo:
		return SeverityInfo
	default:
		return SeverityWarning
	}
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}

// formatFailureReport is the report recorded when the model response
// cannot be read.
func formatFailureReport(err error) *ValidationReport {
	return &ValidationReport{
		IsValid: false,
		Errors: []ValidationIssue{{
			Field:    "validation_response",
			Kind:     "format_error",
			Message:  fmt.Sprintf("could not parse validation response: %v", err),
			Severity: SeverityCritical,
		}},
		Warnings:        []ValidationWarning{},
		Recommendations: []string{},
	}
}
