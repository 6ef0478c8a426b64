package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonathan/career-navigator/internal/llm"
	"github.com/jonathan/career-navigator/internal/prompts"
	"github.com/jonathan/career-navigator/internal/schemas"
)

var extractionPrompts = map[InputKind]string{
	InputCV:             "extract-cv",
	InputNetworkProfile: "extract-network-profile",
}

// parse extracts a Bundle from the raw text. It skips extraction for a
// generation request on a validated profile and for a re-validation of a
// confirmed draft with no new text.
func (n *steps) parse(ctx context.Context, s *State) error {
	if s.IsValidated && s.ArtifactKind != "" && s.HasUser() {
		profile, err := n.repos.GetProfileByUserID(ctx, s.UserID)
		if err != nil {
			return err
		}
		if profile != nil && profile.IsValidated {
			s.ParsedRecord = nil
			return nil
		}
	}
	if s.IsConfirmed && strings.TrimSpace(s.RawText) == "" {
		s.ParsedRecord = nil
		return nil
	}

	if strings.TrimSpace(s.RawText) == "" {
		return &InputError{Field: "raw_text", Message: "no content to parse"}
	}
	key, ok := extractionPrompts[s.InputKind]
	if !ok {
		return &InputError{Field: "input_kind", Message: fmt.Sprintf("unsupported input kind %q", s.InputKind)}
	}

	prompt, err := prompts.Render(prompts.ExtractionFile, key, map[string]string{"RawText": s.RawText})
	if err != nil {
		return err
	}
	resp, err := n.llm.GenerateJSON(ctx, prompt, llm.TierStandard)
	if err != nil {
		return fmt.Errorf("extraction model call: %w", err)
	}
	obj, err := llm.ExtractJSONObject(resp)
	if err != nil {
		return fmt.Errorf("extraction response: %w", err)
	}
	if err := schemas.Validate(schemas.ExtractionBundle, obj); err != nil {
		return fmt.Errorf("extraction response: %w", err)
	}
	bundle, err := DecodeBundle([]byte(obj))
	if err != nil {
		return err
	}

	s.ParsedRecord = bundle
	if s.CandidateEmail == "" {
		s.CandidateEmail = bundle.PersonalInfo.Email
	}
	if s.CandidateName == "" {
		s.CandidateName = bundle.PersonalInfo.Name
	}
	n.logger.Debug("extracted bundle",
		"jobs", len(bundle.JobExperiences),
		"courses", len(bundle.Courses),
		"academic_records", len(bundle.AcademicRecords),
	)
	return nil
}
