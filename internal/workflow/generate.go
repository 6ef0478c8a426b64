package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jonathan/career-navigator/internal/db"
	"github.com/jonathan/career-navigator/internal/llm"
	"github.com/jonathan/career-navigator/internal/prompts"
)

// artifactStrategy describes how one artifact kind is generated and stored.
type artifactStrategy struct {
	kind      ArtifactKind
	node      string
	promptKey string
	product   db.ProductType
	tier      llm.ModelTier
	// plainText artifacts are stored as {"cv_content": text}.
	plainText bool
	label     string
	slot      func(*State) *map[string]any
}

var artifactStrategies = map[ArtifactKind]*artifactStrategy{
	ArtifactCV: {
		kind: ArtifactCV, node: "generate_cv", promptKey: "generate-cv",
		product: db.ProductTypeCV, tier: llm.TierAdvanced, plainText: true,
		label: "CV generation",
	},
	ArtifactCareerPath: {
		kind: ArtifactCareerPath, node: "generate_career_path", promptKey: "generate-career-path",
		product: db.ProductTypePossibleJobs, tier: llm.TierAdvanced,
		label: "career path generation",
		slot:  func(s *State) *map[string]any { return &s.GeneratedCareerPath },
	},
	ArtifactCareerPlan1Y: {
		kind: ArtifactCareerPlan1Y, node: "generate_career_plan_1y", promptKey: "generate-career-plan-1y",
		product: db.ProductTypeCareerPlan1Y, tier: llm.TierAdvanced,
		label: "1-year career plan generation",
		slot:  func(s *State) *map[string]any { return &s.GeneratedCareerPlan1Y },
	},
	ArtifactCareerPlan3Y: {
		kind: ArtifactCareerPlan3Y, node: "generate_career_plan_3y", promptKey: "generate-career-plan-3y",
		product: db.ProductTypeCareerPlan3Y, tier: llm.TierAdvanced,
		label: "3-year career plan generation",
		slot:  func(s *State) *map[string]any { return &s.GeneratedCareerPlan3Y },
	},
	ArtifactCareerPlan5Y: {
		kind: ArtifactCareerPlan5Y, node: "generate_career_plan_5y", promptKey: "generate-career-plan-5y",
		product: db.ProductTypeCareerPlan5Y, tier: llm.TierAdvanced,
		label: "5-year career plan generation",
		slot:  func(s *State) *map[string]any { return &s.GeneratedCareerPlan5Y },
	},
	ArtifactNetworkExport: {
		kind: ArtifactNetworkExport, node: "generate_network_export", promptKey: "generate-network-export",
		product: db.ProductTypeNetworkExport, tier: llm.TierStandard,
		label: "network profile export generation",
		slot:  func(s *State) *map[string]any { return &s.GeneratedNetworkExport },
	},
}

// ProductType maps an artifact kind to its stored product type.
func (k ArtifactKind) ProductType() (db.ProductType, bool) {
	st, ok := artifactStrategies[k]
	if !ok {
		return "", false
	}
	return st.product, true
}

// content returns the stored shape of the generated artifact, or false
// when the slot is empty.
func (st *artifactStrategy) content(s *State) (map[string]any, bool) {
	if st.plainText {
		if s.GeneratedCV == nil {
			return nil, false
		}
		return map[string]any{"cv_content": *s.GeneratedCV}, true
	}
	v := *st.slot(s)
	return v, v != nil
}

// generator returns the node body for one artifact kind.
func (n *steps) generator(st *artifactStrategy) StepFunc {
	return func(ctx context.Context, s *State) error {
		if !s.HasUser() {
			return &InputError{Field: "user_id", Message: "generation requires a user"}
		}
		data, err := n.loadProfileData(ctx, s.UserID)
		if err != nil {
			return err
		}
		if data.Profile == nil {
			return notFound("profile", s.UserID)
		}
		if !data.Profile.IsValidated {
			return &BusinessRuleError{Rule: RuleProfileNotValidated, Message: "profile must be validated before generation"}
		}

		prompt, err := prompts.Render(prompts.GenerationFile, st.promptKey, promptParams(data, n.now()))
		if err != nil {
			return err
		}

		if st.plainText {
			text, err := n.llm.GenerateContent(ctx, prompt, st.tier)
			if err != nil {
				return fmt.Errorf("%s: %w", st.label, err)
			}
			text = strings.TrimSpace(text)
			if text == "" {
				return fmt.Errorf("%s: empty response", st.label)
			}
			s.GeneratedCV = &text
			return nil
		}

		resp, err := n.llm.GenerateJSON(ctx, prompt, st.tier)
		if err != nil {
			return fmt.Errorf("%s: %w", st.label, err)
		}
		obj, err := llm.ExtractJSONObject(resp)
		if err != nil {
			return fmt.Errorf("%s: %w", st.label, err)
		}
		var out map[string]any
		if err := json.Unmarshal([]byte(obj), &out); err != nil {
			return fmt.Errorf("%s: failed to parse response: %w", st.label, err)
		}
		*st.slot(s) = out
		return nil
	}
}
