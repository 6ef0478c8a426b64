package workflow

import (
	"context"
	"fmt"

	"github.com/jonathan/career-navigator/internal/db"
)

// saveProduct is the artifact review pause point. Nothing is persisted
// until the decision is approve.
func (n *steps) saveProduct(ctx context.Context, s *State) error {
	if s.HumanDecision != DecisionApprove {
		s.pause(NodeSaveProduct)
		return nil
	}

	st, ok := artifactStrategies[s.ArtifactKind]
	if !ok {
		return &InputError{Field: "artifact_kind", Message: fmt.Sprintf("unknown artifact kind %q", s.ArtifactKind)}
	}
	content, ok := st.content(s)
	if !ok {
		return fmt.Errorf("no generated content for %s", s.ArtifactKind)
	}

	created, err := n.repos.CreateProduct(ctx, &db.GeneratedProduct{
		UserID:      s.UserID,
		ProductType: st.product,
		Content:     content,
		IsActive:    true,
		ModelUsed:   n.llm.GetModel(st.tier),
	})
	if err != nil {
		return err
	}

	s.ArtifactID = created.ID
	s.NeedsHumanReview = false
	s.ResumeAt = ""
	s.Error = ""
	n.logger.Info("saved product",
		"user_id", s.UserID,
		"product_id", created.ID,
		"product_type", created.ProductType,
		"version", created.Version,
	)
	return nil
}
