package workflow

import "context"

// waitConfirmation is the draft review pause point.
func (n *steps) waitConfirmation(_ context.Context, s *State) error {
	if s.IsValidated && s.ArtifactKind != "" {
		s.IsConfirmed = true
		s.NeedsHumanReview = false
		return nil
	}

	s.NeedsHumanReview = true
	switch s.HumanDecision {
	case DecisionApprove:
		s.IsConfirmed = true
		s.NeedsHumanReview = false
		s.ResumeAt = ""
	case DecisionReject:
		s.IsConfirmed = false
		s.NeedsHumanReview = false
		return ErrRejected
	default:
		s.pause(NodeWaitConfirmation)
	}
	return nil
}

// checkValidation clears the confirmation of a failed validation so the
// retry edge pauses at review instead of validating again.
func (n *steps) checkValidation(_ context.Context, s *State) error {
	if !s.IsValidated {
		s.IsConfirmed = false
		s.HumanDecision = ""
	}
	return nil
}
