package workflow

// Route labels
const (
	labelValidate = "validate"
	labelGenerate = "generate"
	labelRetry    = "retry"
	labelEnd      = "end"
)

// shouldValidate runs after wait_confirmation. An already validated profile
// with a requested artifact skips straight to generation.
func shouldValidate(s *State) string {
	switch {
	case s.Failed():
		return labelEnd
	case s.IsValidated && s.ArtifactKind != "":
		return labelGenerate
	case s.IsConfirmed:
		return labelValidate
	default:
		return labelEnd
	}
}

// shouldGenerate runs after check_validation. Critical errors send the
// run back to review.
func shouldGenerate(s *State) string {
	switch {
	case s.Failed():
		return labelEnd
	case s.IsValidated:
		return labelGenerate
	case s.ValidationReport.HasCritical():
		return labelRetry
	default:
		return labelEnd
	}
}

// routeToGenerator maps the requested artifact kind to its label.
func routeToGenerator(s *State) string {
	if _, ok := artifactStrategies[s.ArtifactKind]; !ok {
		return labelEnd
	}
	return string(s.ArtifactKind)
}
