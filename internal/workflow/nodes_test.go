package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/career-navigator/internal/db"
)

func newTestSteps(repos *memRepos, client *stubLLM) *steps {
	n := newSteps(repos, client, nil)
	n.now = func() time.Time { return time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC) }
	return n
}

func TestParse(t *testing.T) {
	ctx := context.Background()

	t.Run("extracts bundle", func(t *testing.T) {
		client := newStubLLM()
		n := newTestSteps(newMemRepos(), client)
		s := NewState(InputCV)
		s.RawText = "Jane Doe, Senior Engineer at Globex"

		require.NoError(t, n.parse(ctx, s))
		require.NotNil(t, s.ParsedRecord)
		assert.Equal(t, "Jane Doe", s.CandidateName)
		assert.Empty(t, s.CandidateEmail)
		assert.Equal(t, 1, client.callCount())
		assert.Contains(t, client.prompts[0], "Jane Doe, Senior Engineer at Globex")
	})

	t.Run("empty text", func(t *testing.T) {
		n := newTestSteps(newMemRepos(), newStubLLM())
		err := n.parse(ctx, NewState(InputCV))
		var inputErr *InputError
		require.ErrorAs(t, err, &inputErr)
		assert.Equal(t, "raw_text", inputErr.Field)
	})

	t.Run("unknown kind", func(t *testing.T) {
		n := newTestSteps(newMemRepos(), newStubLLM())
		s := NewState("fax")
		s.RawText = "text"
		var inputErr *InputError
		require.ErrorAs(t, n.parse(ctx, s), &inputErr)
		assert.Equal(t, "input_kind", inputErr.Field)
	})

	t.Run("skips for confirmed draft without text", func(t *testing.T) {
		client := newStubLLM()
		n := newTestSteps(newMemRepos(), client)
		s := NewState(InputCV)
		s.IsConfirmed = true
		require.NoError(t, n.parse(ctx, s))
		assert.Zero(t, client.callCount())
	})

	t.Run("skips for generation on validated profile", func(t *testing.T) {
		repos := newMemRepos()
		client := newStubLLM()
		n := newTestSteps(repos, client)
		s := NewState(InputCV)
		s.UserID = repos.seedUser(true)
		s.IsValidated = true
		s.ArtifactKind = ArtifactCV
		s.RawText = "stale text"
		require.NoError(t, n.parse(ctx, s))
		assert.Nil(t, s.ParsedRecord)
		assert.Zero(t, client.callCount())
	})

	t.Run("schema rejection", func(t *testing.T) {
		client := newStubLLM()
		client.extraction = `{"job_experiences": [{"position": "no company"}]}`
		n := newTestSteps(newMemRepos(), client)
		s := NewState(InputCV)
		s.RawText = "text"
		err := n.parse(ctx, s)
		require.Error(t, err)
		assert.Equal(t, ErrorKindCollaborator, classify(err))
	})
}

func parsedState(t *testing.T, n *steps) *State {
	t.Helper()
	s := NewState(InputCV)
	s.RawText = "Jane Doe CV"
	require.NoError(t, n.parse(context.Background(), s))
	return s
}

func TestSaveDraft_CreatesRecords(t *testing.T) {
	repos := newMemRepos()
	n := newTestSteps(repos, newStubLLM())
	s := parsedState(t, n)

	require.NoError(t, n.saveDraft(context.Background(), s))
	require.True(t, s.HasUser())
	assert.NotEqual(t, uuid.Nil, s.ProfileID)
	assert.Len(t, s.JobExperienceIDs, 1)
	assert.Empty(t, s.CourseIDs)
	assert.Len(t, s.AcademicRecordIDs, 1)
	assert.True(t, s.IsDraft)

	u := repos.users[s.UserID]
	assert.Equal(t, "jane_doe", u.Username)
	assert.Contains(t, u.Email, "@placeholder.invalid")
	assert.Equal(t, db.UserGroupExperiencedChanging, u.UserGroup)

	p := repos.profiles[s.UserID]
	assert.True(t, p.IsDraft)
	assert.False(t, p.IsValidated)
	assert.Equal(t, "Jane Doe CV", p.CVContent)
	assert.Equal(t, db.CareerGoalContinuePath, p.CareerGoalType)
	assert.Equal(t, "Lisbon", p.CurrentLocation)
}

func TestSaveDraft_Idempotent(t *testing.T) {
	repos := newMemRepos()
	n := newTestSteps(repos, newStubLLM())
	s := parsedState(t, n)
	ctx := context.Background()

	require.NoError(t, n.saveDraft(ctx, s))
	first := s.ProfileID
	require.NoError(t, n.saveDraft(ctx, s))

	assert.Equal(t, first, s.ProfileID)
	assert.Len(t, repos.users, 1)
	assert.Len(t, repos.profiles, 1)
	assert.Len(t, repos.jobs[s.UserID], 1)
	assert.Len(t, repos.academics[s.UserID], 1)
	assert.Equal(t, 1, repos.count("CreateProfile"))
	assert.Equal(t, 1, repos.count("UpdateProfile"))
}

func TestSaveDraft_FailedReplaceKeepsChildren(t *testing.T) {
	repos := newMemRepos()
	n := newTestSteps(repos, newStubLLM())
	s := parsedState(t, n)
	ctx := context.Background()

	require.NoError(t, n.saveDraft(ctx, s))
	jobs := repos.jobs[s.UserID]
	academics := repos.academics[s.UserID]
	require.Len(t, jobs, 1)
	require.Len(t, academics, 1)

	repos.fail["CreateAcademicRecord"] = errors.New("db down")
	require.EqualError(t, n.saveDraft(ctx, s), "db down")

	assert.Equal(t, jobs, repos.jobs[s.UserID])
	assert.Equal(t, academics, repos.academics[s.UserID])
	assert.Equal(t, 2, repos.count("ReplaceChildren"))
}

func TestSaveDraft_ReusesUserByEmail(t *testing.T) {
	repos := newMemRepos()
	existing := repos.seedUser(true)
	n := newTestSteps(repos, newStubLLM())
	s := parsedState(t, n)
	s.CandidateEmail = "ada@example.com"

	require.NoError(t, n.saveDraft(context.Background(), s))
	assert.Equal(t, existing, s.UserID)
	assert.Len(t, repos.users, 1)
	assert.False(t, repos.profiles[existing].IsValidated)
}

func TestSaveDraft_UnknownUser(t *testing.T) {
	n := newTestSteps(newMemRepos(), newStubLLM())
	s := parsedState(t, n)
	s.UserID = uuid.New()

	var nf *NotFoundError
	require.ErrorAs(t, n.saveDraft(context.Background(), s), &nf)
	assert.Equal(t, "user", nf.Entity)
}

func TestSaveDraft_NoBundle(t *testing.T) {
	repos := newMemRepos()
	n := newTestSteps(repos, newStubLLM())
	s := NewState(InputCV)
	s.UserID = repos.seedUser(false)

	require.NoError(t, n.saveDraft(context.Background(), s))
	assert.Equal(t, repos.profiles[s.UserID].ID, s.ProfileID)
	assert.Zero(t, repos.count("UpdateProfile"))
}

func TestWaitConfirmation(t *testing.T) {
	ctx := context.Background()
	n := newTestSteps(newMemRepos(), newStubLLM())

	t.Run("pauses without decision", func(t *testing.T) {
		s := NewState(InputCV)
		require.NoError(t, n.waitConfirmation(ctx, s))
		assert.True(t, s.Paused())
		assert.Equal(t, NodeWaitConfirmation, s.ResumeAt)
		assert.False(t, s.IsConfirmed)
	})

	t.Run("edit keeps pause", func(t *testing.T) {
		s := NewState(InputCV)
		s.HumanDecision = DecisionEdit
		require.NoError(t, n.waitConfirmation(ctx, s))
		assert.True(t, s.Paused())
	})

	t.Run("approve confirms", func(t *testing.T) {
		s := NewState(InputCV)
		s.HumanDecision = DecisionApprove
		require.NoError(t, n.waitConfirmation(ctx, s))
		assert.True(t, s.IsConfirmed)
		assert.False(t, s.NeedsHumanReview)
		assert.Equal(t, labelValidate, shouldValidate(s))
	})

	t.Run("reject fails", func(t *testing.T) {
		s := NewState(InputCV)
		s.HumanDecision = DecisionReject
		err := n.waitConfirmation(ctx, s)
		require.ErrorIs(t, err, ErrRejected)
		assert.False(t, s.IsConfirmed)
		assert.Equal(t, ErrorKindInput, classify(err))
	})

	t.Run("validated generation auto-confirms", func(t *testing.T) {
		s := NewState(InputCV)
		s.IsValidated = true
		s.ArtifactKind = ArtifactCareerPlan3Y
		require.NoError(t, n.waitConfirmation(ctx, s))
		assert.True(t, s.IsConfirmed)
		assert.False(t, s.NeedsHumanReview)
	})
}

func TestValidate(t *testing.T) {
	ctx := context.Background()

	t.Run("valid report persists flag", func(t *testing.T) {
		repos := newMemRepos()
		n := newTestSteps(repos, newStubLLM())
		s := NewState(InputCV)
		s.UserID = repos.seedUser(false)

		require.NoError(t, n.validate(ctx, s))
		assert.True(t, s.IsValidated)
		require.NotNil(t, s.ValidationReport)
		assert.InDelta(t, 0.9, s.ValidationReport.CompletenessScore, 1e-9)
		assert.True(t, repos.profiles[s.UserID].IsValidated)
	})

	t.Run("critical error", func(t *testing.T) {
		repos := newMemRepos()
		client := newStubLLM()
		client.validation = `{"is_valid": false, "errors": [{"field": "email", "error_type": "missing", "message": "email is required", "severity": "CRITICAL"}], "warnings": ["age missing", {"field": "gpa", "message": "unusual"}], "completeness_score": 1.7}`
		n := newTestSteps(repos, client)
		s := NewState(InputCV)
		s.UserID = repos.seedUser(false)

		require.NoError(t, n.validate(ctx, s))
		assert.False(t, s.IsValidated)
		r := s.ValidationReport
		require.Len(t, r.Errors, 1)
		assert.Equal(t, "missing", r.Errors[0].Kind)
		assert.Equal(t, SeverityCritical, r.Errors[0].Severity)
		assert.Len(t, r.Warnings, 2)
		assert.Equal(t, "gpa", r.Warnings[1].Field)
		assert.InDelta(t, 1.0, r.CompletenessScore, 1e-9)
		assert.Equal(t, labelRetry, shouldGenerate(s))
	})

	t.Run("unreadable response", func(t *testing.T) {
		repos := newMemRepos()
		client := newStubLLM()
		client.validation = "I think the profile looks fine."
		n := newTestSteps(repos, client)
		s := NewState(InputCV)
		s.UserID = repos.seedUser(true)

		require.NoError(t, n.validate(ctx, s))
		assert.False(t, s.IsValidated)
		require.Len(t, s.ValidationReport.Errors, 1)
		assert.Equal(t, "format_error", s.ValidationReport.Errors[0].Kind)
		assert.True(t, s.ValidationReport.HasCritical())
		assert.False(t, repos.profiles[s.UserID].IsValidated)
	})

	t.Run("model failure", func(t *testing.T) {
		repos := newMemRepos()
		client := newStubLLM()
		client.err = errors.New("503 unavailable")
		n := newTestSteps(repos, client)
		s := NewState(InputCV)
		s.UserID = repos.seedUser(false)

		err := n.validate(ctx, s)
		assert.ErrorContains(t, err, "guardrail model call")
		assert.Equal(t, ErrorKindCollaborator, classify(err))
	})

	t.Run("no user", func(t *testing.T) {
		n := newTestSteps(newMemRepos(), newStubLLM())
		var inputErr *InputError
		require.ErrorAs(t, n.validate(ctx, NewState(InputCV)), &inputErr)
	})
}

func TestCheckValidation_ClearsConfirmation(t *testing.T) {
	n := newTestSteps(newMemRepos(), newStubLLM())
	s := NewState(InputCV)
	s.IsConfirmed = true
	s.HumanDecision = DecisionApprove

	require.NoError(t, n.checkValidation(context.Background(), s))
	assert.False(t, s.IsConfirmed)
	assert.Empty(t, s.HumanDecision)

	s.IsValidated = true
	s.IsConfirmed = true
	require.NoError(t, n.checkValidation(context.Background(), s))
	assert.True(t, s.IsConfirmed)
}

func TestGenerator(t *testing.T) {
	ctx := context.Background()

	t.Run("unvalidated profile never calls the model", func(t *testing.T) {
		repos := newMemRepos()
		client := newStubLLM()
		n := newTestSteps(repos, client)
		s := NewState(InputCV)
		s.UserID = repos.seedUser(false)

		err := n.generator(artifactStrategies[ArtifactCV])(ctx, s)
		var ruleErr *BusinessRuleError
		require.ErrorAs(t, err, &ruleErr)
		assert.Equal(t, RuleProfileNotValidated, ruleErr.Rule)
		assert.Zero(t, client.callCount())
	})

	t.Run("cv is plain text", func(t *testing.T) {
		repos := newMemRepos()
		client := newStubLLM()
		n := newTestSteps(repos, client)
		s := NewState(InputCV)
		s.UserID = repos.seedUser(true)

		require.NoError(t, n.generator(artifactStrategies[ArtifactCV])(ctx, s))
		require.NotNil(t, s.GeneratedCV)
		assert.Equal(t, "JANE DOE\nSenior Engineer", *s.GeneratedCV)
		assert.Contains(t, client.prompts[0], "Company: Acme")
		assert.Contains(t, client.prompts[0], "Skills: Go, SQL")
	})

	t.Run("json kinds fill their slot", func(t *testing.T) {
		repos := newMemRepos()
		n := newTestSteps(repos, newStubLLM())
		userID := repos.seedUser(true)

		for _, kind := range []ArtifactKind{ArtifactCareerPath, ArtifactCareerPlan1Y, ArtifactCareerPlan3Y, ArtifactCareerPlan5Y, ArtifactNetworkExport} {
			st := artifactStrategies[kind]
			s := NewState(InputCV)
			s.UserID = userID
			require.NoError(t, n.generator(st)(ctx, s), kind)
			content, ok := st.content(s)
			require.True(t, ok, kind)
			assert.NotEmpty(t, content, kind)
		}
	})

	t.Run("empty text response", func(t *testing.T) {
		repos := newMemRepos()
		client := newStubLLM()
		client.generated = []reply{{"You are an expert CV writer.", "   "}}
		n := newTestSteps(repos, client)
		s := NewState(InputCV)
		s.UserID = repos.seedUser(true)

		assert.ErrorContains(t, n.generator(artifactStrategies[ArtifactCV])(ctx, s), "empty response")
	})
}

func TestSaveProduct(t *testing.T) {
	ctx := context.Background()
	text := "CV body"

	t.Run("pauses until approve", func(t *testing.T) {
		repos := newMemRepos()
		n := newTestSteps(repos, newStubLLM())
		s := NewState(InputCV)
		s.UserID = repos.seedUser(true)
		s.ArtifactKind = ArtifactCV
		s.GeneratedCV = &text

		for _, d := range []Decision{"", DecisionEdit, DecisionReject} {
			s.HumanDecision = d
			require.NoError(t, n.saveProduct(ctx, s))
			assert.True(t, s.Paused())
			assert.Equal(t, NodeSaveProduct, s.ResumeAt)
		}
		assert.Zero(t, repos.count("CreateProduct"))
	})

	t.Run("approve creates product", func(t *testing.T) {
		repos := newMemRepos()
		n := newTestSteps(repos, newStubLLM())
		s := NewState(InputCV)
		s.UserID = repos.seedUser(true)
		s.ArtifactKind = ArtifactCV
		s.GeneratedCV = &text
		s.HumanDecision = DecisionApprove

		require.NoError(t, n.saveProduct(ctx, s))
		require.NotEqual(t, uuid.Nil, s.ArtifactID)
		p := repos.products[s.ArtifactID]
		assert.Equal(t, db.ProductTypeCV, p.ProductType)
		assert.Equal(t, map[string]any{"cv_content": "CV body"}, p.Content)
		assert.Equal(t, "stub-advanced", p.ModelUsed)
		assert.True(t, p.IsActive)
		assert.False(t, s.NeedsHumanReview)
	})

	t.Run("missing content", func(t *testing.T) {
		n := newTestSteps(newMemRepos(), newStubLLM())
		s := NewState(InputCV)
		s.ArtifactKind = ArtifactCareerPath
		s.HumanDecision = DecisionApprove
		assert.ErrorContains(t, n.saveProduct(ctx, s), "no generated content")
	})
}

func TestClassifyUser(t *testing.T) {
	assert.Equal(t, db.UserGroupExperiencedChanging, classifyUser(true, true))
	assert.Equal(t, db.UserGroupExperiencedContinuing, classifyUser(true, false))
	assert.Equal(t, db.UserGroupInexperiencedWithGoal, classifyUser(false, true))
	assert.Equal(t, db.UserGroupInexperiencedNoGoal, classifyUser(false, false))
}
