package workflow

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/career-navigator/internal/db"
	"github.com/jonathan/career-navigator/internal/llm"
	"github.com/jonathan/career-navigator/internal/logging"
)

// Node names
const (
	NodeParse             = "parse"
	NodeSaveDraft         = "save_draft"
	NodeWaitConfirmation  = "wait_confirmation"
	NodeValidate          = "validate"
	NodeCheckValidation   = "check_validation"
	NodeSelectProductType = "select_product_type"
	NodeSaveProduct       = "save_product"
	NodeErrorHandler      = "error_handler"
)

// steps holds the collaborators shared by every node.
type steps struct {
	repos  Repositories
	llm    llm.Client
	logger *slog.Logger
	now    func() time.Time
}

func newSteps(repos Repositories, client llm.Client, logger *slog.Logger) *steps {
	if logger == nil {
		logger = logging.Logger()
	}
	return &steps{repos: repos, llm: client, logger: logger, now: time.Now}
}

// profileData is a user's profile with every child record.
type profileData struct {
	User            *db.User
	Profile         *db.Profile
	JobExperiences  []db.JobExperience
	Courses         []db.Course
	AcademicRecords []db.AcademicRecord
}

// loadProfileData reads the user, profile and child records concurrently.
// Profile is nil when the user has none.
func (n *steps) loadProfileData(ctx context.Context, userID uuid.UUID) (*profileData, error) {
	var data profileData
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		u, err := n.repos.GetUserByID(gctx, userID)
		data.User = u
		return err
	})
	g.Go(func() error {
		p, err := n.repos.GetProfileByUserID(gctx, userID)
		data.Profile = p
		return err
	})
	g.Go(func() error {
		jobs, err := n.repos.ListJobExperiencesByUserID(gctx, userID)
		data.JobExperiences = jobs
		return err
	})
	g.Go(func() error {
		courses, err := n.repos.ListCoursesByUserID(gctx, userID)
		data.Courses = courses
		return err
	})
	g.Go(func() error {
		records, err := n.repos.ListAcademicRecordsByUserID(gctx, userID)
		data.AcademicRecords = records
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if data.User == nil {
		return nil, notFound("user", userID)
	}
	return &data, nil
}

func (n *steps) selectProductType(_ context.Context, _ *State) error {
	return nil
}

func (n *steps) handleError(_ context.Context, s *State) error {
	s.CurrentStep = "error"
	return nil
}

// BuildGraph assembles the ingestion, review, validation and generation graph.
func BuildGraph(repos Repositories, client llm.Client, logger *slog.Logger) *Graph {
	n := newSteps(repos, client, logger)

	g := NewGraph().
		AddNode(NodeParse, n.parse).
		AddNode(NodeSaveDraft, n.saveDraft).
		AddNode(NodeWaitConfirmation, n.waitConfirmation).
		AddNode(NodeValidate, n.validate).
		AddNode(NodeCheckValidation, n.checkValidation).
		AddNode(NodeSelectProductType, n.selectProductType)

	generators := map[string]string{labelEnd: END}
	for _, kind := range ArtifactKinds() {
		st := artifactStrategies[kind]
		g.AddNode(st.node, n.generator(st))
		g.AddEdge(st.node, NodeSaveProduct)
		generators[string(kind)] = st.node
	}

	g.AddNode(NodeSaveProduct, n.saveProduct).
		AddNode(NodeErrorHandler, n.handleError).
		SetEntryPoint(NodeParse).
		SetErrorNode(NodeErrorHandler).
		AddEdge(NodeParse, NodeSaveDraft).
		AddEdge(NodeSaveDraft, NodeWaitConfirmation).
		AddConditionalEdges(NodeWaitConfirmation, shouldValidate, map[string]string{
			labelValidate: NodeValidate,
			labelGenerate: NodeSelectProductType,
			labelEnd:      END,
		}).
		AddEdge(NodeValidate, NodeCheckValidation).
		AddConditionalEdges(NodeCheckValidation, shouldGenerate, map[string]string{
			labelGenerate: NodeSelectProductType,
			labelRetry:    NodeWaitConfirmation,
			labelEnd:      END,
		}).
		AddConditionalEdges(NodeSelectProductType, routeToGenerator, generators).
		AddEdge(NodeSaveProduct, END).
		AddEdge(NodeErrorHandler, END)

	return g
}
