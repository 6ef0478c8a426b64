package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/career-navigator/internal/db"
	"github.com/jonathan/career-navigator/internal/workflow"
)

// memStore is an in-memory Store.
type memStore struct {
	mu        sync.Mutex
	users     map[uuid.UUID]db.User
	profiles  map[uuid.UUID]db.Profile
	jobs      map[uuid.UUID]db.JobExperience
	courses   map[uuid.UUID]db.Course
	academics map[uuid.UUID]db.AcademicRecord
	products  map[uuid.UUID]db.GeneratedProduct
	pingErr   error
}

func newMemStore() *memStore {
	return &memStore{
		users:     map[uuid.UUID]db.User{},
		profiles:  map[uuid.UUID]db.Profile{},
		jobs:      map[uuid.UUID]db.JobExperience{},
		courses:   map[uuid.UUID]db.Course{},
		academics: map[uuid.UUID]db.AcademicRecord{},
		products:  map[uuid.UUID]db.GeneratedProduct{},
	}
}

func (m *memStore) addUser(email, username string) db.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := db.User{ID: uuid.New(), Email: email, Username: username, UserGroup: db.UserGroupInexperiencedNoGoal}
	m.users[u.ID] = u
	return u
}

func (m *memStore) addProfile(userID uuid.UUID) db.Profile {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := db.Profile{ID: uuid.New(), UserID: userID, CareerGoalType: db.CareerGoalContinuePath, IsDraft: true}
	m.profiles[p.ID] = p
	return p
}

func (m *memStore) CreateUser(_ context.Context, u *db.User) (*db.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return nil, errors.New("duplicate email")
		}
	}
	c := *u
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	m.users[c.ID] = c
	return &c, nil
}

func (m *memStore) GetUserByID(_ context.Context, id uuid.UUID) (*db.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return &u, nil
	}
	return nil, nil
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (*db.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, nil
}

func (m *memStore) UsernameExists(_ context.Context, username string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) UpdateUser(_ context.Context, u *db.User) (*db.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.users[u.ID]
	if !ok {
		return nil, nil
	}
	c := *u
	if c.PasswordHash == "" {
		c.PasswordHash = existing.PasswordHash
	}
	m.users[c.ID] = c
	return &c, nil
}

func (m *memStore) GetProfileByUserID(_ context.Context, userID uuid.UUID) (*db.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.profiles {
		if p.UserID == userID {
			return &p, nil
		}
	}
	return nil, nil
}

func (m *memStore) UpdateProfile(_ context.Context, p *db.Profile) (*db.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.profiles[p.ID]; !ok {
		return nil, nil
	}
	c := *p
	m.profiles[c.ID] = c
	return &c, nil
}

func (m *memStore) CreateJobExperience(_ context.Context, j *db.JobExperience) (*db.JobExperience, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *j
	c.ID = uuid.New()
	m.jobs[c.ID] = c
	return &c, nil
}

func (m *memStore) GetJobExperienceByID(_ context.Context, id uuid.UUID) (*db.JobExperience, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.jobs[id]; ok {
		return &j, nil
	}
	return nil, nil
}

func (m *memStore) ListJobExperiencesByUserID(_ context.Context, userID uuid.UUID) ([]db.JobExperience, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []db.JobExperience
	for _, j := range m.jobs {
		if j.UserID == userID {
			out = append(out, j)
		}
	}
	return out, nil
}

func (m *memStore) UpdateJobExperience(_ context.Context, j *db.JobExperience) (*db.JobExperience, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[j.ID]; !ok {
		return nil, nil
	}
	m.jobs[j.ID] = *j
	c := *j
	return &c, nil
}

func (m *memStore) DeleteJobExperience(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, id)
	return nil
}

func (m *memStore) CreateCourse(_ context.Context, c *db.Course) (*db.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	cp.ID = uuid.New()
	m.courses[cp.ID] = cp
	return &cp, nil
}

func (m *memStore) GetCourseByID(_ context.Context, id uuid.UUID) (*db.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.courses[id]; ok {
		return &c, nil
	}
	return nil, nil
}

func (m *memStore) ListCoursesByUserID(_ context.Context, userID uuid.UUID) ([]db.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []db.Course
	for _, c := range m.courses {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memStore) UpdateCourse(_ context.Context, c *db.Course) (*db.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.courses[c.ID]; !ok {
		return nil, nil
	}
	m.courses[c.ID] = *c
	cp := *c
	return &cp, nil
}

func (m *memStore) DeleteCourse(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.courses, id)
	return nil
}

func (m *memStore) CreateAcademicRecord(_ context.Context, a *db.AcademicRecord) (*db.AcademicRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *a
	c.ID = uuid.New()
	m.academics[c.ID] = c
	return &c, nil
}

func (m *memStore) GetAcademicRecordByID(_ context.Context, id uuid.UUID) (*db.AcademicRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.academics[id]; ok {
		return &a, nil
	}
	return nil, nil
}

func (m *memStore) ListAcademicRecordsByUserID(_ context.Context, userID uuid.UUID) ([]db.AcademicRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []db.AcademicRecord
	for _, a := range m.academics {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) UpdateAcademicRecord(_ context.Context, a *db.AcademicRecord) (*db.AcademicRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.academics[a.ID]; !ok {
		return nil, nil
	}
	m.academics[a.ID] = *a
	c := *a
	return &c, nil
}

func (m *memStore) DeleteAcademicRecord(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.academics, id)
	return nil
}

func (m *memStore) GetProductByID(_ context.Context, id uuid.UUID) (*db.GeneratedProduct, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.products[id]; ok {
		return &p, nil
	}
	return nil, nil
}

func (m *memStore) ListProductsByUserID(_ context.Context, userID uuid.UUID, productType db.ProductType) ([]db.GeneratedProduct, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []db.GeneratedProduct
	for _, p := range m.products {
		if p.UserID == userID && (productType == "" || p.ProductType == productType) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) Ping(context.Context) error {
	return m.pingErr
}

// fakeWorkflow records the last call and replays scripted results.
type fakeWorkflow struct {
	mu         sync.Mutex
	calls      []string
	lastIngest workflow.IngestRequest
	lastUser   uuid.UUID
	lastKind   workflow.ArtifactKind
	lastRun    string
	lastDec    workflow.Decision
	err        error
}

func (f *fakeWorkflow) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeWorkflow) called() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeWorkflow) Ingest(_ context.Context, req workflow.IngestRequest) (*workflow.IngestResult, error) {
	f.record("Ingest")
	f.lastIngest = req
	if f.err != nil {
		return nil, f.err
	}
	userID := req.UserID
	if userID == uuid.Nil {
		userID = uuid.New()
	}
	return &workflow.IngestResult{RunID: "user_" + userID.String(), UserID: userID, ProfileID: uuid.New(), IsDraft: true, NeedsHumanReview: true}, nil
}

func (f *fakeWorkflow) Confirm(_ context.Context, userID uuid.UUID) (*workflow.ConfirmResult, error) {
	f.record("Confirm")
	f.lastUser = userID
	if f.err != nil {
		return nil, f.err
	}
	return &workflow.ConfirmResult{ProfileID: uuid.New(), Message: "Draft confirmed, ready for validation"}, nil
}

func (f *fakeWorkflow) Validate(_ context.Context, userID uuid.UUID) (*workflow.ValidationReport, error) {
	f.record("Validate")
	f.lastUser = userID
	if f.err != nil {
		return nil, f.err
	}
	return &workflow.ValidationReport{IsValid: true, CompletenessScore: 0.9}, nil
}

func (f *fakeWorkflow) Generate(_ context.Context, userID uuid.UUID, kind workflow.ArtifactKind) (*db.GeneratedProduct, error) {
	f.record("Generate")
	f.lastUser, f.lastKind = userID, kind
	if f.err != nil {
		return nil, f.err
	}
	return &db.GeneratedProduct{ID: uuid.New(), UserID: userID, ProductType: db.ProductTypeCV, Version: 1, IsActive: true}, nil
}

func (f *fakeWorkflow) GenerateForReview(_ context.Context, userID uuid.UUID, kind workflow.ArtifactKind) (*workflow.RunStatus, error) {
	f.record("GenerateForReview")
	f.lastUser, f.lastKind = userID, kind
	if f.err != nil {
		return nil, f.err
	}
	return &workflow.RunStatus{RunID: "user_" + userID.String(), Status: workflow.StatusAwaitingReview, NeedsHumanReview: true, ArtifactKind: kind}, nil
}

func (f *fakeWorkflow) GetStatus(_ context.Context, runID string) (*workflow.RunStatus, error) {
	f.record("GetStatus")
	f.lastRun = runID
	if f.err != nil {
		return nil, f.err
	}
	return &workflow.RunStatus{RunID: runID, Status: workflow.StatusCompleted}, nil
}

func (f *fakeWorkflow) Resume(_ context.Context, runID string, decision workflow.Decision) (*workflow.RunStatus, error) {
	f.record("Resume")
	f.lastRun, f.lastDec = runID, decision
	if f.err != nil {
		return nil, f.err
	}
	return &workflow.RunStatus{RunID: runID, Status: workflow.StatusCompleted}, nil
}

func (f *fakeWorkflow) Diagram() string {
	return "flowchart TD\n    parse --> save_draft\n"
}
