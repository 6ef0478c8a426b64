package workflow

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/career-navigator/internal/db"
	"github.com/jonathan/career-navigator/internal/llm"
)

// memRepos is an in-memory Repositories with per-method call counters.
type memRepos struct {
	mu        sync.Mutex
	users     map[uuid.UUID]db.User
	profiles  map[uuid.UUID]db.Profile
	jobs      map[uuid.UUID][]db.JobExperience
	courses   map[uuid.UUID][]db.Course
	academics map[uuid.UUID][]db.AcademicRecord
	products  map[uuid.UUID]db.GeneratedProduct
	calls     map[string]int
	fail      map[string]error
}

func newMemRepos() *memRepos {
	return &memRepos{
		users:     map[uuid.UUID]db.User{},
		profiles:  map[uuid.UUID]db.Profile{},
		jobs:      map[uuid.UUID][]db.JobExperience{},
		courses:   map[uuid.UUID][]db.Course{},
		academics: map[uuid.UUID][]db.AcademicRecord{},
		products:  map[uuid.UUID]db.GeneratedProduct{},
		calls:     map[string]int{},
		fail:      map[string]error{},
	}
}

// hit records a call and returns the injected failure, if any. Callers hold mu.
func (m *memRepos) hit(method string) error {
	m.calls[method]++
	return m.fail[method]
}

func (m *memRepos) count(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

func (m *memRepos) CreateUser(_ context.Context, u *db.User) (*db.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("CreateUser"); err != nil {
		return nil, err
	}
	for _, existing := range m.users {
		if existing.Email == u.Email || existing.Username == u.Username {
			return nil, errors.New("duplicate user")
		}
	}
	c := *u
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.CreatedAt = time.Now()
	m.users[c.ID] = c
	return &c, nil
}

func (m *memRepos) GetUserByID(_ context.Context, id uuid.UUID) (*db.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("GetUserByID"); err != nil {
		return nil, err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (m *memRepos) GetUserByEmail(_ context.Context, email string) (*db.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("GetUserByEmail"); err != nil {
		return nil, err
	}
	for _, u := range m.users {
		if u.Email == email {
			found := u
			return &found, nil
		}
	}
	return nil, nil
}

func (m *memRepos) UsernameExists(_ context.Context, username string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("UsernameExists"); err != nil {
		return false, err
	}
	for _, u := range m.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (m *memRepos) UpdateUser(_ context.Context, u *db.User) (*db.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("UpdateUser"); err != nil {
		return nil, err
	}
	if _, ok := m.users[u.ID]; !ok {
		return nil, nil
	}
	c := *u
	m.users[u.ID] = c
	return &c, nil
}

func (m *memRepos) CreateProfile(_ context.Context, p *db.Profile) (*db.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("CreateProfile"); err != nil {
		return nil, err
	}
	if _, dup := m.profiles[p.UserID]; dup {
		return nil, errors.New("duplicate profile")
	}
	c := *p
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	m.profiles[c.UserID] = c
	return &c, nil
}

func (m *memRepos) GetProfileByID(_ context.Context, id uuid.UUID) (*db.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("GetProfileByID"); err != nil {
		return nil, err
	}
	for _, p := range m.profiles {
		if p.ID == id {
			found := p
			return &found, nil
		}
	}
	return nil, nil
}

func (m *memRepos) GetProfileByUserID(_ context.Context, userID uuid.UUID) (*db.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("GetProfileByUserID"); err != nil {
		return nil, err
	}
	p, ok := m.profiles[userID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *memRepos) UpdateProfile(_ context.Context, p *db.Profile) (*db.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("UpdateProfile"); err != nil {
		return nil, err
	}
	existing, ok := m.profiles[p.UserID]
	if !ok || existing.ID != p.ID {
		return nil, nil
	}
	c := *p
	m.profiles[p.UserID] = c
	return &c, nil
}

func (m *memRepos) ListJobExperiencesByUserID(_ context.Context, userID uuid.UUID) ([]db.JobExperience, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("ListJobExperiencesByUserID"); err != nil {
		return nil, err
	}
	return append([]db.JobExperience(nil), m.jobs[userID]...), nil
}

func (m *memRepos) ListCoursesByUserID(_ context.Context, userID uuid.UUID) ([]db.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("ListCoursesByUserID"); err != nil {
		return nil, err
	}
	return append([]db.Course(nil), m.courses[userID]...), nil
}

func (m *memRepos) ListAcademicRecordsByUserID(_ context.Context, userID uuid.UUID) ([]db.AcademicRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("ListAcademicRecordsByUserID"); err != nil {
		return nil, err
	}
	return append([]db.AcademicRecord(nil), m.academics[userID]...), nil
}

// ReplaceChildren stages every record first and commits only when nothing failed.
func (m *memRepos) ReplaceChildren(_ context.Context, userID uuid.UUID, children *db.ChildRecords) (*db.ChildRecords, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("ReplaceChildren"); err != nil {
		return nil, err
	}

	staged := &db.ChildRecords{}
	for _, j := range children.JobExperiences {
		j.ID, j.UserID = uuid.New(), userID
		staged.JobExperiences = append(staged.JobExperiences, j)
	}
	for _, c := range children.Courses {
		c.ID, c.UserID = uuid.New(), userID
		staged.Courses = append(staged.Courses, c)
	}
	for _, a := range children.AcademicRecords {
		if err := m.fail["CreateAcademicRecord"]; err != nil {
			return nil, err
		}
		a.ID, a.UserID = uuid.New(), userID
		staged.AcademicRecords = append(staged.AcademicRecords, a)
	}

	m.jobs[userID] = staged.JobExperiences
	m.courses[userID] = staged.Courses
	m.academics[userID] = staged.AcademicRecords
	return staged, nil
}

func (m *memRepos) CreateProduct(_ context.Context, p *db.GeneratedProduct) (*db.GeneratedProduct, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("CreateProduct"); err != nil {
		return nil, err
	}
	c := *p
	c.ID = uuid.New()
	c.Version = 1
	for _, existing := range m.products {
		if existing.UserID == c.UserID && existing.ProductType == c.ProductType && existing.Version >= c.Version {
			c.Version = existing.Version + 1
		}
	}
	m.products[c.ID] = c
	return &c, nil
}

func (m *memRepos) GetProductByID(_ context.Context, id uuid.UUID) (*db.GeneratedProduct, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("GetProductByID"); err != nil {
		return nil, err
	}
	p, ok := m.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *memRepos) ListProductsByUserID(_ context.Context, userID uuid.UUID, productType db.ProductType) ([]db.GeneratedProduct, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("ListProductsByUserID"); err != nil {
		return nil, err
	}
	var out []db.GeneratedProduct
	for _, p := range m.products {
		if p.UserID == userID && (productType == "" || p.ProductType == productType) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version > out[j].Version })
	return out, nil
}

// seedUser stores a user with a profile and returns the user id.
func (m *memRepos) seedUser(validated bool) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.users[id] = db.User{ID: id, Email: "ada@example.com", Username: "ada", UserGroup: db.UserGroupExperiencedContinuing}
	m.profiles[id] = db.Profile{
		ID: uuid.New(), UserID: id, CareerGoals: "Lead a platform team",
		CVContent: "cv", CareerGoalType: db.CareerGoalContinuePath,
		IsDraft: false, IsValidated: validated,
	}
	m.jobs[id] = []db.JobExperience{{
		ID: uuid.New(), UserID: id, CompanyName: "Acme", Position: "Engineer",
		StartDate: db.NewDate(2018, time.January, 1), IsCurrent: true,
		SkillsUsed: db.StringArray{"Go", "SQL"},
	}}
	return id
}

type reply struct {
	marker string
	text   string
}

// stubLLM answers by prompt content and counts calls.
type stubLLM struct {
	mu         sync.Mutex
	extraction string
	validation string
	generated  []reply
	err        error
	calls      int
	prompts    []string
}

func newStubLLM() *stubLLM {
	return &stubLLM{
		extraction: scenarioBundle,
		validation: `{"is_valid": true, "errors": [], "warnings": [], "completeness_score": 0.9, "recommendations": []}`,
		generated: []reply{
			{"You are an expert CV writer.", "JANE DOE\nSenior Engineer"},
			{"You are a career advisor.", "```json\n{\"career_paths\": [{\"name\": \"Staff Engineer\"}]}\n```"},
			{"Create a detailed 1-year", `{"plan_overview": "one year"}`},
			{"Create a detailed 3-year", `{"plan_overview": "three years"}`},
			{"Create a strategic 5+ year", `{"plan_overview": "five years"}`},
			{"You are an expert at optimizing professional networking", `{"headline": "Engineer"}`},
		},
	}
}

func (s *stubLLM) respond(prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	switch {
	case strings.HasPrefix(prompt, "You are an expert at extracting structured information"):
		return s.extraction, nil
	case strings.HasPrefix(prompt, "You are a data validation expert."):
		return s.validation, nil
	}
	for _, r := range s.generated {
		if strings.Contains(prompt, r.marker) {
			return r.text, nil
		}
	}
	return "", errors.New("unexpected prompt")
}

func (s *stubLLM) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *stubLLM) GenerateContent(_ context.Context, prompt string, _ llm.ModelTier) (string, error) {
	return s.respond(prompt)
}

func (s *stubLLM) GenerateJSON(_ context.Context, prompt string, _ llm.ModelTier) (string, error) {
	return s.respond(prompt)
}

func (s *stubLLM) GetModel(tier llm.ModelTier) string { return "stub-" + string(tier) }
func (s *stubLLM) Close() error                       { return nil }

// memKV is a minimal KV for store tests.
type memKV struct {
	mu   sync.Mutex
	data map[string][]byte
	err  error
}

func newMemKV() *memKV { return &memKV{data: map[string][]byte{}} }

func (k *memKV) Get(_ context.Context, key string) ([]byte, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.err != nil {
		return nil, k.err
	}
	return k.data[key], nil
}

func (k *memKV) Set(_ context.Context, key string, value []byte) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.err != nil {
		return k.err
	}
	k.data[key] = append([]byte(nil), value...)
	return nil
}

func (k *memKV) Delete(_ context.Context, key string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.data, key)
	return nil
}

// scenarioBundle has one job experience and one academic record.
const scenarioBundle = "```json\n" + `{
  "personal_info": {
    "name": "Jane Doe",
    "email": null,
    "age": "34",
    "current_location": "Lisbon",
    "languages": [{"name": "English", "proficiency": "Native"}]
  },
  "career_goals": "Move into engineering management",
  "short_term_goals": null,
  "long_term_goals": "Become a CTO",
  "job_experiences": [{
    "company_name": "Globex",
    "position": "Senior Engineer",
    "start_date": "2019-03-01",
    "end_date": "not a date",
    "is_current": true,
    "achievements": ["Cut latency by 40%"],
    "skills_used": ["Go", "PostgreSQL", null]
  }],
  "courses": null,
  "academic_records": [{
    "institution_name": "University of Porto",
    "degree": "BSc",
    "field_of_study": "Computer Science",
    "gpa": "3.7"
  }],
  "hobbies": ["climbing"]
}` + "\n```"
