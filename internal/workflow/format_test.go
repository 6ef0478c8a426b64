package workflow

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/career-navigator/internal/db"
)

func TestBaseUsername(t *testing.T) {
	tests := []struct {
		name, email, want string
	}{
		{"Jane Doe", "", "jane_doe"},
		{"  José  O'Neil ", "", "jos_oneil"},
		{"", "Ada.Lovelace@example.com", "adalovelace"},
		{"!!!", "???@x.io", "user"},
		{"Ana_Maria 2", "", "ana_maria_2"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, baseUsername(tt.name, tt.email), tt.name)
	}
}

func TestUniqueUsername(t *testing.T) {
	repos := newMemRepos()
	n := newTestSteps(repos, newStubLLM())
	ctx := context.Background()

	got, err := n.uniqueUsername(ctx, "Jane Doe", "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, "jane_doe", got)

	for _, taken := range usernameCandidates("jane_doe", "jane@example.com")[:3] {
		_, err := repos.CreateUser(ctx, &db.User{Email: taken + "@example.com", Username: taken})
		require.NoError(t, err)
	}
	got, err = n.uniqueUsername(ctx, "Jane Doe", "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, "jane_doe_3", got)

	candidates := usernameCandidates("jane_doe", "jane@example.com")
	require.Len(t, candidates, maxNumberedUsernames+2)
	for _, taken := range candidates[3:] {
		_, err := repos.CreateUser(ctx, &db.User{Email: taken + "@example.com", Username: taken})
		require.NoError(t, err)
	}
	got, err = n.uniqueUsername(ctx, "Jane Doe", "jane@example.com")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, "jane_doe_"))
	assert.Len(t, got, len("jane_doe_")+8)
}

func TestPromptParams(t *testing.T) {
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	gpa := 3.9
	data := &profileData{
		User: &db.User{UserGroup: db.UserGroupExperiencedChanging},
		Profile: &db.Profile{
			CareerGoals:      "",
			DesiredLocations: db.StringArray{"Berlin", "Remote"},
			Languages:        db.Languages{{Name: "English", Proficiency: "C2"}, {Name: "German"}},
		},
		JobExperiences: []db.JobExperience{
			{CompanyName: "Old Co", Position: "Intern", StartDate: db.NewDate(2015, time.June, 1), EndDate: db.NewDate(2016, time.June, 1), SkillsUsed: db.StringArray{"Python"}},
			{CompanyName: "Acme", Position: "Engineer", StartDate: db.NewDate(2020, time.January, 1), IsCurrent: true, SkillsUsed: db.StringArray{"Go", "Python"}},
			{CompanyName: "Side", Position: "Consultant"},
		},
		Courses:         []db.Course{{CourseName: "CKA", SkillsLearned: db.StringArray{"Kubernetes"}}},
		AcademicRecords: []db.AcademicRecord{{InstitutionName: "TU Delft", Degree: "MSc", FieldOfStudy: "CS", GPA: &gpa}},
	}

	p := promptParams(data, now)
	assert.Equal(t, "Engineer at Acme", p["CurrentRole"])
	assert.Equal(t, defaultCareerGoals, p["CareerGoals"])
	assert.Equal(t, "continue_path", p["CareerGoalType"])
	assert.Equal(t, "Go, Kubernetes, Python", p["Skills"])
	assert.Equal(t, "MSc in CS from TU Delft", p["Education"])
	assert.Equal(t, "Senior", p["ExperienceLevel"])
	assert.Equal(t, "experienced_changing", p["UserGroup"])
	assert.Equal(t, "Berlin, Remote", p["JobSearchLocations"])
	assert.Equal(t, notSpecified, p["CurrentLocation"])
	assert.Equal(t, "English (C2), German (N/A)", p["Languages"])
	assert.Equal(t, "No courses provided.", strings.TrimSpace(formatCourses(nil)))
	assert.Contains(t, p["AcademicRecords"], "GPA: 3.90")

	jobs := strings.Split(p["JobExperiences"], jobSeparator)
	require.Len(t, jobs, 3)
	assert.Contains(t, jobs[0], "Period: 2020-01-01 to Present")
	assert.Contains(t, jobs[1], "Period: 2015-06-01 to 2016-06-01")
	assert.Contains(t, jobs[2], "Period: Unknown to Present")
}

func TestExperienceLevel(t *testing.T) {
	assert.Equal(t, "Entry", experienceLevel(0))
	assert.Equal(t, "Mid", experienceLevel(2))
	assert.Equal(t, "Senior", experienceLevel(5))
	assert.Equal(t, "Expert", experienceLevel(12.5))
}
