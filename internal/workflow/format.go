package workflow

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jonathan/career-navigator/internal/db"
)

const (
	notSpecified       = "Not specified"
	defaultCareerGoals = "Continue current career path"
	jobSeparator       = "\n---\n"
)

// promptParams builds the generation prompt values from a profile. Every
// generation prompt draws from this one set.
func promptParams(d *profileData, now time.Time) map[string]string {
	p := d.Profile
	jobs := sortJobs(d.JobExperiences)

	desired := joinOr([]string(p.DesiredLocations), notSpecified)
	searchLocations := joinOr([]string(p.JobSearchLocations), desired)

	goalType := p.CareerGoalType
	if goalType == "" {
		goalType = db.CareerGoalContinuePath
	}
	userGroup := notSpecified
	if d.User != nil && d.User.UserGroup != "" {
		userGroup = string(d.User.UserGroup)
	}

	return map[string]string{
		"CurrentRole":        currentRole(jobs),
		"CareerGoals":        orDefault(p.CareerGoals, defaultCareerGoals),
		"CareerGoalType":     string(goalType),
		"LongTermGoals":      orDefault(p.LongTermGoals, notSpecified),
		"Skills":             joinOr(collectSkills(jobs, d.Courses), notSpecified),
		"Education":          educationSummary(d.AcademicRecords),
		"ExperienceLevel":    experienceLevel(totalYears(jobs, now)),
		"UserGroup":          userGroup,
		"JobSearchLocations": searchLocations,
		"CurrentLocation":    orDefault(p.CurrentLocation, notSpecified),
		"DesiredLocations":   desired,
		"JobExperiences":     formatJobExperiences(jobs),
		"AcademicRecords":    formatAcademicRecords(d.AcademicRecords),
		"Courses":            formatCourses(d.Courses),
		"Languages":          formatLanguages(p.Languages),
		"AdditionalInfo":     orDefault(p.AdditionalInfo, notSpecified),
	}
}

// sortJobs returns jobs newest first by start date; undated jobs go last.
func sortJobs(jobs []db.JobExperience) []db.JobExperience {
	out := append([]db.JobExperience(nil), jobs...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].StartDate, out[j].StartDate
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(b.Time)
		}
	})
	return out
}

func currentRole(jobs []db.JobExperience) string {
	if len(jobs) == 0 {
		return notSpecified
	}
	return fmt.Sprintf("%s at %s", orDefault(jobs[0].Position, "N/A"), orDefault(jobs[0].CompanyName, "N/A"))
}

// collectSkills merges job and course skills, deduplicated and sorted.
func collectSkills(jobs []db.JobExperience, courses []db.Course) []string {
	seen := map[string]bool{}
	var skills []string
	add := func(list []string) {
		for _, s := range list {
			s = strings.TrimSpace(s)
			if s != "" && !seen[s] {
				seen[s] = true
				skills = append(skills, s)
			}
		}
	}
	for _, j := range jobs {
		add(j.SkillsUsed)
	}
	for _, c := range courses {
		add(c.SkillsLearned)
	}
	sort.Strings(skills)
	return skills
}

func educationSummary(records []db.AcademicRecord) string {
	var parts []string
	for _, a := range records {
		var b strings.Builder
		b.WriteString(orDefault(a.Degree, "Studies"))
		if a.FieldOfStudy != "" {
			b.WriteString(" in " + a.FieldOfStudy)
		}
		if a.InstitutionName != "" {
			b.WriteString(" from " + a.InstitutionName)
		}
		parts = append(parts, b.String())
	}
	return joinWithOr(parts, "; ", notSpecified)
}

// totalYears sums job durations. Open-ended jobs run until now.
func totalYears(jobs []db.JobExperience, now time.Time) float64 {
	var total time.Duration
	for _, j := range jobs {
		if j.StartDate == nil {
			continue
		}
		end := now
		if j.EndDate != nil && !j.IsCurrent {
			end = j.EndDate.Time
		}
		if end.After(j.StartDate.Time) {
			total += end.Sub(j.StartDate.Time)
		}
	}
	return total.Hours() / (24 * 365.25)
}

func experienceLevel(years float64) string {
	switch {
	case years < 2:
		return "Entry"
	case years < 5:
		return "Mid"
	case years < 10:
		return "Senior"
	default:
		return "Expert"
	}
}

func formatJobExperiences(jobs []db.JobExperience) string {
	if len(jobs) == 0 {
		return "No job experience provided."
	}
	out := make([]string, 0, len(jobs))
	for _, j := range jobs {
		var b strings.Builder
		fmt.Fprintf(&b, "Position: %s\n", orDefault(j.Position, "N/A"))
		fmt.Fprintf(&b, "Company: %s\n", orDefault(j.CompanyName, "N/A"))
		end := j.EndDate.String()
		if end == "" || j.IsCurrent {
			end = "Present"
		}
		fmt.Fprintf(&b, "Period: %s to %s\n", orDefault(j.StartDate.String(), "Unknown"), end)
		if j.Description != "" {
			fmt.Fprintf(&b, "Description: %s\n", j.Description)
		}
		if len(j.Achievements) > 0 {
			fmt.Fprintf(&b, "Achievements: %s\n", strings.Join(j.Achievements, ", "))
		}
		if len(j.SkillsUsed) > 0 {
			fmt.Fprintf(&b, "Skills: %s\n", strings.Join(j.SkillsUsed, ", "))
		}
		out = append(out, b.String())
	}
	return strings.Join(out, jobSeparator)
}

func formatAcademicRecords(records []db.AcademicRecord) string {
	if len(records) == 0 {
		return "No academic records provided."
	}
	out := make([]string, 0, len(records))
	for _, a := range records {
		var b strings.Builder
		fmt.Fprintf(&b, "Institution: %s\n", orDefault(a.InstitutionName, "N/A"))
		if a.Degree != "" {
			fmt.Fprintf(&b, "Degree: %s\n", a.Degree)
		}
		if a.FieldOfStudy != "" {
			fmt.Fprintf(&b, "Field: %s\n", a.FieldOfStudy)
		}
		if a.GPA != nil {
			fmt.Fprintf(&b, "GPA: %.2f\n", *a.GPA)
		}
		out = append(out, b.String())
	}
	return strings.Join(out, jobSeparator)
}

func formatCourses(courses []db.Course) string {
	if len(courses) == 0 {
		return "No courses provided."
	}
	out := make([]string, 0, len(courses))
	for _, c := range courses {
		var b strings.Builder
		fmt.Fprintf(&b, "Course: %s\n", orDefault(c.CourseName, "N/A"))
		if c.Provider != "" {
			fmt.Fprintf(&b, "Provider: %s\n", c.Provider)
		}
		if len(c.SkillsLearned) > 0 {
			fmt.Fprintf(&b, "Skills: %s\n", strings.Join(c.SkillsLearned, ", "))
		}
		out = append(out, b.String())
	}
	return strings.Join(out, jobSeparator)
}

func formatLanguages(langs db.Languages) string {
	parts := make([]string, 0, len(langs))
	for _, l := range langs {
		parts = append(parts, fmt.Sprintf("%s (%s)", orDefault(l.Name, "N/A"), orDefault(l.Proficiency, "N/A")))
	}
	return joinWithOr(parts, ", ", notSpecified)
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

func joinOr(items []string, fallback string) string {
	return joinWithOr(items, ", ", fallback)
}

func joinWithOr(items []string, sep, fallback string) string {
	if len(items) == 0 {
		return fallback
	}
	return strings.Join(items, sep)
}
