package workflow

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jonathan/career-navigator/internal/db"
)

// Bundle is the structured record extracted from raw profile text.
// Dates are YYYY-MM-DD or empty.
type Bundle struct {
	PersonalInfo    PersonalInfo     `json:"personal_info"`
	CareerGoals     string           `json:"career_goals,omitempty"`
	ShortTermGoals  string           `json:"short_term_goals,omitempty"`
	LongTermGoals   string           `json:"long_term_goals,omitempty"`
	JobExperiences  []BundleJob      `json:"job_experiences"`
	Courses         []BundleCourse   `json:"courses"`
	AcademicRecords []BundleAcademic `json:"academic_records"`
	LifeProfile     string           `json:"life_profile,omitempty"`
	Hobbies         []string         `json:"hobbies"`
	AdditionalInfo  string           `json:"additional_info,omitempty"`
}

// PersonalInfo holds identity and background fields of a bundle
type PersonalInfo struct {
	Name            string        `json:"name,omitempty"`
	Email           string        `json:"email,omitempty"`
	Age             *int          `json:"age,omitempty"`
	BirthCountry    string        `json:"birth_country,omitempty"`
	BirthCity       string        `json:"birth_city,omitempty"`
	CurrentLocation string        `json:"current_location,omitempty"`
	Languages       []db.Language `json:"languages"`
	Culture         string        `json:"culture,omitempty"`
}

// BundleJob is one extracted job experience
type BundleJob struct {
	CompanyName  string   `json:"company_name"`
	Position     string   `json:"position,omitempty"`
	Description  string   `json:"description,omitempty"`
	StartDate    string   `json:"start_date,omitempty"`
	EndDate      string   `json:"end_date,omitempty"`
	IsCurrent    bool     `json:"is_current"`
	Location     string   `json:"location,omitempty"`
	Achievements []string `json:"achievements"`
	SkillsUsed   []string `json:"skills_used"`
}

// BundleCourse is one extracted course or certification
type BundleCourse struct {
	CourseName     string   `json:"course_name"`
	Institution    string   `json:"institution,omitempty"`
	Provider       string   `json:"provider,omitempty"`
	Description    string   `json:"description,omitempty"`
	CompletionDate string   `json:"completion_date,omitempty"`
	CertificateURL string   `json:"certificate_url,omitempty"`
	SkillsLearned  []string `json:"skills_learned"`
	DurationHours  *float64 `json:"duration_hours,omitempty"`
}

// BundleAcademic is one extracted academic record
type BundleAcademic struct {
	InstitutionName string   `json:"institution_name"`
	Degree          string   `json:"degree,omitempty"`
	FieldOfStudy    string   `json:"field_of_study,omitempty"`
	StartDate       string   `json:"start_date,omitempty"`
	EndDate         string   `json:"end_date,omitempty"`
	GPA             *float64 `json:"gpa,omitempty"`
	Honors          string   `json:"honors,omitempty"`
	Description     string   `json:"description,omitempty"`
	Location        string   `json:"location,omitempty"`
}

// HasGoals reports whether any goal text was extracted.
func (b *Bundle) HasGoals() bool {
	return strings.TrimSpace(b.CareerGoals) != "" ||
		strings.TrimSpace(b.ShortTermGoals) != "" ||
		strings.TrimSpace(b.LongTermGoals) != ""
}

// DecodeBundle parses model output into a Bundle. Numbers that arrive as
// strings are parsed when numeric and dropped otherwise, null lists become
// empty and malformed dates become empty.
func DecodeBundle(data []byte) (*Bundle, error) {
	var raw rawBundle
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode extraction bundle: %w", err)
	}
	return raw.bundle(), nil
}

type rawBundle struct {
	PersonalInfo *struct {
		Name            looseString `json:"name"`
		Email           looseString `json:"email"`
		Age             looseNumber `json:"age"`
		BirthCountry    looseString `json:"birth_country"`
		BirthCity       looseString `json:"birth_city"`
		CurrentLocation looseString `json:"current_location"`
		Languages       []struct {
			Name        looseString `json:"name"`
			Proficiency looseString `json:"proficiency"`
		} `json:"languages"`
		Culture looseString `json:"culture"`
	} `json:"personal_info"`
	CareerGoals    looseString `json:"career_goals"`
	ShortTermGoals looseString `json:"short_term_goals"`
	LongTermGoals  looseString `json:"long_term_goals"`
	JobExperiences []struct {
		CompanyName  looseString  `json:"company_name"`
		Position     looseString  `json:"position"`
		Description  looseString  `json:"description"`
		StartDate    looseString  `json:"start_date"`
		EndDate      looseString  `json:"end_date"`
		IsCurrent    looseBool    `json:"is_current"`
		Location     looseString  `json:"location"`
		Achievements looseStrings `json:"achievements"`
		SkillsUsed   looseStrings `json:"skills_used"`
	} `json:"job_experiences"`
	Courses []struct {
		CourseName     looseString  `json:"course_name"`
		Institution    looseString  `json:"institution"`
		Provider       looseString  `json:"provider"`
		Description    looseString  `json:"description"`
		CompletionDate looseString  `json:"completion_date"`
		CertificateURL looseString  `json:"certificate_url"`
		SkillsLearned  looseStrings `json:"skills_learned"`
		DurationHours  looseNumber  `json:"duration_hours"`
	} `json:"courses"`
	AcademicRecords []struct {
		InstitutionName looseString `json:"institution_name"`
		Degree          looseString `json:"degree"`
		FieldOfStudy    looseString `json:"field_of_study"`
		StartDate       looseString `json:"start_date"`
		EndDate         looseString `json:"end_date"`
		GPA             looseNumber `json:"gpa"`
		Honors          looseString `json:"honors"`
		Description     looseString `json:"description"`
		Location        looseString `json:"location"`
	} `json:"academic_records"`
	LifeProfile    looseString  `json:"life_profile"`
	Hobbies        looseStrings `json:"hobbies"`
	AdditionalInfo looseString  `json:"additional_info"`
}

func (r *rawBundle) bundle() *Bundle {
	b := &Bundle{
		CareerGoals:     string(r.CareerGoals),
		ShortTermGoals:  string(r.ShortTermGoals),
		LongTermGoals:   string(r.LongTermGoals),
		JobExperiences:  []BundleJob{},
		Courses:         []BundleCourse{},
		AcademicRecords: []BundleAcademic{},
		LifeProfile:     string(r.LifeProfile),
		Hobbies:         r.Hobbies.list(),
		AdditionalInfo:  string(r.AdditionalInfo),
	}
	b.PersonalInfo.Languages = []db.Language{}

	if p := r.PersonalInfo; p != nil {
		b.PersonalInfo.Name = string(p.Name)
		b.PersonalInfo.Email = string(p.Email)
		b.PersonalInfo.Age = p.Age.intPtr()
		b.PersonalInfo.BirthCountry = string(p.BirthCountry)
		b.PersonalInfo.BirthCity = string(p.BirthCity)
		b.PersonalInfo.CurrentLocation = string(p.CurrentLocation)
		b.PersonalInfo.Culture = string(p.Culture)
		for _, l := range p.Languages {
			if l.Name == "" {
				continue
			}
			b.PersonalInfo.Languages = append(b.PersonalInfo.Languages,
				db.Language{Name: string(l.Name), Proficiency: string(l.Proficiency)})
		}
	}

	for _, j := range r.JobExperiences {
		b.JobExperiences = append(b.JobExperiences, BundleJob{
			CompanyName:  string(j.CompanyName),
			Position:     string(j.Position),
			Description:  string(j.Description),
			StartDate:    cleanDate(string(j.StartDate)),
			EndDate:      cleanDate(string(j.EndDate)),
			IsCurrent:    bool(j.IsCurrent),
			Location:     string(j.Location),
			Achievements: j.Achievements.list(),
			SkillsUsed:   j.SkillsUsed.list(),
		})
	}
	for _, c := range r.Courses {
		b.Courses = append(b.Courses, BundleCourse{
			CourseName:     string(c.CourseName),
			Institution:    string(c.Institution),
			Provider:       string(c.Provider),
			Description:    string(c.Description),
			CompletionDate: cleanDate(string(c.CompletionDate)),
			CertificateURL: string(c.CertificateURL),
			SkillsLearned:  c.SkillsLearned.list(),
			DurationHours:  c.DurationHours.floatPtr(),
		})
	}
	for _, a := range r.AcademicRecords {
		b.AcademicRecords = append(b.AcademicRecords, BundleAcademic{
			InstitutionName: string(a.InstitutionName),
			Degree:          string(a.Degree),
			FieldOfStudy:    string(a.FieldOfStudy),
			StartDate:       cleanDate(string(a.StartDate)),
			EndDate:         cleanDate(string(a.EndDate)),
			GPA:             a.GPA.floatPtr(),
			Honors:          string(a.Honors),
			Description:     string(a.Description),
			Location:        string(a.Location),
		})
	}
	return b
}

// cleanDate keeps s only when it is a valid YYYY-MM-DD date.
func cleanDate(s string) string {
	if db.ParseDate(strings.TrimSpace(s)) == nil {
		return ""
	}
	return strings.TrimSpace(s)
}

// looseString accepts a string, null, number or bool.
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*s = ""
	case len(data) > 0 && data[0] == '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = looseString(strings.TrimSpace(v))
	case len(data) > 0 && (data[0] == '{' || data[0] == '['):
		*s = ""
	default:
		*s = looseString(data)
	}
	return nil
}

// looseNumber accepts a number or a numeric string. Anything else is unset.
type looseNumber struct {
	value float64
	set   bool
}

func (n *looseNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	text := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		*n = looseNumber{}
		return nil
	}
	*n = looseNumber{value: f, set: true}
	return nil
}

func (n looseNumber) floatPtr() *float64 {
	if !n.set {
		return nil
	}
	v := n.value
	return &v
}

func (n looseNumber) intPtr() *int {
	if !n.set {
		return nil
	}
	v := int(n.value)
	return &v
}

// looseBool accepts a bool, null or "true"/"false" string.
type looseBool bool

func (b *looseBool) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case bool:
		*b = looseBool(t)
	case string:
		parsed, _ := strconv.ParseBool(strings.TrimSpace(t))
		*b = looseBool(parsed)
	default:
		*b = false
	}
	return nil
}

// looseStrings accepts a list of scalars or null. Blank entries are dropped.
type looseStrings []looseString

func (l looseStrings) list() []string {
	out := make([]string, 0, len(l))
	for _, s := range l {
		if s != "" {
			out = append(out, string(s))
		}
	}
	return out
}
