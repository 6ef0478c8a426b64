package db

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// UserGroup classifies a user by experience and goal clarity.
type UserGroup string

// User group constants
const (
	UserGroupExperiencedContinuing UserGroup = "experienced_continuing"
	UserGroupExperiencedChanging   UserGroup = "experienced_changing"
	UserGroupInexperiencedWithGoal UserGroup = "inexperienced_with_goal"
	UserGroupInexperiencedNoGoal   UserGroup = "inexperienced_no_goal"
)

// CareerGoalType describes the direction a user wants to take.
type CareerGoalType string

// Career goal type constants
const (
	CareerGoalContinuePath   CareerGoalType = "continue_path"
	CareerGoalChangeCareer   CareerGoalType = "change_career"
	CareerGoalChangeArea     CareerGoalType = "change_area"
	CareerGoalExploreOptions CareerGoalType = "explore_options"
)

// Valid reports whether g is one of the known goal types.
func (g CareerGoalType) Valid() bool {
	switch g {
	case CareerGoalContinuePath, CareerGoalChangeCareer, CareerGoalChangeArea, CareerGoalExploreOptions:
		return true
	}
	return false
}

// User represents an account
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	Name         string    `json:"name,omitempty"`
	UserGroup    UserGroup `json:"user_group"`
	PasswordHash string    `json:"-" db:"password_hash"` // Never serialize to JSON
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Language is a spoken language with a proficiency label
type Language struct {
	Name        string `json:"name"`
	Proficiency string `json:"proficiency,omitempty"`
}

// Profile holds the career data of one user. Exactly one per user.
type Profile struct {
	ID                 uuid.UUID      `json:"id"`
	UserID             uuid.UUID      `json:"user_id"`
	CareerGoals        string         `json:"career_goals,omitempty"`
	ShortTermGoals     string         `json:"short_term_goals,omitempty"`
	LongTermGoals      string         `json:"long_term_goals,omitempty"`
	CVContent          string         `json:"cv_content,omitempty"`
	NetworkProfileURL  string         `json:"network_profile_url,omitempty"`
	NetworkProfileData string         `json:"network_profile_data,omitempty"`
	LifeProfile        string         `json:"life_profile,omitempty"`
	Age                *int           `json:"age,omitempty"`
	BirthCountry       string         `json:"birth_country,omitempty"`
	BirthCity          string         `json:"birth_city,omitempty"`
	CurrentLocation    string         `json:"current_location,omitempty"`
	DesiredLocations   StringArray    `json:"desired_job_locations"`
	JobSearchLocations StringArray    `json:"job_search_locations"`
	Languages          Languages      `json:"languages"`
	Culture            string         `json:"culture,omitempty"`
	Hobbies            StringArray    `json:"hobbies"`
	AdditionalInfo     string         `json:"additional_info,omitempty"`
	CareerGoalType     CareerGoalType `json:"career_goal_type"`
	IsDraft            bool           `json:"is_draft"`
	IsValidated        bool           `json:"is_validated"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// JobExperience represents an employment history entry
type JobExperience struct {
	ID           uuid.UUID   `json:"id"`
	UserID       uuid.UUID   `json:"user_id"`
	CompanyName  string      `json:"company_name"`
	Position     string      `json:"position"`
	Description  string      `json:"description,omitempty"`
	StartDate    *Date       `json:"start_date,omitempty"`
	EndDate      *Date       `json:"end_date,omitempty"`
	IsCurrent    bool        `json:"is_current"`
	Location     string      `json:"location,omitempty"`
	Achievements StringArray `json:"achievements"`
	SkillsUsed   StringArray `json:"skills_used"`
	CreatedAt    time.Time   `json:"created_at"`
}

// Course represents a course or certification
type Course struct {
	ID             uuid.UUID   `json:"id"`
	UserID         uuid.UUID   `json:"user_id"`
	CourseName     string      `json:"course_name"`
	Institution    string      `json:"institution,omitempty"`
	Provider       string      `json:"provider,omitempty"`
	Description    string      `json:"description,omitempty"`
	CompletionDate *Date       `json:"completion_date,omitempty"`
	CertificateURL string      `json:"certificate_url,omitempty"`
	SkillsLearned  StringArray `json:"skills_learned"`
	DurationHours  *float64    `json:"duration_hours,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}

// AcademicRecord represents a degree or school entry
type AcademicRecord struct {
	ID              uuid.UUID `json:"id"`
	UserID          uuid.UUID `json:"user_id"`
	InstitutionName string    `json:"institution_name"`
	Degree          string    `json:"degree,omitempty"`
	FieldOfStudy    string    `json:"field_of_study,omitempty"`
	StartDate       *Date     `json:"start_date,omitempty"`
	EndDate         *Date     `json:"end_date,omitempty"`
	GPA             *float64  `json:"gpa,omitempty"`
	Honors          string    `json:"honors,omitempty"`
	Description     string    `json:"description,omitempty"`
	Location        string    `json:"location,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Date is a custom type for handling SQL DATE (YYYY-MM-DD)
type Date struct {
	time.Time
}

// NewDate builds a Date at midnight UTC.
func NewDate(year int, month time.Month, day int) *Date {
	return &Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses YYYY-MM-DD. Blank or malformed input yields nil.
func ParseDate(s string) *Date {
	if s == "" {
		return nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return nil
	}
	return &Date{Time: t}
}

// DateLayout is the wire format for dates
const DateLayout = "2006-01-02"

// String formats the date as YYYY-MM-DD
func (d *Date) String() string {
	if d == nil || d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// Scan implements the Scanner interface
func (d *Date) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	t, ok := value.(time.Time)
	if !ok {
		return errors.New("failed to scan Date")
	}
	d.Time = t
	return nil
}

// Value implements the Valuer interface
func (d *Date) Value() (driver.Value, error) {
	if d == nil || d.IsZero() {
		return nil, nil
	}
	return d.Time, nil
}

// MarshalJSON implements json.Marshaler
func (d *Date) MarshalJSON() ([]byte, error) {
	if d == nil || d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(DateLayout))
}

// UnmarshalJSON implements json.Unmarshaler
func (d *Date) UnmarshalJSON(data []byte) error {
	str := string(data)
	if str == "null" || str == `""` {
		return nil
	}
	if len(str) > 2 && str[0] == '"' && str[len(str)-1] == '"' {
		str = str[1 : len(str)-1]
	}
	var err error
	d.Time, err = time.Parse(DateLayout, str)
	return err
}

// StringArray handles JSONB string arrays
type StringArray []string

// Scan implements the Scanner interface for StringArray
func (a *StringArray) Scan(src interface{}) error {
	if src == nil {
		*a = []string{}
		return nil
	}
	source, err := jsonBytes(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(source, a)
}

// Value implements the Valuer interface for StringArray
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(a)
}

// Languages handles the JSONB languages column
type Languages []Language

// Scan implements the Scanner interface for Languages
func (l *Languages) Scan(src interface{}) error {
	if src == nil {
		*l = Languages{}
		return nil
	}
	source, err := jsonBytes(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(source, l)
}

// Value implements the Valuer interface for Languages
func (l Languages) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

// jsonBytes accepts the representations pgx hands to sql.Scanner for JSONB
func jsonBytes(src interface{}) ([]byte, error) {
	switch v := src.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, errors.New("type assertion .([]byte) failed")
	}
}
