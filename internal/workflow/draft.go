package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jonathan/career-navigator/internal/db"
)

// saveDraft persists the parsed bundle as a draft profile. Child records are
// replaced, so saving the same bundle twice never duplicates them. With no
// bundle it only resolves the profile id.
func (n *steps) saveDraft(ctx context.Context, s *State) error {
	b := s.ParsedRecord
	if b == nil {
		if !s.HasUser() {
			return nil
		}
		profile, err := n.repos.GetProfileByUserID(ctx, s.UserID)
		if err != nil {
			return err
		}
		if profile != nil {
			s.ProfileID = profile.ID
		}
		return nil
	}

	user, err := n.resolveUser(ctx, s)
	if err != nil {
		return err
	}
	s.UserID = user.ID

	group := classifyUser(len(b.JobExperiences) > 0, b.HasGoals())
	if user.UserGroup != group {
		user.UserGroup = group
		if _, err := n.repos.UpdateUser(ctx, user); err != nil {
			return err
		}
	}

	profile, err := n.upsertProfile(ctx, s, b)
	if err != nil {
		return err
	}
	s.ProfileID = profile.ID

	if err := n.replaceChildren(ctx, s, b); err != nil {
		return err
	}

	s.IsDraft = true
	s.IsValidated = false
	s.Error = ""
	return nil
}

// resolveUser finds the user by id, then by email, and creates one otherwise.
func (n *steps) resolveUser(ctx context.Context, s *State) (*db.User, error) {
	if s.HasUser() {
		u, err := n.repos.GetUserByID(ctx, s.UserID)
		if err != nil {
			return nil, err
		}
		if u == nil {
			return nil, notFound("user", s.UserID)
		}
		return u, nil
	}

	email := strings.TrimSpace(s.CandidateEmail)
	if email == "" && s.ParsedRecord != nil {
		email = strings.TrimSpace(s.ParsedRecord.PersonalInfo.Email)
	}
	if email != "" {
		u, err := n.repos.GetUserByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		if u != nil {
			return u, nil
		}
	} else {
		email = placeholderEmail()
	}

	name := s.CandidateName
	if name == "" && s.ParsedRecord != nil {
		name = s.ParsedRecord.PersonalInfo.Name
	}
	username, err := n.uniqueUsername(ctx, name, email)
	if err != nil {
		return nil, err
	}

	created, err := n.repos.CreateUser(ctx, &db.User{
		Email:     email,
		Username:  username,
		Name:      name,
		UserGroup: db.UserGroupInexperiencedNoGoal,
	})
	if err != nil {
		return nil, err
	}
	n.logger.Info("created user", "user_id", created.ID, "username", created.Username)
	return created, nil
}

// placeholderEmail returns a unique address for candidates without one.
func placeholderEmail() string {
	return fmt.Sprintf("candidate-%s@placeholder.invalid", strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// classifyUser maps (has jobs, has goals) to a user group.
func classifyUser(hasJobs, hasGoals bool) db.UserGroup {
	switch {
	case hasJobs && hasGoals:
		return db.UserGroupExperiencedChanging
	case hasJobs:
		return db.UserGroupExperiencedContinuing
	case hasGoals:
		return db.UserGroupInexperiencedWithGoal
	default:
		return db.UserGroupInexperiencedNoGoal
	}
}

func (n *steps) upsertProfile(ctx context.Context, s *State, b *Bundle) (*db.Profile, error) {
	existing, err := n.repos.GetProfileByUserID(ctx, s.UserID)
	if err != nil {
		return nil, err
	}
	p := existing
	if p == nil {
		p = &db.Profile{UserID: s.UserID}
	}
	applyBundle(p, b)

	switch s.InputKind {
	case InputNetworkProfile:
		p.NetworkProfileData = s.RawText
	default:
		p.CVContent = s.RawText
	}
	if s.SourceURL != "" {
		p.NetworkProfileURL = s.SourceURL
	}
	if !p.CareerGoalType.Valid() {
		p.CareerGoalType = db.CareerGoalContinuePath
	}
	p.IsDraft = true
	p.IsValidated = false

	if existing == nil {
		return n.repos.CreateProfile(ctx, p)
	}
	updated, err := n.repos.UpdateProfile(ctx, p)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, &NotFoundError{Entity: "profile", ID: p.ID.String()}
	}
	return updated, nil
}

// applyBundle overwrites profile fields with extracted values.
func applyBundle(p *db.Profile, b *Bundle) {
	info := b.PersonalInfo
	p.CareerGoals = b.CareerGoals
	p.ShortTermGoals = b.ShortTermGoals
	p.LongTermGoals = b.LongTermGoals
	p.LifeProfile = b.LifeProfile
	p.Age = info.Age
	p.BirthCountry = info.BirthCountry
	p.BirthCity = info.BirthCity
	p.CurrentLocation = info.CurrentLocation
	p.Languages = db.Languages(info.Languages)
	p.Culture = info.Culture
	p.Hobbies = db.StringArray(b.Hobbies)
	p.AdditionalInfo = b.AdditionalInfo
	if p.DesiredLocations == nil {
		p.DesiredLocations = db.StringArray{}
	}
	if p.JobSearchLocations == nil {
		p.JobSearchLocations = db.StringArray{}
	}
}

func (n *steps) replaceChildren(ctx context.Context, s *State, b *Bundle) error {
	children := &db.ChildRecords{
		JobExperiences:  make([]db.JobExperience, 0, len(b.JobExperiences)),
		Courses:         make([]db.Course, 0, len(b.Courses)),
		AcademicRecords: make([]db.AcademicRecord, 0, len(b.AcademicRecords)),
	}
	for _, j := range b.JobExperiences {
		children.JobExperiences = append(children.JobExperiences, db.JobExperience{
			UserID:       s.UserID,
			CompanyName:  j.CompanyName,
			Position:     j.Position,
			Description:  j.Description,
			StartDate:    db.ParseDate(j.StartDate),
			EndDate:      db.ParseDate(j.EndDate),
			IsCurrent:    j.IsCurrent,
			Location:     j.Location,
			Achievements: db.StringArray(j.Achievements),
			SkillsUsed:   db.StringArray(j.SkillsUsed),
		})
	}
	for _, c := range b.Courses {
		children.Courses = append(children.Courses, db.Course{
			UserID:         s.UserID,
			CourseName:     c.CourseName,
			Institution:    c.Institution,
			Provider:       c.Provider,
			Description:    c.Description,
			CompletionDate: db.ParseDate(c.CompletionDate),
			CertificateURL: c.CertificateURL,
			SkillsLearned:  db.StringArray(c.SkillsLearned),
			DurationHours:  c.DurationHours,
		})
	}
	for _, a := range b.AcademicRecords {
		children.AcademicRecords = append(children.AcademicRecords, db.AcademicRecord{
			UserID:          s.UserID,
			InstitutionName: a.InstitutionName,
			Degree:          a.Degree,
			FieldOfStudy:    a.FieldOfStudy,
			StartDate:       db.ParseDate(a.StartDate),
			EndDate:         db.ParseDate(a.EndDate),
			GPA:             a.GPA,
			Honors:          a.Honors,
			Description:     a.Description,
			Location:        a.Location,
		})
	}

	created, err := n.repos.ReplaceChildren(ctx, s.UserID, children)
	if err != nil {
		return err
	}

	s.JobExperienceIDs = make([]uuid.UUID, 0, len(created.JobExperiences))
	for _, j := range created.JobExperiences {
		s.JobExperienceIDs = append(s.JobExperienceIDs, j.ID)
	}
	s.CourseIDs = make([]uuid.UUID, 0, len(created.Courses))
	for _, c := range created.Courses {
		s.CourseIDs = append(s.CourseIDs, c.ID)
	}
	s.AcademicRecordIDs = make([]uuid.UUID, 0, len(created.AcademicRecords))
	for _, a := range created.AcademicRecords {
		s.AcademicRecordIDs = append(s.AcademicRecordIDs, a.ID)
	}
	return nil
}
