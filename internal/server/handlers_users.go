package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/jonathan/career-navigator/internal/db"
	"github.com/jonathan/career-navigator/internal/workflow"
)

// -----------------------------------------------------------------------------
// Users and profiles
// -----------------------------------------------------------------------------

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userFromPath(w, r)
	if !ok {
		return
	}
	user, err := s.store.GetUserByID(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if user == nil {
		s.writeError(w, r, &workflow.NotFoundError{Entity: "user", ID: userID.String()})
		return
	}
	s.jsonResponse(w, http.StatusOK, user)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userFromPath(w, r)
	if !ok {
		return
	}
	profile, err := s.profileOf(r, userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, profile)
}

// handleUpdateProfile applies a partial edit to the stored profile. The
// review flags are not writable, and any edit clears is_validated.
func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userFromPath(w, r)
	if !ok {
		return
	}
	profile, err := s.profileOf(r, userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	id, isDraft := profile.ID, profile.IsDraft
	if err := decodeJSON(w, r, profile); err != nil {
		s.writeError(w, r, err)
		return
	}
	profile.ID, profile.UserID = id, userID
	profile.IsDraft, profile.IsValidated = isDraft, false
	if profile.CareerGoalType == "" {
		profile.CareerGoalType = db.CareerGoalContinuePath
	}
	if !profile.CareerGoalType.Valid() {
		s.writeError(w, r, &ErrValidation{Field: "career_goal_type", Message: fmt.Sprintf("unknown goal type %q", profile.CareerGoalType)})
		return
	}

	updated, err := s.store.UpdateProfile(r.Context(), profile)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if updated == nil {
		s.writeError(w, r, &workflow.NotFoundError{Entity: "profile", ID: userID.String()})
		return
	}
	s.jsonResponse(w, http.StatusOK, updated)
}

// invalidateProfile clears is_validated after a child record changed, so the
// profile has to pass validation again before generation.
func (s *Server) invalidateProfile(r *http.Request, userID uuid.UUID) error {
	profile, err := s.store.GetProfileByUserID(r.Context(), userID)
	if err != nil || profile == nil || !profile.IsValidated {
		return err
	}
	profile.IsValidated = false
	_, err = s.store.UpdateProfile(r.Context(), profile)
	return err
}

func (s *Server) profileOf(r *http.Request, userID uuid.UUID) (*db.Profile, error) {
	profile, err := s.store.GetProfileByUserID(r.Context(), userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, &workflow.NotFoundError{Entity: "profile", ID: userID.String()}
	}
	return profile, nil
}

// recordFromPath parses {id} and loads the record, hiding records that
// belong to another user behind a 404.
func recordFromPath[T any](r *http.Request, userID uuid.UUID, entity string,
	get func(*http.Request, uuid.UUID) (*T, error), owner func(*T) uuid.UUID) (*T, error) {
	id, err := pathUUID(r, "id")
	if err != nil {
		return nil, err
	}
	record, err := get(r, id)
	if err != nil {
		return nil, err
	}
	if record == nil || owner(record) != userID {
		return nil, &workflow.NotFoundError{Entity: entity, ID: id.String()}
	}
	return record, nil
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &ErrValidation{Field: field, Message: "is required"}
	}
	return nil
}

// -----------------------------------------------------------------------------
// Job experiences
// -----------------------------------------------------------------------------

func (s *Server) getJob(r *http.Request, id uuid.UUID) (*db.JobExperience, error) {
	return s.store.GetJobExperienceByID(r.Context(), id)
}

func jobOwner(j *db.JobExperience) uuid.UUID { return j.UserID }

func validateJob(j *db.JobExperience) error {
	if err := required("company_name", j.CompanyName); err != nil {
		return err
	}
	return required("position", j.Position)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userFromPath(w, r)
	if !ok {
		return
	}
	jobs, err := s.store.ListJobExperiencesByUserID(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"jobs": jobs, "count": len(jobs)})
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userFromPath(w, r)
	if !ok {
		return
	}
	var job db.JobExperience
	if err := decodeJSON(w, r, &job); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := validateJob(&job); err != nil {
		s.writeError(w, r, err)
		return
	}
	job.ID, job.UserID = uuid.Nil, userID

	created, err := s.store.CreateJobExperience(r.Context(), &job)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.invalidateProfile(r, userID); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateJob(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userFromPath(w, r)
	if !ok {
		return
	}
	job, err := recordFromPath(r, userID, "job experience", s.getJob, jobOwner)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id := job.ID
	if err := decodeJSON(w, r, job); err != nil {
		s.writeError(w, r, err)
		return
	}
	job.ID, job.UserID = id, userID
	if err := validateJob(job); err != nil {
		s.writeError(w, r, err)
		return
	}

	updated, err := s.store.UpdateJobExperience(r.Context(), job)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if updated == nil {
		s.writeError(w, r, &workflow.NotFoundError{Entity: "job experience", ID: id.String()})
		return
	}
	if err := s.invalidateProfile(r, userID); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userFromPath(w, r)
	if !ok {
		return
	}
	job, err := recordFromPath(r, userID, "job experience", s.getJob, jobOwner)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.DeleteJobExperience(r.Context(), job.ID); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.invalidateProfile(r, userID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// -----------------------------------------------------------------------------
// Courses
// -----------------------------------------------------------------------------

func (s *Server) getCourse(r *http.Request, id uuid.UUID) (*db.Course, error) {
	return s.store.GetCourseByID(r.Context(), id)
}

func courseOwner(c *db.Course) uuid.UUID { return c.UserID }

func (s *Server) handleListCourses(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userFromPath(w, r)
	if !ok {
		return
	}
	courses, err := s.store.ListCoursesByUserID(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"courses": courses, "count": len(courses)})
}

func (s *Server) handleCreateCourse(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userFromPath(w, r)
	if !ok {
		return
	}
	var course db.Course
	if err := decodeJSON(w, r, &course); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := required("course_name", course.CourseName); err != nil {
		s.writeError(w, r, err)
		return
	}
	course.ID, course.UserID = uuid.Nil, userID

	created, err := s.store.CreateCourse(r.Context(), &course)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.invalidateProfile(r, userID); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateCourse(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userFromPath(w, r)
	if !ok {
		return
	}
	course, err := recordFromPath(r, userID, "course", s.getCourse, courseOwner)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id := course.ID
	if err := decodeJSON(w, r, course); err != nil {
		s.writeError(w, r, err)
		return
	}
	course.ID, course.UserID = id, userID
	if err := required("course_name", course.CourseName); err != nil {
		s.writeError(w, r, err)
		return
	}

	updated, err := s.store.UpdateCourse(r.Context(), course)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if updated == nil {
		s.writeError(w, r, &workflow.NotFoundError{Entity: "course", ID: id.String()})
		return
	}
	if err := s.invalidateProfile(r, userID); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteCourse(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userFromPath(w, r)
	if !ok {
		return
	}
	course, err := recordFromPath(r, userID, "course", s.getCourse, courseOwner)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.DeleteCourse(r.Context(), course.ID); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.invalidateProfile(r, userID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// -----------------------------------------------------------------------------
// Academic records
// -----------------------------------------------------------------------------

func (s *Server) getAcademicRecord(r *http.Request, id uuid.UUID) (*db.AcademicRecord, error) {
	return s.store.GetAcademicRecordByID(r.Context(), id)
}

func academicOwner(a *db.AcademicRecord) uuid.UUID { return a.UserID }

func (s *Server) handleListAcademicRecords(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userFromPath(w, r)
	if !ok {
		return
	}
	records, err := s.store.ListAcademicRecordsByUserID(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"academic_records": records, "count": len(records)})
}

func (s *Server) handleCreateAcademicRecord(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userFromPath(w, r)
	if !ok {
		return
	}
	var record db.AcademicRecord
	if err := decodeJSON(w, r, &record); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := required("institution_name", record.InstitutionName); err != nil {
		s.writeError(w, r, err)
		return
	}
	record.ID, record.UserID = uuid.Nil, userID

	created, err := s.store.CreateAcademicRecord(r.Context(), &record)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.invalidateProfile(r, userID); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateAcademicRecord(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userFromPath(w, r)
	if !ok {
		return
	}
	record, err := recordFromPath(r, userID, "academic record", s.getAcademicRecord, academicOwner)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id := record.ID
	if err := decodeJSON(w, r, record); err != nil {
		s.writeError(w, r, err)
		return
	}
	record.ID, record.UserID = id, userID
	if err := required("institution_name", record.InstitutionName); err != nil {
		s.writeError(w, r, err)
		return
	}

	updated, err := s.store.UpdateAcademicRecord(r.Context(), record)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if updated == nil {
		s.writeError(w, r, &workflow.NotFoundError{Entity: "academic record", ID: id.String()})
		return
	}
	if err := s.invalidateProfile(r, userID); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteAcademicRecord(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userFromPath(w, r)
	if !ok {
		return
	}
	record, err := recordFromPath(r, userID, "academic record", s.getAcademicRecord, academicOwner)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.DeleteAcademicRecord(r.Context(), record.ID); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.invalidateProfile(r, userID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// -----------------------------------------------------------------------------
// Generated products
// -----------------------------------------------------------------------------

// handleListProducts lists stored artifacts, optionally filtered by ?type=.
func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userFromPath(w, r)
	if !ok {
		return
	}
	productType := db.ProductType(r.URL.Query().Get("type"))
	if productType != "" && !productType.Valid() {
		s.writeError(w, r, &ErrValidation{Field: "type", Message: fmt.Sprintf("unknown product type %q", productType)})
		return
	}
	products, err := s.store.ListProductsByUserID(r.Context(), userID, productType)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"products": products, "count": len(products)})
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userFromPath(w, r)
	if !ok {
		return
	}
	product, err := recordFromPath(r, userID, "product",
		func(r *http.Request, id uuid.UUID) (*db.GeneratedProduct, error) {
			return s.store.GetProductByID(r.Context(), id)
		},
		func(p *db.GeneratedProduct) uuid.UUID { return p.UserID })
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, product)
}
