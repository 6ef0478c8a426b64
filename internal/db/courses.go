package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const courseColumns = `id, user_id, course_name, COALESCE(institution, ''), COALESCE(provider, ''),
	COALESCE(description, ''), completion_date, COALESCE(certificate_url, ''), skills_learned,
	duration_hours, created_at`

func scanCourse(row pgx.Row) (*Course, error) {
	var c Course
	err := row.Scan(&c.ID, &c.UserID, &c.CourseName, &c.Institution, &c.Provider,
		&c.Description, &c.CompletionDate, &c.CertificateURL, &c.SkillsLearned,
		&c.DurationHours, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateCourse inserts a course
func (db *DB) CreateCourse(ctx context.Context, c *Course) (*Course, error) {
	return insertCourse(ctx, db.pool, c)
}

func insertCourse(ctx context.Context, q querier, c *Course) (*Course, error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	created, err := scanCourse(q.QueryRow(ctx,
		`INSERT INTO courses (id, user_id, course_name, institution, provider, description,
			completion_date, certificate_url, skills_learned, duration_hours)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING `+courseColumns,
		c.ID, c.UserID, c.CourseName, nullIfEmpty(c.Institution), nullIfEmpty(c.Provider),
		nullIfEmpty(c.Description), c.CompletionDate, nullIfEmpty(c.CertificateURL),
		c.SkillsLearned, c.DurationHours,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create course: %w", err)
	}
	return created, nil
}

// GetCourseByID retrieves a course by ID. Returns nil, nil when absent.
func (db *DB) GetCourseByID(ctx context.Context, id uuid.UUID) (*Course, error) {
	c, err := scanCourse(db.pool.QueryRow(ctx,
		`SELECT `+courseColumns+` FROM courses WHERE id = $1`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	return c, nil
}

// ListCoursesByUserID returns a user's courses in insertion order
func (db *DB) ListCoursesByUserID(ctx context.Context, userID uuid.UUID) ([]Course, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+courseColumns+` FROM courses WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	defer rows.Close()

	var courses []Course
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan course: %w", err)
		}
		courses = append(courses, *c)
	}
	return courses, rows.Err()
}

// UpdateCourse overwrites a course. Returns nil, nil when absent.
func (db *DB) UpdateCourse(ctx context.Context, c *Course) (*Course, error) {
	updated, err := scanCourse(db.pool.QueryRow(ctx,
		`UPDATE courses SET course_name = $2, institution = $3, provider = $4, description = $5,
			completion_date = $6, certificate_url = $7, skills_learned = $8, duration_hours = $9
		 WHERE id = $1
		 RETURNING `+courseColumns,
		c.ID, c.CourseName, nullIfEmpty(c.Institution), nullIfEmpty(c.Provider),
		nullIfEmpty(c.Description), c.CompletionDate, nullIfEmpty(c.CertificateURL),
		c.SkillsLearned, c.DurationHours,
	))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update course: %w", err)
	}
	return updated, nil
}

// DeleteCourse removes a course by ID
func (db *DB) DeleteCourse(ctx context.Context, id uuid.UUID) error {
	if _, err := db.pool.Exec(ctx, `DELETE FROM courses WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete course: %w", err)
	}
	return nil
}
