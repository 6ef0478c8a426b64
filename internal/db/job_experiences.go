package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const jobColumns = `id, user_id, company_name, position, COALESCE(description, ''),
	start_date, end_date, is_current, COALESCE(location, ''), achievements, skills_used, created_at`

func scanJobExperience(row pgx.Row) (*JobExperience, error) {
	var j JobExperience
	err := row.Scan(&j.ID, &j.UserID, &j.CompanyName, &j.Position, &j.Description,
		&j.StartDate, &j.EndDate, &j.IsCurrent, &j.Location, &j.Achievements, &j.SkillsUsed, &j.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// CreateJobExperience inserts an employment entry
func (db *DB) CreateJobExperience(ctx context.Context, j *JobExperience) (*JobExperience, error) {
	return insertJobExperience(ctx, db.pool, j)
}

func insertJobExperience(ctx context.Context, q querier, j *JobExperience) (*JobExperience, error) {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	created, err := scanJobExperience(q.QueryRow(ctx,
		`INSERT INTO job_experiences (id, user_id, company_name, position, description,
			start_date, end_date, is_current, location, achievements, skills_used)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING `+jobColumns,
		j.ID, j.UserID, j.CompanyName, j.Position, nullIfEmpty(j.Description),
		j.StartDate, j.EndDate, j.IsCurrent, nullIfEmpty(j.Location), j.Achievements, j.SkillsUsed,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create job experience: %w", err)
	}
	return created, nil
}

// GetJobExperienceByID retrieves an entry by ID. Returns nil, nil when absent.
func (db *DB) GetJobExperienceByID(ctx context.Context, id uuid.UUID) (*JobExperience, error) {
	j, err := scanJobExperience(db.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM job_experiences WHERE id = $1`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job experience: %w", err)
	}
	return j, nil
}

// ListJobExperiencesByUserID returns a user's entries, most recent start first
func (db *DB) ListJobExperiencesByUserID(ctx context.Context, userID uuid.UUID) ([]JobExperience, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM job_experiences
		 WHERE user_id = $1
		 ORDER BY start_date DESC NULLS LAST, created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list job experiences: %w", err)
	}
	defer rows.Close()

	var jobs []JobExperience
	for rows.Next() {
		j, err := scanJobExperience(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job experience: %w", err)
		}
		jobs = append(jobs, *j)
	}
	return jobs, rows.Err()
}

// UpdateJobExperience overwrites an entry. Returns nil, nil when absent.
func (db *DB) UpdateJobExperience(ctx context.Context, j *JobExperience) (*JobExperience, error) {
	updated, err := scanJobExperience(db.pool.QueryRow(ctx,
		`UPDATE job_experiences SET company_name = $2, position = $3, description = $4,
			start_date = $5, end_date = $6, is_current = $7, location = $8,
			achievements = $9, skills_used = $10
		 WHERE id = $1
		 RETURNING `+jobColumns,
		j.ID, j.CompanyName, j.Position, nullIfEmpty(j.Description),
		j.StartDate, j.EndDate, j.IsCurrent, nullIfEmpty(j.Location), j.Achievements, j.SkillsUsed,
	))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update job experience: %w", err)
	}
	return updated, nil
}

// DeleteJobExperience removes an entry by ID
func (db *DB) DeleteJobExperience(ctx context.Context, id uuid.UUID) error {
	_, err := db.pool.Exec(ctx, `DELETE FROM job_experiences WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete job experience: %w", err)
	}
	return nil
}
