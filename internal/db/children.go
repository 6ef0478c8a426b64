package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/career-navigator/internal/logging"
)

// querier is satisfied by both the pool and a transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ChildRecords are the records attached to a user's profile
type ChildRecords struct {
	JobExperiences  []JobExperience
	Courses         []Course
	AcademicRecords []AcademicRecord
}

// ReplaceChildren swaps every job experience, course and academic record of
// userID for children in a single transaction. On error nothing changes.
// Records are stored under userID whatever their UserID field says.
func (db *DB) ReplaceChildren(ctx context.Context, userID uuid.UUID, children *ChildRecords) (*ChildRecords, error) {
	if children == nil {
		children = &ChildRecords{}
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rErr := tx.Rollback(ctx); rErr != nil && rErr != pgx.ErrTxClosed {
			logging.Logger().Warn("rollback failed", "user_id", userID, "error", rErr)
		}
	}()

	for _, table := range []string{"job_experiences", "courses", "academic_records"} {
		if _, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE user_id = $1`, userID); err != nil {
			return nil, fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	created := &ChildRecords{
		JobExperiences:  make([]JobExperience, 0, len(children.JobExperiences)),
		Courses:         make([]Course, 0, len(children.Courses)),
		AcademicRecords: make([]AcademicRecord, 0, len(children.AcademicRecords)),
	}
	for _, j := range children.JobExperiences {
		j.ID, j.UserID = uuid.Nil, userID
		row, err := insertJobExperience(ctx, tx, &j)
		if err != nil {
			return nil, err
		}
		created.JobExperiences = append(created.JobExperiences, *row)
	}
	for _, c := range children.Courses {
		c.ID, c.UserID = uuid.Nil, userID
		row, err := insertCourse(ctx, tx, &c)
		if err != nil {
			return nil, err
		}
		created.Courses = append(created.Courses, *row)
	}
	for _, a := range children.AcademicRecords {
		a.ID, a.UserID = uuid.Nil, userID
		row, err := insertAcademicRecord(ctx, tx, &a)
		if err != nil {
			return nil, err
		}
		created.AcademicRecords = append(created.AcademicRecords, *row)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit child records: %w", err)
	}
	return created, nil
}
