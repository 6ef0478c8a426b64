package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const academicColumns = `id, user_id, institution_name, COALESCE(degree, ''), COALESCE(field_of_study, ''),
	start_date, end_date, gpa, COALESCE(honors, ''), COALESCE(description, ''), COALESCE(location, ''),
	created_at`

func scanAcademicRecord(row pgx.Row) (*AcademicRecord, error) {
	var a AcademicRecord
	err := row.Scan(&a.ID, &a.UserID, &a.InstitutionName, &a.Degree, &a.FieldOfStudy,
		&a.StartDate, &a.EndDate, &a.GPA, &a.Honors, &a.Description, &a.Location, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateAcademicRecord inserts an academic record
func (db *DB) CreateAcademicRecord(ctx context.Context, a *AcademicRecord) (*AcademicRecord, error) {
	return insertAcademicRecord(ctx, db.pool, a)
}

func insertAcademicRecord(ctx context.Context, q querier, a *AcademicRecord) (*AcademicRecord, error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	created, err := scanAcademicRecord(q.QueryRow(ctx,
		`INSERT INTO academic_records (id, user_id, institution_name, degree, field_of_study,
			start_date, end_date, gpa, honors, description, location)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING `+academicColumns,
		a.ID, a.UserID, a.InstitutionName, nullIfEmpty(a.Degree), nullIfEmpty(a.FieldOfStudy),
		a.StartDate, a.EndDate, a.GPA, nullIfEmpty(a.Honors), nullIfEmpty(a.Description), nullIfEmpty(a.Location),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create academic record: %w", err)
	}
	return created, nil
}

// GetAcademicRecordByID retrieves a record by ID. Returns nil, nil when absent.
func (db *DB) GetAcademicRecordByID(ctx context.Context, id uuid.UUID) (*AcademicRecord, error) {
	a, err := scanAcademicRecord(db.pool.QueryRow(ctx,
		`SELECT `+academicColumns+` FROM academic_records WHERE id = $1`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get academic record: %w", err)
	}
	return a, nil
}

// ListAcademicRecordsByUserID returns a user's records, most recent start first
func (db *DB) ListAcademicRecordsByUserID(ctx context.Context, userID uuid.UUID) ([]AcademicRecord, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+academicColumns+` FROM academic_records
		 WHERE user_id = $1
		 ORDER BY start_date DESC NULLS LAST, created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list academic records: %w", err)
	}
	defer rows.Close()

	var records []AcademicRecord
	for rows.Next() {
		a, err := scanAcademicRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan academic record: %w", err)
		}
		records = append(records, *a)
	}
	return records, rows.Err()
}

// UpdateAcademicRecord overwrites a record. Returns nil, nil when absent.
func (db *DB) UpdateAcademicRecord(ctx context.Context, a *AcademicRecord) (*AcademicRecord, error) {
	updated, err := scanAcademicRecord(db.pool.QueryRow(ctx,
		`UPDATE academic_records SET institution_name = $2, degree = $3, field_of_study = $4,
			start_date = $5, end_date = $6, gpa = $7, honors = $8, description = $9, location = $10
		 WHERE id = $1
		 RETURNING `+academicColumns,
		a.ID, a.InstitutionName, nullIfEmpty(a.Degree), nullIfEmpty(a.FieldOfStudy),
		a.StartDate, a.EndDate, a.GPA, nullIfEmpty(a.Honors), nullIfEmpty(a.Description), nullIfEmpty(a.Location),
	))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update academic record: %w", err)
	}
	return updated, nil
}

// DeleteAcademicRecord removes a record by ID
func (db *DB) DeleteAcademicRecord(ctx context.Context, id uuid.UUID) error {
	if _, err := db.pool.Exec(ctx, `DELETE FROM academic_records WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete academic record: %w", err)
	}
	return nil
}
