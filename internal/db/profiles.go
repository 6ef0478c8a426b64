package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const profileColumns = `id, user_id,
	COALESCE(career_goals, ''), COALESCE(short_term_goals, ''), COALESCE(long_term_goals, ''),
	COALESCE(cv_content, ''), COALESCE(network_profile_url, ''), COALESCE(network_profile_data, ''),
	COALESCE(life_profile, ''), age, COALESCE(birth_country, ''), COALESCE(birth_city, ''),
	COALESCE(current_location, ''), desired_job_locations, job_search_locations, languages,
	COALESCE(culture, ''), hobbies, COALESCE(additional_info, ''), career_goal_type,
	is_draft, is_validated, created_at, updated_at`

func scanProfile(row pgx.Row) (*Profile, error) {
	var p Profile
	err := row.Scan(
		&p.ID, &p.UserID,
		&p.CareerGoals, &p.ShortTermGoals, &p.LongTermGoals,
		&p.CVContent, &p.NetworkProfileURL, &p.NetworkProfileData,
		&p.LifeProfile, &p.Age, &p.BirthCountry, &p.BirthCity,
		&p.CurrentLocation, &p.DesiredLocations, &p.JobSearchLocations, &p.Languages,
		&p.Culture, &p.Hobbies, &p.AdditionalInfo, &p.CareerGoalType,
		&p.IsDraft, &p.IsValidated, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func profileArgs(p *Profile) []any {
	goalType := p.CareerGoalType
	if goalType == "" {
		goalType = CareerGoalContinuePath
	}
	return []any{
		p.ID, p.UserID,
		nullIfEmpty(p.CareerGoals), nullIfEmpty(p.ShortTermGoals), nullIfEmpty(p.LongTermGoals),
		nullIfEmpty(p.CVContent), nullIfEmpty(p.NetworkProfileURL), nullIfEmpty(p.NetworkProfileData),
		nullIfEmpty(p.LifeProfile), p.Age, nullIfEmpty(p.BirthCountry), nullIfEmpty(p.BirthCity),
		nullIfEmpty(p.CurrentLocation), p.DesiredLocations, p.JobSearchLocations, p.Languages,
		nullIfEmpty(p.Culture), p.Hobbies, nullIfEmpty(p.AdditionalInfo), string(goalType),
		p.IsDraft, p.IsValidated,
	}
}

// CreateProfile inserts the profile of a user
func (db *DB) CreateProfile(ctx context.Context, p *Profile) (*Profile, error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	created, err := scanProfile(db.pool.QueryRow(ctx,
		`INSERT INTO user_profiles (
			id, user_id, career_goals, short_term_goals, long_term_goals,
			cv_content, network_profile_url, network_profile_data,
			life_profile, age, birth_country, birth_city,
			current_location, desired_job_locations, job_search_locations, languages,
			culture, hobbies, additional_info, career_goal_type,
			is_draft, is_validated
		 ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
		 RETURNING `+profileColumns,
		profileArgs(p)...,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}
	return created, nil
}

// GetProfileByID retrieves a profile by ID. Returns nil, nil when absent.
func (db *DB) GetProfileByID(ctx context.Context, id uuid.UUID) (*Profile, error) {
	p, err := scanProfile(db.pool.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM user_profiles WHERE id = $1`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

// GetProfileByUserID retrieves the profile of a user. Returns nil, nil when absent.
func (db *DB) GetProfileByUserID(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	p, err := scanProfile(db.pool.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM user_profiles WHERE user_id = $1`, userID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get profile by user: %w", err)
	}
	return p, nil
}

// UpdateProfile overwrites every mutable profile column. Returns nil, nil when absent.
func (db *DB) UpdateProfile(ctx context.Context, p *Profile) (*Profile, error) {
	updated, err := scanProfile(db.pool.QueryRow(ctx,
		`UPDATE user_profiles SET
			user_id = $2, career_goals = $3, short_term_goals = $4, long_term_goals = $5,
			cv_content = $6, network_profile_url = $7, network_profile_data = $8,
			life_profile = $9, age = $10, birth_country = $11, birth_city = $12,
			current_location = $13, desired_job_locations = $14, job_search_locations = $15, languages = $16,
			culture = $17, hobbies = $18, additional_info = $19, career_goal_type = $20,
			is_draft = $21, is_validated = $22, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+profileColumns,
		profileArgs(p)...,
	))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return updated, nil
}

// DeleteProfile removes a profile by ID
func (db *DB) DeleteProfile(ctx context.Context, id uuid.UUID) error {
	_, err := db.pool.Exec(ctx, `DELETE FROM user_profiles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	return nil
}
