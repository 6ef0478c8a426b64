package workflow

import (
	"context"

	"github.com/google/uuid"

	"github.com/jonathan/career-navigator/internal/db"
)

// UserRepository persists users
type UserRepository interface {
	CreateUser(ctx context.Context, u *db.User) (*db.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*db.User, error)
	GetUserByEmail(ctx context.Context, email string) (*db.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	UpdateUser(ctx context.Context, u *db.User) (*db.User, error)
}

// ProfileRepository persists one profile per user
type ProfileRepository interface {
	CreateProfile(ctx context.Context, p *db.Profile) (*db.Profile, error)
	GetProfileByID(ctx context.Context, id uuid.UUID) (*db.Profile, error)
	GetProfileByUserID(ctx context.Context, userID uuid.UUID) (*db.Profile, error)
	UpdateProfile(ctx context.Context, p *db.Profile) (*db.Profile, error)
}

// ChildRecordRepository reads a user's job experiences, courses and
// academic records, and replaces all three at once.
type ChildRecordRepository interface {
	ListJobExperiencesByUserID(ctx context.Context, userID uuid.UUID) ([]db.JobExperience, error)
	ListCoursesByUserID(ctx context.Context, userID uuid.UUID) ([]db.Course, error)
	ListAcademicRecordsByUserID(ctx context.Context, userID uuid.UUID) ([]db.AcademicRecord, error)
	// ReplaceChildren is atomic: on error the previous records are kept.
	ReplaceChildren(ctx context.Context, userID uuid.UUID, children *db.ChildRecords) (*db.ChildRecords, error)
}

// ProductRepository persists generated artifacts
type ProductRepository interface {
	CreateProduct(ctx context.Context, p *db.GeneratedProduct) (*db.GeneratedProduct, error)
	GetProductByID(ctx context.Context, id uuid.UUID) (*db.GeneratedProduct, error)
	ListProductsByUserID(ctx context.Context, userID uuid.UUID, productType db.ProductType) ([]db.GeneratedProduct, error)
}

// Repositories bundles every repository the workflow reads or writes.
// *db.DB satisfies it.
type Repositories interface {
	UserRepository
	ProfileRepository
	ChildRecordRepository
	ProductRepository
}

var _ Repositories = (*db.DB)(nil)
