package db

import (
	"time"

	"github.com/google/uuid"
)

// ProductType identifies the kind of generated artifact stored for a user.
type ProductType string

// Product type constants
const (
	ProductTypeCV            ProductType = "cv"
	ProductTypePossibleJobs  ProductType = "possible_jobs"
	ProductTypeCareerPlan1Y  ProductType = "career_plan_1y"
	ProductTypeCareerPlan3Y  ProductType = "career_plan_3y"
	ProductTypeCareerPlan5Y  ProductType = "career_plan_5y"
	ProductTypeNetworkExport ProductType = "network_export"
)

// Valid reports whether p is a known product type.
func (p ProductType) Valid() bool {
	switch p {
	case ProductTypeCV, ProductTypePossibleJobs, ProductTypeCareerPlan1Y,
		ProductTypeCareerPlan3Y, ProductTypeCareerPlan5Y, ProductTypeNetworkExport:
		return true
	}
	return false
}

// GeneratedProduct is a persisted artifact. Versions increase per (user, type).
type GeneratedProduct struct {
	ID          uuid.UUID      `json:"id"`
	UserID      uuid.UUID      `json:"user_id"`
	ProductType ProductType    `json:"product_type"`
	Content     map[string]any `json:"content"`
	Version     int            `json:"version"`
	IsActive    bool           `json:"is_active"`
	ModelUsed   string         `json:"model_used,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}
