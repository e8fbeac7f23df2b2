package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Category struct {
	ID          uuid.UUID
	Name        string
	Slug        string
	Description string
	Image       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Subcategory struct {
	ID          uuid.UUID
	CategoryID  uuid.UUID
	Name        string
	Slug        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Product carries both a category and a subcategory reference; the
// subcategory must belong to the same category, checked at write time.
type Product struct {
	ID            uuid.UUID
	CategoryID    uuid.UUID
	SubcategoryID uuid.UUID
	Name          string
	Slug          string
	Description   string
	Price         decimal.Decimal
	Stock         int
	Images        []string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Admin struct {
	ID        uuid.UUID
	Email     string
	Password  string
	Name      string
	Role      string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

const (
	AdminRoleAdmin      = "admin"
	AdminRoleSuperAdmin = "superadmin"
)
