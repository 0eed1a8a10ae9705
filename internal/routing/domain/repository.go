package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, rule *Rule) error
	Update(ctx context.Context, db *gorm.DB, rule *Rule) error
	Delete(ctx context.Context, db *gorm.DB, id int64) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Rule, error)
	// List returns all rules sorted by Order ascending.
	List(ctx context.Context, db *gorm.DB) ([]Rule, error)
	Count(ctx context.Context, db *gorm.DB) (int64, error)
	// SetOrder rewrites a single rule's position.
	SetOrder(ctx context.Context, db *gorm.DB, id int64, order int) error
	// SetCursor persists the round-robin cursor.
	SetCursor(ctx context.Context, db *gorm.DB, id int64, cursor int) error

	GetSettings(ctx context.Context, db *gorm.DB) (*Settings, error)
	SaveSettings(ctx context.Context, db *gorm.DB, settings *Settings) error
}
