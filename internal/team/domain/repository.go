package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, member *Member) error
	FindByID(ctx context.Context, db *gorm.DB, id string) (*Member, error)
	List(ctx context.Context, db *gorm.DB) ([]Member, error)
	ListPausedIDs(ctx context.Context, db *gorm.DB) ([]string, error)
	SetPaused(ctx context.Context, db *gorm.DB, id string, paused bool) error
	FirstByRole(ctx context.Context, db *gorm.DB, role Role, excludePaused bool) (*Member, error)
	FirstAvailable(ctx context.Context, db *gorm.DB) (*Member, error)
}
