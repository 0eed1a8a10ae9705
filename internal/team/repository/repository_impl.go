package repository

import (
	"context"
	"errors"

	teamdomain "github.com/casaflowlabs/casaflow/internal/team/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() teamdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, member *teamdomain.Member) error {
	return db.WithContext(ctx).Create(member).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id string) (*teamdomain.Member, error) {
	var m teamdomain.Member
	err := db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]teamdomain.Member, error) {
	var members []teamdomain.Member
	err := db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}

func (r *repo) ListPausedIDs(ctx context.Context, db *gorm.DB) ([]string, error) {
	var ids []string
	err := db.WithContext(ctx).Model(&teamdomain.Member{}).
		Where("paused = ?", true).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repo) SetPaused(ctx context.Context, db *gorm.DB, id string, paused bool) error {
	res := db.WithContext(ctx).Model(&teamdomain.Member{}).
		Where("id = ?", id).
		Update("paused", paused)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return teamdomain.ErrMemberNotFound
	}
	return nil
}

func (r *repo) FirstByRole(ctx context.Context, db *gorm.DB, role teamdomain.Role, excludePaused bool) (*teamdomain.Member, error) {
	query := db.WithContext(ctx).Where("role = ?", role)
	if excludePaused {
		query = query.Where("paused = ?", false)
	}
	var m teamdomain.Member
	err := query.Order("created_at ASC, id ASC").First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *repo) FirstAvailable(ctx context.Context, db *gorm.DB) (*teamdomain.Member, error) {
	var m teamdomain.Member
	err := db.WithContext(ctx).Where("paused = ?", false).
		Order("created_at ASC, id ASC").First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}
