package repository

import (
	"context"
	"errors"

	routingdomain "github.com/casaflowlabs/casaflow/internal/routing/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() routingdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, rule *routingdomain.Rule) error {
	return db.WithContext(ctx).Create(rule).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, rule *routingdomain.Rule) error {
	// Save with Select so false/zero fields are written too.
	return db.WithContext(ctx).Model(rule).
		Select("locations", "min_price", "max_price", "lead_type", "assignees",
			"strategy", "cursor", "active", "sort_order", "updated_at").
		Updates(rule).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id int64) error {
	res := db.WithContext(ctx).Delete(&routingdomain.Rule{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return routingdomain.ErrRuleNotFound
	}
	return nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*routingdomain.Rule, error) {
	var rule routingdomain.Rule
	err := db.WithContext(ctx).Where("id = ?", id).First(&rule).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]routingdomain.Rule, error) {
	var rules []routingdomain.Rule
	err := db.WithContext(ctx).Order("sort_order ASC").Find(&rules).Error
	if err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *repo) Count(ctx context.Context, db *gorm.DB) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Model(&routingdomain.Rule{}).Count(&count).Error
	return count, err
}

func (r *repo) SetOrder(ctx context.Context, db *gorm.DB, id int64, order int) error {
	return db.WithContext(ctx).Model(&routingdomain.Rule{}).
		Where("id = ?", id).
		Update("sort_order", order).Error
}

func (r *repo) SetCursor(ctx context.Context, db *gorm.DB, id int64, cursor int) error {
	return db.WithContext(ctx).Model(&routingdomain.Rule{}).
		Where("id = ?", id).
		Update("cursor", cursor).Error
}

func (r *repo) GetSettings(ctx context.Context, db *gorm.DB) (*routingdomain.Settings, error) {
	var s routingdomain.Settings
	err := db.WithContext(ctx).Where("id = ?", routingdomain.SettingsID).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &routingdomain.Settings{
			ID:       routingdomain.SettingsID,
			Fallback: routingdomain.FallbackOwner,
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repo) SaveSettings(ctx context.Context, db *gorm.DB, settings *routingdomain.Settings) error {
	settings.ID = routingdomain.SettingsID
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(settings).Error
}
