package repository

import (
	"context"
	"errors"
	"time"

	creditdomain "github.com/casaflowlabs/casaflow/internal/credit/domain"
	"github.com/casaflowlabs/casaflow/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() creditdomain.Repository {
	return &repo{}
}

func (r *repo) InsertAccount(ctx context.Context, db *gorm.DB, account *creditdomain.Account) error {
	return db.WithContext(ctx).Create(account).Error
}

func (r *repo) FindAccountByID(ctx context.Context, db *gorm.DB, id int64) (*creditdomain.Account, error) {
	var a creditdomain.Account
	err := db.WithContext(ctx).Preload("Rules").Where("id = ?", id).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *repo) UpdateAccountBalance(ctx context.Context, db *gorm.DB, id int64, balance int64) error {
	return db.WithContext(ctx).Model(&creditdomain.Account{}).
		Where("id = ?", id).
		Update("balance", balance).Error
}

func (r *repo) UpdateAccountSettings(ctx context.Context, db *gorm.DB, account *creditdomain.Account) error {
	return db.WithContext(ctx).Model(account).
		Select("low_balance_threshold", "daily_limit", "currency_rate", "updated_at").
		Updates(account).Error
}

func (r *repo) FindRuleByID(ctx context.Context, db *gorm.DB, accountID, ruleID int64) (*creditdomain.Rule, error) {
	var rule creditdomain.Rule
	err := db.WithContext(ctx).
		Where("account_id = ? AND id = ?", accountID, ruleID).
		First(&rule).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *repo) UpdateRule(ctx context.Context, db *gorm.DB, rule *creditdomain.Rule) error {
	return db.WithContext(ctx).Model(rule).
		Select("cost", "enabled", "updated_at").
		Updates(rule).Error
}

func (r *repo) InsertEntry(ctx context.Context, db *gorm.DB, entry *creditdomain.LedgerEntry) error {
	return db.WithContext(ctx).Create(entry).Error
}

func (r *repo) FindEntryByIdempotencyKey(ctx context.Context, db *gorm.DB, key string) (*creditdomain.LedgerEntry, error) {
	var e creditdomain.LedgerEntry
	err := db.WithContext(ctx).Where("idempotency_key = ?", key).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *repo) ListEntries(ctx context.Context, db *gorm.DB, accountID int64, entryType creditdomain.EntryType, page pagination.Pagination) ([]creditdomain.LedgerEntry, int64, error) {
	query := db.WithContext(ctx).Model(&creditdomain.LedgerEntry{}).
		Where("account_id = ?", accountID)
	if entryType != "" {
		query = query.Where("type = ?", entryType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []creditdomain.LedgerEntry
	err := page.Apply(query).Order("created_at DESC, id DESC").Find(&entries).Error
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (r *repo) SumAmountBetween(ctx context.Context, db *gorm.DB, accountID int64, entryType creditdomain.EntryType, from, to time.Time) (int64, error) {
	var sum *int64
	err := db.WithContext(ctx).Model(&creditdomain.LedgerEntry{}).
		Select("SUM(amount)").
		Where("account_id = ? AND type = ? AND created_at >= ? AND created_at < ?",
			accountID, entryType, from, to).
		Scan(&sum).Error
	if err != nil {
		return 0, err
	}
	if sum == nil {
		return 0, nil
	}
	return *sum, nil
}
