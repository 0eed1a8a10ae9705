package domain

import (
	"context"
	"time"

	"github.com/casaflowlabs/casaflow/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	InsertAccount(ctx context.Context, db *gorm.DB, account *Account) error
	FindAccountByID(ctx context.Context, db *gorm.DB, id int64) (*Account, error)
	UpdateAccountBalance(ctx context.Context, db *gorm.DB, id int64, balance int64) error
	UpdateAccountSettings(ctx context.Context, db *gorm.DB, account *Account) error

	FindRuleByID(ctx context.Context, db *gorm.DB, accountID, ruleID int64) (*Rule, error)
	UpdateRule(ctx context.Context, db *gorm.DB, rule *Rule) error

	InsertEntry(ctx context.Context, db *gorm.DB, entry *LedgerEntry) error
	FindEntryByIdempotencyKey(ctx context.Context, db *gorm.DB, key string) (*LedgerEntry, error)
	ListEntries(ctx context.Context, db *gorm.DB, accountID int64, entryType EntryType, page pagination.Pagination) ([]LedgerEntry, int64, error)
	// SumAmountBetween totals entry amounts of one type in [from, to).
	SumAmountBetween(ctx context.Context, db *gorm.DB, accountID int64, entryType EntryType, from, to time.Time) (int64, error)
}
