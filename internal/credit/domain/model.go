package domain

import (
	"errors"
	"fmt"
	"time"
)

// Account is a credit account debited for billable actions. Balance never
// goes negative.
type Account struct {
	ID                  int64     `gorm:"primaryKey" json:"id,string"`
	Name                string    `gorm:"size:200" json:"name"`
	Balance             int64     `gorm:"not null;default:0" json:"balance"`
	LowBalanceThreshold int64     `gorm:"not null;default:0" json:"low_balance_threshold"`
	DailyLimit          *int64    `json:"daily_limit,omitempty"`
	CurrencyRate        float64   `gorm:"not null;default:1" json:"currency_rate"`
	Rules               []Rule    `gorm:"foreignKey:AccountID" json:"rules"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func (Account) TableName() string { return "credit_accounts" }

// Rule prices one billable action. Action values are unique per account.
// Cost is authoritative: callers never control the debit amount once a rule
// exists.
type Rule struct {
	ID        int64     `gorm:"primaryKey" json:"id,string"`
	AccountID int64     `gorm:"index;uniqueIndex:idx_account_action;not null" json:"account_id,string"`
	Action    string    `gorm:"uniqueIndex:idx_account_action;size:100;not null" json:"action"`
	Cost      int64     `gorm:"not null;default:0" json:"cost"`
	// No column default: gorm skips zero-valued fields that carry one on
	// Create, which would silently re-enable a rule inserted as disabled.
	Enabled   bool      `gorm:"not null" json:"is_enabled"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Rule) TableName() string { return "credit_rules" }

type EntryType string

const (
	EntryCredit EntryType = "credit"
	EntryDebit  EntryType = "debit"
)

// LedgerEntry is an immutable, append-only ledger row. Balance is the account
// balance after this entry, snapshotted at commit time and never recomputed.
type LedgerEntry struct {
	ID             int64     `gorm:"primaryKey" json:"id,string"`
	AccountID      int64     `gorm:"index;not null" json:"account_id,string"`
	Type           EntryType `gorm:"size:10;not null" json:"type"`
	Amount         int64     `gorm:"not null" json:"amount"`
	Balance        int64     `gorm:"not null" json:"balance"`
	Description    string    `gorm:"size:500" json:"description"`
	ReferenceType  *string   `gorm:"size:50" json:"reference_type,omitempty"`
	ReferenceID    *string   `gorm:"size:100" json:"reference_id,omitempty"`
	IdempotencyKey *string   `gorm:"uniqueIndex;size:200" json:"idempotency_key,omitempty"`
	CreatedAt      time.Time `gorm:"index" json:"created_at"`
}

func (LedgerEntry) TableName() string { return "ledger_entries" }

var (
	ErrAccountNotFound       = errors.New("account_not_found")
	ErrRuleNotFound          = errors.New("credit_rule_not_found")
	ErrRuleDisabled          = errors.New("rule_disabled")
	ErrInsufficientBalance   = errors.New("insufficient_balance")
	ErrMissingIdempotencyKey = errors.New("missing_idempotency_key")
	ErrInvalidAmount         = errors.New("invalid_amount")
)

// DailyLimitError carries the structured detail callers need to render a
// precise rejection message.
type DailyLimitError struct {
	SpentToday int64 `json:"spent_today"`
	DailyLimit int64 `json:"daily_limit"`
}

func (e *DailyLimitError) Error() string {
	return fmt.Sprintf("daily_limit_exceeded: spent %d of %d", e.SpentToday, e.DailyLimit)
}
