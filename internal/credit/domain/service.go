package domain

import (
	"context"

	"github.com/casaflowlabs/casaflow/pkg/db/pagination"
)

type ConsumeRequest struct {
	AccountID      int64
	Action         string
	IdempotencyKey string
	ReferenceType  *string
	ReferenceID    *string
}

// ConsumeResponse is returned both for fresh commits and idempotent replays.
type ConsumeResponse struct {
	Entry   LedgerEntry `json:"entry"`
	Account Account     `json:"account"`
}

type PurchaseRequest struct {
	AccountID int64
	Credits   int64
	// Price paid, display detail only.
	Price float64
}

type LedgerRequest struct {
	AccountID int64
	Type      EntryType
	Page      pagination.Pagination
}

// LedgerSummary aggregates the calendar month containing now, in the
// configured account timezone.
type LedgerSummary struct {
	SpentThisMonth int64 `json:"spent_this_month"`
	AddedThisMonth int64 `json:"added_this_month"`
}

type LedgerResponse struct {
	PageInfo pagination.PageInfo `json:"page_info"`
	Entries  []LedgerEntry       `json:"entries"`
	Summary  LedgerSummary       `json:"summary"`
}

type CreateAccountRequest struct {
	Name                string
	Balance             int64
	LowBalanceThreshold int64
	DailyLimit          *int64
	CurrencyRate        float64
	Rules               []Rule
}

// UpdateAccountRequest patches account settings; nil fields keep current
// values. ClearDailyLimit removes the cap.
type UpdateAccountRequest struct {
	LowBalanceThreshold *int64   `json:"low_balance_threshold,omitempty"`
	DailyLimit          *int64   `json:"daily_limit,omitempty"`
	ClearDailyLimit     bool     `json:"clear_daily_limit,omitempty"`
	CurrencyRate        *float64 `json:"currency_rate,omitempty"`
}

type UpdateRuleRequest struct {
	Enabled *bool  `json:"is_enabled,omitempty"`
	Cost    *int64 `json:"cost,omitempty"`
}

type Service interface {
	Consume(ctx context.Context, req ConsumeRequest) (*ConsumeResponse, error)
	Purchase(ctx context.Context, req PurchaseRequest) (*ConsumeResponse, error)
	Ledger(ctx context.Context, req LedgerRequest) (LedgerResponse, error)

	CreateAccount(ctx context.Context, req CreateAccountRequest) (*Account, error)
	GetAccount(ctx context.Context, id int64) (*Account, error)
	UpdateAccountSettings(ctx context.Context, id int64, req UpdateAccountRequest) (*Account, error)
	UpdateRule(ctx context.Context, accountID, ruleID int64, req UpdateRuleRequest) (*Rule, error)
}
