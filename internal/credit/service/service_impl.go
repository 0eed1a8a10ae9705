package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/casaflowlabs/casaflow/internal/audit/domain"
	"github.com/casaflowlabs/casaflow/internal/clock"
	"github.com/casaflowlabs/casaflow/internal/config"
	creditdomain "github.com/casaflowlabs/casaflow/internal/credit/domain"
	"github.com/casaflowlabs/casaflow/internal/observability"
	"github.com/casaflowlabs/casaflow/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Config  config.Config
	Repo    creditdomain.Repository
	Audit   auditdomain.Service
	Metrics *observability.Metrics
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    creditdomain.Repository
	audit   auditdomain.Service
	metrics *observability.Metrics

	// Daily and monthly windows roll over at midnight in this zone.
	loc *time.Location

	// Serializes check-then-debit per account.
	accountMu sync.Mutex
	accounts  map[int64]*sync.Mutex
}

func New(p Params) creditdomain.Service {
	loc, err := time.LoadLocation(p.Config.Credits.Timezone)
	if err != nil {
		p.Log.Warn("invalid credits timezone, falling back to UTC",
			zap.String("timezone", p.Config.Credits.Timezone), zap.Error(err))
		loc = time.UTC
	}
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("credit.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		audit:    p.Audit,
		metrics:  p.Metrics,
		loc:      loc,
		accounts: make(map[int64]*sync.Mutex),
	}
}

func (s *Service) accountLock(id int64) *sync.Mutex {
	s.accountMu.Lock()
	defer s.accountMu.Unlock()
	mu, ok := s.accounts[id]
	if !ok {
		mu = &sync.Mutex{}
		s.accounts[id] = mu
	}
	return mu
}

// Consume debits the account for a billable action, exactly once per
// idempotency key. Checks short-circuit in contract order: replay, account,
// rule, daily limit, balance, commit.
func (s *Service) Consume(ctx context.Context, req creditdomain.ConsumeRequest) (*creditdomain.ConsumeResponse, error) {
	key := strings.TrimSpace(req.IdempotencyKey)
	if key == "" {
		return nil, creditdomain.ErrMissingIdempotencyKey
	}

	mu := s.accountLock(req.AccountID)
	mu.Lock()
	defer mu.Unlock()

	// 1. Idempotency replay: the original entry and the current account,
	// with no re-validation and no new debit.
	if existing, err := s.repo.FindEntryByIdempotencyKey(ctx, s.db, key); err != nil {
		return nil, err
	} else if existing != nil {
		account, err := s.repo.FindAccountByID(ctx, s.db, existing.AccountID)
		if err != nil {
			return nil, err
		}
		if account == nil {
			return nil, creditdomain.ErrAccountNotFound
		}
		return &creditdomain.ConsumeResponse{Entry: *existing, Account: *account}, nil
	}

	// 2. Account existence.
	account, err := s.repo.FindAccountByID(ctx, s.db, req.AccountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		s.metrics.ConsumeRejects.WithLabelValues("account_not_found").Inc()
		return nil, creditdomain.ErrAccountNotFound
	}

	// 3. Rule resolution. A missing rule and a disabled rule reject the same
	// way; the engine honors whatever enabled flag it is given.
	rule := findRule(account.Rules, req.Action)
	if rule == nil || !rule.Enabled {
		s.metrics.ConsumeRejects.WithLabelValues("rule_disabled").Inc()
		return nil, creditdomain.ErrRuleDisabled
	}
	cost := rule.Cost

	now := s.clock.Now(ctx)

	// 4. Daily limit over the current calendar day in the account timezone.
	if account.DailyLimit != nil {
		dayStart, dayEnd := dayWindow(now, s.loc)
		spentToday, err := s.repo.SumAmountBetween(ctx, s.db, account.ID, creditdomain.EntryDebit, dayStart, dayEnd)
		if err != nil {
			return nil, err
		}
		if spentToday+cost > *account.DailyLimit {
			s.metrics.ConsumeRejects.WithLabelValues("daily_limit_exceeded").Inc()
			return nil, &creditdomain.DailyLimitError{
				SpentToday: spentToday,
				DailyLimit: *account.DailyLimit,
			}
		}
	}

	// 5. Balance floor.
	if account.Balance < cost {
		s.metrics.ConsumeRejects.WithLabelValues("insufficient_balance").Inc()
		return nil, creditdomain.ErrInsufficientBalance
	}

	// 6. Commit: entry append, balance decrement and idempotency registration
	// are one transaction; no partial effect is ever observable.
	newBalance := account.Balance - cost
	entry := &creditdomain.LedgerEntry{
		ID:             s.genID.Generate().Int64(),
		AccountID:      account.ID,
		Type:           creditdomain.EntryDebit,
		Amount:         cost,
		Balance:        newBalance,
		Description:    fmt.Sprintf("Consumed %d credits for %s", cost, req.Action),
		ReferenceType:  req.ReferenceType,
		ReferenceID:    req.ReferenceID,
		IdempotencyKey: &key,
		CreatedAt:      now,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.repo.InsertEntry(ctx, tx, entry); err != nil {
			return err
		}
		return s.repo.UpdateAccountBalance(ctx, tx, account.ID, newBalance)
	})
	if isDuplicateKey(err) {
		// Cross-process race on the same key: the unique index is the
		// backstop. Return the winner's entry.
		existing, ferr := s.repo.FindEntryByIdempotencyKey(ctx, s.db, key)
		if ferr != nil {
			return nil, ferr
		}
		if existing != nil {
			fresh, ferr := s.repo.FindAccountByID(ctx, s.db, account.ID)
			if ferr != nil {
				return nil, ferr
			}
			return &creditdomain.ConsumeResponse{Entry: *existing, Account: *fresh}, nil
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	account.Balance = newBalance
	s.metrics.Consumptions.Inc()
	accountID := snowflake.ID(account.ID).String()
	s.audit.Record(ctx, auditdomain.ActionCreditConsumption, "credit_account", &accountID, map[string]any{
		"action":  req.Action,
		"cost":    cost,
		"balance": newBalance,
	})

	return &creditdomain.ConsumeResponse{Entry: *entry, Account: *account}, nil
}

// Purchase appends a credit entry and increases the balance. Not gated by
// rules or limits.
func (s *Service) Purchase(ctx context.Context, req creditdomain.PurchaseRequest) (*creditdomain.ConsumeResponse, error) {
	if req.Credits <= 0 {
		return nil, creditdomain.ErrInvalidAmount
	}

	mu := s.accountLock(req.AccountID)
	mu.Lock()
	defer mu.Unlock()

	account, err := s.repo.FindAccountByID(ctx, s.db, req.AccountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, creditdomain.ErrAccountNotFound
	}

	newBalance := account.Balance + req.Credits
	entry := &creditdomain.LedgerEntry{
		ID:          s.genID.Generate().Int64(),
		AccountID:   account.ID,
		Type:        creditdomain.EntryCredit,
		Amount:      req.Credits,
		Balance:     newBalance,
		Description: fmt.Sprintf("Purchased %d credits", req.Credits),
		CreatedAt:   s.clock.Now(ctx),
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.repo.InsertEntry(ctx, tx, entry); err != nil {
			return err
		}
		return s.repo.UpdateAccountBalance(ctx, tx, account.ID, newBalance)
	})
	if err != nil {
		return nil, err
	}

	account.Balance = newBalance
	accountID := snowflake.ID(account.ID).String()
	s.audit.Record(ctx, auditdomain.ActionCreditPurchase, "credit_account", &accountID, map[string]any{
		"credits": req.Credits,
		"price":   req.Price,
		"balance": newBalance,
	})

	return &creditdomain.ConsumeResponse{Entry: *entry, Account: *account}, nil
}

func (s *Service) Ledger(ctx context.Context, req creditdomain.LedgerRequest) (creditdomain.LedgerResponse, error) {
	account, err := s.repo.FindAccountByID(ctx, s.db, req.AccountID)
	if err != nil {
		return creditdomain.LedgerResponse{}, err
	}
	if account == nil {
		return creditdomain.LedgerResponse{}, creditdomain.ErrAccountNotFound
	}

	page := req.Page.Normalize()
	entries, total, err := s.repo.ListEntries(ctx, s.db, req.AccountID, req.Type, page)
	if err != nil {
		return creditdomain.LedgerResponse{}, err
	}

	monthStart, monthEnd := monthWindow(s.clock.Now(ctx), s.loc)
	spent, err := s.repo.SumAmountBetween(ctx, s.db, req.AccountID, creditdomain.EntryDebit, monthStart, monthEnd)
	if err != nil {
		return creditdomain.LedgerResponse{}, err
	}
	added, err := s.repo.SumAmountBetween(ctx, s.db, req.AccountID, creditdomain.EntryCredit, monthStart, monthEnd)
	if err != nil {
		return creditdomain.LedgerResponse{}, err
	}

	return creditdomain.LedgerResponse{
		PageInfo: pagination.BuildPageInfo(page, total),
		Entries:  entries,
		Summary: creditdomain.LedgerSummary{
			SpentThisMonth: spent,
			AddedThisMonth: added,
		},
	}, nil
}

func (s *Service) CreateAccount(ctx context.Context, req creditdomain.CreateAccountRequest) (*creditdomain.Account, error) {
	if req.Balance < 0 {
		return nil, creditdomain.ErrInvalidAmount
	}
	rate := req.CurrencyRate
	if rate == 0 {
		rate = 1
	}

	account := &creditdomain.Account{
		ID:                  s.genID.Generate().Int64(),
		Name:                strings.TrimSpace(req.Name),
		Balance:             req.Balance,
		LowBalanceThreshold: req.LowBalanceThreshold,
		DailyLimit:          req.DailyLimit,
		CurrencyRate:        rate,
	}
	for _, r := range req.Rules {
		account.Rules = append(account.Rules, creditdomain.Rule{
			ID:        s.genID.Generate().Int64(),
			AccountID: account.ID,
			Action:    strings.TrimSpace(r.Action),
			Cost:      r.Cost,
			Enabled:   r.Enabled,
		})
	}

	if err := s.repo.InsertAccount(ctx, s.db, account); err != nil {
		return nil, err
	}
	return account, nil
}

func (s *Service) GetAccount(ctx context.Context, id int64) (*creditdomain.Account, error) {
	account, err := s.repo.FindAccountByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, creditdomain.ErrAccountNotFound
	}
	return account, nil
}

func (s *Service) UpdateAccountSettings(ctx context.Context, id int64, req creditdomain.UpdateAccountRequest) (*creditdomain.Account, error) {
	account, err := s.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.LowBalanceThreshold != nil {
		account.LowBalanceThreshold = *req.LowBalanceThreshold
	}
	if req.ClearDailyLimit {
		account.DailyLimit = nil
	} else if req.DailyLimit != nil {
		account.DailyLimit = req.DailyLimit
	}
	if req.CurrencyRate != nil {
		account.CurrencyRate = *req.CurrencyRate
	}

	if err := s.repo.UpdateAccountSettings(ctx, s.db, account); err != nil {
		return nil, err
	}

	accountID := snowflake.ID(id).String()
	s.audit.Record(ctx, auditdomain.ActionAccountUpdate, "credit_account", &accountID, map[string]any{
		"low_balance_threshold": account.LowBalanceThreshold,
		"daily_limit":           account.DailyLimit,
		"currency_rate":         account.CurrencyRate,
	})
	return account, nil
}

func (s *Service) UpdateRule(ctx context.Context, accountID, ruleID int64, req creditdomain.UpdateRuleRequest) (*creditdomain.Rule, error) {
	rule, err := s.repo.FindRuleByID(ctx, s.db, accountID, ruleID)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, creditdomain.ErrRuleNotFound
	}

	if req.Enabled != nil {
		rule.Enabled = *req.Enabled
	}
	if req.Cost != nil {
		if *req.Cost < 0 {
			return nil, creditdomain.ErrInvalidAmount
		}
		rule.Cost = *req.Cost
	}

	if err := s.repo.UpdateRule(ctx, s.db, rule); err != nil {
		return nil, err
	}

	ruleRef := snowflake.ID(ruleID).String()
	s.audit.Record(ctx, auditdomain.ActionCreditRuleUpdate, "credit_rule", &ruleRef, map[string]any{
		"action":     rule.Action,
		"cost":       rule.Cost,
		"is_enabled": rule.Enabled,
	})
	return rule, nil
}

// isDuplicateKey matches the raw constraint error text as well, because not
// every dialector translates violations to gorm.ErrDuplicatedKey.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint")
}

func findRule(rules []creditdomain.Rule, action string) *creditdomain.Rule {
	for i := range rules {
		if rules[i].Action == action {
			return &rules[i]
		}
	}
	return nil
}

func dayWindow(now time.Time, loc *time.Location) (time.Time, time.Time) {
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

func monthWindow(now time.Time, loc *time.Location) (time.Time, time.Time) {
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 1, 0)
}
