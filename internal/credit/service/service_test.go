package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/casaflowlabs/casaflow/internal/audit/domain"
	auditrepo "github.com/casaflowlabs/casaflow/internal/audit/repository"
	auditservice "github.com/casaflowlabs/casaflow/internal/audit/service"
	"github.com/casaflowlabs/casaflow/internal/clock"
	"github.com/casaflowlabs/casaflow/internal/config"
	creditdomain "github.com/casaflowlabs/casaflow/internal/credit/domain"
	creditrepo "github.com/casaflowlabs/casaflow/internal/credit/repository"
	creditservice "github.com/casaflowlabs/casaflow/internal/credit/service"
	"github.com/casaflowlabs/casaflow/internal/migration"
	"github.com/casaflowlabs/casaflow/internal/observability"
	"github.com/casaflowlabs/casaflow/pkg/db/pagination"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type creditStack struct {
	db      *gorm.DB
	credits creditdomain.Service
	audit   auditdomain.Service
}

func newCreditStack(t *testing.T, clk clock.Clock) *creditStack {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, migration.Run(db))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	logger := zap.NewNop()

	auditSvc := auditservice.New(auditservice.Params{
		DB:    db,
		Log:   logger,
		GenID: node,
		Clock: clk,
		Repo:  auditrepo.Provide(),
	})
	creditSvc := creditservice.New(creditservice.Params{
		DB:      db,
		Log:     logger,
		GenID:   node,
		Clock:   clk,
		Config:  config.Config{Credits: config.CreditsConfig{Timezone: "UTC"}},
		Repo:    creditrepo.Provide(),
		Audit:   auditSvc,
		Metrics: observability.NewMetrics(),
	})

	return &creditStack{db: db, credits: creditSvc, audit: auditSvc}
}

func seedAccount(t *testing.T, s *creditStack, balance int64, dailyLimit *int64) *creditdomain.Account {
	t.Helper()
	account, err := s.credits.CreateAccount(context.Background(), creditdomain.CreateAccountRequest{
		Name:       "Primary",
		Balance:    balance,
		DailyLimit: dailyLimit,
		Rules: []creditdomain.Rule{
			{Action: "lead_basic", Cost: 1, Enabled: true},
			{Action: "lead_premium", Cost: 5, Enabled: true},
			{Action: "featured_listing", Cost: 3, Enabled: false},
		},
	})
	require.NoError(t, err)
	return account
}

func TestCreateAccountPersistsDisabledRules(t *testing.T) {
	s := newCreditStack(t, clock.SystemClock{})
	account := seedAccount(t, s, 10, nil)

	// Re-read from storage: a rule created disabled must stay disabled.
	fresh, err := s.credits.GetAccount(context.Background(), account.ID)
	require.NoError(t, err)
	enabled := map[string]bool{}
	for _, r := range fresh.Rules {
		enabled[r.Action] = r.Enabled
	}
	assert.True(t, enabled["lead_basic"])
	assert.True(t, enabled["lead_premium"])
	assert.False(t, enabled["featured_listing"])
}

func TestConsumeDebitsAndAppendsEntry(t *testing.T) {
	s := newCreditStack(t, clock.SystemClock{})
	ctx := context.Background()
	account := seedAccount(t, s, 10, nil)

	resp, err := s.credits.Consume(ctx, creditdomain.ConsumeRequest{
		AccountID:      account.ID,
		Action:         "lead_premium",
		IdempotencyKey: "lead-42",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), resp.Entry.Amount)
	assert.Equal(t, creditdomain.EntryDebit, resp.Entry.Type)
	assert.Equal(t, int64(5), resp.Entry.Balance)
	assert.Equal(t, int64(5), resp.Account.Balance)
	require.NotNil(t, resp.Entry.IdempotencyKey)
	assert.Equal(t, "lead-42", *resp.Entry.IdempotencyKey)
}

func TestConsumeIdempotentReplay(t *testing.T) {
	s := newCreditStack(t, clock.SystemClock{})
	ctx := context.Background()
	account := seedAccount(t, s, 10, nil)

	first, err := s.credits.Consume(ctx, creditdomain.ConsumeRequest{
		AccountID:      account.ID,
		Action:         "lead_basic",
		IdempotencyKey: "lead-1",
	})
	require.NoError(t, err)

	// Same key again: same entry, no second debit, even with a different
	// action on the retry.
	second, err := s.credits.Consume(ctx, creditdomain.ConsumeRequest{
		AccountID:      account.ID,
		Action:         "lead_premium",
		IdempotencyKey: "lead-1",
	})
	require.NoError(t, err)
	assert.Equal(t, first.Entry.ID, second.Entry.ID)
	assert.Equal(t, first.Entry.Amount, second.Entry.Amount)
	assert.Equal(t, int64(9), second.Account.Balance)

	var count int64
	require.NoError(t, s.db.Model(&creditdomain.LedgerEntry{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestConsumeMissingIdempotencyKey(t *testing.T) {
	s := newCreditStack(t, clock.SystemClock{})
	account := seedAccount(t, s, 10, nil)

	_, err := s.credits.Consume(context.Background(), creditdomain.ConsumeRequest{
		AccountID: account.ID,
		Action:    "lead_basic",
	})
	assert.ErrorIs(t, err, creditdomain.ErrMissingIdempotencyKey)

	_, err = s.credits.Consume(context.Background(), creditdomain.ConsumeRequest{
		AccountID:      account.ID,
		Action:         "lead_basic",
		IdempotencyKey: "   ",
	})
	assert.ErrorIs(t, err, creditdomain.ErrMissingIdempotencyKey)
}

func TestConsumeAccountNotFound(t *testing.T) {
	s := newCreditStack(t, clock.SystemClock{})

	_, err := s.credits.Consume(context.Background(), creditdomain.ConsumeRequest{
		AccountID:      987654,
		Action:         "lead_basic",
		IdempotencyKey: "lead-1",
	})
	assert.ErrorIs(t, err, creditdomain.ErrAccountNotFound)
}

func TestConsumeDisabledAndUnknownRules(t *testing.T) {
	s := newCreditStack(t, clock.SystemClock{})
	ctx := context.Background()
	account := seedAccount(t, s, 10, nil)

	_, err := s.credits.Consume(ctx, creditdomain.ConsumeRequest{
		AccountID:      account.ID,
		Action:         "featured_listing",
		IdempotencyKey: "lead-1",
	})
	assert.ErrorIs(t, err, creditdomain.ErrRuleDisabled)

	_, err = s.credits.Consume(ctx, creditdomain.ConsumeRequest{
		AccountID:      account.ID,
		Action:         "no_such_action",
		IdempotencyKey: "lead-2",
	})
	assert.ErrorIs(t, err, creditdomain.ErrRuleDisabled)

	// Rejections leave no trace in the ledger.
	var count int64
	require.NoError(t, s.db.Model(&creditdomain.LedgerEntry{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestConsumeInsufficientBalance(t *testing.T) {
	s := newCreditStack(t, clock.SystemClock{})
	ctx := context.Background()
	account := seedAccount(t, s, 3, nil)

	_, err := s.credits.Consume(ctx, creditdomain.ConsumeRequest{
		AccountID:      account.ID,
		Action:         "lead_premium",
		IdempotencyKey: "lead-1",
	})
	assert.ErrorIs(t, err, creditdomain.ErrInsufficientBalance)

	fresh, err := s.credits.GetAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), fresh.Balance)

	var count int64
	require.NoError(t, s.db.Model(&creditdomain.LedgerEntry{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)

	// A cheaper action still goes through.
	resp, err := s.credits.Consume(ctx, creditdomain.ConsumeRequest{
		AccountID:      account.ID,
		Action:         "lead_basic",
		IdempotencyKey: "lead-2",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), resp.Account.Balance)
}

func TestConsumeExactBalanceReachesZero(t *testing.T) {
	s := newCreditStack(t, clock.SystemClock{})
	ctx := context.Background()
	account := seedAccount(t, s, 5, nil)

	resp, err := s.credits.Consume(ctx, creditdomain.ConsumeRequest{
		AccountID:      account.ID,
		Action:         "lead_premium",
		IdempotencyKey: "lead-1",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), resp.Account.Balance)
}

func TestConsumeDailyLimit(t *testing.T) {
	day1 := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)
	s := newCreditStack(t, clock.Fixed{T: day1})
	ctx := context.Background()
	limit := int64(6)
	account := seedAccount(t, s, 100, &limit)

	_, err := s.credits.Consume(ctx, creditdomain.ConsumeRequest{
		AccountID: account.ID, Action: "lead_premium", IdempotencyKey: "k1",
	})
	require.NoError(t, err)

	// 5 spent, cap 6: another premium (5) would exceed, basic (1) fits.
	_, err = s.credits.Consume(ctx, creditdomain.ConsumeRequest{
		AccountID: account.ID, Action: "lead_premium", IdempotencyKey: "k2",
	})
	var dlErr *creditdomain.DailyLimitError
	require.ErrorAs(t, err, &dlErr)
	assert.Equal(t, int64(5), dlErr.SpentToday)
	assert.Equal(t, int64(6), dlErr.DailyLimit)

	_, err = s.credits.Consume(ctx, creditdomain.ConsumeRequest{
		AccountID: account.ID, Action: "lead_basic", IdempotencyKey: "k3",
	})
	require.NoError(t, err)

	_, err = s.credits.Consume(ctx, creditdomain.ConsumeRequest{
		AccountID: account.ID, Action: "lead_basic", IdempotencyKey: "k4",
	})
	require.ErrorAs(t, err, &dlErr)
}

func TestConsumeDailyLimitResetsAtMidnight(t *testing.T) {
	day1 := time.Date(2025, 3, 10, 23, 0, 0, 0, time.UTC)
	s := newCreditStack(t, clock.Fixed{T: day1})
	limit := int64(5)
	account := seedAccount(t, s, 100, &limit)

	_, err := s.credits.Consume(context.Background(), creditdomain.ConsumeRequest{
		AccountID: account.ID, Action: "lead_premium", IdempotencyKey: "k1",
	})
	require.NoError(t, err)

	_, err = s.credits.Consume(context.Background(), creditdomain.ConsumeRequest{
		AccountID: account.ID, Action: "lead_premium", IdempotencyKey: "k2",
	})
	var dlErr *creditdomain.DailyLimitError
	require.ErrorAs(t, err, &dlErr)

	// Two hours later it is the next calendar day and the window is empty.
	ctx := clock.WithFixedTime(context.Background(), day1.Add(2*time.Hour))
	resp, err := s.credits.Consume(ctx, creditdomain.ConsumeRequest{
		AccountID: account.ID, Action: "lead_premium", IdempotencyKey: "k3",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(90), resp.Account.Balance)
}

func TestConsumeDailyLimitIgnoresPurchases(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	s := newCreditStack(t, clock.Fixed{T: now})
	ctx := context.Background()
	limit := int64(5)
	account := seedAccount(t, s, 4, &limit)

	_, err := s.credits.Purchase(ctx, creditdomain.PurchaseRequest{
		AccountID: account.ID, Credits: 50,
	})
	require.NoError(t, err)

	// Only debits count toward the cap.
	resp, err := s.credits.Consume(ctx, creditdomain.ConsumeRequest{
		AccountID: account.ID, Action: "lead_premium", IdempotencyKey: "k1",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(49), resp.Account.Balance)
}

func TestConsumeConcurrentSameKeyCommitsOnce(t *testing.T) {
	s := newCreditStack(t, clock.SystemClock{})
	account := seedAccount(t, s, 100, nil)

	const n = 8
	responses := make([]*creditdomain.ConsumeResponse, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := s.credits.Consume(context.Background(), creditdomain.ConsumeRequest{
				AccountID: account.ID, Action: "lead_premium", IdempotencyKey: "shared",
			})
			assert.NoError(t, err)
			responses[i] = resp
		}(i)
	}
	wg.Wait()

	var count int64
	require.NoError(t, s.db.Model(&creditdomain.LedgerEntry{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	for _, resp := range responses {
		require.NotNil(t, resp)
		assert.Equal(t, responses[0].Entry.ID, resp.Entry.ID)
	}

	fresh, err := s.credits.GetAccount(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(95), fresh.Balance)
}

func TestConsumeConcurrentNeverOverspends(t *testing.T) {
	s := newCreditStack(t, clock.SystemClock{})
	account := seedAccount(t, s, 12, nil)

	const n = 6
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.credits.Consume(context.Background(), creditdomain.ConsumeRequest{
				AccountID: account.ID, Action: "lead_premium",
				IdempotencyKey: fmt.Sprintf("lead-%d", i),
			})
		}(i)
	}
	wg.Wait()

	ok, rejected := 0, 0
	for _, err := range errs {
		if err == nil {
			ok++
		} else {
			assert.ErrorIs(t, err, creditdomain.ErrInsufficientBalance)
			rejected++
		}
	}
	assert.Equal(t, 2, ok)
	assert.Equal(t, 4, rejected)

	fresh, err := s.credits.GetAccount(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), fresh.Balance)
}

func TestPurchaseAddsBalance(t *testing.T) {
	s := newCreditStack(t, clock.SystemClock{})
	ctx := context.Background()
	account := seedAccount(t, s, 5, nil)

	resp, err := s.credits.Purchase(ctx, creditdomain.PurchaseRequest{
		AccountID: account.ID, Credits: 20, Price: 19.99,
	})
	require.NoError(t, err)
	assert.Equal(t, creditdomain.EntryCredit, resp.Entry.Type)
	assert.Equal(t, int64(20), resp.Entry.Amount)
	assert.Equal(t, int64(25), resp.Account.Balance)

	_, err = s.credits.Purchase(ctx, creditdomain.PurchaseRequest{
		AccountID: account.ID, Credits: 0,
	})
	assert.ErrorIs(t, err, creditdomain.ErrInvalidAmount)
}

func TestLedgerPagingAndSummary(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	s := newCreditStack(t, clock.Fixed{T: now})
	account := seedAccount(t, s, 100, nil)

	for i := 0; i < 3; i++ {
		ctx := clock.WithFixedTime(context.Background(), now.Add(time.Duration(i)*time.Minute))
		_, err := s.credits.Consume(ctx, creditdomain.ConsumeRequest{
			AccountID: account.ID, Action: "lead_premium",
			IdempotencyKey: fmt.Sprintf("lead-%d", i),
		})
		require.NoError(t, err)
	}
	_, err := s.credits.Purchase(clock.WithFixedTime(context.Background(), now.Add(time.Hour)), creditdomain.PurchaseRequest{
		AccountID: account.ID, Credits: 10,
	})
	require.NoError(t, err)

	resp, err := s.credits.Ledger(context.Background(), creditdomain.LedgerRequest{
		AccountID: account.ID,
		Page:      pagination.Pagination{Page: 1, PageSize: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4), resp.PageInfo.TotalCount)
	assert.True(t, resp.PageInfo.HasMore)
	require.Len(t, resp.Entries, 2)
	// Newest first: the purchase leads.
	assert.Equal(t, creditdomain.EntryCredit, resp.Entries[0].Type)
	assert.Equal(t, int64(15), resp.Summary.SpentThisMonth)
	assert.Equal(t, int64(10), resp.Summary.AddedThisMonth)

	// Type filter narrows both the page and the total.
	debitsOnly, err := s.credits.Ledger(context.Background(), creditdomain.LedgerRequest{
		AccountID: account.ID,
		Type:      creditdomain.EntryDebit,
		Page:      pagination.Pagination{Page: 1, PageSize: 10},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), debitsOnly.PageInfo.TotalCount)
	assert.False(t, debitsOnly.PageInfo.HasMore)
}

func TestLedgerSummaryExcludesPriorMonths(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	s := newCreditStack(t, clock.Fixed{T: now})
	account := seedAccount(t, s, 100, nil)

	// One debit in February, one in March.
	feb := clock.WithFixedTime(context.Background(), time.Date(2025, 2, 27, 9, 0, 0, 0, time.UTC))
	_, err := s.credits.Consume(feb, creditdomain.ConsumeRequest{
		AccountID: account.ID, Action: "lead_premium", IdempotencyKey: "feb",
	})
	require.NoError(t, err)
	_, err = s.credits.Consume(context.Background(), creditdomain.ConsumeRequest{
		AccountID: account.ID, Action: "lead_basic", IdempotencyKey: "mar",
	})
	require.NoError(t, err)

	resp, err := s.credits.Ledger(context.Background(), creditdomain.LedgerRequest{
		AccountID: account.ID,
		Page:      pagination.Pagination{Page: 1, PageSize: 10},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), resp.Summary.SpentThisMonth)
}

func TestUpdateAccountSettings(t *testing.T) {
	s := newCreditStack(t, clock.SystemClock{})
	ctx := context.Background()
	limit := int64(10)
	account := seedAccount(t, s, 100, &limit)

	threshold := int64(20)
	updated, err := s.credits.UpdateAccountSettings(ctx, account.ID, creditdomain.UpdateAccountRequest{
		LowBalanceThreshold: &threshold,
		ClearDailyLimit:     true,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(20), updated.LowBalanceThreshold)
	assert.Nil(t, updated.DailyLimit)

	fresh, err := s.credits.GetAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.Nil(t, fresh.DailyLimit)
}

func TestUpdateRuleEnableAndCost(t *testing.T) {
	s := newCreditStack(t, clock.SystemClock{})
	ctx := context.Background()
	account := seedAccount(t, s, 100, nil)

	var featured *creditdomain.Rule
	for i := range account.Rules {
		if account.Rules[i].Action == "featured_listing" {
			featured = &account.Rules[i]
		}
	}
	require.NotNil(t, featured)

	enabled := true
	cost := int64(4)
	updated, err := s.credits.UpdateRule(ctx, account.ID, featured.ID, creditdomain.UpdateRuleRequest{
		Enabled: &enabled,
		Cost:    &cost,
	})
	require.NoError(t, err)
	assert.True(t, updated.Enabled)
	assert.Equal(t, int64(4), updated.Cost)

	resp, err := s.credits.Consume(ctx, creditdomain.ConsumeRequest{
		AccountID: account.ID, Action: "featured_listing", IdempotencyKey: "k1",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(96), resp.Account.Balance)

	negative := int64(-1)
	_, err = s.credits.UpdateRule(ctx, account.ID, featured.ID, creditdomain.UpdateRuleRequest{Cost: &negative})
	assert.ErrorIs(t, err, creditdomain.ErrInvalidAmount)
}
