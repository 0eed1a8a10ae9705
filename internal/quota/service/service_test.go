package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/casaflowlabs/casaflow/internal/clock"
	"github.com/casaflowlabs/casaflow/internal/config"
	quotadomain "github.com/casaflowlabs/casaflow/internal/quota/domain"
	quotaservice "github.com/casaflowlabs/casaflow/internal/quota/service"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newQuotaService(t *testing.T, enabled bool, leadDaily int, clk clock.Clock) (quotadomain.Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	svc := quotaservice.NewService(quotaservice.ServiceParam{
		Redis: client,
		Log:   zap.NewNop(),
		Clock: clk,
		Config: config.Config{
			Quota: config.QuotaConfig{Enabled: enabled, LeadDaily: leadDaily},
		},
	})
	return svc, mr
}

func TestCanRouteLeadUnderLimit(t *testing.T) {
	svc, _ := newQuotaService(t, true, 3, clock.SystemClock{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.NoError(t, svc.CanRouteLead(ctx))
	}
	assert.ErrorIs(t, svc.CanRouteLead(ctx), quotadomain.ErrLeadQuotaExceeded)
}

func TestCanRouteLeadDisabled(t *testing.T) {
	svc, mr := newQuotaService(t, false, 1, clock.SystemClock{})
	ctx := context.Background()

	assert.NoError(t, svc.CanRouteLead(ctx))
	assert.NoError(t, svc.CanRouteLead(ctx))
	assert.Empty(t, mr.Keys())
}

func TestCanRouteLeadResetsNextDay(t *testing.T) {
	day1 := time.Date(2025, 3, 10, 23, 30, 0, 0, time.UTC)
	svc, _ := newQuotaService(t, true, 1, clock.Fixed{T: day1})

	require.NoError(t, svc.CanRouteLead(context.Background()))
	assert.ErrorIs(t, svc.CanRouteLead(context.Background()), quotadomain.ErrLeadQuotaExceeded)

	// A new calendar day uses a fresh counter key.
	nextDay := clock.WithFixedTime(context.Background(), day1.Add(time.Hour))
	assert.NoError(t, svc.CanRouteLead(nextDay))
}

func TestCanRouteLeadFailsOpenWithoutRedis(t *testing.T) {
	svc := quotaservice.NewService(quotaservice.ServiceParam{
		Log:    zap.NewNop(),
		Clock:  clock.SystemClock{},
		Config: config.Config{Quota: config.QuotaConfig{Enabled: true, LeadDaily: 1}},
	})

	assert.NoError(t, svc.CanRouteLead(context.Background()))
	assert.NoError(t, svc.CanRouteLead(context.Background()))
}

func TestCanRouteLeadFailsOpenOnRedisError(t *testing.T) {
	svc, mr := newQuotaService(t, true, 1, clock.SystemClock{})
	mr.Close()

	assert.NoError(t, svc.CanRouteLead(context.Background()))
}
