package service

import (
	"context"
	"fmt"
	"time"

	"github.com/casaflowlabs/casaflow/internal/clock"
	"github.com/casaflowlabs/casaflow/internal/config"
	quotadomain "github.com/casaflowlabs/casaflow/internal/quota/domain"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ServiceParam struct {
	fx.In

	Redis  *redis.Client `optional:"true"`
	Log    *zap.Logger
	Clock  clock.Clock
	Config config.Config
}

type service struct {
	redis *redis.Client
	log   *zap.Logger
	clock clock.Clock
	cfg   config.QuotaConfig
}

func NewService(p ServiceParam) quotadomain.Service {
	return &service{
		redis: p.Redis,
		log:   p.Log.Named("quota.service"),
		clock: p.Clock,
		cfg:   p.Config.Quota,
	}
}

func (s *service) CanRouteLead(ctx context.Context) error {
	if !s.cfg.Enabled || s.cfg.LeadDaily <= 0 || s.redis == nil {
		return nil
	}

	// Key: quota:leads:{day} e.g. quota:leads:2026-08-30
	day := s.clock.Now(ctx).Format("2006-01-02")
	key := fmt.Sprintf("quota:leads:%s", day)

	val, err := s.redis.Incr(ctx, key).Result()
	if err != nil {
		s.log.Error("failed to increment lead quota", zap.Error(err))
		// Fail open to avoid blocking routing on redis error.
		return nil
	}

	if val == 1 {
		s.redis.Expire(ctx, key, 48*time.Hour)
	}

	if val > int64(s.cfg.LeadDaily) {
		return quotadomain.ErrLeadQuotaExceeded
	}
	return nil
}
