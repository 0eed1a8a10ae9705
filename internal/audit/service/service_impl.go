package service

import (
	"context"
	"encoding/json"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/casaflowlabs/casaflow/internal/audit/domain"
	"github.com/casaflowlabs/casaflow/internal/audit/repository"
	"github.com/casaflowlabs/casaflow/internal/clock"
	"github.com/casaflowlabs/casaflow/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  repository.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  repository.Repository
}

func New(p Params) auditdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

// Record appends an audit event. Storage failures are logged and swallowed so
// the primary operation is never blocked by the sink.
func (s *Service) Record(ctx context.Context, action, targetType string, targetID *string, metadata map[string]any) {
	var meta datatypes.JSON
	if len(metadata) > 0 {
		raw, err := json.Marshal(metadata)
		if err != nil {
			s.log.Warn("audit metadata not serializable", zap.String("action", action), zap.Error(err))
		} else {
			meta = datatypes.JSON(raw)
		}
	}

	entry := &auditdomain.AuditLog{
		ID:         s.genID.Generate().Int64(),
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Metadata:   meta,
		CreatedAt:  s.clock.Now(ctx),
	}

	if err := s.repo.Insert(ctx, s.db, entry); err != nil {
		s.log.Error("audit record failed", zap.String("action", action), zap.Error(err))
	}
}

func (s *Service) List(ctx context.Context, req auditdomain.ListRequest) (auditdomain.ListResponse, error) {
	req.Page = req.Page.Normalize()
	logs, total, err := s.repo.List(ctx, s.db, req)
	if err != nil {
		return auditdomain.ListResponse{}, err
	}
	return auditdomain.ListResponse{
		PageInfo: pagination.BuildPageInfo(req.Page, total),
		Logs:     logs,
	}, nil
}
