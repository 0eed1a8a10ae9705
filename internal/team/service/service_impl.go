package service

import (
	"context"
	"strings"

	auditdomain "github.com/casaflowlabs/casaflow/internal/audit/domain"
	teamdomain "github.com/casaflowlabs/casaflow/internal/team/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Repo  teamdomain.Repository
	Audit auditdomain.Service
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	repo  teamdomain.Repository
	audit auditdomain.Service
}

func New(p Params) teamdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("team.service"),
		repo:  p.Repo,
		audit: p.Audit,
	}
}

func (s *Service) Create(ctx context.Context, member teamdomain.Member) (*teamdomain.Member, error) {
	member.ID = strings.TrimSpace(member.ID)
	member.Name = strings.TrimSpace(member.Name)
	if member.ID == "" || member.Name == "" {
		return nil, teamdomain.ErrInvalidMember
	}
	if member.Role != teamdomain.RoleOwner {
		member.Role = teamdomain.RoleAgent
	}
	if err := s.repo.Insert(ctx, s.db, &member); err != nil {
		return nil, err
	}
	return &member, nil
}

func (s *Service) List(ctx context.Context) ([]teamdomain.Member, error) {
	return s.repo.List(ctx, s.db)
}

func (s *Service) Get(ctx context.Context, id string) (*teamdomain.Member, error) {
	m, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, teamdomain.ErrMemberNotFound
	}
	return m, nil
}

func (s *Service) SetPaused(ctx context.Context, id string, paused bool) (*teamdomain.Member, error) {
	if err := s.repo.SetPaused(ctx, s.db, id, paused); err != nil {
		return nil, err
	}

	action := auditdomain.ActionAgentPause
	if !paused {
		action = auditdomain.ActionAgentUnpause
	}
	s.audit.Record(ctx, action, "team_member", &id, nil)

	return s.Get(ctx, id)
}

func (s *Service) PausedSet(ctx context.Context) (map[string]bool, error) {
	ids, err := s.repo.ListPausedIDs(ctx, s.db)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

func (s *Service) FirstOwner(ctx context.Context) (*teamdomain.Member, error) {
	return s.repo.FirstByRole(ctx, s.db, teamdomain.RoleOwner, true)
}

func (s *Service) FirstAvailable(ctx context.Context) (*teamdomain.Member, error) {
	return s.repo.FirstAvailable(ctx, s.db)
}
