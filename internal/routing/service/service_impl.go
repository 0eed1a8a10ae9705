package service

import (
	"context"
	"sync"

	"github.com/bwmarrin/snowflake"

	auditdomain "github.com/casaflowlabs/casaflow/internal/audit/domain"
	"github.com/casaflowlabs/casaflow/internal/config"
	"github.com/casaflowlabs/casaflow/internal/observability"
	routingdomain "github.com/casaflowlabs/casaflow/internal/routing/domain"
	teamdomain "github.com/casaflowlabs/casaflow/internal/team/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Config  config.Config
	Repo    routingdomain.Repository
	Team    teamdomain.Service
	Audit   auditdomain.Service
	Metrics *observability.Metrics
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	cfg     config.Config
	repo    routingdomain.Repository
	team    teamdomain.Service
	audit   auditdomain.Service
	metrics *observability.Metrics

	// Serializes round-robin cursor advancement per rule.
	cursorMu sync.Mutex
	cursors  map[int64]*sync.Mutex
}

func New(p Params) routingdomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("routing.service"),
		genID:   p.GenID,
		cfg:     p.Config,
		repo:    p.Repo,
		team:    p.Team,
		audit:   p.Audit,
		metrics: p.Metrics,
		cursors: make(map[int64]*sync.Mutex),
	}
}

func (s *Service) ruleLock(id int64) *sync.Mutex {
	s.cursorMu.Lock()
	defer s.cursorMu.Unlock()
	mu, ok := s.cursors[id]
	if !ok {
		mu = &sync.Mutex{}
		s.cursors[id] = mu
	}
	return mu
}

func (s *Service) AddRule(ctx context.Context, req routingdomain.CreateRuleRequest) (*routingdomain.Rule, error) {
	if !validLeadType(req.LeadType) {
		return nil, routingdomain.ErrInvalidRule
	}

	rule := &routingdomain.Rule{
		ID:        s.genID.Generate().Int64(),
		Locations: routingdomain.StringList(req.Locations),
		MinPrice:  req.MinPrice,
		MaxPrice:  req.MaxPrice,
		LeadType:  req.LeadType,
		Assignees: routingdomain.StringList(req.Assignees),
		Strategy:  req.Strategy,
		Active:    true,
	}
	rule.Normalize(req.AssignTo)
	if len(rule.Assignees) == 0 {
		return nil, routingdomain.ErrInvalidRule
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		count, err := s.repo.Count(ctx, tx)
		if err != nil {
			return err
		}
		rule.Order = int(count) + 1
		return s.repo.Insert(ctx, tx, rule)
	})
	if err != nil {
		return nil, err
	}

	s.auditRule(ctx, auditdomain.ActionRuleCreate, rule)
	return rule, nil
}

func (s *Service) UpdateRule(ctx context.Context, id int64, req routingdomain.UpdateRuleRequest) (*routingdomain.Rule, error) {
	rule, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, routingdomain.ErrRuleNotFound
	}

	if req.Locations != nil {
		rule.Locations = routingdomain.StringList(*req.Locations)
	}
	if req.MinPrice != nil {
		rule.MinPrice = req.MinPrice
	}
	if req.MaxPrice != nil {
		rule.MaxPrice = req.MaxPrice
	}
	if req.LeadType != nil {
		if !validLeadType(*req.LeadType) {
			return nil, routingdomain.ErrInvalidRule
		}
		rule.LeadType = *req.LeadType
	}
	if req.Assignees != nil {
		rule.Assignees = routingdomain.StringList(*req.Assignees)
	}
	if req.Strategy != nil {
		rule.Strategy = *req.Strategy
	}
	if req.Active != nil {
		rule.Active = *req.Active
	}

	rule.Normalize("")
	if len(rule.Assignees) == 0 {
		return nil, routingdomain.ErrInvalidRule
	}

	if err := s.repo.Update(ctx, s.db, rule); err != nil {
		return nil, err
	}

	s.auditRule(ctx, auditdomain.ActionRuleUpdate, rule)
	return rule, nil
}

func (s *Service) DeleteRule(ctx context.Context, id int64) error {
	rule, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if rule == nil {
		return routingdomain.ErrRuleNotFound
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Delete(ctx, tx, id); err != nil {
			return err
		}
		// Renumber the survivors to a dense 1..N, preserving relative order.
		remaining, err := s.repo.List(ctx, tx)
		if err != nil {
			return err
		}
		for i, r := range remaining {
			if r.Order != i+1 {
				if err := s.repo.SetOrder(ctx, tx, r.ID, i+1); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.auditRule(ctx, auditdomain.ActionRuleDelete, rule)
	return nil
}

func (s *Service) MoveRule(ctx context.Context, id int64, direction routingdomain.MoveDirection) (*routingdomain.Rule, error) {
	if direction != routingdomain.MoveUp && direction != routingdomain.MoveDown {
		return nil, routingdomain.ErrInvalidDirection
	}

	var moved *routingdomain.Rule
	err := s.db.Transaction(func(tx *gorm.DB) error {
		rules, err := s.repo.List(ctx, tx)
		if err != nil {
			return err
		}
		idx := -1
		for i := range rules {
			if rules[i].ID == id {
				idx = i
				break
			}
		}
		if idx == -1 {
			return routingdomain.ErrRuleNotFound
		}

		other := idx - 1
		if direction == routingdomain.MoveDown {
			other = idx + 1
		}
		moved = &rules[idx]
		if other < 0 || other >= len(rules) {
			// Boundary: no-op.
			return nil
		}

		if err := s.repo.SetOrder(ctx, tx, rules[idx].ID, rules[other].Order); err != nil {
			return err
		}
		if err := s.repo.SetOrder(ctx, tx, rules[other].ID, rules[idx].Order); err != nil {
			return err
		}
		rules[idx].Order, rules[other].Order = rules[other].Order, rules[idx].Order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, auditdomain.ActionRuleMove, "routing_rule", strPtr(snowflake.ID(moved.ID).String()), map[string]any{
		"direction": string(direction),
		"order":     moved.Order,
	})
	return moved, nil
}

func (s *Service) ListRules(ctx context.Context) ([]routingdomain.Rule, error) {
	return s.repo.List(ctx, s.db)
}

func (s *Service) GetSettings(ctx context.Context) (*routingdomain.Settings, error) {
	return s.repo.GetSettings(ctx, s.db)
}

func (s *Service) UpdateSettings(ctx context.Context, fallback routingdomain.Fallback) (*routingdomain.Settings, error) {
	if fallback != routingdomain.FallbackOwner && fallback != routingdomain.FallbackUnassigned {
		return nil, routingdomain.ErrInvalidRule
	}
	settings, err := s.repo.GetSettings(ctx, s.db)
	if err != nil {
		return nil, err
	}
	settings.Fallback = fallback
	if err := s.repo.SaveSettings(ctx, s.db, settings); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, auditdomain.ActionSettingsUpdate, "routing_settings", nil, map[string]any{
		"fallback": string(fallback),
	})
	return settings, nil
}

func (s *Service) auditRule(ctx context.Context, action string, rule *routingdomain.Rule) {
	id := snowflake.ID(rule.ID).String()
	s.audit.Record(ctx, action, "routing_rule", &id, map[string]any{
		"locations": []string(rule.Locations),
		"min_price": rule.MinPrice,
		"max_price": rule.MaxPrice,
		"lead_type": string(rule.LeadType),
		"assignees": []string(rule.Assignees),
		"strategy":  string(rule.Strategy),
		"active":    rule.Active,
		"order":     rule.Order,
	})
}

func validLeadType(t routingdomain.LeadType) bool {
	switch t {
	case "", routingdomain.LeadTypeAny, routingdomain.LeadTypeBuy,
		routingdomain.LeadTypeSell, routingdomain.LeadTypeRent:
		return true
	}
	return false
}

func strPtr(s string) *string { return &s }
