package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/casaflowlabs/casaflow/internal/audit/domain"
	routingdomain "github.com/casaflowlabs/casaflow/internal/routing/domain"
	"go.uber.org/zap"
)

// MatchAgent assigns an inbound lead to exactly one agent. It never fails with
// a routing error: exhaustion resolves to the fallback policy and only the
// persisted alert flag communicates degraded state.
func (s *Service) MatchAgent(ctx context.Context, query routingdomain.MatchQuery) (routingdomain.MatchResult, error) {
	paused, err := s.team.PausedSet(ctx)
	if err != nil {
		return routingdomain.MatchResult{}, err
	}

	rules, err := s.repo.List(ctx, s.db)
	if err != nil {
		return routingdomain.MatchResult{}, err
	}

	for i := range rules {
		rule := &rules[i]
		if !rule.Active || !ruleMatches(rule, query) {
			continue
		}

		agentID, err := s.pickFromRule(ctx, rule, paused)
		if err != nil {
			return routingdomain.MatchResult{}, err
		}
		if agentID == "" {
			// All candidates of the winning rule are paused. Falls through
			// to the global fallback, not to lower-priority rules.
			return s.fallback(ctx, &rule.ID)
		}

		if err := s.setAlert(ctx, false); err != nil {
			return routingdomain.MatchResult{}, err
		}
		s.metrics.RoutingMatches.WithLabelValues("rule").Inc()
		ruleID := rule.ID
		return routingdomain.MatchResult{AgentID: agentID, RuleID: &ruleID}, nil
	}

	return s.fallback(ctx, nil)
}

// pickFromRule selects an agent from the rule's candidate pool, advancing the
// persisted round-robin cursor when applicable. Returns "" when every
// candidate is paused.
func (s *Service) pickFromRule(ctx context.Context, rule *routingdomain.Rule, paused map[string]bool) (string, error) {
	available := availableAssignees(rule.Assignees, paused)
	if len(available) == 0 {
		return "", nil
	}

	if rule.Strategy != routingdomain.StrategyRoundRobin {
		return available[0], nil
	}

	mu := s.ruleLock(rule.ID)
	mu.Lock()
	defer mu.Unlock()

	// Re-read under the lock so concurrent matches never advance the same
	// cursor value twice.
	fresh, err := s.repo.FindByID(ctx, s.db, rule.ID)
	if err != nil {
		return "", err
	}
	if fresh == nil {
		return "", nil
	}
	available = availableAssignees(fresh.Assignees, paused)
	if len(available) == 0 {
		return "", nil
	}

	idx := fresh.Cursor % len(available)
	agentID := available[idx]
	next := (idx + 1) % len(available)
	if err := s.repo.SetCursor(ctx, s.db, rule.ID, next); err != nil {
		return "", err
	}
	return agentID, nil
}

func (s *Service) fallback(ctx context.Context, matchedRuleID *int64) (routingdomain.MatchResult, error) {
	settings, err := s.repo.GetSettings(ctx, s.db)
	if err != nil {
		return routingdomain.MatchResult{}, err
	}

	if settings.Fallback == routingdomain.FallbackOwner {
		owner, err := s.team.FirstOwner(ctx)
		if err != nil {
			return routingdomain.MatchResult{}, err
		}
		if owner != nil {
			if err := s.setAlert(ctx, false); err != nil {
				return routingdomain.MatchResult{}, err
			}
			s.metrics.RoutingMatches.WithLabelValues("fallback_owner").Inc()
			return routingdomain.MatchResult{AgentID: owner.ID, RuleID: matchedRuleID, Fallback: true}, nil
		}
	}

	// Exhausted: no rule candidate and no usable fallback owner.
	if err := s.setAlert(ctx, true); err != nil {
		return routingdomain.MatchResult{}, err
	}
	s.metrics.RoutingFallbacks.Inc()
	s.metrics.RoutingMatches.WithLabelValues("fallback_last_resort").Inc()

	meta := map[string]any{"fallback": string(settings.Fallback)}
	if matchedRuleID != nil {
		meta["rule_id"] = snowflake.ID(*matchedRuleID).String()
	}
	s.audit.Record(ctx, auditdomain.ActionFallbackTriggered, "routing", nil, meta)

	agentID := s.cfg.Routing.DefaultAgentID
	member, err := s.team.FirstAvailable(ctx)
	if err != nil {
		return routingdomain.MatchResult{}, err
	}
	if member != nil {
		agentID = member.ID
	} else {
		s.log.Warn("entire team paused, using default agent", zap.String("agent_id", agentID))
	}

	return routingdomain.MatchResult{AgentID: agentID, RuleID: matchedRuleID, Fallback: true, Alert: true}, nil
}

func (s *Service) setAlert(ctx context.Context, alert bool) error {
	settings, err := s.repo.GetSettings(ctx, s.db)
	if err != nil {
		return err
	}
	settings.Alert = alert
	return s.repo.SaveSettings(ctx, s.db, settings)
}

func availableAssignees(assignees routingdomain.StringList, paused map[string]bool) []string {
	out := make([]string, 0, len(assignees))
	for _, a := range assignees {
		if !paused[a] {
			out = append(out, a)
		}
	}
	return out
}

// ruleMatches applies the three gates: location, price range and lead type.
func ruleMatches(rule *routingdomain.Rule, q routingdomain.MatchQuery) bool {
	if len(rule.Locations) > 0 && !locationMatches(rule.Locations, q) {
		return false
	}

	// The price gate is skipped entirely for price-less queries.
	if q.Price != nil {
		if rule.MinPrice != nil && *q.Price < *rule.MinPrice {
			return false
		}
		if rule.MaxPrice != nil && *q.Price > *rule.MaxPrice {
			return false
		}
	}

	if rule.LeadType != "" && rule.LeadType != routingdomain.LeadTypeAny {
		if !strings.EqualFold(string(rule.LeadType), string(q.LeadType)) {
			return false
		}
	}

	return true
}

func locationMatches(locations routingdomain.StringList, q routingdomain.MatchQuery) bool {
	candidates := make([]string, 0, 2+len(q.PreferredZones))
	if q.Zone != "" {
		candidates = append(candidates, q.Zone)
	}
	if q.Zip != "" {
		candidates = append(candidates, q.Zip)
	}
	candidates = append(candidates, q.PreferredZones...)

	for _, loc := range locations {
		for _, c := range candidates {
			if strings.EqualFold(strings.TrimSpace(loc), strings.TrimSpace(c)) {
				return true
			}
		}
	}
	return false
}
