package domain

import "context"

type CreateRuleRequest struct {
	Locations []string `json:"locations"`
	MinPrice  *int64   `json:"min_price"`
	MaxPrice  *int64   `json:"max_price"`
	LeadType  LeadType `json:"lead_type"`
	Assignees []string `json:"assignees"`
	// Legacy single-assignee form; collapsed into Assignees on create.
	AssignTo string   `json:"assign_to"`
	Strategy Strategy `json:"strategy"`
}

// UpdateRuleRequest is a partial patch; nil fields keep current values.
type UpdateRuleRequest struct {
	Locations *[]string `json:"locations,omitempty"`
	MinPrice  *int64    `json:"min_price,omitempty"`
	MaxPrice  *int64    `json:"max_price,omitempty"`
	LeadType  *LeadType `json:"lead_type,omitempty"`
	Assignees *[]string `json:"assignees,omitempty"`
	Strategy  *Strategy `json:"strategy,omitempty"`
	Active    *bool     `json:"active,omitempty"`
}

type MoveDirection string

const (
	MoveUp   MoveDirection = "up"
	MoveDown MoveDirection = "down"
)

type Service interface {
	// Rule store.
	AddRule(ctx context.Context, req CreateRuleRequest) (*Rule, error)
	UpdateRule(ctx context.Context, id int64, req UpdateRuleRequest) (*Rule, error)
	DeleteRule(ctx context.Context, id int64) error
	MoveRule(ctx context.Context, id int64, direction MoveDirection) (*Rule, error)
	ListRules(ctx context.Context) ([]Rule, error)

	// Engine.
	MatchAgent(ctx context.Context, query MatchQuery) (MatchResult, error)

	// Fallback policy and alert flag.
	GetSettings(ctx context.Context) (*Settings, error)
	UpdateSettings(ctx context.Context, fallback Fallback) (*Settings, error)
}
