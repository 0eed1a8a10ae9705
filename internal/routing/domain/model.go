package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// StringList is stored as a JSON array column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	raw, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func (l *StringList) Scan(value any) error {
	if value == nil {
		*l = StringList{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("unsupported type for StringList: %T", value)
	}
}

type Strategy string

const (
	StrategySingle     Strategy = "single"
	StrategyRoundRobin Strategy = "round_robin"
)

type LeadType string

const (
	LeadTypeBuy  LeadType = "buy"
	LeadTypeSell LeadType = "sell"
	LeadTypeRent LeadType = "rent"
	LeadTypeAny  LeadType = "any"
)

// Rule routes an inbound lead to a candidate pool. Rules are evaluated in
// ascending Order; the first active rule whose gates all pass wins.
type Rule struct {
	ID        int64      `gorm:"primaryKey" json:"id,string"`
	Locations StringList `gorm:"type:text" json:"locations"`
	MinPrice  *int64     `json:"min_price,omitempty"`
	MaxPrice  *int64     `json:"max_price,omitempty"`
	LeadType  LeadType   `gorm:"size:10" json:"lead_type,omitempty"`
	Assignees StringList `gorm:"type:text" json:"assignees"`
	Strategy  Strategy   `gorm:"size:20;not null;default:single" json:"strategy"`
	Cursor    int        `gorm:"not null;default:0" json:"cursor"`
	Active    bool       `gorm:"not null;default:true" json:"active"`
	Order     int        `gorm:"column:sort_order;not null" json:"order"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (Rule) TableName() string { return "routing_rules" }

// Normalize collapses the legacy single-assignee form and clamps the cursor.
// Called once on create and on every update, so engine logic never sees the
// dual representation.
func (r *Rule) Normalize(legacyAssignTo string) {
	if len(r.Assignees) == 0 && legacyAssignTo != "" {
		r.Assignees = StringList{legacyAssignTo}
	}
	if r.Strategy != StrategyRoundRobin {
		r.Strategy = StrategySingle
	}
	if r.LeadType == LeadTypeAny {
		r.LeadType = ""
	}
	if len(r.Assignees) == 0 {
		r.Cursor = 0
	} else if r.Cursor < 0 || r.Cursor >= len(r.Assignees) {
		r.Cursor = r.Cursor % len(r.Assignees)
		if r.Cursor < 0 {
			r.Cursor += len(r.Assignees)
		}
	}
}

type Fallback string

const (
	FallbackOwner      Fallback = "owner"
	FallbackUnassigned Fallback = "unassigned"
)

// Settings is a singleton row holding the fallback policy and the persisted
// alert flag. The alert flag is updated on every match call.
type Settings struct {
	ID        int64     `gorm:"primaryKey" json:"-"`
	Fallback  Fallback  `gorm:"size:20;not null;default:owner" json:"fallback"`
	Alert     bool      `gorm:"not null;default:false" json:"alert"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Settings) TableName() string { return "routing_settings" }

// SettingsID is the fixed primary key of the singleton settings row.
const SettingsID int64 = 1

// MatchQuery describes an inbound lead. Not persisted.
type MatchQuery struct {
	Zone           string   `json:"zone,omitempty"`
	Zip            string   `json:"zip,omitempty"`
	PreferredZones []string `json:"preferred_zones,omitempty"`
	Price          *int64   `json:"price,omitempty"`
	LeadType       LeadType `json:"lead_type,omitempty"`
}

// MatchResult is the routing outcome. MatchAgent always produces an agent;
// Fallback and Alert communicate degraded paths.
type MatchResult struct {
	AgentID  string `json:"agent_id"`
	RuleID   *int64 `json:"rule_id,string,omitempty"`
	Fallback bool   `json:"fallback"`
	Alert    bool   `json:"alert"`
}

var (
	ErrRuleNotFound     = errors.New("rule_not_found")
	ErrInvalidRule      = errors.New("invalid_rule")
	ErrInvalidDirection = errors.New("invalid_direction")
)
