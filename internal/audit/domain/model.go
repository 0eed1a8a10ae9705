package domain

import (
	"context"
	"time"

	"github.com/casaflowlabs/casaflow/pkg/db/pagination"
	"gorm.io/datatypes"
)

// AuditLog is an append-only record of an administrative or domain event.
// Rows are never updated or deleted.
type AuditLog struct {
	ID         int64          `gorm:"primaryKey" json:"id,string"`
	Action     string         `gorm:"index;size:100;not null" json:"action"`
	TargetType string         `gorm:"size:50" json:"target_type"`
	TargetID   *string        `gorm:"size:100" json:"target_id,omitempty"`
	Metadata   datatypes.JSON `json:"metadata,omitempty"`
	CreatedAt  time.Time      `gorm:"index" json:"created_at"`
}

func (AuditLog) TableName() string { return "audit_logs" }

// Event actions emitted by the routing and credit engines.
const (
	ActionRuleCreate        = "routing_rule.create"
	ActionRuleUpdate        = "routing_rule.update"
	ActionRuleDelete        = "routing_rule.delete"
	ActionRuleMove          = "routing_rule.move"
	ActionSettingsUpdate    = "routing_settings.update"
	ActionFallbackTriggered = "routing_fallback_triggered"
	ActionAgentPause        = "agent.pause"
	ActionAgentUnpause      = "agent.unpause"
	ActionCreditConsumption = "credit_consumption"
	ActionCreditPurchase    = "credit_purchase"
	ActionCreditRuleUpdate  = "credit_rule.update"
	ActionAccountUpdate     = "credit_account.update"
)

type ListRequest struct {
	Actions []string
	From    *time.Time
	To      *time.Time
	Page    pagination.Pagination
}

type ListResponse struct {
	PageInfo pagination.PageInfo `json:"page_info"`
	Logs     []AuditLog          `json:"logs"`
}

// ExportFormat is the output format for audit exports.
type ExportFormat string

const (
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatJSON ExportFormat = "json"
)

type ExportRequest struct {
	StartDate time.Time
	EndDate   time.Time
	Format    ExportFormat
	Actions   []string
}

type ExportResult struct {
	Data     []byte
	Checksum string
	Format   ExportFormat
	Count    int
}

// Service records events and serves the audit trail. Record must never fail
// the calling operation: implementations log and swallow storage errors.
type Service interface {
	Record(ctx context.Context, action, targetType string, targetID *string, metadata map[string]any)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	Export(ctx context.Context, req ExportRequest) (*ExportResult, error)
}
