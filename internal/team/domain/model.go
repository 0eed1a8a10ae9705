package domain

import (
	"context"
	"errors"
	"time"
)

type Role string

const (
	RoleOwner Role = "owner"
	RoleAgent Role = "agent"
)

// Member is a team member that can receive lead assignments. Paused members
// are excluded from routing regardless of rule match.
type Member struct {
	ID        string    `gorm:"primaryKey;size:100" json:"id"`
	Name      string    `gorm:"size:200;not null" json:"name"`
	Role      Role      `gorm:"size:20;not null;default:agent" json:"role"`
	Paused    bool      `gorm:"not null;default:false" json:"paused"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Member) TableName() string { return "team_members" }

var (
	ErrMemberNotFound = errors.New("member_not_found")
	ErrInvalidMember  = errors.New("invalid_member")
)

type Service interface {
	Create(ctx context.Context, member Member) (*Member, error)
	List(ctx context.Context) ([]Member, error)
	Get(ctx context.Context, id string) (*Member, error)
	SetPaused(ctx context.Context, id string, paused bool) (*Member, error)

	// PausedSet returns the ids of all currently paused members.
	PausedSet(ctx context.Context) (map[string]bool, error)
	// FirstOwner returns the first non-paused member with the owner role,
	// nil when none exists.
	FirstOwner(ctx context.Context) (*Member, error)
	// FirstAvailable returns the first non-paused member in stable order,
	// nil when the whole team is paused.
	FirstAvailable(ctx context.Context) (*Member, error)
}
