package domain

import (
	"context"
	"errors"
)

var ErrLeadQuotaExceeded = errors.New("lead_quota_exceeded")

// Service guards lead intake volume. Advisory only: it fails open on storage
// errors and is disabled by default.
type Service interface {
	CanRouteLead(ctx context.Context) error
}
