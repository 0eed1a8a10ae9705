package migration

import (
	"errors"

	auditdomain "github.com/casaflowlabs/casaflow/internal/audit/domain"
	creditdomain "github.com/casaflowlabs/casaflow/internal/credit/domain"
	routingdomain "github.com/casaflowlabs/casaflow/internal/routing/domain"
	teamdomain "github.com/casaflowlabs/casaflow/internal/team/domain"
	"gorm.io/gorm"
)

// Run migrates the full schema. Invariants that must survive a restart
// (rule order, round-robin cursors, balances, the idempotency index) all
// live in these tables.
func Run(db *gorm.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}
	return db.AutoMigrate(
		&teamdomain.Member{},
		&routingdomain.Rule{},
		&routingdomain.Settings{},
		&creditdomain.Account{},
		&creditdomain.Rule{},
		&creditdomain.LedgerEntry{},
		&auditdomain.AuditLog{},
	)
}
