package seed

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	creditdomain "github.com/casaflowlabs/casaflow/internal/credit/domain"
	teamdomain "github.com/casaflowlabs/casaflow/internal/team/domain"
	"gorm.io/gorm"
)

const (
	defaultOwnerID   = "agent-1"
	defaultOwnerName = "Account Owner"
)

// EnsureDefaults seeds the default owner and a starter credit account on
// first boot. No-op when data already exists.
func EnsureDefaults(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureOwner(tx); err != nil {
			return err
		}
		return ensureAccount(tx, node)
	})
}

func ensureOwner(tx *gorm.DB) error {
	var count int64
	if err := tx.Model(&teamdomain.Member{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return tx.Create(&teamdomain.Member{
		ID:   defaultOwnerID,
		Name: defaultOwnerName,
		Role: teamdomain.RoleOwner,
	}).Error
}

func ensureAccount(tx *gorm.DB, node *snowflake.Node) error {
	var count int64
	if err := tx.Model(&creditdomain.Account{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	accountID := node.Generate().Int64()
	account := &creditdomain.Account{
		ID:                  accountID,
		Name:                "Primary",
		Balance:             0,
		LowBalanceThreshold: 10,
		CurrencyRate:        1,
		Rules: []creditdomain.Rule{
			{ID: node.Generate().Int64(), AccountID: accountID, Action: "lead_basic", Cost: 1, Enabled: true},
			{ID: node.Generate().Int64(), AccountID: accountID, Action: "lead_premium", Cost: 5, Enabled: true},
			{ID: node.Generate().Int64(), AccountID: accountID, Action: "featured_listing", Cost: 3, Enabled: true},
		},
	}
	return tx.Create(account).Error
}
