package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/casaflowlabs/casaflow/internal/audit"
	"github.com/casaflowlabs/casaflow/internal/clock"
	"github.com/casaflowlabs/casaflow/internal/config"
	"github.com/casaflowlabs/casaflow/internal/credit"
	"github.com/casaflowlabs/casaflow/internal/migration"
	"github.com/casaflowlabs/casaflow/internal/observability"
	"github.com/casaflowlabs/casaflow/internal/quota"
	"github.com/casaflowlabs/casaflow/internal/redis"
	"github.com/casaflowlabs/casaflow/internal/routing"
	"github.com/casaflowlabs/casaflow/internal/seed"
	"github.com/casaflowlabs/casaflow/internal/server"
	"github.com/casaflowlabs/casaflow/internal/team"
	"github.com/casaflowlabs/casaflow/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "casaflow",
		Short:   "Lead routing and credit consumption service",
		Version: readVersionFromEnv(),
	}
	root.AddCommand(newMigrateCmd(), newServeCmd())
	return root
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations and seed defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate()
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the routing + credits API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			runServe()
			return nil
		},
	}
}

func runMigrate() error {
	app := fx.New(
		config.Module,
		observability.Module,
		db.Module,
		migration.Module,
		fx.Invoke(seed.EnsureDefaults),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("migrate failed: %w", err)
	}
	_ = app.Stop(context.Background())
	return nil
}

func runServe() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		clock.Module,
		redis.Module,
		migration.Module,
		fx.Invoke(seed.EnsureDefaults),
		audit.Module,
		team.Module,
		routing.Module,
		credit.Module,
		quota.Module,
		server.Module,
	)
	app.Run()
}

func registerSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}

func readVersionFromEnv() string {
	if v := strings.TrimSpace(os.Getenv("APP_VERSION")); v != "" {
		return v
	}
	return "dev"
}
