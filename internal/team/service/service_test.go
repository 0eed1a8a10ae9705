package service_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/bwmarrin/snowflake"
	auditrepo "github.com/casaflowlabs/casaflow/internal/audit/repository"
	auditservice "github.com/casaflowlabs/casaflow/internal/audit/service"
	"github.com/casaflowlabs/casaflow/internal/clock"
	"github.com/casaflowlabs/casaflow/internal/migration"
	teamdomain "github.com/casaflowlabs/casaflow/internal/team/domain"
	teamrepo "github.com/casaflowlabs/casaflow/internal/team/repository"
	teamservice "github.com/casaflowlabs/casaflow/internal/team/service"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTeamService(t *testing.T) teamdomain.Service {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, migration.Run(db))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	logger := zap.NewNop()

	auditSvc := auditservice.New(auditservice.Params{
		DB:    db,
		Log:   logger,
		GenID: node,
		Clock: clock.SystemClock{},
		Repo:  auditrepo.Provide(),
	})
	return teamservice.New(teamservice.Params{
		DB:    db,
		Log:   logger,
		Repo:  teamrepo.Provide(),
		Audit: auditSvc,
	})
}

func TestCreateValidatesAndDefaultsRole(t *testing.T) {
	svc := newTeamService(t)
	ctx := context.Background()

	member, err := svc.Create(ctx, teamdomain.Member{ID: " agent-1 ", Name: " Ana "})
	require.NoError(t, err)
	assert.Equal(t, "agent-1", member.ID)
	assert.Equal(t, "Ana", member.Name)
	assert.Equal(t, teamdomain.RoleAgent, member.Role)

	_, err = svc.Create(ctx, teamdomain.Member{ID: "", Name: "Nameless"})
	assert.ErrorIs(t, err, teamdomain.ErrInvalidMember)
}

func TestSetPausedRoundTrip(t *testing.T) {
	svc := newTeamService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, teamdomain.Member{ID: "agent-1", Name: "Ana"})
	require.NoError(t, err)

	member, err := svc.SetPaused(ctx, "agent-1", true)
	require.NoError(t, err)
	assert.True(t, member.Paused)

	set, err := svc.PausedSet(ctx)
	require.NoError(t, err)
	assert.True(t, set["agent-1"])

	member, err = svc.SetPaused(ctx, "agent-1", false)
	require.NoError(t, err)
	assert.False(t, member.Paused)

	_, err = svc.SetPaused(ctx, "ghost", true)
	assert.ErrorIs(t, err, teamdomain.ErrMemberNotFound)
}

func TestFirstOwnerSkipsPaused(t *testing.T) {
	svc := newTeamService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, teamdomain.Member{ID: "owner-1", Name: "Olga", Role: teamdomain.RoleOwner})
	require.NoError(t, err)
	_, err = svc.Create(ctx, teamdomain.Member{ID: "agent-1", Name: "Ana"})
	require.NoError(t, err)

	owner, err := svc.FirstOwner(ctx)
	require.NoError(t, err)
	require.NotNil(t, owner)
	assert.Equal(t, "owner-1", owner.ID)

	_, err = svc.SetPaused(ctx, "owner-1", true)
	require.NoError(t, err)

	owner, err = svc.FirstOwner(ctx)
	require.NoError(t, err)
	assert.Nil(t, owner)

	available, err := svc.FirstAvailable(ctx)
	require.NoError(t, err)
	require.NotNil(t, available)
	assert.Equal(t, "agent-1", available.ID)
}
