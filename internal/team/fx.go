package team

import (
	"github.com/casaflowlabs/casaflow/internal/team/repository"
	"github.com/casaflowlabs/casaflow/internal/team/service"
	"go.uber.org/fx"
)

var Module = fx.Module("team.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
