package routing

import (
	"github.com/casaflowlabs/casaflow/internal/routing/repository"
	"github.com/casaflowlabs/casaflow/internal/routing/service"
	"go.uber.org/fx"
)

var Module = fx.Module("routing.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
