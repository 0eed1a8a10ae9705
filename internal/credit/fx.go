package credit

import (
	"github.com/casaflowlabs/casaflow/internal/credit/repository"
	"github.com/casaflowlabs/casaflow/internal/credit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("credit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
