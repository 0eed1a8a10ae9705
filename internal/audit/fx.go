package audit

import (
	"github.com/casaflowlabs/casaflow/internal/audit/repository"
	"github.com/casaflowlabs/casaflow/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
