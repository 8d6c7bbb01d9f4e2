package organization

import (
	"github.com/flowglad/flowglad-sub009/internal/organization/repository"
	"github.com/flowglad/flowglad-sub009/internal/organization/service"
	"go.uber.org/fx"
)

var Module = fx.Module("organization.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
