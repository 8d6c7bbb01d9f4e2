package feecalculation

import (
	"github.com/flowglad/flowglad-sub009/internal/feecalculation/repository"
	"github.com/flowglad/flowglad-sub009/internal/feecalculation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("feecalculation.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
