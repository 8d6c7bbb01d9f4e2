package discount

import (
	"github.com/flowglad/flowglad-sub009/internal/discount/repository"
	"github.com/flowglad/flowglad-sub009/internal/discount/service"
	"go.uber.org/fx"
)

var Module = fx.Module("discount.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
