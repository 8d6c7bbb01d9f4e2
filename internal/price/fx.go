package price

import (
	"github.com/flowglad/flowglad-sub009/internal/price/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("price.repository",
	fx.Provide(repository.Provide),
)
