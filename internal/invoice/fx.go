package invoice

import (
	"github.com/flowglad/flowglad-sub009/internal/invoice/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("invoice.repository",
	fx.Provide(repository.Provide),
)
