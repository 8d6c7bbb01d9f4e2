package billingperiod

import (
	"github.com/flowglad/flowglad-sub009/internal/billingperiod/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("billingperiod.repository",
	fx.Provide(repository.Provide),
)
