package subscription

import (
	"github.com/flowglad/flowglad-sub009/internal/subscription/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("subscription.repository",
	fx.Provide(repository.Provide),
)
