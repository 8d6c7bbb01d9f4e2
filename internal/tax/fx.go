package tax

import (
	"strings"

	"github.com/flowglad/flowglad-sub009/internal/config"
	"github.com/flowglad/flowglad-sub009/internal/tax/adapters"
	"github.com/flowglad/flowglad-sub009/internal/tax/adapters/stripe"
	taxdomain "github.com/flowglad/flowglad-sub009/internal/tax/domain"
	"github.com/flowglad/flowglad-sub009/internal/tax/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("tax.service",
	fx.Provide(NewEngine),
	fx.Provide(service.NewService),
)

func NewEngine(cfg config.Config, log *zap.Logger) taxdomain.Engine {
	key := strings.TrimSpace(cfg.StripeSecretKey)
	if key == "" {
		log.Warn("stripe secret key not set, merchant-of-record tax calculation disabled")
		return adapters.UnconfiguredEngine{}
	}
	return stripe.NewEngine(key)
}
