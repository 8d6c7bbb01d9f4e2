package payment

import (
	"github.com/flowglad/flowglad-sub009/internal/payment/repository"
	paymentservice "github.com/flowglad/flowglad-sub009/internal/payment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(paymentservice.NewService),
)
