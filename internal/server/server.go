package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/flowglad/flowglad-sub009/internal/billingperiod"
	"github.com/flowglad/flowglad-sub009/internal/config"
	"github.com/flowglad/flowglad-sub009/internal/discount"
	"github.com/flowglad/flowglad-sub009/internal/events"
	"github.com/flowglad/flowglad-sub009/internal/feecalculation"
	feecalculationservice "github.com/flowglad/flowglad-sub009/internal/feecalculation/service"
	"github.com/flowglad/flowglad-sub009/internal/invoice"
	"github.com/flowglad/flowglad-sub009/internal/lock"
	"github.com/flowglad/flowglad-sub009/internal/observability"
	obsmiddleware "github.com/flowglad/flowglad-sub009/internal/observability/logger"
	obsmetrics "github.com/flowglad/flowglad-sub009/internal/observability/metrics"
	obstracing "github.com/flowglad/flowglad-sub009/internal/observability/tracing"
	"github.com/flowglad/flowglad-sub009/internal/organization"
	organizationdomain "github.com/flowglad/flowglad-sub009/internal/organization/domain"
	"github.com/flowglad/flowglad-sub009/internal/payment"
	paymentservice "github.com/flowglad/flowglad-sub009/internal/payment/service"
	"github.com/flowglad/flowglad-sub009/internal/price"
	"github.com/flowglad/flowglad-sub009/internal/reference"
	"github.com/flowglad/flowglad-sub009/internal/subscription"
	"github.com/flowglad/flowglad-sub009/internal/tax"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	lock.Module,
	events.Module,
	reference.Module,
	organization.Module,
	price.Module,
	invoice.Module,
	subscription.Module,
	billingperiod.Module,
	discount.Module,
	tax.Module,
	feecalculation.Module,
	payment.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	addr := strings.TrimSpace(cfg.HTTPAddr)
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", addr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	db              *gorm.DB
	log             *zap.Logger
	organizationSvc organizationdomain.Service
	feeSvc          *feecalculationservice.Service
	paymentSvc      *paymentservice.Service
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	DB              *gorm.DB
	Log             *zap.Logger
	OrganizationSvc organizationdomain.Service
	FeeSvc          *feecalculationservice.Service
	PaymentSvc      *paymentservice.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		db:              p.DB,
		log:             p.Log.Named("http.server"),
		organizationSvc: p.OrganizationSvc,
		feeSvc:          p.FeeSvc,
		paymentSvc:      p.PaymentSvc,
	}

	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/v1")

	// -------- Organizations --------
	api.POST("/organizations", s.CreateOrganization)
	api.GET("/organizations/:id", s.GetOrganizationByID)
	api.GET("/organizations/:id/fee-calculations", s.ListFeeCalculations)

	// -------- Fee calculations --------
	api.POST("/fee-calculations/checkout-sessions/invoice", s.CreateCheckoutSessionInvoiceFeeCalculation)
	api.POST("/fee-calculations/checkout-sessions/price", s.CreateCheckoutSessionPriceFeeCalculation)
	api.POST("/fee-calculations/billing-periods", s.CreateSubscriptionFeeCalculation)
	api.GET("/fee-calculations/:id", s.GetFeeCalculationByID)
	api.POST("/fee-calculations/:id/finalize", s.FinalizeFeeCalculation)

	// -------- Payments --------
	api.GET("/payments/:id", s.GetPaymentByID)
	api.POST("/payments/:id/settle", s.SettlePayment)
	api.POST("/payments/:id/refund", s.RefundPayment)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
