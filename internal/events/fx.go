package events

import (
	"context"
	"fmt"
	"strings"

	"github.com/flowglad/flowglad-sub009/internal/config"
	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const defaultDispatchSchedule = "@every 5s"

var Module = fx.Module("events",
	fx.Provide(NewOutbox),
	fx.Provide(NewPublisher),
	fx.Provide(NewDispatcher),
	fx.Invoke(runDispatcher),
)

// NewPublisher connects to RabbitMQ when RABBITMQ_URL is set and falls back
// to logging otherwise.
func NewPublisher(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) Publisher {
	var publisher Publisher
	if strings.TrimSpace(cfg.RabbitMQURL) == "" {
		log.Info("rabbitmq url not set, events are logged only")
		publisher = NewLogPublisher(log.Named("events.publisher"))
	} else {
		amqpPublisher, err := NewAMQPPublisher(cfg.RabbitMQURL, cfg.EventsExchange)
		if err != nil {
			log.Warn("rabbitmq unavailable, events are logged only", zap.Error(err))
			publisher = NewLogPublisher(log.Named("events.publisher"))
		} else {
			publisher = amqpPublisher
		}
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return publisher.Close()
		},
	})
	return publisher
}

// runDispatcher relays the outbox on cfg.OutboxDispatchSchedule. Overlapping
// runs are skipped.
func runDispatcher(lc fx.Lifecycle, cfg config.Config, dispatcher *Dispatcher) error {
	logger := cronLogger{log: dispatcher.log.Named("cron")}
	scheduler := cron.New(cron.WithChain(
		cron.Recover(logger),
		cron.SkipIfStillRunning(logger),
	))

	ctx, cancel := context.WithCancel(context.Background())
	spec := strings.TrimSpace(cfg.OutboxDispatchSchedule)
	if spec == "" {
		spec = defaultDispatchSchedule
	}
	if _, err := scheduler.AddFunc(spec, func() {
		if _, err := dispatcher.DispatchPending(ctx); err != nil && ctx.Err() == nil {
			dispatcher.log.Error("outbox dispatch failed", zap.Error(err))
		}
	}); err != nil {
		cancel()
		return fmt.Errorf("schedule outbox dispatch %q: %w", spec, err)
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			scheduler.Start()
			dispatcher.log.Info("outbox dispatcher scheduled", zap.String("schedule", spec))
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-scheduler.Stop().Done():
			case <-stopCtx.Done():
			}
			return nil
		},
	})
	return nil
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	log *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
