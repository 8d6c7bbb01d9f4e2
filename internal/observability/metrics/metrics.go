package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes fee engine instruments.
type Metrics struct {
	feeCalculations metric.Int64Counter
	finalizations   metric.Int64Counter
	taxEngineCalls  metric.Int64Counter
	enumFallbacks   metric.Int64Counter
	settlements     metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				log.Info("shutting down meter provider")
				return provider.Shutdown(ctx)
			},
		})
	}

	log.Info("metrics initialized",
		zap.String("endpoint", cfg.ExporterEndpoint),
		zap.String("protocol", cfg.ExporterProtocol),
	)
	return provider, nil
}

// New configures the domain instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "feeengine"
	}
	meter := provider.Meter(name)

	feeCalculations, err := meter.Int64Counter("feeengine_fee_calculations_total")
	if err != nil {
		return nil, err
	}
	finalizations, err := meter.Int64Counter("feeengine_finalizations_total")
	if err != nil {
		return nil, err
	}
	taxEngineCalls, err := meter.Int64Counter("feeengine_tax_engine_calls_total")
	if err != nil {
		return nil, err
	}
	enumFallbacks, err := meter.Int64Counter("feeengine_enum_fallbacks_total")
	if err != nil {
		return nil, err
	}
	settlements, err := meter.Int64Counter("feeengine_payment_settlements_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		feeCalculations: feeCalculations,
		finalizations:   finalizations,
		taxEngineCalls:  taxEngineCalls,
		enumFallbacks:   enumFallbacks,
		settlements:     settlements,
	}, nil
}

// RecordFeeCalculation counts assembled fee calculations by owning context.
func (m *Metrics) RecordFeeCalculation(ctx context.Context, calculationType string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("calculation_type", strings.TrimSpace(calculationType)))
	m.feeCalculations.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordFinalization counts finalizations by the free-tier branch that fired.
func (m *Metrics) RecordFinalization(ctx context.Context, branch string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("branch", strings.TrimSpace(branch)))
	m.finalizations.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordTaxEngineCall counts calls into the external tax engine.
func (m *Metrics) RecordTaxEngineCall(ctx context.Context, operation, result string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("operation", strings.TrimSpace(operation)),
		attribute.String("result", strings.TrimSpace(result)),
	)
	m.taxEngineCalls.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordEnumFallback counts lenient fallbacks on unrecognized enum values.
func (m *Metrics) RecordEnumFallback(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("reason", strings.TrimSpace(reason)))
	m.enumFallbacks.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordSettlement counts payment settlement outcomes.
func (m *Metrics) RecordSettlement(ctx context.Context, result string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("result", strings.TrimSpace(result)))
	m.settlements.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"calculation_type": {},
	"branch":           {},
	"operation":        {},
	"result":           {},
	"reason":           {},
	"route":            {},
	"status_code":      {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
// Organization and payment identifiers never become labels.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
