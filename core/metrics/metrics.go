// Package metrics installs the global OpenTelemetry meter provider backed by
// a Prometheus exporter.
package metrics

import (
	"context"
	"net/http"

	"homereader/logger"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.30.0"
)

// Setup registers the meter provider globally. The returned handler serves
// /metrics; it is nil when the exporter could not be created, in which case
// instruments still work but are not exported.
func Setup(ctx context.Context, serviceName string) (func(context.Context) error, http.Handler, error) {
	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(serviceName)))
	if err != nil {
		return nil, nil, err
	}

	var handler http.Handler
	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}

	promExporter, err := prometheus.New()
	if err != nil {
		logger.Warn("[metrics] 初始化 prometheus exporter 失败", logger.ErrorField(err))
	} else {
		opts = append(opts, sdkmetric.WithReader(promExporter))
		handler = promhttp.Handler()
	}

	provider := sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(provider)
	logger.Info("[metrics] 指标已初始化", logger.Bool("prometheus", handler != nil))

	return provider.Shutdown, handler, nil
}
