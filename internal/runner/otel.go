package runner

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/sailsitl/sailsim/internal/runner"

type metrics struct {
	steps    metric.Int64Counter
	duration metric.Float64Histogram
	speed    metric.Float64ObservableGauge
}

func newMetrics(m metric.Meter, p *Progress) (*metrics, error) {
	if m == nil {
		m = otel.Meter(instrumentationName)
	}

	var (
		mt  metrics
		err error
	)

	mt.steps, err = m.Int64Counter(
		"sailsim.steps",
		metric.WithDescription("Simulation steps executed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating steps counter: %w", err)
	}

	mt.duration, err = m.Float64Histogram(
		"sailsim.step.duration",
		metric.WithDescription("Wall time of one simulation step including sinks"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating step duration histogram: %w", err)
	}

	mt.speed, err = m.Float64ObservableGauge(
		"sailsim.speed",
		metric.WithDescription("Speed over ground"),
		metric.WithUnit("m/s"),
		metric.WithFloat64Callback(func(_ context.Context, o metric.Float64Observer) error {
			o.Observe(p.Speed())
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("creating speed gauge: %w", err)
	}

	return &mt, nil
}
