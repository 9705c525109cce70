// Package dispatcher fans simulation samples out to the registered sinks.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sailsitl/sailsim/pkg/core"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrQueueFull is returned when a non-blocking buffered sink drops a sample.
var ErrQueueFull = errors.New("queue full")

// SinkFunc consumes one sample.
type SinkFunc func(core.StepSample) error

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures sink registration.
type Option func(*config)

type config struct {
	bufferSize int
	blocking   bool
	logged     bool
}

// Buffered makes the sink async with a queue of the given size.
func Buffered(size int) Option {
	return func(c *config) {
		c.bufferSize = size
	}
}

// Blocking makes a buffered sink block when the queue is full instead of dropping.
func Blocking() Option {
	return func(c *config) {
		c.blocking = true
	}
}

// Logged adds debug logging to the sink.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

type sink struct {
	name string
	fn   SinkFunc
}

// Dispatcher publishes every sample to every sink in registration order.
type Dispatcher struct {
	sinks  []sink
	logger Logger

	queueSize metric.Int64ObservableGauge
	processed metric.Int64Counter
	dropped   metric.Int64Counter
	failed    metric.Int64Counter

	mu      sync.RWMutex
	buffers map[string]chan core.StepSample
	wg      sync.WaitGroup
	closed  bool
}

// New creates a new Dispatcher with the given logger.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		buffers: make(map[string]chan core.StepSample),
		logger:  logger,
	}

	m := meter()

	var err error

	d.queueSize, err = m.Int64ObservableGauge(
		"dispatcher.queue.size",
		metric.WithDescription("Current number of samples waiting per sink"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating queue size gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			d.mu.RLock()
			defer d.mu.RUnlock()
			for name, buf := range d.buffers {
				o.ObserveInt64(d.queueSize, int64(len(buf)),
					metric.WithAttributes(attribute.String("sink", name)))
			}
			return nil
		},
		d.queueSize,
	)
	if err != nil {
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}

	d.processed, err = m.Int64Counter(
		"dispatcher.samples.processed",
		metric.WithDescription("Total samples handled by sinks"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}

	d.dropped, err = m.Int64Counter(
		"dispatcher.samples.dropped",
		metric.WithDescription("Total samples dropped due to full queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}

	d.failed, err = m.Int64Counter(
		"dispatcher.samples.failed",
		metric.WithDescription("Total samples a sink returned an error for"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating failed counter: %w", err)
	}

	return d, nil
}

// Register adds a named sink. Registering a name twice replaces the earlier
// sink; a replaced buffered sink drains its queue and stops.
func (d *Dispatcher) Register(name string, fn SinkFunc, opts ...Option) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	h := d.counted(name, fn)

	if cfg.logged {
		h = d.withLogging(name, h)
	}

	if cfg.bufferSize > 0 {
		h = d.withBuffer(name, cfg.bufferSize, cfg.blocking, h)
	}

	for i := range d.sinks {
		if d.sinks[i].name == name {
			d.sinks[i].fn = h
			return
		}
	}
	d.sinks = append(d.sinks, sink{name: name, fn: h})
}

// Sinks returns the registered sink names in publish order.
func (d *Dispatcher) Sinks() []string {
	names := make([]string, len(d.sinks))
	for i, s := range d.sinks {
		names[i] = s.name
	}
	return names
}

// HasSink returns true if a sink is registered under name.
func (d *Dispatcher) HasSink(name string) bool {
	for _, s := range d.sinks {
		if s.name == name {
			return true
		}
	}
	return false
}

// Publish hands s to every sink. Sink errors are joined; a failing sink never
// stops the others.
func (d *Dispatcher) Publish(s core.StepSample) error {
	var errs []error
	for _, sk := range d.sinks {
		if err := sk.fn(s); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", sk.name, err))
		}
	}
	return errors.Join(errs...)
}

// Close stops accepting samples and waits until every buffered sink has
// drained its queue.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, buf := range d.buffers {
		close(buf)
	}
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) counted(name string, fn SinkFunc) SinkFunc {
	attrs := metric.WithAttributes(attribute.String("sink", name))
	return func(s core.StepSample) error {
		err := fn(s)
		if err != nil {
			d.failed.Add(context.Background(), 1, attrs)
			return err
		}
		d.processed.Add(context.Background(), 1, attrs)
		return nil
	}
}

func (d *Dispatcher) withBuffer(name string, size int, blocking bool, h SinkFunc) SinkFunc {
	buffer := make(chan core.StepSample, size)

	d.mu.Lock()
	if old, ok := d.buffers[name]; ok && !d.closed {
		close(old)
	}
	d.buffers[name] = buffer
	d.mu.Unlock()

	attrs := metric.WithAttributes(attribute.String("sink", name))

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for s := range buffer {
			if err := h(s); err != nil {
				d.logger.Error("sink failed", "sink", name, "step", s.Step, "error", err)
			}
		}
	}()

	send := func(s core.StepSample) error {
		d.mu.RLock()
		defer d.mu.RUnlock()
		if d.closed {
			return fmt.Errorf("dispatcher closed: %s", name)
		}
		if d.buffers[name] != buffer {
			return fmt.Errorf("sink replaced: %s", name)
		}
		if blocking {
			buffer <- s
			return nil
		}
		select {
		case buffer <- s:
			return nil
		default:
			d.dropped.Add(context.Background(), 1, attrs)
			return fmt.Errorf("%w: %s", ErrQueueFull, name)
		}
	}
	return send
}

func (d *Dispatcher) withLogging(name string, h SinkFunc) SinkFunc {
	return func(s core.StepSample) error {
		start := time.Now()
		d.logger.Debug("handling sample", "sink", name, "step", s.Step)

		err := h(s)

		if err != nil {
			d.logger.Error("sample failed", "sink", name, "step", s.Step, "duration", time.Since(start), "error", err)
		} else {
			d.logger.Debug("sample complete", "sink", name, "step", s.Step, "duration", time.Since(start))
		}

		return err
	}
}
