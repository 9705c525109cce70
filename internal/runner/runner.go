// Package runner drives a sailboat in lock step: one control input, one
// Update and one published sample per step.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sailsitl/sailsim/internal/geo"
	"github.com/sailsitl/sailsim/pkg/core"
	"go.opentelemetry.io/otel/metric"
)

// Publisher receives every sample. The dispatcher implements it.
type Publisher interface {
	Publish(core.StepSample) error
}

// Options configure a Runner. Everything is optional.
type Options struct {
	Schedule  *Schedule
	Publisher Publisher
	Logger    *slog.Logger
	Meter     metric.Meter // global meter when nil
	Progress  *Progress
	Now       func() time.Time // wall clock stamped on samples
}

// Runner steps one Sim.
type Runner struct {
	sim      *Sim
	schedule *Schedule
	pub      Publisher
	logger   *slog.Logger
	progress *Progress
	now      func() time.Time
	metrics  *metrics
}

// New creates a runner for sim.
func New(sim *Sim, opts Options) (*Runner, error) {
	r := &Runner{
		sim:      sim,
		schedule: opts.Schedule,
		pub:      opts.Publisher,
		logger:   opts.Logger,
		progress: opts.Progress,
		now:      opts.Now,
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.progress == nil {
		r.progress = &Progress{}
	}
	if r.now == nil {
		r.now = time.Now
	}

	m, err := newMetrics(opts.Meter, r.progress)
	if err != nil {
		return nil, err
	}
	r.metrics = m
	return r, nil
}

// NewRun describes a run of this sim starting now.
func (s *Sim) NewRun(name string, start time.Time, duration time.Duration, snapshot map[string]any) *core.Run {
	return &core.Run{
		UUID:      uuid.NewString(),
		Name:      name,
		Frame:     s.Params.Frame,
		StartTime: start,
		TimeStep:  s.Params.TimeStep,
		Duration:  duration.Seconds(),
		Home:      s.Home,
		Config:    snapshot,
	}
}

// Steps returns the number of steps needed to cover duration.
func (s *Sim) Steps(duration time.Duration) uint64 {
	if duration <= 0 {
		return 0
	}
	return uint64(math.Round(duration.Seconds() / s.Params.TimeStep))
}

// Run steps the boat until duration is covered or ctx is done. A cancelled
// run is not an error: the summary says how far it got.
func (r *Runner) Run(ctx context.Context, run *core.Run, duration time.Duration) (core.RunSummary, error) {
	if run == nil {
		return core.RunSummary{}, fmt.Errorf("run is required")
	}

	sim := r.sim
	dt := sim.Params.TimeStep
	steps := sim.Steps(duration)

	r.progress.start(run.UUID)
	defer r.progress.stop()

	summary := core.RunSummary{RunID: run.UUID}
	var (
		track      geo.Track
		sinkErrors int
	)
	track.Add(sim.Boat.Position, sim.Locator.Location())

	r.logger.Info("Run started", "run", run.UUID, "steps", steps, "timeStep", dt)

	for step := uint64(0); step < steps; step++ {
		if ctx.Err() != nil {
			summary.Cancelled = true
			break
		}

		began := time.Now()
		sample := r.step(run, step)

		if r.pub != nil {
			if err := r.pub.Publish(sample); err != nil {
				if sinkErrors == 0 {
					r.logger.Warn("Sink failed, run continues", "step", sample.Step, "error", err)
				}
				sinkErrors++
			}
		}

		speed := sample.State.Velocity.HorizontalLength()
		summary.Steps++
		summary.Distance += speed * dt
		summary.MaxSpeed = math.Max(summary.MaxSpeed, speed)
		track.Add(sample.State.Position, sample.State.Location)

		r.progress.advance(sample.Step, sample.SimTime, speed)
		r.metrics.steps.Add(ctx, 1)
		r.metrics.duration.Record(ctx, time.Since(began).Seconds())
	}

	summary.SimTime = sim.Clock.Seconds()
	summary.TrackLength = track.Length()
	summary.Final = sim.Locator.Location()

	if sinkErrors > 0 {
		r.logger.Warn("Sink errors during run", "run", run.UUID, "count", sinkErrors)
	}
	r.logger.Info("Run finished",
		"run", run.UUID,
		"steps", summary.Steps,
		"distance", summary.Distance,
		"maxSpeed", summary.MaxSpeed,
		"cancelled", summary.Cancelled,
	)
	return summary, nil
}

// step applies the scheduled input for the start of step and advances the
// boat by one time step.
func (r *Runner) step(run *core.Run, step uint64) core.StepSample {
	sim := r.sim
	t := sim.Clock.Seconds()

	sp, ok := r.schedule.At(t)
	if ok && sp.Armed != nil && *sp.Armed != sim.Env.Armed() {
		sim.Env.SetArmed(*sp.Armed)
		r.logger.Info("Armed state changed", "armed", *sp.Armed, "simTime", t)
	}

	sim.Boat.Update(sp.Input)

	info := sim.Boat.Last()
	w := sim.Boat.Wave()
	return core.StepSample{
		RunID:     run.UUID,
		Step:      step + 1,
		SimTime:   sim.Clock.Seconds(),
		WallTime:  r.now(),
		Input:     sp.Input,
		State:     sim.Boat.State(),
		WindSpeed: info.WindSpeed,
		WindAngle: info.WindAngle,
		SailAngle: info.Sail.SailAngle,
		ForceFwd:  info.Sail.Forward,
		ForceHeel: info.Sail.Heel,
		WavePhase: w.Phase,
		WaveHeave: w.Heave,
		RollRate:  sim.Boat.RollRate(),
	}
}

// Progress exposes the position of the current run to loggers and gauges.
// It is safe for concurrent use.
type Progress struct {
	runID   atomic.Value // string
	step    atomic.Uint64
	simTime atomic.Uint64 // float64 bits
	speed   atomic.Uint64 // float64 bits
}

func (p *Progress) start(runID string) {
	p.runID.Store(runID)
	p.step.Store(0)
	p.simTime.Store(0)
	p.speed.Store(0)
}

func (p *Progress) stop() {
	p.runID.Store("")
}

func (p *Progress) advance(step uint64, simTime, speed float64) {
	p.step.Store(step)
	p.simTime.Store(math.Float64bits(simTime))
	p.speed.Store(math.Float64bits(speed))
}

// RunID returns the active run, empty between runs.
func (p *Progress) RunID() string {
	id, _ := p.runID.Load().(string)
	return id
}

// Step returns the last completed step.
func (p *Progress) Step() uint64 {
	return p.step.Load()
}

// SimTime returns the simulated time of the last completed step.
func (p *Progress) SimTime() float64 {
	return math.Float64frombits(p.simTime.Load())
}

// Speed returns the last speed over ground.
func (p *Progress) Speed() float64 {
	return math.Float64frombits(p.speed.Load())
}

// Attrs returns the log attributes of the active run, none between runs.
// It fits logging.ContextProvider.
func (p *Progress) Attrs() []slog.Attr {
	id := p.RunID()
	if id == "" {
		return nil
	}
	return []slog.Attr{
		slog.String("run", id),
		slog.Uint64("step", p.Step()),
		slog.Float64("simTime", p.SimTime()),
	}
}
