// Package sweep drives the engines from background loops.
// Each driver periodically asks one engine to advance the
// entities whose due time has passed.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/enamaryn/XNova-reforged-sub000/internal/model"
	"github.com/enamaryn/XNova-reforged-sub000/pkg/background"
	"github.com/enamaryn/XNova-reforged-sub000/pkg/duration"
	"github.com/enamaryn/XNova-reforged-sub000/pkg/logger"
)

// Advancer :
// Engine able to advance the entities due at some point.
// Advancing the same instant twice must be a no-op.
type Advancer interface {
	AdvanceDue(ctx context.Context, now time.Time) (model.SweepStats, error)
}

// Names of the drivers.
const (
	Queues    = "queues"
	Fleets    = "fleets"
	Resources = "resources"
)

// driver :
// Binds an engine to the process running it.
type driver struct {
	name     string
	advancer Advancer
	process  *background.Process
}

// Drivers :
// The set of sweep drivers of the server.
//
// The `clock` provides the current time to the sweeps.
type Drivers struct {
	drivers []*driver
	timeout time.Duration
	clock   func() time.Time
	log     logger.Logger
}

// Outcome :
// Statistics of a single run of a driver along with the
// time it took.
type Outcome struct {
	model.SweepStats
	Elapsed duration.Duration `json:"elapsed"`
}

// Report :
// Outcome of a single run of every driver.
type Report map[string]Outcome

// New :
// Creates the drivers for the queues, fleets and resources
// engines with the intervals of the configuration. They
// are not started.
func New(config Config, queues Advancer, fleets Advancer, resources Advancer, log logger.Logger) *Drivers {
	d := &Drivers{
		timeout: config.Timeout,
		clock:   time.Now,
		log:     log,
	}

	d.add(Queues, config.Queues, queues)
	d.add(Fleets, config.Fleets, fleets)
	d.add(Resources, config.Resources, resources)

	return d
}

// WithClock :
// Replaces the source of the current time.
//
// Returns these drivers to allow chain calling.
func (d *Drivers) WithClock(clock func() time.Time) *Drivers {
	d.clock = clock
	return d
}

func (d *Drivers) add(name string, interval time.Duration, advancer Advancer) {
	dr := &driver{
		name:     name,
		advancer: advancer,
	}

	dr.process = background.NewProcess(interval, d.log).
		WithModule("sweep").
		WithOperation(func(ctx context.Context) (bool, error) {
			_, err := d.run(ctx, dr, d.clock())
			return err == nil, err
		})

	d.drivers = append(d.drivers, dr)
}

// run :
// Executes a single sweep of a driver.
func (d *Drivers) run(ctx context.Context, dr *driver, now time.Time) (model.SweepStats, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	start := time.Now()
	stats, err := dr.advancer.AdvanceDue(ctx, now)
	if err != nil {
		return stats, fmt.Errorf("%s sweep: %w", dr.name, err)
	}

	if stats.Processed > 0 || stats.Failed > 0 {
		level := logger.Verbose
		if stats.Failed > 0 {
			level = logger.Warning
		}
		d.log.Trace(level, "sweep", fmt.Sprintf("Sweep of %s advanced %d and failed %d entities in %v", dr.name, stats.Processed, stats.Failed, time.Since(start)))
	}

	return stats, nil
}

// Start :
// Starts every driver. The drivers already started are
// stopped if one of them fails.
func (d *Drivers) Start() error {
	for id, dr := range d.drivers {
		if err := dr.process.Start(); err != nil {
			for _, started := range d.drivers[:id] {
				started.process.Stop()
			}
			return fmt.Errorf("starting %s sweep: %w", dr.name, err)
		}
	}

	d.log.Trace(logger.Notice, "sweep", fmt.Sprintf("Started %d sweep driver(s)", len(d.drivers)))

	return nil
}

// Stop :
// Stops every driver and waits for the running sweeps.
func (d *Drivers) Stop() {
	for _, dr := range d.drivers {
		dr.process.Stop()
	}
}

// RunOnce :
// Runs every driver a single time at `now`, queues first so
// that ships completed at `now` can be used by the fleets. A
// driver failing does not prevent the others from running.
//
// Returns the statistics of each driver along with the
// errors of the ones which failed.
func (d *Drivers) RunOnce(ctx context.Context, now time.Time) (Report, error) {
	report := make(Report)
	var errs []error

	for _, dr := range d.drivers {
		start := time.Now()
		stats, err := d.run(ctx, dr, now)
		report[dr.name] = Outcome{
			SweepStats: stats,
			Elapsed:    duration.NewDuration(time.Since(start)),
		}
		if err != nil {
			errs = append(errs, err)
		}
	}

	return report, errors.Join(errs...)
}
