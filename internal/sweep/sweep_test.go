package sweep

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/enamaryn/XNova-reforged-sub000/internal/accrual"
	"github.com/enamaryn/XNova-reforged-sub000/internal/catalog"
	"github.com/enamaryn/XNova-reforged-sub000/internal/locker"
	"github.com/enamaryn/XNova-reforged-sub000/internal/model"
	"github.com/enamaryn/XNova-reforged-sub000/internal/store"
	"github.com/enamaryn/XNova-reforged-sub000/pkg/logger"
	"github.com/spf13/viper"
)

var epoch = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

// fakeAdvancer :
// Records the instants it is asked to advance.
type fakeAdvancer struct {
	lock  sync.Mutex
	calls []time.Time
	order *[]string
	name  string
	err   error
	stats model.SweepStats
}

func (f *fakeAdvancer) AdvanceDue(ctx context.Context, now time.Time) (model.SweepStats, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	f.calls = append(f.calls, now)
	if f.order != nil {
		*f.order = append(*f.order, f.name)
	}

	return f.stats, f.err
}

func (f *fakeAdvancer) count() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return len(f.calls)
}

func TestRunOnce_OrderAndIsolation(t *testing.T) {
	var order []string

	queues := &fakeAdvancer{name: Queues, order: &order, err: errors.New("store down")}
	fleets := &fakeAdvancer{name: Fleets, order: &order, stats: model.SweepStats{Processed: 2}}
	resources := &fakeAdvancer{name: Resources, order: &order, stats: model.SweepStats{Processed: 1, Failed: 1}}

	d := New(DefaultConfig(), queues, fleets, resources, logger.NewNullLogger())

	report, err := d.RunOnce(context.Background(), epoch)
	if err == nil {
		t.Fatalf("Expected the failure of the queues sweep")
	}

	if len(order) != 3 || order[0] != Queues || order[1] != Fleets || order[2] != Resources {
		t.Fatalf("Unexpected order %v", order)
	}
	if report[Fleets].Processed != 2 || report[Resources].Failed != 1 {
		t.Fatalf("Unexpected report %+v", report)
	}
	if !fleets.calls[0].Equal(epoch) {
		t.Fatalf("Sweep should run at the requested instant, got %v", fleets.calls[0])
	}
}

func TestDrivers_StartStop(t *testing.T) {
	config := Config{
		Queues:    2 * time.Millisecond,
		Fleets:    2 * time.Millisecond,
		Resources: time.Hour,
		Timeout:   time.Second,
	}

	queues, fleets, resources := &fakeAdvancer{}, &fakeAdvancer{}, &fakeAdvancer{}

	d := New(config, queues, fleets, resources, logger.NewNullLogger()).
		WithClock(func() time.Time { return epoch })

	if err := d.Start(); err != nil {
		t.Fatalf("Unexpected error %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for (queues.count() < 3 || fleets.count() < 3) && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	d.Stop()

	if queues.count() < 3 || fleets.count() < 3 {
		t.Fatalf("Drivers did not run: %d queues, %d fleets", queues.count(), fleets.count())
	}
	if resources.count() != 0 {
		t.Fatalf("Resources sweep should not have run yet")
	}

	after := queues.count()
	time.Sleep(10 * time.Millisecond)
	if queues.count() != after {
		t.Fatalf("Driver ran after being stopped")
	}
}

func TestParseConfiguration(t *testing.T) {
	defer viper.Reset()

	viper.Set("Sweep.Queues", "2s")
	viper.Set("Sweep.Fleets", "-1s")
	viper.Set("Sweep.Resources", "30s")
	viper.Set("Sweep.IdleInterval", "10s")
	viper.Set("Sweep.Batch", 50)

	config := ParseConfiguration()
	if config.Queues != 2*time.Second || config.Fleets != 5*time.Second || config.Resources != 30*time.Second {
		t.Fatalf("Unexpected configuration %+v", config)
	}

	schedule := ParseSchedule()
	if schedule.Interval != 30*time.Second || schedule.IdleInterval != 30*time.Second || schedule.Batch != 50 || schedule.IdleAfter != 24*time.Hour {
		t.Fatalf("Unexpected schedule %+v", schedule)
	}
}

func TestRunOnce_RefreshesStalePlanets(t *testing.T) {
	log := logger.NewNullLogger()
	s := store.NewMemory()
	locks := locker.NewConcurrentLockerWithSize(4, log)
	acc := accrual.NewEngine(s, catalog.Default(), accrual.DefaultConfig(), locks, log)

	err := s.Atomic(context.Background(), func(tx store.Tx) error {
		if err := tx.SaveUser(model.User{ID: "u1", LastActive: epoch}); err != nil {
			return err
		}
		return tx.SavePlanet(model.Planet{ID: "p1", Owner: "u1", Coordinates: model.NewCoordinate(1, 1, 1), LastUpdate: epoch})
	})
	if err != nil {
		t.Fatalf("Unexpected error %v", err)
	}

	d := New(DefaultConfig(), &fakeAdvancer{}, &fakeAdvancer{}, acc, log)

	report, err := d.RunOnce(context.Background(), epoch.Add(30*time.Second))
	if err != nil || report[Resources].Processed != 0 {
		t.Fatalf("Fresh planet should not be refreshed, got %+v (err: %v)", report, err)
	}

	later := epoch.Add(2 * time.Minute)
	for i := 0; i < 2; i++ {
		report, err = d.RunOnce(context.Background(), later)
		if err != nil {
			t.Fatalf("Unexpected error %v", err)
		}
		if expected := 1 - i; report[Resources].Processed != expected {
			t.Fatalf("Run %d: expected %d refreshed planet(s), got %+v", i, expected, report)
		}
	}

	_ = s.Atomic(context.Background(), func(tx store.Tx) error {
		p, err := tx.Planet("p1")
		if err != nil {
			return err
		}
		if !p.LastUpdate.Equal(later) || p.Resources.Metal == 0 {
			t.Errorf("Planet was not refreshed: %+v", p)
		}
		return nil
	})
}
