// Package game assembles the engines into a running instance
// of the game from the configuration.
package game

import (
	"fmt"
	"strings"

	"github.com/enamaryn/XNova-reforged-sub000/internal/accrual"
	"github.com/enamaryn/XNova-reforged-sub000/internal/catalog"
	"github.com/enamaryn/XNova-reforged-sub000/internal/combat"
	"github.com/enamaryn/XNova-reforged-sub000/internal/fleet"
	"github.com/enamaryn/XNova-reforged-sub000/internal/locker"
	"github.com/enamaryn/XNova-reforged-sub000/internal/notify"
	"github.com/enamaryn/XNova-reforged-sub000/internal/queue"
	"github.com/enamaryn/XNova-reforged-sub000/internal/routes"
	"github.com/enamaryn/XNova-reforged-sub000/internal/store"
	"github.com/enamaryn/XNova-reforged-sub000/internal/store/sqlstore"
	"github.com/enamaryn/XNova-reforged-sub000/internal/sweep"
	"github.com/enamaryn/XNova-reforged-sub000/internal/universe"
	"github.com/enamaryn/XNova-reforged-sub000/pkg/db"
	"github.com/enamaryn/XNova-reforged-sub000/pkg/logger"
	"github.com/spf13/viper"
)

// Memory :
// Name of the driver keeping the state of the game in memory.
const Memory = "memory"

// ErrUnknownDriver : The database driver is not supported.
var ErrUnknownDriver = fmt.Errorf("unknown database driver")

// Instance :
// Defines an instance of the game which regroups all the
// engines sharing the same store, catalog and locks. It is
// usually created once from the configuration.
//
// The `Store` persists the state of the game.
//
// The `Catalog` holds the balance tables.
//
// The `Universe` defines the dimensions of the universe.
//
// The `Accrual`, `Queues`, `Fleets` and `Combat` are the
// engines performing the operations of the players.
//
// The `Events` dispatches the events of the engines to the
// log and to the `Hub` which streams them to the players.
//
// The `Sweeps` advance the queues, fleets and resources in
// the background.
//
// The `log` defines a logger object to use to notify
// information or errors to the user.
type Instance struct {
	Store    store.Store
	Catalog  *catalog.Catalog
	Universe universe.Universe
	Accrual  *accrual.Engine
	Queues   *queue.Scheduler
	Fleets   *fleet.Engine
	Combat   *combat.Engine
	Events   *notify.Bus
	Hub      *notify.Hub
	Sweeps   *sweep.Drivers

	log logger.Logger
}

// openStore :
// Creates the store described by the `Database.Driver` key.
// The state is kept in memory unless a database is set.
func openStore(log logger.Logger) (store.Store, error) {
	driver := Memory
	if viper.IsSet("Database.Driver") {
		driver = strings.ToLower(viper.GetString("Database.Driver"))
	}

	switch driver {
	case Memory:
		log.Trace(logger.Warning, "game", "State of the game is kept in memory and will be lost on exit")
		return store.NewMemory(), nil
	case db.SQLite, db.Postgres:
	default:
		return nil, fmt.Errorf("%w \"%s\"", ErrUnknownDriver, driver)
	}

	dbase, err := db.NewPool(log)
	if err != nil {
		return nil, err
	}

	s, err := sqlstore.New(dbase, log)
	if err != nil {
		dbase.Close()
		return nil, err
	}

	return s, nil
}

// NewInstance :
// Creates the store described by the configuration and the
// engines on top of it.
//
// Returns the created instance along with any error.
func NewInstance(log logger.Logger) (*Instance, error) {
	s, err := openStore(log)
	if err != nil {
		return nil, err
	}

	i, err := NewInstanceWithStore(s, log)
	if err != nil {
		s.Close()
		return nil, err
	}

	return i, nil
}

// NewInstanceWithStore :
// Creates the engines on top of the input store. The other
// settings are read from the configuration.
//
// Returns the created instance along with any error.
func NewInstanceWithStore(s store.Store, log logger.Logger) (*Instance, error) {
	c, err := catalog.NewFromConfiguration()
	if err != nil {
		return nil, err
	}

	u, err := universe.ParseConfiguration()
	if err != nil {
		return nil, err
	}

	locks := locker.NewConcurrentLocker(log)

	hub := notify.NewHub(log)
	events := notify.NewBus(log, notify.NewLogNotifier(log), hub)

	acc := accrual.NewEngine(s, c, accrual.ParseConfiguration(), locks, log).WithSchedule(sweep.ParseSchedule())
	queues := queue.NewScheduler(s, acc, queue.ParseConfiguration(), locks, events, log)
	acc = acc.WithSettler(queues, events)
	fight := combat.NewEngine(s, acc, combat.ParseConfiguration(), log)
	fleets := fleet.NewEngine(s, acc, fight, u, locks, events, log)
	if viper.IsSet("Sweep.Batch") {
		fleets = fleets.WithBatch(viper.GetInt("Sweep.Batch"))
	}

	i := &Instance{
		Store:    s,
		Catalog:  c,
		Universe: u,
		Accrual:  acc,
		Queues:   queues,
		Fleets:   fleets,
		Combat:   fight,
		Events:   events,
		Hub:      hub,
		Sweeps:   sweep.New(sweep.ParseConfiguration(), queues, fleets, acc, log),
		log:      log,
	}

	log.Trace(logger.Info, "game", fmt.Sprintf("Game ready with a %dx%dx%d universe", u.Galaxies, u.Systems, u.Positions))

	return i, nil
}

// Services :
// Returns the engines serving the API.
func (i *Instance) Services() routes.Services {
	return routes.Services{
		Accrual:  i.Accrual,
		Queues:   i.Queues,
		Fleets:   i.Fleets,
		Combat:   i.Combat,
		Hub:      i.Hub,
		Registry: i,
	}
}

// Close :
// Releases the store of the instance. The sweeps should be
// stopped beforehand.
func (i *Instance) Close() error {
	return i.Store.Close()
}
