package combat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/enamaryn/XNova-reforged-sub000/internal/accrual"
	"github.com/enamaryn/XNova-reforged-sub000/internal/catalog"
	"github.com/enamaryn/XNova-reforged-sub000/internal/model"
	"github.com/enamaryn/XNova-reforged-sub000/internal/notify"
	"github.com/enamaryn/XNova-reforged-sub000/internal/store"
	"github.com/enamaryn/XNova-reforged-sub000/pkg/logger"
	"github.com/gocarina/gocsv"
	"github.com/google/uuid"
)

// Engine :
// Resolves the attacks of fleets against planets and gives
// access to the reports of the battles.
//
// The `accrual` refreshes the stock of the defender before
// the battle so that the loot is computed on up to date
// resources.
type Engine struct {
	store   store.Store
	accrual *accrual.Engine
	catalog *catalog.Catalog
	config  Config
	log     logger.Logger
}

// Simulation :
// Result of a battle simulated without any persistence.
type Simulation struct {
	Outcome
	Debris   model.Resources `json:"debris"`
	Repaired map[string]int  `json:"repaired"`
	Seed     int64           `json:"seed"`
}

// roundRecord :
// Line of the CSV export of the rounds of a battle.
type roundRecord struct {
	Round int    `csv:"round"`
	Side  string `csv:"side"`
	Unit  string `csv:"unit"`
	Name  string `csv:"name"`
	Lost  int    `csv:"lost"`
}

// NewEngine :
// Creates a new combat engine.
func NewEngine(s store.Store, acc *accrual.Engine, config Config, log logger.Logger) *Engine {
	return &Engine{
		store:   s,
		accrual: acc,
		catalog: acc.Catalog(),
		config:  config,
		log:     log,
	}
}

// Config :
// Returns the settings of the engine.
func (e *Engine) Config() Config {
	return e.config
}

// Resolve :
// Runs the battle with the configured number of rounds.
func (e *Engine) Resolve(battle Battle, seed int64) (Outcome, error) {
	return Resolve(e.catalog, battle, seed, e.config.MaxRounds)
}

// Simulate :
// Resolves a battle between the input parties and computes
// its debris and repairs. Nothing is persisted. The rosters
// can't hold more than `MaxSimulatedUnits` units in total.
func (e *Engine) Simulate(battle Battle, seed int64) (Simulation, error) {
	if err := e.checkSize(battle); err != nil {
		return Simulation{}, err
	}

	out, err := e.Resolve(battle, seed)
	if err != nil {
		return Simulation{}, err
	}

	return Simulation{
		Outcome:  out,
		Debris:   Debris(e.catalog, e.config, out.AttackerLosses, out.DefenderLosses),
		Repaired: Repair(e.catalog, e.config, out.DefenderLosses),
		Seed:     seed,
	}, nil
}

// checkSize :
// Fails with an invalid amount error when the two sides of
// the battle hold more units than allowed in a simulation.
func (e *Engine) checkSize(battle Battle) error {
	total := 0

	for _, side := range []Side{battle.Attacker, battle.Defender} {
		for _, count := range side.Units {
			if count <= 0 {
				continue
			}
			if count > e.config.MaxSimulatedUnits-total {
				return fmt.Errorf("%w: more than %d units to simulate", model.ErrInvalidAmount, e.config.MaxSimulatedUnits)
			}
			total += count
		}
	}

	return nil
}

// fit :
// Trims the cargo to what the capacity allows, keeping metal
// first then crystal then deuterium. The excess is lost with
// the ships that carried it.
func fit(cargo model.Resources, capacity int64) model.Resources {
	if capacity <= 0 {
		return model.Resources{}
	}
	if cargo.Total() <= capacity {
		return cargo
	}

	var out model.Resources
	out.Metal = min(cargo.Metal, capacity)
	out.Crystal = min(cargo.Crystal, capacity-out.Metal)
	out.Deuterium = min(cargo.Deuterium, capacity-out.Metal-out.Crystal)

	return out
}

// merge :
// Returns a roster holding the units of all the inputs.
func merge(rosters ...map[string]int) map[string]int {
	out := make(map[string]int)
	for _, r := range rosters {
		for id, count := range r {
			if count > 0 {
				out[id] += count
			}
		}
	}

	return out
}

// survivors :
// Keeps the units of `initial` that are still alive in the
// outcome, with `bonus` added on top.
func survivors(initial map[string]int, alive map[string]int, bonus map[string]int) map[string]int {
	out := make(map[string]int)
	for id := range initial {
		if count := alive[id] + bonus[id]; count > 0 {
			out[id] = count
		}
	}

	return out
}

// technologiesOf :
// Returns the technologies of a player, empty if the player
// does not exist anymore.
func technologiesOf(tx store.Tx, player string) (map[string]int, error) {
	user, err := tx.User(player)
	if errors.Is(err, model.ErrUserNotFound) {
		return map[string]int{}, nil
	}
	if err != nil {
		return nil, err
	}

	return user.Technologies, nil
}

// ResolveAttack :
// Resolves the battle of an attacking fleet arrived at its
// target, within the transaction of the caller. The planet
// attacked is refreshed up to the arrival of the fleet and
// saved with its surviving units and looted stock along
// with the report and the debris field.
//
// The fleet is updated but not saved: it either returns
// with its survivors and the loot or is marked completed
// when no ship survived.
//
// Returns the report along with the events to emit once the
// transaction is committed.
func (e *Engine) ResolveAttack(tx store.Tx, fleet *model.Fleet) (model.CombatReport, []notify.Event, error) {
	planet, err := tx.PlanetAt(fleet.Target)
	if err != nil {
		return model.CombatReport{}, nil, err
	}
	if planet.Owner == fleet.Owner {
		return model.CombatReport{}, nil, fmt.Errorf("%w: cannot attack own planet \"%s\"", model.ErrInvalidTarget, planet.ID)
	}

	settled, err := e.accrual.Settle(tx, &planet, fleet.Arrival)
	if err != nil {
		return model.CombatReport{}, nil, err
	}

	attackerTechs, err := technologiesOf(tx, fleet.Owner)
	if err != nil {
		return model.CombatReport{}, nil, err
	}
	defenderTechs, err := technologiesOf(tx, planet.Owner)
	if err != nil {
		return model.CombatReport{}, nil, err
	}

	battle := Battle{
		Attacker: Side{Units: merge(fleet.Ships), Technologies: attackerTechs},
		Defender: Side{Units: merge(planet.Ships, planet.Defenses), Technologies: defenderTechs},
	}

	seed := Seed(fleet.ID, fleet.Arrival)
	out, err := e.Resolve(battle, seed)
	if err != nil {
		return model.CombatReport{}, nil, err
	}

	report := model.CombatReport{
		ID:             uuid.New().String(),
		Fleet:          fleet.ID,
		Attacker:       fleet.Owner,
		Defender:       planet.Owner,
		Planet:         planet.ID,
		Location:       fleet.Target,
		AttackerRoster: battle.Attacker.Units,
		DefenderRoster: battle.Defender.Units,
		Rounds:         out.Rounds,
		Result:         out.Result,
		RoundCount:     len(out.Rounds),
		Debris:         Debris(e.catalog, e.config, out.AttackerLosses, out.DefenderLosses),
		Repaired:       Repair(e.catalog, e.config, out.DefenderLosses),
		Seed:           seed,
		CreatedAt:      fleet.Arrival,
	}

	if out.Result == model.AttackerWin {
		free := e.catalog.CargoCapacity(out.Attacker) - fleet.Cargo.Total()
		report.Loot = Loot(planet.Resources, e.config, free)
		planet.Resources = planet.Resources.Sub(report.Loot)
	}

	report.Digest, err = Digest(report)
	if err != nil {
		return model.CombatReport{}, nil, err
	}

	planet.Ships = survivors(planet.Ships, out.Defender, nil)
	planet.Defenses = survivors(planet.Defenses, out.Defender, report.Repaired)

	if err := tx.SavePlanet(planet); err != nil {
		return model.CombatReport{}, nil, err
	}
	if err := tx.SaveReport(report); err != nil {
		return model.CombatReport{}, nil, err
	}

	if !report.Debris.IsZero() {
		field, err := tx.Debris(fleet.Target)
		if errors.Is(err, model.ErrDebrisNotFound) {
			field, err = model.DebrisField{Coordinates: fleet.Target}, nil
		}
		if err != nil {
			return model.CombatReport{}, nil, err
		}

		field.Resources = field.Resources.Add(report.Debris)
		if err := tx.SaveDebris(field); err != nil {
			return model.CombatReport{}, nil, err
		}
	}

	fleet.Ships = out.Attacker
	fleet.Report = report.ID
	if len(fleet.Ships) == 0 {
		fleet.Status = model.Completed
		fleet.Cargo = model.Resources{}
		fleet.Return = nil
	} else {
		fleet.Status = model.Returning
		fleet.Cargo = fit(fleet.Cargo, e.catalog.CargoCapacity(fleet.Ships)).Add(report.Loot)
	}

	events := append(settled,
		notify.Event{Kind: notify.CombatResolved, Player: fleet.Owner, Planet: planet.ID, Entity: report.ID, At: fleet.Arrival},
		notify.Event{Kind: notify.CombatResolved, Player: planet.Owner, Planet: planet.ID, Entity: report.ID, At: fleet.Arrival},
	)

	e.log.Trace(logger.Info, "combat", fmt.Sprintf("Fleet \"%s\" attacked \"%s\" at %s: %s after %d round(s)", fleet.ID, planet.ID, fleet.Target, report.Result, report.RoundCount))

	return report, events, nil
}

// Report :
// Fetches a report. Only the players involved in the battle
// can read it.
func (e *Engine) Report(ctx context.Context, player string, id string) (model.CombatReport, error) {
	var report model.CombatReport

	err := e.store.Atomic(ctx, func(tx store.Tx) error {
		var err error
		report, err = tx.Report(id)
		return err
	})
	if err != nil {
		return model.CombatReport{}, err
	}

	if report.Attacker != player && report.Defender != player {
		return model.CombatReport{}, model.ErrNotOwner
	}

	return report, nil
}

// records :
// Flattens the rounds of a report into one line per round,
// side and unit destroyed.
func (e *Engine) records(report model.CombatReport) []roundRecord {
	out := make([]roundRecord, 0)

	for _, round := range report.Rounds {
		for _, side := range []struct {
			name   string
			losses map[string]int
		}{
			{"attacker", round.Attacker},
			{"defender", round.Defender},
		} {
			ids := make([]string, 0, len(side.losses))
			for id := range side.losses {
				ids = append(ids, id)
			}
			sort.Strings(ids)

			for _, id := range ids {
				out = append(out, roundRecord{
					Round: round.Round,
					Side:  side.name,
					Unit:  id,
					Name:  e.catalog.Describe(id),
					Lost:  side.losses[id],
				})
			}
		}
	}

	return out
}

// RoundsCSV :
// Writes the losses of each round of a report as CSV.
func (e *Engine) RoundsCSV(ctx context.Context, player string, id string, w io.Writer) error {
	report, err := e.Report(ctx, player, id)
	if err != nil {
		return err
	}

	records := e.records(report)
	if err := gocsv.Marshal(&records, w); err != nil {
		return fmt.Errorf("exporting rounds of report \"%s\": %w", id, err)
	}

	return nil
}

// SimulationSeed :
// Seed of a simulation requested without one.
func SimulationSeed(now time.Time) int64 {
	return Seed("simulation", now)
}
