package combat

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/enamaryn/XNova-reforged-sub000/internal/catalog"
	"github.com/enamaryn/XNova-reforged-sub000/internal/model"
)

// Technologies boosting the combat values of the units.
const (
	weaponsTechnology   = catalog.WeaponsTechnology
	shieldingTechnology = catalog.ShieldingTechnology
	armourTechnology    = catalog.ArmourTechnology
)

// techBonus :
// Increase of a combat value for each level of the related
// technology.
const techBonus = 0.1

// Side :
// One of the parties involved in a battle.
//
// The `Units` associates the identifier of a ship or a
// defense to the number of units engaged.
//
// The `Technologies` are the research levels of the player
// owning the units.
type Side struct {
	Units        map[string]int `json:"units"`
	Technologies map[string]int `json:"technologies"`
}

// Battle :
// Describes the parties of a fight.
type Battle struct {
	Attacker Side `json:"attacker"`
	Defender Side `json:"defender"`
}

// Outcome :
// Result of the resolution of a battle.
//
// The `Rounds` list the units destroyed in each round
// for both sides.
//
// The `Attacker` and `Defender` hold the survivors.
//
// The `AttackerLosses` and `DefenderLosses` sum the units
// destroyed over the whole battle.
type Outcome struct {
	Result         model.Outcome       `json:"result"`
	Rounds         []model.RoundLosses `json:"rounds"`
	Attacker       map[string]int      `json:"attacker"`
	Defender       map[string]int      `json:"defender"`
	AttackerLosses map[string]int      `json:"attacker_losses"`
	DefenderLosses map[string]int      `json:"defender_losses"`
}

// profile :
// Combat values of a kind of unit including the bonus of
// the technologies of its owner.
//
// The `rapidFire` associates the index of a profile of the
// opposing side to the rapid fire against it.
type profile struct {
	id        string
	weapon    float64
	shield    float64
	hull      float64
	rapidFire map[int]int
}

// unitInFight :
// A single unit engaged in a battle. Units of a given
// kind share their profile.
type unitInFight struct {
	kind   int
	hull   float64
	shield float64
}

// fighters :
// The units of a side along with the profiles of their
// kinds. Profiles are sorted by identifier so that the
// same roster always yields the same layout.
type fighters struct {
	profiles []profile
	units    []unitInFight
}

// newFighters :
// Expands the roster into individual units using the
// statistics of the catalog.
func newFighters(c *catalog.Catalog, side Side) (*fighters, error) {
	ids := make([]string, 0, len(side.Units))
	for id, count := range side.Units {
		if count < 0 {
			return nil, fmt.Errorf("%w: %d \"%s\"", model.ErrInvalidAmount, count, id)
		}
		if count > 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	f := &fighters{
		profiles: make([]profile, 0, len(ids)),
	}

	weapons := 1.0 + techBonus*float64(side.Technologies[weaponsTechnology])
	shielding := 1.0 + techBonus*float64(side.Technologies[shieldingTechnology])
	armour := 1.0 + techBonus*float64(side.Technologies[armourTechnology])

	for kind, id := range ids {
		stats, err := c.Unit(id)
		if err != nil {
			return nil, err
		}

		p := profile{
			id:     id,
			weapon: stats.Weapon * weapons,
			shield: stats.Shield * shielding,
			hull:   stats.Hull * armour,
		}
		f.profiles = append(f.profiles, p)

		for i := 0; i < side.Units[id]; i++ {
			f.units = append(f.units, unitInFight{kind: kind, hull: p.hull, shield: p.shield})
		}
	}

	return f, nil
}

// link :
// Computes the rapid fire of the units of this side against
// the profiles of the opponent.
func (f *fighters) link(c *catalog.Catalog, opponent *fighters) {
	for i := range f.profiles {
		f.profiles[i].rapidFire = make(map[int]int)
		for j, target := range opponent.profiles {
			if r := c.RapidFire(f.profiles[i].id, target.id); r > 1 {
				f.profiles[i].rapidFire[j] = r
			}
		}
	}
}

// empty :
// Returns whether the side has no unit left.
func (f *fighters) empty() bool {
	return len(f.units) == 0
}

// restore :
// Resets the shields of all the units at the beginning of
// a round.
func (f *fighters) restore() {
	for i := range f.units {
		f.units[i].shield = f.profiles[f.units[i].kind].shield
	}
}

// fire :
// Each unit of this side shoots at random units of the
// opponent. A unit having rapid fire against its target
// shoots again with a probability of `(r-1)/r`. The targets
// are picked among the units alive at the start of the
// round: destroyed units are only removed by `cleanup`.
func (f *fighters) fire(opponent *fighters, rng *rand.Rand) {
	if opponent.empty() {
		return
	}

	for _, shooter := range f.units {
		p := &f.profiles[shooter.kind]

		for {
			target := &opponent.units[rng.Intn(len(opponent.units))]
			target.hit(p.weapon)

			r := p.rapidFire[target.kind]
			if r <= 1 || rng.Intn(r) == 0 {
				break
			}
		}
	}
}

// hit :
// Applies a shot to the unit: the shield absorbs as much
// as it can and the rest damages the hull.
func (u *unitInFight) hit(damage float64) {
	if damage <= u.shield {
		u.shield -= damage
		return
	}

	u.hull -= damage - u.shield
	u.shield = 0.0
}

// cleanup :
// Removes the destroyed units.
//
// Returns the number of units destroyed per identifier.
func (f *fighters) cleanup() map[string]int {
	losses := make(map[string]int)

	alive := f.units[:0]
	for _, u := range f.units {
		if u.hull <= 0.0 {
			losses[f.profiles[u.kind].id]++
			continue
		}
		alive = append(alive, u)
	}
	f.units = alive

	return losses
}

// roster :
// Counts the units left per identifier.
func (f *fighters) roster() map[string]int {
	out := make(map[string]int)
	for _, u := range f.units {
		out[f.profiles[u.kind].id]++
	}

	return out
}

// Resolve :
// Runs the battle with a random generator initialized with
// the seed. The same battle and seed always produce the
// same outcome.
//
// Returns the outcome along with any error if a roster
// references an element that can't fight.
func Resolve(c *catalog.Catalog, battle Battle, seed int64, maxRounds int) (Outcome, error) {
	att, err := newFighters(c, battle.Attacker)
	if err != nil {
		return Outcome{}, err
	}
	def, err := newFighters(c, battle.Defender)
	if err != nil {
		return Outcome{}, err
	}

	att.link(c, def)
	def.link(c, att)

	rng := rand.New(rand.NewSource(seed))

	out := Outcome{
		Rounds:         make([]model.RoundLosses, 0, maxRounds),
		AttackerLosses: make(map[string]int),
		DefenderLosses: make(map[string]int),
	}

	for round := 1; round <= maxRounds; round++ {
		if att.empty() || def.empty() {
			break
		}

		att.restore()
		def.restore()

		att.fire(def, rng)
		def.fire(att, rng)

		losses := model.RoundLosses{
			Round:    round,
			Attacker: att.cleanup(),
			Defender: def.cleanup(),
		}
		for id, count := range losses.Attacker {
			out.AttackerLosses[id] += count
		}
		for id, count := range losses.Defender {
			out.DefenderLosses[id] += count
		}

		out.Rounds = append(out.Rounds, losses)
	}

	out.Attacker = att.roster()
	out.Defender = def.roster()

	switch {
	case def.empty() && !att.empty():
		out.Result = model.AttackerWin
	case att.empty() && !def.empty():
		out.Result = model.DefenderWin
	default:
		out.Result = model.Draw
	}

	return out, nil
}
