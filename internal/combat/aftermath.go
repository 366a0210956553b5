package combat

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/enamaryn/XNova-reforged-sub000/internal/catalog"
	"github.com/enamaryn/XNova-reforged-sub000/internal/model"
	"lukechampine.com/blake3"
)

// Seed :
// Derives the seed of the battle fought by a fleet at its
// arrival. Resolving the same arrival twice always uses the
// same seed.
func Seed(fleet string, arrival time.Time) int64 {
	buf := make([]byte, 0, len(fleet)+8)
	buf = append(buf, fleet...)
	buf = binary.BigEndian.AppendUint64(buf, uint64(arrival.UnixNano()))

	sum := blake3.Sum256(buf)

	return int64(binary.BigEndian.Uint64(sum[:8]) & math.MaxInt64)
}

// Digest :
// Fingerprint of the content of a report. Any change in
// the rosters, rounds or spoils changes the digest.
func Digest(report model.CombatReport) (string, error) {
	content := struct {
		Attacker map[string]int      `json:"attacker"`
		Defender map[string]int      `json:"defender"`
		Rounds   []model.RoundLosses `json:"rounds"`
		Result   model.Outcome       `json:"result"`
		Loot     model.Resources     `json:"loot"`
		Debris   model.Resources     `json:"debris"`
		Repaired map[string]int      `json:"repaired"`
		Seed     int64               `json:"seed"`
	}{
		Attacker: report.AttackerRoster,
		Defender: report.DefenderRoster,
		Rounds:   report.Rounds,
		Result:   report.Result,
		Loot:     report.Loot,
		Debris:   report.Debris,
		Repaired: report.Repaired,
		Seed:     report.Seed,
	}

	// Maps are marshalled with sorted keys.
	raw, err := json.Marshal(content)
	if err != nil {
		return "", fmt.Errorf("cannot fingerprint report \"%s\": %w", report.ID, err)
	}
	sum := blake3.Sum256(raw)

	return hex.EncodeToString(sum[:]), nil
}

// Debris :
// Computes the debris field created by the units destroyed
// in a battle. Only metal and crystal are recovered.
func Debris(c *catalog.Catalog, config Config, losses ...map[string]int) model.Resources {
	var ships, defenses model.Resources

	for _, roster := range losses {
		for id, count := range roster {
			if count <= 0 {
				continue
			}

			cost, err := c.Cost(id, count)
			if err != nil {
				continue
			}
			cost.Deuterium = 0

			if c.IsShip(id) {
				ships = ships.Add(cost)
			} else {
				defenses = defenses.Add(cost)
			}
		}
	}

	return ships.Scale(config.DebrisRatio).Add(defenses.Scale(config.DefenseDebrisRatio))
}

// Repair :
// Computes the defenses restored after a battle from the
// ones destroyed. Ships are never repaired.
func Repair(c *catalog.Catalog, config Config, losses map[string]int) map[string]int {
	out := make(map[string]int)

	for id, count := range losses {
		if c.IsShip(id) || count <= 0 {
			continue
		}

		if repaired := int(math.Floor(float64(count) * config.DefenseRepair)); repaired > 0 {
			out[id] = repaired
		}
	}

	return out
}

// Loot :
// Computes the resources taken from the defender by a
// victorious attacker. Each resource is limited to its
// share of the stock and the total is scaled down to fit
// in the free cargo space.
func Loot(stock model.Resources, config Config, capacity int64) model.Resources {
	loot := stock.Clamp().Scale(config.LootRatio)

	total := loot.Total()
	if capacity <= 0 || total <= 0 {
		return model.Resources{}
	}

	if total > capacity {
		loot = loot.Scale(float64(capacity) / float64(total))
	}

	// The ratio may round up by a unit.
	for loot.Total() > capacity {
		switch {
		case loot.Deuterium > 0:
			loot.Deuterium--
		case loot.Crystal > 0:
			loot.Crystal--
		default:
			loot.Metal--
		}
	}

	return loot
}
