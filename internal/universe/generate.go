package universe

import (
	"math"
	"math/rand"
	"time"

	"github.com/enamaryn/XNova-reforged-sub000/internal/model"
	opensimplex "github.com/ojrac/opensimplex-go"
)

// slot :
// Ranges of the properties of the planets found at a given
// position of a solar system.
type slot struct {
	minFields int
	maxFields int
	minTemp   int
	maxTemp   int
}

// slots :
// Properties of the positions of a solar system, from the
// closest to the star to the furthest.
var slots = []slot{
	{96, 172, 220, 260},
	{104, 176, 170, 210},
	{112, 182, 120, 160},
	{118, 208, 70, 110},
	{133, 232, 60, 100},
	{152, 248, 50, 90},
	{156, 262, 40, 80},
	{150, 246, 30, 70},
	{142, 232, 20, 60},
	{136, 210, 10, 50},
	{125, 186, 0, 40},
	{114, 172, -10, 30},
	{100, 168, -50, -10},
	{96, 164, -90, -50},
	{90, 164, -130, -90},
}

// slotOf :
// Returns the properties of the position, the outermost
// ones being used beyond the table.
func slotOf(position int) slot {
	i := position - 1
	if i < 0 {
		i = 0
	}
	if i >= len(slots) {
		i = len(slots) - 1
	}

	return slots[i]
}

// Generate :
// Creates the planet found at the coordinates for a new
// owner. The fields are drawn from a normal distribution
// fitting the range of the position and the temperature
// follows a noise map over the galaxy so that neighbouring
// systems have similar climates. The same coordinates
// always yield the same planet.
func Generate(id string, owner string, c model.Coordinate, now time.Time) model.Planet {
	s := slotOf(c.Position)
	rng := rand.New(rand.NewSource(c.Seed()))

	// Almost all values of a normal distribution lie in the
	// range `[mean - 3 * sigma; mean + 3 * sigma]`.
	mean := float64(s.maxFields+s.minFields) / 2.0
	stdDev := float64(s.maxFields-s.minFields) / 6.0

	fields := mean + rng.NormFloat64()*stdDev
	fields = math.Max(float64(s.minFields), math.Min(float64(s.maxFields), fields))

	noise := opensimplex.NewNormalized(int64(c.Galaxy))
	climate := noise.Eval2(float64(c.System)/16.0, float64(c.Position)/4.0)
	temperature := float64(s.minTemp) + climate*float64(s.maxTemp-s.minTemp)

	f := int(math.Round(fields))

	return model.Planet{
		ID:          id,
		Owner:       owner,
		Name:        "Colony",
		Coordinates: c,
		Temperature: int(math.Round(temperature)),
		Diameter:    100*f + rng.Intn(100),
		FieldsMax:   f,
		Buildings:   make(map[string]int),
		Ships:       make(map[string]int),
		Defenses:    make(map[string]int),
		LastUpdate:  now,
	}
}
