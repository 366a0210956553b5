package game

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/enamaryn/XNova-reforged-sub000/internal/model"
	"github.com/enamaryn/XNova-reforged-sub000/internal/store"
	"github.com/enamaryn/XNova-reforged-sub000/internal/universe"
	"github.com/enamaryn/XNova-reforged-sub000/pkg/logger"
	"github.com/google/uuid"
)

// startingResources :
// Budget available on the homeworld of a new player.
var startingResources = model.Resources{Metal: 500, Crystal: 500}

// homeworldName :
// Name given to the first planet of a player.
const homeworldName = "Homeworld"

// ErrInvalidName : The name of the player is empty.
var ErrInvalidName = fmt.Errorf("%w: player name cannot be empty", model.ErrValidation)

// Register :
// Creates a new player along with its homeworld at the input
// coordinates, which should be free.
//
// Returns the player and its homeworld along with any error.
func (i *Instance) Register(ctx context.Context, name string, coordinates model.Coordinate, now time.Time) (model.User, model.Planet, error) {
	name = strings.TrimSpace(name)
	if len(name) == 0 {
		return model.User{}, model.Planet{}, ErrInvalidName
	}
	if !i.Universe.Contains(coordinates) {
		return model.User{}, model.Planet{}, model.ErrInvalidCoordinates
	}

	user := model.User{
		ID:           uuid.New().String(),
		Name:         name,
		Technologies: make(map[string]int),
		LastActive:   now,
	}

	planet := universe.Generate(uuid.New().String(), user.ID, coordinates, now)
	planet.Name = homeworldName
	planet.Resources = startingResources

	err := i.Store.Atomic(ctx, func(tx store.Tx) error {
		if _, err := tx.PlanetAt(coordinates); err == nil {
			return model.ErrSlotTaken
		} else if model.KindOf(err) != model.ErrNotFound {
			return err
		}

		if err := tx.SaveUser(user); err != nil {
			return err
		}

		// Computes the production and storage of the planet.
		if err := i.Accrual.Roll(tx, &planet, now); err != nil {
			return err
		}

		return tx.SavePlanet(planet)
	})
	if err != nil {
		return model.User{}, model.Planet{}, err
	}

	i.log.Trace(logger.Notice, "game", fmt.Sprintf("Registered player \"%s\" (%s) on %s", name, user.ID, coordinates))

	return user, planet, nil
}
