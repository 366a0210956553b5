package game

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/enamaryn/XNova-reforged-sub000/internal/model"
	"github.com/enamaryn/XNova-reforged-sub000/internal/routes"
	"github.com/enamaryn/XNova-reforged-sub000/internal/sweep"
	"github.com/enamaryn/XNova-reforged-sub000/pkg/logger"
	"github.com/spf13/viper"
)

var epoch = time.Date(2026, 7, 4, 18, 0, 0, 0, time.UTC)

func newInstance(t *testing.T) *Instance {
	t.Helper()

	i, err := NewInstance(logger.NewNullLogger())
	if err != nil {
		t.Fatalf("Unexpected error %v", err)
	}
	t.Cleanup(func() { i.Close() })

	return i
}

func TestNewInstance_Drivers(t *testing.T) {
	defer viper.Reset()

	viper.Set("Database.Driver", "cassandra")
	if _, err := NewInstance(logger.NewNullLogger()); !errors.Is(err, ErrUnknownDriver) {
		t.Fatalf("Expected unknown driver, got %v", err)
	}

	viper.Set("Database.Driver", "memory")
	viper.Set("Game.Galaxies", 0)
	if _, err := NewInstance(logger.NewNullLogger()); err == nil {
		t.Fatalf("Invalid universe should be rejected")
	}

	viper.Reset()
	viper.Set("Database.Driver", "sqlite")
	viper.Set("Game.Galaxies", 2)

	i := newInstance(t)
	if i.Universe.Galaxies != 2 {
		t.Fatalf("Universe was not configured: %+v", i.Universe)
	}

	if _, _, err := i.Register(context.Background(), "ada", model.NewCoordinate(2, 3, 4), epoch); err != nil {
		t.Fatalf("Unexpected error %v", err)
	}
	if _, _, err := i.Register(context.Background(), "bob", model.NewCoordinate(2, 3, 4), epoch); !errors.Is(err, model.ErrSlotTaken) {
		t.Fatalf("Expected slot taken, got %v", err)
	}
}

func TestRegister(t *testing.T) {
	defer viper.Reset()
	i := newInstance(t)

	user, planet, err := i.Register(context.Background(), "  ada ", model.NewCoordinate(1, 2, 8), epoch)
	if err != nil {
		t.Fatalf("Unexpected error %v", err)
	}
	if user.Name != "ada" || planet.Owner != user.ID || planet.Name != homeworldName {
		t.Fatalf("Unexpected registration %+v %+v", user, planet)
	}
	if planet.Resources != startingResources || planet.FieldsMax <= 0 || planet.Storage.Metal <= 0 {
		t.Fatalf("Homeworld was not initialized: %+v", planet)
	}

	tests := []struct {
		name        string
		coordinates model.Coordinate
		expected    error
	}{
		{" ", model.NewCoordinate(1, 2, 9), model.ErrValidation},
		{"bob", model.NewCoordinate(1, 2, 16), model.ErrInvalidCoordinates},
		{"bob", model.NewCoordinate(1, 2, 8), model.ErrSlotTaken},
	}

	for _, test := range tests {
		_, _, err := i.Register(context.Background(), test.name, test.coordinates, epoch)
		if !errors.Is(err, test.expected) {
			t.Errorf("Registering \"%s\" at %s: expected %v, got %v", test.name, test.coordinates, test.expected, err)
		}
	}
}

func TestInstance_EndToEnd(t *testing.T) {
	defer viper.Reset()
	i := newInstance(t)

	now := epoch
	server := routes.NewServer(0, i.Services(), routes.DefaultConfig(), logger.NewNullLogger()).
		WithClock(func() time.Time { return now })

	do := func(method string, path string, player string, body string) (int, map[string]interface{}) {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		if len(player) > 0 {
			req.Header.Set("X-Player", player)
		}
		rec := httptest.NewRecorder()
		server.Handler().ServeHTTP(rec, req)

		out := make(map[string]interface{})
		json.Unmarshal(rec.Body.Bytes(), &out)
		return rec.Code, out
	}

	code, out := do("POST", "/players", "", `{"name":"ada","coordinates":{"galaxy":1,"system":1,"position":4}}`)
	if code != http.StatusCreated {
		t.Fatalf("Unexpected answer %d %v", code, out)
	}
	player := out["player"].(map[string]interface{})["id"].(string)
	planet := out["homeworld"].(map[string]interface{})["id"].(string)

	code, out = do("POST", "/planets/"+planet+"/queues/building", player, `{"element":"metal_mine"}`)
	if code != http.StatusCreated {
		t.Fatalf("Unexpected answer %d %v", code, out)
	}

	now = epoch.Add(24 * time.Hour)
	report, err := i.Sweeps.RunOnce(context.Background(), now)
	if err != nil {
		t.Fatalf("Unexpected error %v", err)
	}
	// Completing the entry refreshed the planet up to now.
	if report[sweep.Queues].Processed != 1 || report[sweep.Resources].Processed != 0 {
		t.Fatalf("Unexpected sweep report %+v", report)
	}

	code, out = do("GET", "/planets/"+planet, player, "")
	if code != http.StatusOK {
		t.Fatalf("Unexpected answer %d %v", code, out)
	}
	buildings := out["buildings"].(map[string]interface{})
	if buildings["metal_mine"] != float64(1) {
		t.Fatalf("Metal mine should have been built, got %v", buildings)
	}
}
