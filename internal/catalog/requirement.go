package catalog

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// RequirementKind :
// Describes what a requirement is about: the level of a
// building on the planet or of a technology of the player.
type RequirementKind string

// Possible kinds of requirements.
const (
	BuildingRequirement   RequirementKind = "building"
	TechnologyRequirement RequirementKind = "technology"
)

// Requirement :
// Defines a prerequisite to unlock an element. It is
// either a building level or a technology level.
//
// The `Kind` tells which of the two variants this is.
//
// The `ID` is the identifier of the required element.
//
// The `Level` is the minimum level to reach.
type Requirement struct {
	Kind  RequirementKind `json:"kind"`
	ID    string          `json:"id"`
	Level int             `json:"level"`
}

// Building :
// Creates a requirement on a building level.
func Building(id string, level int) Requirement {
	return Requirement{Kind: BuildingRequirement, ID: id, Level: level}
}

// Technology :
// Creates a requirement on a technology level.
func Technology(id string, level int) Requirement {
	return Requirement{Kind: TechnologyRequirement, ID: id, Level: level}
}

// String :
// Implementation of the stringer interface.
func (r Requirement) String() string {
	return fmt.Sprintf("%s %s at level %d", r.Kind, r.ID, r.Level)
}

// Met :
// Returns whether the requirement is satisfied by the
// input levels.
func (r Requirement) Met(buildings map[string]int, technologies map[string]int) bool {
	switch r.Kind {
	case BuildingRequirement:
		return buildings[r.ID] >= r.Level
	case TechnologyRequirement:
		return technologies[r.ID] >= r.Level
	default:
		return false
	}
}

// UnmarshalYAML :
// Reads a requirement written as `{ building: id, level: n }`
// or `{ technology: id, level: n }`. Exactly one of the two
// keys must be set.
func (r *Requirement) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Building   string `yaml:"building"`
		Technology string `yaml:"technology"`
		Level      int    `yaml:"level"`
	}

	if err := node.Decode(&raw); err != nil {
		return err
	}

	switch {
	case len(raw.Building) > 0 && len(raw.Technology) == 0:
		*r = Building(raw.Building, raw.Level)
	case len(raw.Technology) > 0 && len(raw.Building) == 0:
		*r = Technology(raw.Technology, raw.Level)
	default:
		return fmt.Errorf("%w: requirement at line %d must name a building or a technology", ErrInvalidCatalog, node.Line)
	}

	if r.Level <= 0 {
		return fmt.Errorf("%w: requirement on \"%s\" has level %d", ErrInvalidCatalog, r.ID, r.Level)
	}

	return nil
}
