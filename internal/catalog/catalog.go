package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/enamaryn/XNova-reforged-sub000/internal/model"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Kind :
// The family of an element of the catalog.
type Kind string

// Available kinds of elements.
const (
	BuildingKind   Kind = "building"
	TechnologyKind Kind = "technology"
	ShipKind       Kind = "ship"
	DefenseKind    Kind = "defense"
)

// Identifiers of the elements the engine refers to directly.
const (
	MetalMine            = "metal_mine"
	CrystalMine          = "crystal_mine"
	DeuteriumSynthesizer = "deuterium_synthesizer"
	SolarPlant           = "solar_plant"
	FusionReactor        = "fusion_reactor"
	RoboticsFactory      = "robotics_factory"
	NaniteFactory        = "nanite_factory"
	Shipyard             = "shipyard"
	ResearchLab          = "research_lab"

	EnergyTechnology    = "energy_technology"
	WeaponsTechnology   = "weapons_technology"
	ShieldingTechnology = "shielding_technology"
	ArmourTechnology    = "armour_technology"
	Astrophysics        = "astrophysics"
)

// Names of the resources used by the production rules.
const (
	Metal     = "metal"
	Crystal   = "crystal"
	Deuterium = "deuterium"
	Energy    = "energy"
)

// ErrInvalidCatalog :
// Indicates that the balance tables are not consistent.
var ErrInvalidCatalog = errors.New("invalid balance tables")

//go:embed balance.yaml
var defaultBalance []byte

// Element :
// Describes a building, technology, ship or defense along
// with the rules used to price and build it.
//
// The `Cost` is the price of the first level for buildings
// and technologies, and the price of a single unit for the
// ships and defenses.
//
// The `Factor` is the progression applied to the cost for
// each level already reached. Only used by buildings and
// technologies.
//
// The `MaxLevel` caps the level (or the number of units for
// defenses). A value of `0` means no limit.
//
// The `FieldExempt` indicates a building whose levels do not
// consume any field of the planet.
//
// The `Production` and `Consumption` are the hourly rules of
// the building.
//
// The `Storage` is set for buildings raising the capacity of
// a resource.
//
// The `Unit` holds the combat and propulsion statistics of
// ships and defenses.
type Element struct {
	ID           string           `yaml:"-" json:"id"`
	Kind         Kind             `yaml:"-" json:"kind"`
	Name         string           `yaml:"name" json:"name"`
	Cost         model.Resources  `yaml:"cost" json:"cost"`
	Factor       float64          `yaml:"factor" json:"factor,omitempty"`
	MaxLevel     int              `yaml:"max_level" json:"max_level,omitempty"`
	FieldExempt  bool             `yaml:"field_exempt" json:"field_exempt,omitempty"`
	Production   []ProductionRule `yaml:"production" json:"production,omitempty"`
	Consumption  []ProductionRule `yaml:"consumption" json:"consumption,omitempty"`
	Storage      *StorageRule     `yaml:"storage" json:"storage,omitempty"`
	Requirements []Requirement    `yaml:"requirements" json:"requirements,omitempty"`
	Unit         *UnitStats       `yaml:"unit" json:"unit,omitempty"`
}

// Progressive :
// Returns `true` for elements with levels, i.e. buildings
// and technologies.
func (e *Element) Progressive() bool {
	return e.Kind == BuildingKind || e.Kind == TechnologyKind
}

// Catalog :
// Static balance tables of the game. The catalog is built
// once at start-up and never modified afterwards so that it
// can be shared freely between routines.
//
// The `elements` holds every element by identifier.
//
// The `order` lists the identifiers in alphabetical order
// so that computations summing over elements are stable.
//
// The `drives` associates each drive technology to the
// speed bonus it provides per level.
type Catalog struct {
	elements map[string]*Element
	order    []string
	drives   map[string]float64
}

// document :
// Layout of the balance file.
type document struct {
	Drives       map[string]float64  `yaml:"drives"`
	Buildings    map[string]*Element `yaml:"buildings"`
	Technologies map[string]*Element `yaml:"technologies"`
	Ships        map[string]*Element `yaml:"ships"`
	Defenses     map[string]*Element `yaml:"defenses"`
}

// Parse :
// Builds a catalog from the content of a balance file and
// checks its consistency.
//
// Returns the catalog along with any error.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w (err: %v)", ErrInvalidCatalog, err)
	}

	c := &Catalog{
		elements: make(map[string]*Element),
		drives:   doc.Drives,
	}
	if c.drives == nil {
		c.drives = make(map[string]float64)
	}

	sections := []struct {
		kind     Kind
		elements map[string]*Element
	}{
		{BuildingKind, doc.Buildings},
		{TechnologyKind, doc.Technologies},
		{ShipKind, doc.Ships},
		{DefenseKind, doc.Defenses},
	}

	for _, section := range sections {
		for id, elem := range section.elements {
			if elem == nil {
				return nil, fmt.Errorf("%w: element \"%s\" is empty", ErrInvalidCatalog, id)
			}
			if _, ok := c.elements[id]; ok {
				return nil, fmt.Errorf("%w: element \"%s\" is defined twice", ErrInvalidCatalog, id)
			}

			elem.ID = id
			elem.Kind = section.kind
			c.elements[id] = elem
			c.order = append(c.order, id)
		}
	}

	sort.Strings(c.order)

	if err := c.validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// validate :
// Checks that the elements are consistent with each other
// and fills the derived statistics.
func (c *Catalog) validate() error {
	for _, id := range c.order {
		elem := c.elements[id]

		if elem.Progressive() && elem.Factor <= 0 {
			return fmt.Errorf("%w: element \"%s\" has invalid factor %f", ErrInvalidCatalog, id, elem.Factor)
		}
		if elem.Cost.Metal < 0 || elem.Cost.Crystal < 0 || elem.Cost.Deuterium < 0 {
			return fmt.Errorf("%w: element \"%s\" has negative cost", ErrInvalidCatalog, id)
		}

		for _, req := range elem.Requirements {
			dep, ok := c.elements[req.ID]
			if !ok {
				return fmt.Errorf("%w: element \"%s\" requires unknown \"%s\"", ErrInvalidCatalog, id, req.ID)
			}
			if string(dep.Kind) != string(req.Kind) {
				return fmt.Errorf("%w: element \"%s\" requires \"%s\" as a %s", ErrInvalidCatalog, id, req.ID, req.Kind)
			}
		}

		switch elem.Kind {
		case ShipKind, DefenseKind:
			if elem.Unit == nil {
				return fmt.Errorf("%w: unit \"%s\" has no statistics", ErrInvalidCatalog, id)
			}
			if err := c.validateUnit(elem); err != nil {
				return err
			}
		default:
			if elem.Unit != nil {
				return fmt.Errorf("%w: element \"%s\" cannot define unit statistics", ErrInvalidCatalog, id)
			}
		}

		if elem.Storage != nil && elem.Kind != BuildingKind {
			return fmt.Errorf("%w: element \"%s\" cannot define a storage", ErrInvalidCatalog, id)
		}
	}

	return nil
}

// validateUnit :
// Checks the propulsion and rapid fire of a unit and
// computes its hull.
func (c *Catalog) validateUnit(elem *Element) error {
	unit := elem.Unit
	unit.Hull = float64(elem.Cost.Metal+elem.Cost.Crystal) / 10.0

	for target, r := range unit.RapidFire {
		if _, ok := c.elements[target]; !ok {
			return fmt.Errorf("%w: unit \"%s\" has rapid fire against unknown \"%s\"", ErrInvalidCatalog, elem.ID, target)
		}
		if r < 1 {
			return fmt.Errorf("%w: unit \"%s\" has rapid fire %d against \"%s\"", ErrInvalidCatalog, elem.ID, r, target)
		}
	}

	if elem.Kind == DefenseKind {
		return nil
	}

	if _, ok := c.drives[unit.Drive]; !ok {
		return fmt.Errorf("%w: ship \"%s\" uses unknown drive \"%s\"", ErrInvalidCatalog, elem.ID, unit.Drive)
	}
	for _, up := range unit.Upgrades {
		if _, ok := c.drives[up.Drive]; !ok {
			return fmt.Errorf("%w: ship \"%s\" upgrades to unknown drive \"%s\"", ErrInvalidCatalog, elem.ID, up.Drive)
		}
	}
	if unit.Speed <= 0 {
		return fmt.Errorf("%w: ship \"%s\" has invalid speed %d", ErrInvalidCatalog, elem.ID, unit.Speed)
	}

	return nil
}

// Default :
// Returns the catalog built from the embedded balance file.
// The embedded file is checked by the tests so a failure to
// parse it is a programming error.
func Default() *Catalog {
	c, err := Parse(defaultBalance)
	if err != nil {
		panic(err)
	}

	return c
}

// Load :
// Builds the catalog from the file at `path`, or from the
// embedded balance file when the path is empty.
//
// Returns the catalog along with any error.
func Load(path string) (*Catalog, error) {
	if len(path) == 0 {
		return Parse(defaultBalance)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read \"%s\" (err: %v)", ErrInvalidCatalog, path, err)
	}

	return Parse(data)
}

// NewFromConfiguration :
// Builds the catalog from the file named by `Game.Catalog`
// if any.
func NewFromConfiguration() (*Catalog, error) {
	return Load(viper.GetString("Game.Catalog"))
}

// Element :
// Returns the element with this identifier.
func (c *Catalog) Element(id string) (*Element, bool) {
	elem, ok := c.elements[id]
	return elem, ok
}

// ElementOfKind :
// Returns the element with this identifier, failing with a
// validation error when it does not exist or has another
// kind than one of the ones provided.
func (c *Catalog) ElementOfKind(id string, kinds ...Kind) (*Element, error) {
	elem, ok := c.elements[id]
	if !ok {
		return nil, fmt.Errorf("%w: \"%s\"", model.ErrUnknownElement, id)
	}

	for _, kind := range kinds {
		if elem.Kind == kind {
			return elem, nil
		}
	}

	return nil, fmt.Errorf("%w: \"%s\" is a %s", model.ErrInvalidElementKind, id, elem.Kind)
}

// Elements :
// Returns the elements of the kind, sorted by identifier.
func (c *Catalog) Elements(kind Kind) []*Element {
	var out []*Element
	for _, id := range c.order {
		if elem := c.elements[id]; elem.Kind == kind {
			out = append(out, elem)
		}
	}

	return out
}

// RequirementsMet :
// Checks the requirements of an element against the levels
// of the buildings of a planet and of the technologies of
// its owner.
//
// Returns whether all of them are met and the list of the
// ones that are not. An unknown element is never met.
func (c *Catalog) RequirementsMet(id string, buildings map[string]int, technologies map[string]int) (bool, []Requirement) {
	elem, ok := c.elements[id]
	if !ok {
		return false, nil
	}

	var missing []Requirement
	for _, req := range elem.Requirements {
		if !req.Met(buildings, technologies) {
			missing = append(missing, req)
		}
	}

	return len(missing) == 0, missing
}
