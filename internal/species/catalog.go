// Package species holds the immutable fish species registry.
package species

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

type Rarity string

const (
	Common   Rarity = "common"
	Uncommon Rarity = "uncommon"
	Rare     Rarity = "rare"
	VeryRare Rarity = "very_rare"
)

// Rarities lists every tier in draw order.
var Rarities = []Rarity{Common, Uncommon, Rare, VeryRare}

type Activity string

const (
	Diurnal   Activity = "diurnal"
	Nocturnal Activity = "nocturnal"
)

var (
	ErrEmptyCatalog     = errors.New("species catalog is empty")
	ErrDuplicateSpecies = errors.New("duplicate species name")
	ErrInvalidSpecies   = errors.New("invalid species definition")
)

//go:embed catalog.toml
var defaultCatalog []byte

type Species struct {
	Name                string   `toml:"name" json:"name"`
	FeedIntervalMinutes float64  `toml:"feed_interval_minutes" json:"feed_interval_minutes"`
	HungerThreshold     int      `toml:"hunger_threshold" json:"hunger_threshold"`
	Rarity              Rarity   `toml:"rarity" json:"rarity"`
	Activity            Activity `toml:"activity" json:"activity_cycle"`
	Size                float64  `toml:"size" json:"size"`
}

func (s Species) validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidSpecies)
	}
	if s.FeedIntervalMinutes <= 0 {
		return fmt.Errorf("%w: %s feed interval must be > 0", ErrInvalidSpecies, s.Name)
	}
	if s.HungerThreshold <= 0 {
		return fmt.Errorf("%w: %s hunger threshold must be > 0", ErrInvalidSpecies, s.Name)
	}
	switch s.Rarity {
	case Common, Uncommon, Rare, VeryRare:
	default:
		return fmt.Errorf("%w: %s has unknown rarity %q", ErrInvalidSpecies, s.Name, s.Rarity)
	}
	switch s.Activity {
	case Diurnal, Nocturnal:
	default:
		return fmt.Errorf("%w: %s has unknown activity cycle %q", ErrInvalidSpecies, s.Name, s.Activity)
	}
	return nil
}

// Catalog is resolved once at startup and never mutated afterwards.
type Catalog struct {
	ordered  []Species
	byName   map[string]Species
	byRarity map[Rarity][]Species
}

type catalogFile struct {
	Species []Species `toml:"species"`
}

func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func New(list []Species) (*Catalog, error) {
	if len(list) == 0 {
		return nil, ErrEmptyCatalog
	}
	c := &Catalog{
		byName:   make(map[string]Species, len(list)),
		byRarity: make(map[Rarity][]Species),
	}
	for _, sp := range list {
		sp.Name = Normalize(sp.Name)
		sp.Rarity = Rarity(Normalize(string(sp.Rarity)))
		sp.Activity = Activity(Normalize(string(sp.Activity)))
		if err := sp.validate(); err != nil {
			return nil, err
		}
		if _, ok := c.byName[sp.Name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSpecies, sp.Name)
		}
		c.byName[sp.Name] = sp
		c.byRarity[sp.Rarity] = append(c.byRarity[sp.Rarity], sp)
		c.ordered = append(c.ordered, sp)
	}
	return c, nil
}

func Parse(raw []byte) (*Catalog, error) {
	var f catalogFile
	if err := toml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return New(f.Species)
}

// Load reads the catalog at path, or the embedded default when path is empty.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Parse(defaultCatalog)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(raw)
}

func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

func (c *Catalog) Lookup(name string) (Species, bool) {
	sp, ok := c.byName[Normalize(name)]
	return sp, ok
}

// All returns the species in catalog file order.
func (c *Catalog) All() []Species {
	out := make([]Species, len(c.ordered))
	copy(out, c.ordered)
	return out
}

func (c *Catalog) ByRarity(r Rarity) []Species {
	list := c.byRarity[r]
	out := make([]Species, len(list))
	copy(out, list)
	return out
}

// Starter is the species given to an empty tank: the first common species,
// or the first species of any rarity when no common one exists.
func (c *Catalog) Starter() Species {
	if list := c.byRarity[Common]; len(list) > 0 {
		return list[0]
	}
	return c.ordered[0]
}

func (c *Catalog) Len() int {
	return len(c.ordered)
}
