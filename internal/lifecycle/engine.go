// Package lifecycle computes fish hunger, death, feeding and spawn
// decisions. Nothing here reads a clock or performs I/O: callers pass now
// and a random source explicitly.
package lifecycle

import (
	"math"
	"time"

	"aquarium/internal/species"
)

const (
	FeedAmount      = 20.0
	FeedingsToSpawn = 5

	DefaultDayStartHour       = 6
	DefaultDayEndHour         = 20
	DefaultInactiveMultiplier = 0.4
	MinInactiveMultiplier     = 0.3
	MaxInactiveMultiplier     = 0.5

	MatureTankHours  = 24.0
	AncientTankHours = 72.0
	MaturityBoost    = 1.5
	AncientRareBoost = 1.5
	secondsPerMinute = 60.0
	secondsPerHour   = 3600.0
	weightSumEpsilon = 1e-12
)

// BaseRarityWeights is the stage-one draw table for a brand new tank.
var BaseRarityWeights = map[species.Rarity]float64{
	species.Common:   0.50,
	species.Uncommon: 0.30,
	species.Rare:     0.15,
	species.VeryRare: 0.05,
}

// Rand is satisfied by *math/rand.Rand.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

type Config struct {
	InactiveMultiplier float64
	DayStartHour       int
	DayEndHour         int
}

func DefaultConfig() Config {
	return Config{
		InactiveMultiplier: DefaultInactiveMultiplier,
		DayStartHour:       DefaultDayStartHour,
		DayEndHour:         DefaultDayEndHour,
	}
}

// Fish is the slice of a fish record the rules operate on.
type Fish struct {
	Species       string
	Hunger        float64
	LastFed       time.Time
	SpawnProgress int
}

type Outcome struct {
	Alive  bool
	Hunger float64
}

type Engine struct {
	cfg     Config
	catalog *species.Catalog
}

func New(catalog *species.Catalog, cfg Config) *Engine {
	if cfg.InactiveMultiplier < MinInactiveMultiplier {
		cfg.InactiveMultiplier = MinInactiveMultiplier
	}
	if cfg.InactiveMultiplier > MaxInactiveMultiplier {
		cfg.InactiveMultiplier = MaxInactiveMultiplier
	}
	if cfg.DayStartHour < 0 || cfg.DayStartHour > 23 {
		cfg.DayStartHour = DefaultDayStartHour
	}
	if cfg.DayEndHour < 0 || cfg.DayEndHour > 24 {
		cfg.DayEndHour = DefaultDayEndHour
	}
	return &Engine{cfg: cfg, catalog: catalog}
}

func (e *Engine) Config() Config {
	return e.cfg
}

func (e *Engine) Catalog() *species.Catalog {
	return e.catalog
}

// IsActive reports whether sp is in its waking window at now. Diurnal
// species wake for hours [DayStartHour, DayEndHour); nocturnal ones for the
// complement.
func (e *Engine) IsActive(sp species.Species, now time.Time) bool {
	h := now.Hour()
	var day bool
	if e.cfg.DayStartHour <= e.cfg.DayEndHour {
		day = h >= e.cfg.DayStartHour && h < e.cfg.DayEndHour
	} else {
		day = h >= e.cfg.DayStartHour || h < e.cfg.DayEndHour
	}
	if sp.Activity == species.Nocturnal {
		return !day
	}
	return day
}

func (e *Engine) HungerRatePerSecond(sp species.Species, active bool) float64 {
	rate := float64(sp.HungerThreshold) / (sp.FeedIntervalMinutes * secondsPerMinute)
	if !active {
		rate *= e.cfg.InactiveMultiplier
	}
	return rate
}

// AdvanceHunger is linear in elapsedSeconds, so one call over T equals two
// calls over T/2 for both the death outcome and the final hunger.
func (e *Engine) AdvanceHunger(f Fish, sp species.Species, elapsedSeconds float64, active bool) Outcome {
	if elapsedSeconds < 0 || math.IsNaN(elapsedSeconds) {
		elapsedSeconds = 0
	}
	threshold := float64(sp.HungerThreshold)
	next := f.Hunger + elapsedSeconds*e.HungerRatePerSecond(sp, active)
	if math.IsInf(next, 1) || next > threshold {
		next = threshold
	}
	if next >= threshold {
		return Outcome{Alive: false}
	}
	return Outcome{Alive: true, Hunger: next}
}

// ApplyFeeding returns the fed fish and whether this feeding completed a
// spawn cycle. A completed cycle resets the progress counter.
func ApplyFeeding(f Fish, now time.Time) (Fish, bool) {
	f.Hunger = math.Max(0, f.Hunger-FeedAmount)
	f.LastFed = now
	f.SpawnProgress++
	if f.SpawnProgress >= FeedingsToSpawn {
		f.SpawnProgress = 0
		return f, true
	}
	return f, false
}

// RarityWeights returns the normalized stage-one table for a tank of the
// given age.
func RarityWeights(tankLifeHours float64) map[species.Rarity]float64 {
	w := make(map[species.Rarity]float64, len(BaseRarityWeights))
	for r, v := range BaseRarityWeights {
		w[r] = v
	}
	if tankLifeHours > MatureTankHours {
		w[species.Rare] *= MaturityBoost
		w[species.VeryRare] *= MaturityBoost
	}
	if tankLifeHours > AncientTankHours {
		w[species.VeryRare] *= AncientRareBoost
	}
	var sum float64
	for _, v := range w {
		sum += v
	}
	if sum < weightSumEpsilon {
		return w
	}
	for r := range w {
		w[r] /= sum
	}
	return w
}

func (e *Engine) SelectSpawnRarity(tankLifeHours float64, rng Rand) species.Rarity {
	w := RarityWeights(tankLifeHours)
	roll := rng.Float64()
	var acc float64
	for _, r := range species.Rarities {
		acc += w[r]
		if roll < acc {
			return r
		}
	}
	return species.Rarities[len(species.Rarities)-1]
}

// SelectSpawnSpecies draws a rarity tier, then a species uniformly within
// it. An empty tier falls back to a uniform draw over the whole catalog.
func (e *Engine) SelectSpawnSpecies(tankLifeHours float64, rng Rand) species.Species {
	rarity := e.SelectSpawnRarity(tankLifeHours, rng)
	pool := e.catalog.ByRarity(rarity)
	if len(pool) == 0 {
		pool = e.catalog.All()
	}
	return pool[rng.Intn(len(pool))]
}

// ElapsedSeconds returns the seconds between from and now. A zero from is
// reported as not ok and yields zero elapsed time; clock skew clamps to 0.
func ElapsedSeconds(from, now time.Time) (float64, bool) {
	if from.IsZero() {
		return 0, false
	}
	d := now.Sub(from).Seconds()
	if d < 0 {
		return 0, true
	}
	return d, true
}

func TankLifeHours(tankLifeSec float64) float64 {
	return tankLifeSec / secondsPerHour
}
