package game

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"aquarium/internal/species"
	"aquarium/internal/store"
)

var requestValidate = validator.New()

type Snapshot struct {
	PSID              string     `json:"psid"`
	TankLifeSec       float64    `json:"tank_life_sec"`
	NumFish           int        `json:"num_fish"`
	TotalFeedings     int        `json:"total_feedings"`
	FoodLevel         float64    `json:"food_level"`
	CastleUnlocked    bool       `json:"castle_unlocked"`
	SubmarineUnlocked bool       `json:"submarine_unlocked"`
	MusicEnabled      bool       `json:"music_enabled"`
	Fish              []FishView `json:"fish"`
	Events            []Event    `json:"events"`
	ServerTime        time.Time  `json:"server_time"`
}

type FishView struct {
	ID         int64     `json:"id"`
	Type       string    `json:"type"`
	Hunger     float64   `json:"hunger"`
	X          float64   `json:"x"`
	Y          float64   `json:"y"`
	LastFed    time.Time `json:"last_fed"`
	SpawnCount int       `json:"spawn_count"`
}

type EventKind string

const (
	EventUnknownSpecies   EventKind = "unknown_species"
	EventInvalidTimestamp EventKind = "invalid_timestamp"
	EventUnknownFish      EventKind = "unknown_fish"
	EventUnlockForcedOff  EventKind = "unlock_forced_off"
	EventFishDied         EventKind = "fish_died"
	EventFishSpawned      EventKind = "fish_spawned"
	EventStarterSpawned   EventKind = "starter_spawned"
	EventTankReset        EventKind = "tank_reset"
)

// Event records something reconciliation did that the client did not ask
// for, or could not honor.
type Event struct {
	ID     string    `json:"id"`
	Kind   EventKind `json:"kind"`
	FishID *int64    `json:"fish_id,omitempty"`
	Detail string    `json:"detail"`
}

// PushRequest is the client's accumulated session state. Absent fields are
// left as stored.
type PushRequest struct {
	TankLifeSec *float64     `json:"tank_life_sec,omitempty" validate:"omitempty,gte=0"`
	FoodLevel   *float64     `json:"food_level,omitempty" validate:"omitempty,gte=0,lte=100"`
	Fish        []FishUpdate `json:"fish" validate:"max=512,unique=ID,dive"`
	Unlockables Unlockables  `json:"unlockables"`
}

type FishUpdate struct {
	ID     int64    `json:"id" validate:"required,gt=0"`
	X      *float64 `json:"x,omitempty"`
	Y      *float64 `json:"y,omitempty"`
	Hunger *float64 `json:"hunger,omitempty" validate:"omitempty,gte=0"`
	Fed    bool     `json:"fed,omitempty"`
}

type Unlockables struct {
	Castle    *bool `json:"castle,omitempty"`
	Submarine *bool `json:"submarine,omitempty"`
	Music     *bool `json:"music,omitempty"`
}

func (r *PushRequest) Validate() error {
	if err := requestValidate.Struct(r); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

type CatalogView struct {
	Species       []species.Species          `json:"species"`
	RarityWeights map[species.Rarity]float64 `json:"rarity_weights"`
	Constants     Constants                  `json:"constants"`
}

type Constants struct {
	FeedAmount          float64 `json:"feed_amount"`
	FeedingsToSpawn     int     `json:"feedings_to_spawn"`
	CastleUnlockFish    int     `json:"castle_unlock_fish"`
	SubmarineUnlockFish int     `json:"submarine_unlock_fish"`
	DayStartHour        int     `json:"day_start_hour"`
	DayEndHour          int     `json:"day_end_hour"`
	InactiveMultiplier  float64 `json:"inactive_multiplier"`
	MatureTankHours     float64 `json:"mature_tank_hours"`
	AncientTankHours    float64 `json:"ancient_tank_hours"`
	MaturityBoost       float64 `json:"maturity_boost"`
	AncientRareBoost    float64 `json:"ancient_rare_boost"`
	World               World   `json:"world"`
}

type LeaderboardRow = store.LeaderboardEntry

func fishView(f store.Fish) FishView {
	return FishView{
		ID:         f.ID,
		Type:       f.Species,
		Hunger:     f.Hunger,
		X:          f.X,
		Y:          f.Y,
		LastFed:    f.LastFed,
		SpawnCount: f.SpawnCount,
	}
}
