// Package store is the persistence gateway for aquariums, fish and the
// leaderboard. Postgres and SQLite implement the same Store contract:
// partial updates touch only the named fields, and deleting an aquarium
// cascades to its fish.
package store

import (
	"context"
	"errors"
	"time"
)

// LeaderboardSize bounds the ranked table after every completed write.
const LeaderboardSize = 10

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("transaction conflict")
)

type Aquarium struct {
	ID                int64
	PSID              string
	TankLifeSec       float64
	NumFish           int
	TotalFeedings     int
	FoodLevel         float64
	CastleUnlocked    bool
	SubmarineUnlocked bool
	MusicEnabled      bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// AquariumPatch carries only the fields to change; nil means untouched.
// UpdatedAt overrides the stamp written with any change.
type AquariumPatch struct {
	TankLifeSec       *float64
	NumFish           *int
	TotalFeedings     *int
	FoodLevel         *float64
	CastleUnlocked    *bool
	SubmarineUnlocked *bool
	MusicEnabled      *bool
	UpdatedAt         *time.Time
}

// Fish mirrors a fish row. A zero LastFed or HungerUpdatedAt means the
// stored value could not be parsed.
type Fish struct {
	ID              int64
	AquariumID      int64
	Species         string
	Hunger          float64
	X               float64
	Y               float64
	LastFed         time.Time
	HungerUpdatedAt time.Time
	SpawnCount      int
	CreatedAt       time.Time
}

type NewFish struct {
	Species string
	Hunger  float64
	X       float64
	Y       float64
	LastFed time.Time
}

type FishPatch struct {
	Hunger          *float64
	X               *float64
	Y               *float64
	LastFed         *time.Time
	HungerUpdatedAt *time.Time
	SpawnCount      *int
}

type LeaderboardEntry struct {
	Rank          int       `json:"rank"`
	PSID          string    `json:"psid"`
	TankLifeSec   float64   `json:"tank_life_sec"`
	NumFish       int       `json:"num_fish"`
	TotalFeedings int       `json:"total_feedings"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Queries is the gateway surface usable both on the store and inside a
// transaction.
type Queries interface {
	GetAquarium(ctx context.Context, psid string) (Aquarium, error)
	CreateAquarium(ctx context.Context, psid string) (Aquarium, error)
	UpdateAquarium(ctx context.Context, psid string, patch AquariumPatch) error
	ListFish(ctx context.Context, aquariumID int64) ([]Fish, error)
	AddFish(ctx context.Context, aquariumID int64, f NewFish) (Fish, error)
	UpdateFish(ctx context.Context, fishID int64, patch FishPatch) error
	RemoveFish(ctx context.Context, fishID int64) error
	Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error)
	// RecordAndTrim upserts entry, keeping the best value seen per field,
	// then deletes every row ranked below LeaderboardSize. Both statements
	// commit together.
	RecordAndTrim(ctx context.Context, entry LeaderboardEntry) error
}

type Store interface {
	Queries
	// InTx runs fn in one transaction, retrying it on serialization
	// failures. fn must be safe to re-run.
	InTx(ctx context.Context, fn func(q Queries) error) error
	Migrate(ctx context.Context) error
	DeleteAquarium(ctx context.Context, psid string) error
	Backend() string
	Close() error
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
