package game

import (
	"context"
	"database/sql"
	mathrand "math/rand"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aquarium/internal/cache"
	"aquarium/internal/db"
	"aquarium/internal/lifecycle"
	"aquarium/internal/species"
	"aquarium/internal/store"
)

// goldfish: threshold 100 over 180 minutes while awake.
const goldfishRate = 100.0 / (180 * 60)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	svc   *Service
	store *store.SQLite
	conn  *sql.DB
	clock *testClock
}

func newFixture(t *testing.T, opts ...Option) fixture {
	t.Helper()
	ctx := context.Background()
	conn, err := db.OpenSQLite(ctx, db.MemoryPath)
	require.NoError(t, err)
	st := store.NewSQLite(conn, nil)
	require.NoError(t, st.Migrate(ctx))
	t.Cleanup(func() { _ = st.Close() })

	catalog, err := species.Default()
	require.NoError(t, err)
	clock := &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	opts = append([]Option{
		WithClock(clock.Now),
		WithRand(mathrand.New(mathrand.NewSource(7))),
	}, opts...)
	svc := NewService(st, lifecycle.New(catalog, lifecycle.DefaultConfig()), nil, opts...)
	return fixture{svc: svc, store: st, conn: conn, clock: clock}
}

func hasEvent(snap Snapshot, kind EventKind) bool {
	for _, ev := range snap.Events {
		if ev.Kind == kind {
			return true
		}
	}
	return false
}

func fed(id int64) FishUpdate {
	return FishUpdate{ID: id, Fed: true}
}

func boolPtr(v bool) *bool        { return &v }
func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func TestLoadCreatesAquariumWithStarter(t *testing.T) {
	f := newFixture(t)
	snap, err := f.svc.LoadAndCatchUp(context.Background(), "player-0001")
	require.NoError(t, err)

	assert.Equal(t, "player-0001", snap.PSID)
	assert.Equal(t, 1, snap.NumFish)
	require.Len(t, snap.Fish, 1)
	assert.Equal(t, "goldfish", snap.Fish[0].Type)
	assert.Equal(t, 0.0, snap.Fish[0].Hunger)
	assert.True(t, hasEvent(snap, EventStarterSpawned))
	assert.False(t, hasEvent(snap, EventTankReset))
	assert.Equal(t, f.clock.Now(), snap.ServerTime)
}

func TestLoadRejectsInvalidPSID(t *testing.T) {
	f := newFixture(t)
	for _, psid := range []string{"", "short", "has space in it", "semi;colon-psid"} {
		_, err := f.svc.LoadAndCatchUp(context.Background(), psid)
		require.ErrorIs(t, err, ErrInvalidPSID, "psid %q", psid)
	}
}

func TestCatchUpIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.LoadAndCatchUp(ctx, "player-0001")
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	first, err := f.svc.LoadAndCatchUp(ctx, "player-0001")
	require.NoError(t, err)
	second, err := f.svc.LoadAndCatchUp(ctx, "player-0001")
	require.NoError(t, err)

	require.Len(t, first.Fish, 1)
	require.Len(t, second.Fish, 1)
	assert.InDelta(t, 3600*goldfishRate, first.Fish[0].Hunger, 1e-6)
	assert.InDelta(t, first.Fish[0].Hunger, second.Fish[0].Hunger, 1e-9)
	assert.Equal(t, first.Fish[0].ID, second.Fish[0].ID)
	assert.InDelta(t, 3600, second.TankLifeSec, 1e-6)
	assert.Empty(t, second.Events)
}

func TestCatchUpInStepsMatchesOneBatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, psid := range []string{"stepwise-01", "batched-001"} {
		_, err := f.svc.LoadAndCatchUp(ctx, psid)
		require.NoError(t, err)
	}

	for i := 0; i < 6; i++ {
		f.clock.Advance(10 * time.Minute)
		_, err := f.svc.LoadAndCatchUp(ctx, "stepwise-01")
		require.NoError(t, err)
	}
	stepwise, err := f.svc.LoadAndCatchUp(ctx, "stepwise-01")
	require.NoError(t, err)
	batched, err := f.svc.LoadAndCatchUp(ctx, "batched-001")
	require.NoError(t, err)

	assert.InDelta(t, batched.Fish[0].Hunger, stepwise.Fish[0].Hunger, 1e-9)
	assert.InDelta(t, batched.TankLifeSec, stepwise.TankLifeSec, 1e-6)
}

func TestCatchUpDeathResetsTankAndSpawnsStarter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	initial, err := f.svc.LoadAndCatchUp(ctx, "player-0001")
	require.NoError(t, err)
	oldID := initial.Fish[0].ID

	_, err = f.svc.SaveFromClient(ctx, "player-0001", PushRequest{
		TankLifeSec: floatPtr(5000),
		Fish:        []FishUpdate{fed(oldID)},
	})
	require.NoError(t, err)

	f.clock.Advance(4 * time.Hour)
	snap, err := f.svc.LoadAndCatchUp(ctx, "player-0001")
	require.NoError(t, err)

	assert.Equal(t, 0.0, snap.TankLifeSec)
	assert.Equal(t, 0, snap.TotalFeedings)
	assert.Equal(t, 1, snap.NumFish)
	require.Len(t, snap.Fish, 1)
	assert.NotEqual(t, oldID, snap.Fish[0].ID)
	assert.True(t, hasEvent(snap, EventFishDied))
	assert.True(t, hasEvent(snap, EventTankReset))
	assert.True(t, hasEvent(snap, EventStarterSpawned))

	again, err := f.svc.LoadAndCatchUp(ctx, "player-0001")
	require.NoError(t, err)
	assert.Equal(t, snap.Fish[0].ID, again.Fish[0].ID)
	assert.Empty(t, again.Events)
}

func TestCatchUpDeathDecrementsFishCount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	snap, err := f.svc.LoadAndCatchUp(ctx, "player-0001")
	require.NoError(t, err)

	aq, err := f.store.GetAquarium(ctx, "player-0001")
	require.NoError(t, err)
	_, err = f.store.AddFish(ctx, aq.ID, store.NewFish{Species: "koi", LastFed: f.clock.Now()})
	require.NoError(t, err)
	require.NoError(t, f.store.UpdateAquarium(ctx, "player-0001", store.AquariumPatch{NumFish: intPtr(2)}))

	f.clock.Advance(4 * time.Hour)
	after, err := f.svc.LoadAndCatchUp(ctx, "player-0001")
	require.NoError(t, err)
	assert.Equal(t, 1, after.NumFish)
	require.Len(t, after.Fish, 1)
	assert.Equal(t, "koi", after.Fish[0].Type)
	assert.NotEqual(t, snap.Fish[0].ID, after.Fish[0].ID)
	assert.True(t, hasEvent(after, EventFishDied))
	assert.False(t, hasEvent(after, EventTankReset))
}

func TestUnknownSpeciesIsDroppedOnLoad(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.LoadAndCatchUp(ctx, "player-0001")
	require.NoError(t, err)

	aq, err := f.store.GetAquarium(ctx, "player-0001")
	require.NoError(t, err)
	kraken, err := f.store.AddFish(ctx, aq.ID, store.NewFish{Species: "kraken", LastFed: f.clock.Now()})
	require.NoError(t, err)

	snap, err := f.svc.LoadAndCatchUp(ctx, "player-0001")
	require.NoError(t, err)
	assert.Equal(t, 1, snap.NumFish)
	for _, fish := range snap.Fish {
		assert.NotEqual(t, kraken.ID, fish.ID)
	}
	require.True(t, hasEvent(snap, EventUnknownSpecies))

	rows, err := f.store.ListFish(ctx, aq.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestInvalidLastFedIsTreatedAsFedNow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	initial, err := f.svc.LoadAndCatchUp(ctx, "player-0001")
	require.NoError(t, err)
	id := initial.Fish[0].ID

	_, err = f.conn.ExecContext(ctx, `UPDATE fish SET last_fed = 'not-a-time', hunger = 50 WHERE id = ?`, id)
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	snap, err := f.svc.LoadAndCatchUp(ctx, "player-0001")
	require.NoError(t, err)
	require.Len(t, snap.Fish, 1)
	assert.Equal(t, 50.0, snap.Fish[0].Hunger)
	assert.True(t, snap.Fish[0].LastFed.Equal(f.clock.Now()))
	assert.True(t, hasEvent(snap, EventInvalidTimestamp))

	rows, err := f.store.ListFish(ctx, aquariumID(t, f, "player-0001"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].LastFed.Equal(f.clock.Now()))
}

func TestUnreadableHungerBaselineBillsNoTime(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	initial, err := f.svc.LoadAndCatchUp(ctx, "player-0001")
	require.NoError(t, err)
	id := initial.Fish[0].ID

	f.clock.Advance(time.Hour)
	settled, err := f.svc.LoadAndCatchUp(ctx, "player-0001")
	require.NoError(t, err)
	require.InDelta(t, goldfishRate*3600, settled.Fish[0].Hunger, 1e-9)

	_, err = f.conn.ExecContext(ctx, `UPDATE fish SET hunger_updated_at = 'garbage' WHERE id = ?`, id)
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	snap, err := f.svc.LoadAndCatchUp(ctx, "player-0001")
	require.NoError(t, err)
	require.Len(t, snap.Fish, 1)
	assert.InDelta(t, settled.Fish[0].Hunger, snap.Fish[0].Hunger, 1e-9)
	assert.True(t, hasEvent(snap, EventInvalidTimestamp))

	rows, err := f.store.ListFish(ctx, aquariumID(t, f, "player-0001"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].HungerUpdatedAt.Equal(f.clock.Now()))

	f.clock.Advance(time.Hour)
	again, err := f.svc.LoadAndCatchUp(ctx, "player-0001")
	require.NoError(t, err)
	assert.InDelta(t, goldfishRate*2*3600, again.Fish[0].Hunger, 1e-9)
	assert.Empty(t, again.Events)
}

func aquariumID(t *testing.T, f fixture, psid string) int64 {
	t.Helper()
	aq, err := f.store.GetAquarium(context.Background(), psid)
	require.NoError(t, err)
	return aq.ID
}

func TestSaveRequiresExistingAquarium(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.SaveFromClient(context.Background(), "never-loaded", PushRequest{TankLifeSec: floatPtr(1)})
	require.ErrorIs(t, err, ErrAquariumNotFound)

	_, err = f.store.GetAquarium(context.Background(), "never-loaded")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestSaveValidatesRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.LoadAndCatchUp(ctx, "player-0001")
	require.NoError(t, err)

	tests := []struct {
		name string
		req  PushRequest
	}{
		{"negative tank life", PushRequest{TankLifeSec: floatPtr(-1)}},
		{"food above range", PushRequest{FoodLevel: floatPtr(101)}},
		{"negative hunger", PushRequest{Fish: []FishUpdate{{ID: 1, Hunger: floatPtr(-5)}}}},
		{"missing fish id", PushRequest{Fish: []FishUpdate{{Fed: true}}}},
		{"duplicate fish id", PushRequest{Fish: []FishUpdate{fed(1), fed(1)}}},
	}
	for _, tc := range tests {
		_, err := f.svc.SaveFromClient(ctx, "player-0001", tc.req)
		require.ErrorIs(t, err, ErrInvalidRequest, tc.name)
	}
}

func TestSaveTrustsClientWithoutCatchUp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	initial, err := f.svc.LoadAndCatchUp(ctx, "player-0001")
	require.NoError(t, err)
	id := initial.Fish[0].ID

	f.clock.Advance(2 * time.Hour)
	snap, err := f.svc.SaveFromClient(ctx, "player-0001", PushRequest{
		TankLifeSec: floatPtr(7200),
		FoodLevel:   floatPtr(42),
		Fish:        []FishUpdate{{ID: id, Hunger: floatPtr(10), X: floatPtr(-50), Y: floatPtr(10_000)}},
	})
	require.NoError(t, err)
	require.Len(t, snap.Fish, 1)
	assert.Equal(t, 10.0, snap.Fish[0].Hunger)
	assert.Equal(t, 0.0, snap.Fish[0].X)
	assert.Equal(t, DefaultWorldHeight, snap.Fish[0].Y)
	assert.Equal(t, 7200.0, snap.TankLifeSec)
	assert.Equal(t, 42.0, snap.FoodLevel)

	reloaded, err := f.svc.LoadAndCatchUp(ctx, "player-0001")
	require.NoError(t, err)
	assert.Equal(t, 10.0, reloaded.Fish[0].Hunger)
	assert.Equal(t, 7200.0, reloaded.TankLifeSec)
}

func TestSpawnFiresOnFifthFeeding(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	initial, err := f.svc.LoadAndCatchUp(ctx, "player-0001")
	require.NoError(t, err)
	id := initial.Fish[0].ID

	var snap Snapshot
	for i := 1; i <= 4; i++ {
		snap, err = f.svc.SaveFromClient(ctx, "player-0001", PushRequest{Fish: []FishUpdate{fed(id)}})
		require.NoError(t, err)
		assert.Equal(t, 1, snap.NumFish)
		assert.Equal(t, i, snap.Fish[0].SpawnCount)
	}

	snap, err = f.svc.SaveFromClient(ctx, "player-0001", PushRequest{Fish: []FishUpdate{fed(id)}})
	require.NoError(t, err)
	assert.Equal(t, 2, snap.NumFish)
	require.Len(t, snap.Fish, 2)
	assert.Equal(t, 0, snap.Fish[0].SpawnCount)
	assert.Equal(t, 5, snap.TotalFeedings)
	assert.True(t, hasEvent(snap, EventFishSpawned))

	child := snap.Fish[1]
	_, known := f.svc.engine.Catalog().Lookup(child.Type)
	assert.True(t, known)
	assert.Equal(t, 0.0, child.Hunger)
	assert.GreaterOrEqual(t, child.X, 0.0)
	assert.LessOrEqual(t, child.X, DefaultWorldWidth)
	assert.GreaterOrEqual(t, child.Y, 0.0)
	assert.LessOrEqual(t, child.Y, DefaultWorldHeight)

	snap, err = f.svc.SaveFromClient(ctx, "player-0001", PushRequest{Fish: []FishUpdate{fed(id)}})
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Fish[0].SpawnCount)
	assert.Equal(t, 2, snap.NumFish)
}

func TestFeedingSubtractsAndClamps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	initial, err := f.svc.LoadAndCatchUp(ctx, "player-0001")
	require.NoError(t, err)
	id := initial.Fish[0].ID

	snap, err := f.svc.SaveFromClient(ctx, "player-0001", PushRequest{
		Fish: []FishUpdate{{ID: id, Hunger: floatPtr(30), Fed: true}},
	})
	require.NoError(t, err)
	assert.Equal(t, 10.0, snap.Fish[0].Hunger)

	snap, err = f.svc.SaveFromClient(ctx, "player-0001", PushRequest{Fish: []FishUpdate{fed(id)}})
	require.NoError(t, err)
	assert.Equal(t, 0.0, snap.Fish[0].Hunger)
	assert.Equal(t, 2, snap.TotalFeedings)
}

func TestUnlockGating(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	initial, err := f.svc.LoadAndCatchUp(ctx, "player-0001")
	require.NoError(t, err)
	id := initial.Fish[0].ID

	snap, err := f.svc.SaveFromClient(ctx, "player-0001", PushRequest{
		Unlockables: Unlockables{Castle: boolPtr(true), Music: boolPtr(true)},
	})
	require.NoError(t, err)
	assert.False(t, snap.CastleUnlocked)
	assert.True(t, snap.MusicEnabled)
	assert.True(t, hasEvent(snap, EventUnlockForcedOff))

	for i := 0; i < lifecycle.FeedingsToSpawn; i++ {
		snap, err = f.svc.SaveFromClient(ctx, "player-0001", PushRequest{Fish: []FishUpdate{fed(id)}})
		require.NoError(t, err)
	}
	require.Equal(t, 2, snap.NumFish)

	snap, err = f.svc.SaveFromClient(ctx, "player-0001", PushRequest{
		Unlockables: Unlockables{Castle: boolPtr(true), Submarine: boolPtr(true)},
	})
	require.NoError(t, err)
	assert.True(t, snap.CastleUnlocked)
	assert.False(t, snap.SubmarineUnlocked)
	assert.True(t, snap.MusicEnabled)
}

func TestClientReportedDeathForcesUnlockOff(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	initial, err := f.svc.LoadAndCatchUp(ctx, "player-0001")
	require.NoError(t, err)
	id := initial.Fish[0].ID
	for i := 0; i < lifecycle.FeedingsToSpawn; i++ {
		_, err = f.svc.SaveFromClient(ctx, "player-0001", PushRequest{Fish: []FishUpdate{fed(id)}})
		require.NoError(t, err)
	}
	snap, err := f.svc.SaveFromClient(ctx, "player-0001", PushRequest{
		Unlockables: Unlockables{Castle: boolPtr(true)},
	})
	require.NoError(t, err)
	require.True(t, snap.CastleUnlocked)

	snap, err = f.svc.SaveFromClient(ctx, "player-0001", PushRequest{
		Fish: []FishUpdate{{ID: id, Hunger: floatPtr(100)}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, snap.NumFish)
	assert.False(t, snap.CastleUnlocked)
	assert.True(t, hasEvent(snap, EventFishDied))
	assert.True(t, hasEvent(snap, EventUnlockForcedOff))
	for _, fish := range snap.Fish {
		assert.NotEqual(t, id, fish.ID)
	}
}

func TestLastFishReportedDeadResetsWithoutStarter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	initial, err := f.svc.LoadAndCatchUp(ctx, "player-0001")
	require.NoError(t, err)

	snap, err := f.svc.SaveFromClient(ctx, "player-0001", PushRequest{
		TankLifeSec: floatPtr(900),
		Fish:        []FishUpdate{{ID: initial.Fish[0].ID, Hunger: floatPtr(250)}},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, snap.NumFish)
	assert.Empty(t, snap.Fish)
	assert.Equal(t, 0.0, snap.TankLifeSec)
	assert.True(t, hasEvent(snap, EventTankReset))

	reloaded, err := f.svc.LoadAndCatchUp(ctx, "player-0001")
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.NumFish)
	assert.True(t, hasEvent(reloaded, EventStarterSpawned))
}

func TestUnknownFishInPushIsReported(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.LoadAndCatchUp(ctx, "player-0001")
	require.NoError(t, err)

	snap, err := f.svc.SaveFromClient(ctx, "player-0001", PushRequest{Fish: []FishUpdate{fed(99_999)}})
	require.NoError(t, err)
	assert.True(t, hasEvent(snap, EventUnknownFish))
	assert.Equal(t, 0, snap.TotalFeedings)
}

func TestSaveRecordsLeaderboard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, psid := range []string{"player-0001", "player-0002"} {
		_, err := f.svc.LoadAndCatchUp(ctx, psid)
		require.NoError(t, err)
	}
	_, err := f.svc.SaveFromClient(ctx, "player-0001", PushRequest{TankLifeSec: floatPtr(100)})
	require.NoError(t, err)
	_, err = f.svc.SaveFromClient(ctx, "player-0002", PushRequest{TankLifeSec: floatPtr(300)})
	require.NoError(t, err)

	rows, err := f.svc.Leaderboard(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "player-0002", rows[0].PSID)
	assert.Equal(t, 1, rows[0].Rank)
	assert.Equal(t, "player-0001", rows[1].PSID)
}

func TestConcurrentFirstLoadsSpawnOneStarter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.LoadAndCatchUp(ctx, "player-0001")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	aq, err := f.store.GetAquarium(ctx, "player-0001")
	require.NoError(t, err)
	rows, err := f.store.ListFish(ctx, aq.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, 1, aq.NumFish)
}

func TestCachedSnapshotServesRepeatLoads(t *testing.T) {
	lru, err := cache.NewLRU(16, time.Minute)
	require.NoError(t, err)
	f := newFixture(t, WithCache(cache.NewChain(nil, lru), time.Hour))
	ctx := context.Background()

	first, err := f.svc.LoadAndCatchUp(ctx, "player-0001")
	require.NoError(t, err)
	require.NotEmpty(t, first.Events)

	require.NoError(t, f.store.UpdateAquarium(ctx, "player-0001", store.AquariumPatch{MusicEnabled: boolPtr(true)}))
	cached, err := f.svc.LoadAndCatchUp(ctx, "player-0001")
	require.NoError(t, err)
	assert.False(t, cached.MusicEnabled)
	assert.Empty(t, cached.Events)
	require.Len(t, cached.Fish, 1)
	assert.Equal(t, first.Fish[0].ID, cached.Fish[0].ID)

	saved, err := f.svc.SaveFromClient(ctx, "player-0001", PushRequest{FoodLevel: floatPtr(12)})
	require.NoError(t, err)
	after, err := f.svc.LoadAndCatchUp(ctx, "player-0001")
	require.NoError(t, err)
	assert.Equal(t, 12.0, after.FoodLevel)
	assert.Equal(t, saved.MusicEnabled, after.MusicEnabled)
}

func TestCatalogExposesConstants(t *testing.T) {
	f := newFixture(t)
	view := f.svc.Catalog()
	assert.Len(t, view.Species, 8)
	assert.Equal(t, lifecycle.FeedAmount, view.Constants.FeedAmount)
	assert.Equal(t, CastleUnlockFish, view.Constants.CastleUnlockFish)
	assert.Equal(t, SubmarineUnlockFish, view.Constants.SubmarineUnlockFish)
	assert.InDelta(t, 0.5, view.RarityWeights[species.Common], 1e-9)
	assert.Equal(t, lifecycle.MaturityBoost, view.Constants.MaturityBoost)
	assert.Equal(t, lifecycle.AncientRareBoost, view.Constants.AncientRareBoost)
}

// loadSaveScript drives one aquarium through loads, pushes, a client
// reported death and a starvation, returning every snapshot seen.
func loadSaveScript(t *testing.T, f fixture) []Snapshot {
	t.Helper()
	ctx := context.Background()
	var out []Snapshot
	load := func() Snapshot {
		snap, err := f.svc.LoadAndCatchUp(ctx, "player-0001")
		require.NoError(t, err)
		out = append(out, snap)
		return snap
	}
	save := func(req PushRequest) {
		snap, err := f.svc.SaveFromClient(ctx, "player-0001", req)
		require.NoError(t, err)
		out = append(out, snap)
	}

	first := load()
	f.clock.Advance(20 * time.Minute)
	load()
	f.clock.Advance(5 * time.Minute)
	load()
	f.clock.Advance(time.Minute)
	save(PushRequest{
		TankLifeSec: floatPtr(1800),
		Fish:        []FishUpdate{{ID: first.Fish[0].ID, Hunger: floatPtr(30), Fed: true}},
	})
	load()
	f.clock.Advance(10 * time.Minute)
	load()
	f.clock.Advance(time.Minute)
	current := load()

	kill := make([]FishUpdate, 0, len(current.Fish))
	for _, fish := range current.Fish {
		kill = append(kill, FishUpdate{ID: fish.ID, Hunger: floatPtr(250)})
	}
	save(PushRequest{Fish: kill})
	load()
	f.clock.Advance(30 * time.Minute)
	load()
	f.clock.Advance(3 * time.Hour)
	load()
	return out
}

func assertSameSnapshot(t *testing.T, step int, want, got Snapshot) {
	t.Helper()
	assert.Equal(t, want.NumFish, got.NumFish, "step %d", step)
	assert.Equal(t, want.TotalFeedings, got.TotalFeedings, "step %d", step)
	assert.Equal(t, want.FoodLevel, got.FoodLevel, "step %d", step)
	assert.Equal(t, want.CastleUnlocked, got.CastleUnlocked, "step %d", step)
	assert.Equal(t, want.SubmarineUnlocked, got.SubmarineUnlocked, "step %d", step)
	assert.Equal(t, want.MusicEnabled, got.MusicEnabled, "step %d", step)
	assert.True(t, want.ServerTime.Equal(got.ServerTime), "step %d", step)
	assert.InDelta(t, want.TankLifeSec, got.TankLifeSec, 1e-6, "step %d", step)

	require.Len(t, got.Fish, len(want.Fish), "step %d", step)
	for i := range want.Fish {
		w, g := want.Fish[i], got.Fish[i]
		assert.Equal(t, w.ID, g.ID, "step %d", step)
		assert.Equal(t, w.Type, g.Type, "step %d", step)
		assert.Equal(t, w.X, g.X, "step %d", step)
		assert.Equal(t, w.Y, g.Y, "step %d", step)
		assert.Equal(t, w.SpawnCount, g.SpawnCount, "step %d", step)
		assert.True(t, w.LastFed.Equal(g.LastFed), "step %d", step)
		assert.InDelta(t, w.Hunger, g.Hunger, 1e-9, "step %d", step)
	}

	require.Len(t, got.Events, len(want.Events), "step %d", step)
	for i := range want.Events {
		assert.Equal(t, want.Events[i].Kind, got.Events[i].Kind, "step %d", step)
		assert.Equal(t, want.Events[i].FishID, got.Events[i].FishID, "step %d", step)
	}
}

func TestCacheDoesNotChangeResults(t *testing.T) {
	lru, err := cache.NewLRU(16, 24*time.Hour)
	require.NoError(t, err)
	plain := newFixture(t)
	cached := newFixture(t, WithCache(cache.NewChain(nil, lru), 24*time.Hour))

	hitsBefore := testutil.ToFloat64(snapshotCacheHits)
	want := loadSaveScript(t, plain)
	got := loadSaveScript(t, cached)
	assert.Greater(t, testutil.ToFloat64(snapshotCacheHits), hitsBefore)

	require.Len(t, got, len(want))
	for i := range want {
		assertSameSnapshot(t, i, want[i], got[i])
	}

	// The reload right after the client reported the last fish dead.
	afterDeath := got[8]
	assert.Equal(t, 1, afterDeath.NumFish)
	assert.True(t, hasEvent(afterDeath, EventStarterSpawned))
}

func TestLoadResultOlderThanSaveIsNotCached(t *testing.T) {
	lru, err := cache.NewLRU(16, time.Hour)
	require.NoError(t, err)
	f := newFixture(t, WithCache(cache.NewChain(nil, lru), time.Hour))
	ctx := context.Background()

	gen := f.svc.cacheGeneration("player-0001")
	stale, err := f.svc.LoadAndCatchUp(ctx, "player-0001")
	require.NoError(t, err)
	_, err = f.svc.SaveFromClient(ctx, "player-0001", PushRequest{FoodLevel: floatPtr(7)})
	require.NoError(t, err)
	assert.Zero(t, lru.Len())

	// A load that read its generation before the save lands its cache
	// write afterwards.
	f.svc.storeSnapshot(ctx, stale, gen)
	assert.Zero(t, lru.Len())

	after, err := f.svc.LoadAndCatchUp(ctx, "player-0001")
	require.NoError(t, err)
	assert.Equal(t, 7.0, after.FoodLevel)
}

func TestCachedSnapshotOlderThanMaxAgeIsIgnored(t *testing.T) {
	lru, err := cache.NewLRU(16, time.Hour)
	require.NoError(t, err)
	f := newFixture(t, WithCache(cache.NewChain(nil, lru), time.Minute))
	ctx := context.Background()

	_, err = f.svc.LoadAndCatchUp(ctx, "player-0001")
	require.NoError(t, err)
	require.NoError(t, f.store.UpdateAquarium(ctx, "player-0001", store.AquariumPatch{MusicEnabled: boolPtr(true)}))

	f.clock.Advance(2 * time.Minute)
	snap, err := f.svc.LoadAndCatchUp(ctx, "player-0001")
	require.NoError(t, err)
	assert.True(t, snap.MusicEnabled)
}

// gatedStore holds the first transaction until release is closed.
type gatedStore struct {
	store.Store
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedStore) InTx(ctx context.Context, fn func(q store.Queries) error) error {
	g.once.Do(func() {
		close(g.entered)
		<-g.release
	})
	return g.Store.InTx(ctx, fn)
}

func TestCoalescedLoadSurvivesFirstCallerCancel(t *testing.T) {
	base := newFixture(t)
	gate := &gatedStore{Store: base.store, entered: make(chan struct{}), release: make(chan struct{})}
	catalog, err := species.Default()
	require.NoError(t, err)
	svc := NewService(gate, lifecycle.New(catalog, lifecycle.DefaultConfig()), nil, WithClock(base.clock.Now))

	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.LoadAndCatchUp(firstCtx, "player-0001")
		firstErr <- err
	}()
	<-gate.entered

	type result struct {
		snap Snapshot
		err  error
	}
	second := make(chan result, 1)
	go func() {
		snap, err := svc.LoadAndCatchUp(context.Background(), "player-0001")
		second <- result{snap, err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancel()
	require.ErrorIs(t, <-firstErr, context.Canceled)
	close(gate.release)

	res := <-second
	require.NoError(t, res.err)
	assert.Equal(t, 1, res.snap.NumFish)
}
