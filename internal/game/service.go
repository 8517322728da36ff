package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	mathrand "math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"aquarium/internal/cache"
	"aquarium/internal/lifecycle"
	"aquarium/internal/species"
	"aquarium/internal/store"
)

// cacheStripes bounds the per-PSID bookkeeping that orders cache writes
// against saves.
const cacheStripes = 64

// loadTimeout caps a coalesced catch-up once it no longer belongs to a
// single caller.
const loadTimeout = 30 * time.Second

// Service reconciles client sessions against stored aquariums. Loads are
// server-time authoritative (catch-up); saves are client authoritative for
// what happened during the live session.
type Service struct {
	store  store.Store
	engine *lifecycle.Engine
	cache  *cache.Chain
	world  World

	// cacheMaxAge rejects cached snapshots older than this by server time,
	// whatever the providers' own expiry says.
	cacheMaxAge time.Duration
	cacheLocks  [cacheStripes]sync.Mutex
	cacheGen    [cacheStripes]uint64

	log    *slog.Logger
	now    func() time.Time
	loads  singleflight.Group

	mu   sync.Mutex
	rand *mathrand.Rand
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithRand(r *mathrand.Rand) Option {
	return func(s *Service) {
		if r != nil {
			s.rand = r
		}
	}
}

// WithCache serves repeat loads from c. Entries older than maxAge are
// ignored; zero means only the providers' expiry applies.
func WithCache(c *cache.Chain, maxAge time.Duration) Option {
	return func(s *Service) {
		s.cache = c
		s.cacheMaxAge = maxAge
	}
}

func WithWorld(w World) Option {
	return func(s *Service) {
		if w.Width > 0 && w.Height > 0 {
			s.world = w
		}
	}
}

func NewService(st store.Store, engine *lifecycle.Engine, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		store:  st,
		engine: engine,
		world:  DefaultWorld(),
		log:    logger,
		now:    time.Now,
		rand:   mathrand.New(mathrand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoadAndCatchUp returns the current state for psid, creating the aquarium
// on first sight. Hunger is advanced for the time since it was last
// computed, the dead are removed and an empty tank gets a starter fish.
func (s *Service) LoadAndCatchUp(ctx context.Context, psid string) (Snapshot, error) {
	psid = strings.TrimSpace(psid)
	if err := ValidatePSID(psid); err != nil {
		return Snapshot{}, err
	}
	if snap, ok := s.cachedSnapshot(ctx, psid); ok {
		return snap, nil
	}

	// The shared catch-up outlives any one caller; each caller still
	// gives up on its own context.
	ch := s.loads.DoChan(psid, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()
		return s.catchUp(loadCtx, psid)
	})
	select {
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	case res := <-ch:
		if res.Shared {
			coalescedLoads.Inc()
		}
		if res.Err != nil {
			return Snapshot{}, res.Err
		}
		return res.Val.(Snapshot), nil
	}
}

// SaveFromClient applies a client push without any time catch-up. The
// aquarium must already exist.
func (s *Service) SaveFromClient(ctx context.Context, psid string, req PushRequest) (Snapshot, error) {
	psid = strings.TrimSpace(psid)
	if err := ValidatePSID(psid); err != nil {
		return Snapshot{}, err
	}
	if err := req.Validate(); err != nil {
		return Snapshot{}, err
	}

	start := time.Now()
	now := s.clock()
	var snap Snapshot
	var rc *reconcile
	err := s.store.InTx(ctx, func(q store.Queries) error {
		rc = newReconcile(now)
		var err error
		snap, err = s.save(ctx, q, rc, psid, req)
		return err
	})
	snap, err = s.finish("save", psid, start, snap, rc, err)
	if err != nil {
		return Snapshot{}, err
	}
	s.invalidateSnapshot(ctx, psid)
	return snap, nil
}

func (s *Service) Catalog() CatalogView {
	cfg := s.engine.Config()
	return CatalogView{
		Species:       s.engine.Catalog().All(),
		RarityWeights: lifecycle.RarityWeights(0),
		Constants: Constants{
			FeedAmount:          lifecycle.FeedAmount,
			FeedingsToSpawn:     lifecycle.FeedingsToSpawn,
			CastleUnlockFish:    CastleUnlockFish,
			SubmarineUnlockFish: SubmarineUnlockFish,
			DayStartHour:        cfg.DayStartHour,
			DayEndHour:          cfg.DayEndHour,
			InactiveMultiplier:  cfg.InactiveMultiplier,
			MatureTankHours:     lifecycle.MatureTankHours,
			AncientTankHours:    lifecycle.AncientTankHours,
			MaturityBoost:       lifecycle.MaturityBoost,
			AncientRareBoost:    lifecycle.AncientRareBoost,
			World:               s.world,
		},
	}
}

func (s *Service) Leaderboard(ctx context.Context, limit int) ([]LeaderboardRow, error) {
	rows, err := s.store.Leaderboard(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	return rows, nil
}

func (s *Service) catchUp(ctx context.Context, psid string) (Snapshot, error) {
	start := time.Now()
	gen := s.cacheGeneration(psid)
	now := s.clock()
	var snap Snapshot
	var rc *reconcile
	err := s.store.InTx(ctx, func(q store.Queries) error {
		rc = newReconcile(now)
		var err error
		snap, err = s.load(ctx, q, rc, psid)
		return err
	})
	snap, err = s.finish("load", psid, start, snap, rc, err)
	if err != nil {
		return Snapshot{}, err
	}
	s.storeSnapshot(ctx, snap, gen)
	return snap, nil
}

// clock is the service time truncated to what both backends store.
func (s *Service) clock() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// finish runs once per committed (or failed) call, after any tx retries.
func (s *Service) finish(op, psid string, start time.Time, snap Snapshot, rc *reconcile, err error) (Snapshot, error) {
	reconcileDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		reconcileFailures.WithLabelValues(op).Inc()
		if errors.Is(err, store.ErrConflict) {
			err = fmt.Errorf("%w: %v", ErrTxConflict, err)
		}
		s.log.Error("reconcile failed", "op", op, "psid", psid, "err", err)
		return Snapshot{}, err
	}
	for _, ev := range rc.events {
		reconcileEvents.WithLabelValues(string(ev.Kind)).Inc()
		attrs := []any{"op", op, "psid", psid, "kind", ev.Kind, "detail", ev.Detail}
		if ev.FishID != nil {
			attrs = append(attrs, "fish_id", *ev.FishID)
		}
		switch ev.Kind {
		case EventUnknownSpecies, EventInvalidTimestamp, EventUnknownFish:
			s.log.Warn("reconcile anomaly", attrs...)
		default:
			s.log.Debug("reconcile event", attrs...)
		}
	}
	snap.Events = rc.events
	if snap.Events == nil {
		snap.Events = []Event{}
	}
	return snap, nil
}

func (s *Service) load(ctx context.Context, q store.Queries, rc *reconcile, psid string) (Snapshot, error) {
	aq, err := q.GetAquarium(ctx, psid)
	if errors.Is(err, store.ErrNotFound) {
		aq, err = q.CreateAquarium(ctx, psid)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("load aquarium: %w", err)
	}
	rows, err := q.ListFish(ctx, aq.ID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list fish: %w", err)
	}

	now := rc.now
	live := make([]store.Fish, 0, len(rows))
	for _, f := range rows {
		sp, ok := s.engine.Catalog().Lookup(f.Species)
		if !ok {
			if err := q.RemoveFish(ctx, f.ID); err != nil {
				return Snapshot{}, fmt.Errorf("remove fish %d: %w", f.ID, err)
			}
			rc.record(EventUnknownSpecies, f.ID, fmt.Sprintf("species %q is not in the catalog", f.Species))
			continue
		}

		var patch store.FishPatch
		var elapsed float64
		switch {
		case f.LastFed.IsZero():
			rc.record(EventInvalidTimestamp, f.ID, "last_fed unreadable, treated as fed now")
			f.LastFed = now
			patch.LastFed = &now
			patch.HungerUpdatedAt = &now
		case f.HungerUpdatedAt.IsZero():
			rc.record(EventInvalidTimestamp, f.ID, "hunger_updated_at unreadable, no time billed")
			patch.HungerUpdatedAt = &now
		default:
			elapsed, _ = lifecycle.ElapsedSeconds(latest(f.LastFed, f.HungerUpdatedAt), now)
		}

		out := s.engine.AdvanceHunger(engineFish(f), sp, elapsed, s.engine.IsActive(sp, now))
		if !out.Alive {
			if err := q.RemoveFish(ctx, f.ID); err != nil {
				return Snapshot{}, fmt.Errorf("remove fish %d: %w", f.ID, err)
			}
			rc.record(EventFishDied, f.ID, fmt.Sprintf("%s starved during catch-up", sp.Name))
			continue
		}
		if elapsed > 0 {
			patch.Hunger = &out.Hunger
			patch.HungerUpdatedAt = &now
		}
		if err := q.UpdateFish(ctx, f.ID, patch); err != nil {
			return Snapshot{}, fmt.Errorf("update fish %d: %w", f.ID, err)
		}
		f.Hunger = out.Hunger
		live = append(live, f)
	}

	var patch store.AquariumPatch
	if len(live) > 0 {
		if absent, ok := lifecycle.ElapsedSeconds(aq.UpdatedAt, now); ok && absent > 0 {
			aq.TankLifeSec += absent
			patch.TankLifeSec = &aq.TankLifeSec
		}
	}
	if len(rows) > 0 && len(live) == 0 {
		s.resetTank(&aq, &patch, rc)
	}
	if len(live) == 0 {
		starter, err := s.spawn(ctx, q, aq.ID, s.engine.Catalog().Starter(), now)
		if err != nil {
			return Snapshot{}, err
		}
		rc.record(EventStarterSpawned, starter.ID, starter.Species)
		live = append(live, starter)
	}

	s.applyCounts(&aq, &patch, len(live))
	s.enforceUnlocks(&aq, &patch, Unlockables{}, len(live), rc)
	aq.UpdatedAt = now
	patch.UpdatedAt = &aq.UpdatedAt
	if err := q.UpdateAquarium(ctx, psid, patch); err != nil {
		return Snapshot{}, fmt.Errorf("update aquarium: %w", err)
	}
	return buildSnapshot(aq, live, now), nil
}

func (s *Service) save(ctx context.Context, q store.Queries, rc *reconcile, psid string, req PushRequest) (Snapshot, error) {
	aq, err := q.GetAquarium(ctx, psid)
	if errors.Is(err, store.ErrNotFound) {
		return Snapshot{}, ErrAquariumNotFound
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("load aquarium: %w", err)
	}
	rows, err := q.ListFish(ctx, aq.ID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list fish: %w", err)
	}

	now := rc.now
	var patch store.AquariumPatch
	if req.TankLifeSec != nil {
		aq.TankLifeSec = *req.TankLifeSec
		patch.TankLifeSec = &aq.TankLifeSec
	}
	if req.FoodLevel != nil {
		aq.FoodLevel = clamp(*req.FoodLevel, 0, MaxFoodLevel)
		patch.FoodLevel = &aq.FoodLevel
	}

	index := make(map[int64]int, len(rows))
	for i, f := range rows {
		index[f.ID] = i
	}
	removed := make(map[int64]bool)
	var spawned []store.Fish
	feedings := 0

	for _, upd := range req.Fish {
		i, ok := index[upd.ID]
		if !ok {
			rc.record(EventUnknownFish, upd.ID, "fish is not in this aquarium")
			continue
		}
		f := rows[i]
		sp, ok := s.engine.Catalog().Lookup(f.Species)
		if !ok {
			if err := q.RemoveFish(ctx, f.ID); err != nil {
				return Snapshot{}, fmt.Errorf("remove fish %d: %w", f.ID, err)
			}
			removed[f.ID] = true
			rc.record(EventUnknownSpecies, f.ID, fmt.Sprintf("species %q is not in the catalog", f.Species))
			continue
		}

		var fp store.FishPatch
		if upd.X != nil || upd.Y != nil {
			x, y := f.X, f.Y
			if upd.X != nil {
				x = *upd.X
			}
			if upd.Y != nil {
				y = *upd.Y
			}
			f.X, f.Y = s.world.Clamp(x, y)
			fp.X, fp.Y = &f.X, &f.Y
		}
		if upd.Hunger != nil {
			h := clamp(*upd.Hunger, 0, float64(sp.HungerThreshold))
			if h >= float64(sp.HungerThreshold) {
				if err := q.RemoveFish(ctx, f.ID); err != nil {
					return Snapshot{}, fmt.Errorf("remove fish %d: %w", f.ID, err)
				}
				removed[f.ID] = true
				rc.record(EventFishDied, f.ID, fmt.Sprintf("%s reported starved by client", sp.Name))
				continue
			}
			f.Hunger = h
			f.HungerUpdatedAt = now
			fp.Hunger = &f.Hunger
			fp.HungerUpdatedAt = &f.HungerUpdatedAt
		}
		if upd.Fed {
			fed, spawn := lifecycle.ApplyFeeding(engineFish(f), now)
			f.Hunger = fed.Hunger
			f.LastFed = fed.LastFed
			f.HungerUpdatedAt = now
			f.SpawnCount = fed.SpawnProgress
			fp.Hunger = &f.Hunger
			fp.LastFed = &f.LastFed
			fp.HungerUpdatedAt = &f.HungerUpdatedAt
			fp.SpawnCount = &f.SpawnCount
			feedings++
			if spawn {
				kind := s.engine.SelectSpawnSpecies(lifecycle.TankLifeHours(aq.TankLifeSec), serviceRand{s})
				child, err := s.spawn(ctx, q, aq.ID, kind, now)
				if err != nil {
					return Snapshot{}, err
				}
				rc.record(EventFishSpawned, child.ID, fmt.Sprintf("%s spawned from fish %d", child.Species, f.ID))
				spawned = append(spawned, child)
			}
		}
		if err := q.UpdateFish(ctx, f.ID, fp); err != nil {
			return Snapshot{}, fmt.Errorf("update fish %d: %w", f.ID, err)
		}
		rows[i] = f
	}

	live := make([]store.Fish, 0, len(rows)+len(spawned))
	for _, f := range rows {
		if !removed[f.ID] {
			live = append(live, f)
		}
	}
	live = append(live, spawned...)

	if feedings > 0 {
		aq.TotalFeedings += feedings
		patch.TotalFeedings = &aq.TotalFeedings
	}
	reset := len(rows) > 0 && len(live) == 0
	if reset {
		s.resetTank(&aq, &patch, rc)
	}
	s.applyCounts(&aq, &patch, len(live))
	s.enforceUnlocks(&aq, &patch, req.Unlockables, len(live), rc)
	// updated_at is the baseline absence is billed from on the next load.
	// It only moves when the client reports tank life or the tank resets.
	if req.TankLifeSec != nil || reset {
		aq.UpdatedAt = now
	}
	patch.UpdatedAt = &aq.UpdatedAt
	if err := q.UpdateAquarium(ctx, psid, patch); err != nil {
		return Snapshot{}, fmt.Errorf("update aquarium: %w", err)
	}

	if err := q.RecordAndTrim(ctx, store.LeaderboardEntry{
		PSID:          psid,
		TankLifeSec:   aq.TankLifeSec,
		NumFish:       aq.NumFish,
		TotalFeedings: aq.TotalFeedings,
	}); err != nil {
		return Snapshot{}, fmt.Errorf("record leaderboard: %w", err)
	}
	return buildSnapshot(aq, live, now), nil
}

func (s *Service) spawn(ctx context.Context, q store.Queries, aquariumID int64, sp species.Species, now time.Time) (store.Fish, error) {
	x := s.nextFloat() * s.world.Width
	y := s.nextFloat() * s.world.Height
	f, err := q.AddFish(ctx, aquariumID, store.NewFish{
		Species: sp.Name,
		X:       x,
		Y:       y,
		LastFed: now,
	})
	if err != nil {
		return store.Fish{}, fmt.Errorf("spawn %s: %w", sp.Name, err)
	}
	return f, nil
}

func (s *Service) resetTank(aq *store.Aquarium, patch *store.AquariumPatch, rc *reconcile) {
	aq.TankLifeSec = 0
	aq.TotalFeedings = 0
	patch.TankLifeSec = &aq.TankLifeSec
	patch.TotalFeedings = &aq.TotalFeedings
	rc.record(EventTankReset, 0, "last fish died")
}

func (s *Service) applyCounts(aq *store.Aquarium, patch *store.AquariumPatch, live int) {
	if aq.NumFish != live {
		aq.NumFish = live
		patch.NumFish = &aq.NumFish
	}
}

func (s *Service) enforceUnlocks(aq *store.Aquarium, patch *store.AquariumPatch, req Unlockables, live int, rc *reconcile) {
	castle, forced := gateUnlock(aq.CastleUnlocked, req.Castle, live, CastleUnlockFish)
	if forced {
		rc.record(EventUnlockForcedOff, 0, fmt.Sprintf("castle needs %d fish, have %d", CastleUnlockFish, live))
	}
	if castle != aq.CastleUnlocked {
		aq.CastleUnlocked = castle
		patch.CastleUnlocked = &aq.CastleUnlocked
	}

	sub, forced := gateUnlock(aq.SubmarineUnlocked, req.Submarine, live, SubmarineUnlockFish)
	if forced {
		rc.record(EventUnlockForcedOff, 0, fmt.Sprintf("submarine needs %d fish, have %d", SubmarineUnlockFish, live))
	}
	if sub != aq.SubmarineUnlocked {
		aq.SubmarineUnlocked = sub
		patch.SubmarineUnlocked = &aq.SubmarineUnlocked
	}

	if req.Music != nil && *req.Music != aq.MusicEnabled {
		aq.MusicEnabled = *req.Music
		patch.MusicEnabled = &aq.MusicEnabled
	}
}

// cachedSnapshot answers a load from the cache when the cached catch-up
// result can be carried forward to now exactly as a fresh catch-up would.
// Anything that would need a write (a death, an empty tank) is a miss.
func (s *Service) cachedSnapshot(ctx context.Context, psid string) (Snapshot, bool) {
	if !s.cache.Enabled() {
		return Snapshot{}, false
	}
	res := s.cache.Get(ctx, psid)
	if !res.Hit {
		return Snapshot{}, false
	}
	var snap Snapshot
	if err := json.Unmarshal(res.Value, &snap); err != nil {
		s.log.Warn("discarding unreadable cached snapshot", "psid", psid, "err", err)
		s.cache.Delete(ctx, psid)
		return Snapshot{}, false
	}
	now := s.clock()
	age := now.Sub(snap.ServerTime)
	if snap.PSID != psid || snap.NumFish == 0 || len(snap.Fish) == 0 || age < 0 {
		return Snapshot{}, false
	}
	if s.cacheMaxAge > 0 && age > s.cacheMaxAge {
		return Snapshot{}, false
	}
	out, ok := s.carryForward(snap, now)
	if !ok {
		return Snapshot{}, false
	}
	snapshotCacheHits.Inc()
	return out, true
}

// carryForward applies the catch-up arithmetic of load to a snapshot taken
// at snap.ServerTime, whose fish all had their hunger settled at that time.
func (s *Service) carryForward(snap Snapshot, now time.Time) (Snapshot, bool) {
	out := snap
	out.Fish = make([]FishView, 0, len(snap.Fish))
	for _, f := range snap.Fish {
		sp, ok := s.engine.Catalog().Lookup(f.Type)
		if !ok || f.LastFed.IsZero() {
			return Snapshot{}, false
		}
		elapsed, _ := lifecycle.ElapsedSeconds(latest(f.LastFed, snap.ServerTime), now)
		res := s.engine.AdvanceHunger(lifecycle.Fish{
			Species:       f.Type,
			Hunger:        f.Hunger,
			LastFed:       f.LastFed,
			SpawnProgress: f.SpawnCount,
		}, sp, elapsed, s.engine.IsActive(sp, now))
		if !res.Alive {
			return Snapshot{}, false
		}
		f.Hunger = res.Hunger
		out.Fish = append(out.Fish, f)
	}
	if absent, ok := lifecycle.ElapsedSeconds(snap.ServerTime, now); ok && absent > 0 {
		out.TankLifeSec += absent
	}
	out.Events = []Event{}
	out.ServerTime = now
	return out, true
}

func cacheStripe(psid string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(psid))
	return int(h.Sum32() % cacheStripes)
}

// cacheGeneration is read before a load starts. A save committed after
// that point bumps it, and the load's result is then not cached.
func (s *Service) cacheGeneration(psid string) uint64 {
	i := cacheStripe(psid)
	s.cacheLocks[i].Lock()
	defer s.cacheLocks[i].Unlock()
	return s.cacheGen[i]
}

// storeSnapshot caches a load result without its events, unless a save
// for the same stripe committed since gen was read.
func (s *Service) storeSnapshot(ctx context.Context, snap Snapshot, gen uint64) {
	if !s.cache.Enabled() || snap.NumFish == 0 {
		return
	}
	snap.Events = nil
	raw, err := json.Marshal(snap)
	if err != nil {
		s.log.Warn("encode snapshot for cache", "psid", snap.PSID, "err", err)
		return
	}
	i := cacheStripe(snap.PSID)
	s.cacheLocks[i].Lock()
	defer s.cacheLocks[i].Unlock()
	if s.cacheGen[i] != gen {
		return
	}
	s.cache.Set(ctx, snap.PSID, raw)
}

// invalidateSnapshot runs after a save commits. Saves are never cached: the
// next load must see the pushed state and redo any spawn or reset.
func (s *Service) invalidateSnapshot(ctx context.Context, psid string) {
	if !s.cache.Enabled() {
		return
	}
	i := cacheStripe(psid)
	s.cacheLocks[i].Lock()
	defer s.cacheLocks[i].Unlock()
	s.cacheGen[i]++
	s.cache.Delete(ctx, psid)
}

func (s *Service) nextFloat() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rand.Float64()
}

func (s *Service) nextIntn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rand.Intn(n)
}

// serviceRand hands the engine the service's locked random source.
type serviceRand struct{ s *Service }

func (r serviceRand) Float64() float64 { return r.s.nextFloat() }
func (r serviceRand) Intn(n int) int   { return r.s.nextIntn(n) }

// reconcile collects the events of one transaction attempt.
type reconcile struct {
	now    time.Time
	events []Event
}

func newReconcile(now time.Time) *reconcile {
	return &reconcile{now: now}
}

func (r *reconcile) record(kind EventKind, fishID int64, detail string) {
	ev := Event{ID: uuid.NewString(), Kind: kind, Detail: detail}
	if fishID != 0 {
		id := fishID
		ev.FishID = &id
	}
	r.events = append(r.events, ev)
}

func buildSnapshot(aq store.Aquarium, fish []store.Fish, now time.Time) Snapshot {
	views := make([]FishView, 0, len(fish))
	for _, f := range fish {
		views = append(views, fishView(f))
	}
	return Snapshot{
		PSID:              aq.PSID,
		TankLifeSec:       aq.TankLifeSec,
		NumFish:           aq.NumFish,
		TotalFeedings:     aq.TotalFeedings,
		FoodLevel:         aq.FoodLevel,
		CastleUnlocked:    aq.CastleUnlocked,
		SubmarineUnlocked: aq.SubmarineUnlocked,
		MusicEnabled:      aq.MusicEnabled,
		Fish:              views,
		ServerTime:        now,
	}
}

func engineFish(f store.Fish) lifecycle.Fish {
	return lifecycle.Fish{
		Species:       f.Species,
		Hunger:        f.Hunger,
		LastFed:       f.LastFed,
		SpawnProgress: f.SpawnCount,
	}
}

func latest(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}
