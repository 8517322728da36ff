package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// leaderboardLockKey names the advisory lock that serializes trims.
const leaderboardLockKey = int64(0x61717561726d)

type pgQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Postgres struct {
	pgQueries
	pool *pgxpool.Pool
	log  *slog.Logger
}

type pgQueries struct {
	db    pgQuerier
	owner *Postgres
	inTx  bool
}

func NewPostgres(pool *pgxpool.Pool, logger *slog.Logger) *Postgres {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Postgres{pool: pool, log: logger}
	s.pgQueries = pgQueries{db: pool, owner: s}
	return s
}

func (s *Postgres) Backend() string {
	return "postgres"
}

func (s *Postgres) Close() error {
	s.pool.Close()
	return nil
}

func (s *Postgres) Migrate(ctx context.Context) error {
	for _, stmt := range postgresSchema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate postgres: %w", err)
		}
	}
	return nil
}

func (s *Postgres) InTx(ctx context.Context, fn func(q Queries) error) error {
	const maxAttempts = 6
	retryDelay := 40 * time.Millisecond
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err := s.runTx(ctx, fn)
		if err == nil {
			return nil
		}
		if !isPgRetryable(err) {
			return err
		}
		if attempt == maxAttempts-1 {
			return fmt.Errorf("%w: %v", ErrConflict, err)
		}
		s.log.Warn("postgres tx retry", "attempt", attempt+1, "err", err)
		if err := sleepWithContext(ctx, retryDelay); err != nil {
			return err
		}
		if retryDelay < 800*time.Millisecond {
			retryDelay *= 2
		}
	}
	return ErrConflict
}

func (s *Postgres) runTx(ctx context.Context, fn func(q Queries) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(pgQueries{db: tx, owner: s, inTx: true}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Postgres) DeleteAquarium(ctx context.Context, psid string) error {
	cmd, err := s.pool.Exec(ctx, `DELETE FROM aquariums WHERE psid = $1`, psid)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const pgAquariumColumns = `id, psid, tank_life_sec, num_fish, total_feedings, food_level,
		       castle_unlocked, submarine_unlocked, music_enabled, created_at, updated_at`

func scanPgAquarium(row pgx.Row) (Aquarium, error) {
	var a Aquarium
	err := row.Scan(&a.ID, &a.PSID, &a.TankLifeSec, &a.NumFish, &a.TotalFeedings, &a.FoodLevel,
		&a.CastleUnlocked, &a.SubmarineUnlocked, &a.MusicEnabled, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return a, ErrNotFound
	}
	return a, err
}

func (q pgQueries) GetAquarium(ctx context.Context, psid string) (Aquarium, error) {
	query := `SELECT ` + pgAquariumColumns + ` FROM aquariums WHERE psid = $1`
	if q.inTx {
		query += ` FOR UPDATE`
	}
	return scanPgAquarium(q.db.QueryRow(ctx, query, psid))
}

func (q pgQueries) CreateAquarium(ctx context.Context, psid string) (Aquarium, error) {
	if _, err := q.db.Exec(ctx, `
		INSERT INTO aquariums (psid)
		VALUES ($1)
		ON CONFLICT (psid) DO NOTHING
	`, psid); err != nil {
		return Aquarium{}, err
	}
	return q.GetAquarium(ctx, psid)
}

func (q pgQueries) UpdateAquarium(ctx context.Context, psid string, patch AquariumPatch) error {
	sets := patch.stamped()
	if len(sets) == 0 {
		return nil
	}
	query, args := postgresDialect.buildUpdate("aquariums", sets, "psid", psid)
	cmd, err := q.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (q pgQueries) ListFish(ctx context.Context, aquariumID int64) ([]Fish, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, aquarium_id, type, hunger, x, y, last_fed, hunger_updated_at, spawn_count, created_at
		FROM fish
		WHERE aquarium_id = $1
		ORDER BY id
	`, aquariumID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Fish
	for rows.Next() {
		var f Fish
		if err := rows.Scan(&f.ID, &f.AquariumID, &f.Species, &f.Hunger, &f.X, &f.Y,
			&f.LastFed, &f.HungerUpdatedAt, &f.SpawnCount, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (q pgQueries) AddFish(ctx context.Context, aquariumID int64, in NewFish) (Fish, error) {
	f := Fish{
		AquariumID:      aquariumID,
		Species:         in.Species,
		Hunger:          in.Hunger,
		X:               in.X,
		Y:               in.Y,
		LastFed:         in.LastFed,
		HungerUpdatedAt: in.LastFed,
	}
	err := q.db.QueryRow(ctx, `
		INSERT INTO fish (aquarium_id, type, hunger, x, y, last_fed, hunger_updated_at, spawn_count)
		VALUES ($1, $2, $3, $4, $5, $6, $6, 0)
		RETURNING id, created_at
	`, aquariumID, in.Species, in.Hunger, in.X, in.Y, in.LastFed).Scan(&f.ID, &f.CreatedAt)
	if err != nil {
		return Fish{}, err
	}
	return f, nil
}

func (q pgQueries) UpdateFish(ctx context.Context, fishID int64, patch FishPatch) error {
	sets := patch.assignments()
	if len(sets) == 0 {
		return nil
	}
	query, args := postgresDialect.buildUpdate("fish", sets, "id", fishID)
	cmd, err := q.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (q pgQueries) RemoveFish(ctx context.Context, fishID int64) error {
	cmd, err := q.db.Exec(ctx, `DELETE FROM fish WHERE id = $1`, fishID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (q pgQueries) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 || limit > LeaderboardSize {
		limit = LeaderboardSize
	}
	rows, err := q.db.Query(ctx, `
		SELECT psid, tank_life_sec, num_fish, total_feedings, created_at, updated_at
		FROM leaderboard
		ORDER BY tank_life_sec DESC, created_at ASC, psid ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]LeaderboardEntry, 0, limit)
	rank := 1
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.PSID, &e.TankLifeSec, &e.NumFish, &e.TotalFeedings, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		e.Rank = rank
		rank++
		out = append(out, e)
	}
	return out, rows.Err()
}

func (q pgQueries) RecordAndTrim(ctx context.Context, entry LeaderboardEntry) error {
	if !q.inTx {
		return q.owner.InTx(ctx, func(tq Queries) error {
			return tq.RecordAndTrim(ctx, entry)
		})
	}
	if _, err := q.db.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, leaderboardLockKey); err != nil {
		return err
	}
	if _, err := q.db.Exec(ctx, `
		INSERT INTO leaderboard (psid, tank_life_sec, num_fish, total_feedings, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
		ON CONFLICT (psid) DO UPDATE
		SET tank_life_sec = GREATEST(leaderboard.tank_life_sec, EXCLUDED.tank_life_sec),
		    num_fish = GREATEST(leaderboard.num_fish, EXCLUDED.num_fish),
		    total_feedings = GREATEST(leaderboard.total_feedings, EXCLUDED.total_feedings),
		    updated_at = now()
	`, entry.PSID, entry.TankLifeSec, entry.NumFish, entry.TotalFeedings); err != nil {
		return err
	}
	_, err := q.db.Exec(ctx, `
		DELETE FROM leaderboard
		WHERE psid NOT IN (
			SELECT psid
			FROM leaderboard
			ORDER BY tank_life_sec DESC, created_at ASC, psid ASC
			LIMIT $1
		)
	`, LeaderboardSize)
	return err
}

func isPgRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
