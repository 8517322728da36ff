package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type sqlQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type SQLite struct {
	sqliteQueries
	db  *sql.DB
	log *slog.Logger
}

type sqliteQueries struct {
	db    sqlQuerier
	owner *SQLite
	inTx  bool
}

// NewSQLite wraps a handle opened with db.OpenSQLite.
func NewSQLite(conn *sql.DB, logger *slog.Logger) *SQLite {
	if logger == nil {
		logger = slog.Default()
	}
	s := &SQLite{db: conn, log: logger}
	s.sqliteQueries = sqliteQueries{db: conn, owner: s}
	return s
}

func (s *SQLite) Backend() string {
	return "sqlite"
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) Migrate(ctx context.Context) error {
	for _, stmt := range sqliteSchema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

func (s *SQLite) InTx(ctx context.Context, fn func(q Queries) error) error {
	const maxAttempts = 6
	retryDelay := 25 * time.Millisecond
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err := s.runTx(ctx, fn)
		if err == nil {
			return nil
		}
		if !isSQLiteBusyError(err) {
			return err
		}
		if attempt == maxAttempts-1 {
			return fmt.Errorf("%w: %v", ErrConflict, err)
		}
		s.log.Warn("sqlite tx retry", "attempt", attempt+1, "err", err)
		if err := sleepWithContext(ctx, retryDelay); err != nil {
			return err
		}
		retryDelay *= 2
	}
	return ErrConflict
}

func (s *SQLite) runTx(ctx context.Context, fn func(q Queries) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(sqliteQueries{db: tx, owner: s, inTx: true}); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLite) DeleteAquarium(ctx context.Context, psid string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM aquariums WHERE psid = ?`, psid)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (q sqliteQueries) GetAquarium(ctx context.Context, psid string) (Aquarium, error) {
	var a Aquarium
	var createdAt, updatedAt string
	err := q.db.QueryRowContext(ctx, `
		SELECT id, psid, tank_life_sec, num_fish, total_feedings, food_level,
		       castle_unlocked, submarine_unlocked, music_enabled, created_at, updated_at
		FROM aquariums
		WHERE psid = ?
	`, psid).Scan(&a.ID, &a.PSID, &a.TankLifeSec, &a.NumFish, &a.TotalFeedings, &a.FoodLevel,
		&a.CastleUnlocked, &a.SubmarineUnlocked, &a.MusicEnabled, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return a, ErrNotFound
	}
	if err != nil {
		return a, err
	}
	a.CreatedAt = parseSQLiteTime(createdAt)
	a.UpdatedAt = parseSQLiteTime(updatedAt)
	return a, nil
}

func (q sqliteQueries) CreateAquarium(ctx context.Context, psid string) (Aquarium, error) {
	now := formatSQLiteTime(nowUTC())
	if _, err := q.db.ExecContext(ctx, `
		INSERT INTO aquariums (psid, created_at, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (psid) DO NOTHING
	`, psid, now, now); err != nil {
		return Aquarium{}, err
	}
	return q.GetAquarium(ctx, psid)
}

func (q sqliteQueries) UpdateAquarium(ctx context.Context, psid string, patch AquariumPatch) error {
	sets := patch.stamped()
	if len(sets) == 0 {
		return nil
	}
	query, args := sqliteDialect.buildUpdate("aquariums", sets, "psid", psid)
	res, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (q sqliteQueries) ListFish(ctx context.Context, aquariumID int64) ([]Fish, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, aquarium_id, type, hunger, x, y, last_fed, hunger_updated_at, spawn_count, created_at
		FROM fish
		WHERE aquarium_id = ?
		ORDER BY id
	`, aquariumID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Fish
	for rows.Next() {
		var f Fish
		var lastFed, hungerAt, createdAt string
		if err := rows.Scan(&f.ID, &f.AquariumID, &f.Species, &f.Hunger, &f.X, &f.Y,
			&lastFed, &hungerAt, &f.SpawnCount, &createdAt); err != nil {
			return nil, err
		}
		f.LastFed = parseSQLiteTime(lastFed)
		f.HungerUpdatedAt = parseSQLiteTime(hungerAt)
		f.CreatedAt = parseSQLiteTime(createdAt)
		out = append(out, f)
	}
	return out, rows.Err()
}

func (q sqliteQueries) AddFish(ctx context.Context, aquariumID int64, in NewFish) (Fish, error) {
	f := Fish{
		AquariumID:      aquariumID,
		Species:         in.Species,
		Hunger:          in.Hunger,
		X:               in.X,
		Y:               in.Y,
		LastFed:         in.LastFed,
		HungerUpdatedAt: in.LastFed,
		CreatedAt:       nowUTC(),
	}
	lastFed := formatSQLiteTime(in.LastFed)
	err := q.db.QueryRowContext(ctx, `
		INSERT INTO fish (aquarium_id, type, hunger, x, y, last_fed, hunger_updated_at, spawn_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?)
		RETURNING id
	`, aquariumID, in.Species, in.Hunger, in.X, in.Y, lastFed, lastFed, formatSQLiteTime(f.CreatedAt)).Scan(&f.ID)
	if err != nil {
		return Fish{}, err
	}
	return f, nil
}

func (q sqliteQueries) UpdateFish(ctx context.Context, fishID int64, patch FishPatch) error {
	sets := patch.assignments()
	if len(sets) == 0 {
		return nil
	}
	query, args := sqliteDialect.buildUpdate("fish", sets, "id", fishID)
	res, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (q sqliteQueries) RemoveFish(ctx context.Context, fishID int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM fish WHERE id = ?`, fishID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (q sqliteQueries) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 || limit > LeaderboardSize {
		limit = LeaderboardSize
	}
	rows, err := q.db.QueryContext(ctx, `
		SELECT psid, tank_life_sec, num_fish, total_feedings, created_at, updated_at
		FROM leaderboard
		ORDER BY tank_life_sec DESC, created_at ASC, psid ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]LeaderboardEntry, 0, limit)
	rank := 1
	for rows.Next() {
		var e LeaderboardEntry
		var createdAt, updatedAt string
		if err := rows.Scan(&e.PSID, &e.TankLifeSec, &e.NumFish, &e.TotalFeedings, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		e.CreatedAt = parseSQLiteTime(createdAt)
		e.UpdatedAt = parseSQLiteTime(updatedAt)
		e.Rank = rank
		rank++
		out = append(out, e)
	}
	return out, rows.Err()
}

func (q sqliteQueries) RecordAndTrim(ctx context.Context, entry LeaderboardEntry) error {
	if !q.inTx {
		return q.owner.InTx(ctx, func(tq Queries) error {
			return tq.RecordAndTrim(ctx, entry)
		})
	}
	now := formatSQLiteTime(nowUTC())
	if _, err := q.db.ExecContext(ctx, `
		INSERT INTO leaderboard (psid, tank_life_sec, num_fish, total_feedings, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (psid) DO UPDATE
		SET tank_life_sec = MAX(leaderboard.tank_life_sec, excluded.tank_life_sec),
		    num_fish = MAX(leaderboard.num_fish, excluded.num_fish),
		    total_feedings = MAX(leaderboard.total_feedings, excluded.total_feedings),
		    updated_at = excluded.updated_at
	`, entry.PSID, entry.TankLifeSec, entry.NumFish, entry.TotalFeedings, now, now); err != nil {
		return err
	}
	_, err := q.db.ExecContext(ctx, `
		DELETE FROM leaderboard
		WHERE psid NOT IN (
			SELECT psid
			FROM leaderboard
			ORDER BY tank_life_sec DESC, created_at ASC, psid ASC
			LIMIT ?
		)
	`, LeaderboardSize)
	return err
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func formatSQLiteTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

// parseSQLiteTime returns the zero time for text it cannot read; callers
// treat that as an anomaly rather than a failure.
func parseSQLiteTime(s string) time.Time {
	if t, err := time.Parse(sqliteTimeLayout, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC()
	}
	return time.Time{}
}

func isSQLiteBusyError(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_BUSY || code == sqlite3.SQLITE_LOCKED
}
