package store

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS aquariums (
		id                 BIGSERIAL PRIMARY KEY,
		psid               TEXT NOT NULL UNIQUE,
		tank_life_sec      DOUBLE PRECISION NOT NULL DEFAULT 0,
		num_fish           INTEGER NOT NULL DEFAULT 0,
		total_feedings     INTEGER NOT NULL DEFAULT 0,
		food_level         DOUBLE PRECISION NOT NULL DEFAULT 100,
		castle_unlocked    BOOLEAN NOT NULL DEFAULT FALSE,
		submarine_unlocked BOOLEAN NOT NULL DEFAULT FALSE,
		music_enabled      BOOLEAN NOT NULL DEFAULT FALSE,
		created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS fish (
		id                BIGSERIAL PRIMARY KEY,
		aquarium_id       BIGINT NOT NULL REFERENCES aquariums(id) ON DELETE CASCADE,
		type              TEXT NOT NULL,
		hunger            DOUBLE PRECISION NOT NULL DEFAULT 0,
		x                 DOUBLE PRECISION NOT NULL DEFAULT 0,
		y                 DOUBLE PRECISION NOT NULL DEFAULT 0,
		last_fed          TIMESTAMPTZ NOT NULL DEFAULT now(),
		hunger_updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		spawn_count       INTEGER NOT NULL DEFAULT 0,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS fish_aquarium_id_idx ON fish (aquarium_id)`,
	`CREATE TABLE IF NOT EXISTS leaderboard (
		psid           TEXT PRIMARY KEY,
		tank_life_sec  DOUBLE PRECISION NOT NULL DEFAULT 0,
		num_fish       INTEGER NOT NULL DEFAULT 0,
		total_feedings INTEGER NOT NULL DEFAULT 0,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS leaderboard_rank_idx ON leaderboard (tank_life_sec DESC, created_at ASC)`,
}

// SQLite keeps timestamps as fixed-width UTC text so they sort
// chronologically; see formatSQLiteTime.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS aquariums (
		id                 INTEGER PRIMARY KEY AUTOINCREMENT,
		psid               TEXT NOT NULL UNIQUE,
		tank_life_sec      REAL NOT NULL DEFAULT 0,
		num_fish           INTEGER NOT NULL DEFAULT 0,
		total_feedings     INTEGER NOT NULL DEFAULT 0,
		food_level         REAL NOT NULL DEFAULT 100,
		castle_unlocked    INTEGER NOT NULL DEFAULT 0,
		submarine_unlocked INTEGER NOT NULL DEFAULT 0,
		music_enabled      INTEGER NOT NULL DEFAULT 0,
		created_at         TEXT NOT NULL,
		updated_at         TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS fish (
		id                INTEGER PRIMARY KEY AUTOINCREMENT,
		aquarium_id       INTEGER NOT NULL REFERENCES aquariums(id) ON DELETE CASCADE,
		type              TEXT NOT NULL,
		hunger            REAL NOT NULL DEFAULT 0,
		x                 REAL NOT NULL DEFAULT 0,
		y                 REAL NOT NULL DEFAULT 0,
		last_fed          TEXT NOT NULL,
		hunger_updated_at TEXT NOT NULL,
		spawn_count       INTEGER NOT NULL DEFAULT 0,
		created_at        TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS fish_aquarium_id_idx ON fish (aquarium_id)`,
	`CREATE TABLE IF NOT EXISTS leaderboard (
		psid           TEXT PRIMARY KEY,
		tank_life_sec  REAL NOT NULL DEFAULT 0,
		num_fish       INTEGER NOT NULL DEFAULT 0,
		total_feedings INTEGER NOT NULL DEFAULT 0,
		created_at     TEXT NOT NULL,
		updated_at     TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS leaderboard_rank_idx ON leaderboard (tank_life_sec DESC, created_at ASC)`,
}
