package store

import (
	"strconv"
	"strings"
	"time"
)

type assignment struct {
	column string
	value  any
}

func (p AquariumPatch) assignments() []assignment {
	var out []assignment
	if p.TankLifeSec != nil {
		out = append(out, assignment{"tank_life_sec", *p.TankLifeSec})
	}
	if p.NumFish != nil {
		out = append(out, assignment{"num_fish", *p.NumFish})
	}
	if p.TotalFeedings != nil {
		out = append(out, assignment{"total_feedings", *p.TotalFeedings})
	}
	if p.FoodLevel != nil {
		out = append(out, assignment{"food_level", *p.FoodLevel})
	}
	if p.CastleUnlocked != nil {
		out = append(out, assignment{"castle_unlocked", *p.CastleUnlocked})
	}
	if p.SubmarineUnlocked != nil {
		out = append(out, assignment{"submarine_unlocked", *p.SubmarineUnlocked})
	}
	if p.MusicEnabled != nil {
		out = append(out, assignment{"music_enabled", *p.MusicEnabled})
	}
	return out
}

// stamped appends updated_at. A patch with nothing to change yields nil
// unless it carries an explicit UpdatedAt.
func (p AquariumPatch) stamped() []assignment {
	sets := p.assignments()
	if len(sets) == 0 && p.UpdatedAt == nil {
		return nil
	}
	stamp := nowUTC()
	if p.UpdatedAt != nil {
		stamp = p.UpdatedAt.UTC()
	}
	return append(sets, assignment{"updated_at", stamp})
}

func (p FishPatch) assignments() []assignment {
	var out []assignment
	if p.Hunger != nil {
		out = append(out, assignment{"hunger", *p.Hunger})
	}
	if p.X != nil {
		out = append(out, assignment{"x", *p.X})
	}
	if p.Y != nil {
		out = append(out, assignment{"y", *p.Y})
	}
	if p.LastFed != nil {
		out = append(out, assignment{"last_fed", *p.LastFed})
	}
	if p.HungerUpdatedAt != nil {
		out = append(out, assignment{"hunger_updated_at", *p.HungerUpdatedAt})
	}
	if p.SpawnCount != nil {
		out = append(out, assignment{"spawn_count", *p.SpawnCount})
	}
	return out
}

// dialect abstracts the two differences the backends have when building
// statements: placeholder syntax and how time values are bound.
type dialect struct {
	placeholder func(n int) string
	bind        func(v any) any
}

var postgresDialect = dialect{
	placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
	bind:        func(v any) any { return v },
}

var sqliteDialect = dialect{
	placeholder: func(int) string { return "?" },
	bind: func(v any) any {
		if t, ok := v.(time.Time); ok {
			return formatSQLiteTime(t)
		}
		return v
	},
}

// buildUpdate renders "UPDATE table SET a = $1, b = $2 WHERE key = $3".
func (d dialect) buildUpdate(table string, sets []assignment, keyColumn string, key any) (string, []any) {
	var sb strings.Builder
	args := make([]any, 0, len(sets)+1)
	sb.WriteString("UPDATE ")
	sb.WriteString(table)
	sb.WriteString(" SET ")
	for i, a := range sets {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(a.column)
		sb.WriteString(" = ")
		sb.WriteString(d.placeholder(i + 1))
		args = append(args, d.bind(a.value))
	}
	sb.WriteString(" WHERE ")
	sb.WriteString(keyColumn)
	sb.WriteString(" = ")
	sb.WriteString(d.placeholder(len(sets) + 1))
	args = append(args, d.bind(key))
	return sb.String(), args
}
