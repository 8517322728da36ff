package cli

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"time"

	"aquarium/internal/game"
)

var ErrNoActiveTank = errors.New("no aquarium selected")

// Profile is the local record of aquariums played from this machine and
// which one commands act on.
type Profile struct {
	Active string          `json:"active"`
	Tanks  map[string]Tank `json:"tanks"`
}

// Tank caches what the server last said about an aquarium so listings work
// offline.
type Tank struct {
	AddedAt     time.Time `json:"added_at"`
	LastSeen    time.Time `json:"last_seen,omitempty"`
	TankLifeSec float64   `json:"tank_life_sec"`
	NumFish     int       `json:"num_fish"`
}

// BaseDir is ~/.aquarium, created on first use.
func BaseDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".aquarium")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return dir, nil
}

func profilePath() (string, error) {
	dir, err := BaseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "profile.json"), nil
}

// LoadProfile returns an empty profile when none has been saved yet.
func LoadProfile() (Profile, error) {
	p := Profile{Tanks: map[string]Tank{}}
	path, err := profilePath()
	if err != nil {
		return p, err
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		return p, err
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, err
	}
	if p.Tanks == nil {
		p.Tanks = map[string]Tank{}
	}
	return p, nil
}

func SaveProfile(p Profile) error {
	path, err := profilePath()
	if err != nil {
		return err
	}
	raw, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (p Profile) ActivePSID() (string, error) {
	if p.Active == "" {
		return "", ErrNoActiveTank
	}
	return p.Active, nil
}

// Use makes psid the active aquarium, adding it if it is new.
func (p *Profile) Use(psid string, now time.Time) {
	if p.Tanks == nil {
		p.Tanks = map[string]Tank{}
	}
	if _, ok := p.Tanks[psid]; !ok {
		p.Tanks[psid] = Tank{AddedAt: now.UTC()}
	}
	p.Active = psid
}

func (p *Profile) Remember(snap game.Snapshot, now time.Time) {
	if p.Tanks == nil {
		p.Tanks = map[string]Tank{}
	}
	t, ok := p.Tanks[snap.PSID]
	if !ok {
		t.AddedAt = now.UTC()
	}
	t.LastSeen = now.UTC()
	t.TankLifeSec = snap.TankLifeSec
	t.NumFish = snap.NumFish
	p.Tanks[snap.PSID] = t
}

// Forget drops psid and clears the selection if it was active.
func (p *Profile) Forget(psid string) bool {
	if _, ok := p.Tanks[psid]; !ok && p.Active != psid {
		return false
	}
	delete(p.Tanks, psid)
	if p.Active == psid {
		p.Active = ""
	}
	return true
}

// Known lists remembered aquariums, most recently seen first.
func (p Profile) Known() []string {
	out := make([]string, 0, len(p.Tanks))
	for psid := range p.Tanks {
		out = append(out, psid)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := p.Tanks[out[i]], p.Tanks[out[j]]
		if !a.LastSeen.Equal(b.LastSeen) {
			return a.LastSeen.After(b.LastSeen)
		}
		return out[i] < out[j]
	})
	return out
}
