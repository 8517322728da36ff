package game

import (
	"errors"
	"math"
	"regexp"
	"strings"
)

const (
	CastleUnlockFish    = 2
	SubmarineUnlockFish = 4

	MaxFoodLevel = 100.0

	DefaultWorldWidth  = 800.0
	DefaultWorldHeight = 600.0
)

var (
	ErrInvalidPSID      = errors.New("psid must be 8-64 characters of letters, digits, '-' or '_'")
	ErrInvalidRequest   = errors.New("invalid request")
	ErrAquariumNotFound = errors.New("aquarium not found")
	ErrTxConflict       = errors.New("concurrent update, retry")
)

var psidRE = regexp.MustCompile(`^[A-Za-z0-9_-]{8,64}$`)

func ValidatePSID(psid string) error {
	if !psidRE.MatchString(strings.TrimSpace(psid)) {
		return ErrInvalidPSID
	}
	return nil
}

// World is the rectangle fish positions are clamped to.
type World struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func DefaultWorld() World {
	return World{Width: DefaultWorldWidth, Height: DefaultWorldHeight}
}

func (w World) Clamp(x, y float64) (float64, float64) {
	return clamp(x, 0, w.Width), clamp(y, 0, w.Height)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Min(hi, math.Max(lo, v))
}

// gateUnlock returns the flag value to persist. Anything asked for below the
// fish threshold is forced off.
func gateUnlock(current bool, requested *bool, liveFish, threshold int) (value bool, forced bool) {
	want := current
	if requested != nil {
		want = *requested
	}
	if want && liveFish < threshold {
		return false, true
	}
	return want, false
}
