// Package syncq keeps pushes that could not reach the server so they can be
// replayed in order later.
package syncq

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"aquarium/internal/game"
)

type Command struct {
	ID       string           `json:"id"`
	PSID     string           `json:"psid"`
	Request  game.PushRequest `json:"request"`
	QueuedAt time.Time        `json:"queued_at"`
}

func queuePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".aquarium")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return filepath.Join(dir, "queue.json"), nil
}

func Load() ([]Command, error) {
	path, err := queuePath()
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Command{}, nil
		}
		return nil, err
	}
	if len(raw) == 0 {
		return []Command{}, nil
	}
	var out []Command
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func Save(commands []Command) error {
	path, err := queuePath()
	if err != nil {
		return err
	}
	raw, err := json.MarshalIndent(commands, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func Push(cmd Command) error {
	commands, err := Load()
	if err != nil {
		return err
	}
	commands = append(commands, cmd)
	return Save(commands)
}

// Replay sends each queued command in order and stops at the first one
// that fails, so later pushes never overtake an earlier one. It returns the
// number replayed.
func Replay(commands []Command, send func(Command) error) (int, []Command, error) {
	for i, cmd := range commands {
		if err := send(cmd); err != nil {
			return i, commands[i:], err
		}
	}
	return len(commands), []Command{}, nil
}
