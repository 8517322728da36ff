package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	cl "aquarium/internal/cli"
	"aquarium/internal/config"
	"aquarium/internal/game"
	"aquarium/internal/syncq"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func main() {
	cfg := config.LoadCLIFromEnv()
	apiBase := cfg.APIBaseURL

	root := &cobra.Command{
		Use:          "tankctl",
		Short:        "Aquarium command line client",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&apiBase, "api", apiBase, "aquarium API base URL")

	root.AddCommand(
		newNewCmd(&apiBase),
		newUseCmd(),
		newForgetCmd(),
		newStateCmd(&apiBase),
		newFeedCmd(&apiBase),
		newPushCmd(&apiBase),
		newSyncCmd(&apiBase),
		newLeaderboardCmd(&apiBase),
		newCatalogCmd(&apiBase),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newClient(apiBase *string) *cl.Client {
	return cl.NewClient(strings.TrimRight(strings.TrimSpace(*apiBase), "/"))
}

func currentPSID() (string, error) {
	profile, err := cl.LoadProfile()
	if err != nil {
		return "", err
	}
	psid, err := profile.ActivePSID()
	if err != nil {
		return "", fmt.Errorf("%w, run `tankctl new` or `tankctl use`", err)
	}
	return psid, nil
}

// remember records the latest snapshot locally. Failures only warn since
// the server already holds the state.
func remember(snap game.Snapshot) {
	profile, err := cl.LoadProfile()
	if err == nil {
		profile.Remember(snap, time.Now())
		err = cl.SaveProfile(profile)
	}
	if err != nil {
		printWarn("Could not update local profile: " + err.Error())
	}
}

func newNewCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "new",
		Short: "Start a fresh aquarium and remember it",
		RunE: func(cmd *cobra.Command, args []string) error {
			psid := "tank-" + uuid.NewString()
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			snap, err := newClient(apiBase).FetchState(ctx, psid)
			if err != nil {
				return err
			}
			profile, err := cl.LoadProfile()
			if err != nil {
				return err
			}
			profile.Use(psid, time.Now())
			profile.Remember(snap, time.Now())
			if err := cl.SaveProfile(profile); err != nil {
				return err
			}
			printSuccess("New aquarium " + psid + " saved.")
			renderSnapshot(snap, nil)
			return nil
		},
	}
}

func newUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use [psid]",
		Short: "Play an existing aquarium, or list known ones",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := cl.LoadProfile()
			if err != nil {
				return err
			}
			if len(args) == 0 {
				renderProfile(profile)
				return nil
			}
			psid := strings.TrimSpace(args[0])
			if err := game.ValidatePSID(psid); err != nil {
				return err
			}
			profile.Use(psid, time.Now())
			if err := cl.SaveProfile(profile); err != nil {
				return err
			}
			printSuccess("Now playing " + psid + ".")
			return nil
		},
	}
}

func newForgetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forget [psid]",
		Short: "Forget an aquarium on this machine, the active one by default",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := cl.LoadProfile()
			if err != nil {
				return err
			}
			psid := profile.Active
			if len(args) == 1 {
				psid = strings.TrimSpace(args[0])
			}
			if psid == "" || !profile.Forget(psid) {
				printInfo("Nothing to forget.")
				return nil
			}
			if err := cl.SaveProfile(profile); err != nil {
				return err
			}
			printSuccess("Forgot " + psid + ". The server still keeps its state.")
			return nil
		},
	}
}

func newStateCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Catch the aquarium up and show it",
		RunE: func(cmd *cobra.Command, args []string) error {
			psid, err := currentPSID()
			if err != nil {
				return err
			}
			client := newClient(apiBase)
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			snap, err := client.FetchState(ctx, psid)
			if err != nil {
				return err
			}
			remember(snap)
			catalog, err := client.Catalog(ctx)
			if err != nil {
				printWarn("Catalog unavailable, hunger thresholds hidden.")
				renderSnapshot(snap, nil)
				return nil
			}
			renderSnapshot(snap, &catalog)
			return nil
		},
	}
}

func newFeedCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "feed [fish_id...]",
		Short: "Feed the given fish, or every fish when none are named",
		RunE: func(cmd *cobra.Command, args []string) error {
			psid, err := currentPSID()
			if err != nil {
				return err
			}
			client := newClient(apiBase)
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
				if err != nil || id <= 0 {
					return fmt.Errorf("invalid fish id %q", arg)
				}
				ids = append(ids, id)
			}
			if len(ids) == 0 {
				snap, err := client.FetchState(ctx, psid)
				if err != nil {
					return err
				}
				for _, f := range snap.Fish {
					ids = append(ids, f.ID)
				}
			}
			if len(ids) == 0 {
				printInfo("No fish to feed.")
				return nil
			}

			req := game.PushRequest{Fish: make([]game.FishUpdate, 0, len(ids))}
			for _, id := range ids {
				req.Fish = append(req.Fish, game.FishUpdate{ID: id, Fed: true})
			}
			return pushOrQueue(ctx, client, psid, req)
		},
	}
}

func newPushCmd(apiBase *string) *cobra.Command {
	var (
		tankLife  float64
		food      float64
		castle    bool
		submarine bool
		music     bool
		fed       []int64
		hungers   []string
		moves     []string
	)
	cmd := &cobra.Command{
		Use:   "push",
		Short: "Send client state to the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			psid, err := currentPSID()
			if err != nil {
				return err
			}
			req := game.PushRequest{}
			flags := cmd.Flags()
			if flags.Changed("tank-life") {
				req.TankLifeSec = &tankLife
			}
			if flags.Changed("food") {
				req.FoodLevel = &food
			}
			if flags.Changed("castle") {
				req.Unlockables.Castle = &castle
			}
			if flags.Changed("submarine") {
				req.Unlockables.Submarine = &submarine
			}
			if flags.Changed("music") {
				req.Unlockables.Music = &music
			}

			updates := map[int64]*game.FishUpdate{}
			order := []int64{}
			update := func(id int64) *game.FishUpdate {
				if u, ok := updates[id]; ok {
					return u
				}
				u := &game.FishUpdate{ID: id}
				updates[id] = u
				order = append(order, id)
				return u
			}
			for _, id := range fed {
				update(id).Fed = true
			}
			for _, raw := range hungers {
				id, value, err := parseFishAssignment(raw)
				if err != nil {
					return err
				}
				h, err := strconv.ParseFloat(value, 64)
				if err != nil {
					return fmt.Errorf("invalid hunger %q", raw)
				}
				update(id).Hunger = &h
			}
			for _, raw := range moves {
				id, value, err := parseFishAssignment(raw)
				if err != nil {
					return err
				}
				xs, ys, ok := strings.Cut(value, ",")
				if !ok {
					return fmt.Errorf("invalid position %q, want id=x,y", raw)
				}
				x, errX := strconv.ParseFloat(strings.TrimSpace(xs), 64)
				y, errY := strconv.ParseFloat(strings.TrimSpace(ys), 64)
				if errX != nil || errY != nil {
					return fmt.Errorf("invalid position %q, want id=x,y", raw)
				}
				u := update(id)
				u.X, u.Y = &x, &y
			}
			for _, id := range order {
				req.Fish = append(req.Fish, *updates[id])
			}
			if err := req.Validate(); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			return pushOrQueue(ctx, newClient(apiBase), psid, req)
		},
	}
	cmd.Flags().Float64Var(&tankLife, "tank-life", 0, "tank life in seconds")
	cmd.Flags().Float64Var(&food, "food", 0, "food level 0-100")
	cmd.Flags().BoolVar(&castle, "castle", false, "castle unlocked")
	cmd.Flags().BoolVar(&submarine, "submarine", false, "submarine unlocked")
	cmd.Flags().BoolVar(&music, "music", false, "music enabled")
	cmd.Flags().Int64SliceVar(&fed, "fed", nil, "fish ids that were fed")
	cmd.Flags().StringArrayVar(&hungers, "hunger", nil, "fish hunger as id=value")
	cmd.Flags().StringArrayVar(&moves, "move", nil, "fish position as id=x,y")
	return cmd
}

func newSyncCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Replay pushes queued while offline",
		RunE: func(cmd *cobra.Command, args []string) error {
			queue, err := syncq.Load()
			if err != nil {
				return err
			}
			if len(queue) == 0 {
				printInfo("Sync queue is empty.")
				return nil
			}
			client := newClient(apiBase)
			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()

			dropped := 0
			replayed, remaining, err := syncq.Replay(queue, func(q syncq.Command) error {
				_, err := client.PushState(ctx, q.PSID, q.Request)
				if err != nil && cl.IsAPIError(err) {
					dropped++
					printError(fmt.Sprintf("Server rejected queued push %s: %v", q.ID, err))
					return nil
				}
				return err
			})
			if saveErr := syncq.Save(remaining); saveErr != nil {
				return saveErr
			}
			if err != nil {
				printWarn(fmt.Sprintf("Sync stopped: replayed=%d remaining=%d: %v", replayed-dropped, len(remaining), err))
				return nil
			}
			printSuccess(fmt.Sprintf("Sync complete: replayed=%d dropped=%d", replayed-dropped, dropped))
			return nil
		},
	}
}

func newLeaderboardCmd(apiBase *string) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Longest-lived tanks",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			rows, err := newClient(apiBase).Leaderboard(ctx, limit)
			if err != nil {
				return err
			}
			profile, _ := cl.LoadProfile()
			renderLeaderboard(rows, profile.Active)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "rows to show")
	return cmd
}

func newCatalogCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List species and game constants",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Catalog(ctx)
			if err != nil {
				return err
			}
			renderCatalog(out)
			return nil
		},
	}
}

func pushOrQueue(ctx context.Context, client *cl.Client, psid string, req game.PushRequest) error {
	snap, err := client.PushState(ctx, psid, req)
	if err == nil {
		remember(snap)
		renderSnapshot(snap, nil)
		return nil
	}
	if cl.IsAPIError(err) || errors.Is(err, context.Canceled) {
		return err
	}
	if qErr := syncq.Push(syncq.Command{
		ID:       uuid.NewString(),
		PSID:     psid,
		Request:  req,
		QueuedAt: time.Now().UTC(),
	}); qErr != nil {
		return fmt.Errorf("push failed (%v) and could not be queued: %w", err, qErr)
	}
	printWarn("Server unreachable, push queued. Run `tankctl sync` later.")
	return nil
}

func parseFishAssignment(raw string) (int64, string, error) {
	idText, value, ok := strings.Cut(raw, "=")
	if !ok {
		return 0, "", fmt.Errorf("invalid assignment %q, want id=value", raw)
	}
	id, err := strconv.ParseInt(strings.TrimSpace(idText), 10, 64)
	if err != nil || id <= 0 {
		return 0, "", fmt.Errorf("invalid fish id in %q", raw)
	}
	return id, strings.TrimSpace(value), nil
}
