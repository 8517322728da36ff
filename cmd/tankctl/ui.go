package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	cl "aquarium/internal/cli"
	"aquarium/internal/game"
	"aquarium/internal/species"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
)

var (
	accent  = color.New(color.FgCyan, color.Bold)
	success = color.New(color.FgGreen, color.Bold)
	warn    = color.New(color.FgYellow, color.Bold)
	danger  = color.New(color.FgRed, color.Bold)
	neutral = color.New(color.FgHiWhite)

	tankBox = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#16858E")).
		Padding(0, 1)
	tankTitle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#2CD7C7"))
	muted     = lipgloss.NewStyle().Foreground(lipgloss.Color("#5F7F89"))
)

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func printError(msg string) {
	danger.Println(msg)
}

func printInfo(msg string) {
	neutral.Println(msg)
}

// renderSnapshot prints the tank panel, its fish and any reconciliation
// events. Hunger is shown against the species threshold when a catalog is
// given.
func renderSnapshot(snap game.Snapshot, catalog *game.CatalogView) {
	thresholds := map[string]int{}
	if catalog != nil {
		for _, sp := range catalog.Species {
			thresholds[sp.Name] = sp.HungerThreshold
		}
	}

	header := []string{
		tankTitle.Render("Aquarium " + snap.PSID),
		fmt.Sprintf("Tank life   %s", formatTankLife(snap.TankLifeSec)),
		fmt.Sprintf("Fish        %d", snap.NumFish),
		fmt.Sprintf("Feedings    %d", snap.TotalFeedings),
		fmt.Sprintf("Food        %.0f%%", snap.FoodLevel),
		fmt.Sprintf("Unlocks     castle %s  submarine %s  music %s",
			onOff(snap.CastleUnlocked), onOff(snap.SubmarineUnlocked), onOff(snap.MusicEnabled)),
		muted.Render("server time " + snap.ServerTime.Local().Format(time.DateTime)),
	}
	fmt.Println(tankBox.Render(strings.Join(header, "\n")))

	if len(snap.Fish) == 0 {
		printInfo("The tank is empty.")
	} else {
		fmt.Printf("%-6s %-14s %-18s %-16s %s\n", "ID", "SPECIES", "HUNGER", "POSITION", "LAST FED")
		for _, f := range snap.Fish {
			fmt.Printf("%-6d %-14s %-18s %-16s %s\n",
				f.ID,
				truncate(f.Type, 14),
				formatHunger(f.Hunger, thresholds[f.Type]),
				fmt.Sprintf("%.0f,%.0f", f.X, f.Y),
				humanSince(snap.ServerTime, f.LastFed),
			)
		}
	}
	renderEvents(snap.Events)
}

func renderEvents(events []game.Event) {
	if len(events) == 0 {
		return
	}
	accent.Println("\n== EVENTS ==")
	for _, ev := range events {
		line := fmt.Sprintf("%-18s %s", ev.Kind, ev.Detail)
		switch ev.Kind {
		case game.EventFishDied, game.EventTankReset:
			danger.Println(line)
		case game.EventUnknownSpecies, game.EventInvalidTimestamp, game.EventUnknownFish, game.EventUnlockForcedOff:
			warn.Println(line)
		default:
			success.Println(line)
		}
	}
}

func renderProfile(p cl.Profile) {
	known := p.Known()
	if len(known) == 0 {
		printInfo("No aquariums yet. Run `tankctl new`.")
		return
	}
	accent.Println("\n== YOUR AQUARIUMS ==")
	fmt.Printf("%-2s %-42s %14s %6s  %s\n", "", "PSID", "TANK LIFE", "FISH", "LAST SEEN")
	for _, psid := range known {
		t := p.Tanks[psid]
		marker := ""
		if psid == p.Active {
			marker = "*"
		}
		seen := "never"
		if !t.LastSeen.IsZero() {
			seen = t.LastSeen.Local().Format(time.DateTime)
		}
		line := fmt.Sprintf("%-2s %-42s %14s %6d  %s", marker, truncate(psid, 42), formatTankLife(t.TankLifeSec), t.NumFish, seen)
		if marker != "" {
			success.Println(line)
			continue
		}
		fmt.Println(line)
	}
}

func renderLeaderboard(rows []game.LeaderboardRow, ownPSID string) {
	accent.Println("\n== LONGEST LIVED TANKS ==")
	if len(rows) == 0 {
		printInfo("No leaderboard rows yet.")
		return
	}
	fmt.Printf("%-6s %-42s %14s %6s %9s\n", "RANK", "PSID", "TANK LIFE", "FISH", "FEEDINGS")
	for _, row := range rows {
		line := fmt.Sprintf("%-6d %-42s %14s %6d %9d",
			row.Rank,
			truncate(row.PSID, 42),
			formatTankLife(row.TankLifeSec),
			row.NumFish,
			row.TotalFeedings,
		)
		if row.PSID == ownPSID {
			success.Println(line)
			continue
		}
		fmt.Println(line)
	}
	fmt.Println()
}

func renderCatalog(out game.CatalogView) {
	accent.Println("\n== SPECIES ==")
	fmt.Printf("%-14s %-10s %-10s %10s %9s %6s\n", "NAME", "RARITY", "ACTIVE", "FEED EVERY", "THRESHOLD", "SIZE")
	for _, sp := range out.Species {
		fmt.Printf("%-14s %-10s %-10s %10s %9d %6.1f\n",
			truncate(sp.Name, 14),
			sp.Rarity,
			sp.Activity,
			(time.Duration(sp.FeedIntervalMinutes * float64(time.Minute))).String(),
			sp.HungerThreshold,
			sp.Size,
		)
	}

	rarities := make([]species.Rarity, 0, len(out.RarityWeights))
	for r := range out.RarityWeights {
		rarities = append(rarities, r)
	}
	sort.Slice(rarities, func(i, j int) bool { return out.RarityWeights[rarities[i]] > out.RarityWeights[rarities[j]] })
	weights := make([]string, 0, len(rarities))
	for _, r := range rarities {
		weights = append(weights, fmt.Sprintf("%s %.0f%%", r, out.RarityWeights[r]*100))
	}

	c := out.Constants
	lines := []string{
		tankTitle.Render("Rules"),
		fmt.Sprintf("Spawn weights   %s", strings.Join(weights, ", ")),
		fmt.Sprintf("Feeding         -%.0f hunger, spawn every %d feedings", c.FeedAmount, c.FeedingsToSpawn),
		fmt.Sprintf("Unlocks         castle at %d fish, submarine at %d fish", c.CastleUnlockFish, c.SubmarineUnlockFish),
		fmt.Sprintf("Day window      %02d:00-%02d:00, off-cycle hunger x%.2f", c.DayStartHour, c.DayEndHour, c.InactiveMultiplier),
		fmt.Sprintf("Tank age        mature %.0fh, ancient %.0fh", c.MatureTankHours, c.AncientTankHours),
		fmt.Sprintf("World           %.0f x %.0f", c.World.Width, c.World.Height),
	}
	fmt.Println(tankBox.Render(strings.Join(lines, "\n")))
}

func formatHunger(hunger float64, threshold int) string {
	if threshold <= 0 {
		return fmt.Sprintf("%.1f", hunger)
	}
	text := fmt.Sprintf("%.1f/%d", hunger, threshold)
	ratio := hunger / float64(threshold)
	switch {
	case ratio >= 0.75:
		return danger.Sprint(text)
	case ratio >= 0.5:
		return warn.Sprint(text)
	default:
		return success.Sprint(text)
	}
}

func formatTankLife(sec float64) string {
	d := time.Duration(sec * float64(time.Second)).Truncate(time.Second)
	days := int(d / (24 * time.Hour))
	d -= time.Duration(days) * 24 * time.Hour
	if days > 0 {
		return fmt.Sprintf("%dd %s", days, d)
	}
	return d.String()
}

func humanSince(now, then time.Time) string {
	if then.IsZero() {
		return "never"
	}
	d := now.Sub(then).Truncate(time.Second)
	if d < time.Second {
		return "just now"
	}
	return d.String() + " ago"
}

func onOff(v bool) string {
	if v {
		return success.Sprint("on")
	}
	return neutral.Sprint("off")
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
