// Package report renders decoded replay results as terminal tables and as
// JSON or Markdown documents.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/turnabouthero/go-vgr-metrics/internal/model"
)

// PrintMatchSummary prints a one-line summary header for the replay.
func PrintMatchSummary(w io.Writer, s model.ReplaySummary) {
	fmt.Fprintf(w, "\nReplay: %s  |  Frames: %d  |  Duration: %s  |  Winner: %s (%s, %.0f%%)  |  Players: %d\n\n",
		s.Name, s.TotalFrames, formatDuration(s.Duration), s.Winner, s.Method,
		s.Confidence*100, s.PlayerCount)
}

// PrintPlayerTable prints the player stats table to stdout.
func PrintPlayerTable(stats []model.PlayerStats) {
	PrintPlayerTableTo(os.Stdout, stats)
}

// PrintPlayerTableTo writes the player stats table to the provided writer.
// Players backed by a verified record get their truth counters alongside the
// decoded ones.
func PrintPlayerTableTo(w io.Writer, stats []model.PlayerStats) {
	table := tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignRight},
		},
		Header: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignCenter},
		},
	}))

	table.Header("NAME", "TEAM", "HERO", "K", "D", "K/D", "GOLD", "ITEMS", "TRUTH_K", "TRUTH_D")

	for _, s := range stats {
		truthK, truthD := "—", "—"
		if s.TruthKills != nil {
			truthK = strconv.Itoa(*s.TruthKills)
		}
		if s.TruthDeaths != nil {
			truthD = strconv.Itoa(*s.TruthDeaths)
		}
		table.Append(
			s.Name,
			s.Team.String(),
			s.HeroName,
			strconv.Itoa(s.Kills),
			strconv.Itoa(s.Deaths),
			fmt.Sprintf("%.2f", s.KDRatio()),
			fmt.Sprintf("%.0f", s.Gold),
			strconv.Itoa(s.ItemEvents),
			truthK,
			truthD,
		)
	}
	table.Render()
}

// PrintPairTable writes the kill/death pairing table.
func PrintPairTable(w io.Writer, pairs []model.KillDeathPair, nameOf func(model.EntityID) string) {
	table := tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignRight},
		},
		Header: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignCenter},
		},
	}))

	table.Header("TIME", "KILLER", "VICTIM", "DELTA")

	for _, p := range pairs {
		victim := "—"
		delta := "—"
		if p.HasVictim {
			victim = nameOf(p.Victim)
			delta = fmt.Sprintf("%.2fs", p.Delta)
		}
		table.Append(
			formatDuration(p.KillTime),
			nameOf(p.Killer),
			victim,
			delta,
		)
	}
	table.Render()
}

// Document is the serializable report for one replay, written by the JSON and
// Markdown writers.
type Document struct {
	Summary model.ReplaySummary      `json:"summary"`
	Players []model.PlayerStats      `json:"players"`
	Pairs   []pairRow                `json:"kill_pairs,omitempty"`
	Objects []model.ObjectiveCapture `json:"objective_captures,omitempty"`
}

type pairRow struct {
	Killer string  `json:"killer"`
	Victim string  `json:"victim,omitempty"`
	Time   float64 `json:"time"`
	Delta  float64 `json:"delta,omitempty"`
}

// NewDocument assembles a Document from decode output.
func NewDocument(summary model.ReplaySummary, players []model.PlayerStats,
	pairs []model.KillDeathPair, captures []model.ObjectiveCapture,
	nameOf func(model.EntityID) string) Document {
	doc := Document{Summary: summary, Players: players, Objects: captures}
	for _, p := range pairs {
		row := pairRow{Killer: nameOf(p.Killer), Time: p.KillTime}
		if p.HasVictim {
			row.Victim = nameOf(p.Victim)
			row.Delta = p.Delta
		}
		doc.Pairs = append(doc.Pairs, row)
	}
	return doc
}

// WriteJSON writes the document as indented JSON.
func WriteJSON(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// WriteMarkdown writes the document as a Markdown report.
func WriteMarkdown(w io.Writer, doc Document) error {
	s := doc.Summary
	fmt.Fprintf(w, "# Replay %s\n\n", s.Name)
	fmt.Fprintf(w, "- Decoded: %s\n", s.DecodedAt)
	fmt.Fprintf(w, "- Frames: %d\n", s.TotalFrames)
	fmt.Fprintf(w, "- Duration: %s\n", formatDuration(s.Duration))
	fmt.Fprintf(w, "- Winner: %s (%s, %.0f%% confidence)\n\n", s.Winner, s.Method, s.Confidence*100)

	fmt.Fprintln(w, "## Players")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "| Name | Team | Hero | K | D | K/D | Gold |")
	fmt.Fprintln(w, "|------|------|------|---|---|-----|------|")
	for _, p := range doc.Players {
		fmt.Fprintf(w, "| %s | %s | %s | %d | %d | %.2f | %.0f |\n",
			p.Name, p.Team, p.HeroName, p.Kills, p.Deaths, p.KDRatio(), p.Gold)
	}

	if len(doc.Pairs) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "## Kill pairs")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "| Time | Killer | Victim | Delta |")
		fmt.Fprintln(w, "|------|--------|--------|-------|")
		for _, p := range doc.Pairs {
			victim, delta := "—", "—"
			if p.Victim != "" {
				victim = p.Victim
				delta = fmt.Sprintf("%.2fs", p.Delta)
			}
			fmt.Fprintf(w, "| %s | %s | %s | %s |\n", formatDuration(p.Time), p.Killer, victim, delta)
		}
	}

	if len(doc.Objects) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "## Objective captures")
		fmt.Fprintln(w)
		for _, c := range doc.Objects {
			fmt.Fprintf(w, "- %s at %s (entity 0x%04X, %.0f%% confidence)\n",
				c.Team, formatDuration(c.Timestamp), uint16(c.Entity), c.Confidence*100)
		}
	}
	return nil
}

func formatDuration(seconds float64) string {
	if seconds <= 0 {
		return "unknown"
	}
	total := int(seconds)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
