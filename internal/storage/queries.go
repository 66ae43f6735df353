package storage

import (
	"database/sql"
	"fmt"

	"github.com/turnabouthero/go-vgr-metrics/internal/model"
)

// ReplayExists returns true if a replay with the given name is already stored.
func (db *DB) ReplayExists(name string) (bool, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(1) FROM replays WHERE name = ?", name).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// InsertReplay inserts a replay summary. Uses INSERT OR REPLACE so a re-decode
// of the same replay overwrites the previous row.
func (db *DB) InsertReplay(summary model.ReplaySummary) error {
	_, err := db.conn.Exec(`
		INSERT OR REPLACE INTO replays(name, path, decoded_at, total_frames, duration, winner, confidence, method, player_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		summary.Name, summary.Path, summary.DecodedAt, summary.TotalFrames,
		summary.Duration, summary.Winner, summary.Confidence, summary.Method,
		summary.PlayerCount,
	)
	return err
}

// InsertPlayerStats bulk-inserts player stats in a transaction.
func (db *DB) InsertPlayerStats(stats []model.PlayerStats) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO player_stats(
			replay_name, name, team, hero_name,
			kills, deaths, gold, item_events,
			truth_kills, truth_deaths
		) VALUES (?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, s := range stats {
		_, err = stmt.Exec(
			s.ReplayName, s.Name, s.Team.String(), s.HeroName,
			s.Kills, s.Deaths, s.Gold, s.ItemEvents,
			nullableInt(s.TruthKills), nullableInt(s.TruthDeaths),
		)
		if err != nil {
			return fmt.Errorf("insert player_stats for %s: %w", s.Name, err)
		}
	}
	return tx.Commit()
}

// ListReplays returns all stored replay summaries ordered by decode time desc.
func (db *DB) ListReplays() ([]model.ReplaySummary, error) {
	rows, err := db.conn.Query(`
		SELECT name, path, decoded_at, total_frames, duration, winner, confidence, method, player_count
		FROM replays ORDER BY decoded_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ReplaySummary
	for rows.Next() {
		var s model.ReplaySummary
		if err := rows.Scan(&s.Name, &s.Path, &s.DecodedAt, &s.TotalFrames,
			&s.Duration, &s.Winner, &s.Confidence, &s.Method, &s.PlayerCount); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetReplayByPrefix finds the first replay whose name starts with the given prefix.
func (db *DB) GetReplayByPrefix(prefix string) (*model.ReplaySummary, error) {
	var s model.ReplaySummary
	err := db.conn.QueryRow(`
		SELECT name, path, decoded_at, total_frames, duration, winner, confidence, method, player_count
		FROM replays WHERE name LIKE ? LIMIT 1`, prefix+"%").
		Scan(&s.Name, &s.Path, &s.DecodedAt, &s.TotalFrames,
			&s.Duration, &s.Winner, &s.Confidence, &s.Method, &s.PlayerCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetPlayerStats returns all player stats for a replay name, ordered by team
// then kills.
func (db *DB) GetPlayerStats(replayName string) ([]model.PlayerStats, error) {
	rows, err := db.conn.Query(`
		SELECT name, team, hero_name, kills, deaths, gold, item_events, truth_kills, truth_deaths
		FROM player_stats WHERE replay_name = ?
		ORDER BY team, kills DESC, name`, replayName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.PlayerStats
	for rows.Next() {
		var s model.PlayerStats
		var teamStr string
		var truthKills, truthDeaths sql.NullInt64
		if err := rows.Scan(&s.Name, &teamStr, &s.HeroName,
			&s.Kills, &s.Deaths, &s.Gold, &s.ItemEvents,
			&truthKills, &truthDeaths); err != nil {
			return nil, err
		}
		s.ReplayName = replayName
		s.Team = model.ParseTeam(teamStr)
		if truthKills.Valid {
			v := int(truthKills.Int64)
			s.TruthKills = &v
		}
		if truthDeaths.Valid {
			v := int(truthDeaths.Int64)
			s.TruthDeaths = &v
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func nullableInt(p *int) interface{} {
	if p == nil {
		return nil
	}
	return *p
}
