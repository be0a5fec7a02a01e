package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"  // postgres driver
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/okian/crystalball/internal/domain/features"
	"github.com/okian/crystalball/internal/domain/match"
	"github.com/okian/crystalball/internal/domain/stats"
	"github.com/okian/crystalball/internal/domain/teamkey"
	"github.com/okian/crystalball/pkg/metrics"
)

// Supported database/sql driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// SQLStore implements Store on database/sql for sqlite and postgres.
type SQLStore struct {
	db     *sql.DB
	driver string
	prefix string
}

// Open connects to dsn with driver, verifies the connection and creates
// missing tables.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*SQLStore, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if driver == DriverSQLite {
		// An in-memory sqlite database lives in a single connection.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	s := &SQLStore{db: db, driver: driver}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) table(name string) string { return s.prefix + name }

// rebind rewrites ? placeholders into the driver's syntax.
func (s *SQLStore) rebind(q string) string {
	if s.driver != DriverPostgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// enrichedColumn is one side-stat column of the enriched table.
type enrichedColumn struct {
	feature features.Feature
	integer bool
}

func enrichedColumns() []enrichedColumn {
	var cols []enrichedColumn
	for _, side := range []features.Side{features.Side1, features.Side2} {
		for _, window := range []features.WindowKind{features.Recent, features.AllTime} {
			for _, stat := range stats.StatNames {
				cols = append(cols, enrichedColumn{
					feature: features.Stat(stat, window, side),
					integer: stat != stats.MatchesWonPercent,
				})
			}
		}
	}
	return cols
}

func (s *SQLStore) migrate(ctx context.Context) error {
	statsCols := []string{
		"team_key TEXT PRIMARY KEY",
		"team TEXT NOT NULL",
		"period TEXT NOT NULL",
	}
	for _, stat := range stats.StatNames {
		typ := "INTEGER"
		if stat == stats.MatchesWonPercent {
			typ = "DOUBLE PRECISION"
		}
		statsCols = append(statsCols, fmt.Sprintf("%s %s NOT NULL", stat, typ))
	}

	enrichedCols := []string{
		"id BIGINT PRIMARY KEY",
		"team1 TEXT NOT NULL",
		"team2 TEXT NOT NULL",
		"score1 INTEGER NOT NULL",
		"score2 INTEGER NOT NULL",
		"year INTEGER NOT NULL",
		"score_diff INTEGER NOT NULL",
		"winner INTEGER NOT NULL",
	}
	for _, c := range enrichedColumns() {
		typ := "DOUBLE PRECISION"
		if c.integer {
			typ = "INTEGER"
		}
		enrichedCols = append(enrichedCols, fmt.Sprintf("%s %s NOT NULL", c.feature.Name, typ))
	}

	ddl := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id BIGINT PRIMARY KEY,
			team1 TEXT NOT NULL,
			team2 TEXT NOT NULL,
			score1 INTEGER NOT NULL,
			score2 INTEGER NOT NULL,
			year INTEGER NOT NULL
		)`, s.table("matches")),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (year)", s.table("matches_year_idx"), s.table("matches")),
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", s.table("team_stats"), strings.Join(statsCols, ", ")),
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", s.table("enriched_matches"), strings.Join(enrichedCols, ", ")),
	}
	for _, q := range ddl {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// LoadMatches reads every stored match ordered by id.
func (s *SQLStore) LoadMatches(ctx context.Context) (*match.Table, error) {
	defer observe("load_matches", time.Now())
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		"SELECT id, team1, team2, score1, score2, year FROM %s ORDER BY id", s.table("matches")))
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	var out []match.Match
	for rows.Next() {
		var m match.Match
		if err := rows.Scan(&m.ID, &m.Team1, &m.Team2, &m.Score1, &m.Score2, &m.Year); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read matches: %w", err)
	}
	return match.NewTable(out)
}

// SaveMatches upserts every match of table by id.
func (s *SQLStore) SaveMatches(ctx context.Context, table *match.Table) error {
	defer observe("save_matches", time.Now())
	q := s.rebind(fmt.Sprintf(`INSERT INTO %s (id, team1, team2, score1, score2, year)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			team1 = excluded.team1, team2 = excluded.team2,
			score1 = excluded.score1, score2 = excluded.score2, year = excluded.year`, s.table("matches")))
	return s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, q)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for i := 0; i < table.Len(); i++ {
			m := table.At(i)
			if _, err := stmt.ExecContext(ctx, m.ID, m.Team1, m.Team2, m.Score1, m.Score2, m.Year); err != nil {
				return fmt.Errorf("match %d: %w", m.ID, err)
			}
		}
		return nil
	})
}

// SaveStats replaces the exported stats table with snap.
func (s *SQLStore) SaveStats(ctx context.Context, snap *stats.Snapshot) error {
	defer observe("save_stats", time.Now())
	cols := []string{"team_key", "team", "period"}
	for _, stat := range stats.StatNames {
		cols = append(cols, string(stat))
	}
	q := s.rebind(fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		s.table("team_stats"), strings.Join(cols, ", "), placeholders(len(cols))))

	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+s.table("team_stats")); err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx, q)
		if err != nil {
			return err
		}
		defer stmt.Close()

		var execErr error
		snap.Each(func(key string, row stats.Row) {
			if execErr != nil {
				return
			}
			team, window, err := teamkey.Decode(key)
			if err != nil {
				execErr = err
				return
			}
			_, execErr = stmt.ExecContext(ctx, key, team, window.String(),
				row.MatchesPlayed, row.MatchesWon, row.YearsPlayed, row.MatchesWonPercent)
		})
		return execErr
	})
}

// LoadStats returns the exported row stored under key.
func (s *SQLStore) LoadStats(ctx context.Context, key string) (stats.Row, error) {
	defer observe("load_stats", time.Now())
	q := s.rebind(fmt.Sprintf(
		"SELECT matches_played, matches_won, years_played, matches_won_percent FROM %s WHERE team_key = ?",
		s.table("team_stats")))
	var row stats.Row
	err := s.db.QueryRowContext(ctx, q, key).Scan(&row.MatchesPlayed, &row.MatchesWon, &row.YearsPlayed, &row.MatchesWonPercent)
	if errors.Is(err, sql.ErrNoRows) {
		return stats.Row{}, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return stats.Row{}, fmt.Errorf("failed to query stats: %w", err)
	}
	return row, nil
}

// SaveEnriched replaces the exported enriched match table.
func (s *SQLStore) SaveEnriched(ctx context.Context, table *features.Table) error {
	defer observe("save_enriched", time.Now())
	sideCols := enrichedColumns()
	cols := []string{"id", "team1", "team2", "score1", "score2", "year", "score_diff", "winner"}
	for _, c := range sideCols {
		cols = append(cols, c.feature.Name)
	}
	q := s.rebind(fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		s.table("enriched_matches"), strings.Join(cols, ", "), placeholders(len(cols))))

	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+s.table("enriched_matches")); err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx, q)
		if err != nil {
			return err
		}
		defer stmt.Close()

		args := make([]any, 0, len(cols))
		for i := 0; i < table.Len(); i++ {
			r := table.At(i)
			args = append(args[:0], r.Match.ID, r.Match.Team1, r.Match.Team2,
				r.Match.Score1, r.Match.Score2, r.Match.Year, r.ScoreDiff, int(r.Winner))
			for _, c := range sideCols {
				v, err := r.Value(c.feature)
				if err != nil {
					return err
				}
				if c.integer {
					args = append(args, int64(v))
				} else {
					args = append(args, v)
				}
			}
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				return fmt.Errorf("enriched match %d: %w", r.Match.ID, err)
			}
		}
		return nil
	})
}

// CountEnriched returns the number of exported enriched rows.
func (s *SQLStore) CountEnriched(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+s.table("enriched_matches")).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count enriched matches: %w", err)
	}
	return n, nil
}

func (s *SQLStore) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("transaction failed: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func observe(operation string, start time.Time) {
	metrics.RecordRepositoryLatency(operation, float64(time.Since(start).Microseconds())/1000)
}

var _ Store = (*SQLStore)(nil)
