// Package repository persists the match table and exports stats and
// enriched matches for external reporting.
package repository

import (
	"context"

	"github.com/okian/crystalball/internal/domain/features"
	"github.com/okian/crystalball/internal/domain/match"
	"github.com/okian/crystalball/internal/domain/stats"
)

// MatchSource provides the raw match table.
type MatchSource interface {
	LoadMatches(ctx context.Context) (*match.Table, error)
}

// ReportSink receives pipeline outputs. Every save replaces the previous contents.
type ReportSink interface {
	SaveStats(ctx context.Context, snap *stats.Snapshot) error
	SaveEnriched(ctx context.Context, table *features.Table) error
}

// Store provides read/write access to persisted predictor data.
type Store interface {
	MatchSource
	ReportSink

	// SaveMatches upserts every match of table by id.
	SaveMatches(ctx context.Context, table *match.Table) error

	// LoadStats returns the exported stats row stored under key.
	// Returns ErrNotFound if the key is unknown.
	LoadStats(ctx context.Context, key string) (stats.Row, error)

	Close() error
}
