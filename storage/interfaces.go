package storage

import (
	"context"
	"errors"

	"covid-risk-areas/models"
)

// ErrNotFound is returned when a snapshot addressed by ID or create time
// does not exist.
var ErrNotFound = errors.New("storage: not found")

// SnapshotStore persists scraped snapshots.
type SnapshotStore interface {
	// Latest returns up to limit snapshots with the newest Create, ordered
	// by Create ascending. limit <= 0 returns all of them.
	Latest(ctx context.Context, limit int) ([]*models.Snapshot, error)
	// Save inserts s, replacing a stored snapshot with the same Update.
	Save(ctx context.Context, s *models.Snapshot) error
	Delete(ctx context.Context, id string) error
	MarkDownloaded(ctx context.Context, create int64) error
}

// FixStore persists pending area fixes.
type FixStore interface {
	Fixes(ctx context.Context) ([]models.AreaFix, error)
	// SaveFixes replaces the stored fixes with fixes.
	SaveFixes(ctx context.Context, fixes []models.AreaFix) error
}

// Store is the interface any storage backend must satisfy.
type Store interface {
	SnapshotStore
	FixStore
	Close() error
}

// RawPageWriter is the interface for archiving unprocessed scraped pages.
type RawPageWriter interface {
	WriteRaw(page *models.RawPage) error
	Close() error
}
