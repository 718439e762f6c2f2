package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"covid-risk-areas/areas"
	"covid-risk-areas/models"
	"covid-risk-areas/storage"
)

// ErrNoData is returned when there is no snapshot to report on.
var ErrNoData = errors.New("services: no snapshot available")

// LatestWithFixes loads up to limit of the newest snapshots with every
// stored fix applied. Snapshots without a scrape time are skipped and only
// the first one per scrape time is kept. The result is sorted oldest first.
func LatestWithFixes(ctx context.Context, store storage.Store, limit int) ([]*models.Snapshot, []models.AreaFix, error) {
	stored, err := store.Latest(ctx, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("services: load snapshots: %w", err)
	}
	fixes, err := store.Fixes(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("services: load fixes: %w", err)
	}

	seen := make(map[int64]bool, len(stored))
	snaps := make([]*models.Snapshot, 0, len(stored))
	for _, s := range stored {
		if s == nil || s.Create == 0 || seen[s.Create] {
			continue
		}
		seen[s.Create] = true
		snaps = append(snaps, s)
	}
	sort.SliceStable(snaps, func(i, j int) bool { return snaps[i].Create < snaps[j].Create })
	if limit > 0 && len(snaps) > limit {
		snaps = snaps[len(snaps)-limit:]
	}

	return areas.ApplySnapshotFixes(snaps, fixes), fixes, nil
}

// SelectPair picks the snapshot to report on and the one to compare it
// against from snaps, sorted oldest first. The current snapshot is always
// the newest. sourceCreate selects the source by scrape time; zero picks
// the snapshot right before the current one. Source is nil when there is
// nothing older.
func SelectPair(snaps []*models.Snapshot, sourceCreate int64) (current, source *models.Snapshot, err error) {
	if len(snaps) == 0 {
		return nil, nil, ErrNoData
	}
	current = snaps[len(snaps)-1]

	if sourceCreate == 0 {
		if len(snaps) > 1 {
			source = snaps[len(snaps)-2]
		}
		return current, source, nil
	}

	for _, s := range snaps[:len(snaps)-1] {
		if s.Create == sourceCreate {
			return current, s, nil
		}
	}
	return nil, nil, fmt.Errorf("services: source snapshot %d: %w", sourceCreate, storage.ErrNotFound)
}
