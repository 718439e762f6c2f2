package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"covid-risk-areas/models"
	"covid-risk-areas/utils"
)

// JSONStore keeps snapshots in data.json and fixes in fixes.json under one
// directory. Both files are read once and then served from memory; every
// write rewrites the affected file through a temp file and rename.
// It is safe for concurrent use.
type JSONStore struct {
	mu        sync.Mutex
	dataPath  string
	fixesPath string
	logger    *utils.Logger

	loaded    bool
	snapshots []*models.Snapshot
	fixes     []models.AreaFix
}

// NewJSONStore creates the directory if needed and returns a store rooted
// there. Files are not read until first use.
func NewJSONStore(dir string) (*JSONStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("json store: create dir: %w", err)
	}
	return &JSONStore{
		dataPath:  filepath.Join(dir, "data.json"),
		fixesPath: filepath.Join(dir, "fixes.json"),
		logger:    utils.Discard(),
	}, nil
}

// WithLogger sets the logger used to report damaged files.
func (s *JSONStore) WithLogger(l *utils.Logger) *JSONStore {
	if l != nil {
		s.logger = l
	}
	return s
}

// load reads both files on first use. A missing file starts empty, matching
// a first run. A file that does not decode is moved aside to <name>.corrupt
// and the store starts empty.
func (s *JSONStore) load() error {
	if s.loaded {
		return nil
	}
	snapshots, err := readJSON[[]*models.Snapshot](s.dataPath, s.logger)
	if err != nil {
		return err
	}
	fixes, err := readJSON[[]models.AreaFix](s.fixesPath, s.logger)
	if err != nil {
		return err
	}
	sortByCreate(snapshots)
	s.snapshots, s.fixes = snapshots, fixes
	s.loaded = true
	return nil
}

func readJSON[T any](path string, logger *utils.Logger) (T, error) {
	var v T
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return v, nil
	}
	if err != nil {
		return v, fmt.Errorf("json store: read %s: %w", filepath.Base(path), err)
	}
	if len(data) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(data, &v); err != nil {
		aside := path + ".corrupt"
		if rerr := os.Rename(path, aside); rerr != nil {
			return v, fmt.Errorf("json store: move aside damaged %s: %w", filepath.Base(path), rerr)
		}
		logger.Warn("[json store] %s does not decode (%v), moved to %s and starting empty",
			filepath.Base(path), err, filepath.Base(aside))
		var empty T
		return empty, nil
	}
	return v, nil
}

func writeJSON(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("json store: encode %s: %w", filepath.Base(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("json store: write %s: %w", filepath.Base(tmp), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("json store: replace %s: %w", filepath.Base(path), err)
	}
	return nil
}

func (s *JSONStore) Latest(_ context.Context, limit int) ([]*models.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return nil, err
	}

	items := s.snapshots
	if limit > 0 && len(items) > limit {
		items = items[len(items)-limit:]
	}
	out := make([]*models.Snapshot, len(items))
	for i, snap := range items {
		out[i] = snap.Clone()
	}
	return out, nil
}

func (s *JSONStore) Save(_ context.Context, snap *models.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return err
	}

	next := make([]*models.Snapshot, 0, len(s.snapshots)+1)
	for _, existing := range s.snapshots {
		if existing.Update != snap.Update {
			next = append(next, existing)
		}
	}
	next = append(next, snap.Clone())
	sortByCreate(next)

	if err := writeJSON(s.dataPath, next); err != nil {
		return err
	}
	s.snapshots = next
	return nil
}

func (s *JSONStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return err
	}

	next := make([]*models.Snapshot, 0, len(s.snapshots))
	for _, existing := range s.snapshots {
		if existing.ID != id {
			next = append(next, existing)
		}
	}
	if len(next) == len(s.snapshots) {
		return ErrNotFound
	}
	if err := writeJSON(s.dataPath, next); err != nil {
		return err
	}
	s.snapshots = next
	return nil
}

func (s *JSONStore) MarkDownloaded(_ context.Context, create int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return err
	}

	next := make([]*models.Snapshot, len(s.snapshots))
	found := false
	for i, existing := range s.snapshots {
		next[i] = existing
		if existing.Create == create {
			c := existing.Clone()
			c.Download = true
			next[i] = c
			found = true
		}
	}
	if !found {
		return ErrNotFound
	}
	if err := writeJSON(s.dataPath, next); err != nil {
		return err
	}
	s.snapshots = next
	return nil
}

func (s *JSONStore) Fixes(_ context.Context) ([]models.AreaFix, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return nil, err
	}
	return append([]models.AreaFix(nil), s.fixes...), nil
}

func (s *JSONStore) SaveFixes(_ context.Context, fixes []models.AreaFix) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return err
	}
	next := append([]models.AreaFix{}, fixes...)
	if err := writeJSON(s.fixesPath, next); err != nil {
		return err
	}
	s.fixes = next
	return nil
}

func (s *JSONStore) Close() error { return nil }

func sortByCreate(list []*models.Snapshot) {
	sort.SliceStable(list, func(i, j int) bool { return list[i].Create < list[j].Create })
}
