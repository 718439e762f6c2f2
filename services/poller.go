package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"covid-risk-areas/areas"
	"covid-risk-areas/metrics"
	"covid-risk-areas/models"
	"covid-risk-areas/storage"
	"covid-risk-areas/utils"
)

// Source produces the raw pages of one scrape.
type Source interface {
	Scrape(ctx context.Context) ([]*models.RawPage, error)
}

// ErrEmptyScrape is returned when a scrape yields no areas at all, which
// means the page layout changed or the page failed to render.
var ErrEmptyScrape = errors.New("services: scrape returned no areas")

// Poller scrapes the source, cleans the result and stores it as a new
// snapshot.
type Poller struct {
	source  Source
	cleaner *Cleaner
	store   storage.Store
	raw     storage.RawPageWriter
	logger  *utils.Logger
	limit   int
	now     func() time.Time
}

// NewPoller creates a Poller. raw may be nil to skip the CSV archive.
// limit bounds how many stored snapshots are checked for duplicates.
func NewPoller(source Source, cleaner *Cleaner, store storage.Store, raw storage.RawPageWriter, logger *utils.Logger, limit int) *Poller {
	return &Poller{
		source:  source,
		cleaner: cleaner,
		store:   store,
		raw:     raw,
		logger:  logger,
		limit:   limit,
		now:     time.Now,
	}
}

// RunOnce performs one scrape and saves the snapshot. Stored snapshots with
// the same areas that were never exported are replaced by the new one.
func (p *Poller) RunOnce(ctx context.Context) (*models.Snapshot, error) {
	start := p.now()
	metrics.ScrapesTotal.Inc()

	pages, err := p.source.Scrape(ctx)
	metrics.ScrapeDurationMs.Observe(float64(p.now().Sub(start).Milliseconds()))
	if err != nil {
		metrics.ScrapeFailuresTotal.Inc()
		return nil, fmt.Errorf("poller: scrape: %w", err)
	}

	if p.raw != nil {
		for _, page := range pages {
			if err := p.raw.WriteRaw(page); err != nil {
				p.logger.Warn("[poller] Failed to archive raw page %s: %v", page.Source, err)
			}
		}
	}

	snap := p.cleaner.Clean(pages...)
	if len(snap.High)+len(snap.Middle) == 0 {
		metrics.ScrapeFailuresTotal.Inc()
		return nil, ErrEmptyScrape
	}
	snap.ID = uuid.NewString()
	snap.Create = start.UnixMilli()
	if snap.Update == 0 {
		snap.Update = snap.Create
	}

	existing, err := storage.Direct(p.store).Latest(ctx, p.limit)
	if err != nil {
		return nil, fmt.Errorf("poller: load snapshots: %w", err)
	}
	for _, old := range existing {
		if old.Download && old.Update == snap.Update && areas.SameAreas(old, snap) {
			p.logger.Info("[poller] Snapshot %s already exported, nothing new", old.ID)
			return old, nil
		}
	}
	for _, old := range existing {
		if old.Download || old.ID == "" || !areas.SameAreas(old, snap) {
			continue
		}
		if err := p.store.Delete(ctx, old.ID); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("poller: drop duplicate %s: %w", old.ID, err)
		}
		p.logger.Debug("[poller] Replaced unchanged snapshot %s", old.ID)
	}

	if err := p.store.Save(ctx, snap); err != nil {
		return nil, fmt.Errorf("poller: save snapshot: %w", err)
	}

	metrics.SnapshotsSavedTotal.Inc()
	metrics.Areas.WithLabelValues(LevelHigh).Set(float64(len(snap.High)))
	metrics.Areas.WithLabelValues(LevelMiddle).Set(float64(len(snap.Middle)))
	p.logger.Info("[poller] Saved snapshot %s: %d high / %d middle (as of %s)",
		snap.ID, len(snap.High), len(snap.Middle), utils.FormatMonthDayTime(snap.UpdatedAt()))
	return snap, nil
}

// Start runs one scrape right away and then one at every multiple of every
// since midnight, Shanghai time, until ctx is done. Failed runs are logged
// and the schedule continues.
func (p *Poller) Start(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = 6 * time.Hour
	}
	p.run(ctx)

	for {
		next := NextTick(p.now(), every)
		p.logger.Info("[poller] Next scrape at %s", next.Format(time.DateTime))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			p.logger.Info("[poller] Stopped")
			return
		case <-timer.C:
		}
		p.run(ctx)
	}
}

func (p *Poller) run(ctx context.Context) {
	if _, err := p.RunOnce(ctx); err != nil {
		p.logger.Error("[poller] %v", err)
	}
}

// NextTick returns the first multiple of every after the Shanghai midnight
// of now that lies strictly after now. Ticks restart at every midnight.
func NextTick(now time.Time, every time.Duration) time.Time {
	local := now.In(utils.ShanghaiLocation())
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, local.Location())
	nextMidnight := midnight.AddDate(0, 0, 1)

	next := midnight.Add((local.Sub(midnight)/every + 1) * every)
	if next.After(nextMidnight) {
		next = nextMidnight
	}
	return next
}
