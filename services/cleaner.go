package services

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"covid-risk-areas/areas"
	"covid-risk-areas/models"
	"covid-risk-areas/utils"
)

var (
	// regionRegexp captures the leading district/county/city/town token
	regionRegexp = regexp.MustCompile(`(\S*?[区县市镇])`)

	pageTimeLayouts = []string{
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006/01/02 15:04",
		"2006年1月2日15:04",
		"2006年1月2日 15:04",
		"2006年1月2日15时",
		"2006年1月2日 15时",
		"2006年1月2日",
		"2006-01-02",
	}
)

// Cleaner transforms raw scraped pages into a snapshot body.
type Cleaner struct {
	logger *utils.Logger
}

// NewCleaner creates a Cleaner with the given logger.
func NewCleaner(logger *utils.Logger) *Cleaner {
	return &Cleaner{logger: logger}
}

// Clean merges the pages into one snapshot. Entries are split into region
// and residual address; empty entries and repeated addresses within a risk
// level are dropped. Update is the latest page time that parses, or the
// latest scrape time when none does. ID and Create are left to the caller.
func (c *Cleaner) Clean(pages ...*models.RawPage) *models.Snapshot {
	snap := &models.Snapshot{High: []models.Area{}, Middle: []models.Area{}}
	highSeen := utils.NewStringSet()
	middleSeen := utils.NewStringSet()

	var updated, scraped time.Time
	raw, dropped := 0, 0

	for _, page := range pages {
		if page == nil {
			continue
		}
		if t, ok := parsePageTime(page.Time); ok && t.After(updated) {
			updated = t
		} else if !ok && page.Time != "" {
			c.logger.Warn("[cleaner] Unrecognised page time %q from %s", page.Time, page.Source)
		}
		if page.ScrapedAt.After(scraped) {
			scraped = page.ScrapedAt
		}

		var n, d int
		snap.High, n, d = c.cleanGroups(snap.High, page.High, highSeen)
		raw, dropped = raw+n, dropped+d
		snap.Middle, n, d = c.cleanGroups(snap.Middle, page.Middle, middleSeen)
		raw, dropped = raw+n, dropped+d
	}

	if updated.IsZero() {
		updated = scraped
	}
	if !updated.IsZero() {
		snap.Update = updated.UnixMilli()
	}

	c.logger.Info("[cleaner] Cleaned %d → %d areas (dropped %d), %d high / %d middle",
		raw, raw-dropped, dropped, len(snap.High), len(snap.Middle))
	return snap
}

func (c *Cleaner) cleanGroups(out []models.Area, groups []models.RawGroup, seen *utils.StringSet) ([]models.Area, int, int) {
	raw, dropped := 0, 0
	for _, g := range groups {
		province := normaliseText(g.Province)
		city := normaliseText(g.City)
		for _, entry := range g.Entries {
			raw++
			entry = normaliseText(entry)
			if entry == "" {
				dropped++
				continue
			}
			region, addr := SplitRegion(entry)
			a := models.Area{Province: province, City: city, Region: region, Addr: addr}
			if !seen.Add(areas.Address(a)) {
				c.logger.Debug("[cleaner] Duplicate area skipped: %s", areas.Address(a))
				dropped++
				continue
			}
			out = append(out, a)
		}
	}
	return out, raw, dropped
}

// SplitRegion splits an entry into its first region token and the rest of
// the entry with that token removed. Entries without a token keep their
// full text as the address.
func SplitRegion(entry string) (region, addr string) {
	m := regionRegexp.FindStringSubmatch(entry)
	if len(m) < 2 {
		return "", entry
	}
	region = m[1]
	return region, strings.TrimSpace(strings.Replace(entry, region, "", 1))
}

// parsePageTime reads the "截至…" as-of time of the source page.
func parsePageTime(raw string) (time.Time, bool) {
	s := normaliseText(raw)
	s = strings.TrimPrefix(s, "截至")
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range pageTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, utils.ShanghaiLocation()); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	s = strings.TrimSpace(s)
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r)
	})
	return strings.Join(fields, " ")
}
