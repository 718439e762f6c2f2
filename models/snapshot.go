package models

import "time"

// Snapshot is one scrape of the risk area page.
// Create is the scrape time and Update the as-of time reported by the page,
// both in unix milliseconds.
type Snapshot struct {
	ID       string `json:"id,omitempty"`
	High     []Area `json:"high"`
	Middle   []Area `json:"middle"`
	Create   int64  `json:"create"`
	Update   int64  `json:"update"`
	Download bool   `json:"download,omitempty"`
}

func (s *Snapshot) CreatedAt() time.Time { return time.UnixMilli(s.Create) }

func (s *Snapshot) UpdatedAt() time.Time { return time.UnixMilli(s.Update) }

// Clone returns a copy that shares no slices with s.
func (s *Snapshot) Clone() *Snapshot {
	c := *s
	c.High = append([]Area(nil), s.High...)
	c.Middle = append([]Area(nil), s.Middle...)
	return &c
}

// RawGroup is one province/city block of the source page with its
// unprocessed entries.
type RawGroup struct {
	Province string   `json:"province"`
	City     string   `json:"city"`
	Entries  []string `json:"entries"`
}

// RawPage is the unprocessed scrape of the source page.
// It is archived to CSV before any cleaning.
type RawPage struct {
	Source    string     `json:"source"`
	Time      string     `json:"time"`
	High      []RawGroup `json:"high"`
	Middle    []RawGroup `json:"middle"`
	ScrapedAt time.Time  `json:"-"`
}

// ChangeSummary maps province -> risk level -> "add"/"remove" -> addresses.
type ChangeSummary map[string]map[string]map[string][]string

// Statistic is the comparison report of a snapshot against an earlier one.
type Statistic struct {
	HighSize   int           `json:"highSize"`
	MiddleSize int           `json:"middleSize"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`
	SourceAt   *time.Time    `json:"sourceAt,omitempty"`
	Groups     []*AreaGroup  `json:"groups"`
	Rows       [][]Cell      `json:"groupRows"`
	Changes    ChangeSummary `json:"changes"`
	Summary    string        `json:"summary"`
}
