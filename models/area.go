package models

// Area is a single risk area as listed on the source page.
// Addr is the residual address text after the region token was stripped.
// Origin is set only on corrected areas and points at a copy of the
// uncorrected record; it never carries an Origin of its own.
type Area struct {
	Province string `json:"province"`
	City     string `json:"city"`
	Region   string `json:"region"`
	Addr     string `json:"addr"`
	Origin   *Area  `json:"origin,omitempty"`
}

// Field names one of the four address fields of an Area.
type Field int

const (
	FieldProvince Field = iota
	FieldCity
	FieldRegion
	FieldAddr
)

func (f Field) String() string {
	switch f {
	case FieldProvince:
		return "province"
	case FieldCity:
		return "city"
	case FieldRegion:
		return "region"
	case FieldAddr:
		return "addr"
	}
	return "unknown"
}

// Get returns the value of field f.
func (a Area) Get(f Field) string {
	switch f {
	case FieldProvince:
		return a.Province
	case FieldCity:
		return a.City
	case FieldRegion:
		return a.Region
	case FieldAddr:
		return a.Addr
	}
	return ""
}

func (*Area) node() {}

// ChangeSet holds the areas added to and removed from a list between two
// snapshots, in the iteration order of the list they were taken from.
type ChangeSet struct {
	Add    []Area `json:"add"`
	Remove []Area `json:"remove"`
}

// Empty reports whether the change set carries no additions or removals.
func (c ChangeSet) Empty() bool {
	return len(c.Add) == 0 && len(c.Remove) == 0
}

// LabeledChanges pairs a change set with its label, usually a risk level.
type LabeledChanges struct {
	Label   string
	Changes ChangeSet
}

// KeyedChanges is one entry of a change set regrouped by an Area field.
// ByLabel only carries the labels whose additions or removals touch Key.
type KeyedChanges struct {
	Key     string
	ByLabel map[string]*ChangeSet
}
