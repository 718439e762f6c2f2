package models

// Level is the tree depth an AreaGroup was grouped at.
type Level int

const (
	// LevelNone marks synthetic groups that were not built from an Area
	// field, such as the per-risk-level wrappers of a report.
	LevelNone Level = iota
	LevelProvince
	LevelCity
	LevelRegion
)

func (l Level) String() string {
	switch l {
	case LevelProvince:
		return "province"
	case LevelCity:
		return "city"
	case LevelRegion:
		return "region"
	}
	return ""
}

// Node is either a *AreaGroup or a *Area. The set of implementations is
// closed; switch on the concrete type.
type Node interface {
	node()
}

// AreaGroup is an inner node of the province/city/region tree.
// Exactly one of Groups and Areas is populated. Size is the number of
// Area leaves below the node.
type AreaGroup struct {
	Name   string       `json:"name"`
	Level  Level        `json:"-"`
	Size   int          `json:"size"`
	Groups []*AreaGroup `json:"groups,omitempty"`
	Areas  []Area       `json:"areas,omitempty"`
}

func (*AreaGroup) node() {}

// Cell is one slot of a laid out table. An empty Text marks a slot covered
// by a neighbouring span; renderers skip it.
type Cell struct {
	Text    string `json:"text"`
	Rowspan int    `json:"rowspan"`
	Colspan int    `json:"colspan"`
	New     bool   `json:"new,omitempty"`

	// Origin points into the group tree the grid was laid out from.
	Origin Node `json:"-"`
}
