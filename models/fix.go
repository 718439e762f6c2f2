package models

// AreaPatch is a partial set of replacement field values. Nil fields are
// left untouched when the patch is applied.
type AreaPatch struct {
	Province *string `json:"province,omitempty"`
	City     *string `json:"city,omitempty"`
	Region   *string `json:"region,omitempty"`
	Addr     *string `json:"addr,omitempty"`
}

// AreaFix is a manual correction of the area Data, matched by address.
type AreaFix struct {
	Data Area      `json:"data"`
	Fix  AreaPatch `json:"fix"`
}
