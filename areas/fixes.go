package areas

import "covid-risk-areas/models"

// Patch returns a with the non-nil fields of p applied. Origin is cleared.
func Patch(a models.Area, p models.AreaPatch) models.Area {
	out := models.Area{Province: a.Province, City: a.City, Region: a.Region, Addr: a.Addr}
	if p.Province != nil {
		out.Province = *p.Province
	}
	if p.City != nil {
		out.City = *p.City
	}
	if p.Region != nil {
		out.Region = *p.Region
	}
	if p.Addr != nil {
		out.Addr = *p.Addr
	}
	return out
}

// ApplyFixes returns list with every area that has a fix replaced by its
// corrected copy. The first fix whose Data shares the area's address wins.
// A corrected area keeps a copy of the uncorrected one in Origin; areas
// without a fix are returned with Origin cleared.
func ApplyFixes(list []models.Area, fixes []models.AreaFix) []models.Area {
	index := make(map[string]int, len(fixes))
	for i, f := range fixes {
		key := Address(f.Data)
		if _, ok := index[key]; !ok {
			index[key] = i
		}
	}

	out := make([]models.Area, len(list))
	for i, a := range list {
		plain := models.Area{Province: a.Province, City: a.City, Region: a.Region, Addr: a.Addr}
		j, ok := index[Address(a)]
		if !ok {
			out[i] = plain
			continue
		}
		fixed := Patch(plain, fixes[j].Fix)
		origin := plain
		fixed.Origin = &origin
		out[i] = fixed
	}
	return out
}

// ApplySnapshotFixes applies fixes to the high and middle lists of every
// snapshot. The snapshots passed in are left untouched.
func ApplySnapshotFixes(snaps []*models.Snapshot, fixes []models.AreaFix) []*models.Snapshot {
	out := make([]*models.Snapshot, len(snaps))
	for i, s := range snaps {
		c := *s
		c.High = ApplyFixes(s.High, fixes)
		c.Middle = ApplyFixes(s.Middle, fixes)
		out[i] = &c
	}
	return out
}

// ReconcileFixes folds incoming into existing. Fixes sharing the address of
// their Data are merged into one, later non-nil fields overriding earlier
// ones; the first fix for an address fixes its position. Fixes that leave
// their Data unchanged once applied are dropped.
func ReconcileFixes(existing, incoming []models.AreaFix) []models.AreaFix {
	var order []string
	merged := make(map[string]models.AreaFix)

	for _, f := range append(append([]models.AreaFix(nil), existing...), incoming...) {
		key := Address(f.Data)
		acc, ok := merged[key]
		if !ok {
			order = append(order, key)
			acc = models.AreaFix{Data: models.Area{
				Province: f.Data.Province,
				City:     f.Data.City,
				Region:   f.Data.Region,
				Addr:     f.Data.Addr,
			}}
		}
		acc.Fix = mergePatch(acc.Fix, f.Fix)
		merged[key] = acc
	}

	out := make([]models.AreaFix, 0, len(order))
	for _, key := range order {
		f := merged[key]
		if EqualArea(Patch(f.Data, f.Fix), f.Data) {
			continue
		}
		out = append(out, f)
	}
	return out
}

func mergePatch(base, over models.AreaPatch) models.AreaPatch {
	if over.Province != nil {
		base.Province = copyString(over.Province)
	}
	if over.City != nil {
		base.City = copyString(over.City)
	}
	if over.Region != nil {
		base.Region = copyString(over.Region)
	}
	if over.Addr != nil {
		base.Addr = copyString(over.Addr)
	}
	return base
}

func copyString(s *string) *string {
	v := *s
	return &v
}
