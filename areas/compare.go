package areas

import "covid-risk-areas/models"

// Compare returns the areas of target missing from source (Add) and the
// areas of source missing from target (Remove), matched by address only.
// A nil source or target means there is nothing to compare against and
// yields an empty change set; a non-nil empty list is compared normally.
func Compare(source, target []models.Area) models.ChangeSet {
	changes := models.ChangeSet{Add: []models.Area{}, Remove: []models.Area{}}
	if source == nil || target == nil {
		return changes
	}

	inSource := addressSet(source)
	inTarget := addressSet(target)

	for _, a := range target {
		if _, ok := inSource[Address(a)]; !ok {
			changes.Add = append(changes.Add, a)
		}
	}
	for _, a := range source {
		if _, ok := inTarget[Address(a)]; !ok {
			changes.Remove = append(changes.Remove, a)
		}
	}
	return changes
}

// GroupChangesBy regroups labelled change sets by field. Keys appear in the
// order they are first met, walking labels in order and, within a label,
// additions before removals. A key only carries the labels that touch it.
func GroupChangesBy(changes []models.LabeledChanges, field models.Field) []models.KeyedChanges {
	out := make([]models.KeyedChanges, 0)
	index := make(map[string]int)

	entry := func(key, label string) *models.ChangeSet {
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, models.KeyedChanges{Key: key, ByLabel: map[string]*models.ChangeSet{}})
		}
		cs, ok := out[i].ByLabel[label]
		if !ok {
			cs = &models.ChangeSet{}
			out[i].ByLabel[label] = cs
		}
		return cs
	}

	for _, lc := range changes {
		for _, a := range lc.Changes.Add {
			cs := entry(a.Get(field), lc.Label)
			cs.Add = append(cs.Add, a)
		}
		for _, a := range lc.Changes.Remove {
			cs := entry(a.Get(field), lc.Label)
			cs.Remove = append(cs.Remove, a)
		}
	}
	return out
}

// SameAreas reports whether two snapshots list the same high and middle
// areas by address, regardless of order and timestamps.
func SameAreas(a, b *models.Snapshot) bool {
	if a == nil || b == nil {
		return a == b
	}
	if len(a.High) != len(b.High) || len(a.Middle) != len(b.Middle) {
		return false
	}
	return Compare(a.High, b.High).Empty() && Compare(a.Middle, b.Middle).Empty()
}
