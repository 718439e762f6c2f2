package areas

import "covid-risk-areas/models"

var groupLevels = []struct {
	level models.Level
	field models.Field
}{
	{models.LevelProvince, models.FieldProvince},
	{models.LevelCity, models.FieldCity},
	{models.LevelRegion, models.FieldRegion},
}

// Group builds the province -> city -> region tree of list. Groups keep the
// order in which their key was first seen; region groups hold the areas
// themselves, even when several share a region. An empty field value is a
// key like any other.
func Group(list []models.Area) []*models.AreaGroup {
	return groupAt(list, 0)
}

func groupAt(list []models.Area, depth int) []*models.AreaGroup {
	lvl := groupLevels[depth]

	groups := make([]*models.AreaGroup, 0)
	index := make(map[string]*models.AreaGroup)
	buckets := make(map[*models.AreaGroup][]models.Area)

	for _, a := range list {
		key := a.Get(lvl.field)
		g, ok := index[key]
		if !ok {
			g = &models.AreaGroup{Name: key, Level: lvl.level}
			index[key] = g
			groups = append(groups, g)
		}
		buckets[g] = append(buckets[g], a)
	}

	for _, g := range groups {
		members := buckets[g]
		g.Size = len(members)
		if depth+1 < len(groupLevels) {
			g.Groups = groupAt(members, depth+1)
		} else {
			g.Areas = members
		}
	}
	return groups
}

// Leaves returns the areas below g in tree order.
func Leaves(g *models.AreaGroup) []models.Area {
	if len(g.Groups) == 0 {
		return append([]models.Area(nil), g.Areas...)
	}
	var out []models.Area
	for _, child := range g.Groups {
		out = append(out, Leaves(child)...)
	}
	return out
}

// Wrap puts groups under a synthetic parent named name. The parent's size is
// the sum of its children's sizes.
func Wrap(name string, groups []*models.AreaGroup) *models.AreaGroup {
	size := 0
	for _, g := range groups {
		size += g.Size
	}
	return &models.AreaGroup{Name: name, Level: models.LevelNone, Size: size, Groups: groups}
}
