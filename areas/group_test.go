package areas

import (
	"testing"

	"covid-risk-areas/models"
)

func sampleAreas() []models.Area {
	return []models.Area{
		area("上海", "上海", "浦东新区", "张江镇祖冲之路"),
		area("广东", "广州", "白云区", "太和镇"),
		area("上海", "上海", "黄浦区", "南京东路"),
		area("上海", "上海", "浦东新区", "川沙镇"),
		area("广东", "深圳", "南山区", "粤海街道"),
		area("广东", "广州", "", "某小区"),
	}
}

func countLeaves(t *testing.T, g *models.AreaGroup) int {
	t.Helper()
	n := len(g.Areas)
	for _, child := range g.Groups {
		n += countLeaves(t, child)
	}
	if g.Size != n {
		t.Errorf("group %q (%s): size %d, leaves %d", g.Name, g.Level, g.Size, n)
	}
	if len(g.Groups) > 0 && len(g.Areas) > 0 {
		t.Errorf("group %q holds both groups and areas", g.Name)
	}
	return n
}

func TestGroupSingleArea(t *testing.T) {
	a := area("上海", "浦东", "张江镇", "祖冲之路")
	groups := Group([]models.Area{a})

	if len(groups) != 1 {
		t.Fatalf("top-level groups: got %d, want 1", len(groups))
	}
	p := groups[0]
	if p.Name != "上海" || p.Size != 1 || p.Level != models.LevelProvince {
		t.Errorf("province: got %+v", p)
	}
	if len(p.Groups) != 1 || p.Groups[0].Name != "浦东" || p.Groups[0].Size != 1 {
		t.Fatalf("city: got %+v", p.Groups)
	}
	r := p.Groups[0].Groups
	if len(r) != 1 || r[0].Name != "张江镇" || r[0].Size != 1 || r[0].Level != models.LevelRegion {
		t.Fatalf("region: got %+v", r)
	}
	if len(r[0].Areas) != 1 || r[0].Areas[0] != a {
		t.Errorf("leaves: got %+v, want [%+v]", r[0].Areas, a)
	}
}

func TestGroupIsPartition(t *testing.T) {
	list := sampleAreas()
	groups := Group(list)

	total := 0
	seen := make(map[string]int)
	for _, g := range groups {
		total += countLeaves(t, g)
		for _, a := range Leaves(g) {
			seen[Address(a)]++
		}
	}
	if total != len(list) {
		t.Errorf("leaf count: got %d, want %d", total, len(list))
	}
	for _, a := range list {
		if seen[Address(a)] != 1 {
			t.Errorf("%s appears %d times", Address(a), seen[Address(a)])
		}
	}
}

func TestGroupKeepsFirstSeenOrder(t *testing.T) {
	groups := Group(sampleAreas())

	var provinces []string
	for _, g := range groups {
		provinces = append(provinces, g.Name)
	}
	if len(provinces) != 2 || provinces[0] != "上海" || provinces[1] != "广东" {
		t.Errorf("provinces: got %v, want [上海 广东]", provinces)
	}

	cities := groups[1].Groups
	if len(cities) != 2 || cities[0].Name != "广州" || cities[1].Name != "深圳" {
		t.Errorf("广东 cities: got %d groups", len(cities))
	}

	regions := groups[0].Groups[0].Groups
	if regions[0].Name != "浦东新区" || regions[0].Size != 2 || regions[1].Name != "黄浦区" {
		t.Errorf("上海 regions: got %q(%d), %q", regions[0].Name, regions[0].Size, regions[1].Name)
	}
}

func TestGroupEmptyRegionIsAKey(t *testing.T) {
	groups := Group(sampleAreas())
	guangzhou := groups[1].Groups[0]

	if len(guangzhou.Groups) != 2 {
		t.Fatalf("广州 regions: got %d, want 2", len(guangzhou.Groups))
	}
	if guangzhou.Groups[1].Name != "" || guangzhou.Groups[1].Size != 1 {
		t.Errorf("empty region group: got %q(%d)", guangzhou.Groups[1].Name, guangzhou.Groups[1].Size)
	}
}

func TestGroupRepeatedRegionStaysFlat(t *testing.T) {
	list := []models.Area{
		area("上海", "上海", "浦东新区", "a"),
		area("上海", "上海", "浦东新区", "a"),
	}
	region := Group(list)[0].Groups[0].Groups[0]
	if len(region.Areas) != 2 || len(region.Groups) != 0 {
		t.Errorf("region leaves: got %d areas, %d groups", len(region.Areas), len(region.Groups))
	}
}

func TestGroupEmptyInput(t *testing.T) {
	if got := Group(nil); len(got) != 0 {
		t.Errorf("Group(nil): got %d groups, want 0", len(got))
	}
}

func TestGroupDoesNotMutateInput(t *testing.T) {
	list := sampleAreas()
	before := append([]models.Area(nil), list...)
	groups := Group(list)
	groups[0].Groups[0].Groups[0].Areas[0].Addr = "changed"

	for i := range list {
		if list[i] != before[i] {
			t.Errorf("input %d changed: %+v", i, list[i])
		}
	}
}

func TestWrapSumsSizes(t *testing.T) {
	w := Wrap("高风险地区", Group(sampleAreas()))
	if w.Size != 6 || w.Level != models.LevelNone {
		t.Errorf("Wrap: got size %d level %v", w.Size, w.Level)
	}
}
