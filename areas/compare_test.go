package areas

import (
	"reflect"
	"testing"

	"covid-risk-areas/models"
)

func addresses(list []models.Area) []string {
	out := make([]string, 0, len(list))
	for _, a := range list {
		out = append(out, Address(a))
	}
	return out
}

func TestCompareAgainstEmpty(t *testing.T) {
	a1 := area("上海", "上海", "浦东新区", "张江镇")

	got := Compare([]models.Area{}, []models.Area{a1})
	if len(got.Add) != 1 || got.Add[0] != a1 || len(got.Remove) != 0 {
		t.Errorf("Compare([], [a1]): got %+v", got)
	}

	got = Compare([]models.Area{a1}, []models.Area{})
	if len(got.Remove) != 1 || got.Remove[0] != a1 || len(got.Add) != 0 {
		t.Errorf("Compare([a1], []): got %+v", got)
	}
}

func TestCompareMissingSide(t *testing.T) {
	list := sampleAreas()
	tests := []struct {
		name           string
		source, target []models.Area
	}{
		{"nil source", nil, list},
		{"nil target", list, nil},
		{"both nil", nil, nil},
	}
	for _, tt := range tests {
		got := Compare(tt.source, tt.target)
		if !got.Empty() {
			t.Errorf("%s: got %+v, want empty", tt.name, got)
		}
		if got.Add == nil || got.Remove == nil {
			t.Errorf("%s: change lists should be non-nil", tt.name)
		}
	}
}

func TestCompareIdentity(t *testing.T) {
	list := sampleAreas()
	if got := Compare(list, list); !got.Empty() {
		t.Errorf("Compare(A, A): got %+v, want empty", got)
	}
}

func TestCompareSymmetry(t *testing.T) {
	a := sampleAreas()[:4]
	b := append([]models.Area{area("北京", "北京", "朝阳区", "某街道")}, sampleAreas()[2:]...)

	ab := Compare(a, b)
	ba := Compare(b, a)

	if !reflect.DeepEqual(addresses(ab.Add), addresses(ba.Remove)) {
		t.Errorf("add(A,B) %v != remove(B,A) %v", addresses(ab.Add), addresses(ba.Remove))
	}
	if !reflect.DeepEqual(addresses(ab.Remove), addresses(ba.Add)) {
		t.Errorf("remove(A,B) %v != add(B,A) %v", addresses(ab.Remove), addresses(ba.Add))
	}
}

func TestCompareKeepsListOrder(t *testing.T) {
	source := []models.Area{
		area("a", "", "", "1"),
		area("b", "", "", "2"),
		area("c", "", "", "3"),
	}
	target := []models.Area{
		area("z", "", "", "9"),
		area("b", "", "", "2"),
		area("y", "", "", "8"),
	}
	got := Compare(source, target)

	if want := []string{"z9", "y8"}; !reflect.DeepEqual(addresses(got.Add), want) {
		t.Errorf("add: got %v, want %v", addresses(got.Add), want)
	}
	if want := []string{"a1", "c3"}; !reflect.DeepEqual(addresses(got.Remove), want) {
		t.Errorf("remove: got %v, want %v", addresses(got.Remove), want)
	}
}

func TestCompareMatchesByAddressOnly(t *testing.T) {
	source := []models.Area{area("上海", "上海", "浦东新区", "张江镇")}
	target := []models.Area{area("上海", "上海", "", "浦东新区张江镇")}
	if got := Compare(source, target); !got.Empty() {
		t.Errorf("resplit region should not count as a change: %+v", got)
	}
}

func TestGroupChangesByProvince(t *testing.T) {
	high := models.ChangeSet{
		Add:    []models.Area{area("上海", "上海", "浦东新区", "a"), area("广东", "广州", "白云区", "b")},
		Remove: []models.Area{area("上海", "上海", "黄浦区", "c")},
	}
	middle := models.ChangeSet{
		Add: []models.Area{area("北京", "北京", "朝阳区", "d")},
	}

	got := GroupChangesBy([]models.LabeledChanges{
		{Label: "high", Changes: high},
		{Label: "middle", Changes: middle},
	}, models.FieldProvince)

	var keys []string
	for _, kc := range got {
		keys = append(keys, kc.Key)
	}
	if want := []string{"上海", "广东", "北京"}; !reflect.DeepEqual(keys, want) {
		t.Fatalf("keys: got %v, want %v", keys, want)
	}

	sh := got[0].ByLabel
	if len(sh) != 1 || sh["high"] == nil {
		t.Fatalf("上海 labels: got %v", sh)
	}
	if len(sh["high"].Add) != 1 || len(sh["high"].Remove) != 1 {
		t.Errorf("上海 high: got %d add, %d remove", len(sh["high"].Add), len(sh["high"].Remove))
	}

	gd := got[1].ByLabel
	if gd["middle"] != nil {
		t.Error("广东 should not carry an untouched middle branch")
	}
	if len(gd["high"].Add) != 1 || len(gd["high"].Remove) != 0 {
		t.Errorf("广东 high: got %+v", gd["high"])
	}

	bj := got[2].ByLabel
	if bj["high"] != nil || len(bj["middle"].Add) != 1 {
		t.Errorf("北京: got %v", bj)
	}
}

func TestGroupChangesByEmpty(t *testing.T) {
	got := GroupChangesBy([]models.LabeledChanges{{Label: "high", Changes: models.ChangeSet{}}}, models.FieldProvince)
	if len(got) != 0 {
		t.Errorf("got %d keys, want 0", len(got))
	}
}

func TestSameAreas(t *testing.T) {
	a := &models.Snapshot{High: sampleAreas()[:2], Middle: sampleAreas()[2:], Create: 1}
	b := &models.Snapshot{High: []models.Area{sampleAreas()[1], sampleAreas()[0]}, Middle: sampleAreas()[2:], Create: 2}
	if !SameAreas(a, b) {
		t.Error("reordered lists should be the same")
	}

	c := a.Clone()
	c.Middle = c.Middle[1:]
	if SameAreas(a, c) {
		t.Error("a dropped middle area should differ")
	}
}
