package areas

import (
	"testing"

	"covid-risk-areas/models"
)

func str(s string) *string { return &s }

func TestApplyFixesReplacesAndKeepsOrigin(t *testing.T) {
	a := area("上海", "上海", "浦东新区", "张江镇")
	fixes := []models.AreaFix{{Data: a, Fix: models.AreaPatch{Addr: str("新地址")}}}

	got := ApplyFixes([]models.Area{a}, fixes)
	if len(got) != 1 {
		t.Fatalf("len: got %d, want 1", len(got))
	}
	want := area("上海", "上海", "浦东新区", "新地址")
	if !EqualArea(got[0], want) {
		t.Errorf("fixed area: got %+v, want %+v", got[0], want)
	}
	if got[0].Origin == nil || *got[0].Origin != a {
		t.Errorf("origin: got %+v, want %+v", got[0].Origin, a)
	}
	if a.Addr != "张江镇" {
		t.Error("input area was mutated")
	}
}

func TestApplyFixesPassThrough(t *testing.T) {
	list := sampleAreas()
	got := ApplyFixes(list, nil)
	for i := range list {
		if got[i] != list[i] {
			t.Errorf("area %d: got %+v, want %+v", i, got[i], list[i])
		}
	}
}

func TestApplyFixesMatchesByAddress(t *testing.T) {
	a := area("上海", "上海", "浦东新区", "张江镇")
	target := area("上海", "上海", "", "浦东新区张江镇")
	fixes := []models.AreaFix{
		{Data: target, Fix: models.AreaPatch{Region: str("浦东新区"), Addr: str("张江镇一号")}},
		{Data: a, Fix: models.AreaPatch{Addr: str("ignored")}},
	}

	got := ApplyFixes([]models.Area{a}, fixes)
	if got[0].Addr != "张江镇一号" {
		t.Errorf("first matching fix should win: got %q", got[0].Addr)
	}
}

func TestApplyFixesNeverChainsOrigin(t *testing.T) {
	a := area("上海", "上海", "浦东新区", "张江镇")
	fixes := []models.AreaFix{{Data: a, Fix: models.AreaPatch{City: str("浦东")}}}

	once := ApplyFixes([]models.Area{a}, fixes)
	again := ApplyFixes(once, []models.AreaFix{{Data: once[0], Fix: models.AreaPatch{Addr: str("x")}}})

	if again[0].Origin == nil || again[0].Origin.Origin != nil {
		t.Errorf("origin should be a single level: got %+v", again[0].Origin)
	}
}

func TestApplySnapshotFixesLeavesInputAlone(t *testing.T) {
	a := area("上海", "上海", "浦东新区", "张江镇")
	snap := &models.Snapshot{High: []models.Area{a}, Middle: []models.Area{}, Create: 1}
	fixes := []models.AreaFix{{Data: a, Fix: models.AreaPatch{Addr: str("新地址")}}}

	out := ApplySnapshotFixes([]*models.Snapshot{snap}, fixes)
	if out[0].High[0].Addr != "新地址" {
		t.Errorf("fixed snapshot: got %q", out[0].High[0].Addr)
	}
	if snap.High[0].Addr != "张江镇" || snap.High[0].Origin != nil {
		t.Errorf("input snapshot changed: %+v", snap.High[0])
	}
}

func TestReconcileFixesMergesSameAddress(t *testing.T) {
	a := area("上海", "上海", "浦东新区", "张江镇")
	existing := []models.AreaFix{{Data: a, Fix: models.AreaPatch{Addr: str("一"), City: str("浦东")}}}
	incoming := []models.AreaFix{{Data: a, Fix: models.AreaPatch{Addr: str("二")}}}

	got := ReconcileFixes(existing, incoming)
	if len(got) != 1 {
		t.Fatalf("len: got %d, want 1", len(got))
	}
	if *got[0].Fix.Addr != "二" || *got[0].Fix.City != "浦东" {
		t.Errorf("merged fix: addr %q city %q", *got[0].Fix.Addr, *got[0].Fix.City)
	}
	if *existing[0].Fix.Addr != "一" {
		t.Error("existing fix was mutated")
	}
}

func TestReconcileFixesDropsNoOp(t *testing.T) {
	a := area("上海", "上海", "浦东新区", "张江镇")
	b := area("广东", "广州", "白云区", "太和镇")
	existing := []models.AreaFix{
		{Data: a, Fix: models.AreaPatch{Addr: str("新地址")}},
		{Data: b, Fix: models.AreaPatch{Region: str("天河区")}},
	}
	incoming := []models.AreaFix{{Data: a, Fix: models.AreaPatch{Addr: str("张江镇")}}}

	got := ReconcileFixes(existing, incoming)
	if len(got) != len(existing)-1 {
		t.Fatalf("len: got %d, want %d", len(got), len(existing)-1)
	}
	if !EqualAddress(got[0].Data, b) {
		t.Errorf("remaining fix: got %+v", got[0].Data)
	}
}

func TestReconcileFixesDropsFixMatchingCurrentValue(t *testing.T) {
	a := area("上海", "上海", "浦东新区", "张江镇")
	got := ReconcileFixes(nil, []models.AreaFix{{Data: a, Fix: models.AreaPatch{Region: str("浦东新区")}}})
	if len(got) != 0 {
		t.Errorf("no-op fix kept: %+v", got)
	}
}
