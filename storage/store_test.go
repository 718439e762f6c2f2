package storage

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"covid-risk-areas/models"
	"covid-risk-areas/utils"
)

func snapshot(id string, create, update int64, high ...models.Area) *models.Snapshot {
	return &models.Snapshot{ID: id, High: high, Middle: []models.Area{}, Create: create, Update: update}
}

func str(s string) *string { return &s }

var zhangjiang = models.Area{Province: "上海", City: "上海", Region: "浦东新区", Addr: "张江镇"}

// exerciseStore runs the behaviour every Store backend must share.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	got, err := s.Latest(ctx, 10)
	if err != nil {
		t.Fatalf("Latest on empty store: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("empty store: got %d snapshots", len(got))
	}

	for _, snap := range []*models.Snapshot{
		snapshot("b", 2000, 200, zhangjiang),
		snapshot("a", 1000, 100),
		snapshot("c", 3000, 300),
	} {
		if err := s.Save(ctx, snap); err != nil {
			t.Fatalf("Save %s: %v", snap.ID, err)
		}
	}

	got, err = s.Latest(ctx, 2)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if len(got) != 2 || got[0].ID != "b" || got[1].ID != "c" {
		t.Fatalf("Latest(2): got %v", ids(got))
	}
	if len(got[0].High) != 1 || got[0].High[0] != zhangjiang {
		t.Errorf("areas round trip: got %+v", got[0].High)
	}

	// same as-of time replaces the stored snapshot
	if err := s.Save(ctx, snapshot("d", 4000, 300)); err != nil {
		t.Fatalf("Save d: %v", err)
	}
	got, _ = s.Latest(ctx, 0)
	if want := []string{"a", "b", "d"}; !equalStrings(ids(got), want) {
		t.Errorf("after replace: got %v, want %v", ids(got), want)
	}

	if err := s.MarkDownloaded(ctx, 2000); err != nil {
		t.Fatalf("MarkDownloaded: %v", err)
	}
	if err := s.MarkDownloaded(ctx, 42); !errors.Is(err, ErrNotFound) {
		t.Errorf("MarkDownloaded unknown: got %v, want ErrNotFound", err)
	}
	got, _ = s.Latest(ctx, 0)
	if !got[1].Download || got[0].Download {
		t.Errorf("download flags: got %v %v", got[0].Download, got[1].Download)
	}

	if err := s.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete twice: got %v, want ErrNotFound", err)
	}
	got, _ = s.Latest(ctx, 0)
	if want := []string{"b", "d"}; !equalStrings(ids(got), want) {
		t.Errorf("after delete: got %v, want %v", ids(got), want)
	}

	fixes, err := s.Fixes(ctx)
	if err != nil || len(fixes) != 0 {
		t.Fatalf("Fixes on empty store: %v, %d", err, len(fixes))
	}
	other := models.Area{Province: "广东", City: "广州", Region: "白云区", Addr: "太和镇"}
	want := []models.AreaFix{
		{Data: zhangjiang, Fix: models.AreaPatch{Addr: str("张江镇一号")}},
		{Data: other, Fix: models.AreaPatch{Region: str("天河区")}},
	}
	if err := s.SaveFixes(ctx, want); err != nil {
		t.Fatalf("SaveFixes: %v", err)
	}
	fixes, err = s.Fixes(ctx)
	if err != nil {
		t.Fatalf("Fixes: %v", err)
	}
	if len(fixes) != 2 || fixes[0].Data != zhangjiang || *fixes[0].Fix.Addr != "张江镇一号" || *fixes[1].Fix.Region != "天河区" {
		t.Errorf("fixes round trip: got %+v", fixes)
	}

	if err := s.SaveFixes(ctx, want[1:]); err != nil {
		t.Fatalf("SaveFixes replace: %v", err)
	}
	fixes, _ = s.Fixes(ctx)
	if len(fixes) != 1 || fixes[0].Data != other {
		t.Errorf("fixes after replace: got %+v", fixes)
	}
}

func TestJSONStore(t *testing.T) {
	s, err := NewJSONStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewJSONStore: %v", err)
	}
	defer s.Close()
	exerciseStore(t, s)
}

func TestJSONStorePersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first, _ := NewJSONStore(dir)
	if err := first.Save(ctx, snapshot("a", 1000, 100, zhangjiang)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	second, _ := NewJSONStore(dir)
	got, err := second.Latest(ctx, 0)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if len(got) != 1 || got[0].ID != "a" || len(got[0].High) != 1 {
		t.Errorf("reloaded: got %+v", got)
	}
}

func TestJSONStoreMovesCorruptFileAside(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	dataPath := filepath.Join(dir, "data.json")
	garbage := []byte(`[{"id":"a","create":`)
	if err := os.WriteFile(dataPath, garbage, 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	var logs bytes.Buffer
	s, err := NewJSONStore(dir)
	if err != nil {
		t.Fatalf("NewJSONStore: %v", err)
	}
	s.WithLogger(utils.NewLoggerTo(&logs))

	got, err := s.Latest(ctx, 0)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("corrupt file: got %d snapshots, want 0", len(got))
	}
	if !strings.Contains(logs.String(), "data.json.corrupt") {
		t.Errorf("expected a warning naming the moved file, got %q", logs.String())
	}

	if err := s.Save(ctx, snapshot("b", 1000, 1000, zhangjiang)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	kept, err := os.ReadFile(dataPath + ".corrupt")
	if err != nil {
		t.Fatalf("corrupt copy missing after save: %v", err)
	}
	if !bytes.Equal(kept, garbage) {
		t.Errorf("corrupt copy: got %q, want %q", kept, garbage)
	}

	reopened, _ := NewJSONStore(dir)
	if got, _ := reopened.Latest(ctx, 0); !equalStrings(ids(got), []string{"b"}) {
		t.Errorf("after save: got %v, want [b]", ids(got))
	}
}

func TestJSONStoreReturnsCopies(t *testing.T) {
	s, _ := NewJSONStore(t.TempDir())
	ctx := context.Background()
	_ = s.Save(ctx, snapshot("a", 1000, 100, zhangjiang))

	got, _ := s.Latest(ctx, 1)
	got[0].High[0].Addr = "changed"

	again, _ := s.Latest(ctx, 1)
	if again[0].High[0].Addr != "张江镇" {
		t.Error("Latest should not expose the store's slices")
	}
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "db", "covid.sqlite"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer s.Close()
	exerciseStore(t, s)
}

func TestSQLiteStoreAssignsID(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "covid.sqlite"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	if err := s.Save(ctx, snapshot("", 1000, 100)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, _ := s.Latest(ctx, 1)
	if len(got) != 1 || got[0].ID == "" {
		t.Errorf("expected a generated id, got %+v", got)
	}
}

func TestRebind(t *testing.T) {
	pg := &SQLStore{dialect: Postgres}
	if got, want := pg.rebind("a = ? AND b = ?"), "a = $1 AND b = $2"; got != want {
		t.Errorf("postgres rebind: got %q, want %q", got, want)
	}
	lite := &SQLStore{dialect: SQLite}
	if got := lite.rebind("a = ?"); got != "a = ?" {
		t.Errorf("sqlite rebind: got %q", got)
	}
}

func TestNewCachedStoreWithoutRedis(t *testing.T) {
	base, _ := NewJSONStore(t.TempDir())
	if got := NewCachedStore(base, nil, 0, 10, nil); got != Store(base) {
		t.Error("nil redis client should return the wrapped store")
	}
}

func ids(list []*models.Snapshot) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = s.ID
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
