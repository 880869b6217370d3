package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/cvforge/cvforge/pkg/models"
)

func newTestStore(t *testing.T, retentionDays int) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "history.db")
	s, err := New(dbPath, retentionDays)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRecordAndRecent(t *testing.T) {
	s := newTestStore(t, 0)
	ctx := context.Background()

	rec := models.DispatchRecord{
		User:          "u1",
		Task:          models.TaskOptimize,
		Tier:          models.TierFree,
		Model:         "m1",
		OK:            true,
		Latency:       1500 * time.Millisecond,
		Quality:       7.5,
		PromptChars:   1200,
		ResponseChars: 3400,
	}
	if err := s.Record(ctx, rec); err != nil {
		t.Fatal(err)
	}

	got, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d", len(got))
	}
	r := got[0]
	if r.ID == "" {
		t.Error("id should be generated")
	}
	if r.User != "u1" || r.Task != models.TaskOptimize || !r.OK || r.Cached {
		t.Errorf("unexpected record: %+v", r)
	}
	if r.Latency != 1500*time.Millisecond || r.Quality != 7.5 {
		t.Errorf("latency/quality not round-tripped: %+v", r)
	}
}

func TestRecentOrder(t *testing.T) {
	s := newTestStore(t, 0)
	ctx := context.Background()
	base := time.Now().UTC()
	for i, m := range []string{"a", "b", "c"} {
		_ = s.Record(ctx, models.DispatchRecord{Task: models.TaskAnalyze, Tier: "free", Model: m, CreatedAt: base.Add(time.Duration(i) * time.Second)})
	}
	got, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Model != "c" || got[1].Model != "b" {
		t.Errorf("unexpected order: %+v", got)
	}
}

func TestCountSince(t *testing.T) {
	s := newTestStore(t, 0)
	ctx := context.Background()
	now := time.Now().UTC()

	_ = s.Record(ctx, models.DispatchRecord{User: "u1", Task: models.TaskOptimize, Tier: "free", CreatedAt: now})
	_ = s.Record(ctx, models.DispatchRecord{User: "u1", Task: models.TaskAnalyze, Tier: "free", CreatedAt: now})
	_ = s.Record(ctx, models.DispatchRecord{User: "u1", Task: models.TaskAnalyze, Tier: "free", Cached: true, CreatedAt: now})
	_ = s.Record(ctx, models.DispatchRecord{User: "u1", Task: models.TaskAnalyze, Tier: "free", CreatedAt: now.Add(-48 * time.Hour)})
	_ = s.Record(ctx, models.DispatchRecord{User: "u2", Task: models.TaskAnalyze, Tier: "free", CreatedAt: now})

	since := now.Add(-time.Hour)
	all, err := s.CountSince(ctx, "u1", "", since)
	if err != nil {
		t.Fatal(err)
	}
	if all != 2 {
		t.Errorf("expected 2 non-cached dispatches, got %d", all)
	}
	analyze, err := s.CountSince(ctx, "u1", models.TaskAnalyze, since)
	if err != nil {
		t.Fatal(err)
	}
	if analyze != 1 {
		t.Errorf("expected 1 analyze dispatch, got %d", analyze)
	}
}

func TestSummary(t *testing.T) {
	s := newTestStore(t, 0)
	ctx := context.Background()

	_ = s.Record(ctx, models.DispatchRecord{User: "u1", Task: models.TaskOptimize, Tier: "free", Model: "m1", OK: true, Quality: 8, Latency: 100 * time.Millisecond})
	_ = s.Record(ctx, models.DispatchRecord{User: "u1", Task: models.TaskOptimize, Tier: "free", Model: "m1", OK: true, Quality: 6, Latency: 300 * time.Millisecond})
	_ = s.Record(ctx, models.DispatchRecord{User: "u1", Task: models.TaskOptimize, Tier: "free", Model: "m1", OK: true, Cached: true})
	_ = s.Record(ctx, models.DispatchRecord{User: "u2", Task: models.TaskAnalyze, Tier: "free", Model: "m2", ErrorKind: models.KindTimeout})

	sum, err := s.Summary(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(sum) != 1 {
		t.Fatalf("expected 1 summary row, got %d", len(sum))
	}
	h := sum[0]
	if h.Requests != 3 || h.Succeeded != 3 || h.CacheHits != 1 {
		t.Errorf("unexpected counts: %+v", h)
	}
	if h.AvgQuality != 7 {
		t.Errorf("avg quality = %v, want 7", h.AvgQuality)
	}

	all, err := s.Summary(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 rows across users, got %d", len(all))
	}
}

func TestCleanup(t *testing.T) {
	s := newTestStore(t, 1)
	ctx := context.Background()
	now := time.Now().UTC()

	_ = s.Record(ctx, models.DispatchRecord{Task: models.TaskOptimize, Tier: "free", CreatedAt: now.Add(-72 * time.Hour)})
	_ = s.Record(ctx, models.DispatchRecord{Task: models.TaskOptimize, Tier: "free", CreatedAt: now})

	n, err := s.Cleanup(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected 1 row removed, got %d", n)
	}
	left, _ := s.Recent(ctx, 10)
	if len(left) != 1 {
		t.Errorf("expected 1 row left, got %d", len(left))
	}
}
