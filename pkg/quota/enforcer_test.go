package quota

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cvforge/cvforge/pkg/history"
	"github.com/cvforge/cvforge/pkg/models"
)

func setup(t *testing.T) (*history.SQLiteStore, context.Context) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "quota_test.db")
	s, err := history.New(dbPath, 0)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s, context.Background()
}

func record(t *testing.T, s *history.SQLiteStore, user string, task models.TaskType, n int) {
	t.Helper()
	for range n {
		if err := s.Record(context.Background(), models.DispatchRecord{
			User: user, Task: task, Tier: models.TierFree, CreatedAt: time.Now().UTC(),
		}); err != nil {
			t.Fatal(err)
		}
	}
}

func TestCheckUnderQuota(t *testing.T) {
	s, ctx := setup(t)
	record(t, s, "u1", models.TaskOptimize, 2)

	e := New([]models.QuotaPolicy{
		{Tier: models.TierFree, MaxRequests: 3, Period: models.QuotaDaily},
	}, s)

	if err := e.Check(ctx, "u1", false, models.TaskOptimize); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestCheckExceeded(t *testing.T) {
	s, ctx := setup(t)
	record(t, s, "u1", models.TaskOptimize, 3)

	e := New([]models.QuotaPolicy{
		{Tier: models.TierFree, MaxRequests: 3, Period: models.QuotaDaily},
	}, s)

	err := e.Check(ctx, "u1", false, models.TaskAnalyze)
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
}

func TestCheckPremiumUnaffected(t *testing.T) {
	s, ctx := setup(t)
	record(t, s, "u1", models.TaskOptimize, 5)

	e := New([]models.QuotaPolicy{
		{Tier: models.TierFree, MaxRequests: 3, Period: models.QuotaDaily},
	}, s)

	if err := e.Check(ctx, "u1", true, models.TaskOptimize); err != nil {
		t.Errorf("premium caller should not hit free quota, got %v", err)
	}
}

func TestCheckPerTask(t *testing.T) {
	s, ctx := setup(t)
	record(t, s, "u1", models.TaskCoverLetter, 1)

	e := New([]models.QuotaPolicy{
		{Tier: "*", Task: models.TaskCoverLetter, MaxRequests: 1, Period: models.QuotaMonthly},
	}, s)

	if err := e.Check(ctx, "u1", true, models.TaskCoverLetter); !errors.Is(err, ErrQuotaExceeded) {
		t.Errorf("expected cover letter quota to be exhausted, got %v", err)
	}
	if err := e.Check(ctx, "u1", true, models.TaskOptimize); err != nil {
		t.Errorf("other tasks should be unaffected, got %v", err)
	}
}

func TestCheckAnonymous(t *testing.T) {
	s, ctx := setup(t)
	e := New([]models.QuotaPolicy{{Tier: "*", MaxRequests: 0, Period: models.QuotaDaily}}, s)
	if err := e.Check(ctx, "", false, models.TaskOptimize); err != nil {
		t.Errorf("anonymous callers are not metered, got %v", err)
	}
}

func TestStatus(t *testing.T) {
	s, ctx := setup(t)
	record(t, s, "u1", models.TaskOptimize, 4)

	e := New([]models.QuotaPolicy{
		{Tier: models.TierFree, MaxRequests: 10, Period: models.QuotaDaily},
		{Tier: models.TierFree, Task: models.TaskOptimize, MaxRequests: 3, Period: models.QuotaDaily},
		{Tier: models.TierPremium, MaxRequests: 100, Period: models.QuotaDaily},
	}, s)

	st, err := e.Status(ctx, "u1", false)
	if err != nil {
		t.Fatal(err)
	}
	if len(st) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(st))
	}
	if st[0].Used != 4 || st[0].Remaining != 6 {
		t.Errorf("unexpected first status: %+v", st[0])
	}
	if st[1].Remaining != 0 {
		t.Errorf("remaining should not go negative: %+v", st[1])
	}
}

func TestPeriodStart(t *testing.T) {
	now := time.Date(2025, 3, 17, 15, 4, 5, 0, time.UTC)
	if got := periodStart(now, models.QuotaDaily); !got.Equal(time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("daily start = %v", got)
	}
	if got := periodStart(now, models.QuotaMonthly); !got.Equal(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("monthly start = %v", got)
	}
}

type zeroCounter struct{}

func (zeroCounter) CountSince(context.Context, string, models.TaskType, time.Time) (int64, error) {
	return 0, nil
}

func TestReserveConcurrent(t *testing.T) {
	e := New([]models.QuotaPolicy{
		{Tier: models.TierFree, MaxRequests: 2, Period: models.QuotaDaily},
	}, zeroCounter{})

	var admitted, rejected atomic.Int64
	var mu sync.Mutex
	var releases []func()
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := e.Reserve(context.Background(), "u1", false, models.TaskOptimize)
			if errors.Is(err, ErrQuotaExceeded) {
				rejected.Add(1)
				return
			}
			if err != nil {
				t.Error(err)
				return
			}
			admitted.Add(1)
			mu.Lock()
			releases = append(releases, release)
			mu.Unlock()
		}()
	}
	wg.Wait()

	if admitted.Load() != 2 || rejected.Load() != 8 {
		t.Fatalf("admitted=%d rejected=%d, want 2 and 8", admitted.Load(), rejected.Load())
	}
	if err := e.Check(context.Background(), "u1", false, models.TaskAnalyze); !errors.Is(err, ErrQuotaExceeded) {
		t.Errorf("in-flight requests should count toward the quota, got %v", err)
	}

	releases[0]()
	releases[0]()
	if _, err := e.Reserve(context.Background(), "u1", false, models.TaskAnalyze); err != nil {
		t.Errorf("released slot should be reusable once: %v", err)
	}
	if _, err := e.Reserve(context.Background(), "u1", false, models.TaskAnalyze); !errors.Is(err, ErrQuotaExceeded) {
		t.Errorf("double release must not free a second slot, got %v", err)
	}
}

func TestReservePerTask(t *testing.T) {
	e := New([]models.QuotaPolicy{
		{Tier: models.TierFree, Task: models.TaskCoverLetter, MaxRequests: 1, Period: models.QuotaDaily},
	}, zeroCounter{})
	ctx := context.Background()

	if _, err := e.Reserve(ctx, "u1", false, models.TaskCoverLetter); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Reserve(ctx, "u1", false, models.TaskOptimize); err != nil {
		t.Errorf("other tasks are not limited: %v", err)
	}
	if _, err := e.Reserve(ctx, "u1", false, models.TaskCoverLetter); !errors.Is(err, ErrQuotaExceeded) {
		t.Errorf("expected ErrQuotaExceeded, got %v", err)
	}
	if _, err := e.Reserve(ctx, "u2", false, models.TaskCoverLetter); err != nil {
		t.Errorf("other users are not affected: %v", err)
	}
}
