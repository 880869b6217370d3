package registry

import (
	"errors"
	"testing"

	"github.com/cvforge/cvforge/pkg/models"
)

func TestDefaultTableValid(t *testing.T) {
	if _, err := New(DefaultTable()); err != nil {
		t.Fatal(err)
	}
}

func TestNewRejectsUnknownPreference(t *testing.T) {
	tbl := DefaultTable()
	tbl.Preferences[models.TaskOptimize] = []string{Qwen3, "nope/missing"}
	_, err := New(tbl)
	if !errors.Is(err, ErrUnknownModel) {
		t.Fatalf("expected ErrUnknownModel, got %v", err)
	}
}

func TestNewRejectsUnknownUniversal(t *testing.T) {
	tbl := DefaultTable()
	tbl.Universal = "nope/missing"
	if _, err := New(tbl); !errors.Is(err, ErrUnknownModel) {
		t.Fatalf("expected ErrUnknownModel, got %v", err)
	}
}

func TestNewRejectsDuplicate(t *testing.T) {
	tbl := DefaultTable()
	tbl.Models = append(tbl.Models, tbl.Models[0])
	if _, err := New(tbl); err == nil {
		t.Fatal("expected duplicate id error")
	}
}

func TestIsFree(t *testing.T) {
	r := Default()
	if !r.IsFree(Qwen3) {
		t.Errorf("%s should be free", Qwen3)
	}
	if r.IsFree(GPT4o) {
		t.Errorf("%s should not be free", GPT4o)
	}
	if r.IsFree("unknown/model") {
		t.Error("unknown model should not be free")
	}
}

func TestSelectPrimary(t *testing.T) {
	r := Default()
	tests := []struct {
		task    models.TaskType
		premium bool
		want    string
	}{
		{models.TaskOptimize, true, Claude35},
		{models.TaskOptimize, false, Qwen3},
		{models.TaskAnalyze, false, DeepSeekV31},
		{models.TaskInterviewQuestions, true, GPT4oMini},
		{models.TaskInterviewQuestions, false, DeepSeekV31},
		{"", false, Qwen25},
		{"bogus", true, Qwen25},
	}
	for _, tt := range tests {
		got := r.SelectPrimary(tt.task, tt.premium)
		if got != tt.want {
			t.Errorf("SelectPrimary(%q, %v) = %q, want %q", tt.task, tt.premium, got, tt.want)
		}
	}
}

func TestSelectPrimaryUniversal(t *testing.T) {
	r, err := New(Table{
		Models: []Descriptor{
			{ID: "paid/a", MaxTokens: 1000},
			{ID: "free/u", MaxTokens: 1000, Free: true},
		},
		Preferences:  map[models.TaskType][]string{models.TaskOptimize: {"paid/a"}},
		DefaultOrder: []string{"paid/a"},
		Universal:    "free/u",
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := r.SelectPrimary(models.TaskOptimize, false); got != "free/u" {
		t.Errorf("expected universal model, got %q", got)
	}
}

func TestBuildFallbackOrdering(t *testing.T) {
	r := Default()
	for _, task := range append(models.Tasks, "", "bogus") {
		for _, primary := range []string{Qwen3, GPT4o, Llama33, "unknown/model"} {
			got := r.BuildFallback(primary, task)
			if len(got) == 0 {
				t.Fatalf("empty fallback for %q/%q", primary, task)
			}
			if r.Known(primary) && got[0] != primary {
				t.Errorf("%q/%q: primary not first: %v", primary, task, got)
			}
			seen := make(map[string]bool)
			for _, id := range got {
				if seen[id] {
					t.Errorf("%q/%q: duplicate %q in %v", primary, task, id, got)
				}
				seen[id] = true
				if !r.Known(id) {
					t.Errorf("%q/%q: unknown id %q", primary, task, id)
				}
			}
		}
	}
}

func TestBuildFallbackMovesPrimaryToFront(t *testing.T) {
	r := Default()
	got := r.BuildFallback(DeepSeekV31, models.TaskOptimize)
	want := []string{DeepSeekV31, Claude35, GPT4o, Qwen3, Qwen25}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestCandidatesFreeTier(t *testing.T) {
	r := Default()
	got := r.Candidates(Qwen3, models.TaskOptimize, false)
	want := []string{Qwen3, DeepSeekV31, Qwen25}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestCandidatesPremiumKeepsAll(t *testing.T) {
	r := Default()
	got := r.Candidates(Claude35, models.TaskOptimize, true)
	if len(got) != len(r.BuildFallback(Claude35, models.TaskOptimize)) {
		t.Errorf("premium candidates filtered: %v", got)
	}
}

func TestResolveExplicit(t *testing.T) {
	r := Default()
	if got := r.Resolve(GPT4o, models.TaskOptimize, true); got != GPT4o {
		t.Errorf("premium explicit: got %q", got)
	}
	if got := r.Resolve(GPT4o, models.TaskOptimize, false); got != Qwen3 {
		t.Errorf("free explicit paid model should be ignored, got %q", got)
	}
	if got := r.Resolve("unknown/model", models.TaskOptimize, false); got != Qwen3 {
		t.Errorf("unknown explicit should be ignored, got %q", got)
	}
}
