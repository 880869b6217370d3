package mcp

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cvforge/cvforge/pkg/assistant"
	"github.com/cvforge/cvforge/pkg/models"
)

// formatTaskResult renders a successful dispatch for the model reading it.
func formatTaskResult(task models.TaskType, res models.DispatchResult) string {
	var b strings.Builder
	src := "live"
	if res.Cached {
		src = "cached"
	}
	fmt.Fprintf(&b, "[%s, %s, quality %.1f]\n\n", res.Model, src, res.Quality)

	switch v := assistant.Decode(task, res.Text).(type) {
	case assistant.Analysis:
		if v.Score > 0 {
			fmt.Fprintf(&b, "Score: %d/100\n\n", v.Score)
		}
		b.WriteString(v.Text)
	case map[string]string:
		b.WriteString(res.Text)
	default:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			b.WriteString(res.Text)
			break
		}
		b.Write(data)
	}
	return b.String()
}

// formatAbsence explains why no result was produced.
func formatAbsence(res models.DispatchResult) string {
	if !res.Kind.Retryable() {
		return "The assistant is misconfigured: " + errText(res.Err)
	}
	return fmt.Sprintf("No model produced a result (%s after %d attempts). Try again later.", res.Kind, res.Attempts)
}

func errText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

// formatModelStats formats per-model stats as a text table.
func formatModelStats(stats []models.ModelStats) string {
	if len(stats) == 0 {
		return "No metrics recorded."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-45s %8s %10s %8s %8s %8s\n",
		"Model", "Samples", "Latency", "Success", "Quality", "Usage")
	b.WriteString(strings.Repeat("-", 92) + "\n")
	for _, s := range stats {
		fmt.Fprintf(&b, "%-45s %8d %10s %7.1f%% %8.1f %8d\n",
			s.Model, s.Samples, s.AvgLatency.Round(time.Millisecond), s.SuccessRate, s.AvgQuality, s.Usage)
	}
	return b.String()
}

// formatFallbacks lists the most recent fallback events, newest last.
func formatFallbacks(events []models.FallbackEvent) string {
	if len(events) == 0 {
		return "No fallbacks recorded."
	}
	const shown = 10
	if len(events) > shown {
		events = events[len(events)-shown:]
	}
	var b strings.Builder
	b.WriteString("Recent fallbacks\n")
	for _, e := range events {
		fmt.Fprintf(&b, "  %s  %-20s %s -> %s (%s)\n",
			e.CreatedAt.Format("2006-01-02 15:04:05"), e.Task, e.Primary, e.Fallback, e.Reason)
	}
	return b.String()
}

// formatHistorySummary formats history aggregates as a text table.
func formatHistorySummary(rows []models.HistorySummary) string {
	if len(rows) == 0 {
		return "No dispatch history found."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-20s %-45s %8s %8s %8s %10s %8s\n",
		"Task", "Model", "Requests", "OK", "Cached", "Latency", "Quality")
	b.WriteString(strings.Repeat("-", 113) + "\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "%-20s %-45s %8d %8d %8d %8.0fms %8.1f\n",
			r.Task, r.Model, r.Requests, r.Succeeded, r.CacheHits, r.AvgLatencyMs, r.AvgQuality)
	}
	return b.String()
}

// formatRecent formats individual dispatch records.
func formatRecent(recs []models.DispatchRecord) string {
	if len(recs) == 0 {
		return "No recent dispatches."
	}
	var b strings.Builder
	b.WriteString("Recent dispatches\n")
	for _, r := range recs {
		status := "ok"
		if !r.OK {
			status = string(r.ErrorKind)
		}
		if r.Cached {
			status += " (cached)"
		}
		user := r.User
		if user == "" {
			user = "-"
		}
		fmt.Fprintf(&b, "  %s  %-12s %-20s %-45s %s\n",
			r.CreatedAt.Format("2006-01-02 15:04:05"), user, r.Task, r.Model, status)
	}
	return b.String()
}

// formatCacheStats formats cache stats as text.
func formatCacheStats(stats models.CacheStats) string {
	total := stats.Hits + stats.Misses
	hitRate := float64(0)
	if total > 0 {
		hitRate = float64(stats.Hits) / float64(total) * 100
	}
	return fmt.Sprintf("Cache Statistics\n"+
		"  Entries:  %d\n"+
		"  Hits:     %d\n"+
		"  Misses:   %d\n"+
		"  Hit Rate: %.1f%%\n",
		stats.Entries, stats.Hits, stats.Misses, hitRate)
}
