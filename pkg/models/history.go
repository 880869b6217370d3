package models

import "time"

// DispatchRecord is one persisted dispatch outcome.
type DispatchRecord struct {
	ID            string        `json:"id"`
	User          string        `json:"user,omitempty"`
	Task          TaskType      `json:"task"`
	Tier          string        `json:"tier"`
	Model         string        `json:"model"`
	Cached        bool          `json:"cached"`
	OK            bool          `json:"ok"`
	ErrorKind     ErrorKind     `json:"error_kind,omitempty"`
	Latency       time.Duration `json:"latency"`
	Quality       float64       `json:"quality"`
	PromptChars   int           `json:"prompt_chars"`
	ResponseChars int           `json:"response_chars"`
	CreatedAt     time.Time     `json:"created_at"`
}

// HistorySummary aggregates dispatch records by task and model.
type HistorySummary struct {
	Task         TaskType `json:"task"`
	Model        string   `json:"model"`
	Requests     int      `json:"requests"`
	Succeeded    int      `json:"succeeded"`
	CacheHits    int      `json:"cache_hits"`
	AvgLatencyMs float64  `json:"avg_latency_ms"`
	AvgQuality   float64  `json:"avg_quality"`
}
