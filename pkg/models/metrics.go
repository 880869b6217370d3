package models

import "time"

// ModelStats summarizes recorded samples for one model, or for all models
// when Model is empty.
type ModelStats struct {
	Model       string        `json:"model,omitempty"`
	Samples     int           `json:"samples"`
	AvgLatency  time.Duration `json:"avg_latency"`
	SuccessRate float64       `json:"success_rate"`
	AvgQuality  float64       `json:"avg_quality"`
	Usage       int64         `json:"usage"`
}

// FallbackEvent records the dispatcher leaving the primary model.
type FallbackEvent struct {
	Primary   string    `json:"primary"`
	Fallback  string    `json:"fallback"`
	Task      TaskType  `json:"task"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}
