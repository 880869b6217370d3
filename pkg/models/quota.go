package models

// QuotaPeriod defines the time window for a quota policy.
type QuotaPeriod string

const (
	QuotaDaily   QuotaPeriod = "daily"
	QuotaMonthly QuotaPeriod = "monthly"
)

// QuotaPolicy caps the number of LLM-backed requests per user per period.
// Tier is "free", "premium" or "*"; an empty Task applies to every task.
type QuotaPolicy struct {
	Tier        string      `json:"tier" yaml:"tier" toml:"tier"`
	Task        TaskType    `json:"task,omitempty" yaml:"task,omitempty" toml:"task,omitempty"`
	MaxRequests int64       `json:"max_requests" yaml:"max_requests" toml:"max_requests"`
	Period      QuotaPeriod `json:"period" yaml:"period" toml:"period"`
}

// QuotaStatus shows current usage against a policy.
type QuotaStatus struct {
	Policy    QuotaPolicy `json:"policy"`
	Used      int64       `json:"used"`
	Remaining int64       `json:"remaining"`
}
