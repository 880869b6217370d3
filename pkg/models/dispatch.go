package models

import "time"

// ErrorKind classifies why a dispatch attempt failed.
type ErrorKind string

const (
	KindNone        ErrorKind = ""
	KindConfig      ErrorKind = "config"
	KindRateLimited ErrorKind = "rate_limited"
	KindTimeout     ErrorKind = "timeout"
	KindTransient   ErrorKind = "transient"
	KindMalformed   ErrorKind = "malformed"
	KindCanceled    ErrorKind = "canceled"
)

// Retryable reports whether a user retrying later is likely to succeed.
func (k ErrorKind) Retryable() bool {
	return k != KindConfig
}

// DispatchResult is the outcome of one dispatch across the fallback list.
// When OK is false, Kind holds the classification of the last failure and
// Err describes it.
type DispatchResult struct {
	OK       bool
	Text     string
	Model    string
	Latency  time.Duration
	Cached   bool
	Quality  float64
	Attempts int
	Kind     ErrorKind
	Err      error
}

// RetrySameModel reports whether another attempt on the same model may
// succeed. Rate limits and malformed replies move on to the next model.
func (k ErrorKind) RetrySameModel() bool {
	return k == KindTimeout || k == KindTransient
}
