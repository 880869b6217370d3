// Package quota caps how many upstream-backed requests a user may make per
// period, by tier and task.
package quota

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cvforge/cvforge/pkg/models"
)

// ErrQuotaExceeded is returned when a request would exceed a quota policy.
var ErrQuotaExceeded = errors.New("quota exceeded")

// Counter counts a user's non-cached dispatches since a given time.
type Counter interface {
	CountSince(ctx context.Context, user string, task models.TaskType, since time.Time) (int64, error)
}

// Enforcer checks request counts against quota policies. Requests admitted
// by Reserve but not yet recorded count as used until released.
type Enforcer struct {
	mu       sync.RWMutex
	policies []models.QuotaPolicy
	counter  Counter
	now      func() time.Time

	// admit serializes count-then-reserve; pending is guarded by it.
	admit   sync.Mutex
	pending map[string]map[models.TaskType]int64
}

// New creates an Enforcer with the given policies and counter.
func New(policies []models.QuotaPolicy, c Counter) *Enforcer {
	return &Enforcer{
		policies: policies,
		counter:  c,
		now:      time.Now,
		pending:  make(map[string]map[models.TaskType]int64),
	}
}

// SetPolicies replaces the active policies. It is used on config reload.
func (e *Enforcer) SetPolicies(policies []models.QuotaPolicy) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.policies = policies
}

// Policies returns the active policies.
func (e *Enforcer) Policies() []models.QuotaPolicy {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.policies
}

// Check returns ErrQuotaExceeded if user has used up any applicable policy.
// Anonymous callers (empty user) are not metered.
func (e *Enforcer) Check(ctx context.Context, user string, premium bool, task models.TaskType) error {
	if user == "" {
		return nil
	}
	e.admit.Lock()
	defer e.admit.Unlock()
	return e.check(ctx, user, premium, task)
}

// Reserve admits one request like Check and holds a slot for it until the
// returned release func is called. Callers release after the request has
// been recorded by the Counter. Release is idempotent.
func (e *Enforcer) Reserve(ctx context.Context, user string, premium bool, task models.TaskType) (func(), error) {
	if user == "" {
		return func() {}, nil
	}
	e.admit.Lock()
	defer e.admit.Unlock()
	if err := e.check(ctx, user, premium, task); err != nil {
		return nil, err
	}
	if e.pending[user] == nil {
		e.pending[user] = make(map[models.TaskType]int64)
	}
	e.pending[user][task]++

	var once sync.Once
	return func() {
		once.Do(func() {
			e.admit.Lock()
			defer e.admit.Unlock()
			if e.pending[user][task]--; e.pending[user][task] <= 0 {
				delete(e.pending[user], task)
			}
			if len(e.pending[user]) == 0 {
				delete(e.pending, user)
			}
		})
	}, nil
}

// check must be called with admit held.
func (e *Enforcer) check(ctx context.Context, user string, premium bool, task models.TaskType) error {
	for _, p := range e.applicablePolicies(premium, task) {
		used, err := e.counter.CountSince(ctx, user, p.Task, periodStart(e.now(), p.Period))
		if err != nil {
			return fmt.Errorf("quota check: %w", err)
		}
		used += e.inFlight(user, p.Task)
		if used >= p.MaxRequests {
			return fmt.Errorf("%w: %d/%d %s requests", ErrQuotaExceeded, used, p.MaxRequests, p.Period)
		}
	}
	return nil
}

// inFlight counts reserved requests for user; an empty task counts all.
func (e *Enforcer) inFlight(user string, task models.TaskType) int64 {
	if task != "" {
		return e.pending[user][task]
	}
	var n int64
	for _, c := range e.pending[user] {
		n += c
	}
	return n
}

// Status returns usage for user across every policy of the user's tier.
func (e *Enforcer) Status(ctx context.Context, user string, premium bool) ([]models.QuotaStatus, error) {
	var statuses []models.QuotaStatus
	for _, p := range e.Policies() {
		if !tierMatches(p.Tier, premium) {
			continue
		}
		used, err := e.counter.CountSince(ctx, user, p.Task, periodStart(e.now(), p.Period))
		if err != nil {
			return nil, fmt.Errorf("quota status: %w", err)
		}
		statuses = append(statuses, models.QuotaStatus{
			Policy:    p,
			Used:      used,
			Remaining: max(0, p.MaxRequests-used),
		})
	}
	return statuses, nil
}

func (e *Enforcer) applicablePolicies(premium bool, task models.TaskType) []models.QuotaPolicy {
	var result []models.QuotaPolicy
	for _, p := range e.Policies() {
		if tierMatches(p.Tier, premium) && (p.Task == "" || p.Task == task) {
			result = append(result, p)
		}
	}
	return result
}

func tierMatches(tier string, premium bool) bool {
	return tier == "*" || tier == "" || tier == models.TierName(premium)
}

func periodStart(now time.Time, period models.QuotaPeriod) time.Time {
	now = now.UTC()
	switch period {
	case models.QuotaMonthly:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	default: // daily
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}
}
