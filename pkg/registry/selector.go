package registry

import "github.com/cvforge/cvforge/pkg/models"

// SelectPrimary walks the task's preference list and returns the first model
// the tier may use, or the universal model when none qualifies.
func (r *Registry) SelectPrimary(task models.TaskType, premium bool) string {
	for _, id := range r.Preferences(task) {
		if r.Eligible(id, premium) {
			return id
		}
	}
	return r.universal
}

// BuildFallback returns the ordered list of models to try for task: primary
// first, then the task's preference list, without duplicates and restricted
// to registered ids.
func (r *Registry) BuildFallback(primary string, task models.TaskType) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(id string) {
		if seen[id] || !r.Known(id) {
			return
		}
		seen[id] = true
		out = append(out, id)
	}
	add(primary)
	for _, id := range r.Preferences(task) {
		add(id)
	}
	return out
}

// Candidates is BuildFallback with models the tier may not use removed. The
// primary is kept in front even if it came from an explicit selection.
func (r *Registry) Candidates(primary string, task models.TaskType, premium bool) []string {
	all := r.BuildFallback(primary, task)
	out := all[:0]
	for i, id := range all {
		if i == 0 && id == primary || r.Eligible(id, premium) {
			out = append(out, id)
		}
	}
	if len(out) == 0 {
		return []string{r.universal}
	}
	return out
}

// Resolve picks the primary model for a request. An explicit model is
// honoured when it is registered and usable on the caller's tier.
func (r *Registry) Resolve(explicit string, task models.TaskType, premium bool) string {
	if explicit != "" && r.Eligible(explicit, premium) {
		return explicit
	}
	return r.SelectPrimary(task, premium)
}
