// Package registry holds the static table of upstream models and the
// per-task preference lists used to pick a primary model and its fallbacks.
package registry

import (
	"errors"
	"fmt"
	"slices"

	"github.com/cvforge/cvforge/pkg/models"
)

// ErrUnknownModel is returned when a model id is not in the registry.
var ErrUnknownModel = errors.New("unknown model")

// Sampling holds default sampling parameters for a model.
type Sampling struct {
	Temperature      float64 `json:"temperature"`
	TopP             float64 `json:"top_p"`
	FrequencyPenalty float64 `json:"frequency_penalty"`
	PresencePenalty  float64 `json:"presence_penalty"`
}

// Descriptor describes one upstream model. Descriptors are immutable once
// registered.
type Descriptor struct {
	ID           string            `json:"id"`
	DisplayName  string            `json:"display_name"`
	Capabilities []models.TaskType `json:"capabilities"`
	Speed        int               `json:"speed"`
	Quality      int               `json:"quality"`
	MaxTokens    int               `json:"max_tokens"`
	// Free marks models that cost nothing upstream. It is maintained by hand.
	Free     bool     `json:"free"`
	Sampling Sampling `json:"sampling"`
}

// Supports reports whether the model is tagged for the task.
func (d Descriptor) Supports(task models.TaskType) bool {
	return slices.Contains(d.Capabilities, task)
}

// Registry is a read-only, validated model table.
type Registry struct {
	byID         map[string]Descriptor
	order        []string
	prefs        map[models.TaskType][]string
	defaultOrder []string
	universal    string
}

// Table is the raw input for New.
type Table struct {
	Models      []Descriptor
	Preferences map[models.TaskType][]string
	// DefaultOrder is used for empty or unknown task types.
	DefaultOrder []string
	// Universal is returned when no preferred model qualifies.
	Universal string
}

// New validates the table and builds a Registry. Every id referenced by a
// preference list, the default order or the universal model must be
// registered.
func New(t Table) (*Registry, error) {
	r := &Registry{
		byID:  make(map[string]Descriptor, len(t.Models)),
		prefs: make(map[models.TaskType][]string, len(t.Preferences)),
	}
	for _, d := range t.Models {
		if d.ID == "" {
			return nil, errors.New("registry: model with empty id")
		}
		if _, dup := r.byID[d.ID]; dup {
			return nil, fmt.Errorf("registry: duplicate model %q", d.ID)
		}
		if d.MaxTokens <= 0 {
			return nil, fmt.Errorf("registry: model %q has no token ceiling", d.ID)
		}
		r.byID[d.ID] = d
		r.order = append(r.order, d.ID)
	}

	check := func(where string, ids []string) error {
		for _, id := range ids {
			if _, ok := r.byID[id]; !ok {
				return fmt.Errorf("registry: %s references %q: %w", where, id, ErrUnknownModel)
			}
		}
		return nil
	}
	for task, ids := range t.Preferences {
		if err := check("preferences for "+string(task), ids); err != nil {
			return nil, err
		}
		r.prefs[task] = slices.Clone(ids)
	}
	if len(t.DefaultOrder) == 0 {
		return nil, errors.New("registry: default order is empty")
	}
	if err := check("default order", t.DefaultOrder); err != nil {
		return nil, err
	}
	if err := check("universal model", []string{t.Universal}); err != nil {
		return nil, err
	}
	r.defaultOrder = slices.Clone(t.DefaultOrder)
	r.universal = t.Universal
	return r, nil
}

// Lookup returns the descriptor for id.
func (r *Registry) Lookup(id string) (Descriptor, bool) {
	d, ok := r.byID[id]
	return d, ok
}

// Known reports whether id is registered.
func (r *Registry) Known(id string) bool {
	_, ok := r.byID[id]
	return ok
}

// IsFree reports whether id is flagged as zero-cost. Unknown ids are not free.
// This is the single place tier eligibility is decided.
func (r *Registry) IsFree(id string) bool {
	return r.byID[id].Free
}

// Eligible reports whether a caller on the given tier may use id.
func (r *Registry) Eligible(id string, premium bool) bool {
	if !r.Known(id) {
		return false
	}
	return premium || r.IsFree(id)
}

// Models returns all descriptors in registration order.
func (r *Registry) Models() []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// Universal returns the model used when nothing else qualifies.
func (r *Registry) Universal() string {
	return r.universal
}

// Preferences returns the ranked model list for task. Empty or unknown task
// types get the default ordering.
func (r *Registry) Preferences(task models.TaskType) []string {
	if ids, ok := r.prefs[task]; ok && len(ids) > 0 {
		return slices.Clone(ids)
	}
	return slices.Clone(r.defaultOrder)
}
