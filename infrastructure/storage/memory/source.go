// Package memory provides an in-memory record source, used for tests and
// offline experimentation.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/felixgeelhaar/rundigest/domain/plan"
	"github.com/felixgeelhaar/rundigest/domain/source"
)

// Source is an in-memory implementation of source.Source.
type Source struct {
	mu    sync.RWMutex
	runs  map[string]plan.Run
	plans map[string]plan.Plan
}

// NewSource creates an empty in-memory source.
func NewSource() *Source {
	return &Source{
		runs:  make(map[string]plan.Run),
		plans: make(map[string]plan.Plan),
	}
}

// AddRuns seeds runs into the source.
func (s *Source) AddRuns(runs ...plan.Run) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range runs {
		s.runs[r.ID] = r
	}
}

// AddPlans seeds plans into the source.
func (s *Source) AddPlans(plans ...plan.Plan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range plans {
		s.plans[p.ID] = p
	}
}

// ListRuns returns runs matching the query, ordered by creation time then
// run ID for deterministic results.
func (s *Source) ListRuns(_ context.Context, query source.RunQuery) ([]plan.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []plan.Run
	for _, r := range s.runs {
		if query.PlanID != "" && r.PlanID != query.PlanID {
			continue
		}
		if query.State != "" && r.State != query.State {
			continue
		}
		if !query.Since.IsZero() && r.CreatedAt.Before(query.Since) {
			continue
		}
		if !query.Until.IsZero() && !r.CreatedAt.Before(query.Until) {
			continue
		}
		result = append(result, r)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})

	if query.Limit > 0 && len(result) > query.Limit {
		result = result[:query.Limit]
	}
	return result, nil
}

// ListPlans returns up to limit plans ordered by creation time then plan ID.
func (s *Source) ListPlans(_ context.Context, limit int) ([]plan.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]plan.Plan, 0, len(s.plans))
	for _, p := range s.plans {
		result = append(result, p)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// GetPlan retrieves a plan by ID.
func (s *Source) GetPlan(_ context.Context, id string) (plan.Plan, error) {
	if id == "" {
		return plan.Plan{}, plan.ErrInvalidPlanID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.plans[id]
	if !ok {
		return plan.Plan{}, plan.ErrPlanNotFound
	}
	return p, nil
}

// GetRun retrieves a run by ID.
func (s *Source) GetRun(_ context.Context, id string) (plan.Run, error) {
	if id == "" {
		return plan.Run{}, plan.ErrInvalidRunID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.runs[id]
	if !ok {
		return plan.Run{}, plan.ErrRunNotFound
	}
	return r, nil
}

// Ensure Source implements the source interfaces.
var (
	_ source.Source    = (*Source)(nil)
	_ source.RunGetter = (*Source)(nil)
)
