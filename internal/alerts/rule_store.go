// Package alerts holds the alert rule store and the metric evaluator that
// turns raw samples into deduplicated trigger/resolve signals.
package alerts

import (
	"sort"
	"sync"

	"github.com/platformbuilds/mirador-remediate/internal/config"
	"github.com/platformbuilds/mirador-remediate/internal/models"
)

// RuleStore holds the live set of alert rules. It is an explicitly owned,
// injected store: evaluators receive one at construction time, so isolated
// instances can coexist in tests. Mutations are last-writer-wins per rule id;
// the store mutex serializes read-modify-write on a single rule.
type RuleStore struct {
	mu    sync.RWMutex
	rules map[string]models.AlertRule
}

func NewRuleStore() *RuleStore {
	return &RuleStore{rules: make(map[string]models.AlertRule)}
}

// NewRuleStoreFromConfig seeds a store from startup configuration.
func NewRuleStoreFromConfig(cfg config.AlertingConfig) *RuleStore {
	s := NewRuleStore()
	for _, r := range cfg.Rules {
		s.Add(models.AlertRule{
			ID:         r.ID,
			Name:       r.Name,
			MetricType: r.MetricType,
			Operator:   r.Operator,
			Threshold:  r.Threshold,
			Severity:   r.Severity,
			Message:    r.Message,
			Enabled:    r.Enabled,
		})
	}
	return s
}

// Add stores or replaces a rule.
func (s *RuleStore) Add(rule models.AlertRule) {
	s.mu.Lock()
	s.rules[rule.ID] = rule
	s.mu.Unlock()
}

// Remove deletes a rule. Removing an unknown id is a no-op.
func (s *RuleStore) Remove(id string) {
	s.mu.Lock()
	delete(s.rules, id)
	s.mu.Unlock()
}

// Enable flips the enabled flag on via copy-on-write replacement. Reports
// whether the rule existed.
func (s *RuleStore) Enable(id string) bool {
	return s.replace(id, func(r models.AlertRule) models.AlertRule {
		return r.WithEnabled(true)
	})
}

// Disable flips the enabled flag off.
func (s *RuleStore) Disable(id string) bool {
	return s.replace(id, func(r models.AlertRule) models.AlertRule {
		return r.WithEnabled(false)
	})
}

// WithThreshold replaces the rule's threshold.
func (s *RuleStore) WithThreshold(id string, threshold float64) bool {
	return s.replace(id, func(r models.AlertRule) models.AlertRule {
		return r.WithThreshold(threshold)
	})
}

func (s *RuleStore) replace(id string, update func(models.AlertRule) models.AlertRule) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	rule, ok := s.rules[id]
	if !ok {
		return false
	}
	s.rules[id] = update(rule)
	return true
}

// GetByID returns the rule and whether it exists. Absence is not an error.
func (s *RuleStore) GetByID(id string) (models.AlertRule, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rule, ok := s.rules[id]
	return rule, ok
}

// GetAll returns all rules sorted by id for stable listings.
func (s *RuleStore) GetAll() []models.AlertRule {
	s.mu.RLock()
	out := make([]models.AlertRule, 0, len(s.rules))
	for _, r := range s.rules {
		out = append(out, r)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// EnabledForMetric returns the enabled rules matching a metric type.
func (s *RuleStore) EnabledForMetric(metricType string) []models.AlertRule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.AlertRule
	for _, r := range s.rules {
		if r.Enabled && r.MetricType == metricType {
			out = append(out, r)
		}
	}
	return out
}
