package repo

import (
	"context"
	"sort"
	"sync"

	"github.com/platformbuilds/mirador-remediate/internal/models"
)

// MemoryPatternRepository is the in-process PatternRepository. It enforces
// the optimistic-concurrency contract: Update compares the caller's version
// against the stored one and bumps it on success, Insert rejects an existing
// problem code so creation races surface as ErrDuplicatePattern.
type MemoryPatternRepository struct {
	mu       sync.Mutex
	patterns map[string]*models.LearnedPattern
}

func NewMemoryPatternRepository() *MemoryPatternRepository {
	return &MemoryPatternRepository{patterns: make(map[string]*models.LearnedPattern)}
}

func (r *MemoryPatternRepository) Insert(ctx context.Context, pattern *models.LearnedPattern) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.patterns[pattern.ProblemCode]; exists {
		return ErrDuplicatePattern
	}
	cp := *pattern
	cp.Version = 1
	r.patterns[pattern.ProblemCode] = &cp
	pattern.Version = cp.Version
	return nil
}

func (r *MemoryPatternRepository) Update(ctx context.Context, pattern *models.LearnedPattern) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, exists := r.patterns[pattern.ProblemCode]
	if !exists {
		return ErrVersionConflict
	}
	if stored.Version != pattern.Version {
		return ErrVersionConflict
	}
	cp := *pattern
	cp.Version = stored.Version + 1
	r.patterns[pattern.ProblemCode] = &cp
	pattern.Version = cp.Version
	return nil
}

func (r *MemoryPatternRepository) FindByProblemCode(ctx context.Context, problemCode string) (*models.LearnedPattern, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.patterns[problemCode]
	if !ok {
		return nil, nil
	}
	cp := *stored
	return &cp, nil
}

func (r *MemoryPatternRepository) TopByVolume(ctx context.Context, n int) ([]*models.LearnedPattern, error) {
	r.mu.Lock()
	out := make([]*models.LearnedPattern, 0, len(r.patterns))
	for _, p := range r.patterns {
		cp := *p
		out = append(out, &cp)
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalCount() != out[j].TotalCount() {
			return out[i].TotalCount() > out[j].TotalCount()
		}
		return out[i].ProblemCode < out[j].ProblemCode
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out, nil
}
