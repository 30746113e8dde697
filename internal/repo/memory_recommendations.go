package repo

import (
	"context"
	"sync"
	"time"

	"github.com/platformbuilds/mirador-remediate/internal/models"
)

// MemoryRecommendationRepository is the in-process RecommendationRepository.
// UpdateIfStatus holds the lock across the check and the mutation so guarded
// transitions are atomic per recommendation.
type MemoryRecommendationRepository struct {
	mu   sync.RWMutex
	recs map[string]*models.SONRecommendation
}

func NewMemoryRecommendationRepository() *MemoryRecommendationRepository {
	return &MemoryRecommendationRepository{recs: make(map[string]*models.SONRecommendation)}
}

func (r *MemoryRecommendationRepository) Save(ctx context.Context, rec *models.SONRecommendation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *rec
	r.recs[rec.ID] = &cp
	return nil
}

func (r *MemoryRecommendationRepository) FindByID(ctx context.Context, id string) (*models.SONRecommendation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.recs[id]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (r *MemoryRecommendationRepository) FindByStation(ctx context.Context, stationID string) ([]*models.SONRecommendation, error) {
	return r.filter(func(rec *models.SONRecommendation) bool {
		return rec.StationID == stationID
	})
}

func (r *MemoryRecommendationRepository) FindByStatus(ctx context.Context, status string) ([]*models.SONRecommendation, error) {
	return r.filter(func(rec *models.SONRecommendation) bool {
		return rec.Status == status
	})
}

func (r *MemoryRecommendationRepository) FindExpired(ctx context.Context, status string, asOf time.Time) ([]*models.SONRecommendation, error) {
	return r.filter(func(rec *models.SONRecommendation) bool {
		return rec.Status == status && !rec.ExpiresAt.IsZero() && rec.ExpiresAt.Before(asOf)
	})
}

func (r *MemoryRecommendationRepository) UpdateIfStatus(ctx context.Context, id string, from []string, mutate func(*models.SONRecommendation)) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.recs[id]
	if !ok {
		return false, nil
	}
	allowed := false
	for _, s := range from {
		if rec.Status == s {
			allowed = true
			break
		}
	}
	if !allowed {
		return false, nil
	}
	mutate(rec)
	return true, nil
}

func (r *MemoryRecommendationRepository) All(ctx context.Context) ([]*models.SONRecommendation, error) {
	return r.filter(func(*models.SONRecommendation) bool { return true })
}

func (r *MemoryRecommendationRepository) filter(keep func(*models.SONRecommendation) bool) ([]*models.SONRecommendation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*models.SONRecommendation
	for _, rec := range r.recs {
		if keep(rec) {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}
