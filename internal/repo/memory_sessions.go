package repo

import (
	"context"
	"sync"

	"github.com/platformbuilds/mirador-remediate/internal/models"
)

// MemorySessionRepository is the in-process SessionRepository used by the
// server and by tests. Sessions are stored by id with a problem-id index for
// the reuse lookup on alert triggering.
type MemorySessionRepository struct {
	mu          sync.RWMutex
	byID        map[string]*models.DiagnosticSession
	byProblemID map[string]string // problemID -> session id
}

func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{
		byID:        make(map[string]*models.DiagnosticSession),
		byProblemID: make(map[string]string),
	}
}

func (r *MemorySessionRepository) Save(ctx context.Context, session *models.DiagnosticSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	// Inserting a second session for a problem that still has a live one is
	// a lost race between concurrent triggers; the caller re-fetches.
	if curID, ok := r.byProblemID[session.ProblemID]; ok && curID != session.ID {
		if cur := r.byID[curID]; cur != nil && !terminalSession(cur.Status) {
			return ErrDuplicateSession
		}
	}
	cp := cloneSession(session)
	r.byID[cp.ID] = cp
	r.byProblemID[cp.ProblemID] = cp.ID
	return nil
}

func terminalSession(status string) bool {
	return status == models.SessionResolved || status == models.SessionFailed
}

func (r *MemorySessionRepository) FindByID(ctx context.Context, id string) (*models.DiagnosticSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	return cloneSession(s), nil
}

func (r *MemorySessionRepository) FindByProblemID(ctx context.Context, problemID string) (*models.DiagnosticSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byProblemID[problemID]
	if !ok {
		return nil, nil
	}
	return cloneSession(r.byID[id]), nil
}

func (r *MemorySessionRepository) FindByStation(ctx context.Context, stationID string) ([]*models.DiagnosticSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*models.DiagnosticSession
	for _, s := range r.byID {
		if s.StationID == stationID {
			out = append(out, cloneSession(s))
		}
	}
	return out, nil
}

func (r *MemorySessionRepository) FindByStatus(ctx context.Context, status string) ([]*models.DiagnosticSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*models.DiagnosticSession
	for _, s := range r.byID {
		if s.Status == status {
			out = append(out, cloneSession(s))
		}
	}
	return out, nil
}

func (r *MemorySessionRepository) CountByStatus(ctx context.Context) (map[string]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[string]int)
	for _, s := range r.byID {
		counts[s.Status]++
	}
	return counts, nil
}

func (r *MemorySessionRepository) CountAutoApplied(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, s := range r.byID {
		if s.AutoApplied {
			n++
		}
	}
	return n, nil
}

// cloneSession keeps callers from mutating stored state through shared
// pointers.
func cloneSession(s *models.DiagnosticSession) *models.DiagnosticSession {
	cp := *s
	if s.Metrics != nil {
		cp.Metrics = make(map[string]float64, len(s.Metrics))
		for k, v := range s.Metrics {
			cp.Metrics[k] = v
		}
	}
	if s.Solution != nil {
		sol := *s.Solution
		if s.Solution.Commands != nil {
			sol.Commands = append([]string(nil), s.Solution.Commands...)
		}
		cp.Solution = &sol
	}
	if s.Feedback != nil {
		fb := *s.Feedback
		cp.Feedback = &fb
	}
	return &cp
}
