package repo

import (
	"context"
	"errors"
	"time"

	"github.com/platformbuilds/mirador-remediate/internal/models"
)

// Sentinel errors for the concurrency taxonomy. Not-found is never an error
// on reads; it is a nil result.
var (
	// ErrVersionConflict signals a stale optimistic-lock version on update.
	ErrVersionConflict = errors.New("version conflict: pattern modified concurrently")
	// ErrDuplicatePattern signals a lost creation race; callers re-fetch the
	// winner's row.
	ErrDuplicatePattern = errors.New("pattern already exists for problem code")
	// ErrDuplicateSession signals an insert for a problem id that already
	// has a live (non-terminal) session.
	ErrDuplicateSession = errors.New("session already exists")
)

// SessionRepository persists diagnostic sessions.
type SessionRepository interface {
	Save(ctx context.Context, session *models.DiagnosticSession) error
	FindByID(ctx context.Context, id string) (*models.DiagnosticSession, error)
	FindByProblemID(ctx context.Context, problemID string) (*models.DiagnosticSession, error)
	FindByStation(ctx context.Context, stationID string) ([]*models.DiagnosticSession, error)
	FindByStatus(ctx context.Context, status string) ([]*models.DiagnosticSession, error)
	CountByStatus(ctx context.Context) (map[string]int, error)
	CountAutoApplied(ctx context.Context) (int, error)
}

// PatternRepository persists learned patterns with optimistic concurrency:
// Update succeeds only when the stored version matches the pattern's version
// at read time, and Insert fails on an existing problem code.
type PatternRepository interface {
	Insert(ctx context.Context, pattern *models.LearnedPattern) error
	Update(ctx context.Context, pattern *models.LearnedPattern) error
	FindByProblemCode(ctx context.Context, problemCode string) (*models.LearnedPattern, error)
	TopByVolume(ctx context.Context, n int) ([]*models.LearnedPattern, error)
}

// RecommendationRepository persists SON recommendations. UpdateIfStatus is
// the guarded-transition primitive: mutate applies only when the stored
// status is one of the listed source states, and the method reports whether
// the transition took place.
type RecommendationRepository interface {
	Save(ctx context.Context, rec *models.SONRecommendation) error
	FindByID(ctx context.Context, id string) (*models.SONRecommendation, error)
	FindByStation(ctx context.Context, stationID string) ([]*models.SONRecommendation, error)
	FindByStatus(ctx context.Context, status string) ([]*models.SONRecommendation, error)
	FindExpired(ctx context.Context, status string, asOf time.Time) ([]*models.SONRecommendation, error)
	UpdateIfStatus(ctx context.Context, id string, from []string, mutate func(*models.SONRecommendation)) (bool, error)
	All(ctx context.Context) ([]*models.SONRecommendation, error)
}
