package models

import "time"

// LearnedPattern accumulates per-problem-code outcome statistics used to
// bias future diagnosis confidence. Counts only ever grow; Version backs the
// optimistic-concurrency check in the pattern repository.
type LearnedPattern struct {
	ProblemCode        string    `json:"problem_code"`
	Category           string    `json:"category"`
	ResolvedCount      int       `json:"resolved_count"`
	FailedCount        int       `json:"failed_count"`
	AdjustedConfidence float64   `json:"adjusted_confidence"`
	Version            int64     `json:"version"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// RecordSuccess increments the resolved count and recomputes the running
// confidence adjustment.
func (p *LearnedPattern) RecordSuccess() {
	p.ResolvedCount++
	p.recompute()
}

// RecordFailure increments the failed count and recomputes the running
// confidence adjustment.
func (p *LearnedPattern) RecordFailure() {
	p.FailedCount++
	p.recompute()
}

func (p *LearnedPattern) recompute() {
	total := p.ResolvedCount + p.FailedCount
	if total == 0 {
		return
	}
	p.AdjustedConfidence = float64(p.ResolvedCount) / float64(total)
	p.UpdatedAt = time.Now()
}

// TotalCount is the combined case volume for the pattern.
func (p *LearnedPattern) TotalCount() int {
	return p.ResolvedCount + p.FailedCount
}

// HasSufficientData reports whether the pattern has enough observations for
// its adjusted confidence to be statistically meaningful. Below the
// threshold callers must treat the adjustment as provisional.
func (p *LearnedPattern) HasSufficientData(minSamples int) bool {
	return p.TotalCount() >= minSamples
}

// LearningStats is the read-only aggregate exposed by the statistics query.
type LearningStats struct {
	ResolvedSessions    int               `json:"resolved_sessions"`
	FailedSessions      int               `json:"failed_sessions"`
	PendingSessions     int               `json:"pending_sessions"`
	AutoAppliedSessions int               `json:"auto_applied_sessions"`
	TopPatterns         []*LearnedPattern `json:"top_patterns"`
	GeneratedAt         time.Time         `json:"generated_at"`
}
