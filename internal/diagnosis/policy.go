package diagnosis

import (
	"time"

	"github.com/platformbuilds/mirador-remediate/internal/config"
	"github.com/platformbuilds/mirador-remediate/internal/models"
)

// Policy is the named auto-apply policy: confidence floors per risk level
// and the timeout carried by every diagnosis request.
type Policy struct {
	LowRiskConfidence    float64
	MediumRiskConfidence float64
	DiagnosisTimeout     time.Duration
}

// PolicyFromConfig maps the configuration block to a Policy.
func PolicyFromConfig(cfg config.RemediationConfig) Policy {
	return Policy{
		LowRiskConfidence:    cfg.LowRiskConfidence,
		MediumRiskConfidence: cfg.MediumRiskConfidence,
		DiagnosisTimeout:     time.Duration(cfg.DiagnosisTimeout) * time.Millisecond,
	}
}

// ShouldAutoApply is the pure auto-apply decision: HIGH risk never
// auto-applies; LOW risk requires the low-risk confidence floor; MEDIUM or
// unspecified risk requires the stricter medium-risk floor.
func ShouldAutoApply(riskLevel string, confidence float64, p Policy) bool {
	switch riskLevel {
	case models.RiskHigh:
		return false
	case models.RiskLow:
		return confidence >= p.LowRiskConfidence
	default:
		return confidence >= p.MediumRiskConfidence
	}
}
