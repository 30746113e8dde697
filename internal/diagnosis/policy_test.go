package diagnosis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/platformbuilds/mirador-remediate/internal/config"
	"github.com/platformbuilds/mirador-remediate/internal/models"
)

func TestShouldAutoApply_TruthTable(t *testing.T) {
	policy := Policy{LowRiskConfidence: 0.90, MediumRiskConfidence: 0.95}

	tests := []struct {
		name       string
		risk       string
		confidence float64
		want       bool
	}{
		{"high risk never auto-applies", models.RiskHigh, 0.99, false},
		{"high risk at full confidence", models.RiskHigh, 1.0, false},
		{"low risk at floor", models.RiskLow, 0.90, true},
		{"low risk below floor", models.RiskLow, 0.89, false},
		{"medium risk at floor", models.RiskMedium, 0.95, true},
		{"medium risk below floor", models.RiskMedium, 0.94, false},
		{"unspecified risk uses medium floor", "", 0.95, true},
		{"unspecified risk below medium floor", "", 0.94, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldAutoApply(tt.risk, tt.confidence, policy))
		})
	}
}

func TestPolicyFromConfig(t *testing.T) {
	policy := PolicyFromConfig(config.RemediationConfig{
		LowRiskConfidence:    0.90,
		MediumRiskConfidence: 0.95,
		DiagnosisTimeout:     60000,
	})

	assert.Equal(t, 0.90, policy.LowRiskConfidence)
	assert.Equal(t, 0.95, policy.MediumRiskConfidence)
	assert.Equal(t, time.Minute, policy.DiagnosisTimeout)
}
