package mathdetect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	d := New()

	tests := []struct {
		name string
		text string
		want SemanticGroup
	}{
		{"portfolio variance", "portfolio variance: σ² = w'Σw", GroupPortfolioTheory},
		{"covariance", "Cov(X,Y) = E(XY) − E(X)E(Y)", GroupStatistics},
		{"not mathematical", "Page 5", GroupGeneralMath},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := d.Detect(tt.text, nil)
			assert.Equal(t, tt.want, Classify(tt.text, result))
		})
	}
}

func TestClassify_StructuralFallbacks(t *testing.T) {
	// Structural groups apply regardless of keyword matches, using a
	// synthetic detection result above the structural tier.
	result := Result{IsMathematical: true, Confidence: 0.4}

	assert.Equal(t, GroupRatio, Classify("a / b", result))
	assert.Equal(t, GroupVariableDef, Classify("x = 5", result))
	assert.Equal(t, GroupEquation, Classify("f(x) + g(x) = h(x) + k(x) + m(x)", result))
	assert.Equal(t, GroupGeneralMath, Classify("∑ x_i", result))
}
