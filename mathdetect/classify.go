package mathdetect

import (
	"regexp"
	"strings"
)

// SemanticGroup is a coarse classification bucket for a detected
// mathematical expression.
type SemanticGroup string

// Semantic groups, most specific first.
const (
	GroupPortfolioTheory SemanticGroup = "portfolio_theory"
	GroupStatistics      SemanticGroup = "statistics"
	GroupMatrixVector    SemanticGroup = "matrix_vector"
	GroupVariableDef     SemanticGroup = "variable_definition"
	GroupEquation        SemanticGroup = "equation"
	GroupRatio           SemanticGroup = "ratio"
	GroupGeneralMath     SemanticGroup = "general_math"
)

// Confidence tiers gating classification specificity. Low-confidence spans
// never get a specific label; misclassifying weak detections as
// portfolio_theory pollutes the graph more than a general_math bucket does.
const (
	specificGroupMinConfidence = 0.5
	structuralMinConfidence    = 0.25
)

var portfolioKeywords = []string{
	"portfolio", "sharpe", "markowitz", "frontier", "efficient",
	"weight", "allocation", "tangency", "risk-free",
}

var statisticsKeywords = []string{
	"variance", "covariance", "correlation", "distribution", "probability",
	"expected", "deviation", "moment", "skew", "kurtosis",
}

var (
	statNotationRe   = regexp.MustCompile(`\b(?:E|Var|Cov|Corr|SD)\s*\(|[σμρ]`)
	matrixNotationRe = regexp.MustCompile(`\[[^\[\]]*[;,][^\[\]]*\]|\\begin\{[bpv]?matrix\}|[ΣΩ]\b|\bw'`)
	variableDefRe    = regexp.MustCompile(`^\s*[\p{L}][\p{L}\p{N}_]*\s*=\s*[^=]{1,24}$`)
	pureRatioRe      = regexp.MustCompile(`^\s*[\p{L}\p{N}]+\s*/\s*[\p{L}\p{N}]+\s*$`)
)

// Classify assigns a semantic group to an already-detected math span.
// The result for non-mathematical input is always GroupGeneralMath.
func Classify(text string, result Result) SemanticGroup {
	if !result.IsMathematical || result.Confidence < structuralMinConfidence {
		return GroupGeneralMath
	}

	lower := strings.ToLower(text)

	if result.Confidence >= specificGroupMinConfidence {
		if containsAny(lower, portfolioKeywords) || strings.Contains(text, "w'Σw") {
			return GroupPortfolioTheory
		}
		if containsAny(lower, statisticsKeywords) || statNotationRe.MatchString(text) {
			return GroupStatistics
		}
		if matrixNotationRe.MatchString(text) {
			return GroupMatrixVector
		}
	}

	if pureRatioRe.MatchString(text) {
		return GroupRatio
	}
	if variableDefRe.MatchString(text) {
		return GroupVariableDef
	}
	if strings.Contains(text, "=") {
		return GroupEquation
	}
	return GroupGeneralMath
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
