// Package mathdetect detects and scores mathematical content in extracted
// document text. Detection is a pure function over the input text (plus an
// optional set of font names): identical input always produces an identical
// result.
package mathdetect

import (
	"regexp"
	"strings"
	"unicode"
)

// Feature names reported in the score breakdown.
const (
	FeatureRejected     = "rejected"
	FeatureSymbols      = "symbols"
	FeatureEquation     = "equation_pattern"
	FeatureOperators    = "operators"
	FeatureMathFonts    = "math_fonts"
	FeatureFinanceTerms = "finance_terms"
	FeatureMatrixVector = "matrix_vector"
	FeatureSubSuper     = "sub_superscript"
	FeatureMultiline    = "multiline"
)

// Scoring constants. Each feature's contribution is capped so no single
// heuristic can dominate the total.
const (
	symbolWeight    = 2.0
	symbolCap       = 10.0
	equationBonus   = 6.0
	operatorWeight  = 1.0
	operatorCap     = 5.0
	fontWeight      = 3.0
	fontCap         = 6.0
	financeBonus    = 4.0
	matrixBonus     = 4.0
	subSuperWeight  = 2.0
	subSuperCap     = 4.0
	multilineBonus  = 2.0
	maxPossibleScore = 20.0

	// minTextLength is the minimum stripped length considered scoreable.
	minTextLength = 3

	// shortSpanLength halves the score of spans below it; fragments like
	// "x=y" need strong symbol density to clear the threshold.
	shortSpanLength = 8

	// proseAlphaFraction rejects long runs of mostly-alphabetic text.
	proseAlphaFraction = 0.8
	proseMinLength     = 10

	// DefaultThreshold is the default score needed to classify as math.
	DefaultThreshold = 5.0

	// thresholdFloor is the lowest threshold the detector will accept; a
	// misconfigured lower value would flood the pipeline with false
	// positives.
	thresholdFloor = 3.0
)

// Result is the outcome of a single detection call.
type Result struct {
	IsMathematical bool `json:"is_mathematical"`

	// Confidence is the normalized score in [0,1].
	Confidence float64 `json:"confidence"`

	// Breakdown reports each feature's integer contribution, for
	// diagnostics.
	Breakdown map[string]int `json:"breakdown"`
}

// Quick-rejection patterns: classic false positives of additive scorers.
var rejectPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\d+$`),                    // bare page number
	regexp.MustCompile(`^\[\d+\]$`),                // bracketed citation
	regexp.MustCompile(`^[A-Za-z]\d*$`),            // single letter + digits
	regexp.MustCompile(`^\d+(\.\d+)*\.?\s+\pL+`),   // section header "1. Introduction"
	regexp.MustCompile(`^[A-Z]{2,5}$`),             // stock-symbol-like token
	regexp.MustCompile(`(?i)^(page|section|chapter|figure|table|equation|example)\s+\d+`),
}

var equationPatterns = []*regexp.Regexp{
	// variable (possibly primed / parenthesized) = expression
	regexp.MustCompile(`[\p{L})\]][²³'′]*\s*=\s*[^=\s]`),
	// simple fraction a/b
	regexp.MustCompile(`[\p{L}\p{N}]+\s*/\s*[\p{L}\p{N}]+`),
	// summation or integral with limits
	regexp.MustCompile(`[∑∫]\s*[_^(]|\\(?:sum|int|prod)\s*[_^]`),
	// matrix bracket notation with row or column separators
	regexp.MustCompile(`\[[^\[\]]*[;,][^\[\]]*\]`),
}

var financePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(?:E|Var|Cov|Corr|SD)\s*\(`),
	regexp.MustCompile(`(?i)\b(?:sharpe|sortino|beta|alpha|portfolio|variance|covariance|volatility|return)\s*[=:]`),
}

var matrixVectorPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b[A-Z]\w*\s*=\s*\[`),       // matrix assignment
	regexp.MustCompile(`[∑∫][^\n]*\bd[a-z]\b`),      // integral with differential
	regexp.MustCompile(`\\begin\{[bpv]?matrix\}`),   // LaTeX matrix environment
}

// mathFontNames are lowercase substrings of mathematical font families:
// Computer Modern math variants, AMS symbol fonts, MathTime, and Symbol.
var mathFontNames = []string{
	"cmmi", "cmsy", "cmex", "cmbsy", "msam", "msbm",
	"mathtime", "mtmi", "mtsy", "eufm", "symbol",
}

const operatorChars = "+-*/=<>^±·×÷′'"

// Detector scores text spans for mathematical content.
type Detector struct {
	threshold float64
}

// Option configures a Detector.
type Option func(*Detector)

// WithThreshold overrides the classification threshold. Values below the
// floor are clamped up to it.
func WithThreshold(t float64) Option {
	return func(d *Detector) {
		if t < thresholdFloor {
			t = thresholdFloor
		}
		d.threshold = t
	}
}

// New creates a Detector with the given options.
func New(opts ...Option) *Detector {
	d := &Detector{threshold: DefaultThreshold}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Threshold returns the effective classification threshold.
func (d *Detector) Threshold() float64 {
	return d.threshold
}

// Detect classifies a text span. fontNames may be nil; when present it lists
// the font families the span was rendered in (PDF extraction supplies these).
func (d *Detector) Detect(text string, fontNames map[string]bool) Result {
	stripped := strings.TrimSpace(text)

	if rejected(stripped) {
		return Result{
			IsMathematical: false,
			Confidence:     0,
			Breakdown:      map[string]int{FeatureRejected: 1},
		}
	}

	breakdown := make(map[string]int)
	var total float64

	// Unicode math symbols and Greek letters.
	if n := countMathSymbols(stripped); n > 0 {
		breakdown[FeatureSymbols] = n
		total += capped(float64(n)*symbolWeight, symbolCap)
	}

	// Equation patterns award a single fixed bonus: first match wins.
	for _, re := range equationPatterns {
		if re.MatchString(stripped) {
			breakdown[FeatureEquation] = 1
			total += equationBonus
			break
		}
	}

	// Operators only count when at least two are present; a lone hyphen in
	// prose is not evidence of mathematics.
	if n := countOperators(stripped); n >= 2 {
		breakdown[FeatureOperators] = n
		total += capped(float64(n)*operatorWeight, operatorCap)
	}

	if n := countMathFonts(fontNames); n > 0 {
		breakdown[FeatureMathFonts] = n
		total += capped(float64(n)*fontWeight, fontCap)
	}

	for _, re := range financePatterns {
		if re.MatchString(stripped) {
			breakdown[FeatureFinanceTerms] = 1
			total += financeBonus
			break
		}
	}

	for _, re := range matrixVectorPatterns {
		if re.MatchString(stripped) {
			breakdown[FeatureMatrixVector] = 1
			total += matrixBonus
			break
		}
	}

	if n := countSubSuperscriptRuns(stripped); n > 0 {
		breakdown[FeatureSubSuper] = n
		total += capped(float64(n)*subSuperWeight, subSuperCap)
	}

	// Very short spans keep their score only if symbol density is strong.
	if len([]rune(stripped)) < shortSpanLength {
		total /= 2
	}

	// Multi-line expressions (aligned equations) are intrinsically more
	// likely mathematical than any single line scores.
	if strings.Contains(text, "\n") && len([]rune(stripped)) > 20 {
		breakdown[FeatureMultiline] = 1
		total += multilineBonus
	}

	confidence := total / maxPossibleScore
	if confidence > 1.0 {
		confidence = 1.0
	}

	return Result{
		IsMathematical: total >= d.threshold,
		Confidence:     confidence,
		Breakdown:      breakdown,
	}
}

// rejected applies the quick-rejection filters.
func rejected(stripped string) bool {
	runes := []rune(stripped)
	if len(runes) < minTextLength {
		return true
	}

	for _, re := range rejectPatterns {
		if re.MatchString(stripped) {
			return true
		}
	}

	// Long, mostly-alphabetic spans are prose.
	if len(runes) > proseMinLength {
		letters := 0
		for _, r := range runes {
			if unicode.IsLetter(r) && !isMathSymbol(r) {
				letters++
			}
		}
		if float64(letters)/float64(len(runes)) > proseAlphaFraction {
			return true
		}
	}

	return false
}

func countMathSymbols(s string) int {
	n := 0
	for _, r := range s {
		if isMathSymbol(r) {
			n++
		}
	}
	return n
}

func isMathSymbol(r rune) bool {
	switch r {
	case '∫', '∑', '∏', '∂', '∇', '∞', '≤', '≥', '≠', '≈', '±', '∓',
		'×', '÷', '∘', '√', '∈', '∉', '⊂', '⊆', '∪', '∩',
		'→', '⇒', '⇔', '∀', '∃', '∝', '⟨', '⟩':
		return true
	}
	// Greek letters (both cases).
	if (r >= 'α' && r <= 'ω') || (r >= 'Α' && r <= 'Ω') {
		return true
	}
	return false
}

func countOperators(s string) int {
	n := 0
	for _, r := range s {
		if strings.ContainsRune(operatorChars, r) {
			n++
		}
	}
	return n
}

func countMathFonts(fontNames map[string]bool) int {
	if len(fontNames) == 0 {
		return 0
	}
	n := 0
	for name := range fontNames {
		lower := strings.ToLower(name)
		for _, math := range mathFontNames {
			if strings.Contains(lower, math) {
				n++
				break
			}
		}
	}
	return n
}

// countSubSuperscriptRuns counts Unicode sub/superscript digit sequences
// attached to an identifier.
func countSubSuperscriptRuns(s string) int {
	runes := []rune(s)
	n := 0
	inRun := false
	for i, r := range runes {
		if isSubSuperscript(r) {
			if !inRun && i > 0 && (unicode.IsLetter(runes[i-1]) || unicode.IsDigit(runes[i-1]) || runes[i-1] == ')') {
				n++
			}
			inRun = true
		} else {
			inRun = false
		}
	}
	return n
}

func isSubSuperscript(r rune) bool {
	if r >= '₀' && r <= '₉' {
		return true
	}
	switch r {
	case '⁰', '¹', '²', '³', '⁴', '⁵', '⁶', '⁷', '⁸', '⁹':
		return true
	}
	return false
}

func capped(v, limit float64) float64 {
	if v > limit {
		return limit
	}
	return v
}
