package mathdetect

import (
	"regexp"
	"strings"
)

// symbolToLaTeX maps Unicode math symbols to their LaTeX commands.
var symbolToLaTeX = map[rune]string{
	'∫': `\int`, '∑': `\sum`, '∏': `\prod`, '∂': `\partial`,
	'∇': `\nabla`, '∞': `\infty`, '≤': `\leq`, '≥': `\geq`,
	'≠': `\neq`, '≈': `\approx`, '±': `\pm`, '∓': `\mp`,
	'×': `\times`, '÷': `\div`, '∘': `\circ`, '√': `\sqrt`,
	'∈': `\in`, '∉': `\notin`, '⊂': `\subset`, '⊆': `\subseteq`,
	'∪': `\cup`, '∩': `\cap`, '→': `\rightarrow`, '⇒': `\Rightarrow`,
	'⇔': `\Leftrightarrow`, '∀': `\forall`, '∃': `\exists`,
	'∝': `\propto`,

	'α': `\alpha`, 'β': `\beta`, 'γ': `\gamma`, 'δ': `\delta`,
	'ε': `\epsilon`, 'ζ': `\zeta`, 'η': `\eta`, 'θ': `\theta`,
	'ι': `\iota`, 'κ': `\kappa`, 'λ': `\lambda`, 'μ': `\mu`,
	'ν': `\nu`, 'ξ': `\xi`, 'π': `\pi`, 'ρ': `\rho`,
	'σ': `\sigma`, 'τ': `\tau`, 'υ': `\upsilon`, 'φ': `\phi`,
	'χ': `\chi`, 'ψ': `\psi`, 'ω': `\omega`,
	'Γ': `\Gamma`, 'Δ': `\Delta`, 'Θ': `\Theta`, 'Λ': `\Lambda`,
	'Ξ': `\Xi`, 'Π': `\Pi`, 'Σ': `\Sigma`, 'Φ': `\Phi`,
	'Ψ': `\Psi`, 'Ω': `\Omega`,
}

var subscriptDigits = map[rune]rune{
	'₀': '0', '₁': '1', '₂': '2', '₃': '3', '₄': '4',
	'₅': '5', '₆': '6', '₇': '7', '₈': '8', '₉': '9',
}

var superscriptDigits = map[rune]rune{
	'⁰': '0', '¹': '1', '²': '2', '³': '3', '⁴': '4',
	'⁵': '5', '⁶': '6', '⁷': '7', '⁸': '8', '⁹': '9',
}

// simpleFractionRe rewrites bare a/b fractions; anything with operators on
// either side is left alone.
var simpleFractionRe = regexp.MustCompile(`\b([A-Za-z0-9]+)\s*/\s*([A-Za-z0-9]+)\b`)

// ToLaTeX converts detected math text into a LaTeX-like string by symbol
// substitution, sub/superscript bracketing, and simple fraction rewriting.
// The conversion is heuristic and lossy; callers must never assume the
// output round-trips.
func ToLaTeX(text string) string {
	var b strings.Builder
	runes := []rune(text)

	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if d, ok := subscriptDigits[r]; ok {
			digits := []rune{d}
			for i+1 < len(runes) {
				next, ok := subscriptDigits[runes[i+1]]
				if !ok {
					break
				}
				digits = append(digits, next)
				i++
			}
			b.WriteString("_{" + string(digits) + "}")
			continue
		}

		if d, ok := superscriptDigits[r]; ok {
			digits := []rune{d}
			for i+1 < len(runes) {
				next, ok := superscriptDigits[runes[i+1]]
				if !ok {
					break
				}
				digits = append(digits, next)
				i++
			}
			b.WriteString("^{" + string(digits) + "}")
			continue
		}

		if cmd, ok := symbolToLaTeX[r]; ok {
			b.WriteString(cmd)
			// Keep a separator so commands don't swallow the next letter.
			if i+1 < len(runes) && isLaTeXWordRune(runes[i+1]) {
				b.WriteByte(' ')
			}
			continue
		}

		b.WriteRune(r)
	}

	return simpleFractionRe.ReplaceAllString(b.String(), `\frac{$1}{$2}`)
}

func isLaTeXWordRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
