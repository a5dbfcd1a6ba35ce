package extractor

import (
	"strings"

	"github.com/supersonic-electronic/AI-sub001/mathdetect"
)

// MathSpan is a detected mathematical span within extracted text.
type MathSpan struct {
	Text       string                   `json:"text"`
	LaTeX      string                   `json:"latex"`
	Confidence float64                  `json:"confidence"`
	Group      mathdetect.SemanticGroup `json:"group"`
}

// TagMathSpans scans text line by line and returns the spans the detector
// classifies as mathematical. Consecutive mathematical lines are merged into
// one span so aligned multi-line equations score as a unit.
func TagMathSpans(d *mathdetect.Detector, text string, fontNames map[string]bool) []MathSpan {
	var spans []MathSpan
	var block []string

	flush := func() {
		if len(block) == 0 {
			return
		}
		candidate := strings.Join(block, "\n")
		block = nil

		result := d.Detect(candidate, fontNames)
		if !result.IsMathematical {
			return
		}
		spans = append(spans, MathSpan{
			Text:       candidate,
			LaTeX:      mathdetect.ToLaTeX(candidate),
			Confidence: result.Confidence,
			Group:      mathdetect.Classify(candidate, result),
		})
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			flush()
			continue
		}

		if d.Detect(trimmed, fontNames).IsMathematical {
			block = append(block, trimmed)
		} else {
			flush()
		}
	}
	flush()

	return spans
}
