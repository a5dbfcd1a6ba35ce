package mathdetect

import (
	"context"
	"log/slog"
)

// OCRProvider recognizes a rendered formula image and returns a LaTeX
// string. Implementations wrap external OCR services; any retry policy is
// the provider's own.
type OCRProvider interface {
	// Name identifies the provider in logs.
	Name() string

	// Recognize converts a formula image to LaTeX. An empty string with a
	// nil error means the provider gave up on this image.
	Recognize(ctx context.Context, image []byte) (string, error)
}

// FallbackChain tries OCR providers in order and stops at the first
// success. No exception-style control flow: a provider failure is just a
// logged step to the next provider.
type FallbackChain struct {
	providers []OCRProvider
	logger    *slog.Logger
}

// NewFallbackChain creates a chain over the given providers, tried in the
// order supplied.
func NewFallbackChain(logger *slog.Logger, providers ...OCRProvider) *FallbackChain {
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackChain{providers: providers, logger: logger}
}

// Recognize returns the first successful recognition and true, or
// ("", false) if every provider failed or none is configured.
func (c *FallbackChain) Recognize(ctx context.Context, image []byte) (string, bool) {
	for _, p := range c.providers {
		latex, err := p.Recognize(ctx, image)
		if err != nil {
			c.logger.Warn("OCR provider failed",
				"provider", p.Name(),
				"error", err)
			continue
		}
		if latex != "" {
			return latex, true
		}
	}
	return "", false
}
