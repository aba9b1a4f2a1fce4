package assist

import (
	"context"

	"github.com/abdhe/studyhub-assist/pkg/config"
)

// GenerateSummary summarizes text with a fresh pipeline and transport.
// It returns an error only when cfg lacks the token, base URL or models.
func GenerateSummary(ctx context.Context, cfg config.Config, text string, maxLength, minLength int) (string, error) {
	return New(cfg, nil, nil).Summarize(ctx, text, maxLength, minLength)
}

// GenerateExplanation explains text with a fresh pipeline and transport.
func GenerateExplanation(ctx context.Context, cfg config.Config, text string) string {
	return New(cfg, nil, nil).Explain(ctx, text)
}

// TestAPIConnection probes the configured probe model.
func TestAPIConnection(ctx context.Context, cfg config.Config) (bool, string) {
	return New(cfg, nil, nil).CheckConnection(ctx)
}
