package app

import (
	"context"
	"fmt"

	"meal-scheduler/internal/catalog"
	"meal-scheduler/internal/config"
	"meal-scheduler/internal/llm"
	"meal-scheduler/internal/notes"
)

// NewAnalyzer builds the note analyzer selected by NOTE_ANALYZER. The
// returned close function releases the model client, if any.
func NewAnalyzer(ctx context.Context, cfg *config.Config, meals []catalog.Meal) (notes.Analyzer, func() error, error) {
	noop := func() error { return nil }

	switch cfg.NoteAnalyzer {
	case config.AnalyzerGemini:
		client, err := llm.NewGeminiClient(ctx, cfg)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to create gemini client: %w", err)
		}
		return notes.NewLLMAnalyzer(client, meals), client.Close, nil
	case config.AnalyzerGroq:
		client := llm.NewGroqClient(cfg, llm.ModelNoteAnalyst, 0.1)
		return notes.NewLLMAnalyzer(client, meals), noop, nil
	case config.AnalyzerKeyword, "":
		return notes.NewKeywordAnalyzer(meals), noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown note analyzer '%s'", cfg.NoteAnalyzer)
	}
}
