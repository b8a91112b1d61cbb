package notes

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"time"

	"meal-scheduler/internal/catalog"
	"meal-scheduler/internal/llm"
	"meal-scheduler/internal/shared"
)

//go:embed analyzer_prompt.md
var analyzerPrompt string

var analyzerTmpl = template.Must(template.New("note-analyzer").Parse(analyzerPrompt))

type analyzerPromptData struct {
	Text    string
	Meals   []catalog.Meal
	Weekday string
}

type rawAnalysis struct {
	Approved bool   `json:"approved"`
	Meal     string `json:"meal"`
	Time     string `json:"time"`
	Day      string `json:"day"`
	Reason   string `json:"reason"`
}

// LLMAnalyzer asks a language model to read the note. Whatever the model
// answers, the meal must exist in the catalog and the time must be a known
// slot for the note to be approved.
type LLMAnalyzer struct {
	textGen llm.TextGenerator
	meals   []catalog.Meal
	now     func() time.Time
}

func NewLLMAnalyzer(textGen llm.TextGenerator, meals []catalog.Meal) *LLMAnalyzer {
	return &LLMAnalyzer{textGen: textGen, meals: meals, now: time.Now}
}

func (a *LLMAnalyzer) Analyze(ctx context.Context, text string) (Analysis, error) {
	start := time.Now()
	prompt, err := buildAnalyzerPrompt(analyzerPromptData{
		Text:    text,
		Meals:   a.meals,
		Weekday: strings.ToLower(a.now().Weekday().String()),
	})
	if err != nil {
		return Analysis{}, fmt.Errorf("failed to build analyzer prompt: %w", err)
	}

	resp, err := a.textGen.GenerateContent(ctx, prompt)
	if err != nil {
		return Analysis{}, err
	}
	meta := shared.AgentMeta{AgentName: "NoteAnalyzer", Usage: resp.Usage, Latency: time.Since(start)}

	var raw rawAnalysis
	if err := json.Unmarshal([]byte(extractJSON(resp.Content)), &raw); err != nil {
		return Analysis{Meta: meta}, fmt.Errorf("failed to parse analyzer response %w. Response: %s", err, resp.Content)
	}

	if !raw.Approved {
		return Analysis{Status: StatusDeclined, Reason: raw.Reason, Meta: meta}, nil
	}

	meal, ok := mealByName(a.meals, raw.Meal)
	if !ok {
		return Analysis{Status: StatusDeclined, Reason: fmt.Sprintf("%q is not on the menu", raw.Meal), Meta: meta}, nil
	}
	mt, ok := catalog.ParseMealTime(raw.Time)
	if !ok {
		if len(meal.MealTime) == 0 {
			return Analysis{Status: StatusDeclined, Reason: fmt.Sprintf("unknown meal time %q", raw.Time), Meta: meta}, nil
		}
		mt = meal.MealTime[0]
	}

	return Analysis{
		Status: StatusApproved,
		Logic:  &Logic{Day: strings.ToLower(strings.TrimSpace(raw.Day)), Time: mt, Meal: meal.Name},
		Reason: raw.Reason,
		Meta:   meta,
	}, nil
}

func buildAnalyzerPrompt(data analyzerPromptData) (string, error) {
	var buf bytes.Buffer
	if err := analyzerTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// extractJSON strips the markdown fences some models wrap around JSON.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if start, end := strings.Index(s, "{"), strings.LastIndex(s, "}"); start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}

func mealByName(meals []catalog.Meal, name string) (catalog.Meal, bool) {
	name = strings.TrimSpace(name)
	for _, m := range meals {
		if strings.EqualFold(m.Name, name) || m.ID == name {
			return m, true
		}
	}
	return catalog.Meal{}, false
}
