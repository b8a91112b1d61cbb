package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"meal-scheduler/internal/config"
	"meal-scheduler/internal/shared"
)

const (
	groqAPIURL = "https://api.groq.com/openai/v1/chat/completions"

	// ModelNoteAnalyst is the Groq model used to read priority notes.
	ModelNoteAnalyst = "llama-3.3-70b-versatile"
)

// GroqClient is a client for the Groq chat completions API.
type GroqClient struct {
	apiKey      string
	model       string
	temperature float64
	url         string
	httpClient  *http.Client
}

// NewGroqClient creates a new Groq API client.
func NewGroqClient(cfg *config.Config, model string, temperature float64) *GroqClient {
	return &GroqClient{
		apiKey:      cfg.GroqAPIKey,
		model:       model,
		temperature: temperature,
		url:         groqAPIURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type groqMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type groqRequest struct {
	Model          string            `json:"model"`
	Messages       []groqMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format"`
}

type groqResponse struct {
	Choices []struct {
		Message groqMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// GenerateContent sends a prompt to the Groq model and returns the generated text.
func (c *GroqClient) GenerateContent(ctx context.Context, prompt string) (ContentResponse, error) {
	body, err := json.Marshal(groqRequest{
		Model:          c.model,
		Messages:       []groqMessage{{Role: "user", Content: prompt}},
		Temperature:    c.temperature,
		ResponseFormat: map[string]string{"type": "json_object"},
	})
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return ContentResponse{}, fmt.Errorf("groq api error: status=%d body=%s", resp.StatusCode, string(raw))
	}

	var out groqResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return ContentResponse{}, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return ContentResponse{}, errors.New("no content generated")
	}

	return ContentResponse{
		Content: out.Choices[0].Message.Content,
		Usage: shared.TokenUsage{
			PromptTokens:     out.Usage.PromptTokens,
			CompletionTokens: out.Usage.CompletionTokens,
			TotalTokens:      out.Usage.TotalTokens,
			Model:            c.model,
		},
	}, nil
}
