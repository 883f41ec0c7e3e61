package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Ollama talks to a local Ollama server through its generate API.
type Ollama struct {
	url    string
	model  string
	client *http.Client
}

func NewOllama(url, model string, client *http.Client) *Ollama {
	if client == nil {
		client = http.DefaultClient
	}
	if model == "" {
		model = "llama3"
	}
	return &Ollama{url: url, model: model, client: client}
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// The API returns different shapes depending on version; accept both the
// generate response and the generic completions one.
type ollamaResponse struct {
	Response string `json:"response"`
	Choices  []struct {
		Text string `json:"text"`
	} `json:"choices"`
}

func (o *Ollama) Generate(ctx context.Context, system, user string) (string, error) {
	prompt := fmt.Sprintf("%s\n\nUser: %s\nAssistant:", system, user)

	body, err := json.Marshal(ollamaRequest{Model: o.model, Prompt: prompt, Stream: false})
	if err != nil {
		return "", fmt.Errorf("marshal ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("ollama returned %s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}

	var out ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode ollama response: %w", err)
	}

	if out.Response != "" {
		return strings.TrimSpace(out.Response), nil
	}
	if len(out.Choices) > 0 {
		return strings.TrimSpace(out.Choices[0].Text), nil
	}
	return "", fmt.Errorf("empty ollama response")
}
