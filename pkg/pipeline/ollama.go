package pipeline

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// OllamaLLMClient implements LLMClient against a local Ollama server.
type OllamaLLMClient struct {
	baseURL    string
	httpClient *http.Client
	model      string
	maxTokens  int64
}

// NewOllamaLLMClient creates a new Ollama LLM client.
func NewOllamaLLMClient(baseURL, model string, maxTokens int64) *OllamaLLMClient {
	return &OllamaLLMClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 0}, // context controls cancellation
		model:      model,
		maxTokens:  maxTokens,
	}
}

// Complete sends a prompt to Ollama's chat endpoint and returns the response text.
func (c *OllamaLLMClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	req := ollamaChatRequest{
		Model: c.model,
		Messages: []ollamaMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Stream: false,
		Options: map[string]any{
			"num_predict": c.maxTokens,
		},
	}

	b, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("json marshal: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/chat", bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return "", fmt.Errorf("ollama chat http %d: %s", resp.StatusCode, string(body))
	}

	// Ollama may return newline-delimited JSON chunks even when stream=false
	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	var content bytes.Buffer
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var chunk ollamaChatResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			return "", fmt.Errorf("stream decode: %w (line=%q)", err, string(line))
		}
		if chunk.Error != "" {
			return "", fmt.Errorf("ollama error: %s", chunk.Error)
		}
		content.WriteString(chunk.Message.Content)
		if chunk.Done {
			break
		}
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("scan: %w", err)
	}

	return content.String(), nil
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content,omitempty"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream,omitempty"`
	Options  map[string]any  `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Model   string        `json:"model,omitempty"`
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done,omitempty"`
	Error   string        `json:"error,omitempty"`
}
