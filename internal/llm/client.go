// Package llm calls a language model with a JSON schema constraint on its output.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrNotConfigured is returned when no API key is available.
	ErrNotConfigured = errors.New("llm api key not configured")
	// ErrNoOutput is returned when the response carries no usable text.
	ErrNoOutput = errors.New("llm response contained no output text")
	// ErrRefused is returned when the model refuses to answer.
	ErrRefused = errors.New("llm refused the request")
)

// ObjectRequest asks for a JSON value conforming to Schema.
type ObjectRequest struct {
	System     string
	Prompt     string
	SchemaName string
	Schema     map[string]any
}

// Generator returns a value conforming to a schema or fails.
type Generator interface {
	GenerateObject(ctx context.Context, req ObjectRequest, out any) error
}

// Config configures the OpenAI Responses API client.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Client implements Generator against the OpenAI Responses API.
type Client struct {
	apiKey  string
	baseURL string
	model   string
	http    *http.Client
}

// NewClient creates a Client. Empty fields fall back to the public endpoint and a default model.
func NewClient(cfg Config) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4.1"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		model:   model,
		http:    &http.Client{Timeout: timeout},
	}
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

type responsesRequest struct {
	Model string         `json:"model"`
	Input []inputMessage `json:"input"`
	Text  textOptions    `json:"text"`
	Store bool           `json:"store"`
}

type inputMessage struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type textOptions struct {
	Format formatSpec `json:"format"`
}

type formatSpec struct {
	Type   string         `json:"type"`
	Name   string         `json:"name"`
	Schema map[string]any `json:"schema"`
	Strict bool           `json:"strict"`
}

type responsesResponse struct {
	ID     string       `json:"id"`
	Status string       `json:"status"`
	Output []outputItem `json:"output"`
	Error  *apiError    `json:"error"`
}

type outputItem struct {
	Type    string          `json:"type"`
	Role    string          `json:"role"`
	Content []outputContent `json:"content"`
}

type outputContent struct {
	Type    string `json:"type"`
	Text    string `json:"text"`
	Refusal string `json:"refusal"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// GenerateObject sends one request and decodes the structured output into out.
func (c *Client) GenerateObject(ctx context.Context, req ObjectRequest, out any) error {
	if c.apiKey == "" {
		return ErrNotConfigured
	}

	input := make([]inputMessage, 0, 2)
	if req.System != "" {
		input = append(input, inputMessage{Role: "system", Content: []contentBlock{{Type: "input_text", Text: req.System}}})
	}
	input = append(input, inputMessage{Role: "user", Content: []contentBlock{{Type: "input_text", Text: req.Prompt}}})

	payload, err := json.Marshal(responsesRequest{
		Model: c.model,
		Input: input,
		Text: textOptions{Format: formatSpec{
			Type:   "json_schema",
			Name:   req.SchemaName,
			Schema: req.Schema,
			Strict: true,
		}},
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/responses", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("llm http status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded responsesResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if decoded.Error != nil {
		return fmt.Errorf("llm error %s: %s", decoded.Error.Code, decoded.Error.Message)
	}

	text, err := outputText(decoded)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("parse structured output: %w", err)
	}
	return nil
}

func outputText(resp responsesResponse) (string, error) {
	if resp.Status != "" && resp.Status != "completed" {
		return "", fmt.Errorf("%w: status %s", ErrNoOutput, resp.Status)
	}
	for _, item := range resp.Output {
		if item.Type != "message" {
			continue
		}
		for _, c := range item.Content {
			switch c.Type {
			case "output_text":
				if strings.TrimSpace(c.Text) != "" {
					return c.Text, nil
				}
			case "refusal":
				return "", fmt.Errorf("%w: %s", ErrRefused, c.Refusal)
			}
		}
	}
	return "", ErrNoOutput
}
