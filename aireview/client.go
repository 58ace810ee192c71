package aireview

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"bitbucket.org/paradixe/oit_backend/config"
)

// Client talks to a local Ollama server. Any failure, malformed
// output, or the forced-fallback flag degrades to the deterministic
// heuristic; callers never see a reviewer error.
type Client struct {
	BaseURL       string
	Model         string
	HTTPClient    *http.Client
	ForceFallback bool
}

// NewClientFromEnv reads PARADIXE_OLLAMA_URL, PARADIXE_OLLAMA_MODEL
// and PARADIXE_AI_FALLBACK.
func NewClientFromEnv() *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(os.Getenv("PARADIXE_OLLAMA_URL")), "/")
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	model := strings.TrimSpace(os.Getenv("PARADIXE_OLLAMA_MODEL"))
	if model == "" {
		model = "llama3.1"
	}
	return &Client{
		BaseURL:       baseURL,
		Model:         model,
		HTTPClient:    &http.Client{Timeout: 90 * time.Second},
		ForceFallback: config.AiFallbackForced(),
	}
}

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Format  string         `json:"format,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
}

func (c *Client) generate(ctx context.Context, prompt string, jsonFormat bool) (string, error) {
	payload := generateRequest{
		Model:  c.Model,
		Prompt: prompt,
		Stream: false,
		Options: map[string]any{
			"temperature": 0.0,
			"num_ctx":     8192,
		},
	}
	if jsonFormat {
		payload.Format = "json"
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("ollama returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var decoded generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", err
	}
	return decoded.Response, nil
}

func buildReviewPrompt(text string, references []string) string {
	var b strings.Builder
	b.WriteString("Eres un revisor de documentos OIT (ordenes de inspeccion de trabajo). ")
	b.WriteString("Evalua el documento contra los textos de referencia y responde SOLO un objeto JSON con las claves: ")
	b.WriteString(`"status" ("check", "alerta" o "error"), "summary", "alerts", "missing", "evidence".` + "\n\n")
	for i, ref := range references {
		fmt.Fprintf(&b, "REFERENCIA %d:\n%s\n\n", i+1, ref)
	}
	b.WriteString("DOCUMENTO:\n")
	b.WriteString(text)
	return b.String()
}

// ReviewDocument runs the automated review. The second return value
// reports whether the heuristic fallback produced the result.
func (c *Client) ReviewDocument(ctx context.Context, text string, references []string) (ReviewResult, bool) {
	logger := config.GetLogger()

	if c.ForceFallback {
		return HeuristicReview(text), true
	}

	raw, err := c.generate(ctx, buildReviewPrompt(text, references), true)
	if err != nil {
		config.LogError(logger, "aireview", "ReviewDocument", "ollama generate failed, using heuristic", nil, err)
		return HeuristicReview(text), true
	}

	var result ReviewResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		salvaged := ExtractJSONObject(raw)
		if salvaged == "" || json.Unmarshal([]byte(salvaged), &result) != nil {
			config.LogError(logger, "aireview", "ReviewDocument", "unparseable model output, using heuristic", nil, err)
			return HeuristicReview(text), true
		}
	}

	result.Status = normalizeStatus(result.Status)
	if result.Alerts == nil {
		result.Alerts = []string{}
	}
	if result.Missing == nil {
		result.Missing = []string{}
	}
	if result.Evidence == nil {
		result.Evidence = []string{}
	}
	return result, false
}

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []ChatMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type chatResponse struct {
	Message ChatMessage `json:"message"`
}

// Chat relays a conversation to the model.
func (c *Client) Chat(ctx context.Context, messages []ChatMessage) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:    c.Model,
		Messages: messages,
		Stream:   false,
		Options:  map[string]any{"temperature": 0.0},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("ollama returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", err
	}
	return decoded.Message.Content, nil
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// ListModels returns the model names the Ollama server has pulled.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/tags", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama returned %d", resp.StatusCode)
	}

	var decoded tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(decoded.Models))
	for _, m := range decoded.Models {
		names = append(names, m.Name)
	}
	return names, nil
}
