package services

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sportlens/sportlens-backend/internal/logger"
	"github.com/sportlens/sportlens-backend/internal/utils"
)

// GenerateRequest mirrors the Ollama /api/generate body.
type GenerateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	System  string          `json:"system,omitempty"`
	Stream  bool            `json:"stream"`
	Options GenerateOptions `json:"options,omitempty"`
}

type GenerateOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	TopP        float64 `json:"top_p,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

// StreamChunk is one element of the asynchronous token sequence produced by
// GenerateStream. After a chunk with Done or a non-nil Err the channel is
// closed.
type StreamChunk struct {
	Text string
	Done bool
	Err  error
}

// OllamaClient is the remote inference collaborator. Implementations must be
// safe for concurrent use by multiple job executions.
type OllamaClient interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
	GenerateStream(ctx context.Context, req GenerateRequest) (<-chan StreamChunk, error)
	ListModels(ctx context.Context) ([]string, error)
	CheckHealth(ctx context.Context) bool
}

type ollamaClient struct {
	log        *logger.Logger
	baseURL    string
	httpClient *http.Client
}

func NewOllamaClient(log *logger.Logger) OllamaClient {
	baseURL := strings.TrimRight(utils.GetEnv("OLLAMA_URL", "http://localhost:11434", log), "/")
	timeoutSec := utils.GetEnvAsInt("OLLAMA_TIMEOUT_SECONDS", 300, log)

	return &ollamaClient{
		log:        log.With("service", "OllamaClient"),
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
	}
}

type generateChunk struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Generate runs a full-response completion. The upstream call always streams
// and the chunks are folded here so partial output is never lost on long
// generations.
func (c *ollamaClient) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	stream, err := c.GenerateStream(ctx, req)
	if err != nil {
		return "", err
	}
	var full strings.Builder
	for chunk := range stream {
		if chunk.Err != nil {
			return "", chunk.Err
		}
		full.WriteString(chunk.Text)
	}
	if full.Len() == 0 {
		return "", fmt.Errorf("no response received from ollama")
	}
	return full.String(), nil
}

// GenerateStream starts a streaming completion and returns the chunk
// sequence. The channel is closed after the final (done) chunk; consumers
// fan the sequence out as they see fit.
func (c *ollamaClient) GenerateStream(ctx context.Context, req GenerateRequest) (<-chan StreamChunk, error) {
	req.Stream = true
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal generate request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ollama generate: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("ollama http %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	out := make(chan StreamChunk)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		sawDone := false
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			var chunk generateChunk
			if err := json.Unmarshal([]byte(line), &chunk); err != nil {
				c.log.Warn("Failed to parse ollama stream line", "error", err)
				continue
			}
			out <- StreamChunk{Text: chunk.Response, Done: chunk.Done}
			if chunk.Done {
				sawDone = true
				return
			}
		}
		if err := scanner.Err(); err != nil {
			out <- StreamChunk{Err: fmt.Errorf("ollama stream: %w", err)}
			return
		}
		if !sawDone {
			// Upstream closed without a done marker; synthesize one.
			out <- StreamChunk{Done: true}
		}
	}()
	return out, nil
}

func (c *ollamaClient) ListModels(ctx context.Context) ([]string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ollama list models: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama http %d", resp.StatusCode)
	}

	var parsed struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode model list: %w", err)
	}
	names := make([]string, 0, len(parsed.Models))
	for _, m := range parsed.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

func (c *ollamaClient) CheckHealth(ctx context.Context) bool {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.log.Debug("Ollama health check failed", "error", err)
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
