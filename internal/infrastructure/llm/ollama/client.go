package ollama

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/a11yomatic/a11y-engine/internal/core/domain"
	"github.com/a11yomatic/a11y-engine/internal/infrastructure/resilience"
)

// Client generates remediation suggestions through a local Ollama server.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	exec       *resilience.Executor
}

func New(baseURL, model string, exec *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		exec:       exec,
	}
}

func (c *Client) Generate(ctx context.Context, req domain.GenerationRequest) (string, error) {
	payload := map[string]any{
		"model":  c.model,
		"prompt": req.Prompt,
		"stream": false,
	}
	if req.System != "" {
		payload["system"] = req.System
	}
	if req.WantJSON {
		payload["format"] = "json"
	}

	var response struct {
		Response string `json:"response"`
	}
	err := c.exec.Execute(ctx, "ollama_generate", func(ctx context.Context) error {
		return c.postJSON(ctx, "/api/generate", payload, &response, "generate")
	}, classifyOllamaError)
	if err != nil {
		return "", wrapTemporaryIfNeeded("generate suggestion", err)
	}
	return strings.TrimSpace(response.Response), nil
}
