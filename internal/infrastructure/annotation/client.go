package annotation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/a11yomatic/a11y-engine/internal/core/domain"
	"github.com/a11yomatic/a11y-engine/internal/infrastructure/resilience"
)

// Client applies approved fixes through the annotation sidecar service. The
// service stamps every fix for one document in a single pass and answers with
// the path of the fixed artifact, or an empty path when it annotated the
// source in place.
type Client struct {
	baseURL    string
	httpClient *http.Client
	exec       *resilience.Executor
}

func New(baseURL string, exec *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
		exec:       exec,
	}
}

type applyRequest struct {
	DocumentPath string                      `json:"document_path"`
	Fixes        []domain.RemediationPayload `json:"fixes"`
}

type applyResponse struct {
	FixedPath string `json:"fixed_path"`
}

func (c *Client) Apply(ctx context.Context, documentPath string, fixes []domain.RemediationPayload) (string, error) {
	body, err := json.Marshal(applyRequest{DocumentPath: documentPath, Fixes: fixes})
	if err != nil {
		return "", fmt.Errorf("marshal apply request: %w", err)
	}

	var result applyResponse
	err = c.exec.Execute(ctx, "annotation_apply", func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/apply", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create apply request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("annotation apply request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			return &statusError{status: resp.Status, code: resp.StatusCode, body: strings.TrimSpace(string(raw))}
		}
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return fmt.Errorf("decode apply response: %w", err)
		}
		return nil
	}, classifyApplyError)
	if err != nil {
		if cls := classifyApplyError(err); cls.Retryable || resilience.IsCircuitOpen(err) {
			return "", domain.WrapError(domain.ErrTemporary, "apply fixes", err)
		}
		return "", err
	}
	return result.FixedPath, nil
}

type statusError struct {
	status string
	code   int
	body   string
}

func (e *statusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("annotation apply status: %s", e.status)
	}
	return fmt.Sprintf("annotation apply status: %s: %s", e.status, e.body)
}

func classifyApplyError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}

	var statusErr *statusError
	if errors.As(err, &statusErr) {
		switch statusErr.code {
		case http.StatusRequestTimeout, http.StatusTooManyRequests,
			http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
		default:
			return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
}
