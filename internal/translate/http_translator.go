package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// TranslateError represents an error response from the translation service.
type TranslateError struct {
	StatusCode int
	Body       string
}

func (e *TranslateError) Error() string {
	return fmt.Sprintf("translation failed: HTTP %d: %s", e.StatusCode, e.Body)
}

// IsRetryable returns true for server errors (5xx). Client errors (4xx) are
// considered permanent.
func (e *TranslateError) IsRetryable() bool {
	return e.StatusCode >= 500
}

// HTTPTranslator sends commands to a remote translation endpoint and decodes
// the structured edit request from the response.
type HTTPTranslator struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewHTTPTranslator(baseURL, token string, logger *slog.Logger) *HTTPTranslator {
	return &HTTPTranslator{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

type translateRequest struct {
	Command string `json:"command"`
}

func (t *HTTPTranslator) Translate(ctx context.Context, command string) (*Result, error) {
	body, err := json.Marshal(translateRequest{Command: command})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := t.baseURL + "/v1/translate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if t.token != "" {
		req.Header.Set("Authorization", "Bearer "+t.token)
	}

	t.logger.Info("translating command", "url", url, "command_len", len(command))

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TranslateError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var result Result
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if result.Action == "" {
		return nil, ErrUnrecognized
	}

	t.logger.Info("command translated", "action", result.Action)
	return &result, nil
}
