package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/abdhe/studyhub-assist/pkg/resilience"
)

// maxErrorBody caps how much of a failed response body ends up in errors and logs.
const maxErrorBody = 512

// Client implements Transport for the Hugging Face inference API.
type Client struct {
	client  *http.Client
	baseURL string
	token   string
	policy  resilience.Policy
}

// NewClient creates a client for baseURL (e.g. https://api-inference.huggingface.co/models).
// Timeouts are applied per attempt by Post, so the http.Client has none.
func NewClient(baseURL, token string, policy resilience.Policy) *Client {
	return &Client{
		client:  &http.Client{},
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		policy:  policy,
	}
}

// ---------------------------------------------------------------------------
// Response types
// ---------------------------------------------------------------------------

type hfOutput struct {
	SummaryText   *string `json:"summary_text"`
	GeneratedText *string `json:"generated_text"`
}

type hfError struct {
	Error string `json:"error"`
}

// ---------------------------------------------------------------------------
// Post
// ---------------------------------------------------------------------------

// Post sends req to POST {baseURL}/{model}, retrying per the client's policy.
func (c *Client) Post(ctx context.Context, model string, req Request, timeout time.Duration) Result {
	body, err := json.Marshal(req)
	if err != nil {
		return Result{Failure: FailureMalformed, Err: fmt.Errorf("huggingface: marshal request: %w", err)}
	}

	url := c.baseURL + "/" + model

	var (
		text     string
		status   int
		attempts int
	)
	err = resilience.Retry(ctx, c.policy, http.MethodPost, func(ctx context.Context) error {
		attempts++
		var attemptErr error
		text, status, attemptErr = c.attempt(ctx, url, body, timeout)
		return attemptErr
	})
	if err != nil {
		return Result{Status: status, Attempts: attempts, Failure: Classify(err), Err: err}
	}

	return Result{Text: text, Status: status, Attempts: attempts}
}

// attempt performs a single HTTP round trip.
func (c *Client) attempt(ctx context.Context, url string, body []byte, timeout time.Duration) (string, int, error) {
	actx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(actx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", 0, fmt.Errorf("huggingface: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.token)

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return "", 0, c.networkError(ctx, "do request", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(httpResp.Body, maxErrorBody))
		return "", httpResp.StatusCode, &StatusError{Code: httpResp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", httpResp.StatusCode, c.networkError(ctx, "read response", err)
	}

	text, err := parseOutput(data)
	return text, httpResp.StatusCode, err
}

// networkError marks err transient unless the caller's own context ended.
func (c *Client) networkError(ctx context.Context, op string, err error) error {
	err = fmt.Errorf("huggingface: %s: %w", op, err)
	if ctx.Err() != nil {
		return err
	}
	return resilience.Transient(err)
}

// parseOutput extracts the text from a `[{"summary_text": ...}]` or
// `[{"generated_text": ...}]` body.
func parseOutput(data []byte) (string, error) {
	var outputs []hfOutput
	if err := json.Unmarshal(data, &outputs); err != nil {
		var apiErr hfError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return "", fmt.Errorf("huggingface: %w: %s", ErrMalformed, apiErr.Error)
		}
		return "", fmt.Errorf("huggingface: %w: %v", ErrMalformed, err)
	}
	if len(outputs) == 0 {
		return "", fmt.Errorf("huggingface: %w: empty list", ErrMalformed)
	}

	first := outputs[0]
	if first.SummaryText == nil && first.GeneratedText == nil {
		return "", fmt.Errorf("huggingface: %w: no summary_text or generated_text", ErrMalformed)
	}

	var text string
	if first.SummaryText != nil {
		text = strings.TrimSpace(*first.SummaryText)
	}
	if text == "" && first.GeneratedText != nil {
		text = strings.TrimSpace(*first.GeneratedText)
	}
	if text == "" {
		return "", fmt.Errorf("huggingface: %w", ErrEmptyOutput)
	}
	return text, nil
}
