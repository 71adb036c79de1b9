package llm

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

	"NewsflashAnalyzer/internal/config"
	"NewsflashAnalyzer/internal/ports"
)

// Per-call deadlines. Impact extraction is given more room because the
// structured prompt produces much longer completions.
const (
	ClassifyTimeout = 60 * time.Second
	ExtractTimeout  = 120 * time.Second
)

// FailureKind classifies why a completion call produced no result.
type FailureKind int

const (
	FailureTimeout FailureKind = iota + 1
	FailureConnection
	FailureTransport
	FailureMalformedStructured
	FailureDecode
)

func (k FailureKind) String() string {
	switch k {
	case FailureTimeout:
		return "timeout"
	case FailureConnection:
		return "connection"
	case FailureTransport:
		return "transport"
	case FailureMalformedStructured:
		return "malformed_structured"
	case FailureDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// CallError is the single error type returned by Generate. Callers switch on
// Kind instead of comparing strings.
type CallError struct {
	Kind FailureKind
	Err  error
}

func (e *CallError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("ollama call failed: %s", e.Kind)
	}
	return fmt.Sprintf("ollama call failed (%s): %v", e.Kind, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

// OllamaClient talks to an Ollama-compatible /api/generate endpoint.
type OllamaClient struct {
	apiURL string
	model  string
	http   *http.Client
}

var _ ports.Completer = (*OllamaClient)(nil)

// NewOllamaClient builds a client from configuration. Per-call deadlines are
// carried by the request, so the underlying http.Client has no fixed timeout.
func NewOllamaClient(cfg config.OllamaConfig) *OllamaClient {
	return &OllamaClient{
		apiURL: cfg.APIURL,
		model:  cfg.Model,
		http:   &http.Client{},
	}
}

// Generate performs a single completion call. No retry is attempted; every
// failure comes back as a *CallError and the caller decides what to do.
func (c *OllamaClient) Generate(ctx context.Context, req ports.CompletionRequest) (*ports.CompletionResult, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = ClassifyTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	payload := map[string]any{
		"model":  c.model,
		"prompt": req.Prompt,
		"stream": false,
	}
	if req.System != "" {
		payload["system"] = req.System
	}
	if req.StructuredJSON {
		payload["format"] = "json"
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &CallError{Kind: FailureTransport, Err: fmt.Errorf("marshal payload: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, &CallError{Kind: FailureTransport, Err: fmt.Errorf("new request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &CallError{Kind: classifyTransportErr(err), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &CallError{
			Kind: FailureTransport,
			Err:  fmt.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(detail))),
		}
	}

	var wire map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, &CallError{Kind: FailureDecode, Err: fmt.Errorf("decode response: %w", err)}
	}

	if !req.StructuredJSON {
		var text string
		if respField, ok := wire["response"]; ok {
			if err := json.Unmarshal(respField, &text); err != nil {
				return nil, &CallError{Kind: FailureDecode, Err: fmt.Errorf("response field: %w", err)}
			}
		}
		return &ports.CompletionResult{Text: strings.TrimSpace(text)}, nil
	}

	structured, err := normalizeStructured(wire)
	if err != nil {
		return nil, &CallError{Kind: FailureMalformedStructured, Err: err}
	}
	return &ports.CompletionResult{Structured: structured}, nil
}

// normalizeStructured folds the three observed response shapes into one
// object: JSON escaped inside the "response" string, an object nested in
// "response", or the top-level body itself acting as the object.
func normalizeStructured(wire map[string]json.RawMessage) (map[string]any, error) {
	respField, ok := wire["response"]
	if !ok {
		out := make(map[string]any, len(wire))
		for k, v := range wire {
			var val any
			if err := json.Unmarshal(v, &val); err != nil {
				return nil, fmt.Errorf("top-level field %q: %w", k, err)
			}
			out[k] = val
		}
		return out, nil
	}

	var embedded string
	if err := json.Unmarshal(respField, &embedded); err == nil {
		var out map[string]any
		if err := json.Unmarshal([]byte(embedded), &out); err != nil {
			return nil, fmt.Errorf("embedded response string is not a JSON object: %w", err)
		}
		return out, nil
	}

	var out map[string]any
	if err := json.Unmarshal(respField, &out); err != nil {
		return nil, fmt.Errorf("response field is neither string nor object: %w", err)
	}
	return out, nil
}

func classifyTransportErr(err error) FailureKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return FailureTimeout
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return FailureConnection
	}
	return FailureTransport
}
