package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"NewsflashAnalyzer/internal/config"
	"NewsflashAnalyzer/internal/ports"
)

func newTestClient(url string) *OllamaClient {
	return NewOllamaClient(config.OllamaConfig{APIURL: url, Model: "test-model"})
}

func TestGenerateText(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if payload["model"] != "test-model" {
			t.Errorf("unexpected model: %v", payload["model"])
		}
		if payload["stream"] != false {
			t.Errorf("expected stream=false")
		}
		if _, ok := payload["format"]; ok {
			t.Errorf("text request must not set format")
		}
		if payload["system"] != "be terse" {
			t.Errorf("unexpected system: %v", payload["system"])
		}
		_, _ = w.Write([]byte(`{"response": "  fact  ", "done": true}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	res, err := client.Generate(context.Background(), ports.CompletionRequest{
		Prompt: "classify this",
		System: "be terse",
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if res.Text != "fact" {
		t.Fatalf("expected trimmed text, got %q", res.Text)
	}
}

func TestGenerateStructuredShapes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		body string
	}{
		{
			name: "escaped string inside response",
			body: `{"response": "{\"industry_impact_strength\": \"强\"}", "done": true}`,
		},
		{
			name: "object inside response",
			body: `{"response": {"industry_impact_strength": "强"}, "done": true}`,
		},
		{
			name: "top-level object",
			body: `{"industry_impact_strength": "强"}`,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var payload map[string]any
				_ = json.NewDecoder(r.Body).Decode(&payload)
				if payload["format"] != "json" {
					t.Errorf("structured request must set format=json")
				}
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			client := newTestClient(server.URL)
			res, err := client.Generate(context.Background(), ports.CompletionRequest{
				Prompt:         "analyze",
				StructuredJSON: true,
			})
			if err != nil {
				t.Fatalf("generate: %v", err)
			}
			if res.Structured["industry_impact_strength"] != "强" {
				t.Fatalf("normalization lost the field: %+v", res.Structured)
			}
		})
	}
}

func TestGenerateStructuredMalformed(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The response field is neither a JSON string nor an object.
		_, _ = w.Write([]byte(`{"response": 42}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Generate(context.Background(), ports.CompletionRequest{StructuredJSON: true})
	assertKind(t, err, FailureMalformedStructured)
}

func TestGenerateDecodeFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`this is not json`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Generate(context.Background(), ports.CompletionRequest{})
	assertKind(t, err, FailureDecode)
}

func TestGenerateTransportFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Generate(context.Background(), ports.CompletionRequest{})
	assertKind(t, err, FailureTransport)
}

func TestGenerateConnectionFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := newTestClient(server.URL)
	_, err := client.Generate(context.Background(), ports.CompletionRequest{})
	assertKind(t, err, FailureConnection)
}

func TestGenerateTimeout(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer server.Close()
	defer close(block)

	client := newTestClient(server.URL)
	_, err := client.Generate(context.Background(), ports.CompletionRequest{
		Timeout: 50 * time.Millisecond,
	})
	assertKind(t, err, FailureTimeout)
}

func assertKind(t *testing.T, err error, want FailureKind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s failure, got nil", want)
	}
	var callErr *CallError
	if !errors.As(err, &callErr) {
		t.Fatalf("expected *CallError, got %T: %v", err, err)
	}
	if callErr.Kind != want {
		t.Fatalf("expected kind %s, got %s (%v)", want, callErr.Kind, callErr)
	}
}
