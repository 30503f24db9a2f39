package decision

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cardion-health/precert/internal/shared/config"
)

// TestClientComplete tests that the client sends the prompt and joins the
// text blocks of the response.
func TestClientComplete(t *testing.T) {
	var gotPath, gotAPIKey string
	var gotReq messagesRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAPIKey = r.Header.Get("x-api-key")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]string{
				{"type": "text", "text": "first "},
				{"type": "tool_use", "text": "ignored"},
				{"type": "text", "text": "second"},
			},
		})
	}))
	defer srv.Close()

	client := NewClient(config.LLMConfig{
		BaseURL: srv.URL,
		APIKey:  "test-key",
		Model:   "test-model",
	})

	got, err := client.Complete(context.Background(), "decide this")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != "first second" {
		t.Errorf("Complete() = %q, want %q", got, "first second")
	}
	if gotPath != "/v1/messages" {
		t.Errorf("request path = %q, want /v1/messages", gotPath)
	}
	if gotAPIKey != "test-key" {
		t.Errorf("x-api-key = %q, want test-key", gotAPIKey)
	}
	if gotReq.Model != "test-model" {
		t.Errorf("request model = %q, want test-model", gotReq.Model)
	}
	if len(gotReq.Messages) != 1 || gotReq.Messages[0].Content != "decide this" {
		t.Errorf("request messages = %+v, want single user message with prompt", gotReq.Messages)
	}
}

// TestClientCompleteErrors tests the error paths of the model call.
func TestClientCompleteErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr string
	}{
		{
			name: "non-200 status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "overloaded", http.StatusServiceUnavailable)
			},
			wantErr: "status 503",
		},
		{
			name: "error payload",
			handler: func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]string{"type": "invalid_request_error", "message": "bad prompt"},
				})
			},
			wantErr: "bad prompt",
		},
		{
			name: "empty content",
			handler: func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]any{"content": []any{}})
			},
			wantErr: "empty response",
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("not json"))
			},
			wantErr: "decode response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			client := NewClient(config.LLMConfig{BaseURL: srv.URL, Model: "test-model"})

			_, err := client.Complete(context.Background(), "prompt")
			if err == nil {
				t.Fatal("Complete() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Complete() error = %q, want substring %q", err, tt.wantErr)
			}
		})
	}
}

// TestClientCompleteTimeout tests that a slow model call is cut off at the
// configured timeout.
func TestClientCompleteTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	client := NewClient(config.LLMConfig{
		BaseURL: srv.URL,
		Model:   "test-model",
		Timeout: 50 * time.Millisecond,
	})

	start := time.Now()
	_, err := client.Complete(context.Background(), "prompt")
	if err == nil {
		t.Fatal("Complete() error = nil, want timeout error")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Complete() took %v, want prompt cutoff near the configured timeout", elapsed)
	}
}
