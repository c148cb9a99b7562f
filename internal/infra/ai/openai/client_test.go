package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bryanwahyu/interaction-log/internal/domain/ai"
	"github.com/bryanwahyu/interaction-log/internal/domain/interactions"
)

func newTestServer(t *testing.T, status int, body any) (*httptest.Server, *map[string]any) {
	t.Helper()
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func completion(content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "gpt-4o-mini",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
	}
}

func TestAnalyze_Success(t *testing.T) {
	srv, req := newTestServer(t, http.StatusOK, completion(`{"ok":true}`))
	c := NewClientWithBaseURL("key", srv.URL+"/v1", "", time.Second)

	got, err := c.Analyze(context.Background(), "Road is flooded", "Email")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if got != `{"ok":true}` {
		t.Fatalf("content = %q", got)
	}
	if (*req)["model"] != defaultModel {
		t.Fatalf("model = %v, want default", (*req)["model"])
	}
	format, _ := (*req)["response_format"].(map[string]any)
	if format["type"] != "json_object" {
		t.Fatalf("response_format = %v", (*req)["response_format"])
	}
	msgs, _ := (*req)["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("messages = %v", msgs)
	}
	user, _ := msgs[1].(map[string]any)
	if content, _ := user["content"].(string); !strings.Contains(content, "Road is flooded") || !strings.Contains(content, "Email") {
		t.Fatalf("user prompt = %q", content)
	}
}

func TestAnalyze_Errors(t *testing.T) {
	apiError := map[string]any{"error": map[string]any{"message": "boom", "type": "server_error"}}
	tests := []struct {
		name   string
		status int
		body   any
		want   error
	}{
		{"quota", http.StatusTooManyRequests, apiError, ai.ErrQuotaExceeded},
		{"server error", http.StatusInternalServerError, apiError, ai.ErrServiceUnavailable},
		{"no choices", http.StatusOK, map[string]any{"id": "x", "choices": []any{}}, ai.ErrEmptyResponse},
		{"blank content", http.StatusOK, completion("  "), ai.ErrEmptyResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, tt.status, tt.body)
			c := NewClientWithBaseURL("key", srv.URL+"/v1", "gpt-4o-mini", time.Second)
			_, err := c.Analyze(context.Background(), "text", "Other")
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestAnalyze_TransportFailureIsServiceFailure(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, completion("{}"))
	url := srv.URL
	srv.Close()

	c := NewClientWithBaseURL("key", url+"/v1", "gpt-4o-mini", time.Second)
	_, err := c.Analyze(context.Background(), "text", "Other")
	if !errors.Is(err, interactions.ErrServiceFailure) {
		t.Fatalf("err = %v, want service failure", err)
	}
}
