package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func chatServer(t *testing.T, handler func(calls int, w http.ResponseWriter, r *http.Request)) (*httptest.Server, *int) {
	t.Helper()
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		handler(calls, w, r)
	}))
	t.Cleanup(server.Close)
	return server, &calls
}

func writeChoice(w http.ResponseWriter, choice map[string]any) {
	_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{choice}})
}

func testClient(server *httptest.Server, opts ...Option) *Client {
	base := []Option{WithRetryBackoff(0, 0), WithSleeper(func(time.Duration) {})}
	return NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"}, append(base, opts...)...)
}

func TestCompleteJSONSendsRequest(t *testing.T) {
	server, _ := chatServer(t, func(_ int, w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test" {
			t.Errorf("authorization header = %q", got)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "demo-model" || len(req.Messages) != 2 {
			t.Errorf("unexpected request %+v", req)
		}
		if req.ResponseFormat["type"] != "json_object" {
			t.Errorf("response format = %v", req.ResponseFormat)
		}
		writeChoice(w, map[string]any{"message": map[string]any{"content": `{"lines":[]}`}})
	})

	got, err := testClient(server).CompleteJSON(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("CompleteJSON returned error: %v", err)
	}
	if got != `{"lines":[]}` {
		t.Fatalf("unexpected content %q", got)
	}
}

func TestCompleteJSONRequiresPrompts(t *testing.T) {
	client := NewClient(Config{APIKey: "test", Model: "m"})
	if _, err := client.CompleteJSON(context.Background(), "", "user"); err == nil {
		t.Fatal("expected error for empty system prompt")
	}
	if _, err := client.CompleteJSON(context.Background(), "system", " "); err == nil {
		t.Fatal("expected error for empty user prompt")
	}
	noKey := NewClient(Config{Model: "m"})
	if _, err := noKey.CompleteJSON(context.Background(), "system", "user"); err == nil {
		t.Fatal("expected error for missing api key")
	}
}

func TestCompleteIntoDeltaAndLegacyText(t *testing.T) {
	tests := []struct {
		name   string
		choice map[string]any
	}{
		{name: "delta", choice: map[string]any{"delta": map[string]any{"content": `{"ok":true}`}}},
		{name: "text", choice: map[string]any{"finish_reason": "stop", "text": "```json\n{\"ok\":true}\n```"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, _ := chatServer(t, func(_ int, w http.ResponseWriter, _ *http.Request) {
				writeChoice(w, tt.choice)
			})
			var out struct {
				OK bool `json:"ok"`
			}
			if err := testClient(server).CompleteInto(context.Background(), "s", "u", &out); err != nil {
				t.Fatalf("CompleteInto returned error: %v", err)
			}
			if !out.OK {
				t.Fatal("expected ok=true")
			}
		})
	}
}

func TestEmptyContentErrorHasSnippet(t *testing.T) {
	server, calls := chatServer(t, func(_ int, w http.ResponseWriter, _ *http.Request) {
		writeChoice(w, map[string]any{"finish_reason": "stop", "message": map[string]any{"content": ""}})
	})
	_, err := testClient(server, WithRetryMaxAttempts(2)).CompleteJSON(context.Background(), "s", "u")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "empty content") || !strings.Contains(err.Error(), "response_snippet=") {
		t.Fatalf("expected snippet in error, got %v", err)
	}
	if *calls != 2 {
		t.Fatalf("expected 2 calls, got %d", *calls)
	}
}

func TestRetriesOnHTTP429(t *testing.T) {
	server, calls := chatServer(t, func(n int, w http.ResponseWriter, _ *http.Request) {
		if n == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate limited"}`))
			return
		}
		writeChoice(w, map[string]any{"message": map[string]any{"content": `{"ok":true}`}})
	})
	var slept []time.Duration
	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"},
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
		WithRetryBackoff(0, 10*time.Second),
		WithRetryMaxAttempts(5),
	)
	if _, err := client.CompleteJSON(context.Background(), "s", "u"); err != nil {
		t.Fatalf("CompleteJSON returned error: %v", err)
	}
	if *calls != 2 {
		t.Fatalf("expected 2 calls, got %d", *calls)
	}
	if len(slept) != 1 || slept[0] != time.Second {
		t.Fatalf("expected single sleep of 1s, got %v", slept)
	}
}

func TestRetriesOnEmptyContentThenSucceeds(t *testing.T) {
	server, calls := chatServer(t, func(n int, w http.ResponseWriter, _ *http.Request) {
		content := ""
		if n >= 3 {
			content = `{"ok":true}`
		}
		writeChoice(w, map[string]any{"finish_reason": "stop", "message": map[string]any{"content": content}})
	})
	if _, err := testClient(server).CompleteJSON(context.Background(), "s", "u"); err != nil {
		t.Fatalf("CompleteJSON returned error: %v", err)
	}
	if *calls != 3 {
		t.Fatalf("expected 3 calls, got %d", *calls)
	}
}

func TestNoRetryOnClientError(t *testing.T) {
	server, calls := chatServer(t, func(_ int, w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("bad key"))
	})
	_, err := testClient(server).CompleteJSON(context.Background(), "s", "u")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 StatusError, got %v", err)
	}
	if *calls != 1 {
		t.Fatalf("expected 1 call, got %d", *calls)
	}
}

func TestHealthCheck(t *testing.T) {
	server, _ := chatServer(t, func(_ int, w http.ResponseWriter, _ *http.Request) {
		writeChoice(w, map[string]any{"message": map[string]any{"content": `{"ok":true}`}})
	})
	if err := testClient(server).HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestBackoffDelayCaps(t *testing.T) {
	c := &Client{retryBaseDelay: time.Second, retryMaxDelay: 10 * time.Second}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 10 * time.Second}
	for i, w := range want {
		if got := c.backoffDelay(i + 1); got != w {
			t.Fatalf("attempt %d: got %v want %v", i+1, got, w)
		}
	}
}

func TestDecodeLLMJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "plain", input: `{"ok":true}`},
		{name: "fenced", input: "```json\n{\"ok\":true}\n```"},
		{name: "prose", input: "Here you go: {\"ok\":true} thanks"},
		{name: "empty", input: "  ", wantErr: true},
		{name: "garbage", input: "not json", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out struct {
				OK bool `json:"ok"`
			}
			err := DecodeLLMJSON(tt.input, &out)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil || !out.OK {
				t.Fatalf("DecodeLLMJSON(%q) = %v, ok=%v", tt.input, err, out.OK)
			}
		})
	}
}
