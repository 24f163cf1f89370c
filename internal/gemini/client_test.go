package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestClient(baseURL string) *Client {
	c := NewClient("test-key", zap.NewNop())
	c.baseURL = baseURL
	c.initialDelay = time.Millisecond
	return c
}

func TestGenerateLabelOverview(t *testing.T) {
	var gotPath, gotQuery string
	var gotBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		json.NewDecoder(r.Body).Decode(&gotBody)
		fmt.Fprint(w, `{"candidates":[{"content":{"parts":[{"text":"  Warp Records is a UK label founded in 1989.  "}]}}]}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	overview, err := client.GenerateLabelOverview(context.Background(), "Warp Records")
	if err != nil {
		t.Fatalf("GenerateLabelOverview() error: %v", err)
	}

	if overview != "Warp Records is a UK label founded in 1989." {
		t.Errorf("overview = %q, want trimmed text", overview)
	}
	if gotPath != "/models/gemini-flash-latest:generateContent" {
		t.Errorf("path = %q", gotPath)
	}
	if gotQuery != "key=test-key" {
		t.Errorf("query = %q", gotQuery)
	}

	genCfg, ok := gotBody["generationConfig"].(map[string]any)
	if !ok {
		t.Fatal("request missing generationConfig")
	}
	if genCfg["temperature"] != 0.7 || genCfg["topP"] != 0.8 {
		t.Errorf("generationConfig = %v", genCfg)
	}
	if genCfg["maxOutputTokens"] != float64(300) {
		t.Errorf("maxOutputTokens = %v", genCfg["maxOutputTokens"])
	}

	safety, ok := gotBody["safetySettings"].([]any)
	if !ok || len(safety) != 4 {
		t.Fatalf("safetySettings = %v, want 4 entries", gotBody["safetySettings"])
	}

	contents := gotBody["contents"].([]any)
	part := contents[0].(map[string]any)["parts"].([]any)[0].(map[string]any)
	prompt := part["text"].(string)
	if !strings.Contains(prompt, `record label "Warp Records"`) {
		t.Errorf("prompt missing quoted label name: %q", prompt)
	}
	if !strings.Contains(prompt, "Maximum 4 sentences") {
		t.Errorf("prompt missing length constraint: %q", prompt)
	}
}

func TestGenerateLabelOverviewBlocked(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"candidates":[{"content":{},"finishReason":"SAFETY"}]}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	overview, err := client.GenerateLabelOverview(context.Background(), "Some Label")
	if err != nil {
		t.Fatalf("blocked response should not error: %v", err)
	}
	if overview != "Visit the links below for more info." {
		t.Errorf("overview = %q, want the fallback text", overview)
	}
}

func TestGenerateLabelOverviewNoCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"candidates":[]}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	if _, err := client.GenerateLabelOverview(context.Background(), "Some Label"); err == nil {
		t.Fatal("expected error for empty candidates")
	}
}

func TestGenerateLabelOverviewRetriesRateLimit(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	overview, err := client.GenerateLabelOverview(context.Background(), "Label")
	if err != nil {
		t.Fatalf("GenerateLabelOverview() error: %v", err)
	}
	if overview != "ok" {
		t.Errorf("overview = %q", overview)
	}
	if calls != 2 {
		t.Errorf("server saw %d calls, want 2", calls)
	}
}

func TestGenerateLabelOverviewClientErrorNoRetry(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"message":"invalid argument","status":"INVALID_ARGUMENT"}}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.GenerateLabelOverview(context.Background(), "Label")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "invalid argument") {
		t.Errorf("error %q should carry the API message", err)
	}
	if calls != 1 {
		t.Errorf("server saw %d calls, want 1 (no retry on 4xx)", calls)
	}
}

func TestGenerateLabelOverviewExhaustsRetries(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.GenerateLabelOverview(context.Background(), "Label")
	if err == nil {
		t.Fatal("expected error after retries exhausted")
	}
	if !strings.Contains(err.Error(), "max retries") {
		t.Errorf("error = %q", err)
	}
	if calls != 3 {
		t.Errorf("server saw %d calls, want 3", calls)
	}
}

func TestAvailable(t *testing.T) {
	if NewClient("", zap.NewNop()).Available() {
		t.Error("client without key should not be available")
	}
	if !NewClient("key", zap.NewNop()).Available() {
		t.Error("client with key should be available")
	}

	client := NewClient("", zap.NewNop())
	if _, err := client.GenerateLabelOverview(context.Background(), "Label"); err == nil {
		t.Error("generation without key should error")
	}
}

func TestModel(t *testing.T) {
	if got := NewClient("k", zap.NewNop()).Model(); got != "gemini-flash-latest" {
		t.Errorf("Model() = %q", got)
	}
}
