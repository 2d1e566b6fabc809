package cmd

import (
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/salesline/salesline/internal/assist"
	"github.com/salesline/salesline/internal/calendar"
	"github.com/salesline/salesline/internal/llm"
	"github.com/salesline/salesline/internal/store"
	"github.com/salesline/salesline/internal/verify"
)

func newTestServer(t *testing.T, provider llm.Provider, requireAuth bool) *httptest.Server {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	cal := calendar.NewBusinessHours(calendar.Options{}, st)
	svc := assist.NewService(provider, cal, st, nil, nil)

	srv := &chatServer{
		svc:         svc,
		verifier:    verify.Noop{},
		requireAuth: requireAuth,
		token:       "secret",
		corsOrigins: []string{"https://salesline.io"},
	}
	ts := httptest.NewServer(srv.routes())
	t.Cleanup(ts.Close)
	return ts
}

func postChat(t *testing.T, ts *httptest.Server, body string, headers map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/v1/chat", strings.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	return resp
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, llm.NewMockProvider("test"), false)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `"ok"`) {
		t.Errorf("body = %s", body)
	}
}

func TestChatStreamsEvents(t *testing.T) {
	provider := llm.NewMockProvider("test").AddTextResponse("Hello from the assistant!")
	ts := newTestServer(t, provider, false)

	resp := postChat(t, ts, `{"messages":[{"role":"user","content":"hello"}]}`, nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %s", ct)
	}
	if resp.Header.Get("X-Accel-Buffering") != "no" {
		t.Error("buffering not disabled")
	}

	body, _ := io.ReadAll(resp.Body)
	out := string(body)
	if !strings.Contains(out, `"type":"text_delta"`) {
		t.Errorf("no text_delta records:\n%s", out)
	}
	if !strings.Contains(out, `{"type":"done"}`) {
		t.Errorf("no done record:\n%s", out)
	}
	for _, record := range strings.Split(strings.TrimSpace(out), "\n\n") {
		if !strings.HasPrefix(record, "data: ") {
			t.Errorf("malformed record: %q", record)
		}
	}
}

func TestChatMethodNotAllowed(t *testing.T) {
	ts := newTestServer(t, llm.NewMockProvider("test"), false)

	resp, err := http.Get(ts.URL + "/v1/chat")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestChatInvalidBody(t *testing.T) {
	ts := newTestServer(t, llm.NewMockProvider("test"), false)

	resp := postChat(t, ts, `{"messages":`, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d", resp.StatusCode)
	}

	resp = postChat(t, ts, `{"messages":[]}`, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty messages: status = %d", resp.StatusCode)
	}
}

func TestChatRequiresAuth(t *testing.T) {
	provider := llm.NewMockProvider("test").AddTextResponse("hi")
	ts := newTestServer(t, provider, true)

	resp := postChat(t, ts, `{"messages":[{"role":"user","content":"hello"}]}`, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("missing token: status = %d", resp.StatusCode)
	}

	resp = postChat(t, ts, `{"messages":[{"role":"user","content":"hello"}]}`,
		map[string]string{"Authorization": "Bearer wrong"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("wrong token: status = %d", resp.StatusCode)
	}

	resp = postChat(t, ts, `{"messages":[{"role":"user","content":"hello"}]}`,
		map[string]string{"Authorization": "Bearer secret"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("valid token: status = %d", resp.StatusCode)
	}
}

func TestChatCORSPreflight(t *testing.T) {
	ts := newTestServer(t, llm.NewMockProvider("test"), true)

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/v1/chat", nil)
	req.Header.Set("Origin", "https://salesline.io")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "https://salesline.io" {
		t.Errorf("allow origin = %q", got)
	}

	req, _ = http.NewRequest(http.MethodOptions, ts.URL+"/v1/chat", nil)
	req.Header.Set("Origin", "https://evil.example")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	defer resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unlisted origin allowed: %q", got)
	}
}
