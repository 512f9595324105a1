package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"ollamaproxy/internal/chat"
	"ollamaproxy/internal/httpapi"
	"ollamaproxy/internal/ollama"
)

// fakeOllama stands in for an Ollama server. It records the last chat payload
// and answers with the configured bodies and statuses.
type fakeOllama struct {
	mu          sync.Mutex
	lastPayload ollama.ChatPayload
	chatCalls   int

	chatStatus    int
	chatBody      string
	versionStatus int
	versionBody   string
}

func (f *fakeOllama) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		var p ollama.ChatPayload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			t.Errorf("fake ollama: decode payload: %v", err)
		}
		f.mu.Lock()
		f.lastPayload = p
		f.chatCalls++
		status, body := f.chatStatus, f.chatBody
		f.mu.Unlock()
		if status == 0 {
			status = http.StatusOK
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	})
	mux.HandleFunc("/api/version", func(w http.ResponseWriter, r *http.Request) {
		status := f.versionStatus
		if status == 0 {
			status = http.StatusOK
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, f.versionBody)
	})
	return mux
}

func (f *fakeOllama) payload() (ollama.ChatPayload, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastPayload, f.chatCalls
}

// newProxy wires the real client, service and router against baseURL.
func newProxy(t *testing.T, baseURL, model string) *httptest.Server {
	t.Helper()
	client := ollama.New(ollama.Options{BaseURL: baseURL})
	svc := chat.NewService(client, model)
	srv := httptest.NewServer(httpapi.NewMux(svc))
	t.Cleanup(srv.Close)
	return srv
}

// newStack starts a fake Ollama and a proxy pointed at it.
func newStack(t *testing.T, f *fakeOllama) *httptest.Server {
	t.Helper()
	up := httptest.NewServer(f.handler(t))
	t.Cleanup(up.Close)
	return newProxy(t, up.URL, "gemma3:4b")
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	b, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, b
}

func postJSON(t *testing.T, url string, payload string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewBufferString(payload))
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	b, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, b
}
