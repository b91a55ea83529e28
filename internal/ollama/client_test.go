package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// tagsJSON builds a /api/tags response with the given model names.
func tagsJSON(names ...string) []byte {
	type entry struct {
		Name string `json:"name"`
	}
	type resp struct {
		Models []entry `json:"models"`
	}
	r := resp{}
	for _, n := range names {
		r.Models = append(r.Models, entry{Name: n})
	}
	b, _ := json.Marshal(r)
	return b
}

func TestChat_RelaysBodyVerbatim(t *testing.T) {
	respJSON := `{"model":"deepseek-r1:8b","message":{"role":"assistant","content":"42"},"done":true}`
	var got ChatRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", ct)
		}
		json.NewDecoder(r.Body).Decode(&got)
		io.WriteString(w, respJSON)
	}))
	defer srv.Close()

	c := New(srv.URL + "/")
	raw, err := c.Chat(context.Background(), ChatRequest{
		Model:    "deepseek-r1:8b",
		Messages: []Message{{Role: "user", Content: "What is the meaning of life?"}},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}

	if string(raw) != respJSON {
		t.Errorf("body = %q, want %q", raw, respJSON)
	}
	if got.Model != "deepseek-r1:8b" || got.Stream {
		t.Errorf("request = %+v, want model deepseek-r1:8b and stream false", got)
	}
	if len(got.Messages) != 1 || got.Messages[0].Role != "user" {
		t.Errorf("messages = %+v", got.Messages)
	}
}

func TestChat_StreamFieldAlwaysSerialized(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&body)
		io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	if _, err := New(srv.URL).Chat(context.Background(), ChatRequest{Model: "m"}); err != nil {
		t.Fatalf("Chat: %v", err)
	}
	v, ok := body["stream"]
	if !ok || v != false {
		t.Errorf("stream = %v (present=%v), want false", v, ok)
	}
}

func TestChat_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"error":"model \"nope\" not found"}`)
	}))
	defer srv.Close()

	_, err := New(srv.URL).Chat(context.Background(), ChatRequest{Model: "nope"})
	if err == nil {
		t.Fatal("expected error for 404")
	}
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusNotFound {
		t.Errorf("err = %v, want StatusError 404", err)
	}
}

func TestChat_InvalidJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "<html>proxy error</html>")
	}))
	defer srv.Close()

	_, err := New(srv.URL).Chat(context.Background(), ChatRequest{Model: "m"})
	if err == nil {
		t.Fatal("expected error for non-JSON body")
	}
	if !strings.Contains(err.Error(), "not valid JSON") {
		t.Errorf("error = %q", err)
	}
}

func TestChat_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	_, err := New(srv.URL).Chat(context.Background(), ChatRequest{Model: "m"})
	if err == nil {
		t.Fatal("expected error for closed server")
	}
	if err.Error() == "" {
		t.Error("error message is empty")
	}
}

func TestPing_Up(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			http.NotFound(w, r)
			return
		}
		w.Write(tagsJSON("deepseek-r1:8b"))
	}))
	defer srv.Close()

	if err := New(srv.URL).Ping(context.Background(), time.Second); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestPing_AcceptsAny2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	if err := New(srv.URL).Ping(context.Background(), time.Second); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestPing_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := New(srv.URL).Ping(context.Background(), time.Second)
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusInternalServerError {
		t.Errorf("err = %v, want StatusError 500", err)
	}
}

func TestPing_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	start := time.Now()
	err := New(srv.URL).Ping(context.Background(), 50*time.Millisecond)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Ping took %s, want it bounded by the timeout", elapsed)
	}
}

func TestIsRunning_Down(t *testing.T) {
	// Point at a closed server to simulate connection refused.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := New(srv.URL)
	if c.IsRunning(context.Background()) {
		t.Error("IsRunning() = true, want false")
	}
}

func TestListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(tagsJSON("deepseek-r1:8b", "llama3.2:latest"))
	}))
	defer srv.Close()

	models, err := New(srv.URL).ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels: %v", err)
	}
	want := []string{"deepseek-r1:8b", "llama3.2:latest"}
	if len(models) != len(want) {
		t.Fatalf("got %d models, want %d", len(models), len(want))
	}
	for i, w := range want {
		if models[i] != w {
			t.Errorf("models[%d] = %q, want %q", i, models[i], w)
		}
	}
}

func TestHasModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(tagsJSON("deepseek-r1:8b", "llama3.2:latest"))
	}))
	defer srv.Close()

	c := New(srv.URL)
	if !c.HasModel(context.Background(), "deepseek-r1:8b") {
		t.Error("HasModel(deepseek-r1:8b) = false, want true")
	}
	if !c.HasModel(context.Background(), "llama3.2") {
		t.Error("HasModel(llama3.2) = false, want true (tag suffix)")
	}
	if c.HasModel(context.Background(), "mistral") {
		t.Error("HasModel(mistral) = true, want false")
	}
}

func TestProbe(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(tagsJSON("deepseek-r1:8b"))
	}))
	defer srv.Close()

	r := Probe(context.Background(), New(srv.URL), "deepseek-r1:8b", logger)
	if !r.Running || !r.HasModel {
		t.Errorf("Probe = %+v, want running with model", r)
	}

	r = Probe(context.Background(), New(srv.URL), "qwen2.5", logger)
	if !r.Running || r.HasModel {
		t.Errorf("Probe = %+v, want running without model", r)
	}

	srv.Close()
	r = Probe(context.Background(), New(srv.URL), "deepseek-r1:8b", logger)
	if r.Running {
		t.Errorf("Probe = %+v, want not running", r)
	}
}
