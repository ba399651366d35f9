package coach

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOllamaChatStreams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		var req ollamaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if !req.Stream {
			http.Error(w, "expected streaming request", http.StatusBadRequest)
			return
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			http.Error(w, "expected system+user messages", http.StatusBadRequest)
			return
		}

		enc := json.NewEncoder(w)
		enc.Encode(ollamaStreamChunk{Message: ollamaMessage{Content: "Speak "}})
		enc.Encode(ollamaStreamChunk{Message: ollamaMessage{Content: "slower."}})
		enc.Encode(ollamaStreamChunk{Done: true})
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, "test-model", 100, 2)

	var tokens []string
	res, err := c.Chat(context.Background(), "how was my talk?", "be direct", "", func(tok string) {
		tokens = append(tokens, tok)
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if res.Text != "Speak slower." {
		t.Errorf("unexpected text %q", res.Text)
	}
	if strings.Join(tokens, "") != "Speak slower." {
		t.Errorf("token stream mismatch: %v", tokens)
	}
	if res.TimeToFirstTokenMs < 0 {
		t.Errorf("negative ttft %f", res.TimeToFirstTokenMs)
	}
}

func TestOllamaChatThinkingSeparated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		enc := json.NewEncoder(w)
		enc.Encode(ollamaStreamChunk{Message: ollamaMessage{Thinking: "considering pacing"}})
		enc.Encode(ollamaStreamChunk{Message: ollamaMessage{Content: "Good pacing."}})
		enc.Encode(ollamaStreamChunk{Done: true})
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, "test-model", 100, 2)
	res, err := c.Chat(context.Background(), "hi", "sys", "", nil)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if res.Text != "Good pacing." {
		t.Errorf("thinking must not leak into text, got %q", res.Text)
	}
	if res.Thinking != "considering pacing" {
		t.Errorf("expected thinking captured, got %q", res.Thinking)
	}
}

func TestOllamaChatErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, "missing", 100, 2)
	if _, err := c.Chat(context.Background(), "hi", "sys", "", nil); err == nil {
		t.Fatal("expected error on 404")
	}
}

func TestChatRouterDispatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		enc := json.NewEncoder(w)
		enc.Encode(ollamaStreamChunk{Message: ollamaMessage{Content: "ok"}})
		enc.Encode(ollamaStreamChunk{Done: true})
	}))
	defer srv.Close()

	router := NewChatRouter(map[string]ChatClient{
		"ollama": NewOllamaClient(srv.URL, "m1", 100, 2),
	}, "ollama")

	if !router.Has("ollama") {
		t.Fatal("expected ollama engine registered")
	}
	if engines := router.Engines(); len(engines) != 1 || engines[0] != "ollama" {
		t.Errorf("unexpected engines %v", engines)
	}

	res, err := router.Chat(context.Background(), "hi", "sys", "", "ollama", nil)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if res.Text != "ok" {
		t.Errorf("unexpected text %q", res.Text)
	}
}

func TestChatRouterFallsBackToDefault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		enc := json.NewEncoder(w)
		enc.Encode(ollamaStreamChunk{Message: ollamaMessage{Content: "fallback"}})
		enc.Encode(ollamaStreamChunk{Done: true})
	}))
	defer srv.Close()

	router := NewChatRouter(map[string]ChatClient{
		"ollama": NewOllamaClient(srv.URL, "m1", 100, 2),
	}, "ollama")

	res, err := router.Chat(context.Background(), "hi", "sys", "", "missing", nil)
	if err != nil {
		t.Fatalf("unknown engine should route to the fallback: %v", err)
	}
	if res.Text != "fallback" {
		t.Errorf("unexpected text %q", res.Text)
	}
}

func TestChatRouterNoBackend(t *testing.T) {
	router := NewChatRouter(map[string]ChatClient{}, "nope")
	if _, err := router.Chat(context.Background(), "hi", "sys", "", "missing", nil); err == nil {
		t.Fatal("expected error when no backend is registered")
	}
}
