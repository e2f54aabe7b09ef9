package translate

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestMinimaxTranslate(t *testing.T) {
	var gotBody struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &gotBody); err != nil {
			t.Errorf("bad request body: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"choices": [{"message": {"role": "assistant", "content": "  Hola mundo.  "}}]
		}`)
	}))
	defer srv.Close()

	tr := NewMinimaxTranslator("test-key", srv.URL, log.New(io.Discard))

	translated, err := tr.Translate(context.Background(), "Hello world.", "en", "es")
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if translated != "Hola mundo." {
		t.Errorf("translated = %q, want %q", translated, "Hola mundo.")
	}

	if gotBody.Model != minimaxModel {
		t.Errorf("model = %q, want %q", gotBody.Model, minimaxModel)
	}
	if len(gotBody.Messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(gotBody.Messages))
	}
	if !strings.Contains(gotBody.Messages[0].Content, "from English to Spanish") {
		t.Errorf("system prompt missing language names: %q", gotBody.Messages[0].Content)
	}
	if gotBody.Messages[1].Content != "Hello world." {
		t.Errorf("user message = %q", gotBody.Messages[1].Content)
	}
}

func TestMinimaxTranslateEmptyText(t *testing.T) {
	tr := NewMinimaxTranslator("test-key", "http://invalid.localhost", log.New(io.Discard))

	translated, err := tr.Translate(context.Background(), "   ", "en", "es")
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if translated != "" {
		t.Errorf("translated = %q, want empty", translated)
	}
}

func TestMinimaxTranslateUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	tr := NewMinimaxTranslator("test-key", srv.URL, log.New(io.Discard))
	if _, err := tr.Translate(context.Background(), "Hello.", "en", "es"); err == nil {
		t.Fatal("expected error on upstream failure")
	}
}

func TestLanguageName(t *testing.T) {
	if got := LanguageName("en"); got != "English" {
		t.Errorf("LanguageName(en) = %q", got)
	}
	if got := LanguageName("xx"); got != "xx" {
		t.Errorf("LanguageName(xx) = %q, want passthrough", got)
	}
}
