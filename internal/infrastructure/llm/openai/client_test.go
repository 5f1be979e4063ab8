package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/verirag/verirag/internal/core/domain"
)

func newTestClient(t *testing.T, handler http.Handler, timeout time.Duration) (*Client, func()) {
	t.Helper()
	srv := httptest.NewServer(handler)
	client, err := New(Settings{
		APIKey:  "test-key",
		BaseURL: srv.URL + "/v1",
		Timeout: timeout,
	}, nil)
	if err != nil {
		srv.Close()
		t.Fatalf("New() error = %v", err)
	}
	return client, srv.Close
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New(Settings{}, nil)
	if !domain.IsKind(err, domain.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestEmbedReturnsVectorPerInput(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Input []string `json:"input"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)

		type item struct {
			Object    string    `json:"object"`
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		}
		data := make([]item, len(req.Input))
		for i := range req.Input {
			data[i] = item{Object: "embedding", Index: i, Embedding: []float32{float32(i), 0.5}}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  "text-embedding-3-small",
		})
	})
	client, done := newTestClient(t, handler, time.Second)
	defer done()

	vectors, err := NewEmbedder(client).Embed(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vectors) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vectors))
	}
	if vectors[2][0] != 2 {
		t.Fatalf("vector order must match input order, got %v", vectors[2])
	}
}

func TestEmbedQueryUsesSameModelPath(t *testing.T) {
	var gotModel string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model string `json:"model"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotModel = req.Model
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   []map[string]any{{"object": "embedding", "index": 0, "embedding": []float32{0.1}}},
		})
	})
	client, done := newTestClient(t, handler, time.Second)
	defer done()

	if _, err := NewEmbedder(client).EmbedQuery(context.Background(), "question"); err != nil {
		t.Fatalf("EmbedQuery() error = %v", err)
	}
	if gotModel != defaultEmbeddingModel {
		t.Fatalf("expected default embedding model, got %q", gotModel)
	}
}

func TestGenerateVerifiedReturnsPayload(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": `{"answer":"Parisia"}`}},
			},
		})
	})
	client, done := newTestClient(t, handler, time.Second)
	defer done()

	raw, err := NewGenerator(client).GenerateVerified(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("GenerateVerified() error = %v", err)
	}
	if raw != `{"answer":"Parisia"}` {
		t.Fatalf("unexpected payload %q", raw)
	}
}

func TestSlowUpstreamIsTimeoutKind(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	client, done := newTestClient(t, handler, 30*time.Millisecond)
	defer done()

	_, err := NewEmbedder(client).Embed(context.Background(), []string{"a"})
	if !domain.IsKind(err, domain.ErrUpstreamTimeout) {
		t.Fatalf("expected ErrUpstreamTimeout, got %v", err)
	}
}
