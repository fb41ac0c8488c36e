package openai_provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func embeddingServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/embeddings", handler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestCreateEmbeddingOrdersByIndex(t *testing.T) {
	srv := embeddingServer(t, func(w http.ResponseWriter, r *http.Request) {
		// entries deliberately permuted relative to the inputs
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{"object": "embedding", "index": 1, "embedding": []float32{0, 1}},
				{"object": "embedding", "index": 0, "embedding": []float32{1, 0}},
			},
		})
	})

	c := NewOpenAIClient("key", srv.URL, "gpt", "embed", 0, 0, 0, 0)
	vecs, err := c.CreateEmbedding(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatalf("CreateEmbedding: %v", err)
	}
	if len(vecs) != 2 {
		t.Fatalf("got %d vectors", len(vecs))
	}
	if vecs[0][0] != 1 || vecs[1][1] != 1 {
		t.Fatalf("vectors not reordered by index: %v", vecs)
	}
}

func TestCreateEmbeddingCountMismatch(t *testing.T) {
	srv := embeddingServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{"object": "embedding", "index": 0, "embedding": []float32{1}},
			},
		})
	})

	c := NewOpenAIClient("key", srv.URL, "gpt", "embed", 0, 0, 0, 0)
	if _, err := c.CreateEmbedding(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatal("expected error on missing embeddings")
	} else if !strings.Contains(err.Error(), "1 embeddings for 2 inputs") {
		t.Fatalf("err = %v", err)
	}
}

func TestCreateEmbeddingRejectsBadIndex(t *testing.T) {
	srv := embeddingServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{"object": "embedding", "index": 5, "embedding": []float32{1}},
			},
		})
	})

	c := NewOpenAIClient("key", srv.URL, "gpt", "embed", 0, 0, 0, 0)
	if _, err := c.CreateEmbedding(context.Background(), []string{"a"}); err == nil {
		t.Fatal("expected error on out-of-range index")
	}
}
