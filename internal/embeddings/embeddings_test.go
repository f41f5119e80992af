package embeddings

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEmbedder struct {
	vecs [][]float32
	err  error
}

func (s *stubEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return s.vecs, s.err
}
func (s *stubEmbedder) Dimensions() int { return 3 }
func (s *stubEmbedder) Name() string    { return "stub" }

func TestEmbedOne(t *testing.T) {
	ctx := context.Background()

	t.Run("unwraps singleton batch", func(t *testing.T) {
		vec, err := EmbedOne(ctx, &stubEmbedder{vecs: [][]float32{{1, 2, 3}}}, "q", 3)
		require.NoError(t, err)
		assert.Equal(t, []float32{1, 2, 3}, vec)
	})

	t.Run("rejects wrong dimension", func(t *testing.T) {
		_, err := EmbedOne(ctx, &stubEmbedder{vecs: [][]float32{{1, 2}}}, "q", 3)
		assert.ErrorIs(t, err, ErrDimensionMismatch)
	})

	t.Run("rejects multi-vector answers", func(t *testing.T) {
		_, err := EmbedOne(ctx, &stubEmbedder{vecs: [][]float32{{1, 2, 3}, {4, 5, 6}}}, "q", 3)
		assert.ErrorIs(t, err, ErrProvider)
	})

	t.Run("wraps backend errors", func(t *testing.T) {
		_, err := EmbedOne(ctx, &stubEmbedder{err: errors.New("boom")}, "q", 3)
		assert.ErrorIs(t, err, ErrProvider)
		assert.Contains(t, err.Error(), "boom")
	})
}

func TestToChromemFunc(t *testing.T) {
	fn := ToChromemFunc(&stubEmbedder{vecs: [][]float32{{0, 1, 0}}}, 3)
	vec, err := fn(context.Background(), "text")
	require.NoError(t, err)
	assert.Len(t, vec, 3)

	fn = ToChromemFunc(&stubEmbedder{vecs: [][]float32{{0, 1}}}, 3)
	_, err = fn(context.Background(), "text")
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestOllamaEmbedderBatches(t *testing.T) {
	var got ollamaEmbedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"embeddings":[[0.1,0.2],[0.3,0.4]]}`)
	}))
	defer srv.Close()

	e := NewOllamaEmbedder("nomic-embed-text", 2, srv.URL)
	vecs, err := e.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got.Input)
	assert.Len(t, vecs, 2)
	assert.Equal(t, "ollama/nomic-embed-text", e.Name())
}

func TestOllamaEmbedderCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"embeddings":[[0.1,0.2]]}`)
	}))
	defer srv.Close()

	_, err := NewOllamaEmbedder("m", 2, srv.URL).Embed(context.Background(), []string{"a", "b"})
	assert.ErrorIs(t, err, ErrProvider)
}

func TestOllamaEmbedderStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewOllamaEmbedder("m", 2, srv.URL).Embed(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, ErrProvider)
	assert.Contains(t, err.Error(), "404")
}

func TestGoogleEmbedderBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/text-embedding-004:batchEmbedContents", r.URL.Path)
		var body struct {
			Requests []googleEmbedRequest `json:"requests"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Len(t, body.Requests, 2)
		assert.Equal(t, "models/text-embedding-004", body.Requests[0].Model)
		_, _ = io.WriteString(w, `{"embeddings":[{"values":[1,0]},{"values":[0,1]}]}`)
	}))
	defer srv.Close()

	e := NewGoogleEmbedder("key", "text-embedding-004", 2)
	e.baseURL = srv.URL

	vecs, err := e.Embed(context.Background(), []string{"x", "y"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vecs)
}

func TestOpenAIEmbedder(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"object":"list","data":[{"object":"embedding","index":0,"embedding":[0.5,0.5,0.5]}],"model":"text-embedding-3-small"}`)
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder("key", srv.URL, "text-embedding-3-small", 3)
	vecs, err := e.Embed(context.Background(), []string{"hello"})
	require.NoError(t, err)
	require.Len(t, vecs, 1)
	assert.Len(t, vecs[0], 3)
	assert.EqualValues(t, 3, got["dimensions"])
}

func TestEmbedEmptyInput(t *testing.T) {
	vecs, err := NewOllamaEmbedder("m", 2, "http://127.0.0.1:0").Embed(context.Background(), nil)
	assert.NoError(t, err)
	assert.Nil(t, vecs)
}
