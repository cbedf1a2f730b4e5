package embedding

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"TicketBlitz_Recommendation/backend/go/internal/config"
	"TicketBlitz_Recommendation/backend/go/pkg/rotation"

	openai "github.com/meguminnnnnnnnn/go-openai"
	ollama "github.com/ollama/ollama/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type stubModel struct {
	vec   []float32
	err   error
	calls int
}

func (s *stubModel) Embed(context.Context, string) ([]float32, error) {
	s.calls++
	return s.vec, s.err
}

func (s *stubModel) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = s.vec
	}
	return out, nil
}

func vector(n int) []float32 {
	v := make([]float32, n)
	for i := range v {
		v[i] = float32(i)
	}
	return v
}

func newRotating(dim int, models ...*stubModel) *RotatingEmbedder {
	creds := make([]rotation.Credential[Embedding], len(models))
	for i, m := range models {
		creds[i] = rotation.Credential[Embedding]{Client: m}
	}
	return NewRotatingEmbedder(rotation.New("embedding", creds, rotation.WithClassifier(ClassifyFailure)), dim)
}

func TestRotatingEmbedder_TruncatesToDimension(t *testing.T) {
	for _, n := range []int{8, 9, 3072} {
		t.Run(fmt.Sprintf("provider_len_%d", n), func(t *testing.T) {
			r := newRotating(8, &stubModel{vec: vector(n)})
			vec, err := r.Embed(context.Background(), "text")
			require.NoError(t, err)
			assert.Len(t, vec, 8)
			assert.Equal(t, vector(8), vec)
		})
	}
}

func TestRotatingEmbedder_ShortVectorMovesToNextCredential(t *testing.T) {
	short := &stubModel{vec: vector(4)}
	good := &stubModel{vec: vector(10)}
	r := newRotating(8, short, good)

	vec, err := r.Embed(context.Background(), "text")
	require.NoError(t, err)
	assert.Len(t, vec, 8)
	assert.Equal(t, 1, short.calls)
	assert.Equal(t, 1, good.calls)
}

func TestRotatingEmbedder_AuthFailureThenSuccess(t *testing.T) {
	bad := &stubModel{err: errors.New("googleapi: Error 400: API key expired")}
	good := &stubModel{vec: vector(8)}
	unused := &stubModel{vec: vector(8)}
	r := newRotating(8, bad, good, unused)

	_, err := r.Embed(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, 0, unused.calls)
}

func TestRotatingEmbedder_AllFail(t *testing.T) {
	last := errors.New("quota exceeded")
	r := newRotating(8, &stubModel{err: errors.New("403 forbidden")}, &stubModel{err: last})

	_, err := r.Embed(context.Background(), "text")
	require.Error(t, err)
	assert.ErrorIs(t, err, rotation.ErrAllProvidersExhausted)
	assert.ErrorIs(t, err, last)
}

func TestRotatingEmbedder_Batch(t *testing.T) {
	r := newRotating(4, &stubModel{vec: vector(6)})
	vecs, err := r.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	for _, v := range vecs {
		assert.Len(t, v, 4)
	}
}

func TestFit_DoesNotAlias(t *testing.T) {
	src := vector(5)
	out, err := Fit(src, 3)
	require.NoError(t, err)
	out[0] = 42
	assert.Equal(t, float32(0), src[0])

	_, err = Fit(src, 6)
	assert.ErrorIs(t, err, ErrShortVector)
}

func TestClassifyFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want rotation.Kind
	}{
		{"googleapi 403", &googleapi.Error{Code: 403}, rotation.KindAuth},
		{"googleapi 500", &googleapi.Error{Code: 500, Message: "backend error"}, rotation.KindProvider},
		{"grpc permission denied", status.Error(codes.PermissionDenied, "denied"), rotation.KindAuth},
		{"grpc unauthenticated wrapped", fmt.Errorf("embed: %w", status.Error(codes.Unauthenticated, "no")), rotation.KindAuth},
		{"grpc unavailable", status.Error(codes.Unavailable, "down"), rotation.KindProvider},
		{"openai 401", &openai.APIError{HTTPStatusCode: 401, Message: "bad key"}, rotation.KindAuth},
		{"openai 429", &openai.APIError{HTTPStatusCode: 429, Message: "slow down"}, rotation.KindProvider},
		{"ollama 403", ollama.StatusError{StatusCode: 403, ErrorMessage: "nope"}, rotation.KindAuth},
		{"keyword invalid key", errors.New("API_KEY_INVALID"), rotation.KindAuth},
		{"keyword permission", errors.New("rpc error: PERMISSION_DENIED"), rotation.KindAuth},
		{"plain timeout", context.DeadlineExceeded, rotation.KindProvider},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyFailure(tt.err))
		})
	}
}

func TestNewEmdModel(t *testing.T) {
	_, err := NewEmdModel(config.CredentialConfig{Provider: "huggingface"}, "", time.Second)
	assert.Error(t, err)

	m, err := NewEmdModel(config.CredentialConfig{Provider: "ollama", Model: "nomic-embed-text"}, "", time.Second)
	require.NoError(t, err)
	assert.IsType(t, &OllamaModel{}, m)

	m, err = NewEmdModel(config.CredentialConfig{Provider: "openai", Model: "text-embedding-3-small", APIKey: "k"}, "", time.Second)
	require.NoError(t, err)
	assert.IsType(t, &OpenAIModel{}, m)
}

func TestNewRotatingFromConfig(t *testing.T) {
	r, err := NewRotatingFromConfig(config.EmbeddingConfig{
		Dimension: 16,
		Timeout:   time.Second,
		Credentials: []config.CredentialConfig{
			{Provider: "ollama", Model: "a"},
			{Provider: "openai", Model: "b", APIKey: "k"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 16, r.Dimension())
	assert.Equal(t, 2, r.pool.Len())

	_, err = NewRotatingFromConfig(config.EmbeddingConfig{Credentials: []config.CredentialConfig{{Provider: "cohere"}}})
	assert.Error(t, err)
}
