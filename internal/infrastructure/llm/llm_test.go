package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CleanExpo/RestoreAssist-sub011/internal/domain"
)

type fakeProvider struct {
	name  string
	text  string
	err   error
	calls int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Generate(ctx context.Context, prompt string) (string, error) {
	f.calls++
	return f.text, f.err
}

func TestGeneratorFallsBackInOrder(t *testing.T) {
	first := &fakeProvider{name: "first", err: errors.New("overloaded")}
	second := &fakeProvider{name: "second", text: "narrative"}
	third := &fakeProvider{name: "third", text: "unused"}

	g := NewGenerator(Static(first, second, third), nil)
	res, err := g.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "narrative", res.Text)
	assert.Equal(t, "second", res.Provider)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 0, third.calls)
}

func TestGeneratorTotalFailure(t *testing.T) {
	a := &fakeProvider{name: "a", err: errors.New("boom")}
	b := &fakeProvider{name: "b", err: errors.New("quota exceeded")}

	_, err := NewGenerator(Static(a, b), nil).Generate(context.Background(), "prompt")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUpstream)
	assert.Contains(t, err.Error(), "quota exceeded")
	var upstream *domain.UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, domain.NarrativeFailed, upstream.Summary)
}

func TestGeneratorSkipsOpenBreaker(t *testing.T) {
	flaky := &fakeProvider{name: "flaky", err: errors.New("down")}
	backup := &fakeProvider{name: "backup", text: "ok"}
	g := NewGenerator(Static(flaky, backup), nil)

	for i := 0; i < 3; i++ {
		_, err := g.Generate(context.Background(), "p")
		require.NoError(t, err)
	}
	assert.Equal(t, 3, flaky.calls)

	_, err := g.Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, 3, flaky.calls, "open breaker should not call the provider")
	assert.Equal(t, 4, backup.calls)
}

func TestGeneratorWithoutProviders(t *testing.T) {
	_, err := NewGenerator(Static(), nil).Generate(context.Background(), "p")
	assert.ErrorIs(t, err, domain.ErrNotConfigured)
}

func TestAnthropicProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))

		var req anthropicRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "claude-test", req.Model)
		assert.Equal(t, "hello", req.Messages[0].Content)

		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"{\"summary\":\"hi\"}"}]}`))
	}))
	defer srv.Close()

	p := NewAnthropicProvider("test-key", "claude-test", srv.Client()).WithBaseURL(srv.URL)
	text, err := p.Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, `{"summary":"hi"}`, text)
}

func TestAnthropicProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"type":"rate_limit_error","message":"slow down"}}`))
	}))
	defer srv.Close()

	_, err := NewAnthropicProvider("k", "m", srv.Client()).WithBaseURL(srv.URL).Generate(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "slow down")
}

func TestConfiguredProvidersReadsSettings(t *testing.T) {
	t.Setenv("LLM_PROVIDERS", "gemini,anthropic")
	t.Setenv("ANTHROPIC_API_KEY", "a-key")
	t.Setenv("GEMINI_API_KEY", "")

	ps, err := ConfiguredProviders(nil)()
	require.NoError(t, err)
	require.Len(t, ps, 1)
	assert.Equal(t, ProviderAnthropic, ps[0].Name())
}
