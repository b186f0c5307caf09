package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingProvider struct {
	calls int
	reply string
	err   error
}

func (c *countingProvider) Complete(context.Context, string, string, *CompleteOptions) (string, error) {
	c.calls++
	return c.reply, c.err
}

func TestWithCache_ServesRepeatedRequests(t *testing.T) {
	inner := &countingProvider{reply: "cached"}
	p := Wrap(inner, WithCache(8, time.Minute, nil))
	opts := &CompleteOptions{Temperature: Temperature(0.7), MaxTokens: 700}

	for range 3 {
		out, err := p.Complete(context.Background(), "sys", "prompt", opts)
		require.NoError(t, err)
		assert.Equal(t, "cached", out)
	}
	assert.Equal(t, 1, inner.calls)

	_, err := p.Complete(context.Background(), "sys", "prompt", &CompleteOptions{Temperature: Temperature(0.6), MaxTokens: 700})
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls, "different temperature must miss")

	_, err = p.Complete(context.Background(), "sys", "other", opts)
	require.NoError(t, err)
	assert.Equal(t, 3, inner.calls)
}

func TestWithCache_DoesNotCacheErrors(t *testing.T) {
	inner := &countingProvider{err: errors.New("boom")}
	p := Wrap(inner, WithCache(8, time.Minute, nil))

	for range 2 {
		_, err := p.Complete(context.Background(), "", "x", nil)
		require.Error(t, err)
	}
	assert.Equal(t, 2, inner.calls)
}

func TestWithCache_SkipsBlankAndRejectedReplies(t *testing.T) {
	tests := []struct {
		name   string
		reply  string
		accept func(string) bool
	}{
		{"empty", "", nil},
		{"whitespace", " \n\t", nil},
		{"rejected by predicate", "Sorry, I cannot help with that.", func(s string) bool { return strings.HasPrefix(s, "{") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inner := &countingProvider{reply: tt.reply}
			p := Wrap(inner, WithCache(8, time.Minute, tt.accept))
			for range 2 {
				out, err := p.Complete(context.Background(), "", "x", nil)
				require.NoError(t, err)
				assert.Equal(t, tt.reply, out)
			}
			assert.Equal(t, 2, inner.calls)
		})
	}
}

func TestWithCache_StoresAcceptedReply(t *testing.T) {
	inner := &countingProvider{reply: `{"summary":"ok"}`}
	p := Wrap(inner, WithCache(8, time.Minute, func(s string) bool { return strings.HasPrefix(s, "{") }))
	for range 2 {
		_, err := p.Complete(context.Background(), "", "x", nil)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, inner.calls)
}

func TestWithCache_ZeroSizeDisables(t *testing.T) {
	inner := &countingProvider{reply: "x"}
	p := Wrap(inner, WithCache(0, time.Minute, nil))
	_, _ = p.Complete(context.Background(), "", "x", nil)
	_, _ = p.Complete(context.Background(), "", "x", nil)
	assert.Equal(t, 2, inner.calls)
}

func TestCacheKey_FieldBoundaries(t *testing.T) {
	assert.NotEqual(t, cacheKey("ab", "c", nil), cacheKey("a", "bc", nil))
	assert.NotEqual(t, cacheKey("", "x", nil), cacheKey("", "x", &CompleteOptions{Temperature: Temperature(0)}))
}

func TestWrap_Order(t *testing.T) {
	var trail []string
	mark := func(name string) Middleware {
		return func(next Provider) Provider {
			return ProviderFunc(func(ctx context.Context, system, prompt string, opts *CompleteOptions) (string, error) {
				trail = append(trail, name)
				return next.Complete(ctx, system, prompt, opts)
			})
		}
	}
	p := Wrap(&countingProvider{reply: "ok"}, mark("outer"), nil, mark("inner"))
	_, err := p.Complete(context.Background(), "", "", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner"}, trail)
}

func TestWithTracing_PassesThrough(t *testing.T) {
	inner := &countingProvider{reply: "traced"}
	p := Wrap(inner, WithTracing(ProviderOpenAI, "gpt-4o"))
	out, err := p.Complete(context.Background(), "", "x", nil)
	require.NoError(t, err)
	assert.Equal(t, "traced", out)

	inner.err = errors.New("down")
	_, err = p.Complete(context.Background(), "", "x", nil)
	assert.EqualError(t, err, "down")
}
