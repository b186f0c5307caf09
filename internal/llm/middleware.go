package llm

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Middleware decorates a Provider.
type Middleware func(Provider) Provider

// Wrap applies mws to p. The first middleware is the outermost.
func Wrap(p Provider, mws ...Middleware) Provider {
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] != nil {
			p = mws[i](p)
		}
	}
	return p
}

// ProviderFunc adapts a plain function to the Provider interface.
type ProviderFunc func(ctx context.Context, system, prompt string, opts *CompleteOptions) (string, error)

func (f ProviderFunc) Complete(ctx context.Context, system, prompt string, opts *CompleteOptions) (string, error) {
	return f(ctx, system, prompt, opts)
}

// WithCache memoizes successful completions keyed by the full request.
// Blank replies are never stored; when accept is non-nil, only replies it
// approves are stored. A size below 1 disables caching.
func WithCache(size int, ttl time.Duration, accept func(reply string) bool) Middleware {
	if size < 1 {
		return nil
	}
	return func(next Provider) Provider {
		cache := expirable.NewLRU[string, string](size, nil, ttl)
		return ProviderFunc(func(ctx context.Context, system, prompt string, opts *CompleteOptions) (string, error) {
			key := cacheKey(system, prompt, opts)
			if v, ok := cache.Get(key); ok {
				return v, nil
			}
			out, err := next.Complete(ctx, system, prompt, opts)
			if err != nil {
				return "", err
			}
			if strings.TrimSpace(out) != "" && (accept == nil || accept(out)) {
				cache.Add(key, out)
			}
			return out, nil
		})
	}
}

func cacheKey(system, prompt string, opts *CompleteOptions) string {
	h := sha256.New()
	var buf [8]byte
	writeField := func(b []byte) {
		binary.BigEndian.PutUint64(buf[:], uint64(len(b)))
		h.Write(buf[:])
		h.Write(b)
	}
	writeField([]byte(system))
	writeField([]byte(prompt))
	if opts != nil {
		binary.BigEndian.PutUint64(buf[:], uint64(opts.MaxTokens))
		h.Write(buf[:])
		if opts.Temperature != nil {
			binary.BigEndian.PutUint64(buf[:], uint64(math.Float32bits(*opts.Temperature))+1)
			h.Write(buf[:])
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// WithTracing records a span around every completion.
func WithTracing(provider ProviderName, model string) Middleware {
	tracer := otel.Tracer("github.com/drpaneas/devtracker/internal/llm")
	return func(next Provider) Provider {
		return ProviderFunc(func(ctx context.Context, system, prompt string, opts *CompleteOptions) (string, error) {
			attrs := []attribute.KeyValue{
				attribute.String("llm.provider", string(provider)),
				attribute.String("llm.model", model),
				attribute.Int("llm.prompt_bytes", len(prompt)),
			}
			if opts != nil {
				attrs = append(attrs, attribute.Int("llm.max_tokens", opts.MaxTokens))
			}
			ctx, span := tracer.Start(ctx, "llm.complete", trace.WithAttributes(attrs...))
			defer span.End()

			out, err := next.Complete(ctx, system, prompt, opts)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return "", err
			}
			span.SetAttributes(attribute.Int("llm.completion_bytes", len(out)))
			return out, nil
		})
	}
}
