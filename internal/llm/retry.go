package llm

import (
	"context"
	"io"
	"time"

	"linkedin-optimizer/internal/shared/telemetry"
)

const defaultRetryBaseDelay = 300 * time.Millisecond

type retrying struct {
	base      Generator
	attempts  int
	baseDelay time.Duration
}

// WithRetry retries transient transport failures. Critical and unknown
// failures are returned immediately. attempts counts the first call.
func WithRetry(g Generator, attempts int, baseDelay time.Duration) Generator {
	if g == nil {
		return nil
	}
	if attempts < 1 {
		attempts = 1
	}
	if baseDelay <= 0 {
		baseDelay = defaultRetryBaseDelay
	}
	return retrying{base: g, attempts: attempts, baseDelay: baseDelay}
}

func (r retrying) Generate(ctx context.Context, systemPrompt, userPrompt string) (Completion, error) {
	var (
		resp Completion
		err  error
	)
	delay := r.baseDelay
	for attempt := 1; attempt <= r.attempts; attempt++ {
		resp, err = r.base.Generate(ctx, systemPrompt, userPrompt)
		if err == nil || KindOf(err) != KindTransient || attempt == r.attempts {
			return resp, err
		}
		telemetry.Warn("llm.retry", map[string]any{
			"attempt": attempt,
			"delay":   delay.String(),
			"error":   err.Error(),
		})
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return Completion{}, ctx.Err()
		}
		delay *= 2
	}
	return resp, err
}

// WithAPIKey rebinds the wrapped generator and keeps the retry policy.
func (r retrying) WithAPIKey(apiKey string) (Generator, error) {
	kg, ok := r.base.(KeyedGenerator)
	if !ok {
		return r, nil
	}
	g, err := kg.WithAPIKey(apiKey)
	if err != nil {
		return nil, err
	}
	return retrying{base: g, attempts: r.attempts, baseDelay: r.baseDelay}, nil
}

// Close releases the wrapped generator when it holds resources.
func (r retrying) Close() error {
	if c, ok := r.base.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

var _ KeyedGenerator = retrying{}
