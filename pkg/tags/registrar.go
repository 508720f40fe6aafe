package tags

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultBatchSize bounds how many names are resolved concurrently.
	DefaultBatchSize = 5

	// DefaultBatchPause is the delay between consecutive batches, giving
	// embedding providers room to breathe under rate limits.
	DefaultBatchPause = 200 * time.Millisecond
)

// NameResolver resolves a single tag name to its canonical tag ID.
type NameResolver interface {
	Resolve(ctx context.Context, name, description string) (string, error)
}

// Registrar resolves a list of tag names in rate-limited batches.
type Registrar struct {
	resolver NameResolver
	logger   *zap.Logger

	batchSize int
	pause     time.Duration
}

// RegistrarOption configures a Registrar.
type RegistrarOption func(*Registrar)

// WithBatchSize overrides the per-batch concurrency bound.
func WithBatchSize(n int) RegistrarOption {
	return func(r *Registrar) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// WithBatchPause overrides the pause between batches.
func WithBatchPause(d time.Duration) RegistrarOption {
	return func(r *Registrar) {
		if d >= 0 {
			r.pause = d
		}
	}
}

// NewRegistrar creates a batched tag registrar on top of resolver.
func NewRegistrar(resolver NameResolver, logger *zap.Logger, opts ...RegistrarOption) (*Registrar, error) {
	if resolver == nil {
		return nil, ErrNoResolver
	}

	r := &Registrar{
		resolver:  resolver,
		logger:    logger,
		batchSize: DefaultBatchSize,
		pause:     DefaultBatchPause,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// RegisterAll resolves every name and returns the deduplicated tag IDs in
// first-resolution order. Names within a batch resolve concurrently; batches
// run sequentially with a pause between them, and no pause trails the last
// batch. The contextLabel only annotates log lines, typically with the
// creator the names were suggested for.
//
// A name that fails to resolve is logged and skipped; partial failure never
// fails the whole registration. Only context cancellation aborts early, and
// then the IDs collected so far are returned alongside the context error.
func (r *Registrar) RegisterAll(ctx context.Context, names []string, contextLabel string) ([]string, error) {
	ids := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))

	for start := 0; start < len(names); start += r.batchSize {
		if start > 0 {
			select {
			case <-time.After(r.pause):
			case <-ctx.Done():
				return ids, ctx.Err()
			}
		}

		end := start + r.batchSize
		if end > len(names) {
			end = len(names)
		}
		batch := names[start:end]

		resolved := make([]string, len(batch))
		sem := make(chan struct{}, r.batchSize)
		var wg sync.WaitGroup

		for i, name := range batch {
			sem <- struct{}{}
			wg.Add(1)
			go func(slot int, n string) {
				defer wg.Done()
				defer func() { <-sem }()

				if ctx.Err() != nil {
					return
				}

				id, err := r.resolver.Resolve(ctx, n, "")
				if err != nil {
					r.logger.Warn("skipping unresolvable tag name",
						zap.String("name", n),
						zap.String("context", contextLabel),
						zap.Error(err),
					)
					return
				}
				resolved[slot] = id
			}(i, name)
		}

		wg.Wait()

		// Collect in input order so the result is deterministic for a
		// given resolution outcome.
		for _, id := range resolved {
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
		}

		if ctx.Err() != nil {
			return ids, ctx.Err()
		}
	}

	return ids, nil
}
