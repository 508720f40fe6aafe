package tags_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/illumefy/illumefy-server/pkg/tags"
	"go.uber.org/zap"
)

// scriptedResolver resolves names from a fixed table and tracks concurrency.
type scriptedResolver struct {
	mu      sync.Mutex
	ids     map[string]string
	failing map[string]bool
	delay   time.Duration

	inFlight      atomic.Int64
	maxInFlight   atomic.Int64
	resolvedCount atomic.Int64
}

func newScriptedResolver() *scriptedResolver {
	return &scriptedResolver{
		ids:     make(map[string]string),
		failing: make(map[string]bool),
	}
}

func (r *scriptedResolver) Resolve(_ context.Context, name, _ string) (string, error) {
	current := r.inFlight.Add(1)
	defer r.inFlight.Add(-1)
	for {
		max := r.maxInFlight.Load()
		if current <= max || r.maxInFlight.CompareAndSwap(max, current) {
			break
		}
	}

	if r.delay > 0 {
		time.Sleep(r.delay)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failing[name] {
		return "", errors.New("resolution failed")
	}

	r.resolvedCount.Add(1)
	if id, ok := r.ids[name]; ok {
		return id, nil
	}
	return "id-" + name, nil
}

var _ = Describe("Registrar", func() {
	var (
		resolver *scriptedResolver
		ctx      context.Context
	)

	BeforeEach(func() {
		resolver = newScriptedResolver()
		ctx = context.Background()
	})

	newRegistrar := func(opts ...tags.RegistrarOption) *tags.Registrar {
		opts = append([]tags.RegistrarOption{tags.WithBatchPause(0)}, opts...)
		r, err := tags.NewRegistrar(resolver, zap.NewNop(), opts...)
		Expect(err).NotTo(HaveOccurred())
		return r
	}

	It("requires a resolver", func() {
		_, err := tags.NewRegistrar(nil, zap.NewNop())
		Expect(err).To(MatchError(tags.ErrNoResolver))
	})

	It("returns an empty result for no names", func() {
		ids, err := newRegistrar().RegisterAll(ctx, nil, "test")
		Expect(err).NotTo(HaveOccurred())
		Expect(ids).To(BeEmpty())
	})

	It("resolves every name across multiple batches", func() {
		names := []string{"a", "b", "c", "d", "e", "f", "g"}
		ids, err := newRegistrar().RegisterAll(ctx, names, "test")
		Expect(err).NotTo(HaveOccurred())
		Expect(ids).To(HaveLen(7))
		Expect(resolver.resolvedCount.Load()).To(Equal(int64(7)))
	})

	It("deduplicates names that resolve to the same tag", func() {
		resolver.ids["minecraft"] = "t1"
		resolver.ids["Minecraft"] = "t1"
		resolver.ids["rpg"] = "t2"

		ids, err := newRegistrar().RegisterAll(ctx, []string{"minecraft", "Minecraft", "rpg"}, "test")
		Expect(err).NotTo(HaveOccurred())
		Expect(ids).To(Equal([]string{"t1", "t2"}))
	})

	It("skips names that fail to resolve without failing the batch", func() {
		resolver.failing["bad"] = true

		ids, err := newRegistrar().RegisterAll(ctx, []string{"a", "bad", "c"}, "test")
		Expect(err).NotTo(HaveOccurred())
		Expect(ids).To(ConsistOf("id-a", "id-c"))
	})

	It("returns no IDs when every name fails", func() {
		resolver.failing["a"] = true
		resolver.failing["b"] = true

		ids, err := newRegistrar().RegisterAll(ctx, []string{"a", "b"}, "test")
		Expect(err).NotTo(HaveOccurred())
		Expect(ids).To(BeEmpty())
	})

	It("resolves names within a batch concurrently", func() {
		resolver.delay = 20 * time.Millisecond

		_, err := newRegistrar().RegisterAll(ctx, []string{"a", "b", "c", "d", "e"}, "test")
		Expect(err).NotTo(HaveOccurred())
		Expect(resolver.maxInFlight.Load()).To(BeNumerically(">", 1))
	})

	It("pauses between batches but not after the last", func() {
		pause := 80 * time.Millisecond
		r, err := tags.NewRegistrar(resolver, zap.NewNop(),
			tags.WithBatchSize(2), tags.WithBatchPause(pause))
		Expect(err).NotTo(HaveOccurred())

		start := time.Now()
		_, err = r.RegisterAll(ctx, []string{"a", "b", "c"}, "test")
		elapsed := time.Since(start)

		Expect(err).NotTo(HaveOccurred())
		// One pause between the two batches, none trailing.
		Expect(elapsed).To(BeNumerically(">=", pause))
		Expect(elapsed).To(BeNumerically("<", 2*pause))
	})

	It("runs a single batch without any pause", func() {
		r, err := tags.NewRegistrar(resolver, zap.NewNop(),
			tags.WithBatchPause(5*time.Second))
		Expect(err).NotTo(HaveOccurred())

		start := time.Now()
		_, err = r.RegisterAll(ctx, []string{"a", "b", "c"}, "test")
		Expect(err).NotTo(HaveOccurred())
		Expect(time.Since(start)).To(BeNumerically("<", time.Second))
	})

	It("stops early when the context is cancelled", func() {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		names := []string{"a", "b", "c", "d", "e", "f"}
		_, err := newRegistrar().RegisterAll(cancelled, names, "test")
		Expect(err).To(MatchError(context.Canceled))
		Expect(resolver.resolvedCount.Load()).To(BeZero())
	})
})
