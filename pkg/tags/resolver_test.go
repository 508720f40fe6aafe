package tags_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/illumefy/illumefy-server/pkg/catalog"
	"github.com/illumefy/illumefy-server/pkg/eventstream"
	"github.com/illumefy/illumefy-server/pkg/storage"
	"github.com/illumefy/illumefy-server/pkg/storage/inmemory"
	"github.com/illumefy/illumefy-server/pkg/tags"
	testutils "github.com/illumefy/illumefy-server/pkg/utils/test"
	"github.com/illumefy/illumefy-server/pkg/vector"
	"go.uber.org/zap"
)

func TestTags(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Tags Suite")
}

// capturePublisher records published events for assertions.
type capturePublisher struct {
	mu     sync.Mutex
	events []*eventstream.CatalogEvent
}

func (p *capturePublisher) PublishCatalog(_ context.Context, event *eventstream.CatalogEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func (p *capturePublisher) Events() []*eventstream.CatalogEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*eventstream.CatalogEvent, len(p.events))
	copy(out, p.events)
	return out
}

// conflictStore hides a tag from name lookup until an insert collides,
// simulating a concurrent writer minting the same name.
type conflictStore struct {
	*inmemory.Store
	hidden string
}

func (s *conflictStore) TagByName(ctx context.Context, name string) (*catalog.Tag, error) {
	if name == s.hidden {
		s.hidden = ""
		return nil, nil
	}
	return s.Store.TagByName(ctx, name)
}

// wrappingStore wraps insert errors the way a SQL driver layer would.
type wrappingStore struct {
	*conflictStore
}

func (s *wrappingStore) InsertTag(ctx context.Context, tag *catalog.Tag) error {
	if err := s.conflictStore.InsertTag(ctx, tag); err != nil {
		return fmt.Errorf("inserting tag: %w", err)
	}
	return nil
}

var _ = Describe("Resolver", func() {
	var (
		store    *inmemory.Store
		embedder *testutils.MockEmbedder
		index    *testutils.MockIndex
		resolver *tags.Resolver
		ctx      context.Context
	)

	BeforeEach(func() {
		store = inmemory.NewStore()
		embedder = testutils.NewMockEmbedder()
		index = testutils.NewMockIndex()
		resolver = tags.NewResolver(store, embedder, index, zap.NewNop())
		ctx = context.Background()
	})

	Describe("input validation", func() {
		It("rejects an empty name", func() {
			_, err := resolver.Resolve(ctx, "", "")
			Expect(err).To(MatchError(tags.ErrEmptyName))
		})

		It("rejects a whitespace-only name", func() {
			_, err := resolver.Resolve(ctx, "   ", "")
			Expect(err).To(MatchError(tags.ErrEmptyName))
		})
	})

	Describe("exact-name fast path", func() {
		BeforeEach(func() {
			now := time.Now().UTC()
			Expect(store.InsertTag(ctx, &catalog.Tag{
				ID: "t-minecraft", Name: "minecraft", CreatedAt: now, UpdatedAt: now,
			})).To(Succeed())
		})

		It("returns the existing ID without embedding", func() {
			id, err := resolver.Resolve(ctx, "minecraft", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(Equal("t-minecraft"))
			Expect(embedder.CallCount()).To(BeZero())
		})

		It("is case-sensitive, so a case variant takes the embedding path", func() {
			embedder.Embeddings["Minecraft"] = []float32{1, 0}
			_, err := resolver.Resolve(ctx, "Minecraft", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(embedder.CallCount()).To(Equal(1))
		})
	})

	Describe("similarity reuse", func() {
		// Unit vectors chosen so cosine distance to "apex" ([1, 0]) matches
		// observed calibration points for case variants, pluralization, and
		// cross-script transliteration.
		BeforeEach(func() {
			embedder.Embeddings["apex"] = []float32{1, 0}
			embedder.Embeddings["Apex"] = []float32{0.877, 0.48049}
			embedder.Embeddings["apexes"] = []float32{0.696, 0.718042}
			embedder.Embeddings["エーペックス"] = []float32{0.367, 0.930221}
			embedder.Embeddings["fortnite"] = []float32{0.05, 0.99875}

			_, err := resolver.Resolve(ctx, "apex", "")
			Expect(err).NotTo(HaveOccurred())
		})

		It("reuses the canonical tag for a case variant", func() {
			base, _ := store.TagByName(ctx, "apex")
			id, err := resolver.Resolve(ctx, "Apex", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(Equal(base.ID))
		})

		It("reuses the canonical tag for a plural form", func() {
			base, _ := store.TagByName(ctx, "apex")
			id, err := resolver.Resolve(ctx, "apexes", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(Equal(base.ID))
		})

		It("reuses the canonical tag for a transliteration", func() {
			base, _ := store.TagByName(ctx, "apex")
			id, err := resolver.Resolve(ctx, "エーペックス", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(Equal(base.ID))
		})

		It("creates a new tag for an unrelated concept", func() {
			base, _ := store.TagByName(ctx, "apex")
			id, err := resolver.Resolve(ctx, "fortnite", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(id).NotTo(Equal(base.ID))

			created, err := store.TagByName(ctx, "fortnite")
			Expect(err).NotTo(HaveOccurred())
			Expect(created).NotTo(BeNil())
			Expect(created.ID).To(Equal(id))
		})

		It("does not reuse across two distinct canonical tags", func() {
			_, err := resolver.Resolve(ctx, "fortnite", "")
			Expect(err).NotTo(HaveOccurred())

			fortnite, _ := store.TagByName(ctx, "fortnite")
			apex, _ := store.TagByName(ctx, "apex")

			id, err := resolver.Resolve(ctx, "Apex", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(Equal(apex.ID))
			Expect(id).NotTo(Equal(fortnite.ID))
		})
	})

	Describe("threshold boundary", func() {
		It("reuses at exactly the threshold distance", func() {
			index.NearestResult = &vector.Match{
				Document: vector.Document{ID: "t-existing", Name: "existing"},
				Distance: tags.SimilarityThreshold,
			}

			id, err := resolver.Resolve(ctx, "candidate", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(Equal("t-existing"))
		})

		It("creates just above the threshold distance", func() {
			index.NearestResult = &vector.Match{
				Document: vector.Document{ID: "t-existing", Name: "existing"},
				Distance: 0.76,
			}

			id, err := resolver.Resolve(ctx, "candidate", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(id).NotTo(Equal("t-existing"))
		})
	})

	Describe("tag creation", func() {
		It("persists the embedding and starts the view count at zero", func() {
			embedder.Embeddings["speedrunning"] = []float32{0, 1}

			id, err := resolver.Resolve(ctx, "speedrunning", "")
			Expect(err).NotTo(HaveOccurred())

			tag, err := store.TagByID(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(tag.Name).To(Equal("speedrunning"))
			Expect(tag.Embedding).To(Equal([]float32{0, 1}))
			Expect(tag.ViewCount).To(BeZero())
		})

		It("stores the description without letting it influence matching", func() {
			embedder.Embeddings["speedrunning"] = []float32{0, 1}

			id, err := resolver.Resolve(ctx, "speedrunning", "completing games as fast as possible")
			Expect(err).NotTo(HaveOccurred())

			tag, err := store.TagByID(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(tag.Description).To(Equal("completing games as fast as possible"))
			Expect(embedder.CallCount()).To(Equal(1))
		})

		It("indexes the new tag for future lookups", func() {
			embedder.Embeddings["speedrunning"] = []float32{0, 1}

			id, err := resolver.Resolve(ctx, "speedrunning", "")
			Expect(err).NotTo(HaveOccurred())

			docs := index.Documents()
			Expect(docs).To(HaveLen(1))
			Expect(docs[0].ID).To(Equal(id))
		})

		It("still returns the tag ID when indexing fails", func() {
			index.FailAdd = true

			id, err := resolver.Resolve(ctx, "speedrunning", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(id).NotTo(BeEmpty())

			_, err = store.TagByID(ctx, id)
			Expect(err).NotTo(HaveOccurred())
		})

		It("adopts the winner's tag when an insert races on the same name", func() {
			now := time.Now().UTC()
			Expect(store.InsertTag(ctx, &catalog.Tag{
				ID: "t-winner", Name: "speedrunning", CreatedAt: now, UpdatedAt: now,
			})).To(Succeed())

			racing := &conflictStore{Store: store, hidden: "speedrunning"}
			r := tags.NewResolver(racing, embedder, index, zap.NewNop())

			id, err := r.Resolve(ctx, "speedrunning", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(Equal("t-winner"))
		})

		It("adopts the winner even when the store wraps the duplicate-name error", func() {
			now := time.Now().UTC()
			Expect(store.InsertTag(ctx, &catalog.Tag{
				ID: "t-winner", Name: "speedrunning", CreatedAt: now, UpdatedAt: now,
			})).To(Succeed())

			racing := &wrappingStore{conflictStore: &conflictStore{Store: store, hidden: "speedrunning"}}
			r := tags.NewResolver(racing, embedder, index, zap.NewNop())

			id, err := r.Resolve(ctx, "speedrunning", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(Equal("t-winner"))
		})
	})

	Describe("provider failures", func() {
		It("propagates embedding errors", func() {
			embedder.FailOn = "broken"
			_, err := resolver.Resolve(ctx, "broken", "")
			Expect(err).To(HaveOccurred())
		})

		It("propagates nearest-neighbor errors", func() {
			index.FailNearest = true
			_, err := resolver.Resolve(ctx, "anything", "")
			Expect(err).To(MatchError(vector.ErrConnection))
		})
	})

	Describe("event publishing", func() {
		It("emits a tag-created event for new tags only", func() {
			publisher := &capturePublisher{}
			r := tags.NewResolver(store, embedder, index, zap.NewNop(), tags.WithPublisher(publisher))

			id, err := r.Resolve(ctx, "speedrunning", "")
			Expect(err).NotTo(HaveOccurred())

			// Resolving the same name again takes the fast path.
			_, err = r.Resolve(ctx, "speedrunning", "")
			Expect(err).NotTo(HaveOccurred())

			events := publisher.Events()
			Expect(events).To(HaveLen(1))
			Expect(events[0].EventType).To(Equal(eventstream.EventTypeTagCreated))
			Expect(events[0].Tag.ID).To(Equal(id))
		})
	})
})

var _ = Describe("NotFound mapping", func() {
	It("recognises store not-found errors", func() {
		store := inmemory.NewStore()
		_, err := store.TagByID(context.Background(), "nope")
		Expect(storage.IsNotFound(err)).To(BeTrue())
	})
})
