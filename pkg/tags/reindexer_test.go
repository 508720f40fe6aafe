package tags_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/illumefy/illumefy-server/pkg/catalog"
	"github.com/illumefy/illumefy-server/pkg/storage/inmemory"
	"github.com/illumefy/illumefy-server/pkg/tags"
	testutils "github.com/illumefy/illumefy-server/pkg/utils/test"
	"go.uber.org/zap"
)

var _ = Describe("Reindexer", func() {
	var (
		store     *inmemory.Store
		embedder  *testutils.MockEmbedder
		index     *testutils.MockIndex
		reindexer *tags.Reindexer
		ctx       context.Context
	)

	insertTag := func(id, name string, embedding []float32) {
		now := time.Now().UTC()
		Expect(store.InsertTag(ctx, &catalog.Tag{
			ID: id, Name: name, Embedding: embedding,
			CreatedAt: now, UpdatedAt: now,
		})).To(Succeed())
	}

	BeforeEach(func() {
		store = inmemory.NewStore()
		embedder = testutils.NewMockEmbedder()
		index = testutils.NewMockIndex()
		reindexer = tags.NewReindexer(store, embedder, index, zap.NewNop())
		ctx = context.Background()
	})

	It("indexes nothing for an empty store", func() {
		count, err := reindexer.Reindex(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(BeZero())
		Expect(index.Documents()).To(BeEmpty())
	})

	It("indexes stored embeddings without re-embedding", func() {
		insertTag("t1", "fps", []float32{1, 0})
		insertTag("t2", "rpg", []float32{0, 1})

		count, err := reindexer.Reindex(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(Equal(2))
		Expect(embedder.CallCount()).To(BeZero())
		Expect(index.Documents()).To(HaveLen(2))
	})

	It("backfills missing embeddings and persists them", func() {
		insertTag("t1", "fps", nil)
		embedder.Embeddings["fps"] = []float32{0.5, 0.5}

		count, err := reindexer.Reindex(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(Equal(1))

		tag, err := store.TagByID(ctx, "t1")
		Expect(err).NotTo(HaveOccurred())
		Expect(tag.Embedding).To(Equal([]float32{0.5, 0.5}))
	})

	It("skips tags whose backfill embedding fails", func() {
		insertTag("t1", "fps", []float32{1, 0})
		insertTag("t2", "broken", nil)
		embedder.FailOn = "broken"

		count, err := reindexer.Reindex(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(Equal(1))

		docs := index.Documents()
		Expect(docs).To(HaveLen(1))
		Expect(docs[0].ID).To(Equal("t1"))
	})
})
