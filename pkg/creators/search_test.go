package creators_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/illumefy/illumefy-server/pkg/catalog"
	"github.com/illumefy/illumefy-server/pkg/creators"
	"github.com/illumefy/illumefy-server/pkg/storage/inmemory"
	"go.uber.org/zap"
)

func TestCreators(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Creators Suite")
}

var _ = Describe("SearchEngine", func() {
	var (
		store  *inmemory.Store
		engine *creators.SearchEngine
		ctx    context.Context
	)

	insertTag := func(id, name string) {
		now := time.Now().UTC()
		Expect(store.InsertTag(ctx, &catalog.Tag{
			ID: id, Name: name, CreatedAt: now, UpdatedAt: now,
		})).To(Succeed())
	}

	insertCreator := func(id string, favorites int64, tagIDs ...string) {
		now := time.Now().UTC()
		Expect(store.InsertCreator(ctx, &catalog.Creator{
			ID: id, Name: id, FavoriteCount: favorites, Tags: tagIDs,
			CreatedAt: now, UpdatedAt: now,
		})).To(Succeed())
	}

	BeforeEach(func() {
		store = inmemory.NewStore()
		engine = creators.NewSearchEngine(store, store, zap.NewNop())
		ctx = context.Background()

		insertTag("t-fps", "fps")
		insertTag("t-speedrun", "speedrunning")
		insertTag("t-horror", "horror")
	})

	It("rejects a search with no tags", func() {
		_, err := engine.Search(ctx, nil, 10)
		Expect(err).To(MatchError(creators.ErrNoTags))
	})

	It("collapses duplicate tag IDs before matching", func() {
		insertCreator("c1", 0, "t-fps")

		results, err := engine.Search(ctx, []string{"t-fps", "t-fps"}, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(1))
	})

	Describe("single tag", func() {
		It("returns creators ordered by favorites within the limit", func() {
			insertCreator("c1", 1, "t-fps")
			insertCreator("c2", 9, "t-fps")
			insertCreator("c3", 5, "t-fps")
			insertCreator("c4", 2, "t-horror")

			results, err := engine.Search(ctx, []string{"t-fps"}, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(2))
			Expect(results[0].ID).To(Equal("c2"))
			Expect(results[1].ID).To(Equal("c3"))
		})

		It("returns an empty result for an unmatched tag", func() {
			results, err := engine.Search(ctx, []string{"t-horror"}, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(BeEmpty())
		})
	})

	Describe("multiple tags", func() {
		BeforeEach(func() {
			insertCreator("c1", 9, "t-fps")
			insertCreator("c2", 7, "t-fps", "t-speedrun")
			insertCreator("c3", 5, "t-fps", "t-speedrun", "t-horror")
			insertCreator("c4", 3, "t-speedrun")
		})

		It("returns only creators carrying every tag", func() {
			results, err := engine.Search(ctx, []string{"t-fps", "t-speedrun"}, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(2))
			Expect(results[0].ID).To(Equal("c2"))
			Expect(results[1].ID).To(Equal("c3"))
		})

		It("intersects three tags", func() {
			results, err := engine.Search(ctx, []string{"t-fps", "t-speedrun", "t-horror"}, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].ID).To(Equal("c3"))
		})

		It("truncates to the requested limit", func() {
			results, err := engine.Search(ctx, []string{"t-fps", "t-speedrun"}, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].ID).To(Equal("c2"))
		})

		It("can under-return when matches fall outside the fetch window", func() {
			// Window is limit×multiplier candidates from the first tag,
			// ranked by favorites. c-match carries both tags but sits
			// below the window cut-off, so it is not found.
			narrow := creators.NewSearchEngine(store, store, zap.NewNop(),
				creators.WithOverfetchMultiplier(1))

			for i := 0; i < 3; i++ {
				insertCreator(fmt.Sprintf("c-pop%d", i), int64(100+i), "t-fps")
			}
			insertCreator("c-match", 0, "t-fps", "t-horror")

			results, err := narrow.Search(ctx, []string{"t-fps", "t-horror"}, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(BeEmpty())
		})
	})

	It("bumps the view count of every searched tag", func() {
		insertCreator("c1", 0, "t-fps", "t-speedrun")

		_, err := engine.Search(ctx, []string{"t-fps", "t-speedrun"}, 10)
		Expect(err).NotTo(HaveOccurred())

		fps, err := store.TagByID(ctx, "t-fps")
		Expect(err).NotTo(HaveOccurred())
		Expect(fps.ViewCount).To(Equal(int64(1)))

		speedrun, err := store.TagByID(ctx, "t-speedrun")
		Expect(err).NotTo(HaveOccurred())
		Expect(speedrun.ViewCount).To(Equal(int64(1)))
	})

	It("tolerates a searched tag that no longer exists", func() {
		insertCreator("c1", 0, "t-fps")

		results, err := engine.Search(ctx, []string{"t-fps", "t-gone"}, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(BeEmpty())
	})
})
