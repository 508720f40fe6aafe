package creators_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/illumefy/illumefy-server/pkg/catalog"
	"github.com/illumefy/illumefy-server/pkg/creators"
	"github.com/illumefy/illumefy-server/pkg/storage"
	"github.com/illumefy/illumefy-server/pkg/storage/inmemory"
	"go.uber.org/zap"
)

var _ = Describe("Service", func() {
	var (
		store   *inmemory.Store
		service *creators.Service
		ctx     context.Context
	)

	insertCreator := func(id string) {
		now := time.Now().UTC()
		Expect(store.InsertCreator(ctx, &catalog.Creator{
			ID: id, Name: id, CreatedAt: now, UpdatedAt: now,
		})).To(Succeed())
	}

	BeforeEach(func() {
		store = inmemory.NewStore()
		service = creators.NewService(store, zap.NewNop())
		ctx = context.Background()
	})

	Describe("ToggleFavorite", func() {
		BeforeEach(func() {
			insertCreator("c1")
		})

		It("favorites on first toggle and bumps the count", func() {
			favorited, err := service.ToggleFavorite(ctx, "u1", "c1")
			Expect(err).NotTo(HaveOccurred())
			Expect(favorited).To(BeTrue())

			creator, err := store.CreatorByID(ctx, "c1")
			Expect(err).NotTo(HaveOccurred())
			Expect(creator.FavoriteCount).To(Equal(int64(1)))
		})

		It("unfavorites on second toggle and restores the count", func() {
			_, err := service.ToggleFavorite(ctx, "u1", "c1")
			Expect(err).NotTo(HaveOccurred())

			favorited, err := service.ToggleFavorite(ctx, "u1", "c1")
			Expect(err).NotTo(HaveOccurred())
			Expect(favorited).To(BeFalse())

			creator, err := store.CreatorByID(ctx, "c1")
			Expect(err).NotTo(HaveOccurred())
			Expect(creator.FavoriteCount).To(BeZero())
		})

		It("counts distinct users separately", func() {
			_, err := service.ToggleFavorite(ctx, "u1", "c1")
			Expect(err).NotTo(HaveOccurred())
			_, err = service.ToggleFavorite(ctx, "u2", "c1")
			Expect(err).NotTo(HaveOccurred())

			creator, err := store.CreatorByID(ctx, "c1")
			Expect(err).NotTo(HaveOccurred())
			Expect(creator.FavoriteCount).To(Equal(int64(2)))
		})

		It("fails for an unknown creator", func() {
			_, err := service.ToggleFavorite(ctx, "u1", "missing")
			Expect(storage.IsNotFound(err)).To(BeTrue())
		})
	})

	Describe("Favorites", func() {
		It("skips creators deleted after being favorited", func() {
			insertCreator("c1")
			insertCreator("c2")
			_, err := service.ToggleFavorite(ctx, "u1", "c1")
			Expect(err).NotTo(HaveOccurred())
			_, err = service.ToggleFavorite(ctx, "u1", "c2")
			Expect(err).NotTo(HaveOccurred())

			Expect(service.Delete(ctx, "c2")).To(Succeed())

			favorites, err := service.Favorites(ctx, "u1")
			Expect(err).NotTo(HaveOccurred())
			Expect(favorites).To(HaveLen(1))
			Expect(favorites[0].ID).To(Equal("c1"))
		})
	})

	Describe("history", func() {
		It("records and returns profile views", func() {
			insertCreator("c1")
			Expect(service.RecordView(ctx, "u1", "c1")).To(Succeed())

			history, err := service.ViewHistory(ctx, "u1", 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(history).To(HaveLen(1))
			Expect(history[0].CreatorID).To(Equal("c1"))
		})

		It("records and returns search queries", func() {
			Expect(service.RecordSearch(ctx, "u1", "fps speedrunning")).To(Succeed())

			history, err := service.SearchHistory(ctx, "u1", 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(history).To(HaveLen(1))
			Expect(history[0].Query).To(Equal("fps speedrunning"))
		})
	})

	Describe("Update", func() {
		str := func(s string) *string { return &s }

		BeforeEach(func() {
			now := time.Now().UTC()
			Expect(store.InsertCreator(ctx, &catalog.Creator{
				ID: "c1", Name: "Streamer One", Description: "variety streams",
				Tags: []string{"t1", "t2"}, CreatedAt: now, UpdatedAt: now,
			})).To(Succeed())
		})

		It("applies the given fields and leaves the rest untouched", func() {
			updated, err := service.Update(ctx, "c1", creators.CreatorUpdate{
				Name: str("Streamer Two"),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Name).To(Equal("Streamer Two"))
			Expect(updated.Description).To(Equal("variety streams"))
			Expect(updated.Tags).To(ConsistOf("t1", "t2"))
		})

		It("records the change in the edit history", func() {
			_, err := service.Update(ctx, "c1", creators.CreatorUpdate{
				Name:     str("Streamer Two"),
				EditorID: "u1",
			})
			Expect(err).NotTo(HaveOccurred())

			history, err := service.EditHistory(ctx, "c1", 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(history).To(HaveLen(1))
			Expect(history[0].CreatorName).To(Equal("Streamer One"))
			Expect(history[0].EditorID).To(Equal("u1"))
			Expect(history[0].Changes).To(ConsistOf(catalog.FieldChange{
				Field: "name", Before: "Streamer One", After: "Streamer Two",
			}))
		})

		It("records tag additions and removals", func() {
			_, err := service.Update(ctx, "c1", creators.CreatorUpdate{
				Tags: []string{"t2", "t3"},
			})
			Expect(err).NotTo(HaveOccurred())

			history, err := service.EditHistory(ctx, "c1", 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(history).To(HaveLen(1))
			Expect(history[0].TagsAdded).To(ConsistOf("t3"))
			Expect(history[0].TagsRemoved).To(ConsistOf("t1"))
		})

		It("writes no history entry when nothing effectively changed", func() {
			_, err := service.Update(ctx, "c1", creators.CreatorUpdate{
				Name: str("Streamer One"),
			})
			Expect(err).NotTo(HaveOccurred())

			history, err := service.EditHistory(ctx, "c1", 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(history).To(BeEmpty())
		})

		It("rejects an update with no fields", func() {
			_, err := service.Update(ctx, "c1", creators.CreatorUpdate{})
			Expect(err).To(MatchError(creators.ErrInvalidUpdate))
		})

		It("rejects a blank name", func() {
			_, err := service.Update(ctx, "c1", creators.CreatorUpdate{Name: str("  ")})
			Expect(err).To(MatchError(creators.ErrInvalidUpdate))
		})

		It("rejects a malformed profile image URL", func() {
			_, err := service.Update(ctx, "c1", creators.CreatorUpdate{
				ProfileImageURL: str("not a url"),
			})
			Expect(err).To(MatchError(creators.ErrInvalidUpdate))
		})

		It("fails for an unknown creator", func() {
			_, err := service.Update(ctx, "missing", creators.CreatorUpdate{
				Name: str("anyone"),
			})
			Expect(storage.IsNotFound(err)).To(BeTrue())
		})

		It("keeps the history readable after the creator is deleted", func() {
			_, err := service.Update(ctx, "c1", creators.CreatorUpdate{
				Name: str("Streamer Two"),
			})
			Expect(err).NotTo(HaveOccurred())

			Expect(service.Delete(ctx, "c1")).To(Succeed())

			history, err := service.EditHistory(ctx, "c1", 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(history).To(HaveLen(1))
			Expect(history[0].CreatorName).To(Equal("Streamer One"))
		})
	})

	Describe("listings", func() {
		It("orders popular creators by favorite count", func() {
			insertCreator("c1")
			insertCreator("c2")
			Expect(store.AdjustFavoriteCount(ctx, "c2", 4)).To(Succeed())

			popular, err := service.Popular(ctx, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(popular[0].ID).To(Equal("c2"))
		})

		It("orders newest creators by creation time", func() {
			now := time.Now().UTC()
			Expect(store.InsertCreator(ctx, &catalog.Creator{
				ID: "old", Name: "old", CreatedAt: now.Add(-time.Hour), UpdatedAt: now,
			})).To(Succeed())
			Expect(store.InsertCreator(ctx, &catalog.Creator{
				ID: "new", Name: "new", CreatedAt: now, UpdatedAt: now,
			})).To(Succeed())

			newest, err := service.Newest(ctx, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(newest[0].ID).To(Equal("new"))
		})
	})
})
