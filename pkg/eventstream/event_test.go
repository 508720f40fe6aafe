package eventstream_test

import (
	"encoding/json"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/illumefy/illumefy-server/pkg/eventstream"
)

func TestEventStream(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "EventStream Suite")
}

var _ = Describe("Event", func() {
	It("marshals CatalogEvent with expected top-level keys", func() {
		now := time.Unix(1735689600, 0).UTC()
		event := eventstream.CatalogEvent{
			SchemaVersion: eventstream.SchemaVersionV1,
			EventType:     eventstream.EventTypeCreatorPersisted,
			EventID:       "evt_123",
			EmittedAt:     now,
			Creator: &eventstream.CreatorMeta{
				ID:     "c1",
				Name:   "Streamer One",
				TagIDs: []string{"t1", "t2"},
			},
		}

		payload, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())

		var got map[string]any
		Expect(json.Unmarshal(payload, &got)).To(Succeed())

		Expect(got).To(HaveKey("schema_version"))
		Expect(got).To(HaveKey("event_type"))
		Expect(got).To(HaveKey("event_id"))
		Expect(got).To(HaveKey("emitted_at"))
		Expect(got).To(HaveKey("creator"))
		Expect(got).NotTo(HaveKey("tag"))
	})

	It("omits the creator payload on tag events", func() {
		event := eventstream.CatalogEvent{
			SchemaVersion: eventstream.SchemaVersionV1,
			EventType:     eventstream.EventTypeTagCreated,
			EventID:       "evt_456",
			EmittedAt:     time.Now().UTC(),
			Tag:           &eventstream.TagMeta{ID: "t1", Name: "speedrunning"},
		}

		payload, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())

		var got map[string]any
		Expect(json.Unmarshal(payload, &got)).To(Succeed())

		Expect(got).To(HaveKey("tag"))
		Expect(got).NotTo(HaveKey("creator"))
	})

	It("defines stable event constants", func() {
		Expect(eventstream.SchemaVersionV1).To(BeNumerically(">", 0))
		Expect(eventstream.EventTypeTagCreated).To(Equal("illumefy.tag.created"))
		Expect(eventstream.EventTypeCreatorPersisted).To(Equal("illumefy.creator.persisted"))
	})

	It("provides ErrNilCatalogEvent for nil payload validation", func() {
		Expect(eventstream.ErrNilCatalogEvent).NotTo(BeNil())
		Expect(eventstream.ErrNilCatalogEvent).To(MatchError("nil catalog event"))
	})
})
