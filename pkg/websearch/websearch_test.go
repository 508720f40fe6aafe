package websearch_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/illumefy/illumefy-server/pkg/websearch"
)

func TestWebSearch(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "WebSearch Suite")
}

var _ = Describe("Client", func() {
	It("requires a subscription token", func() {
		_, err := websearch.NewClient("")
		Expect(err).To(HaveOccurred())
	})

	It("rejects an empty query", func() {
		client, err := websearch.NewClient("token")
		Expect(err).NotTo(HaveOccurred())

		_, err = client.Search(context.Background(), "   ")
		Expect(err).To(HaveOccurred())
	})

	It("sends the subscription token and returns hits", func() {
		var gotToken string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotToken = r.Header.Get("X-Subscription-Token")
			json.NewEncoder(w).Encode(map[string]any{
				"web": map[string]any{
					"results": []map[string]string{
						{"title": "Streamer One", "url": "https://example.com", "description": "plays fps"},
					},
				},
			})
		}))
		defer server.Close()

		client, err := websearch.NewClient("secret-token")
		Expect(err).NotTo(HaveOccurred())
		client = client.WithBaseURL(server.URL)

		results, err := client.Search(context.Background(), "Streamer One youtube")
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(1))
		Expect(results[0].Description).To(Equal("plays fps"))
		Expect(gotToken).To(Equal("secret-token"))
	})

	It("surfaces API errors with the status code", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		client, err := websearch.NewClient("token")
		Expect(err).NotTo(HaveOccurred())
		client = client.WithBaseURL(server.URL)

		_, err = client.Search(context.Background(), "anything")
		Expect(err).To(MatchError(ContainSubstring("429")))
	})
})
