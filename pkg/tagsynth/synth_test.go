package tagsynth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"go.uber.org/zap"
)

func TestTagSynth(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "TagSynth Suite")
}

var _ = Describe("NewCaller", func() {
	It("defaults to openai", func() {
		caller, err := NewCaller(CallerConfig{APIKey: "key"})
		Expect(err).NotTo(HaveOccurred())
		Expect(caller).NotTo(BeNil())
	})

	It("returns an error for an unsupported provider", func() {
		_, err := NewCaller(CallerConfig{Provider: "unsupported"})
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("unsupported provider"))
	})

	It("creates an anthropic caller with explicit key", func() {
		caller, err := NewCaller(CallerConfig{Provider: "anthropic", APIKey: "key"})
		Expect(err).NotTo(HaveOccurred())
		Expect(caller).NotTo(BeNil())
	})

	It("creates an ollama caller without a key", func() {
		caller, err := NewCaller(CallerConfig{Provider: "ollama"})
		Expect(err).NotTo(HaveOccurred())
		Expect(caller).NotTo(BeNil())
	})
})

var _ = Describe("anthropic caller", func() {
	BeforeEach(func() {
		anthropicRetryBackoff = time.Millisecond
	})

	newServer := func(handler http.HandlerFunc) *httptest.Server {
		return httptest.NewServer(handler)
	}

	It("retries on overloaded responses and then succeeds", func() {
		var calls atomic.Int64
		server := newServer(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(anthropicOverloadedHTTP)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"content": []map[string]string{{"type": "text", "text": `["fps"]`}},
			})
		})
		defer server.Close()

		caller := newAnthropicCaller("key", "claude-haiku-4-5-20251001", server.URL)
		reply, err := caller(context.Background(), "prompt")
		Expect(err).NotTo(HaveOccurred())
		Expect(reply).To(Equal(`["fps"]`))
		Expect(calls.Load()).To(Equal(int64(3)))
	})

	It("gives up after three overloaded attempts", func() {
		var calls atomic.Int64
		server := newServer(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(anthropicOverloadedHTTP)
		})
		defer server.Close()

		caller := newAnthropicCaller("key", "claude-haiku-4-5-20251001", server.URL)
		_, err := caller(context.Background(), "prompt")
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("overloaded"))
		Expect(calls.Load()).To(Equal(int64(3)))
	})

	It("does not retry other API errors", func() {
		var calls atomic.Int64
		server := newServer(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
		})
		defer server.Close()

		caller := newAnthropicCaller("key", "claude-haiku-4-5-20251001", server.URL)
		_, err := caller(context.Background(), "prompt")
		Expect(err).To(HaveOccurred())
		Expect(calls.Load()).To(Equal(int64(1)))
	})
})

var _ = Describe("Synthesizer", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	synthWith := func(reply string, err error) *Synthesizer {
		call := func(_ context.Context, _ string) (string, error) {
			return reply, err
		}
		return NewSynthesizer(call, zap.NewNop())
	}

	It("requires a profile name", func() {
		_, err := synthWith(`[]`, nil).Synthesize(ctx, Profile{})
		Expect(err).To(HaveOccurred())
	})

	It("parses a plain JSON array", func() {
		names, err := synthWith(`["fps", "speedrunning"]`, nil).
			Synthesize(ctx, Profile{Name: "Streamer"})
		Expect(err).NotTo(HaveOccurred())
		Expect(names).To(Equal([]string{"fps", "speedrunning"}))
	})

	It("parses an array inside a markdown fence", func() {
		reply := "```json\n[\"fps\", \"horror\"]\n```"
		names, err := synthWith(reply, nil).Synthesize(ctx, Profile{Name: "Streamer"})
		Expect(err).NotTo(HaveOccurred())
		Expect(names).To(Equal([]string{"fps", "horror"}))
	})

	It("parses an array surrounded by prose", func() {
		reply := `Here are the tags: ["fps", "minecraft"] hope that helps`
		names, err := synthWith(reply, nil).Synthesize(ctx, Profile{Name: "Streamer"})
		Expect(err).NotTo(HaveOccurred())
		Expect(names).To(Equal([]string{"fps", "minecraft"}))
	})

	It("lowercases and deduplicates names", func() {
		names, err := synthWith(`["FPS", "fps", " Horror "]`, nil).
			Synthesize(ctx, Profile{Name: "Streamer"})
		Expect(err).NotTo(HaveOccurred())
		Expect(names).To(Equal([]string{"fps", "horror"}))
	})

	It("caps the number of names", func() {
		many := make([]string, 0, MaxTagNames+5)
		for i := 0; i < MaxTagNames+5; i++ {
			many = append(many, string(rune('a'+i)))
		}
		payload, _ := json.Marshal(many)

		names, err := synthWith(string(payload), nil).Synthesize(ctx, Profile{Name: "Streamer"})
		Expect(err).NotTo(HaveOccurred())
		Expect(names).To(HaveLen(MaxTagNames))
	})

	It("truncates oversized profile fields in the prompt", func() {
		var prompt string
		call := func(_ context.Context, p string) (string, error) {
			prompt = p
			return `["fps"]`, nil
		}
		synth := NewSynthesizer(call, zap.NewNop())

		longDescription := strings.Repeat("d", maxPromptDescription+50)
		longSnippet := strings.Repeat("s", maxPromptSnippet+50)

		_, err := synth.Synthesize(ctx, Profile{
			Name:        "Streamer",
			Description: longDescription,
			Snippets:    []string{longSnippet},
		})
		Expect(err).NotTo(HaveOccurred())

		Expect(prompt).NotTo(ContainSubstring(longDescription))
		Expect(prompt).NotTo(ContainSubstring(longSnippet))
		Expect(prompt).To(ContainSubstring(strings.Repeat("d", maxPromptDescription) + "..."))
		Expect(prompt).To(ContainSubstring(strings.Repeat("s", maxPromptSnippet) + "..."))
	})

	It("fails when the reply holds no array", func() {
		_, err := synthWith(`no tags here`, nil).Synthesize(ctx, Profile{Name: "Streamer"})
		Expect(err).To(HaveOccurred())
	})

	It("propagates caller errors", func() {
		_, err := synthWith("", errors.New("model down")).Synthesize(ctx, Profile{Name: "Streamer"})
		Expect(err).To(MatchError(ContainSubstring("model down")))
	})
})
