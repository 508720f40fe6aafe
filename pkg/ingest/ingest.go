// Package ingest builds creator catalog entries from YouTube channels. A
// run fetches channel metadata, gathers web context, asks the tag
// synthesizer for candidate names, registers them through the tag resolver,
// and persists the resulting creator.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/illumefy/illumefy-server/pkg/catalog"
	"github.com/illumefy/illumefy-server/pkg/eventstream"
	"github.com/illumefy/illumefy-server/pkg/storage"
	"github.com/illumefy/illumefy-server/pkg/tagsynth"
	"github.com/illumefy/illumefy-server/pkg/websearch"
)

// ChannelFetcher resolves a channel URL to its metadata.
type ChannelFetcher interface {
	ChannelByURL(ctx context.Context, rawURL string) (*catalog.YouTubeChannel, error)
}

// Searcher returns web search hits for a query.
type Searcher interface {
	Search(ctx context.Context, query string) ([]websearch.Result, error)
}

// Synthesizer produces candidate tag names for a creator profile.
type Synthesizer interface {
	Synthesize(ctx context.Context, profile tagsynth.Profile) ([]string, error)
}

// Registrar resolves tag names to canonical tag IDs in batches.
type Registrar interface {
	RegisterAll(ctx context.Context, names []string, contextLabel string) ([]string, error)
}

// Pipeline ingests creators from YouTube channel URLs.
//
// Channel metadata is required; everything downstream of it degrades
// gracefully. A failed web search just means less context for the
// synthesizer, and a failed synthesis or registration yields a creator
// with no tags rather than no creator.
type Pipeline struct {
	fetcher   ChannelFetcher
	searcher  Searcher
	synth     Synthesizer
	registrar Registrar
	store     storage.CreatorStore
	publisher eventstream.Publisher
	logger    *zap.Logger

	now   func() time.Time
	newID func() string
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithSearcher attaches a web search client for synthesis context.
func WithSearcher(s Searcher) PipelineOption {
	return func(p *Pipeline) {
		p.searcher = s
	}
}

// WithPublisher attaches an eventstream publisher; the pipeline emits a
// creator-persisted event after each successful ingest.
func WithPublisher(pub eventstream.Publisher) PipelineOption {
	return func(p *Pipeline) {
		p.publisher = pub
	}
}

// NewPipeline creates an ingest pipeline.
func NewPipeline(fetcher ChannelFetcher, synth Synthesizer, registrar Registrar, store storage.CreatorStore, logger *zap.Logger, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		fetcher:   fetcher,
		synth:     synth,
		registrar: registrar,
		store:     store,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ingest fetches the channel behind channelURL and persists it as a creator.
func (p *Pipeline) Ingest(ctx context.Context, channelURL string) (*catalog.Creator, error) {
	channel, err := p.fetcher.ChannelByURL(ctx, channelURL)
	if err != nil {
		return nil, fmt.Errorf("fetching channel: %w", err)
	}

	tagIDs, err := p.deriveTags(ctx, channel)
	if err != nil {
		return nil, err
	}

	now := p.now()
	creator := &catalog.Creator{
		ID:              p.newID(),
		Name:            channel.Name,
		Description:     channel.Description,
		ProfileImageURL: channel.ProfileImageURL,
		Platforms: catalog.Platforms{
			YouTube: &catalog.YouTubePlatform{
				Username:        channel.Name,
				ChannelID:       channel.ID,
				SubscriberCount: channel.SubscriberCount,
				ViewCount:       channel.TotalViewCount,
			},
		},
		Tags:      tagIDs,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := p.store.InsertCreator(ctx, creator); err != nil {
		return nil, fmt.Errorf("persisting creator: %w", err)
	}

	p.publishPersisted(ctx, creator)

	p.logger.Info("ingested creator",
		zap.String("creator_id", creator.ID),
		zap.String("name", creator.Name),
		zap.Int("tags", len(tagIDs)),
	)

	return creator, nil
}

// deriveTags runs search, synthesis, and registration. It only fails on
// context cancellation; provider trouble degrades to an untagged creator.
func (p *Pipeline) deriveTags(ctx context.Context, channel *catalog.YouTubeChannel) ([]string, error) {
	var snippets []string
	if p.searcher != nil {
		results, err := p.searcher.Search(ctx, channel.Name+" youtube creator")
		if err != nil {
			p.logger.Warn("web search failed, synthesizing without context",
				zap.String("channel", channel.Name),
				zap.Error(err),
			)
		}
		for _, hit := range results {
			snippets = append(snippets, hit.Description)
		}
	}

	names, err := p.synth.Synthesize(ctx, tagsynth.Profile{
		Name:        channel.Name,
		Description: channel.Description,
		Snippets:    snippets,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		p.logger.Warn("tag synthesis failed, ingesting untagged",
			zap.String("channel", channel.Name),
			zap.Error(err),
		)
		return nil, nil
	}

	tagIDs, err := p.registrar.RegisterAll(ctx, names, channel.Name)
	if err != nil {
		// RegisterAll only errors on context cancellation.
		return nil, err
	}
	return tagIDs, nil
}

func (p *Pipeline) publishPersisted(ctx context.Context, creator *catalog.Creator) {
	if p.publisher == nil {
		return
	}

	event := &eventstream.CatalogEvent{
		SchemaVersion: eventstream.SchemaVersionV1,
		EventType:     eventstream.EventTypeCreatorPersisted,
		EventID:       uuid.NewString(),
		EmittedAt:     p.now(),
		Creator: &eventstream.CreatorMeta{
			ID:     creator.ID,
			Name:   creator.Name,
			TagIDs: creator.Tags,
		},
	}
	if err := p.publisher.PublishCatalog(ctx, event); err != nil {
		p.logger.Warn("failed to publish creator persisted event",
			zap.String("creator_id", creator.ID),
			zap.Error(err),
		)
	}
}
