// Package youtube fetches channel metadata from the YouTube Data API.
package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/illumefy/illumefy-server/pkg/catalog"
)

// DefaultBaseURL is the YouTube Data API v3 endpoint.
const DefaultBaseURL = "https://www.googleapis.com/youtube/v3"

var (
	// ErrNotChannelURL indicates the URL does not point at a channel.
	// Video and short URLs are rejected; callers should pass the channel
	// page instead.
	ErrNotChannelURL = errors.New("not a youtube channel url")

	// ErrChannelNotFound indicates the API returned no channel for the query.
	ErrChannelNotFound = errors.New("channel not found")
)

// RefKind says how a channel reference identifies the channel.
type RefKind int

const (
	// RefID is a raw channel ID ("UC...").
	RefID RefKind = iota
	// RefHandle is an @handle.
	RefHandle
	// RefUsername is a legacy /user/ name.
	RefUsername
)

// ChannelRef identifies a channel extracted from a URL.
type ChannelRef struct {
	Kind  RefKind
	Value string
}

// ParseChannelURL extracts a channel reference from a YouTube URL.
// Supported forms:
//
//	https://www.youtube.com/channel/UCxxxx
//	https://www.youtube.com/@handle
//	https://www.youtube.com/c/CustomName
//	https://www.youtube.com/user/LegacyName
//
// Watch and short-link URLs identify a video, not a channel, and are
// rejected with ErrNotChannelURL.
func ParseChannelURL(raw string) (ChannelRef, error) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ChannelRef{}, fmt.Errorf("parsing url: %w", err)
	}

	host := strings.TrimPrefix(parsed.Hostname(), "www.")
	if host == "youtu.be" {
		return ChannelRef{}, ErrNotChannelURL
	}
	if host != "youtube.com" && host != "m.youtube.com" {
		return ChannelRef{}, ErrNotChannelURL
	}

	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if len(segments) == 0 || segments[0] == "" {
		return ChannelRef{}, ErrNotChannelURL
	}

	switch {
	case segments[0] == "watch" || segments[0] == "shorts" || segments[0] == "embed":
		return ChannelRef{}, ErrNotChannelURL

	case segments[0] == "channel":
		if len(segments) < 2 || segments[1] == "" {
			return ChannelRef{}, ErrNotChannelURL
		}
		return ChannelRef{Kind: RefID, Value: segments[1]}, nil

	case strings.HasPrefix(segments[0], "@"):
		handle := strings.TrimPrefix(segments[0], "@")
		if handle == "" {
			return ChannelRef{}, ErrNotChannelURL
		}
		return ChannelRef{Kind: RefHandle, Value: handle}, nil

	case segments[0] == "c":
		if len(segments) < 2 || segments[1] == "" {
			return ChannelRef{}, ErrNotChannelURL
		}
		// Custom URLs resolve through the handle lookup.
		return ChannelRef{Kind: RefHandle, Value: segments[1]}, nil

	case segments[0] == "user":
		if len(segments) < 2 || segments[1] == "" {
			return ChannelRef{}, ErrNotChannelURL
		}
		return ChannelRef{Kind: RefUsername, Value: segments[1]}, nil
	}

	return ChannelRef{}, ErrNotChannelURL
}

// Client queries the YouTube Data API.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a YouTube API client.
func NewClient(apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}, nil
}

// WithBaseURL points the client at a different API host, used in tests.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = strings.TrimSuffix(baseURL, "/")
	return c
}

type channelListResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			Thumbnails  struct {
				High struct {
					URL string `json:"url"`
				} `json:"high"`
				Default struct {
					URL string `json:"url"`
				} `json:"default"`
			} `json:"thumbnails"`
		} `json:"snippet"`
		Statistics struct {
			SubscriberCount string `json:"subscriberCount"`
			ViewCount       string `json:"viewCount"`
		} `json:"statistics"`
	} `json:"items"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// ChannelByURL parses the URL and fetches the channel it points at.
func (c *Client) ChannelByURL(ctx context.Context, rawURL string) (*catalog.YouTubeChannel, error) {
	ref, err := ParseChannelURL(rawURL)
	if err != nil {
		return nil, err
	}
	return c.Channel(ctx, ref)
}

// Channel fetches channel metadata for the reference.
func (c *Client) Channel(ctx context.Context, ref ChannelRef) (*catalog.YouTubeChannel, error) {
	params := url.Values{}
	params.Set("part", "snippet,statistics")
	params.Set("key", c.apiKey)

	switch ref.Kind {
	case RefID:
		params.Set("id", ref.Value)
	case RefHandle:
		params.Set("forHandle", "@"+ref.Value)
	case RefUsername:
		params.Set("forUsername", ref.Value)
	default:
		return nil, fmt.Errorf("unknown channel reference kind %d", ref.Kind)
	}

	endpoint := c.baseURL + "/channels?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("youtube request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("youtube API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result channelListResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if result.Error != nil {
		return nil, fmt.Errorf("youtube error: %s", result.Error.Message)
	}
	if len(result.Items) == 0 {
		return nil, ErrChannelNotFound
	}

	item := result.Items[0]
	image := item.Snippet.Thumbnails.High.URL
	if image == "" {
		image = item.Snippet.Thumbnails.Default.URL
	}

	return &catalog.YouTubeChannel{
		ID:              item.ID,
		Name:            item.Snippet.Title,
		Description:     item.Snippet.Description,
		SubscriberCount: parseCount(item.Statistics.SubscriberCount),
		TotalViewCount:  parseCount(item.Statistics.ViewCount),
		ProfileImageURL: image,
	}, nil
}

// Statistics counts arrive as decimal strings; hidden counters come back
// empty and read as zero.
func parseCount(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
