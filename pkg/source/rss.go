package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/mmcdole/gofeed/extensions"
)

const defaultFeedBaseURL = "https://www.youtube.com/feeds/videos.xml"

// FeedLister reads a channel's public uploads feed. The feed carries no
// OAuth requirement and no duration data, which makes it a usable
// degraded path when the Data API quota is exhausted.
type FeedLister struct {
	client  *http.Client
	parser  *gofeed.Parser
	baseURL string
}

// NewFeedLister creates an uploads-feed lister.
func NewFeedLister(client *http.Client) *FeedLister {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &FeedLister{
		client:  client,
		parser:  gofeed.NewParser(),
		baseURL: defaultFeedBaseURL,
	}
}

// ListRecentVideos fetches and parses the channel's uploads feed.
func (f *FeedLister) ListRecentVideos(ctx context.Context, channelID string, limit int) ([]Video, error) {
	feedURL := f.baseURL + "?channel_id=" + channelID

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create feed request %s: %w", channelID, err)
	}
	req.Header.Set("User-Agent", "ytdash/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", channelID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("feed %s: %w", channelID, ErrChannelNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed %s: status %d", channelID, resp.StatusCode)
	}

	parsed, err := f.parser.Parse(resp.Body)
	if err != nil {
		return nil, &ParseError{Field: "feed", Value: channelID, Err: err}
	}

	var videos []Video
	for _, entry := range parsed.Items {
		if limit > 0 && len(videos) >= limit {
			break
		}

		published := time.Now().UTC()
		if entry.PublishedParsed != nil {
			published = entry.PublishedParsed.UTC()
		}

		mediaGroup := firstExtension(entry.Extensions, "media", "group")

		videos = append(videos, Video{
			ExternalID:  feedVideoID(entry),
			Title:       entry.Title,
			Description: childValue(mediaGroup, "description"),
			Thumbnail:   childAttr(mediaGroup, "thumbnail", "url"),
			PublishedAt: published,
			// The feed does not expose durations.
			Duration:  "",
			ViewCount: feedViewCount(mediaGroup),
		})
	}

	return videos, nil
}

func feedVideoID(entry *gofeed.Item) string {
	if e := firstExtension(entry.Extensions, "yt", "videoId"); e != nil {
		return e.Value
	}
	return strings.TrimPrefix(entry.GUID, "yt:video:")
}

func feedViewCount(mediaGroup *ext.Extension) int64 {
	community := child(mediaGroup, "community")
	stats := child(community, "statistics")
	if stats == nil {
		return 0
	}
	views, err := strconv.ParseInt(stats.Attrs["views"], 10, 64)
	if err != nil {
		return 0
	}
	return views
}

func firstExtension(exts ext.Extensions, space, name string) *ext.Extension {
	if list, ok := exts[space][name]; ok && len(list) > 0 {
		return &list[0]
	}
	return nil
}

func child(e *ext.Extension, name string) *ext.Extension {
	if e == nil {
		return nil
	}
	if list, ok := e.Children[name]; ok && len(list) > 0 {
		return &list[0]
	}
	return nil
}

func childValue(e *ext.Extension, name string) string {
	if c := child(e, name); c != nil {
		return c.Value
	}
	return ""
}

func childAttr(e *ext.Extension, name, attr string) string {
	if c := child(e, name); c != nil {
		return c.Attrs[attr]
	}
	return ""
}

// feedFallback decorates a primary adapter: when a video listing fails
// on quota exhaustion, the public uploads feed answers instead.
// Not-found and parse failures pass through unchanged.
type feedFallback struct {
	primary Adapter
	feeds   *FeedLister
}

// WithFeedFallback wraps an adapter with the uploads-feed degraded
// path for video listings.
func WithFeedFallback(primary Adapter, feeds *FeedLister) Adapter {
	return &feedFallback{primary: primary, feeds: feeds}
}

func (f *feedFallback) ListSubscriptions(ctx context.Context) ([]Channel, error) {
	return f.primary.ListSubscriptions(ctx)
}

func (f *feedFallback) ListRecentVideos(ctx context.Context, channelID string, limit int) ([]Video, error) {
	videos, err := f.primary.ListRecentVideos(ctx, channelID, limit)
	if err != nil && errors.Is(err, ErrQuotaExceeded) {
		return f.feeds.ListRecentVideos(ctx, channelID, limit)
	}
	return videos, err
}
