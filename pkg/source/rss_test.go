package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns:yt="http://www.youtube.com/xml/schemas/2015"
      xmlns:media="http://search.yahoo.com/mrss/"
      xmlns="http://www.w3.org/2005/Atom">
  <title>Alpha uploads</title>
  <entry>
    <id>yt:video:vid1</id>
    <yt:videoId>vid1</yt:videoId>
    <title>First upload</title>
    <published>2026-08-01T10:00:00+00:00</published>
    <media:group>
      <media:description>first description</media:description>
      <media:thumbnail url="https://i.ytimg.com/vi/vid1/hqdefault.jpg"/>
      <media:community>
        <media:statistics views="1234"/>
      </media:community>
    </media:group>
  </entry>
  <entry>
    <id>yt:video:vid2</id>
    <yt:videoId>vid2</yt:videoId>
    <title>Second upload</title>
    <published>2026-07-15T08:30:00+00:00</published>
    <media:group>
      <media:description>second description</media:description>
      <media:thumbnail url="https://i.ytimg.com/vi/vid2/hqdefault.jpg"/>
    </media:group>
  </entry>
</feed>`

func newTestFeedLister(t *testing.T, handler http.HandlerFunc) *FeedLister {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	f := NewFeedLister(srv.Client())
	f.baseURL = srv.URL
	return f
}

func TestFeedListRecentVideos(t *testing.T) {
	f := newTestFeedLister(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "UCa", r.URL.Query().Get("channel_id"))
		fmt.Fprint(w, testFeed)
	})

	videos, err := f.ListRecentVideos(context.Background(), "UCa", 0)
	require.NoError(t, err)
	require.Len(t, videos, 2)

	assert.Equal(t, "vid1", videos[0].ExternalID)
	assert.Equal(t, "First upload", videos[0].Title)
	assert.Equal(t, "first description", videos[0].Description)
	assert.Equal(t, "https://i.ytimg.com/vi/vid1/hqdefault.jpg", videos[0].Thumbnail)
	assert.Equal(t, time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC), videos[0].PublishedAt)
	assert.Equal(t, int64(1234), videos[0].ViewCount)
	// The feed never carries durations.
	assert.Empty(t, videos[0].Duration)

	assert.Equal(t, "vid2", videos[1].ExternalID)
	assert.Zero(t, videos[1].ViewCount)
}

func TestFeedListRecentVideosHonorsLimit(t *testing.T) {
	f := newTestFeedLister(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, testFeed)
	})

	videos, err := f.ListRecentVideos(context.Background(), "UCa", 1)
	require.NoError(t, err)
	require.Len(t, videos, 1)
	assert.Equal(t, "vid1", videos[0].ExternalID)
}

func TestFeedListRecentVideosNotFound(t *testing.T) {
	f := newTestFeedLister(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := f.ListRecentVideos(context.Background(), "UCgone", 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrChannelNotFound)
}

func TestFeedListRecentVideosUnparseable(t *testing.T) {
	f := newTestFeedLister(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "this is not a feed")
	})

	_, err := f.ListRecentVideos(context.Background(), "UCa", 5)
	require.Error(t, err)

	var parseErr *ParseError
	assert.ErrorAs(t, err, &parseErr)
}

// stubAdapter fails video listings with a fixed error.
type stubAdapter struct {
	videosErr error
}

func (s *stubAdapter) ListSubscriptions(ctx context.Context) ([]Channel, error) {
	return nil, nil
}

func (s *stubAdapter) ListRecentVideos(ctx context.Context, channelID string, limit int) ([]Video, error) {
	return nil, s.videosErr
}

func TestFeedFallbackOnQuotaExhaustion(t *testing.T) {
	requests := 0
	feeds := newTestFeedLister(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		fmt.Fprint(w, testFeed)
	})

	primary := &stubAdapter{videosErr: fmt.Errorf("videos: %w", ErrQuotaExceeded)}
	adapter := WithFeedFallback(primary, feeds)

	videos, err := adapter.ListRecentVideos(context.Background(), "UCa", 5)
	require.NoError(t, err)
	assert.Len(t, videos, 2)
	assert.Equal(t, 1, requests)
}

func TestFeedFallbackPassesThroughOtherErrors(t *testing.T) {
	requests := 0
	feeds := newTestFeedLister(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
	})

	primary := &stubAdapter{videosErr: fmt.Errorf("channel UCa: %w", ErrChannelNotFound)}
	adapter := WithFeedFallback(primary, feeds)

	_, err := adapter.ListRecentVideos(context.Background(), "UCa", 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrChannelNotFound)
	assert.Zero(t, requests)
}
