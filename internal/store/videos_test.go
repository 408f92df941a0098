package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testVideo(subID int64, externalID string, published time.Time) *Video {
	return &Video{
		SubscriptionID:  subID,
		ExternalVideoID: externalID,
		Title:           "Video " + externalID,
		PublishedAt:     published,
		Duration:        "10:00",
		ViewCount:       100,
	}
}

func TestAddVideoDetectsDuplicates(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	ident := addTestIdentity(t, st, "personal")
	sub := addActiveSubscription(t, st, ident.ID, "UCchan1", "Channel One")

	created, err := st.AddVideo(ctx, testVideo(sub.ID, "v1", time.Now().UTC()))
	require.NoError(t, err)
	assert.True(t, created)

	created, err = st.AddVideo(ctx, testVideo(sub.ID, "v1", time.Now().UTC()))
	require.NoError(t, err)
	assert.False(t, created)

	count, err := st.CountVideosBySubscription(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestListVideosByIdentity(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	ident := addTestIdentity(t, st, "personal")
	sub := addActiveSubscription(t, st, ident.ID, "UCchan1", "Channel One")
	other := addActiveSubscription(t, st, ident.ID, "UCchan2", "Channel Two")

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	_, err := st.AddVideo(ctx, testVideo(sub.ID, "old", base))
	require.NoError(t, err)
	_, err = st.AddVideo(ctx, testVideo(sub.ID, "new", base.Add(48*time.Hour)))
	require.NoError(t, err)
	_, err = st.AddVideo(ctx, testVideo(other.ID, "mid", base.Add(24*time.Hour)))
	require.NoError(t, err)

	videos, err := st.ListVideosByIdentity(ctx, ident.ID, true)
	require.NoError(t, err)
	require.Len(t, videos, 3)
	// Newest first, across all the identity's subscriptions.
	assert.Equal(t, "new", videos[0].ExternalVideoID)
	assert.Equal(t, "mid", videos[1].ExternalVideoID)
	assert.Equal(t, "old", videos[2].ExternalVideoID)
}

func TestListVideosSkipsInactiveSubscriptions(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	ident := addTestIdentity(t, st, "personal")
	sub := addActiveSubscription(t, st, ident.ID, "UCchan1", "Channel One")

	_, err := st.AddVideo(ctx, testVideo(sub.ID, "v1", time.Now().UTC()))
	require.NoError(t, err)

	require.NoError(t, st.DeactivateSubscription(ctx, sub.ID))

	videos, err := st.ListVideosByIdentity(ctx, ident.ID, true)
	require.NoError(t, err)
	assert.Empty(t, videos)
}

func TestMarkVideoWatched(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	ident := addTestIdentity(t, st, "personal")
	sub := addActiveSubscription(t, st, ident.ID, "UCchan1", "Channel One")

	v := testVideo(sub.ID, "v1", time.Now().UTC())
	_, err := st.AddVideo(ctx, v)
	require.NoError(t, err)

	require.NoError(t, st.MarkVideoWatched(ctx, v.ID))

	unwatched, err := st.ListVideosByIdentity(ctx, ident.ID, false)
	require.NoError(t, err)
	assert.Empty(t, unwatched)

	all, err := st.ListVideosByIdentity(ctx, ident.ID, true)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].IsWatched)
	assert.NotNil(t, all[0].WatchedAt)
}

func TestClearWatchedVideos(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	ident := addTestIdentity(t, st, "personal")
	sub := addActiveSubscription(t, st, ident.ID, "UCchan1", "Channel One")

	watched := testVideo(sub.ID, "seen", time.Now().UTC())
	_, err := st.AddVideo(ctx, watched)
	require.NoError(t, err)
	_, err = st.AddVideo(ctx, testVideo(sub.ID, "fresh", time.Now().UTC()))
	require.NoError(t, err)

	require.NoError(t, st.MarkVideoWatched(ctx, watched.ID))

	removed, err := st.ClearWatchedVideos(ctx, ident.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	count, err := st.CountVideosBySubscription(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
