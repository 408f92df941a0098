package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultAPIBaseURL = "https://www.googleapis.com/youtube/v3"

// YouTube is an Adapter backed by the YouTube Data API v3. The injected
// client carries the identity's authorization; acquiring it is the
// caller's concern.
type YouTube struct {
	client  *http.Client
	apiKey  string
	baseURL string
}

// NewYouTube creates a Data API adapter.
func NewYouTube(client *http.Client, apiKey string) *YouTube {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &YouTube{
		client:  client,
		apiKey:  apiKey,
		baseURL: defaultAPIBaseURL,
	}
}

type ytErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Errors  []struct {
			Reason string `json:"reason"`
		} `json:"errors"`
	} `json:"error"`
}

type ytSubscriptionsResponse struct {
	Items []struct {
		Snippet struct {
			Title      string `json:"title"`
			ResourceID struct {
				ChannelID string `json:"channelId"`
			} `json:"resourceId"`
			Thumbnails struct {
				Default struct {
					URL string `json:"url"`
				} `json:"default"`
			} `json:"thumbnails"`
		} `json:"snippet"`
	} `json:"items"`
	NextPageToken string `json:"nextPageToken"`
}

type ytChannelsResponse struct {
	Items []struct {
		ContentDetails struct {
			RelatedPlaylists struct {
				Uploads string `json:"uploads"`
			} `json:"relatedPlaylists"`
		} `json:"contentDetails"`
	} `json:"items"`
}

type ytPlaylistItemsResponse struct {
	Items []struct {
		ContentDetails struct {
			VideoID string `json:"videoId"`
		} `json:"contentDetails"`
	} `json:"items"`
}

type ytVideosResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			PublishedAt string `json:"publishedAt"`
			Thumbnails  struct {
				Medium struct {
					URL string `json:"url"`
				} `json:"medium"`
			} `json:"thumbnails"`
		} `json:"snippet"`
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
		Statistics struct {
			ViewCount string `json:"viewCount"`
		} `json:"statistics"`
	} `json:"items"`
}

func (y *YouTube) get(ctx context.Context, resource string, params url.Values, out any) error {
	if y.apiKey != "" {
		params.Set("key", y.apiKey)
	}
	reqURL := y.baseURL + "/" + resource + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("create %s request: %w", resource, err)
	}

	resp, err := y.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", resource, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return y.apiError(resource, resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", resource, err)
	}
	return nil
}

// apiError maps an upstream error payload onto the sentinel taxonomy
// so that classification never depends on error text.
func (y *YouTube) apiError(resource string, resp *http.Response) error {
	var payload ytErrorResponse
	_ = json.NewDecoder(resp.Body).Decode(&payload)

	reason := ""
	if len(payload.Error.Errors) > 0 {
		reason = payload.Error.Errors[0].Reason
	}

	switch reason {
	case "quotaExceeded", "dailyLimitExceeded", "rateLimitExceeded":
		return fmt.Errorf("%s: %w", resource, ErrQuotaExceeded)
	case "playlistNotFound", "channelNotFound", "notFound":
		return fmt.Errorf("%s: %w", resource, ErrChannelNotFound)
	}
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", resource, ErrChannelNotFound)
	}
	if payload.Error.Message != "" {
		return fmt.Errorf("%s: status %d: %s", resource, resp.StatusCode, payload.Error.Message)
	}
	return fmt.Errorf("%s: status %d", resource, resp.StatusCode)
}

// ListSubscriptions pages through the identity's subscription list
// until the API reports no further pages.
func (y *YouTube) ListSubscriptions(ctx context.Context) ([]Channel, error) {
	var channels []Channel
	pageToken := ""

	for {
		params := url.Values{}
		params.Set("part", "snippet")
		params.Set("mine", "true")
		params.Set("maxResults", "50")
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}

		var page ytSubscriptionsResponse
		if err := y.get(ctx, "subscriptions", params, &page); err != nil {
			return nil, fmt.Errorf("list subscriptions: %w", err)
		}

		for _, item := range page.Items {
			channels = append(channels, Channel{
				ExternalID:  item.Snippet.ResourceID.ChannelID,
				DisplayName: item.Snippet.Title,
				Thumbnail:   item.Snippet.Thumbnails.Default.URL,
			})
		}

		pageToken = page.NextPageToken
		if pageToken == "" {
			break
		}
	}

	return channels, nil
}

// ListRecentVideos resolves the channel's uploads playlist and returns
// up to limit of its most recent entries with full metadata.
func (y *YouTube) ListRecentVideos(ctx context.Context, channelID string, limit int) ([]Video, error) {
	params := url.Values{}
	params.Set("part", "contentDetails")
	params.Set("id", channelID)

	var chans ytChannelsResponse
	if err := y.get(ctx, "channels", params, &chans); err != nil {
		return nil, fmt.Errorf("channel %s: %w", channelID, err)
	}
	if len(chans.Items) == 0 {
		return nil, fmt.Errorf("channel %s: %w", channelID, ErrChannelNotFound)
	}
	uploads := chans.Items[0].ContentDetails.RelatedPlaylists.Uploads

	params = url.Values{}
	params.Set("part", "contentDetails")
	params.Set("playlistId", uploads)
	params.Set("maxResults", strconv.Itoa(limit))

	var playlist ytPlaylistItemsResponse
	if err := y.get(ctx, "playlistItems", params, &playlist); err != nil {
		return nil, fmt.Errorf("uploads for channel %s: %w", channelID, err)
	}

	var videoIDs []string
	for _, item := range playlist.Items {
		if item.ContentDetails.VideoID != "" {
			videoIDs = append(videoIDs, item.ContentDetails.VideoID)
		}
	}
	if len(videoIDs) == 0 {
		return nil, nil
	}

	params = url.Values{}
	params.Set("part", "snippet,contentDetails,statistics")
	params.Set("id", strings.Join(videoIDs, ","))

	var details ytVideosResponse
	if err := y.get(ctx, "videos", params, &details); err != nil {
		return nil, fmt.Errorf("video details for channel %s: %w", channelID, err)
	}

	var videos []Video
	for _, item := range details.Items {
		published, err := time.Parse(time.RFC3339, item.Snippet.PublishedAt)
		if err != nil {
			return nil, &ParseError{Field: "publishedAt", Value: item.Snippet.PublishedAt, Err: err}
		}

		viewCount := int64(0)
		if item.Statistics.ViewCount != "" {
			viewCount, err = strconv.ParseInt(item.Statistics.ViewCount, 10, 64)
			if err != nil {
				return nil, &ParseError{Field: "viewCount", Value: item.Statistics.ViewCount, Err: err}
			}
		}

		videos = append(videos, Video{
			ExternalID:  item.ID,
			Title:       item.Snippet.Title,
			Description: item.Snippet.Description,
			Thumbnail:   item.Snippet.Thumbnails.Medium.URL,
			PublishedAt: published,
			Duration:    formatISODuration(item.ContentDetails.Duration),
			ViewCount:   viewCount,
		})
	}

	return videos, nil
}

// formatISODuration renders an ISO-8601 duration as "H:MM:SS" or
// "M:SS". Zero, missing, or unparseable durations mean live or
// premiere content and map to the live sentinel.
func formatISODuration(iso string) string {
	if iso == "" || iso == "PT0S" {
		return DurationLive
	}
	seconds, err := parseISODuration(iso)
	if err != nil || seconds == 0 {
		return DurationLive
	}
	return formatDuration(seconds)
}

func parseISODuration(s string) (int, error) {
	orig := s
	if !strings.HasPrefix(s, "P") {
		return 0, fmt.Errorf("invalid duration %q", orig)
	}
	s = s[1:]

	total := 0
	inTime := false
	num := ""
	for _, r := range s {
		switch {
		case r == 'T':
			inTime = true
		case r >= '0' && r <= '9':
			num += string(r)
		default:
			if num == "" {
				return 0, fmt.Errorf("invalid duration %q", orig)
			}
			n, err := strconv.Atoi(num)
			if err != nil {
				return 0, fmt.Errorf("invalid duration %q", orig)
			}
			num = ""

			switch r {
			case 'W':
				total += n * 7 * 86400
			case 'D':
				total += n * 86400
			case 'H':
				total += n * 3600
			case 'M':
				if !inTime {
					return 0, fmt.Errorf("invalid duration %q: month designator unsupported", orig)
				}
				total += n * 60
			case 'S':
				total += n
			default:
				return 0, fmt.Errorf("invalid duration %q", orig)
			}
		}
	}
	if num != "" {
		return 0, fmt.Errorf("invalid duration %q", orig)
	}
	return total, nil
}

func formatDuration(seconds int) string {
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%d:%02d", minutes, secs)
}
