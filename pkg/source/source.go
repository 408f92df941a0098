// Package source talks to the upstream video platform. Adapters return
// classifiable errors so callers never have to inspect error text.
package source

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DurationLive is the stored duration for live or premiere content
// that has no fixed length.
const DurationLive = "LIVE"

// Channel is one entry of an identity's external subscription list.
type Channel struct {
	ExternalID  string
	DisplayName string
	Thumbnail   string
}

// Video is upstream metadata for one upload.
type Video struct {
	ExternalID  string
	Title       string
	Description string
	Thumbnail   string
	PublishedAt time.Time
	Duration    string // "H:MM:SS", "M:SS", or DurationLive
	ViewCount   int64
}

// Adapter lists subscriptions and videos for one identity. An adapter
// instance is already bound to that identity's credentials; both calls
// page through upstream results internally.
type Adapter interface {
	ListSubscriptions(ctx context.Context) ([]Channel, error)
	ListRecentVideos(ctx context.Context, channelID string, limit int) ([]Video, error)
}

// Sentinel errors for the closed failure taxonomy.
var (
	// ErrChannelNotFound means the channel has no retrievable
	// content listing upstream.
	ErrChannelNotFound = errors.New("source: channel not found")
	// ErrQuotaExceeded means the upstream usage limit was hit.
	ErrQuotaExceeded = errors.New("source: quota exceeded")
)

// ParseError reports upstream metadata that could not be interpreted.
type ParseError struct {
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("source: parse %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ErrorType is the stored classification of a sync failure.
type ErrorType string

const (
	ErrorNotFound ErrorType = "PLAYLIST_NOT_FOUND"
	ErrorParse    ErrorType = "METADATA_PARSE_ERROR"
	ErrorQuota    ErrorType = "QUOTA_EXCEEDED"
	ErrorUnknown  ErrorType = "UNKNOWN"
)

// Classify maps an adapter error onto the closed taxonomy.
func Classify(err error) ErrorType {
	var parseErr *ParseError
	switch {
	case errors.Is(err, ErrChannelNotFound):
		return ErrorNotFound
	case errors.Is(err, ErrQuotaExceeded):
		return ErrorQuota
	case errors.As(err, &parseErr):
		return ErrorParse
	default:
		return ErrorUnknown
	}
}
