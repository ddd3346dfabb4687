package metricsource

import (
	"context"
	"time"
)

// PublicMetrics are the public engagement counters of one content item.
type PublicMetrics struct {
	Impressions int64 `json:"impressions"`
	Likes       int64 `json:"like_count"`
	Replies     int64 `json:"reply_count"`
	Quotes      int64 `json:"quote_count"`
	Reposts     int64 `json:"retweet_count"`
}

// Engagements counts interactions; impressions are not engagement.
func (m PublicMetrics) Engagements() int64 {
	return m.Likes + m.Replies + m.Quotes + m.Reposts
}

func (m PublicMetrics) Add(o PublicMetrics) PublicMetrics {
	return PublicMetrics{
		Impressions: m.Impressions + o.Impressions,
		Likes:       m.Likes + o.Likes,
		Replies:     m.Replies + o.Replies,
		Quotes:      m.Quotes + o.Quotes,
		Reposts:     m.Reposts + o.Reposts,
	}
}

type Post struct {
	ID        string
	AuthorID  string
	CreatedAt time.Time
	Metrics   PublicMetrics
}

// Source fetches counters for a single content id.
type Source interface {
	FetchPublicMetrics(ctx context.Context, contentID string) (*PublicMetrics, error)
}

// Searcher finds recent posts matching a query such as "#hashtag".
type Searcher interface {
	SearchRecent(ctx context.Context, query string, since time.Time, limit int) ([]Post, error)
}
