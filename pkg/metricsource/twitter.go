package metricsource

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"creator-missions/pkg/config"
	"creator-missions/pkg/errutil"
	"creator-missions/pkg/metrics"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const sourceName = "twitter"

type tweetMetrics struct {
	RetweetCount    int64 `json:"retweet_count"`
	ReplyCount      int64 `json:"reply_count"`
	LikeCount       int64 `json:"like_count"`
	QuoteCount      int64 `json:"quote_count"`
	ImpressionCount int64 `json:"impression_count"`
}

func (t tweetMetrics) public() PublicMetrics {
	return PublicMetrics{
		Impressions: t.ImpressionCount,
		Likes:       t.LikeCount,
		Replies:     t.ReplyCount,
		Quotes:      t.QuoteCount,
		Reposts:     t.RetweetCount,
	}
}

type tweet struct {
	ID            string        `json:"id"`
	AuthorID      string        `json:"author_id"`
	CreatedAt     time.Time     `json:"created_at"`
	PublicMetrics *tweetMetrics `json:"public_metrics"`
}

type apiError struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Type   string `json:"type"`
}

type lookupResponse struct {
	Data   *tweet     `json:"data"`
	Errors []apiError `json:"errors"`
}

type searchResponse struct {
	Data []tweet `json:"data"`
	Meta struct {
		ResultCount int `json:"result_count"`
	} `json:"meta"`
}

// TwitterClient reads public metrics from the X/Twitter v2 API with an
// app-only bearer token.
type TwitterClient struct {
	http    *resty.Client
	limiter *rate.Limiter
}

func NewTwitterClient(cfg *config.Config) *TwitterClient {
	rps := cfg.Twitter.RPS
	if rps <= 0 {
		rps = 1
	}

	client := resty.New().
		SetBaseURL(cfg.Twitter.BaseURL).
		SetAuthToken(cfg.Twitter.BearerToken).
		SetTimeout(cfg.Twitter.Timeout).
		SetHeader("Accept", "application/json")

	return &TwitterClient{
		http:    client,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

func (c *TwitterClient) FetchPublicMetrics(ctx context.Context, contentID string) (*PublicMetrics, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errutil.Transient("rate limiter wait", err)
	}

	var out lookupResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", contentID).
		SetQueryParam("tweet.fields", "public_metrics").
		SetResult(&out).
		Get("/2/tweets/{id}")
	if err != nil {
		metrics.MetricsFetchErrors.WithLabelValues(sourceName).Inc()
		return nil, errutil.Transient("fetch tweet metrics", err)
	}
	if err := classify(resp, "fetch tweet metrics"); err != nil {
		metrics.MetricsFetchErrors.WithLabelValues(sourceName).Inc()
		return nil, err
	}

	if out.Data == nil || out.Data.PublicMetrics == nil {
		metrics.MetricsFetchErrors.WithLabelValues(sourceName).Inc()
		detail := "no public_metrics in response"
		if len(out.Errors) > 0 {
			detail = out.Errors[0].Detail
		}
		return nil, errutil.NotFound("tweet metrics unavailable", nil,
			errutil.WithDetails(errutil.Detail{Field: contentID, Message: detail}))
	}

	m := out.Data.PublicMetrics.public()
	return &m, nil
}

func (c *TwitterClient) SearchRecent(ctx context.Context, query string, since time.Time, limit int) ([]Post, error) {
	if limit < 10 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errutil.Transient("rate limiter wait", err)
	}

	params := map[string]string{
		"query":        query,
		"tweet.fields": "created_at,public_metrics,author_id",
		"max_results":  strconv.Itoa(limit),
	}
	if !since.IsZero() {
		params["start_time"] = since.UTC().Format(time.RFC3339)
	}

	var out searchResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(&out).
		Get("/2/tweets/search/recent")
	if err != nil {
		return nil, errutil.Transient("search recent tweets", err)
	}
	if err := classify(resp, "search recent tweets"); err != nil {
		return nil, err
	}

	posts := make([]Post, 0, len(out.Data))
	for _, t := range out.Data {
		p := Post{ID: t.ID, AuthorID: t.AuthorID, CreatedAt: t.CreatedAt}
		if t.PublicMetrics != nil {
			p.Metrics = t.PublicMetrics.public()
		}
		posts = append(posts, p)
	}

	zap.L().Debug("search recent tweets",
		zap.String("query", query),
		zap.Int("result_count", out.Meta.ResultCount),
	)
	return posts, nil
}

func classify(resp *resty.Response, op string) error {
	if !resp.IsError() {
		return nil
	}

	cause := fmt.Errorf("http status %d: %s", resp.StatusCode(), resp.String())
	switch code := resp.StatusCode(); {
	case code == http.StatusNotFound:
		return errutil.NotFound(op, cause)
	case code == http.StatusTooManyRequests:
		return errutil.TooManyRequest(op, cause)
	case code >= 500:
		return errutil.Transient(op, cause)
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return errutil.Unauthorized(op, cause)
	default:
		return errutil.BadRequest(op, cause)
	}
}
