// Package twitter wraps the X API v2 publish/search surface.
package twitter

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/gopost/gopost/internal/logger"
)

const (
	defaultTimeout       = 30 * time.Second
	maxImageDownloadSize = 5 << 20 // platform media cap for images
)

// Client is an X API v2 client (tweets, recent search) with the v1.1 media
// upload endpoint.
type Client struct {
	apiBase    string
	uploadBase string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     logger.Logger
}

// Config holds client settings.
type Config struct {
	APIBaseURL    string
	UploadBaseURL string
	BearerToken   string
	RateLimitRPS  float64
	Timeout       time.Duration
}

// NewClient creates a client authenticating with an OAuth2 user-context
// bearer token.
func NewClient(cfg Config, log logger.Logger) (*Client, error) {
	if cfg.BearerToken == "" {
		return nil, fmt.Errorf("twitter bearer token is required")
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "https://api.twitter.com"
	}
	if cfg.UploadBaseURL == "" {
		cfg.UploadBaseURL = "https://upload.twitter.com"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 1
	}

	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.BearerToken})
	httpClient := oauth2.NewClient(context.Background(), src)
	httpClient.Timeout = cfg.Timeout

	return &Client{
		apiBase:    cfg.APIBaseURL,
		uploadBase: cfg.UploadBaseURL,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), 1),
		logger:     log,
	}, nil
}

type createTweetRequest struct {
	Text  string `json:"text"`
	Media *struct {
		MediaIDs []string `json:"media_ids"`
	} `json:"media,omitempty"`
	Reply *struct {
		InReplyToTweetID string `json:"in_reply_to_tweet_id"`
	} `json:"reply,omitempty"`
}

type createTweetResponse struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
}

// CreateTweet publishes a single tweet. mediaID and replyTo are optional.
func (c *Client) CreateTweet(ctx context.Context, text, mediaID, replyTo string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter wait: %w", err)
	}

	reqBody := createTweetRequest{Text: text}
	if mediaID != "" {
		reqBody.Media = &struct {
			MediaIDs []string `json:"media_ids"`
		}{MediaIDs: []string{mediaID}}
	}
	if replyTo != "" {
		reqBody.Reply = &struct {
			InReplyToTweetID string `json:"in_reply_to_tweet_id"`
		}{InReplyToTweetID: replyTo}
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal tweet request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.apiBase+"/2/tweets", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create tweet request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("post tweet: %w", err)
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp); err != nil {
		return "", err
	}

	var result createTweetResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode tweet response: %w", err)
	}
	if result.Data.ID == "" {
		return "", fmt.Errorf("tweet response missing id")
	}

	c.logger.Debug("tweet created",
		logger.String("tweet_id", result.Data.ID),
		logger.Bool("has_media", mediaID != ""),
		logger.Bool("is_reply", replyTo != ""),
	)
	return result.Data.ID, nil
}

type uploadMediaResponse struct {
	MediaIDString string `json:"media_id_string"`
}

// UploadMedia uploads image bytes to the v1.1 media endpoint and returns the
// media handle.
func (c *Client) UploadMedia(ctx context.Context, data []byte) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter wait: %w", err)
	}

	form := url.Values{}
	form.Set("media_data", base64.StdEncoding.EncodeToString(data))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.uploadBase+"/1.1/media/upload.json", bytes.NewBufferString(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("%w: status %d", ErrUploadFailed, resp.StatusCode)
	}

	var result uploadMediaResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("%w: decode response: %w", ErrUploadFailed, err)
	}
	if result.MediaIDString == "" {
		return "", fmt.Errorf("%w: response missing media id", ErrUploadFailed)
	}
	return result.MediaIDString, nil
}

// Tweet is a recent-search match.
type Tweet struct {
	ID        string
	Text      string
	Likes     int
	Retweets  int
	CreatedAt time.Time
}

// EngagementScore is the fixed linear ranking formula for search matches.
func (t Tweet) EngagementScore() int {
	return t.Likes + 2*t.Retweets
}

// URL returns the canonical web URL for the tweet.
func (t Tweet) URL() string {
	return "https://twitter.com/i/web/status/" + t.ID
}

type searchResponse struct {
	Data []struct {
		ID            string    `json:"id"`
		Text          string    `json:"text"`
		CreatedAt     time.Time `json:"created_at"`
		PublicMetrics struct {
			LikeCount    int `json:"like_count"`
			RetweetCount int `json:"retweet_count"`
		} `json:"public_metrics"`
	} `json:"data"`
}

// SearchRecent queries the recent-search endpoint.
func (c *Client) SearchRecent(ctx context.Context, query string, maxResults int) ([]Tweet, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("max_results", strconv.Itoa(maxResults))
	params.Set("tweet.fields", "created_at,public_metrics")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.apiBase+"/2/tweets/search/recent?"+params.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search tweets: %w", err)
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp); err != nil {
		return nil, err
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	tweets := make([]Tweet, 0, len(result.Data))
	for _, d := range result.Data {
		tweets = append(tweets, Tweet{
			ID:        d.ID,
			Text:      d.Text,
			Likes:     d.PublicMetrics.LikeCount,
			Retweets:  d.PublicMetrics.RetweetCount,
			CreatedAt: d.CreatedAt,
		})
	}
	return tweets, nil
}

// FetchImage downloads image bytes for media upload.
func (c *Client) FetchImage(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create image request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch image: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageDownloadSize))
	if err != nil {
		return nil, fmt.Errorf("read image body: %w", err)
	}
	return data, nil
}

// checkStatus converts HTTP failures into typed error kinds. Rate-limit and
// forbidden classes drive different retry policies upstream.
func (c *Client) checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d", ErrRateLimited, resp.StatusCode)
	case resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", ErrForbidden, resp.StatusCode)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("twitter api error: status %d: %s", resp.StatusCode, string(body))
	}
}
