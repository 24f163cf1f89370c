package discogs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://api.discogs.com"
	acceptHeader   = "application/vnd.discogs.v2.discogs+json"
	perPage        = 100
	requestTimeout = 10 * time.Second

	// The public API allows 60 requests per minute; on 429 we wait out
	// the window and retry the same page.
	rateLimitWait = 60 * time.Second
	pageDelay     = 1 * time.Second
)

// Config configures a marketplace client.
type Config struct {
	Token     string
	Seller    string
	UserAgent string
	// BaseURL overrides the API host, for tests.
	BaseURL string
	// Sort and SortOrder override the inventory ordering. Defaults are
	// "listed"/"desc"; the CSV exporter uses "price"/"asc".
	Sort      string
	SortOrder string
}

// Client is a Discogs marketplace API client.
type Client struct {
	token     string
	seller    string
	userAgent string
	baseURL   string
	sort      string
	sortOrder string
	client    *http.Client
	logger    *zap.Logger

	rateLimitWait time.Duration
	pageDelay     time.Duration
}

// Pagination describes the page window of an inventory response.
type Pagination struct {
	Page    int `json:"page"`
	Pages   int `json:"pages"`
	PerPage int `json:"per_page"`
	Items   int `json:"items"`
}

// Page is one page of a seller's inventory.
type Page struct {
	Pagination Pagination   `json:"pagination"`
	Listings   []RawListing `json:"listings"`
}

// NewClient creates a new marketplace client
func NewClient(cfg Config, logger *zap.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	sort := cfg.Sort
	if sort == "" {
		sort = "listed"
	}
	order := cfg.SortOrder
	if order == "" {
		order = "desc"
	}
	return &Client{
		token:         cfg.Token,
		seller:        cfg.Seller,
		userAgent:     cfg.UserAgent,
		baseURL:       baseURL,
		sort:          sort,
		sortOrder:     order,
		client:        &http.Client{Timeout: requestTimeout},
		logger:        logger,
		rateLimitWait: rateLimitWait,
		pageDelay:     pageDelay,
	}
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", acceptHeader)
	if c.token != "" {
		req.Header.Set("Authorization", "Discogs token="+c.token)
	}
}

// FetchPage fetches one inventory page for the configured seller. A 429
// waits out the rate-limit window and retries the same page; 401 and 404
// fail immediately.
func (c *Client) FetchPage(ctx context.Context, page int) (*Page, error) {
	params := url.Values{}
	params.Set("status", "For Sale")
	params.Set("per_page", fmt.Sprintf("%d", perPage))
	params.Set("page", fmt.Sprintf("%d", page))
	params.Set("sort", c.sort)
	params.Set("sort_order", c.sortOrder)

	endpoint := fmt.Sprintf("%s/users/%s/inventory?%s", c.baseURL, url.PathEscape(c.seller), params.Encode())

	for {
		req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		c.setHeaders(req)

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetching inventory page %d: %w", page, err)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("reading inventory page %d: %w", page, err)
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			c.logger.Warn("discogs rate limit hit, waiting before retry",
				zap.Int("page", page),
				zap.Duration("wait", c.rateLimitWait))
			if err := sleepCtx(ctx, c.rateLimitWait); err != nil {
				return nil, err
			}
			continue
		case resp.StatusCode == http.StatusUnauthorized:
			return nil, fmt.Errorf("discogs authentication failed (401): check DISCOGS_TOKEN")
		case resp.StatusCode == http.StatusNotFound:
			return nil, fmt.Errorf("discogs seller %q not found (404)", c.seller)
		case resp.StatusCode != http.StatusOK:
			return nil, fmt.Errorf("discogs API error (%d): %s", resp.StatusCode, truncate(string(body), 200))
		}

		var p Page
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, fmt.Errorf("decoding inventory page %d: %w", page, err)
		}

		// Courtesy pause between successful requests.
		if err := sleepCtx(ctx, c.pageDelay); err != nil {
			return nil, err
		}
		return &p, nil
	}
}

// FetchAllListings walks the seller's full inventory. A failure on the
// first page is an error; a failure mid-pagination returns the listings
// collected so far.
func (c *Client) FetchAllListings(ctx context.Context) ([]RawListing, error) {
	return c.FetchListings(ctx, 0)
}

// FetchListings walks inventory pages up to maxPages (0 = no cap)
func (c *Client) FetchListings(ctx context.Context, maxPages int) ([]RawListing, error) {
	var all []RawListing
	page := 1

	for {
		p, err := c.FetchPage(ctx, page)
		if err != nil {
			if page == 1 {
				return nil, err
			}
			c.logger.Warn("inventory pagination stopped early, keeping partial result",
				zap.Int("page", page),
				zap.Int("listings", len(all)),
				zap.Error(err))
			return all, nil
		}

		if len(p.Listings) == 0 {
			break
		}
		all = append(all, p.Listings...)

		c.logger.Debug("fetched inventory page",
			zap.Int("page", page),
			zap.Int("of", p.Pagination.Pages),
			zap.Int("listings", len(p.Listings)))

		if page >= p.Pagination.Pages {
			break
		}
		if maxPages > 0 && page >= maxPages {
			break
		}
		page++
	}

	return all, nil
}

type releaseResponse struct {
	Videos []struct {
		URI         string `json:"uri"`
		Title       string `json:"title"`
		Description string `json:"description"`
		Duration    int64  `json:"duration"`
		Embed       bool   `json:"embed"`
	} `json:"videos"`
}

// Video is a YouTube video attached to a release.
type Video struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Duration    int64  `json:"duration"`
	Embed       bool   `json:"embed"`
	URI         string `json:"uri"`
	YouTubeID   string `json:"youtube_id"`
	Thumbnail   string `json:"thumbnail"`
}

// FetchReleaseVideos returns the YouTube videos attached to a release.
// Videos are best-effort page decoration: every failure path returns an
// empty slice rather than an error.
func (c *Client) FetchReleaseVideos(ctx context.Context, releaseID string) []Video {
	if releaseID == "" {
		return []Video{}
	}

	endpoint := fmt.Sprintf("%s/releases/%s", c.baseURL, url.PathEscape(releaseID))
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return []Video{}
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("release video fetch failed", zap.String("release_id", releaseID), zap.Error(err))
		return []Video{}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Debug("release video fetch returned non-200",
			zap.String("release_id", releaseID),
			zap.Int("status", resp.StatusCode))
		return []Video{}
	}

	var release releaseResponse
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return []Video{}
	}

	videos := make([]Video, 0, len(release.Videos))
	for _, v := range release.Videos {
		id, ok := youtubeID(v.URI)
		if !ok {
			continue
		}
		videos = append(videos, Video{
			Title:       v.Title,
			Description: v.Description,
			Duration:    v.Duration,
			Embed:       v.Embed,
			URI:         v.URI,
			YouTubeID:   id,
			Thumbnail:   fmt.Sprintf("https://img.youtube.com/vi/%s/maxresdefault.jpg", id),
		})
	}
	return videos
}

// youtubeID extracts the video ID from a youtube watch URL
func youtubeID(uri string) (string, bool) {
	const marker = "youtube.com/watch?v="
	idx := strings.Index(uri, marker)
	if idx < 0 {
		return "", false
	}
	id := uri[idx+len(marker):]
	if amp := strings.Index(id, "&"); amp >= 0 {
		id = id[:amp]
	}
	if id == "" {
		return "", false
	}
	return id, true
}

// MaskToken renders a token safe for logs
func MaskToken(token string) string {
	if token == "" {
		return "(not set)"
	}
	if len(token) > 20 {
		return token[:15] + "..." + token[len(token)-5:]
	}
	return "***"
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
