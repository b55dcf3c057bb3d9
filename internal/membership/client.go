// Package membership answers whether an email address belongs to a current
// member by asking the signup service.
package membership

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrLookupFailed is returned when the signup service cannot give a
// definitive answer.
var ErrLookupFailed = errors.New("membership: lookup failed")

const cacheKeyPrefix = "membership:"

// Client calls the signup service user API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger

	redis    *redis.Client
	cacheTTL time.Duration
	memory   *memoryCache
}

type cachedAnswer struct {
	Member bool `json:"member"`
}

// NewClient constructs a client for the service at baseURL. An empty baseURL
// disables lookups and treats every address as a member, which is how
// development and test deployments run.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// UseRedisCache configures Redis caching of definitive answers.
func (c *Client) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

// UseMemoryCache configures an in-process cache, used when Redis is not
// available.
func (c *Client) UseMemoryCache(ttl time.Duration, maxEntries int, now func() time.Time) {
	c.memory = newMemoryCache(ttl, maxEntries, now)
}

// IsMember reports whether email belongs to a member. A 422 response means
// the address is unknown; any other non-200 outcome yields ErrLookupFailed.
func (c *Client) IsMember(ctx context.Context, email string) (bool, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return false, nil
	}
	if c.baseURL == "" {
		return true, nil
	}

	key := cacheKeyPrefix + strings.ToLower(email)
	var cached cachedAnswer
	if c.readCache(ctx, key, &cached) {
		return cached.Member, nil
	}
	if member, ok := c.memory.Get(key); ok {
		return member, nil
	}

	member, err := c.fetch(ctx, email)
	if err != nil {
		return false, err
	}
	c.writeCache(ctx, key, cachedAnswer{Member: member})
	c.memory.Store(key, member)
	return member, nil
}

func (c *Client) fetch(ctx context.Context, email string) (bool, error) {
	query := url.Values{}
	query.Set("email", email)
	query.Set("properties[]", "")
	endpoint := fmt.Sprintf("%s/api/v1/user?%s", c.baseURL, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusUnprocessableEntity:
		return false, nil
	default:
		c.logger.ErrorContext(ctx, "failed to fetch user data", slog.Int("status", resp.StatusCode))
		return false, fmt.Errorf("%w: http %d", ErrLookupFailed, resp.StatusCode)
	}
}

func (c *Client) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false
	}
	return true
}

func (c *Client) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, key, data, c.cacheTTL).Err(); err != nil {
		c.logger.WarnContext(ctx, "membership cache write failed", slog.Any("error", err))
	}
}
