package stats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/brettboylen/reddit-wrapped/api"
	"github.com/brettboylen/reddit-wrapped/metrics"
	"github.com/brettboylen/reddit-wrapped/models"
)

const (
	defaultLimit    = 500
	defaultMaxLimit = 1000
	defaultCacheTTL = time.Hour

	cacheKeyPrefix = "wrapped:"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,20}$`)

// UserDataFetcher fetches everything needed to analyze a user
type UserDataFetcher interface {
	FetchUserData(ctx context.Context, username string, limit int) (*api.UserData, error)
}

// ResultCache stores serialized analysis results with an expiry
type ResultCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CollectorConfig holds the request defaults applied by the collector
type CollectorConfig struct {
	CacheTTL     time.Duration
	DefaultLimit int
	MaxLimit     int
}

// Collector validates analysis requests, fetches user data and caches results
type Collector struct {
	fetcher      UserDataFetcher
	cache        ResultCache
	ttl          time.Duration
	defaultLimit int
	maxLimit     int
	log          *logrus.Logger
	group        singleflight.Group
	now          func() time.Time
}

// NewCollector creates a new collector; cache may be nil to disable caching
func NewCollector(fetcher UserDataFetcher, cache ResultCache, cfg CollectorConfig, log *logrus.Logger) *Collector {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = defaultLimit
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = defaultMaxLimit
	}
	if cfg.DefaultLimit > cfg.MaxLimit {
		cfg.DefaultLimit = cfg.MaxLimit
	}

	return &Collector{
		fetcher:      fetcher,
		cache:        cache,
		ttl:          cfg.CacheTTL,
		defaultLimit: cfg.DefaultLimit,
		maxLimit:     cfg.MaxLimit,
		log:          log,
		now:          time.Now,
	}
}

// WithClock replaces the clock used for account ages and timestamps
func (c *Collector) WithClock(now func() time.Time) *Collector {
	c.now = now
	return c
}

// Analyze returns the wrapped stats for the requested user, from cache when possible
func (c *Collector) Analyze(ctx context.Context, req models.AnalyzeRequest) (*models.AnalyzeResponse, error) {
	start := time.Now()

	resp, outcome, err := c.analyze(ctx, req)

	metrics.AnalysesTotal.WithLabelValues(outcome).Inc()
	metrics.AnalysisDuration.Observe(time.Since(start).Seconds())

	return resp, err
}

func (c *Collector) analyze(ctx context.Context, req models.AnalyzeRequest) (*models.AnalyzeResponse, string, error) {
	if req.Username == "" {
		return nil, outcomeFor(models.ErrInvalidRequest), newError(models.ErrInvalidRequest, "Username is required", nil)
	}

	username, err := CleanUsername(req.Username)
	if err != nil {
		return nil, outcomeFor(models.ErrInvalidUsername), err
	}

	limit, err := c.resolveLimit(req.Limit)
	if err != nil {
		return nil, outcomeFor(models.ErrInvalidRequest), err
	}

	key := CacheKey(username)
	if cached := c.lookup(ctx, key); cached != nil {
		// the key ignores case; report the name as this caller spelled it
		cached.Username = username
		c.log.WithField("username", username).Info("Cache hit for user")
		return cached, "cached", nil
	}

	// concurrent requests for the same user share one fetch; the work runs
	// detached so one caller giving up does not fail the others
	ch := c.group.DoChan(key, func() (interface{}, error) {
		return c.compute(context.WithoutCancel(ctx), key, username, limit)
	})

	select {
	case <-ctx.Done():
		return nil, outcomeFor(models.ErrInternal), newError(models.ErrInternal, "Request cancelled", ctx.Err())
	case res := <-ch:
		if res.Shared {
			c.log.WithField("username", username).Debug("Shared in-flight analysis")
		}
		if res.Err != nil {
			var statsErr *Error
			if errors.As(res.Err, &statsErr) {
				return nil, outcomeFor(statsErr.Code), res.Err
			}
			return nil, outcomeFor(models.ErrInternal), res.Err
		}
		return res.Val.(*models.AnalyzeResponse), "computed", nil
	}
}

// compute fetches the user's data, analyzes it and stores the result
func (c *Collector) compute(ctx context.Context, key, username string, limit int) (*models.AnalyzeResponse, error) {
	c.log.WithFields(logrus.Fields{
		"username": username,
		"limit":    limit,
	}).Info("Fetching data for user")

	data, err := c.fetcher.FetchUserData(ctx, username, limit)
	if err != nil {
		return nil, mapFetchError(err)
	}

	if len(data.Posts) == 0 && len(data.Comments) == 0 {
		c.log.WithField("username", username).Warn("No data available for user")
		return nil, newError(models.ErrNoDataAvailable,
			"No public posts or comments found for this user. The profile may be private, suspended, or have no activity.", nil)
	}

	now := c.now()
	resp := &models.AnalyzeResponse{
		Type:        models.ResponseTypeAnalyze,
		Username:    username,
		Stats:       AnalyzeAt(data.Profile, data.Posts, data.Comments, now),
		GeneratedAt: now.UnixMilli(),
	}

	c.store(ctx, key, resp)

	c.log.WithFields(logrus.Fields{
		"username":      username,
		"post_count":    resp.Stats.TotalPosts,
		"comment_count": resp.Stats.TotalComments,
		"personality":   resp.Stats.Insights.Personality,
	}).Info("Analysis complete")

	return resp, nil
}

// lookup returns the cached response for key, or nil on a miss or cache failure
func (c *Collector) lookup(ctx context.Context, key string) *models.AnalyzeResponse {
	if c.cache == nil {
		return nil
	}

	data, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.log.WithError(err).WithField("key", key).Warn("Cache lookup failed")
		metrics.CacheLookupsTotal.WithLabelValues("error").Inc()
		return nil
	}
	if !ok {
		metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()
		return nil
	}

	var resp models.AnalyzeResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("Discarding unreadable cache entry")
		metrics.CacheLookupsTotal.WithLabelValues("error").Inc()
		return nil
	}

	metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()
	return &resp
}

// store caches the response; failures are logged and otherwise ignored
func (c *Collector) store(ctx context.Context, key string, resp *models.AnalyzeResponse) {
	if c.cache == nil {
		return
	}

	data, err := json.Marshal(resp)
	if err != nil {
		c.log.WithError(err).WithField("key", key).Error("Failed to encode result for cache")
		return
	}

	if err := c.cache.Set(ctx, key, data, c.ttl); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("Failed to cache result")
	}
}

// resolveLimit applies the default and maximum to a requested limit
func (c *Collector) resolveLimit(limit int) (int, error) {
	switch {
	case limit < 0:
		return 0, newError(models.ErrInvalidRequest, fmt.Sprintf("Invalid limit %d", limit), nil)
	case limit == 0:
		return c.defaultLimit, nil
	case limit > c.maxLimit:
		return c.maxLimit, nil
	default:
		return limit, nil
	}
}

// CleanUsername strips a leading "u/" or "/u/" and checks the result is a valid Reddit username
func CleanUsername(raw string) (string, error) {
	username := strings.TrimSpace(raw)
	for _, prefix := range []string{"/u/", "u/"} {
		if strings.HasPrefix(username, prefix) {
			username = strings.TrimPrefix(username, prefix)
			break
		}
	}
	username = strings.TrimSpace(username)

	if username == "" {
		return "", newError(models.ErrInvalidUsername, "Invalid username", nil)
	}
	if !usernamePattern.MatchString(username) {
		return "", newError(models.ErrInvalidUsername, fmt.Sprintf("Invalid username %q", username), nil)
	}
	return username, nil
}

// CacheKey returns the result cache key for a cleaned username
func CacheKey(username string) string {
	return cacheKeyPrefix + strings.ToLower(username)
}

func mapFetchError(err error) *Error {
	var apiErr *api.RedditAPIError
	if errors.As(err, &apiErr) && apiErr.Code == api.CodeUserNotFound {
		return newError(models.ErrUserNotFound, apiErr.Message, err)
	}
	return newError(models.ErrInternal, "Failed to analyze user profile", err)
}

func outcomeFor(code models.ErrorCode) string {
	return strings.ToLower(string(code))
}
