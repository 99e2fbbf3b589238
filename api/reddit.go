package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/brettboylen/reddit-wrapped/metrics"
	"github.com/brettboylen/reddit-wrapped/models"
)

const (
	defaultBaseURL = "https://oauth.reddit.com"
	defaultAuthURL = "https://www.reddit.com/api/v1/access_token"
	pageSize       = 100 // max number of items per listing request

	// reddit allocates requests per rolling 10-minute period (600 seconds)
	allocationPeriod = 600
)

// Error codes carried by RedditAPIError
const (
	CodeUserNotFound = "USER_NOT_FOUND"
	CodeUpstream     = "UPSTREAM_ERROR"
	CodeRateLimited  = "RATE_LIMITED"
)

// RedditAPIError is returned when Reddit rejects a request
type RedditAPIError struct {
	Code       string
	Message    string
	StatusCode int
}

func (e *RedditAPIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
	}
	return e.Message
}

// TokenBucket implements a rate limiter using the token bucket algorithm
type TokenBucket struct {
	mutex       sync.Mutex
	capacity    int           // maximum tokens the bucket can hold
	tokens      float64       // current number of tokens
	fillRate    float64       // rate at which tokens are added (tokens per second)
	maxRate     float64       // fill rate ceiling set at construction
	lastRefill  time.Time     // time of last token refill
	waitTimeout time.Duration // max time to wait for a token
}

// NewTokenBucket creates a new token bucket rate limiter
func NewTokenBucket(capacity int, fillRate float64, waitTimeout time.Duration) *TokenBucket {
	return &TokenBucket{
		capacity:    capacity,
		tokens:      1, // lets start with just 1 token to avoid initial burst
		fillRate:    fillRate,
		maxRate:     fillRate,
		lastRefill:  time.Now(),
		waitTimeout: waitTimeout,
	}
}

// Take attempts to take a token from the bucket
// Returns true if successful, false if no token is available
func (tb *TokenBucket) Take() bool {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	tb.refill()

	if tb.tokens >= 1 {
		tb.tokens--
		return true
	}
	return false
}

// refill adds tokens based on elapsed time; caller holds the mutex
func (tb *TokenBucket) refill() {
	now := time.Now()
	elapsed := now.Sub(tb.lastRefill).Seconds()
	tb.lastRefill = now

	tb.tokens += elapsed * tb.fillRate
	if tb.tokens > float64(tb.capacity) {
		tb.tokens = float64(tb.capacity)
	}
}

// Wait blocks until a token is taken, the context is done or waitTimeout passes
func (tb *TokenBucket) Wait(ctx context.Context) error {
	deadline := time.Now().Add(tb.waitTimeout)

	for {
		if tb.Take() {
			return nil
		}

		// calculate the time to wait for the next token
		tb.mutex.Lock()
		timeToWait := time.Duration((1 - tb.tokens) / tb.fillRate * float64(time.Second))
		tb.mutex.Unlock()

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return &RedditAPIError{Code: CodeRateLimited, Message: "timed out waiting for rate limiter"}
		}
		if timeToWait > remaining {
			timeToWait = remaining
		}

		timer := time.NewTimer(timeToWait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Update adapts the fill rate to what is left of the allocation in the
// current period, never exceeding the rate the bucket was created with
func (tb *TokenBucket) Update(used int, reset int, allocation int) {
	if reset <= 0 {
		return
	}

	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	remaining := allocation - used
	if remaining <= 0 {
		// one token by the time the period resets
		tb.fillRate = 1 / float64(reset)
		return
	}

	// use 95% of what is left for a safety buffer
	rate := float64(remaining) / float64(reset) * 0.95
	tb.fillRate = min(rate, tb.maxRate)
}

// FillRate returns the current fill rate in tokens per second
func (tb *TokenBucket) FillRate() float64 {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()
	return tb.fillRate
}

// RedditAPI represents a Reddit API client
type RedditAPI struct {
	clientID            string
	clientSecret        string
	userAgent           string
	baseURL             string
	authURL             string
	httpClient          *http.Client
	accessToken         string
	tokenExpiry         time.Time
	mutex               sync.RWMutex
	authMutex           sync.Mutex
	log                 *logrus.Logger
	rateLimiter         *TokenBucket
	allocation          int
	rateRemainingCached int
	rateResetCached     int
	rateUsedCached      int
	rateHeadersMutex    sync.RWMutex
}

// UserData is everything fetched for a single user
type UserData struct {
	Profile  models.UserProfile
	Posts    []models.Post
	Comments []models.Comment
}

// redditUser represents the Reddit API response structure for /user/{name}/about
type redditUser struct {
	Kind string `json:"kind"`
	Data struct {
		Name         string  `json:"name"`
		CreatedUTC   float64 `json:"created_utc"`
		LinkKarma    int     `json:"link_karma"`
		CommentKarma int     `json:"comment_karma"`
		IsGold       bool    `json:"is_gold"`
		IsMod        bool    `json:"is_mod"`
		Verified     bool    `json:"verified"`
		IsSuspended  bool    `json:"is_suspended"`
	} `json:"data"`
}

// redditPost represents the listing data of a submission (kind t3)
type redditPost struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Subreddit   string  `json:"subreddit"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	CreatedUTC  float64 `json:"created_utc"`
	SelfText    string  `json:"selftext"`
	URL         string  `json:"url"`
	Permalink   string  `json:"permalink"`
}

// redditComment represents the listing data of a comment (kind t1)
type redditComment struct {
	ID         string  `json:"id"`
	Body       string  `json:"body"`
	Subreddit  string  `json:"subreddit"`
	Score      int     `json:"score"`
	CreatedUTC float64 `json:"created_utc"`
	Permalink  string  `json:"permalink"`
}

// redditListing represents the Reddit API listing response structure
type redditListing[T any] struct {
	Kind string `json:"kind"`
	Data struct {
		After    string `json:"after"`
		Before   string `json:"before"`
		Children []struct {
			Kind string `json:"kind"`
			Data T      `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// NewRedditAPI creates a new Reddit API client
func NewRedditAPI(clientID, clientSecret, userAgent string, maxRequestsPerMinute int, timeout time.Duration, log *logrus.Logger) *RedditAPI {
	// default to 100 requests per minute (real Reddit limit)
	if maxRequestsPerMinute <= 0 {
		maxRequestsPerMinute = 100
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	// our 10 minute allocation
	totalAllocation := maxRequestsPerMinute * 10
	targetRate := float64(totalAllocation) / allocationPeriod * 0.95

	// capacity 1 means no burst; wait at most 30 seconds for a token
	rateLimiter := NewTokenBucket(1, targetRate, 30*time.Second)

	return &RedditAPI{
		clientID:        clientID,
		clientSecret:    clientSecret,
		userAgent:       userAgent,
		baseURL:         defaultBaseURL,
		authURL:         defaultAuthURL,
		httpClient:      &http.Client{Timeout: timeout},
		log:             log,
		rateLimiter:     rateLimiter,
		allocation:      totalAllocation,
		rateResetCached: allocationPeriod,
	}
}

// WithEndpoints points the client at different API and token endpoints
func (r *RedditAPI) WithEndpoints(baseURL, authURL string) *RedditAPI {
	r.baseURL = strings.TrimRight(baseURL, "/")
	r.authURL = authURL
	return r
}

// GetRateLimitStatus returns the current rate limit status (remaining requests, reset time in seconds, and used requests)
func (r *RedditAPI) GetRateLimitStatus() (int, int, int) {
	r.rateHeadersMutex.RLock()
	defer r.rateHeadersMutex.RUnlock()
	return r.rateRemainingCached, r.rateResetCached, r.rateUsedCached
}

// authenticate authenticates with the Reddit API
func (r *RedditAPI) authenticate(ctx context.Context) error {
	// first check if we already have a valid token without holding the lock for long
	r.mutex.RLock()
	token := r.accessToken
	expiry := r.tokenExpiry
	r.mutex.RUnlock()

	if token != "" && time.Now().Before(expiry) {
		return nil
	}

	// one refresh at a time; concurrent callers pick up the new token
	r.authMutex.Lock()
	defer r.authMutex.Unlock()

	r.mutex.RLock()
	token = r.accessToken
	expiry = r.tokenExpiry
	r.mutex.RUnlock()

	if token != "" && time.Now().Before(expiry) {
		return nil
	}

	r.log.Info("Authenticating with Reddit API")

	if err := r.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit exceeded during authentication attempt: %w", err)
	}

	data := url.Values{}
	data.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.authURL, strings.NewReader(data.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create auth request: %w", err)
	}

	req.SetBasicAuth(r.clientID, r.clientSecret)
	req.Header.Set("User-Agent", r.userAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute auth request: %w", err)
	}
	defer resp.Body.Close()

	r.updateRateLimits(resp)
	metrics.RedditRequestsTotal.WithLabelValues("auth", strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &RedditAPIError{
			Code:       CodeUpstream,
			Message:    fmt.Sprintf("auth request failed: %s", string(body)),
			StatusCode: resp.StatusCode,
		}
	}

	var authResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
		TokenType   string `json:"token_type"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
		return fmt.Errorf("failed to decode auth response: %w", err)
	}

	r.mutex.Lock()
	r.accessToken = authResp.AccessToken
	// refresh a minute before the token actually expires
	r.tokenExpiry = time.Now().Add(time.Duration(authResp.ExpiresIn)*time.Second - time.Minute)
	r.mutex.Unlock()

	r.log.Info("Successfully authenticated with Reddit API")
	return nil
}

// get performs an authenticated GET and decodes the JSON response into out
func (r *RedditAPI) get(ctx context.Context, endpoint, path string, query url.Values, out interface{}) error {
	if err := r.authenticate(ctx); err != nil {
		return err
	}

	if err := r.rateLimiter.Wait(ctx); err != nil {
		return err
	}

	if query == nil {
		query = url.Values{}
	}
	query.Set("raw_json", "1")
	requestURL := r.baseURL + path + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	r.mutex.RLock()
	token := r.accessToken
	r.mutex.RUnlock()

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	r.updateRateLimits(resp)
	metrics.RedditRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return &RedditAPIError{Code: CodeUserNotFound, Message: "not found", StatusCode: resp.StatusCode}
	case http.StatusUnauthorized:
		// force a fresh token on the next request
		r.mutex.Lock()
		r.accessToken = ""
		r.mutex.Unlock()
		fallthrough
	default:
		body, _ := io.ReadAll(resp.Body)
		r.log.WithFields(logrus.Fields{
			"path":          path,
			"response_body": string(body),
			"status_code":   resp.StatusCode,
		}).Error("Reddit API error response")
		return &RedditAPIError{
			Code:       CodeUpstream,
			Message:    fmt.Sprintf("request to %s failed", path),
			StatusCode: resp.StatusCode,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// FetchUserProfile fetches a user's profile
func (r *RedditAPI) FetchUserProfile(ctx context.Context, username string) (models.UserProfile, error) {
	var user redditUser
	path := fmt.Sprintf("/user/%s/about", url.PathEscape(username))

	if err := r.get(ctx, "about", path, nil, &user); err != nil {
		var apiErr *RedditAPIError
		if errors.As(err, &apiErr) && apiErr.Code == CodeUserNotFound {
			apiErr.Message = fmt.Sprintf("User %q not found", username)
		}
		return models.UserProfile{}, err
	}

	if user.Data.IsSuspended {
		return models.UserProfile{}, &RedditAPIError{
			Code:    CodeUserNotFound,
			Message: fmt.Sprintf("User %q is suspended", username),
		}
	}

	r.log.WithFields(logrus.Fields{
		"username":      user.Data.Name,
		"link_karma":    user.Data.LinkKarma,
		"comment_karma": user.Data.CommentKarma,
		"created_utc":   user.Data.CreatedUTC,
	}).Debug("Fetched user profile")

	return models.UserProfile{
		Name:         user.Data.Name,
		CreatedUTC:   user.Data.CreatedUTC,
		LinkKarma:    user.Data.LinkKarma,
		CommentKarma: user.Data.CommentKarma,
		TotalKarma:   user.Data.LinkKarma + user.Data.CommentKarma,
		IsGold:       user.Data.IsGold,
		IsMod:        user.Data.IsMod,
		Verified:     user.Data.Verified,
	}, nil
}

// FetchUserPosts fetches up to limit of a user's newest posts
func (r *RedditAPI) FetchUserPosts(ctx context.Context, username string, limit int) ([]models.Post, error) {
	path := fmt.Sprintf("/user/%s/submitted", url.PathEscape(username))
	items, err := fetchListing[redditPost](ctx, r, "submitted", path, limit)
	if err != nil {
		return nil, err
	}

	posts := make([]models.Post, 0, len(items))
	for _, item := range items {
		posts = append(posts, models.Post{
			ID:          item.ID,
			Title:       item.Title,
			Subreddit:   item.Subreddit,
			Score:       item.Score,
			NumComments: item.NumComments,
			CreatedUTC:  item.CreatedUTC,
			SelfText:    item.SelfText,
			URL:         item.URL,
			Permalink:   item.Permalink,
		})
	}
	return posts, nil
}

// FetchUserComments fetches up to limit of a user's newest comments
func (r *RedditAPI) FetchUserComments(ctx context.Context, username string, limit int) ([]models.Comment, error) {
	path := fmt.Sprintf("/user/%s/comments", url.PathEscape(username))
	items, err := fetchListing[redditComment](ctx, r, "comments", path, limit)
	if err != nil {
		return nil, err
	}

	comments := make([]models.Comment, 0, len(items))
	for _, item := range items {
		comments = append(comments, models.Comment{
			ID:         item.ID,
			Body:       item.Body,
			Subreddit:  item.Subreddit,
			Score:      item.Score,
			CreatedUTC: item.CreatedUTC,
			Permalink:  item.Permalink,
		})
	}
	return comments, nil
}

// fetchListing pages through a listing, newest first, until limit items are
// collected or the listing runs out
func fetchListing[T any](ctx context.Context, r *RedditAPI, endpoint, path string, limit int) ([]T, error) {
	items := make([]T, 0)
	after := ""

	for len(items) < limit {
		query := url.Values{}
		query.Set("sort", "new")
		query.Set("limit", strconv.Itoa(min(pageSize, limit-len(items))))
		if after != "" {
			query.Set("after", after)
		}

		var listing redditListing[T]
		if err := r.get(ctx, endpoint, path, query, &listing); err != nil {
			return nil, err
		}

		for _, child := range listing.Data.Children {
			items = append(items, child.Data)
		}

		r.log.WithFields(logrus.Fields{
			"path":       path,
			"page_count": len(listing.Data.Children),
			"total":      len(items),
			"after":      after,
			"next_after": listing.Data.After,
		}).Debug("Fetched listing page")

		if listing.Data.After == "" || len(listing.Data.Children) == 0 {
			break
		}
		after = listing.Data.After
	}

	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// FetchUserData fetches a user's profile, posts and comments concurrently.
// A missing profile fails the fetch; posts or comments that cannot be fetched
// (private or empty profiles) are returned as empty lists.
func (r *RedditAPI) FetchUserData(ctx context.Context, username string, limit int) (*UserData, error) {
	r.log.WithFields(logrus.Fields{
		"username": username,
		"limit":    limit,
	}).Info("Starting data fetch for user")

	data := &UserData{
		Posts:    make([]models.Post, 0),
		Comments: make([]models.Comment, 0),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		profile, err := r.FetchUserProfile(gctx, username)
		if err != nil {
			return err
		}
		data.Profile = profile
		return nil
	})

	g.Go(func() error {
		posts, err := r.FetchUserPosts(gctx, username, limit)
		if err != nil {
			r.log.WithError(err).WithField("username", username).Warn("Could not fetch posts")
			return nil
		}
		data.Posts = posts
		return nil
	})

	g.Go(func() error {
		comments, err := r.FetchUserComments(gctx, username, limit)
		if err != nil {
			r.log.WithError(err).WithField("username", username).Warn("Could not fetch comments")
			return nil
		}
		data.Comments = comments
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.log.WithFields(logrus.Fields{
		"username":      username,
		"post_count":    len(data.Posts),
		"comment_count": len(data.Comments),
	}).Info("Completed data fetch for user")

	return data, nil
}

// updateRateLimits updates the rate limiter based on response headers
func (r *RedditAPI) updateRateLimits(resp *http.Response) {
	// X-Ratelimit-Used: Approximate number of requests used in this period
	// X-Ratelimit-Remaining: Approximate number of requests left to use
	// X-Ratelimit-Reset: Approximate number of seconds to end of period
	used := getHeaderAsInt(resp.Header, "X-Ratelimit-Used")
	remaining := getHeaderAsInt(resp.Header, "X-Ratelimit-Remaining")
	reset := getHeaderAsInt(resp.Header, "X-Ratelimit-Reset")

	// skip if we didn't get valid headers for some reason
	if reset == 0 && used == 0 {
		return
	}

	r.rateHeadersMutex.Lock()
	r.rateRemainingCached = remaining
	r.rateResetCached = reset
	r.rateUsedCached = used
	r.rateHeadersMutex.Unlock()

	r.rateLimiter.Update(used, reset, r.allocation)

	r.log.WithFields(logrus.Fields{
		"used":          used,
		"reset_sec":     reset,
		"new_fill_rate": r.rateLimiter.FillRate(),
		"usage_pct":     float64(used) / float64(r.allocation) * 100,
	}).Debug("Updated rate limiter based on Reddit headers")
}

func getHeaderAsInt(header http.Header, name string) int {
	value := header.Get(name)
	if value == "" {
		return 0
	}

	// reddit reports some of these as floats, e.g. "598.0"
	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}

	return int(floatValue)
}
