package stats

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/brettboylen/reddit-wrapped/api"
	"github.com/brettboylen/reddit-wrapped/models"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func sampleUserData() *api.UserData {
	profile, posts, comments := sampleActivity()
	return &api.UserData{Profile: profile, Posts: posts, Comments: comments}
}

func newTestCollector(fetcher UserDataFetcher, cache ResultCache) *Collector {
	return NewCollector(fetcher, cache, CollectorConfig{}, quietLogger()).
		WithClock(func() time.Time { return testNow })
}

func requireCode(t *testing.T, err error, code models.ErrorCode) {
	t.Helper()
	var statsErr *Error
	require.True(t, errors.As(err, &statsErr), "expected *stats.Error, got %v", err)
	assert.Equal(t, code, statsErr.Code)
}

func TestCollectorCacheHit(t *testing.T) {
	cached := models.AnalyzeResponse{Type: models.ResponseTypeAnalyze, Username: "alice", GeneratedAt: 42}
	body, err := json.Marshal(cached)
	require.NoError(t, err)

	fetcher := &MockUserDataFetcher{}
	cache := &MockResultCache{}
	cache.On("Get", mock.Anything, "wrapped:alice").Return(body, true, nil)

	resp, err := newTestCollector(fetcher, cache).Analyze(context.Background(), models.AnalyzeRequest{Username: "Alice"})

	require.NoError(t, err)
	// stored under a lowercased key, reported as requested
	expected := cached
	expected.Username = "Alice"
	assert.Equal(t, &expected, resp)
	fetcher.AssertNotCalled(t, "FetchUserData", mock.Anything, mock.Anything, mock.Anything)
	cache.AssertExpectations(t)
}

func TestCollectorCacheMiss(t *testing.T) {
	fetcher := &MockUserDataFetcher{}
	fetcher.On("FetchUserData", mock.Anything, "alice", defaultLimit).Return(sampleUserData(), nil)

	cache := &MockResultCache{}
	cache.On("Get", mock.Anything, "wrapped:alice").Return(nil, false, nil)
	cache.On("Set", mock.Anything, "wrapped:alice", mock.MatchedBy(func(value []byte) bool {
		var stored models.AnalyzeResponse
		return json.Unmarshal(value, &stored) == nil && stored.Username == "alice"
	}), time.Hour).Return(nil)

	resp, err := newTestCollector(fetcher, cache).Analyze(context.Background(), models.AnalyzeRequest{Username: "u/alice"})

	require.NoError(t, err)
	assert.Equal(t, models.ResponseTypeAnalyze, resp.Type)
	assert.Equal(t, "alice", resp.Username)
	assert.Equal(t, testNow.UnixMilli(), resp.GeneratedAt)
	assert.Equal(t, 3, resp.Stats.TotalPosts)
	assert.Equal(t, 6, resp.Stats.AccountAge)
	fetcher.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestCollectorLimits(t *testing.T) {
	tests := []struct {
		name      string
		requested int
		fetched   int
	}{
		{name: "default", requested: 0, fetched: 500},
		{name: "within range", requested: 25, fetched: 25},
		{name: "clamped", requested: 5000, fetched: 1000},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fetcher := &MockUserDataFetcher{}
			fetcher.On("FetchUserData", mock.Anything, "alice", tc.fetched).Return(sampleUserData(), nil)

			_, err := newTestCollector(fetcher, nil).Analyze(context.Background(), models.AnalyzeRequest{Username: "alice", Limit: tc.requested})

			require.NoError(t, err)
			fetcher.AssertExpectations(t)
		})
	}
}

func TestCollectorConfiguredLimits(t *testing.T) {
	fetcher := &MockUserDataFetcher{}
	fetcher.On("FetchUserData", mock.Anything, "alice", 50).Return(sampleUserData(), nil)

	// a default above the maximum is lowered to it
	collector := NewCollector(fetcher, nil, CollectorConfig{DefaultLimit: 100, MaxLimit: 50}, quietLogger())
	_, err := collector.Analyze(context.Background(), models.AnalyzeRequest{Username: "alice"})

	require.NoError(t, err)
	fetcher.AssertExpectations(t)
}

func TestCollectorValidation(t *testing.T) {
	tests := []struct {
		name string
		req  models.AnalyzeRequest
		code models.ErrorCode
	}{
		{name: "missing username", req: models.AnalyzeRequest{}, code: models.ErrInvalidRequest},
		{name: "prefix only", req: models.AnalyzeRequest{Username: "u/"}, code: models.ErrInvalidUsername},
		{name: "whitespace", req: models.AnalyzeRequest{Username: "   "}, code: models.ErrInvalidUsername},
		{name: "bad characters", req: models.AnalyzeRequest{Username: "bad name!"}, code: models.ErrInvalidUsername},
		{name: "too long", req: models.AnalyzeRequest{Username: "abcdefghijklmnopqrstu"}, code: models.ErrInvalidUsername},
		{name: "negative limit", req: models.AnalyzeRequest{Username: "alice", Limit: -1}, code: models.ErrInvalidRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fetcher := &MockUserDataFetcher{}
			cache := &MockResultCache{}

			resp, err := newTestCollector(fetcher, cache).Analyze(context.Background(), tc.req)

			assert.Nil(t, resp)
			requireCode(t, err, tc.code)
			fetcher.AssertNotCalled(t, "FetchUserData", mock.Anything, mock.Anything, mock.Anything)
			cache.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
		})
	}
}

func TestCollectorNoData(t *testing.T) {
	fetcher := &MockUserDataFetcher{}
	fetcher.On("FetchUserData", mock.Anything, "quiet", defaultLimit).
		Return(&api.UserData{Profile: models.UserProfile{Name: "quiet"}}, nil)

	cache := &MockResultCache{}
	cache.On("Get", mock.Anything, "wrapped:quiet").Return(nil, false, nil)

	_, err := newTestCollector(fetcher, cache).Analyze(context.Background(), models.AnalyzeRequest{Username: "quiet"})

	requireCode(t, err, models.ErrNoDataAvailable)
	cache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCollectorFetchErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    models.ErrorCode
		message string
	}{
		{
			name:    "user not found",
			err:     &api.RedditAPIError{Code: api.CodeUserNotFound, Message: "User ghost not found", StatusCode: 404},
			code:    models.ErrUserNotFound,
			message: "User ghost not found",
		},
		{
			name:    "upstream failure",
			err:     &api.RedditAPIError{Code: api.CodeUpstream, Message: "bad gateway", StatusCode: 502},
			code:    models.ErrInternal,
			message: "Failed to analyze user profile",
		},
		{
			name:    "rate limited",
			err:     &api.RedditAPIError{Code: api.CodeRateLimited, Message: "timed out waiting for rate limiter"},
			code:    models.ErrInternal,
			message: "Failed to analyze user profile",
		},
		{
			name:    "network error",
			err:     errors.New("connection reset"),
			code:    models.ErrInternal,
			message: "Failed to analyze user profile",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fetcher := &MockUserDataFetcher{}
			fetcher.On("FetchUserData", mock.Anything, "ghost", defaultLimit).Return(nil, tc.err)

			_, err := newTestCollector(fetcher, nil).Analyze(context.Background(), models.AnalyzeRequest{Username: "ghost"})

			var statsErr *Error
			require.True(t, errors.As(err, &statsErr))
			assert.Equal(t, tc.code, statsErr.Code)
			assert.Equal(t, tc.message, statsErr.Message)
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestCollectorCacheFailuresAreIgnored(t *testing.T) {
	fetcher := &MockUserDataFetcher{}
	fetcher.On("FetchUserData", mock.Anything, "alice", defaultLimit).Return(sampleUserData(), nil)

	cache := &MockResultCache{}
	cache.On("Get", mock.Anything, "wrapped:alice").Return(nil, false, errors.New("database is locked"))
	cache.On("Set", mock.Anything, "wrapped:alice", mock.Anything, time.Hour).Return(errors.New("disk full"))

	resp, err := newTestCollector(fetcher, cache).Analyze(context.Background(), models.AnalyzeRequest{Username: "alice"})

	require.NoError(t, err)
	assert.Equal(t, "alice", resp.Username)
	cache.AssertExpectations(t)
}

func TestCollectorUnreadableCacheEntryIsAMiss(t *testing.T) {
	fetcher := &MockUserDataFetcher{}
	fetcher.On("FetchUserData", mock.Anything, "alice", defaultLimit).Return(sampleUserData(), nil)

	cache := &MockResultCache{}
	cache.On("Get", mock.Anything, "wrapped:alice").Return([]byte("{not json"), true, nil)
	cache.On("Set", mock.Anything, "wrapped:alice", mock.Anything, time.Hour).Return(nil)

	resp, err := newTestCollector(fetcher, cache).Analyze(context.Background(), models.AnalyzeRequest{Username: "alice"})

	require.NoError(t, err)
	assert.Equal(t, 3, resp.Stats.TotalComments)
	fetcher.AssertExpectations(t)
}

func TestCollectorCancelledRequest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	release := make(chan struct{})
	defer close(release)

	fetcher := &MockUserDataFetcher{}
	fetcher.On("FetchUserData", mock.Anything, "alice", defaultLimit).
		Run(func(mock.Arguments) {
			cancel()
			<-release
		}).
		Return(sampleUserData(), nil)

	resp, err := newTestCollector(fetcher, nil).Analyze(ctx, models.AnalyzeRequest{Username: "alice"})

	assert.Nil(t, resp)
	requireCode(t, err, models.ErrInternal)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCollectorSharesConcurrentFetches(t *testing.T) {
	const callers = 10

	var lookups atomic.Int32
	release := make(chan struct{})

	fetcher := &MockUserDataFetcher{}
	fetcher.On("FetchUserData", mock.Anything, "alice", defaultLimit).
		Run(func(mock.Arguments) { <-release }).
		Return(sampleUserData(), nil)

	cache := &MockResultCache{}
	cache.On("Get", mock.Anything, "wrapped:alice").
		Run(func(mock.Arguments) { lookups.Add(1) }).
		Return(nil, false, nil)
	cache.On("Set", mock.Anything, "wrapped:alice", mock.Anything, time.Hour).Return(nil)

	collector := newTestCollector(fetcher, cache)

	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := collector.Analyze(context.Background(), models.AnalyzeRequest{Username: "alice"})
			errs <- err
		}()
	}

	// every caller has missed the cache and is waiting on the in-flight fetch
	require.Eventually(t, func() bool { return lookups.Load() == callers }, time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(release)

	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
	fetcher.AssertNumberOfCalls(t, "FetchUserData", 1)
	cache.AssertNumberOfCalls(t, "Set", 1)
}

func TestCleanUsername(t *testing.T) {
	tests := []struct {
		raw      string
		expected string
		valid    bool
	}{
		{raw: "spez", expected: "spez", valid: true},
		{raw: "u/spez", expected: "spez", valid: true},
		{raw: "/u/spez", expected: "spez", valid: true},
		{raw: "  u/ Some_User-1 ", expected: "Some_User-1", valid: true},
		{raw: "u/u/spez", valid: false},
		{raw: "/spez", valid: false},
		{raw: "u/", valid: false},
		{raw: "", valid: false},
		{raw: "spez.dev", valid: false},
		{raw: "abcdefghijklmnopqrst", expected: "abcdefghijklmnopqrst", valid: true},
		{raw: "abcdefghijklmnopqrstu", valid: false},
	}

	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			username, err := CleanUsername(tc.raw)
			if !tc.valid {
				requireCode(t, err, models.ErrInvalidUsername)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, username)
		})
	}
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "wrapped:spez", CacheKey("spez"))
	assert.Equal(t, CacheKey("spez"), CacheKey("SpEz"))
}
