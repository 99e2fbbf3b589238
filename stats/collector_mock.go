package stats

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/brettboylen/reddit-wrapped/api"
)

// MockUserDataFetcher is a mock implementation of UserDataFetcher for testing.
type MockUserDataFetcher struct {
	mock.Mock
}

var _ UserDataFetcher = &MockUserDataFetcher{} // Compile-time check

// FetchUserData implements the UserDataFetcher interface.
func (m *MockUserDataFetcher) FetchUserData(ctx context.Context, username string, limit int) (*api.UserData, error) {
	args := m.Called(ctx, username, limit)
	data, _ := args.Get(0).(*api.UserData)
	return data, args.Error(1)
}

// MockResultCache is a mock implementation of ResultCache for testing.
type MockResultCache struct {
	mock.Mock
}

var _ ResultCache = &MockResultCache{} // Compile-time check

// Get implements the ResultCache interface.
func (m *MockResultCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	args := m.Called(ctx, key)
	value, _ := args.Get(0).([]byte)
	return value, args.Bool(1), args.Error(2)
}

// Set implements the ResultCache interface.
func (m *MockResultCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}
