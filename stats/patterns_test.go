package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brettboylen/reddit-wrapped/models"
)

func sum(buckets []int) int {
	total := 0
	for _, count := range buckets {
		total += count
	}
	return total
}

func TestAnalyzeActivityPatternBuckets(t *testing.T) {
	posts := []models.Post{
		post("golang", 1, at(2024, time.January, 7, 3)), // Sunday
	}
	comments := []models.Comment{
		comment("golang", 1, at(2024, time.July, 10, 14)),      // Wednesday
		comment("golang", 1, at(2024, time.December, 25, 14)), // Wednesday
	}

	pattern := AnalyzeActivityPattern(posts, comments)

	assert.Equal(t, 1, pattern.HourOfDay[3])
	assert.Equal(t, 2, pattern.HourOfDay[14])
	assert.Equal(t, 1, pattern.DayOfWeek[0])
	assert.Equal(t, 2, pattern.DayOfWeek[3])

	// season index is the 0-based month divided by three
	assert.Equal(t, [4]int{1, 0, 1, 1}, pattern.SeasonalActivity)

	assert.Equal(t, []models.MonthlyCount{
		{Month: "2024-01", Count: 1},
		{Month: "2024-07", Count: 1},
		{Month: "2024-12", Count: 1},
	}, pattern.MonthlyActivity)
}

func TestAnalyzeActivityPatternBucketSums(t *testing.T) {
	var posts []models.Post
	var comments []models.Comment
	start := time.Date(2022, time.March, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 50; i++ {
		created := float64(start.Add(time.Duration(i) * 37 * time.Hour).Unix())
		if i%3 == 0 {
			posts = append(posts, post("a", i, created))
		} else {
			comments = append(comments, comment("b", i, created))
		}
	}

	pattern := AnalyzeActivityPattern(posts, comments)
	n := len(posts) + len(comments)

	assert.Equal(t, n, sum(pattern.HourOfDay[:]))
	assert.Equal(t, n, sum(pattern.DayOfWeek[:]))
	assert.Equal(t, n, sum(pattern.SeasonalActivity[:]))
}

func TestAnalyzeActivityPatternKeepsLastTwelveMonths(t *testing.T) {
	var comments []models.Comment
	// 14 months, listed newest first to exercise sorting
	for i := 13; i >= 0; i-- {
		created := time.Date(2023, time.January, 15, 12, 0, 0, 0, time.UTC).AddDate(0, i, 0)
		comments = append(comments, comment("a", 1, float64(created.Unix())))
	}

	pattern := AnalyzeActivityPattern(nil, comments)

	require.Len(t, pattern.MonthlyActivity, 12)
	assert.Equal(t, "2023-03", pattern.MonthlyActivity[0].Month)
	assert.Equal(t, "2024-02", pattern.MonthlyActivity[11].Month)
}

func TestAnalyzeActivityPatternEmpty(t *testing.T) {
	pattern := AnalyzeActivityPattern(nil, nil)

	assert.Equal(t, [24]int{}, pattern.HourOfDay)
	assert.Equal(t, [7]int{}, pattern.DayOfWeek)
	assert.Equal(t, [4]int{}, pattern.SeasonalActivity)
	assert.NotNil(t, pattern.MonthlyActivity)
	assert.Empty(t, pattern.MonthlyActivity)
}

func TestMaxIndex(t *testing.T) {
	tests := []struct {
		name     string
		buckets  []int
		expected int
	}{
		{name: "empty", buckets: nil, expected: 0},
		{name: "all zero", buckets: []int{0, 0, 0}, expected: 0},
		{name: "single max", buckets: []int{1, 5, 2}, expected: 1},
		{name: "first max wins", buckets: []int{1, 3, 3}, expected: 1},
		{name: "max at end", buckets: []int{0, 0, 9}, expected: 2},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, MaxIndex(tc.buckets))
		})
	}
}

func TestFromEpochFractionalSeconds(t *testing.T) {
	date := fromEpoch(1700000000.5)
	assert.Equal(t, time.UTC, date.Location())
	assert.Equal(t, int64(1700000000500), date.UnixMilli())
}
