package stats

import (
	"fmt"
	"sort"
	"time"

	"github.com/brettboylen/reddit-wrapped/models"
)

const monthlyActivityLimit = 12

// activityClock accumulates time buckets for a stream of timestamps
type activityClock struct {
	pattern models.ActivityPattern
	monthly map[string]int
}

func newActivityClock() *activityClock {
	return &activityClock{monthly: make(map[string]int)}
}

// record adds a single item created at createdUTC (epoch seconds)
func (a *activityClock) record(createdUTC float64) {
	date := fromEpoch(createdUTC)

	a.pattern.HourOfDay[date.Hour()]++
	a.pattern.DayOfWeek[date.Weekday()]++

	// month 0-11 divided by 3; index 0 is labelled Dec-Feb
	month := int(date.Month()) - 1
	a.pattern.SeasonalActivity[month/3]++

	a.monthly[fmt.Sprintf("%04d-%02d", date.Year(), date.Month())]++
}

// result returns the pattern with the monthly series sorted and truncated
func (a *activityClock) result() models.ActivityPattern {
	months := make([]string, 0, len(a.monthly))
	for month := range a.monthly {
		months = append(months, month)
	}
	// zero padded keys sort chronologically
	sort.Strings(months)
	if len(months) > monthlyActivityLimit {
		months = months[len(months)-monthlyActivityLimit:]
	}

	pattern := a.pattern
	pattern.MonthlyActivity = make([]models.MonthlyCount, 0, len(months))
	for _, month := range months {
		pattern.MonthlyActivity = append(pattern.MonthlyActivity, models.MonthlyCount{
			Month: month,
			Count: a.monthly[month],
		})
	}
	return pattern
}

// AnalyzeActivityPattern buckets posts and comments by UTC hour, weekday,
// season and month
func AnalyzeActivityPattern(posts []models.Post, comments []models.Comment) models.ActivityPattern {
	clock := newActivityClock()
	for _, post := range posts {
		clock.record(post.CreatedUTC)
	}
	for _, comment := range comments {
		clock.record(comment.CreatedUTC)
	}
	return clock.result()
}

// MaxIndex returns the index of the first occurrence of the largest bucket.
// An all-zero (or empty) slice yields 0.
func MaxIndex(buckets []int) int {
	best := 0
	for i, count := range buckets {
		if count > buckets[best] {
			best = i
		}
	}
	return best
}

// fromEpoch converts fractional epoch seconds to a UTC time
func fromEpoch(epoch float64) time.Time {
	return time.UnixMilli(int64(epoch * 1000)).UTC()
}
