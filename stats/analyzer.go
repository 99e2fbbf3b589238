package stats

import (
	"math"
	"time"

	"github.com/brettboylen/reddit-wrapped/models"
)

// secondsPerYear uses a 365 day year; leap days are ignored
const secondsPerYear = 365 * 24 * 60 * 60

// Analyze computes the wrapped stats for a user as of now
func Analyze(profile models.UserProfile, posts []models.Post, comments []models.Comment) models.WrappedStats {
	return AnalyzeAt(profile, posts, comments, time.Now())
}

// AnalyzeAt computes the wrapped stats for a user as of the given time.
// It is a pure function of its inputs and never fails; empty posts or
// comments degrade to zero values and nil top items.
func AnalyzeAt(profile models.UserProfile, posts []models.Post, comments []models.Comment, now time.Time) models.WrappedStats {
	topSubreddits := AggregateSubreddits(posts, comments)
	pattern := AnalyzeActivityPattern(posts, comments)

	topPost := findTopPost(posts)
	topComment := findTopComment(comments)

	texts := collectTexts(posts, comments)

	insights := models.UserInsights{
		Personality:        DeterminePersonality(topSubreddits, posts, comments),
		Badges:             GenerateBadges(profile, posts, comments, pattern, now),
		CommentStyle:       CommentStyle(comments),
		TopicsOfInterest:   ExtractTopics(topSubreddits),
		ControversialScore: ControversialScore(posts, comments),
		SentimentScore:     roundHalfUp(SentimentScore(texts)),
		TopWords:           TopWords(texts, defaultTopWordsLimit),
		Milestones:         BuildMilestones(profile, posts, comments, topPost, topComment, now),
		Impact:             ComputeImpact(posts, comments),
	}

	avgPostScore, avgCommentScore := 0, 0
	if len(posts) > 0 {
		avgPostScore = roundHalfUp(float64(sumPostScores(posts)) / float64(len(posts)))
	}
	if len(comments) > 0 {
		avgCommentScore = roundHalfUp(float64(sumCommentScores(comments)) / float64(len(comments)))
	}

	return models.WrappedStats{
		TotalPosts:       len(posts),
		TotalComments:    len(comments),
		TotalKarma:       profile.TotalKarma,
		PostKarma:        profile.LinkKarma,
		CommentKarma:     profile.CommentKarma,
		TopSubreddits:    topSubreddits,
		TopPost:          topPost,
		TopComment:       topComment,
		AccountAge:       AccountAge(profile, now),
		ActivityPattern:  pattern,
		Insights:         insights,
		AvgPostScore:     avgPostScore,
		AvgCommentScore:  avgCommentScore,
		MostActiveHour:   MaxIndex(pattern.HourOfDay[:]),
		MostActiveDay:    MaxIndex(pattern.DayOfWeek[:]),
		MostActiveSeason: MaxIndex(pattern.SeasonalActivity[:]),
	}
}

// AccountAge returns the account age in whole 365 day years, never negative
func AccountAge(profile models.UserProfile, now time.Time) int {
	return max(int(math.Floor(accountAgeYears(profile, now))), 0)
}

func accountAgeYears(profile models.UserProfile, now time.Time) float64 {
	nowSeconds := float64(now.UnixMilli()) / 1000
	return (nowSeconds - profile.CreatedUTC) / secondsPerYear
}

// findTopPost returns a copy of the highest scoring post; the first one wins ties
func findTopPost(posts []models.Post) *models.Post {
	if len(posts) == 0 {
		return nil
	}
	top := posts[0]
	for _, post := range posts[1:] {
		if post.Score > top.Score {
			top = post
		}
	}
	return &top
}

// findTopComment returns a copy of the highest scoring comment; the first one wins ties
func findTopComment(comments []models.Comment) *models.Comment {
	if len(comments) == 0 {
		return nil
	}
	top := comments[0]
	for _, comment := range comments[1:] {
		if comment.Score > top.Score {
			top = comment
		}
	}
	return &top
}

// collectTexts returns post titles with their body text, then comment bodies
func collectTexts(posts []models.Post, comments []models.Comment) []string {
	texts := make([]string, 0, len(posts)+len(comments))
	for _, post := range posts {
		texts = append(texts, post.Title+" "+post.SelfText)
	}
	for _, comment := range comments {
		texts = append(texts, comment.Body)
	}
	return texts
}

func sumPostScores(posts []models.Post) int {
	sum := 0
	for _, post := range posts {
		sum += post.Score
	}
	return sum
}

func sumCommentScores(comments []models.Comment) int {
	sum := 0
	for _, comment := range comments {
		sum += comment.Score
	}
	return sum
}

// roundHalfUp rounds to the nearest integer with halves rounded towards
// positive infinity, so -2.5 becomes -2
func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}

// roundTenths rounds to one decimal place, halves rounded up
func roundTenths(x float64) float64 {
	return math.Floor(x*10+0.5) / 10
}
