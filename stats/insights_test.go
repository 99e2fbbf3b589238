package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brettboylen/reddit-wrapped/models"
)

var testNow = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

// createdYearsAgo returns a creation timestamp years 365-day years before testNow
func createdYearsAgo(years float64) float64 {
	return float64(testNow.Unix()) - years*secondsPerYear
}

func subreddits(names ...string) []models.SubredditActivity {
	top := make([]models.SubredditActivity, 0, len(names))
	for _, name := range names {
		top = append(top, models.SubredditActivity{Name: name, PostCount: 1})
	}
	return top
}

func nPosts(n, score int) []models.Post {
	posts := make([]models.Post, 0, n)
	for i := 0; i < n; i++ {
		posts = append(posts, post("golang", score, at(2024, time.June, 1, 12)))
	}
	return posts
}

func nComments(n, score int) []models.Comment {
	comments := make([]models.Comment, 0, n)
	for i := 0; i < n; i++ {
		comments = append(comments, comment("golang", score, at(2024, time.June, 1, 12)))
	}
	return comments
}

func TestDeterminePersonality(t *testing.T) {
	tests := []struct {
		name     string
		top      []models.SubredditActivity
		posts    int
		comments int
		expected string
	}{
		{name: "technology prefers tech over news", top: subreddits("AskReddit", "Technology"), expected: PersonalityTech},
		{name: "gamer", top: subreddits("PCGaming"), expected: PersonalityGamer},
		{name: "news", top: subreddits("worldnews"), expected: PersonalityNews},
		{name: "memes", top: subreddits("me_irl"), expected: PersonalityMemes},
		{name: "rule order beats subreddit order", top: subreddits("memes", "news"), expected: PersonalityNews},
		{name: "exact names only", top: subreddits("programminghumor"), posts: 2, comments: 4, expected: PersonalityExplorer},
		{name: "helper", top: subreddits("golang"), posts: 1, comments: 10, expected: PersonalityHelper},
		{name: "creator", top: subreddits("golang"), posts: 10, comments: 2, expected: PersonalityCreator},
		{name: "explorer", top: subreddits("golang"), posts: 2, comments: 4, expected: PersonalityExplorer},
		{name: "comments without posts", top: nil, posts: 0, comments: 6, expected: PersonalityHelper},
		{name: "no activity", top: nil, expected: PersonalityCreator},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := DeterminePersonality(tc.top, nPosts(tc.posts, 1), nComments(tc.comments, 1))
			assert.Equal(t, tc.expected, result)
		})
	}
}

func TestGenerateBadgesAllRules(t *testing.T) {
	profile := models.UserProfile{
		CreatedUTC: createdYearsAgo(10.5),
		TotalKarma: 150000,
		IsGold:     true,
	}
	var pattern models.ActivityPattern
	pattern.HourOfDay[2] = 5
	pattern.DayOfWeek[0] = 3

	badges := GenerateBadges(profile, nPosts(3, 200), nil, pattern, testNow)

	assert.Equal(t, []string{
		"Decade Club",
		"Karma Millionaire",
		"Night Owl",
		"Weekend Warrior",
		"Content Machine",
		"Quality Poster",
		"Reddit Premium",
	}, badges)
}

func TestGenerateBadgesTiers(t *testing.T) {
	var afternoon models.ActivityPattern
	afternoon.HourOfDay[15] = 1
	afternoon.DayOfWeek[2] = 1

	tests := []struct {
		name     string
		years    float64
		karma    int
		expected []string
	}{
		{name: "new account", years: 0.99, karma: 9999, expected: []string{}},
		{name: "exactly one year", years: 1, karma: 10000, expected: []string{"1 Year Club", "Rising Star"}},
		{name: "five years", years: 5.2, karma: 50000, expected: []string{"5 Year Club", "High Karma"}},
		{name: "unfloored age", years: 9.999, karma: 99999, expected: []string{"5 Year Club", "High Karma"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			profile := models.UserProfile{CreatedUTC: createdYearsAgo(tc.years), TotalKarma: tc.karma}
			// two posts and two comments award no engagement badges
			badges := GenerateBadges(profile, nPosts(2, 1), nComments(2, 1), afternoon, testNow)
			assert.Equal(t, tc.expected, badges)
		})
	}
}

func TestGenerateBadgesActivity(t *testing.T) {
	profile := models.UserProfile{CreatedUTC: createdYearsAgo(0)}

	var morning models.ActivityPattern
	morning.HourOfDay[8] = 4
	morning.DayOfWeek[1] = 4
	assert.Equal(t, []string{"Early Bird", "Conversation Starter"},
		GenerateBadges(profile, nPosts(1, 1), nComments(6, 1), morning, testNow))

	// an empty pattern has its most active hour at midnight
	assert.Equal(t, []string{"Night Owl"},
		GenerateBadges(profile, nil, nil, models.ActivityPattern{}, testNow))
}

func TestExtractTopics(t *testing.T) {
	tests := []struct {
		name     string
		top      []models.SubredditActivity
		expected []string
	}{
		{name: "none", top: nil, expected: []string{}},
		{name: "no category", top: subreddits("AskReddit"), expected: []string{}},
		{
			name:     "category order and top five only",
			top:      subreddits("nba", "Python", "askscience", "movies", "food", "funny"),
			expected: []string{"Technology", "Entertainment", "Sports", "Science", "Lifestyle"},
		},
		{name: "substring matches several categories", top: subreddits("gamingnews"), expected: []string{"Gaming", "News"}},
		{name: "deduplicated", top: subreddits("programming", "coding", "webdev"), expected: []string{"Technology"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ExtractTopics(tc.top))
		})
	}
}

func TestControversialScore(t *testing.T) {
	assert.Equal(t, 0, ControversialScore(nil, nil))
	assert.Equal(t, 0, ControversialScore(nPosts(3, 0), nil))
	assert.Equal(t, 67, ControversialScore(
		[]models.Post{post("a", -1, 0), post("a", 5, 0)},
		[]models.Comment{comment("a", -3, 0)},
	))
	// 12.5 rounds up
	assert.Equal(t, 13, ControversialScore(nPosts(1, -1), nComments(7, 2)))
	assert.Equal(t, 100, ControversialScore(nPosts(2, -4), nComments(2, -1)))
}

func TestComputeImpact(t *testing.T) {
	posts := []models.Post{
		{Subreddit: "a", Score: 10, NumComments: 4},
		{Subreddit: "b", Score: -2, NumComments: 0},
	}
	comments := []models.Comment{
		{Subreddit: "a", Score: 3},
		{Subreddit: "c", Score: -1},
	}

	assert.Equal(t, models.ImpactStats{
		TotalEngagement:      17,
		TotalReplies:         4,
		AvgRepliesPerPost:    2,
		AvgRepliesPerComment: 1,
		UniqueInteractions:   3,
		DiscussionsStarted:   1,
	}, ComputeImpact(posts, comments))
}

func TestComputeImpactRoundsToTenths(t *testing.T) {
	posts := []models.Post{{NumComments: 1}, {NumComments: 0}, {NumComments: 0}}
	comments := []models.Comment{{Score: 2}, {Score: 0}, {Score: 0}}

	impact := ComputeImpact(posts, comments)
	assert.InDelta(t, 0.3, impact.AvgRepliesPerPost, 1e-9)
	assert.InDelta(t, 0.7, impact.AvgRepliesPerComment, 1e-9)

	assert.Equal(t, models.ImpactStats{}, ComputeImpact(nil, nil))
}

func TestBuildMilestones(t *testing.T) {
	profile := models.UserProfile{CreatedUTC: at(2015, time.March, 1, 0)}
	posts := []models.Post{
		{Title: "Later post", Subreddit: "golang", Score: 50, CreatedUTC: at(2020, time.May, 5, 10)},
		{Title: "Hello world", Subreddit: "learnprogramming", Score: 2, CreatedUTC: at(2016, time.April, 2, 9)},
	}
	comments := []models.Comment{
		{Subreddit: "AskReddit", Score: 0, CreatedUTC: at(2017, time.July, 3, 8)},
	}

	milestones := BuildMilestones(profile, posts, comments, &posts[0], &comments[0], testNow)

	require.Len(t, milestones, 4)
	assert.Equal(t, models.Milestone{Title: "Joined Reddit", Description: "Joined Reddit 9 years ago", Icon: "🎂", Date: "2015-03-01"}, milestones[0])
	assert.Equal(t, "First Post", milestones[1].Title)
	assert.Equal(t, `"Hello world" in r/learnprogramming`, milestones[1].Description)
	assert.Equal(t, "2016-04-02", milestones[1].Date)
	assert.Equal(t, "First Comment", milestones[2].Title)
	assert.Equal(t, "2017-07-03", milestones[2].Date)
	// the top comment scored 0, so only the top post appears
	assert.Equal(t, "Top Post", milestones[3].Title)
	assert.Equal(t, "2020-05-05", milestones[3].Date)
}

func TestBuildMilestonesActivityTier(t *testing.T) {
	tests := []struct {
		contributions int
		expected      string
	}{
		{contributions: 99, expected: ""},
		{contributions: 100, expected: "Century Club"},
		{contributions: 600, expected: "Power User"},
		{contributions: 1000, expected: "Reddit Legend"},
	}

	for _, tc := range tests {
		milestones := BuildMilestones(models.UserProfile{}, nil, nComments(tc.contributions, 0), nil, nil, testNow)

		titles := make([]string, 0, len(milestones))
		for _, milestone := range milestones {
			titles = append(titles, milestone.Title)
		}
		assert.NotContains(t, titles, "Joined Reddit")

		if tc.expected == "" {
			assert.NotContains(t, titles, "Century Club")
			continue
		}
		assert.Equal(t, tc.expected, titles[len(titles)-1])
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abc...", truncate("abcdef", 3))
	assert.Equal(t, "héé...", truncate("héééé", 3))
}
