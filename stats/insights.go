package stats

import (
	"fmt"
	"strings"
	"time"

	"github.com/brettboylen/reddit-wrapped/models"
)

// Personality labels
const (
	PersonalityTech     = "Tech Enthusiast"
	PersonalityGamer    = "Gamer"
	PersonalityNews     = "News Junkie"
	PersonalityMemes    = "Meme Connoisseur"
	PersonalityHelper   = "Community Helper"
	PersonalityCreator  = "Content Creator"
	PersonalityExplorer = "Reddit Explorer"
)

const (
	helperRatioThreshold = 5
	creatorRatioMaximum  = 0.5
)

// personalityRules are evaluated in order against the lowercased names of the
// top subreddits; a rule matches on exact name membership
var personalityRules = []struct {
	label      string
	subreddits map[string]struct{}
}{
	{PersonalityTech, toSet("programming", "technology", "coding", "webdev", "reactjs", "javascript")},
	{PersonalityGamer, toSet("gaming", "games", "pcgaming", "ps5", "xbox")},
	{PersonalityNews, toSet("news", "worldnews", "politics", "technology")},
	{PersonalityMemes, toSet("memes", "dankmemes", "funny", "me_irl", "wholesomememes")},
}

// DeterminePersonality labels the user by the communities they frequent,
// falling back to their comment to post ratio
func DeterminePersonality(top []models.SubredditActivity, posts []models.Post, comments []models.Comment) string {
	names := make([]string, 0, len(top))
	for _, subreddit := range top {
		names = append(names, strings.ToLower(subreddit.Name))
	}

	for _, rule := range personalityRules {
		for _, name := range names {
			if _, ok := rule.subreddits[name]; ok {
				return rule.label
			}
		}
	}

	ratio := float64(len(comments)) / float64(max(len(posts), 1))
	switch {
	case ratio > helperRatioThreshold:
		return PersonalityHelper
	case ratio < creatorRatioMaximum:
		return PersonalityCreator
	default:
		return PersonalityExplorer
	}
}

// badgeInput holds everything the badge rules look at
type badgeInput struct {
	accountAgeYears float64
	totalKarma      int
	mostActiveHour  int
	weekend         int
	weekday         int
	posts           int
	comments        int
	avgPostScore    float64
	isGold          bool
}

type badgeRule struct {
	badge     string
	qualifies func(in badgeInput) bool
}

// badgeTiers are evaluated in order. Within a tier only the first qualifying
// badge is awarded, so tiers with several rules are listed highest first.
var badgeTiers = [][]badgeRule{
	{
		{"Decade Club", func(in badgeInput) bool { return in.accountAgeYears >= 10 }},
		{"5 Year Club", func(in badgeInput) bool { return in.accountAgeYears >= 5 }},
		{"1 Year Club", func(in badgeInput) bool { return in.accountAgeYears >= 1 }},
	},
	{
		{"Karma Millionaire", func(in badgeInput) bool { return in.totalKarma >= 100000 }},
		{"High Karma", func(in badgeInput) bool { return in.totalKarma >= 50000 }},
		{"Rising Star", func(in badgeInput) bool { return in.totalKarma >= 10000 }},
	},
	{
		{"Night Owl", func(in badgeInput) bool { return in.mostActiveHour >= 0 && in.mostActiveHour < 6 }},
		{"Early Bird", func(in badgeInput) bool { return in.mostActiveHour >= 6 && in.mostActiveHour < 12 }},
	},
	{{"Weekend Warrior", func(in badgeInput) bool { return in.weekend > in.weekday }}},
	{{"Conversation Starter", func(in badgeInput) bool { return in.comments > in.posts*5 }}},
	{{"Content Machine", func(in badgeInput) bool { return in.posts > in.comments*2 }}},
	{{"Quality Poster", func(in badgeInput) bool { return in.avgPostScore > 100 }}},
	{{"Reddit Premium", func(in badgeInput) bool { return in.isGold }}},
}

// GenerateBadges awards badges for account age, karma, activity timing,
// engagement habits and post quality
func GenerateBadges(profile models.UserProfile, posts []models.Post, comments []models.Comment, pattern models.ActivityPattern, now time.Time) []string {
	weekday := 0
	for _, count := range pattern.DayOfWeek[1:6] {
		weekday += count
	}

	in := badgeInput{
		accountAgeYears: accountAgeYears(profile, now),
		totalKarma:      profile.TotalKarma,
		mostActiveHour:  MaxIndex(pattern.HourOfDay[:]),
		weekend:         pattern.DayOfWeek[0] + pattern.DayOfWeek[6],
		weekday:         weekday,
		posts:           len(posts),
		comments:        len(comments),
		avgPostScore:    float64(sumPostScores(posts)) / float64(max(len(posts), 1)),
		isGold:          profile.IsGold,
	}

	badges := make([]string, 0)
	for _, tier := range badgeTiers {
		for _, rule := range tier {
			if rule.qualifies(in) {
				badges = append(badges, rule.badge)
				break
			}
		}
	}
	return badges
}

// topicCategories map a topic to the keywords that identify it in a subreddit name
var topicCategories = []struct {
	topic    string
	keywords []string
}{
	{"Technology", []string{"programming", "coding", "technology", "webdev", "javascript", "python"}},
	{"Gaming", []string{"gaming", "games", "pcgaming", "ps5", "xbox", "nintendo"}},
	{"News", []string{"news", "worldnews", "politics"}},
	{"Entertainment", []string{"movies", "television", "music", "netflix"}},
	{"Sports", []string{"sports", "nba", "nfl", "soccer", "formula1"}},
	{"Memes", []string{"memes", "dankmemes", "funny", "me_irl"}},
	{"Science", []string{"science", "space", "physics", "askscience"}},
	{"Lifestyle", []string{"fitness", "food", "cooking", "travel"}},
}

const topicSubredditsLimit = 5

// ExtractTopics returns the topic categories matched by the top five
// subreddits, in category order
func ExtractTopics(top []models.SubredditActivity) []string {
	if len(top) > topicSubredditsLimit {
		top = top[:topicSubredditsLimit]
	}

	matched := make(map[string]bool)
	for _, subreddit := range top {
		name := strings.ToLower(subreddit.Name)
		for _, category := range topicCategories {
			if countKeywordHits(name, category.keywords) > 0 {
				matched[category.topic] = true
			}
		}
	}

	topics := make([]string, 0, len(matched))
	for _, category := range topicCategories {
		if matched[category.topic] {
			topics = append(topics, category.topic)
		}
	}
	return topics
}

// ControversialScore is the percentage of posts and comments with a negative score
func ControversialScore(posts []models.Post, comments []models.Comment) int {
	total := len(posts) + len(comments)
	if total == 0 {
		return 0
	}

	negative := 0
	for _, post := range posts {
		if post.Score < 0 {
			negative++
		}
	}
	for _, comment := range comments {
		if comment.Score < 0 {
			negative++
		}
	}
	return roundHalfUp(float64(negative) / float64(total) * 100)
}

// ComputeImpact derives engagement metrics from replies and scores
func ComputeImpact(posts []models.Post, comments []models.Comment) models.ImpactStats {
	impact := models.ImpactStats{
		UniqueInteractions: CountSubreddits(posts, comments),
	}

	upvotes := 0
	for _, post := range posts {
		impact.TotalReplies += post.NumComments
		if post.NumComments > 0 {
			impact.DiscussionsStarted++
		}
		upvotes += max(post.Score, 0)
	}

	commentScore := 0
	for _, comment := range comments {
		commentScore += comment.Score
		upvotes += max(comment.Score, 0)
	}

	impact.TotalEngagement = impact.TotalReplies + upvotes
	if len(posts) > 0 {
		impact.AvgRepliesPerPost = roundTenths(float64(impact.TotalReplies) / float64(len(posts)))
	}
	// comment score stands in for replies
	if len(comments) > 0 {
		impact.AvgRepliesPerComment = roundTenths(float64(commentScore) / float64(len(comments)))
	}
	return impact
}

// milestoneInput holds everything the milestone rules look at
type milestoneInput struct {
	profile    models.UserProfile
	posts      []models.Post
	comments   []models.Comment
	topPost    *models.Post
	topComment *models.Comment
	now        time.Time
}

// milestoneRules are evaluated in display order
var milestoneRules = []func(in milestoneInput) (models.Milestone, bool){
	joinedMilestone,
	firstPostMilestone,
	firstCommentMilestone,
	topPostMilestone,
	topCommentMilestone,
	activityMilestone,
}

// BuildMilestones lists notable moments in the user's history
func BuildMilestones(profile models.UserProfile, posts []models.Post, comments []models.Comment, topPost *models.Post, topComment *models.Comment, now time.Time) []models.Milestone {
	in := milestoneInput{
		profile:    profile,
		posts:      posts,
		comments:   comments,
		topPost:    topPost,
		topComment: topComment,
		now:        now,
	}

	milestones := make([]models.Milestone, 0, len(milestoneRules))
	for _, rule := range milestoneRules {
		if milestone, ok := rule(in); ok {
			milestones = append(milestones, milestone)
		}
	}
	return milestones
}

func joinedMilestone(in milestoneInput) (models.Milestone, bool) {
	if in.profile.CreatedUTC <= 0 {
		return models.Milestone{}, false
	}

	description := "Joined Reddit less than a year ago"
	switch years := AccountAge(in.profile, in.now); {
	case years == 1:
		description = "Joined Reddit 1 year ago"
	case years > 1:
		description = fmt.Sprintf("Joined Reddit %d years ago", years)
	}

	return models.Milestone{
		Title:       "Joined Reddit",
		Description: description,
		Icon:        "🎂",
		Date:        formatDate(in.profile.CreatedUTC),
	}, true
}

func firstPostMilestone(in milestoneInput) (models.Milestone, bool) {
	if len(in.posts) == 0 {
		return models.Milestone{}, false
	}

	first := in.posts[0]
	for _, post := range in.posts[1:] {
		if post.CreatedUTC < first.CreatedUTC {
			first = post
		}
	}

	return models.Milestone{
		Title:       "First Post",
		Description: fmt.Sprintf("%q in r/%s", truncate(first.Title, 60), first.Subreddit),
		Icon:        "📝",
		Date:        formatDate(first.CreatedUTC),
	}, true
}

func firstCommentMilestone(in milestoneInput) (models.Milestone, bool) {
	if len(in.comments) == 0 {
		return models.Milestone{}, false
	}

	first := in.comments[0]
	for _, comment := range in.comments[1:] {
		if comment.CreatedUTC < first.CreatedUTC {
			first = comment
		}
	}

	return models.Milestone{
		Title:       "First Comment",
		Description: fmt.Sprintf("Joined the conversation in r/%s", first.Subreddit),
		Icon:        "💬",
		Date:        formatDate(first.CreatedUTC),
	}, true
}

func topPostMilestone(in milestoneInput) (models.Milestone, bool) {
	if in.topPost == nil || in.topPost.Score <= 0 {
		return models.Milestone{}, false
	}

	return models.Milestone{
		Title:       "Top Post",
		Description: fmt.Sprintf("Your best post earned %d upvotes in r/%s", in.topPost.Score, in.topPost.Subreddit),
		Icon:        "🚀",
		Date:        formatDate(in.topPost.CreatedUTC),
	}, true
}

func topCommentMilestone(in milestoneInput) (models.Milestone, bool) {
	if in.topComment == nil || in.topComment.Score <= 0 {
		return models.Milestone{}, false
	}

	return models.Milestone{
		Title:       "Top Comment",
		Description: fmt.Sprintf("Your best comment earned %d upvotes in r/%s", in.topComment.Score, in.topComment.Subreddit),
		Icon:        "⭐",
		Date:        formatDate(in.topComment.CreatedUTC),
	}, true
}

// activityTiers are listed highest first; only the first reached is shown
var activityTiers = []struct {
	threshold int
	title     string
	icon      string
}{
	{1000, "Reddit Legend", "🏅"},
	{500, "Power User", "⚡"},
	{100, "Century Club", "💯"},
}

func activityMilestone(in milestoneInput) (models.Milestone, bool) {
	contributions := len(in.posts) + len(in.comments)
	for _, tier := range activityTiers {
		if contributions >= tier.threshold {
			return models.Milestone{
				Title:       tier.title,
				Description: fmt.Sprintf("%d+ posts and comments", tier.threshold),
				Icon:        tier.icon,
			}, true
		}
	}
	return models.Milestone{}, false
}

func formatDate(epoch float64) string {
	return fromEpoch(epoch).Format("2006-01-02")
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
