package stats

import (
	"sort"

	"github.com/brettboylen/reddit-wrapped/models"
)

const topSubredditsLimit = 10

// AggregateSubreddits groups posts and comments by subreddit and returns the
// most active subreddits, most active first
func AggregateSubreddits(posts []models.Post, comments []models.Comment) []models.SubredditActivity {
	// entries keeps discovery order; the index map only points into it
	entries := make([]models.SubredditActivity, 0)
	index := make(map[string]int)

	lookup := func(name string) *models.SubredditActivity {
		i, exists := index[name]
		if !exists {
			i = len(entries)
			index[name] = i
			entries = append(entries, models.SubredditActivity{Name: name})
		}
		return &entries[i]
	}

	for _, post := range posts {
		activity := lookup(post.Subreddit)
		activity.PostCount++
		activity.TotalScore += post.Score
	}

	for _, comment := range comments {
		activity := lookup(comment.Subreddit)
		activity.CommentCount++
		activity.TotalScore += comment.Score
	}

	return rankSubreddits(entries, topSubredditsLimit)
}

// rankSubreddits sorts subreddits by total activity in descending order and
// returns the top 'limit' entries. Ties keep their discovery order.
func rankSubreddits(entries []models.SubredditActivity, limit int) []models.SubredditActivity {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Total() > entries[j].Total()
	})
	if len(entries) > limit {
		return entries[:limit]
	}
	return entries
}

// CountSubreddits returns the number of distinct subreddits across posts and comments
func CountSubreddits(posts []models.Post, comments []models.Comment) int {
	seen := make(map[string]struct{})
	for _, post := range posts {
		seen[post.Subreddit] = struct{}{}
	}
	for _, comment := range comments {
		seen[comment.Subreddit] = struct{}{}
	}
	return len(seen)
}
