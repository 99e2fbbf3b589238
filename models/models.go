package models

// UserProfile represents a Reddit user's profile metadata
type UserProfile struct {
	Name         string  `json:"name"`
	CreatedUTC   float64 `json:"created_utc"`
	LinkKarma    int     `json:"link_karma"`
	CommentKarma int     `json:"comment_karma"`
	TotalKarma   int     `json:"total_karma"`
	IsGold       bool    `json:"is_gold"`
	IsMod        bool    `json:"is_mod"`
	Verified     bool    `json:"verified"`
}

// Post represents a Reddit post submitted by the user
type Post struct {
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

// Comment represents a Reddit comment written by the user
type Comment struct {
	ID         string  `json:"id"`
	Body       string  `json:"body"`
	Subreddit  string  `json:"subreddit"`
	Score      int     `json:"score"`
	CreatedUTC float64 `json:"created_utc"`
	Permalink  string  `json:"permalink"`
}

// SubredditActivity holds the user's activity within a single subreddit
type SubredditActivity struct {
	Name         string `json:"name"`
	PostCount    int    `json:"postCount"`
	CommentCount int    `json:"commentCount"`
	TotalScore   int    `json:"totalScore"`
}

// Total returns the number of posts and comments in the subreddit
func (s SubredditActivity) Total() int {
	return s.PostCount + s.CommentCount
}

// MonthlyCount is the number of posts and comments in a "YYYY-MM" month
type MonthlyCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

// ActivityPattern holds activity bucketed by time
type ActivityPattern struct {
	HourOfDay        [24]int        `json:"hourOfDay"`
	DayOfWeek        [7]int         `json:"dayOfWeek"`
	MonthlyActivity  []MonthlyCount `json:"monthlyActivity"`
	SeasonalActivity [4]int         `json:"seasonalActivity"`
}

// WordStat is a word and the number of times it was used
type WordStat struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// Milestone is a notable event in the user's history
type Milestone struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Date        string `json:"date,omitempty"`
}

// ImpactStats holds engagement metrics
type ImpactStats struct {
	TotalEngagement      int     `json:"totalEngagement"`
	TotalReplies         int     `json:"totalReplies"`
	AvgRepliesPerPost    float64 `json:"avgRepliesPerPost"`
	AvgRepliesPerComment float64 `json:"avgRepliesPerComment"`
	UniqueInteractions   int     `json:"uniqueInteractions"`
	DiscussionsStarted   int     `json:"discussionsStarted"`
}

// UserInsights holds the derived personality, badges and text insights
type UserInsights struct {
	Personality        string      `json:"personality"`
	Badges             []string    `json:"badges"`
	CommentStyle       string      `json:"commentStyle"`
	TopicsOfInterest   []string    `json:"topicsOfInterest"`
	ControversialScore int         `json:"controversialScore"`
	SentimentScore     int         `json:"sentimentScore"`
	TopWords           []WordStat  `json:"topWords"`
	Milestones         []Milestone `json:"milestones"`
	Impact             ImpactStats `json:"impact"`
}

// WrappedStats is the complete summary of a user's Reddit activity
type WrappedStats struct {
	TotalPosts       int                 `json:"totalPosts"`
	TotalComments    int                 `json:"totalComments"`
	TotalKarma       int                 `json:"totalKarma"`
	PostKarma        int                 `json:"postKarma"`
	CommentKarma     int                 `json:"commentKarma"`
	TopSubreddits    []SubredditActivity `json:"topSubreddits"`
	TopPost          *Post               `json:"topPost"`
	TopComment       *Comment            `json:"topComment"`
	AccountAge       int                 `json:"accountAge"`
	ActivityPattern  ActivityPattern     `json:"activityPattern"`
	Insights         UserInsights        `json:"insights"`
	AvgPostScore     int                 `json:"avgPostScore"`
	AvgCommentScore  int                 `json:"avgCommentScore"`
	MostActiveHour   int                 `json:"mostActiveHour"`
	MostActiveDay    int                 `json:"mostActiveDay"`
	MostActiveSeason int                 `json:"mostActiveSeason"`
}
