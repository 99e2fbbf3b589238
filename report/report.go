// Package report renders wrapped stats for the terminal.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/brettboylen/reddit-wrapped/models"
)

var (
	titleColor    = color.New(color.FgHiMagenta, color.Bold)
	headingColor  = color.New(color.FgCyan, color.Bold)
	badgeColor    = color.New(color.FgYellow, color.Bold)
	positiveColor = color.New(color.FgGreen)
	negativeColor = color.New(color.FgRed)
	mutedColor    = color.New(color.FgHiBlack)
)

var dayNames = [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// seasonNames follow the month/3 bucketing used by the activity pattern
var seasonNames = [4]string{"Winter", "Spring", "Summer", "Autumn"}

const maxSnippetLength = 80

// WriteJSON writes the response as indented JSON
func WriteJSON(w io.Writer, resp *models.AnalyzeResponse) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(resp)
}

// WriteText writes a human readable report of the response
func WriteText(w io.Writer, resp *models.AnalyzeResponse) error {
	stats := resp.Stats

	fmt.Fprintf(w, "%s\n", titleColor.Sprintf("Reddit Wrapped for u/%s", resp.Username))
	generated := time.UnixMilli(resp.GeneratedAt).UTC().Format(time.RFC3339)
	fmt.Fprintf(w, "%s\n\n", mutedColor.Sprintf("Generated %s", generated))

	sections := []func(io.Writer, models.WrappedStats) error{
		writeSummary,
		writeSubreddits,
		writeActivity,
		writeInsights,
		writeHighlights,
		writeMilestones,
	}
	for _, section := range sections {
		if err := section(w, stats); err != nil {
			return err
		}
	}
	return nil
}

func heading(w io.Writer, title string) {
	fmt.Fprintf(w, "%s\n", headingColor.Sprint(title))
}

func writeSummary(w io.Writer, stats models.WrappedStats) error {
	heading(w, "Summary")

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Metric", "Value"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	data := [][]string{
		{"Account age", pluralize(stats.AccountAge, "year")},
		{"Total karma", strconv.Itoa(stats.TotalKarma)},
		{"Post karma", strconv.Itoa(stats.PostKarma)},
		{"Comment karma", strconv.Itoa(stats.CommentKarma)},
		{"Posts analyzed", strconv.Itoa(stats.TotalPosts)},
		{"Comments analyzed", strconv.Itoa(stats.TotalComments)},
		{"Avg post score", signed(stats.AvgPostScore)},
		{"Avg comment score", signed(stats.AvgCommentScore)},
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	fmt.Fprintln(w)
	return nil
}

func writeSubreddits(w io.Writer, stats models.WrappedStats) error {
	heading(w, "Top Subreddits")
	if len(stats.TopSubreddits) == 0 {
		fmt.Fprintf(w, "%s\n\n", mutedColor.Sprint("No subreddit activity"))
		return nil
	}

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Rank", "Subreddit", "Posts", "Comments", "Score"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for i, subreddit := range stats.TopSubreddits {
		data = append(data, []string{
			strconv.Itoa(i + 1),
			"r/" + subreddit.Name,
			strconv.Itoa(subreddit.PostCount),
			strconv.Itoa(subreddit.CommentCount),
			signed(subreddit.TotalScore),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	fmt.Fprintln(w)
	return nil
}

func writeActivity(w io.Writer, stats models.WrappedStats) error {
	heading(w, "Activity")
	fmt.Fprintf(w, "Most active hour:   %02d:00 UTC\n", stats.MostActiveHour)
	fmt.Fprintf(w, "Most active day:    %s\n", dayNames[stats.MostActiveDay%len(dayNames)])
	fmt.Fprintf(w, "Most active season: %s\n", seasonNames[stats.MostActiveSeason%len(seasonNames)])

	months := stats.ActivityPattern.MonthlyActivity
	if len(months) > 0 {
		peak := 0
		for _, month := range months {
			peak = max(peak, month.Count)
		}
		fmt.Fprintln(w, "Monthly activity:")
		for _, month := range months {
			fmt.Fprintf(w, "  %s %s %d\n", month.Month, bar(month.Count, peak, 30), month.Count)
		}
	}
	fmt.Fprintln(w)
	return nil
}

func writeInsights(w io.Writer, stats models.WrappedStats) error {
	insights := stats.Insights
	heading(w, "Insights")
	fmt.Fprintf(w, "Personality:   %s\n", insights.Personality)
	fmt.Fprintf(w, "Comment style: %s\n", insights.CommentStyle)
	fmt.Fprintf(w, "Sentiment:     %s\n", signed(insights.SentimentScore))
	fmt.Fprintf(w, "Controversial: %d%%\n", insights.ControversialScore)
	if len(insights.TopicsOfInterest) > 0 {
		fmt.Fprintf(w, "Topics:        %s\n", strings.Join(insights.TopicsOfInterest, ", "))
	}

	if len(insights.Badges) > 0 {
		badges := make([]string, 0, len(insights.Badges))
		for _, badge := range insights.Badges {
			badges = append(badges, badgeColor.Sprint(badge))
		}
		fmt.Fprintf(w, "Badges:        %s\n", strings.Join(badges, " | "))
	}

	if len(insights.TopWords) > 0 {
		words := make([]string, 0, len(insights.TopWords))
		for _, word := range insights.TopWords {
			words = append(words, fmt.Sprintf("%s (%d)", word.Word, word.Count))
		}
		fmt.Fprintf(w, "Top words:     %s\n", strings.Join(words, ", "))
	}

	impact := insights.Impact
	fmt.Fprintf(w, "Engagement:    %d total, %d replies, %d discussions started\n",
		impact.TotalEngagement, impact.TotalReplies, impact.DiscussionsStarted)
	fmt.Fprintf(w, "Per post:      %.1f replies\n", impact.AvgRepliesPerPost)
	fmt.Fprintf(w, "Per comment:   %.1f points\n", impact.AvgRepliesPerComment)
	fmt.Fprintln(w)
	return nil
}

func writeHighlights(w io.Writer, stats models.WrappedStats) error {
	if stats.TopPost == nil && stats.TopComment == nil {
		return nil
	}

	heading(w, "Highlights")
	if post := stats.TopPost; post != nil {
		fmt.Fprintf(w, "Top post (%s in r/%s): %s\n", signed(post.Score), post.Subreddit, snippet(post.Title))
	}
	if comment := stats.TopComment; comment != nil {
		fmt.Fprintf(w, "Top comment (%s in r/%s): %s\n", signed(comment.Score), comment.Subreddit, snippet(comment.Body))
	}
	fmt.Fprintln(w)
	return nil
}

func writeMilestones(w io.Writer, stats models.WrappedStats) error {
	milestones := stats.Insights.Milestones
	if len(milestones) == 0 {
		return nil
	}

	heading(w, "Milestones")
	table := tablewriter.NewWriter(w)
	table.Header([]string{"", "Milestone", "Details", "Date"})

	var data [][]string
	for _, milestone := range milestones {
		data = append(data, []string{milestone.Icon, milestone.Title, snippet(milestone.Description), milestone.Date})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

// WriteCacheStatus writes a table describing the result cache
func WriteCacheStatus(w io.Writer, status models.CacheStatus) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Property", "Value"})

	connected := negativeColor.Sprint("no")
	if status.Connected {
		connected = positiveColor.Sprint("yes")
	}

	data := [][]string{
		{"Backend", status.Backend},
		{"Connected", connected},
		{"Entries", strconv.Itoa(status.TotalEntries)},
		{"Expired", strconv.Itoa(status.ExpiredEntries)},
		{"Oldest entry", formatEpoch(status.OldestEntry)},
		{"Newest entry", formatEpoch(status.NewestEntry)},
		{"Size", formatBytes(status.SizeBytes)},
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

// signed formats a score with an explicit sign, colored by direction
func signed(n int) string {
	switch {
	case n > 0:
		return positiveColor.Sprintf("+%d", n)
	case n < 0:
		return negativeColor.Sprintf("%d", n)
	default:
		return "0"
	}
}

func pluralize(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// bar draws a horizontal bar of at most width cells scaled against peak
func bar(count, peak, width int) string {
	if peak <= 0 || count <= 0 {
		return strings.Repeat(" ", width)
	}
	filled := max(count*width/peak, 1)
	return strings.Repeat("█", filled) + strings.Repeat(" ", width-filled)
}

// snippet collapses whitespace and shortens text for a single table line
func snippet(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= maxSnippetLength {
		return text
	}
	return string(runes[:maxSnippetLength-3]) + "..."
}

// formatEpoch formats epoch seconds, or "-" when unset
func formatEpoch(epoch int64) string {
	if epoch <= 0 {
		return "-"
	}
	return time.Unix(epoch, 0).UTC().Format(time.RFC3339)
}

func formatBytes(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(size)/float64(div), "KMGTPE"[exp])
}
