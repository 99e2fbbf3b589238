package stats

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf16"

	"github.com/brettboylen/reddit-wrapped/models"
)

const defaultTopWordsLimit = 20

var (
	positiveWords = []string{
		"love", "great", "awesome", "amazing", "excellent", "wonderful", "fantastic",
		"good", "best", "happy", "thanks", "appreciate", "helped", "perfect",
	}
	negativeWords = []string{
		"hate", "bad", "terrible", "awful", "worst", "horrible", "stupid",
		"dumb", "wrong", "sad", "angry", "annoying", "sucks", "disappointed",
	}
)

// Comment style labels, in evaluation order
const (
	StyleSilentObserver    = "Silent Observer"
	StyleEssayWriter       = "Essay Writer"
	StyleQuickResponder    = "Quick Responder"
	StyleCuriousQuestioner = "Curious Questioner"
	StyleBalancedCommenter = "Balanced Commenter"
)

const (
	essayLengthThreshold   = 500
	quickLengthThreshold   = 50
	questionRatioThreshold = 0.3
)

// SentimentScore scores texts from -100 (all negative) to 100 (all positive).
// Keywords match as case-insensitive substrings, so "goodbye" counts as "good";
// each keyword counts at most once per text.
func SentimentScore(texts []string) float64 {
	positive, negative := 0, 0

	for _, text := range texts {
		lower := strings.ToLower(text)
		positive += countKeywordHits(lower, positiveWords)
		negative += countKeywordHits(lower, negativeWords)
	}

	total := positive + negative
	if total == 0 {
		return 0
	}
	return float64(positive-negative) / float64(total) * 100
}

// countKeywordHits returns how many keywords occur in text
func countKeywordHits(text string, keywords []string) int {
	hits := 0
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			hits++
		}
	}
	return hits
}

// CommentStyle classifies the user's commenting habits by average comment
// length and how often comments ask questions. The first matching rule wins.
func CommentStyle(comments []models.Comment) string {
	if len(comments) == 0 {
		return StyleSilentObserver
	}

	totalLength, questions := 0, 0
	for _, comment := range comments {
		totalLength += textLength(comment.Body)
		if strings.Contains(comment.Body, "?") {
			questions++
		}
	}

	avgLength := float64(totalLength) / float64(len(comments))
	questionRatio := float64(questions) / float64(len(comments))

	switch {
	case avgLength > essayLengthThreshold:
		return StyleEssayWriter
	case avgLength < quickLengthThreshold:
		return StyleQuickResponder
	case questionRatio > questionRatioThreshold:
		return StyleCuriousQuestioner
	default:
		return StyleBalancedCommenter
	}
}

// textLength measures text in UTF-16 code units, the unit Reddit clients count in
func textLength(text string) int {
	n := 0
	for _, r := range text {
		n += max(utf16.RuneLen(r), 1)
	}
	return n
}

var stopwords = toSet(
	"a", "about", "above", "after", "again", "against", "all", "also", "am", "an", "and",
	"any", "are", "aren't", "as", "at", "be", "because", "been", "before", "being",
	"below", "between", "both", "but", "by", "can", "can't", "cannot", "could",
	"couldn't", "did", "didn't", "do", "does", "doesn't", "doing", "don't", "down",
	"during", "each", "even", "few", "for", "from", "further", "get", "got", "had",
	"hadn't", "has", "hasn't", "have", "haven't", "having", "he", "he'd", "he'll",
	"he's", "her", "here", "here's", "hers", "herself", "him", "himself", "his", "how",
	"how's", "i", "i'd", "i'll", "i'm", "i've", "if", "in", "into", "is", "isn't", "it",
	"it's", "its", "itself", "just", "let's", "like", "me", "more", "most", "much",
	"mustn't", "my", "myself", "no", "nor", "not", "now", "of", "off", "on", "once",
	"one", "only", "or", "other", "ought", "our", "ours", "ourselves", "out", "over",
	"own", "really", "same", "shan't", "she", "she'd", "she'll", "she's", "should",
	"shouldn't", "so", "some", "such", "than", "that", "that's", "the", "their",
	"theirs", "them", "themselves", "then", "there", "there's", "these", "they",
	"they'd", "they'll", "they're", "they've", "thing", "things", "think", "this",
	"those", "through", "to", "too", "under", "until", "up", "very", "was", "wasn't",
	"we", "we'd", "we'll", "we're", "we've", "were", "weren't", "what", "what's",
	"when", "when's", "where", "where's", "which", "while", "who", "who's", "whom",
	"why", "why's", "will", "with", "won't", "would", "wouldn't", "yeah", "yes", "you",
	"you'd", "you'll", "you're", "you've", "your", "yours", "yourself", "yourselves",
	// link fragments
	"http", "https", "www", "com", "amp",
)

// TopWords counts the words used across texts and returns the n most frequent,
// ignoring stopwords, numbers and words shorter than three letters. Ties keep
// the order in which words were first used.
func TopWords(texts []string, n int) []models.WordStat {
	if n <= 0 {
		n = defaultTopWordsLimit
	}

	counts := make(map[string]int)
	order := make([]string, 0)

	for _, text := range texts {
		for _, word := range tokenize(text) {
			if _, seen := counts[word]; !seen {
				order = append(order, word)
			}
			counts[word]++
		}
	}

	words := make([]models.WordStat, 0, len(order))
	for _, word := range order {
		words = append(words, models.WordStat{Word: word, Count: counts[word]})
	}
	sort.SliceStable(words, func(i, j int) bool {
		return words[i].Count > words[j].Count
	})

	if len(words) > n {
		words = words[:n]
	}
	return words
}

// tokenize lowercases text and splits it into countable words
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\'' && r != '’'
	})

	words := make([]string, 0, len(fields))
	for _, field := range fields {
		word := strings.Trim(strings.ReplaceAll(field, "’", "'"), "'")
		if len([]rune(word)) < 3 || isNumeric(word) {
			continue
		}
		if _, stop := stopwords[word]; stop {
			continue
		}
		words = append(words, word)
	}
	return words
}

func isNumeric(word string) bool {
	for _, r := range word {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func toSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, word := range words {
		set[word] = struct{}{}
	}
	return set
}
