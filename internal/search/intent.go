package search

import (
	"regexp"
	"strings"
)

var intentPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:search|look up|find|research|investigate|analyze|check out|scout|hunt for|look for|go to|find me)\s+(.+)`),
	regexp.MustCompile(`(?i)(?:what is|what are|who is|who are|how to|how do|why is|why do|when did|where is)\s+(.+)`),
	regexp.MustCompile(`(?i)(?:tell me about|info on|information about|learn about)\s+(.+)`),
	regexp.MustCompile(`(?i)(?:find|get|show)\s+(?:me\s+)?(?:info|information|details|data|opportunities)?\s*(?:on|about|for)?\s*(.+)`),
}

var (
	twitterMention = regexp.MustCompile(`(?i)\s*\b(?:on\s+)?(?:twitter|x)\b\s*`)
	multiSpace     = regexp.MustCompile(`\s+`)
)

// DetectIntent extracts a search query from a chat message. Messages that
// mention twitter, x, tweets or engagement are restricted to twitter.com.
func DetectIntent(message string) (string, bool) {
	lower := strings.ToLower(message)
	for _, p := range intentPatterns {
		m := p.FindStringSubmatch(message)
		if m == nil {
			continue
		}
		query := strings.TrimSpace(m[1])
		if len(query) <= 2 {
			continue
		}
		if mentionsTwitter(lower) {
			query = strings.TrimSpace(twitterMention.ReplaceAllString(query, " "))
			query = multiSpace.ReplaceAllString(query, " ") + " site:twitter.com"
		}
		return query, true
	}
	return "", false
}

func mentionsTwitter(lower string) bool {
	for _, k := range []string{"twitter", " x ", "on x", "tweet", "engagement"} {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}
