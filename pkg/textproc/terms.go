package textproc

import (
	"fmt"
	"sort"
	"strings"
)

var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {}, "on": {},
	"at": {}, "to": {}, "for": {}, "is": {}, "are": {}, "was": {}, "were": {},
}

// KeyTerms returns up to maxTerms of the most frequent words in text, skipping
// stop words and words of three characters or fewer. Ties keep first-seen order.
func KeyTerms(text string, maxTerms int) []string {
	if maxTerms <= 0 {
		return nil
	}

	counts := make(map[string]int)
	var order []string
	for _, w := range strings.Fields(strings.ToLower(text)) {
		if _, stop := stopWords[w]; stop || len([]rune(w)) <= 3 {
			continue
		}
		if counts[w] == 0 {
			order = append(order, w)
		}
		counts[w]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > maxTerms {
		order = order[:maxTerms]
	}
	return order
}

// RelatedQuestions returns follow-up study questions about topic.
func RelatedQuestions(topic string) []string {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil
	}
	return []string{
		fmt.Sprintf("What are the main benefits of %s?", topic),
		fmt.Sprintf("How is %s used in practice?", topic),
	}
}
