package analysis

import (
	"regexp"
	"strings"
)

const edgePunct = ".,!?;:\"'`()[]{}<>"

var sentenceSplit = regexp.MustCompile(`[.!?]+`)

// Tokenize lowercases text, splits it on whitespace and strips edge punctuation from each
// word, so "node.js," becomes "node.js". Words left empty are dropped.
func Tokenize(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if w := strings.Trim(f, edgePunct); w != "" {
			out = append(out, w)
		}
	}
	return out
}

// sentenceStats splits on runs of terminal punctuation and returns the number of non-blank
// sentences and their mean word count.
func sentenceStats(text string) (int, float64) {
	var count, words int
	for _, s := range sentenceSplit.Split(text, -1) {
		if strings.TrimSpace(s) == "" {
			continue
		}
		count++
		words += len(strings.Fields(s))
	}
	if count == 0 {
		return 0, 0
	}
	return count, float64(words) / float64(count)
}
