// Package analysis extracts lexical features from candidate answers. Everything here is a
// pure function of the input text.
package analysis

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Sentiment is the coarse polarity of an answer.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// Features is the analyzer output for one answer.
type Features struct {
	Keywords          []string  `json:"keywords"`
	Sentiment         Sentiment `json:"sentiment"`
	Specificity       float64   `json:"specificity"`
	TechnicalTerms    []string  `json:"technical_terms"`
	HasExamples       bool      `json:"has_examples"`
	WordCount         int       `json:"word_count"`
	CharLength        int       `json:"char_length"`
	EnthusiasmCount   int       `json:"enthusiasm_count"`
	SentenceCount     int       `json:"sentence_count"`
	AvgSentenceLength float64   `json:"avg_sentence_length"`
}

// Vocabulary is the set of word lists the analyzer matches against.
type Vocabulary struct {
	Keywords        []string
	TechnicalTerms  []string
	Positive        []string
	Negative        []string
	Specific        []string
	Vague           []string
	Enthusiasm      []string
	ExamplePatterns []string
}

// DefaultVocabulary returns the built-in interview vocabulary.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Keywords: []string{
			"experience", "project", "team", "leadership", "problem", "solution",
			"technology", "skill", "challenge", "success", "failure", "learn",
			"improve", "develop", "manage", "collaborate", "communicate",
		},
		TechnicalTerms: []string{
			"javascript", "python", "react", "node.js", "aws", "docker", "kubernetes",
			"agile", "scrum", "git", "api", "database", "frontend", "backend",
			"machine learning", "ai", "cloud", "devops", "ci/cd",
		},
		Positive:        []string{"excited", "passionate", "love", "enjoy", "successful", "achieved", "improved"},
		Negative:        []string{"difficult", "challenging", "failed", "struggled", "problem", "issue"},
		Specific:        []string{"specifically", "for example", "in detail", "concrete", "particular"},
		Vague:           []string{"maybe", "perhaps", "kind of", "sort of", "generally"},
		Enthusiasm:      []string{"excited", "passionate", "love", "enjoy", "thrilled", "amazing"},
		ExamplePatterns: []string{"for example", "such as", "like when", "specifically", "in one case"},
	}
}

// Analyzer computes Features. It holds no mutable state and is safe for concurrent use.
type Analyzer struct {
	vocab    Vocabulary
	examples *regexp.Regexp
	specific [][]string
	vague    [][]string
	positive map[string]struct{}
	negative map[string]struct{}
	enthuse  map[string]struct{}
}

// New builds an Analyzer over vocab.
func New(vocab Vocabulary) *Analyzer {
	quoted := make([]string, 0, len(vocab.ExamplePatterns))
	for _, p := range vocab.ExamplePatterns {
		quoted = append(quoted, regexp.QuoteMeta(p))
	}
	pattern := "$^"
	if len(quoted) > 0 {
		pattern = "(?i)(" + strings.Join(quoted, "|") + ")"
	}
	return &Analyzer{
		vocab:    vocab,
		examples: regexp.MustCompile(pattern),
		specific: phrases(vocab.Specific),
		vague:    phrases(vocab.Vague),
		positive: set(vocab.Positive),
		negative: set(vocab.Negative),
		enthuse:  set(vocab.Enthusiasm),
	}
}

// NewDefault builds an Analyzer over DefaultVocabulary.
func NewDefault() *Analyzer { return New(DefaultVocabulary()) }

// Analyze extracts the features of text.
func (a *Analyzer) Analyze(text string) Features {
	words := Tokenize(text)
	sentences, avg := sentenceStats(text)

	return Features{
		Keywords:          matchTerms(a.vocab.Keywords, words),
		Sentiment:         a.sentiment(words),
		Specificity:       a.specificity(words),
		TechnicalTerms:    matchTerms(a.vocab.TechnicalTerms, words),
		HasExamples:       a.examples.MatchString(text),
		WordCount:         len(words),
		CharLength:        utf8.RuneCountInString(text),
		EnthusiasmCount:   countIn(words, a.enthuse),
		SentenceCount:     sentences,
		AvgSentenceLength: avg,
	}
}

// Keywords returns only the vocabulary keywords present in text.
func (a *Analyzer) Keywords(text string) []string {
	return matchTerms(a.vocab.Keywords, Tokenize(text))
}

// SentimentOf returns only the sentiment of text.
func (a *Analyzer) SentimentOf(text string) Sentiment {
	return a.sentiment(Tokenize(text))
}

func (a *Analyzer) sentiment(words []string) Sentiment {
	pos := countIn(words, a.positive)
	neg := countIn(words, a.negative)
	switch {
	case pos > neg:
		return SentimentPositive
	case neg > pos:
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

func (a *Analyzer) specificity(words []string) float64 {
	specific := countPhrases(words, a.specific)
	vague := countPhrases(words, a.vague)
	v := float64(specific-vague+1) / 2
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// matchTerms keeps the terms, in vocabulary order, that contain or are contained by some word.
func matchTerms(terms, words []string) []string {
	out := []string{}
	for _, term := range terms {
		for _, w := range words {
			if strings.Contains(w, term) || strings.Contains(term, w) {
				out = append(out, term)
				break
			}
		}
	}
	return out
}

func countIn(words []string, lexicon map[string]struct{}) int {
	n := 0
	for _, w := range words {
		if _, ok := lexicon[w]; ok {
			n++
		}
	}
	return n
}

// countPhrases counts whole-word occurrences of each phrase in the token stream.
func countPhrases(words []string, list [][]string) int {
	n := 0
	for _, p := range list {
		if len(p) == 0 {
			continue
		}
		for i := 0; i+len(p) <= len(words); i++ {
			match := true
			for j := range p {
				if words[i+j] != p[j] {
					match = false
					break
				}
			}
			if match {
				n++
			}
		}
	}
	return n
}

func phrases(list []string) [][]string {
	out := make([][]string, 0, len(list))
	for _, p := range list {
		out = append(out, strings.Fields(strings.ToLower(p)))
	}
	return out
}

func set(list []string) map[string]struct{} {
	m := make(map[string]struct{}, len(list))
	for _, w := range list {
		m[strings.ToLower(w)] = struct{}{}
	}
	return m
}
