// Package tokenizer normalises free text into search terms. Text is
// lower-cased, ASCII punctuation is deleted, the result is split on
// whitespace, and stop-words are dropped. The same rules are used to build the
// indexes and to process queries, so a query term matches an index key
// byte-for-byte.
package tokenizer

import (
	"strings"
)

const punctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

var stopWords = map[string]struct{}{
	"a": {}, "about": {}, "above": {}, "after": {}, "again": {}, "against": {},
	"ain": {}, "all": {}, "am": {}, "an": {}, "and": {}, "any": {}, "are": {},
	"aren": {}, "as": {}, "at": {}, "be": {}, "because": {}, "been": {},
	"before": {}, "being": {}, "below": {}, "between": {}, "both": {},
	"but": {}, "by": {}, "can": {}, "couldn": {}, "d": {}, "did": {},
	"didn": {}, "do": {}, "does": {}, "doesn": {}, "doing": {}, "don": {},
	"down": {}, "during": {}, "each": {}, "few": {}, "for": {}, "from": {},
	"further": {}, "had": {}, "hadn": {}, "has": {}, "hasn": {}, "have": {},
	"haven": {}, "having": {}, "he": {}, "her": {}, "here": {}, "hers": {},
	"herself": {}, "him": {}, "himself": {}, "his": {}, "how": {}, "i": {},
	"if": {}, "in": {}, "into": {}, "is": {}, "isn": {}, "it": {}, "its": {},
	"itself": {}, "just": {}, "ll": {}, "m": {}, "ma": {}, "me": {},
	"mightn": {}, "more": {}, "most": {}, "mustn": {}, "my": {}, "myself": {},
	"needn": {}, "no": {}, "nor": {}, "not": {}, "now": {}, "o": {}, "of": {},
	"off": {}, "on": {}, "once": {}, "only": {}, "or": {}, "other": {},
	"our": {}, "ours": {}, "ourselves": {}, "out": {}, "over": {}, "own": {},
	"re": {}, "s": {}, "same": {}, "shan": {}, "she": {}, "should": {},
	"shouldn": {}, "so": {}, "some": {}, "such": {}, "t": {}, "than": {},
	"that": {}, "the": {}, "their": {}, "theirs": {}, "them": {},
	"themselves": {}, "then": {}, "there": {}, "these": {}, "they": {},
	"this": {}, "those": {}, "through": {}, "to": {}, "too": {}, "under": {},
	"until": {}, "up": {}, "ve": {}, "very": {}, "was": {}, "wasn": {},
	"we": {}, "were": {}, "weren": {}, "what": {}, "when": {}, "where": {},
	"which": {}, "while": {}, "who": {}, "whom": {}, "why": {}, "will": {},
	"with": {}, "won": {}, "wouldn": {}, "y": {}, "you": {}, "your": {},
	"yours": {}, "yourself": {}, "yourselves": {},
}

// Token represents a single normalised term and its position among all the
// words of the original text. Stop-words are not emitted but still occupy a
// position, so two tokens separated by a stop-word are not adjacent.
type Token struct {
	Term     string
	Position int
}

// Tokenize breaks text into content Tokens with their word positions.
func Tokenize(text string) []Token {
	words := Words(text)
	tokens := make([]Token, 0, len(words))
	for pos, word := range words {
		if IsStopword(word) {
			continue
		}
		tokens = append(tokens, Token{
			Term:     word,
			Position: pos,
		})
	}
	return tokens
}

// Terms returns the content terms of text in order, duplicates included.
func Terms(text string) []string {
	words := Words(text)
	terms := make([]string, 0, len(words))
	for _, word := range words {
		if !IsStopword(word) {
			terms = append(terms, word)
		}
	}
	return terms
}

// Words returns every normalised word of text, stop-words included.
func Words(text string) []string {
	return strings.Fields(Normalize(text))
}

// Normalize lower-cases text and deletes ASCII punctuation.
func Normalize(text string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x80 && strings.ContainsRune(punctuation, r) {
			return -1
		}
		return r
	}, strings.ToLower(text))
}

// IsStopword reports whether word is in the stop-word set.
func IsStopword(word string) bool {
	_, ok := stopWords[word]
	return ok
}

// FeatureKey normalises a structured feature value (brand, origin, material)
// into a single index key by concatenating its content terms, so "Good Foods"
// and "goodfoods" share the key "goodfoods".
func FeatureKey(value string) string {
	return strings.Join(Terms(value), "")
}
