package search

import (
	"regexp"
	"strings"
)

// wordPattern matches runs of word characters, allowing single interior
// dots so that version strings and host names stay one token.
var wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]+(?:\.[\p{L}\p{N}_]+)*`)

// minTokenLength drops single characters, which carry no ranking signal.
const minTokenLength = 2

// stopWords are removed from both documents and queries.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"by": {}, "can": {}, "for": {}, "from": {}, "have": {}, "if": {},
	"in": {}, "is": {}, "it": {}, "may": {}, "not": {}, "of": {}, "on": {},
	"or": {}, "tbd": {}, "that": {}, "the": {}, "this": {}, "to": {},
	"us": {}, "we": {}, "when": {}, "will": {}, "with": {}, "yet": {},
	"you": {}, "your": {},
}

// Token is one analyzed term and its position in the filtered token
// stream. Positions are renumbered after stop words are removed, so a
// phrase query matches across a dropped stop word.
type Token struct {
	Text     string
	Position int
}

// Analyze lowercases text and splits it into tokens.
func Analyze(text string) []Token {
	matches := wordPattern.FindAllString(strings.ToLower(text), -1)

	tokens := make([]Token, 0, len(matches))
	for _, match := range matches {
		if len([]rune(match)) < minTokenLength {
			continue
		}
		if _, stop := stopWords[match]; stop {
			continue
		}
		tokens = append(tokens, Token{Text: match, Position: len(tokens)})
	}
	return tokens
}

// Terms is Analyze without positions.
func Terms(text string) []string {
	tokens := Analyze(text)
	terms := make([]string, len(tokens))
	for i, token := range tokens {
		terms[i] = token.Text
	}
	return terms
}
