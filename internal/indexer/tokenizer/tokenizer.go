// Package tokenizer splits document and query text into index terms.
// Text is NFKC-normalised and lower-cased, then segmented on Unicode word
// boundaries. Segments without a letter or digit are dropped.
package tokenizer

import (
	"strings"
	"unicode"

	"github.com/clipperhouse/uax29/v2/words"
	"golang.org/x/text/unicode/norm"
)

// MaxTermLength bounds a single term in bytes. Longer segments are dropped.
const MaxTermLength = 256

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "by": {}, "for": {}, "from": {}, "has": {}, "he": {},
	"in": {}, "is": {}, "it": {}, "its": {}, "of": {}, "on": {},
	"or": {}, "that": {}, "the": {}, "to": {}, "was": {}, "were": {},
	"will": {}, "with": {}, "this": {}, "but": {}, "they": {},
	"have": {}, "had": {}, "what": {}, "when": {}, "where": {},
	"who": {}, "which": {}, "their": {}, "if": {}, "each": {},
	"do": {}, "not": {}, "no": {}, "so": {}, "can": {},
}

type Options struct {
	StopWords bool
}

// Token is a term and its ordinal position in the source text.
type Token struct {
	Term     string
	Position int
}

func IsStopWord(term string) bool {
	_, ok := stopWords[term]
	return ok
}

// Normalize returns the form terms are indexed under.
func Normalize(s string) string {
	return strings.ToLower(norm.NFKC.String(s))
}

// Tokenize breaks text into terms. Dropped stop words still consume a
// position.
func Tokenize(text string, opts Options) []Token {
	segs := words.FromString(Normalize(text))
	var tokens []Token
	pos := 0
	for segs.Next() {
		term := segs.Value()
		if !isWord(term) || len(term) > MaxTermLength {
			continue
		}
		if opts.StopWords && IsStopWord(term) {
			pos++
			continue
		}
		tokens = append(tokens, Token{Term: term, Position: pos})
		pos++
	}
	return tokens
}

func isWord(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
