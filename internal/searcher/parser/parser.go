// Package parser turns raw query text into the ordered word list the query
// processor expects.
package parser

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/filesearch/internal/indexer/tokenizer"
)

type QueryPlan struct {
	Terms    []string
	RawQuery string
}

type Options struct {
	// StopWords drops stop words from the query. It should match the
	// setting the index was built with.
	StopWords bool
}

// Parse splits query into terms using the index tokenizer. Every term must
// match. An upper-case AND between words is accepted and ignored.
func Parse(query string, opts Options) *QueryPlan {
	plan := &QueryPlan{
		Terms:    make([]string, 0),
		RawQuery: query,
	}
	for _, field := range strings.Fields(query) {
		if field == "AND" {
			continue
		}
		for _, tok := range tokenizer.Tokenize(field, tokenizer.Options{StopWords: opts.StopWords}) {
			plan.Terms = append(plan.Terms, tok.Term)
		}
	}
	return plan
}

// Normalized is the canonical form of the plan, used for cache keys.
func (p *QueryPlan) Normalized() string {
	return strings.Join(p.Terms, " ")
}

func (p *QueryPlan) Empty() bool {
	return len(p.Terms) == 0
}
