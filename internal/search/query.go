package search

import (
	"fmt"
	"strings"
	"unicode"
)

// Query is a parsed search phrase.
type Query struct {
	raw     string
	clauses []clause
}

// clause is one term or phrase. A clause with several terms matches only
// where the terms occur at consecutive positions.
type clause struct {
	terms  []string
	negate bool
}

// Parse parses phrase against the content field.
func Parse(phrase string) (Query, error) {
	query := Query{raw: phrase}
	if strings.TrimSpace(phrase) == "" {
		return query, fmt.Errorf("%w: empty phrase", ErrQuery)
	}

	runes := []rune(phrase)
	for i := 0; i < len(runes); {
		if unicode.IsSpace(runes[i]) {
			i++
			continue
		}

		negate := false
		if runes[i] == '-' || runes[i] == '+' {
			negate = runes[i] == '-'
			i++
			if i == len(runes) || unicode.IsSpace(runes[i]) {
				return query, fmt.Errorf("%w: dangling %q at offset %d", ErrQuery, runes[i-1], i-1)
			}
		}

		var text string
		if runes[i] == '"' {
			end := i + 1
			for end < len(runes) && runes[end] != '"' {
				end++
			}
			if end == len(runes) {
				return query, fmt.Errorf("%w: unterminated quote at offset %d", ErrQuery, i)
			}
			text = string(runes[i+1 : end])
			i = end + 1
		} else {
			end := i
			for end < len(runes) && !unicode.IsSpace(runes[end]) {
				end++
			}
			text = string(runes[i:end])
			i = end
		}

		// Stop words and punctuation analyze to nothing and are dropped.
		if terms := Terms(text); len(terms) > 0 {
			query.clauses = append(query.clauses, clause{terms: terms, negate: negate})
		}
	}
	return query, nil
}

// MustParse is Parse for phrases known to be valid.
func MustParse(phrase string) Query {
	query, err := Parse(phrase)
	if err != nil {
		panic(err)
	}
	return query
}

// Terms returns the distinct terms of the non-negated clauses in order of
// appearance.
func (q Query) Terms() []string {
	seen := make(map[string]struct{})
	var terms []string
	for _, c := range q.clauses {
		if c.negate {
			continue
		}
		for _, term := range c.terms {
			if _, ok := seen[term]; !ok {
				seen[term] = struct{}{}
				terms = append(terms, term)
			}
		}
	}
	return terms
}

// String renders the parsed query in a normalized form.
func (q Query) String() string {
	parts := make([]string, 0, len(q.clauses))
	for _, c := range q.clauses {
		text := strings.Join(c.terms, " ")
		if len(c.terms) > 1 {
			text = `"` + text + `"`
		}
		if c.negate {
			text = "-" + text
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, " AND ")
}
