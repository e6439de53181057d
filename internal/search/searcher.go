package search

import (
	"math"
	"sort"
)

// Okapi BM25 parameters.
const (
	paramK1      = 1.2
	paramB       = 0.75
	paramEpsilon = 0.25
)

// Hit is one ranked match.
type Hit struct {
	Path     string
	Score    float64
	Document int
}

// Search returns the documents matching every non-negated clause of q and
// none of its negated clauses, best first. A limit of zero or less returns
// every match.
func (index *Index) Search(q Query, limit int) []Hit {
	var candidates map[int]struct{}
	positive := 0
	for _, c := range q.clauses {
		if c.negate {
			continue
		}
		matched := index.match(c)
		if candidates == nil {
			candidates = matched
		} else {
			for document := range candidates {
				if _, ok := matched[document]; !ok {
					delete(candidates, document)
				}
			}
		}
		positive++
	}
	if positive == 0 || len(candidates) == 0 {
		return nil
	}
	for _, c := range q.clauses {
		if !c.negate {
			continue
		}
		for document := range index.match(c) {
			delete(candidates, document)
		}
	}

	documents := make([]int, 0, len(candidates))
	for document := range candidates {
		documents = append(documents, document)
	}
	sort.Ints(documents)

	terms := q.Terms()
	hits := make([]Hit, len(documents))
	for i, document := range documents {
		hits[i] = Hit{
			Path:     index.paths[document],
			Score:    index.score(document, terms),
			Document: document,
		}
	}
	// Stable on insertion order so equal scores keep document order.
	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].Score > hits[b].Score
	})

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

// match returns the documents containing the clause's terms, at
// consecutive positions when there is more than one.
func (index *Index) match(c clause) map[int]struct{} {
	matched := make(map[int]struct{})
	if len(c.terms) == 0 {
		return matched
	}

	lists := make([]map[int][]int, len(c.terms))
	for i, term := range c.terms {
		lists[i] = make(map[int][]int)
		for _, p := range index.postings[term] {
			lists[i][p.Document] = p.Positions
		}
	}

	for document, starts := range lists[0] {
		if len(c.terms) == 1 {
			matched[document] = struct{}{}
			continue
		}
		for _, start := range starts {
			if phraseAt(lists, document, start) {
				matched[document] = struct{}{}
				break
			}
		}
	}
	return matched
}

func phraseAt(lists []map[int][]int, document, start int) bool {
	for offset := 1; offset < len(lists); offset++ {
		positions, ok := lists[offset][document]
		if !ok || !containsPosition(positions, start+offset) {
			return false
		}
	}
	return true
}

// containsPosition searches a sorted position list.
func containsPosition(positions []int, want int) bool {
	i := sort.SearchInts(positions, want)
	return i < len(positions) && positions[i] == want
}

// score computes the BM25 score of one document for the query terms.
func (index *Index) score(document int, terms []string) float64 {
	documentCount := float64(len(index.paths))
	documentLength := float64(index.lengths[document])

	var score float64
	for _, term := range terms {
		list := index.postings[term]
		if len(list) == 0 {
			continue
		}
		var frequency float64
		for _, p := range list {
			if p.Document == document {
				frequency = float64(len(p.Positions))
				break
			}
		}
		if frequency == 0 {
			continue
		}

		df := float64(len(list))
		idf := math.Log(1 + (documentCount-df+0.5)/(df+0.5))
		if idf <= 0 {
			idf = paramEpsilon
		}

		norm := 1.0
		if index.averageLength > 0 {
			norm = 1 - paramB + paramB*documentLength/index.averageLength
		}
		score += idf * frequency * (paramK1 + 1) / (frequency + paramK1*norm)
	}
	return score
}
