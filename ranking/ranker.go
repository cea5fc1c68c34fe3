// Package ranking orders catalog options against a partial query for
// interactive completion.
//
// Two modes exist. ModeToken is the default relevance ranking built on the
// shared token rules. ModeSimple is a minimal starts-with/contains filter kept
// as a fallback. Both modes switch to code-prefix matching when the query is
// only digits, since pack codes are typed progressively.
package ranking

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/giygas/omeq-api/index"
	"github.com/giygas/omeq-api/textnorm"
)

// DefaultMaxResults is the suggestion list length used when none is configured.
const DefaultMaxResults = 25

// Scoring weights
const (
	textTokenPoints     = 1
	numericTokenPoints  = 2
	requiredTokenPoints = 3
	wholeQueryPoints    = 6

	wholeQueryMinLength   = 8
	meaningfulTokenLength = 4
	maxRequiredTextTokens = 2
)

// Mode selects the ranking algorithm.
type Mode string

const (
	ModeToken  Mode = "token"
	ModeSimple Mode = "simple"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeToken, "":
		return ModeToken, nil
	case ModeSimple:
		return ModeSimple, nil
	}
	return "", fmt.Errorf("unknown search mode %q, expected %q or %q", s, ModeToken, ModeSimple)
}

var (
	pureNumericRegex = regexp.MustCompile(`^0*(\d+)$`)
	decimalRegex     = regexp.MustCompile(`^\d+\.\d+$`)
)

// unitWords never count as meaningful free text
var unitWords = map[string]struct{}{
	"mg": {}, "g": {}, "mcg": {}, "ug": {}, "µg": {}, "mikrog": {}, "mikrogram": {},
	"ml": {}, "dose": {}, "t": {}, "time": {},
}

func isUnitWord(tok string) bool {
	_, ok := unitWords[tok]
	return ok
}

// Suggestion is one ranked option. Score is zero on the code-prefix path.
type Suggestion struct {
	Option *index.Option
	Score  int
}

// Ranker ranks with a fixed mode and result limit. It holds no state between calls.
type Ranker struct {
	Mode       Mode
	MaxResults int
}

// NewRanker creates a ranker. A non-positive limit means DefaultMaxResults.
func NewRanker(mode Mode, maxResults int) *Ranker {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	if mode == "" {
		mode = ModeToken
	}
	return &Ranker{Mode: mode, MaxResults: maxResults}
}

// Rank ranks the query with the ranker's mode and limit.
func (r *Ranker) Rank(query string, idx *index.Index) []Suggestion {
	return r.RankN(query, idx, r.MaxResults)
}

// RankN ranks with an explicit limit.
func (r *Ranker) RankN(query string, idx *index.Index, maxResults int) []Suggestion {
	if r.Mode == ModeSimple {
		return RankSimple(query, idx, maxResults)
	}
	return Rank(query, idx, maxResults)
}

// CodePrefix returns the digits of a pure numeric query without leading zeros.
func CodePrefix(query string) (string, bool) {
	m := pureNumericRegex.FindStringSubmatch(strings.TrimSpace(query))
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Rank returns options ordered by relevance to the query. Options that fail a
// required token are excluded, and so are options that score zero because no
// query token matched them. A non-positive maxResults returns every match.
func Rank(query string, idx *index.Index, maxResults int) []Suggestion {
	if idx == nil {
		return []Suggestion{}
	}
	if prefix, ok := CodePrefix(query); ok {
		return rankByCode(prefix, idx, maxResults)
	}

	tokens := textnorm.Tokenize(query)
	if len(tokens) == 0 {
		return []Suggestion{}
	}

	q := analyzeQuery(tokens)
	qNorm := textnorm.Normalize(query)
	wholeQuery := utf8.RuneCountInString(qNorm) >= wholeQueryMinLength

	results := make([]Suggestion, 0, 32)
	for _, pos := range candidatePositions(q, idx) {
		opt := idx.Option(pos)
		score, ok := scoreOption(q, opt)
		if !ok {
			continue
		}
		if wholeQuery && strings.Contains(opt.Normalized, qNorm) {
			score += wholeQueryPoints
		}
		// Nothing in the query matched this option
		if score == 0 {
			continue
		}
		results = append(results, Suggestion{Option: opt, Score: score})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Option.Seq < results[j].Option.Seq
	})

	return truncate(results, maxResults)
}

// parsedQuery is a tokenized query split into the parts scoring cares about
type parsedQuery struct {
	tokens           []string
	requiredText     []string
	requiredStrength []string
}

func analyzeQuery(tokens []string) parsedQuery {
	q := parsedQuery{tokens: tokens}

	for _, t := range tokens {
		if textnorm.IsNumericToken(t) || isUnitWord(t) {
			continue
		}
		if utf8.RuneCountInString(t) < meaningfulTokenLength {
			continue
		}
		q.requiredText = append(q.requiredText, t)
		if len(q.requiredText) == maxRequiredTextTokens {
			break
		}
	}

	// A number directly followed by a unit wins over a bare decimal
	for i := 0; i < len(tokens)-1; i++ {
		if textnorm.IsNumericToken(tokens[i]) && isUnitWord(tokens[i+1]) {
			q.requiredStrength = []string{tokens[i]}
			return q
		}
	}
	for _, t := range tokens {
		if decimalRegex.MatchString(t) {
			q.requiredStrength = []string{t}
			break
		}
	}

	return q
}

// candidatePositions narrows the scan with the token map when a strength is required
func candidatePositions(q parsedQuery, idx *index.Index) []int {
	if len(q.requiredStrength) > 0 {
		return idx.OptionsWithToken(q.requiredStrength[0])
	}
	all := make([]int, len(idx.Options()))
	for i := range all {
		all[i] = i
	}
	return all
}

func scoreOption(q parsedQuery, opt *index.Option) (int, bool) {
	hay := opt.Normalized
	hayTokens := opt.Tokens

	for _, t := range q.requiredText {
		if !textnorm.TokenMatches(hayTokens, t) && !strings.Contains(hay, t) {
			return 0, false
		}
	}
	for _, t := range q.requiredStrength {
		if !textnorm.TokenMatches(hayTokens, t) {
			return 0, false
		}
	}

	score := 0
	for _, t := range q.tokens {
		if textnorm.IsNumericToken(t) {
			if textnorm.ContainsToken(hayTokens, t) {
				score += numericTokenPoints
			}
		} else if strings.Contains(hay, t) {
			score += textTokenPoints
		}
	}
	score += requiredTokenPoints * len(q.requiredText)
	for _, t := range q.requiredStrength {
		if textnorm.ContainsToken(hayTokens, t) {
			score += requiredTokenPoints
		}
	}

	return score, true
}

// rankByCode keeps options whose code starts with the prefix: exact code first,
// then shorter codes, then label order.
func rankByCode(prefix string, idx *index.Index, maxResults int) []Suggestion {
	matches := make([]Suggestion, 0, 16)
	for i := range idx.Options() {
		opt := idx.Option(i)
		if opt.Code != "" && strings.HasPrefix(opt.Code, prefix) {
			matches = append(matches, Suggestion{Option: opt})
		}
	}

	if len(matches) == 0 {
		entry, ok := idx.LookupCode(prefix)
		if !ok {
			return []Suggestion{}
		}
		label := index.Label(entry.Product, entry.Variant.Strength, prefix)
		for i := range idx.Options() {
			if opt := idx.Option(i); opt.Label == label {
				return []Suggestion{{Option: opt}}
			}
		}
		return []Suggestion{}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i].Option, matches[j].Option
		aExact, bExact := a.Code == prefix, b.Code == prefix
		if aExact != bExact {
			return aExact
		}
		if len(a.Code) != len(b.Code) {
			return len(a.Code) < len(b.Code)
		}
		return a.Position < b.Position
	})

	return truncate(matches, maxResults)
}

// RankSimple lists options whose label starts with the query, then those that
// contain it, both in label order. An empty query lists the first options.
func RankSimple(query string, idx *index.Index, maxResults int) []Suggestion {
	if idx == nil {
		return []Suggestion{}
	}
	if prefix, ok := CodePrefix(query); ok {
		return rankByCode(prefix, idx, maxResults)
	}

	q := strings.ToLower(strings.TrimSpace(query))
	starts := make([]Suggestion, 0, 16)
	contains := make([]Suggestion, 0, 16)

	for i := range idx.Options() {
		opt := idx.Option(i)
		label := strings.ToLower(opt.Label)
		switch {
		case strings.HasPrefix(label, q):
			starts = append(starts, Suggestion{Option: opt})
		case strings.Contains(label, q):
			contains = append(contains, Suggestion{Option: opt})
		}
	}

	return truncate(append(starts, contains...), maxResults)
}

func truncate(results []Suggestion, maxResults int) []Suggestion {
	if maxResults > 0 && len(results) > maxResults {
		return results[:maxResults]
	}
	return results
}
