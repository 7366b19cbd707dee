package keyword

import (
	"strings"
	"sync"
	"unicode/utf8"
)

// TermDictionary is the vocabulary a SpellChecker corrects against.
type TermDictionary interface {
	// TermCounts returns each indexed term with its document frequency.
	TermCounts() (map[string]int, error)
	// QueryTerms splits a query the way indexed text was split.
	QueryTerms(query string) []string
	DocCount() (uint64, error)
}

// SpellChecker suggests corrected history queries ("Did you mean?") from the
// terms of archived summaries.
type SpellChecker struct {
	dictionary  TermDictionary
	maxDistance int
	minFreq     int
	minLength   int

	mu       sync.Mutex
	terms    map[string]int
	cachedAt uint64
	cached   bool
}

// SpellCheckerOption configures a SpellChecker.
type SpellCheckerOption func(*SpellChecker)

// WithMaxDistance sets the largest edit distance a suggestion may be from the typed term.
func WithMaxDistance(d int) SpellCheckerOption {
	return func(s *SpellChecker) {
		if d > 0 {
			s.maxDistance = d
		}
	}
}

// WithMinFrequency ignores dictionary terms found in fewer than f summaries.
func WithMinFrequency(f int) SpellCheckerOption {
	return func(s *SpellChecker) {
		if f > 0 {
			s.minFreq = f
		}
	}
}

// NewSpellChecker creates a SpellChecker over dict. Defaults: distance 2,
// frequency 1, and terms shorter than 3 runes are never corrected.
func NewSpellChecker(dict TermDictionary, opts ...SpellCheckerOption) *SpellChecker {
	s := &SpellChecker{
		dictionary:  dict,
		maxDistance: 2,
		minFreq:     1,
		minLength:   3,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// vocabulary returns the cached term counts, reloading them when the number of
// indexed summaries has changed since the last load.
func (s *SpellChecker) vocabulary() (map[string]int, error) {
	n, err := s.dictionary.DocCount()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached && s.cachedAt == n {
		return s.terms, nil
	}
	terms, err := s.dictionary.TermCounts()
	if err != nil {
		return nil, err
	}
	s.terms, s.cachedAt, s.cached = terms, n, true
	return terms, nil
}

// Suggest returns the closest known term to term, or "" when term is known,
// too short, or has no neighbour within the edit distance. Ties prefer the
// more frequent term, then the alphabetically first.
func (s *SpellChecker) Suggest(term string) (string, error) {
	vocab, err := s.vocabulary()
	if err != nil {
		return "", err
	}
	return s.closest(vocab, strings.ToLower(term)), nil
}

func (s *SpellChecker) closest(vocab map[string]int, term string) string {
	if _, ok := vocab[term]; ok {
		return ""
	}
	n := utf8.RuneCountInString(term)
	if n < s.minLength {
		return ""
	}
	best, bestDist, bestFreq := "", s.maxDistance+1, 0
	for cand, freq := range vocab {
		if freq < s.minFreq {
			continue
		}
		diff := utf8.RuneCountInString(cand) - n
		if diff < -s.maxDistance || diff > s.maxDistance {
			continue
		}
		d := EditDistance(term, cand)
		if d > s.maxDistance {
			continue
		}
		if d < bestDist || (d == bestDist && (freq > bestFreq || (freq == bestFreq && cand < best))) {
			best, bestDist, bestFreq = cand, d, freq
		}
	}
	return best
}

// Check returns the corrected query and whether any term changed. The
// corrected query is built from the analyzed terms, so stop words are gone.
func (s *SpellChecker) Check(query string) (string, bool, error) {
	terms := s.dictionary.QueryTerms(query)
	if len(terms) == 0 {
		return query, false, nil
	}
	vocab, err := s.vocabulary()
	if err != nil {
		return "", false, err
	}
	changed := false
	out := make([]string, len(terms))
	for i, term := range terms {
		out[i] = term
		if fix := s.closest(vocab, term); fix != "" {
			out[i] = fix
			changed = true
		}
	}
	if !changed {
		return query, false, nil
	}
	return strings.Join(out, " "), true, nil
}
