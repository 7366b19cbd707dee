package keyword

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/hyperjump/youyaku/internal/models"
)

// indexedSummary is the document shape stored in Bleve.
type indexedSummary struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
	Length  string `json:"length"`
	Mode    string `json:"mode"`
	Source  string `json:"source"`
}

// BleveIndex implements SummaryIndex using Bleve.
type BleveIndex struct {
	index bleve.Index
}

// NewBleveIndex creates or opens a Bleve index at path.
// If you change the index mapping in code, remove the index directory to rebuild it.
func NewBleveIndex(path string) (*BleveIndex, error) {
	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	index, err := bleve.New(path, summaryMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// NewMemoryBleveIndex creates an in-memory index.
func NewMemoryBleveIndex() (*BleveIndex, error) {
	index, err := bleve.NewMemOnly(summaryMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

func summaryMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()

	// Standard analyzer lowercases and tokenizes without stemming, so a query
	// matches the words as the summary wrote them.
	text := bleve.NewTextFieldMapping()
	text.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("title", text)
	docMapping.AddFieldMappingsAt("summary", text)

	kw := bleve.NewKeywordFieldMapping()
	docMapping.AddFieldMappingsAt("length", kw)
	docMapping.AddFieldMappingsAt("mode", kw)
	docMapping.AddFieldMappingsAt("source", kw)

	im.AddDocumentMapping("summary", docMapping)
	im.DefaultType = "summary"
	im.DefaultMapping = docMapping
	return im
}

// Index stores rec under its ID.
func (b *BleveIndex) Index(ctx context.Context, rec *models.SummaryRecord) error {
	return b.index.Index(rec.ID, indexedSummary{
		Title:   rec.Title,
		Summary: rec.Summary,
		Length:  string(rec.Length),
		Mode:    string(rec.Mode),
		Source:  rec.Source,
	})
}

// Search returns up to limit hits for query. With a title boost, title and
// summary matches are scored separately and added.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	var o SearchOptions
	if opts != nil {
		o = *opts
	}
	if o.Fuzzy && o.Fuzziness <= 0 {
		o.Fuzziness = 1
	}
	if o.TitleBoost <= 1 {
		return b.run(b.buildQuery(query, "", o), limit, 1)
	}

	size := limit * 2
	if size < 50 {
		size = 50
	}
	titleHits, err := b.run(b.buildQuery(query, "title", o), size, o.TitleBoost)
	if err != nil {
		return nil, err
	}
	summaryHits, err := b.run(b.buildQuery(query, "summary", o), size, 1)
	if err != nil {
		return nil, err
	}

	scores := make(map[string]float64)
	for _, h := range titleHits {
		scores[h.ID] += h.Score
	}
	for _, h := range summaryHits {
		scores[h.ID] += h.Score
	}
	out := make([]*Result, 0, len(scores))
	for id, s := range scores {
		out = append(out, &Result{ID: id, Score: s})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (b *BleveIndex) run(q blevequery.Query, size int, weight float64) ([]*Result, error) {
	req := bleve.NewSearchRequest(q)
	req.Size = size
	results, err := b.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]*Result, len(results.Hits))
	for i, hit := range results.Hits {
		out[i] = &Result{ID: hit.ID, Score: hit.Score * weight}
	}
	return out, nil
}

// buildQuery returns a match query, or a disjunction of fuzzy term queries when
// fuzzy matching is on. An empty field searches every field.
func (b *BleveIndex) buildQuery(query, field string, o SearchOptions) blevequery.Query {
	terms := strings.Fields(strings.ToLower(query))
	if !o.Fuzzy || len(terms) == 0 {
		mq := bleve.NewMatchQuery(query)
		if field != "" {
			mq.SetField(field)
		}
		return mq
	}
	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(o.Fuzziness)
		if field != "" {
			fq.SetField(field)
		}
		queries = append(queries, fq)
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewDisjunctionQuery(queries...)
}

// TermCounts returns every indexed title and summary term with the number of
// summaries containing it. A term in both fields counts once per field.
func (b *BleveIndex) TermCounts() (map[string]int, error) {
	counts := make(map[string]int)
	for _, field := range []string{"title", "summary"} {
		dict, err := b.index.FieldDict(field)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s terms: %w", field, err)
		}
		for {
			entry, err := dict.Next()
			if err != nil {
				_ = dict.Close()
				return nil, fmt.Errorf("failed to read %s terms: %w", field, err)
			}
			if entry == nil {
				break
			}
			counts[entry.Term] += int(entry.Count)
		}
		if err := dict.Close(); err != nil {
			return nil, err
		}
	}
	return counts, nil
}

// QueryTerms runs query through the analyzer used for summaries, so stop words
// are dropped and case matches the term dictionary.
func (b *BleveIndex) QueryTerms(query string) []string {
	analyzer := b.index.Mapping().AnalyzerNamed(standard.Name)
	if analyzer == nil {
		return strings.Fields(strings.ToLower(query))
	}
	tokens := analyzer.Analyze([]byte(query))
	terms := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		terms = append(terms, string(tok.Term))
	}
	return terms
}

// Delete removes a summary from the index.
func (b *BleveIndex) Delete(ctx context.Context, id string) error {
	return b.index.Delete(id)
}

// DocCount returns the number of indexed summaries.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}
