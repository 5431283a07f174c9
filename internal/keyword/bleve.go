package keyword

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/hyperjump/wantokmatch/internal/models"
)

// Indexed job fields.
const (
	fieldTitle       = "title"
	fieldDescription = "description"
	fieldLocation    = "location"
	fieldCompany     = "company_name"
	fieldSkills      = "skills"
)

var contentFields = []string{fieldDescription, fieldLocation, fieldCompany, fieldSkills}

// jobDocument is what gets stored in Bleve for one job.
type jobDocument struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Location    string `json:"location"`
	CompanyName string `json:"company_name"`
	Skills      string `json:"skills"`
}

// BleveIndex implements Index using Bleve.
type BleveIndex struct {
	index bleve.Index
}

// NewBleveIndex creates or opens a Bleve index at path. An empty path builds
// an in-memory index.
// If you change the index mapping in code, remove the index directory to force a full re-index.
func NewBleveIndex(path string) (*BleveIndex, error) {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// English analyzer stems, so "mining" finds "Mine Engineer" and "drivers" finds "Driver".
	textFieldMapping.Analyzer = en.AnalyzerName
	for _, f := range append([]string{fieldTitle}, contentFields...) {
		docMapping.AddFieldMappingsAt(f, textFieldMapping)
	}
	im.AddDocumentMapping("job", docMapping)
	im.DefaultType = "job"
	im.DefaultMapping = docMapping

	if path == "" {
		index, err := bleve.NewMemOnly(im)
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory Bleve index: %w", err)
		}
		return &BleveIndex{index: index}, nil
	}

	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// IndexJob adds or replaces a job. Inactive jobs are removed instead.
func (b *BleveIndex) IndexJob(ctx context.Context, job *models.Job) error {
	if !job.Active() {
		return b.Delete(ctx, job.ID)
	}
	doc := jobDocument{
		Title:       job.Title,
		Description: job.Description,
		Location:    job.Location,
		CompanyName: job.CompanyName,
		Skills:      strings.Join(job.Skills, " "),
	}
	return b.index.Index(docID(job.ID), doc)
}

// Search runs the query over all job fields and returns up to limit results.
// Any query term may match. Scores are additive over fields (title boosted),
// then multiplied by squared term coverage and the phrase boost.
// When the exact search finds nothing and opts.FuzzyFallback is set, the
// query is retried with fuzzy term queries.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*Result, error) {
	titleBoost := 3.0
	phraseBoost := 1.5
	fuzzy := false
	fuzziness := 1
	if opts != nil {
		if opts.TitleBoost > 0 {
			titleBoost = opts.TitleBoost
		}
		if opts.PhraseBoost > 0 {
			phraseBoost = opts.PhraseBoost
		}
		fuzzy = opts.FuzzyFallback
		if opts.Fuzziness > 0 {
			fuzziness = opts.Fuzziness
		}
	}

	query = Sanitize(query)
	if query == "" || limit <= 0 {
		return []*Result{}, nil
	}

	out, err := b.searchWithBoosts(ctx, query, limit, titleBoost, phraseBoost, 0)
	if err != nil || len(out) > 0 || !fuzzy {
		return out, err
	}
	return b.searchWithBoosts(ctx, query, limit, titleBoost, 1.0, fuzziness)
}

// searchWithBoosts merges one disjunction over every field with:
// 1. Additive field scoring, the title multiplied by titleBoost
// 2. Term coverage: documents matching more query terms get higher scores
// 3. Phrase proximity boost: documents with adjacent query terms get boosted
// A positive fuzziness switches every term to a FuzzyQuery.
func (b *BleveIndex) searchWithBoosts(ctx context.Context, query string, limit int, titleBoost, phraseBoost float64, fuzziness int) ([]*Result, error) {
	reqSize := limit * 2
	if reqSize < 50 {
		reqSize = 50
	}

	terms := tokenizeQuery(query)
	numTerms := len(terms)

	fieldQueries := make([]blevequery.Query, 0, len(contentFields)+1)
	title := b.buildFieldQuery(query, fuzziness, fieldTitle)
	title.(blevequery.BoostableQuery).SetBoost(titleBoost)
	fieldQueries = append(fieldQueries, title)
	for _, f := range contentFields {
		fieldQueries = append(fieldQueries, b.buildFieldQuery(query, fuzziness, f))
	}

	req := bleve.NewSearchRequest(bleve.NewDisjunctionQuery(fieldQueries...))
	req.Size = reqSize
	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}

	termCoverage := make(map[string]int)
	if numTerms > 1 {
		termCoverage = b.calculateTermCoverage(ctx, terms, reqSize, fuzziness)
	}
	phraseMatches := make(map[string]bool)
	if phraseBoost > 1.0 && numTerms > 1 {
		phraseMatches = b.findPhraseMatches(ctx, query, reqSize)
	}

	type scored struct {
		id    int64
		score float64
	}
	merged := make([]scored, 0, len(results.Hits))
	for _, hit := range results.Hits {
		id, err := strconv.ParseInt(hit.ID, 10, 64)
		if err != nil {
			continue
		}
		// (matched/total)^2 so jobs matching every term outrank partial matches.
		coverageMultiplier := 1.0
		if numTerms > 1 {
			matched := termCoverage[hit.ID]
			if matched == 0 {
				matched = 1
			}
			coverage := float64(matched) / float64(numTerms)
			coverageMultiplier = coverage * coverage
		}
		phraseMultiplier := 1.0
		if phraseMatches[hit.ID] {
			phraseMultiplier = phraseBoost
		}
		merged = append(merged, scored{id: id, score: hit.Score * coverageMultiplier * phraseMultiplier})
	}
	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].score != merged[j].score {
			return merged[i].score > merged[j].score
		}
		return merged[i].id < merged[j].id
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}

	out := make([]*Result, len(merged))
	for i, s := range merged {
		out[i] = &Result{JobID: s.id, Score: s.score}
	}
	return out, nil
}

// tokenizeQuery splits query into lowercase terms, filtering out empty strings.
func tokenizeQuery(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// buildFieldQuery returns a match query on field, or with a positive
// fuzziness a disjunction of FuzzyQueries, one per term.
func (b *BleveIndex) buildFieldQuery(queryStr string, fuzziness int, field string) blevequery.Query {
	terms := tokenizeQuery(queryStr)
	if fuzziness <= 0 || len(terms) == 0 {
		mq := bleve.NewMatchQuery(queryStr)
		mq.SetField(field)
		return mq
	}

	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(fuzziness)
		fq.SetField(field)
		queries = append(queries, fq)
	}
	return bleve.NewDisjunctionQuery(queries...)
}

// calculateTermCoverage counts how many unique query terms each document matches.
func (b *BleveIndex) calculateTermCoverage(ctx context.Context, terms []string, reqSize int, fuzziness int) map[string]int {
	coverage := make(map[string]int)
	for _, term := range terms {
		var q blevequery.Query
		if fuzziness > 0 {
			fq := bleve.NewFuzzyQuery(term)
			fq.SetFuzziness(fuzziness)
			q = fq
		} else {
			q = bleve.NewMatchQuery(term)
		}
		req := bleve.NewSearchRequest(q)
		req.Size = reqSize
		results, err := b.index.SearchInContext(ctx, req)
		if err != nil {
			continue
		}
		for _, hit := range results.Hits {
			coverage[hit.ID]++
		}
	}
	return coverage
}

// findPhraseMatches finds jobs whose title or description contains the query as a phrase.
func (b *BleveIndex) findPhraseMatches(ctx context.Context, query string, reqSize int) map[string]bool {
	matches := make(map[string]bool)
	for _, field := range []string{fieldTitle, fieldDescription} {
		pq := bleve.NewMatchPhraseQuery(query)
		pq.SetField(field)
		req := bleve.NewSearchRequest(pq)
		req.Size = reqSize
		results, err := b.index.SearchInContext(ctx, req)
		if err != nil {
			return matches
		}
		for _, hit := range results.Hits {
			matches[hit.ID] = true
		}
	}
	return matches
}

// Delete removes a job from the index. Deleting an absent job is not an error.
func (b *BleveIndex) Delete(ctx context.Context, jobID int64) error {
	return b.index.Delete(docID(jobID))
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}

// DocCount returns the total number of jobs in the index.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// JobIDs lists every indexed job id, ascending.
func (b *BleveIndex) JobIDs(ctx context.Context) ([]int64, error) {
	n, err := b.index.DocCount()
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, n)
	if n == 0 {
		return ids, nil
	}
	req := bleve.NewSearchRequest(bleve.NewMatchAllQuery())
	req.Size = int(n)
	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	for _, hit := range results.Hits {
		if id, err := strconv.ParseInt(hit.ID, 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func docID(jobID int64) string {
	return strconv.FormatInt(jobID, 10)
}
