package usecase

import (
	"log"
	"math"
	"sort"
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"github.com/cloudmatch/backend/internal/domain"
)

// Signal weights. They sum to 1.0 so the total stays on the same 0-100
// scale as the individual signals.
const (
	weightFuzzy   = 0.30
	weightTFIDF   = 0.40
	weightOverlap = 0.20
	weightVendor  = 0.10
)

// Breakdown keys
const (
	SignalFuzzy   = "fuzzy"
	SignalTFIDF   = "tfidf"
	SignalOverlap = "overlap"
	SignalVendor  = "vendor"
)

// scoreEpsilon is the tolerance inside which two totals count as tied
const scoreEpsilon = 1e-9

// Scorer ranks scraped candidates against a vendor/solution query.
// Scoring is deterministic: the same query and candidate set always
// produce the same scores and breakdowns.
type Scorer struct {
	enableDebugLogging bool
}

// NewScorer creates a scorer
func NewScorer(enableDebugLogging bool) *Scorer {
	return &Scorer{enableDebugLogging: enableDebugLogging}
}

// ScoreAll scores every candidate against the query and returns the results
// sorted by descending score. Ties prefer a concrete product URL over a
// search-URL fallback, then the higher fuzzy signal.
//
// The TF-IDF signal is fitted over the candidate corpus of this call, so
// scores are comparable within one search, which is the only place they are
// compared.
func (s *Scorer) ScoreAll(vendor, solution string, marketplace domain.Marketplace, candidates []domain.Candidate) []domain.MatchResult {
	if len(candidates) == 0 {
		return nil
	}

	// Vendor-only matching when the solution is blank
	queryText := strings.TrimSpace(solution)
	if queryText == "" {
		queryText = strings.TrimSpace(vendor)
	}

	docs := make([]string, len(candidates))
	for i, c := range candidates {
		docs[i] = candidateText(c)
	}
	tfidfScores := tfidfCosine(queryText, docs)

	results := make([]domain.MatchResult, 0, len(candidates))
	for i, c := range candidates {
		fuzzyScore := fuzzySignal(queryText, c.Title)
		overlapScore := overlapSignal(queryText, docs[i])
		vendorScore := vendorSignal(vendor, docs[i], fuzzyScore)
		tfidfScore := tfidfScores[i] * 100

		total := fuzzyScore*weightFuzzy +
			tfidfScore*weightTFIDF +
			overlapScore*weightOverlap +
			vendorScore*weightVendor
		total = clamp(total, 0, 100)

		if s.enableDebugLogging {
			log.Printf("[MATCH] %s: %q | fuzzy=%.1f tfidf=%.1f overlap=%.1f vendor=%.1f | total=%.1f",
				marketplace, c.Title, fuzzyScore, tfidfScore, overlapScore, vendorScore, total)
		}

		results = append(results, domain.MatchResult{
			Title:       c.Title,
			Description: c.Description,
			URL:         c.URL,
			SearchURL:   c.SearchURL,
			Marketplace: marketplace,
			Score:       total,
			Breakdown: map[string]float64{
				SignalFuzzy:   fuzzyScore,
				SignalTFIDF:   tfidfScore,
				SignalOverlap: overlapScore,
				SignalVendor:  vendorScore,
			},
			Band: domain.ConfidenceBand(total),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if math.Abs(a.Score-b.Score) > scoreEpsilon {
			return a.Score > b.Score
		}
		if (a.URL != "") != (b.URL != "") {
			return a.URL != ""
		}
		return a.Breakdown[SignalFuzzy] > b.Breakdown[SignalFuzzy]
	})

	return results
}

// candidateText is the text a candidate is matched on. A missing
// description leaves the title alone.
func candidateText(c domain.Candidate) string {
	if c.Description == "" {
		return c.Title
	}
	return c.Title + " " + c.Description
}

// fuzzySignal is the edit-distance similarity between query and title,
// taking the better of the whole-string and token-set ratios
func fuzzySignal(query, title string) float64 {
	q, t := normalizeText(query), normalizeText(title)
	if q == "" || t == "" {
		return 0
	}
	best := fuzzy.Ratio(q, t)
	if s := fuzzy.TokenSetRatio(q, t); s > best {
		best = s
	}
	return float64(best)
}

// overlapSignal is the Jaccard similarity of the normalized token sets
// after stopword removal and lemmatization
func overlapSignal(query, text string) float64 {
	qs := tokenSet(tokenize(query))
	ts := tokenSet(tokenize(text))
	if len(qs) == 0 || len(ts) == 0 {
		return 0
	}

	intersection := 0
	for t := range qs {
		if ts[t] {
			intersection++
		}
	}
	union := len(qs) + len(ts) - intersection
	return float64(intersection) / float64(union) * 100
}

// vendorSignal rewards candidates that name the vendor. A verbatim
// (case-insensitive) occurrence scores 100; otherwise the score is the
// fraction of vendor tokens present. A title that reproduces the solution
// name exactly is the vendor's own listing and gets full credit even when
// the listing omits the vendor string.
func vendorSignal(vendor, text string, fuzzyScore float64) float64 {
	vendor = strings.TrimSpace(vendor)
	if vendor == "" {
		return 0
	}
	if fuzzyScore >= domain.BandExact {
		return 100
	}
	if strings.Contains(strings.ToLower(text), strings.ToLower(vendor)) {
		return 100
	}

	tokens := tokenize(vendor)
	if len(tokens) == 0 {
		return 0
	}
	ts := tokenSet(tokenize(text))
	present := 0
	for _, t := range tokens {
		if ts[t] {
			present++
		}
	}
	return float64(present) / float64(len(tokens)) * 100
}

// tfidfCosine vectorizes the query and each document by term
// frequency-inverse document frequency over the document corpus and returns
// each document's cosine similarity to the query, in [0,1].
//
// Uses smoothed idf (documents and vocabulary each padded by one) so terms
// appearing in every document keep a small positive weight.
func tfidfCosine(query string, docs []string) []float64 {
	scores := make([]float64, len(docs))

	queryTokens := tokenize(query)
	if len(queryTokens) == 0 {
		return scores
	}

	docTokens := make([][]string, len(docs))
	for i, d := range docs {
		docTokens[i] = tokenize(d)
	}

	// Document frequency over corpus docs plus the query doc
	df := make(map[string]int)
	countDoc := func(tokens []string) {
		for t := range tokenSet(tokens) {
			df[t]++
		}
	}
	countDoc(queryTokens)
	for _, tokens := range docTokens {
		countDoc(tokens)
	}

	n := float64(len(docs) + 1)
	idf := make(map[string]float64, len(df))
	for t, d := range df {
		idf[t] = math.Log((1+n)/(1+float64(d))) + 1
	}

	queryVec := tfidfVector(queryTokens, idf)
	for i, tokens := range docTokens {
		scores[i] = cosine(queryVec, tfidfVector(tokens, idf))
	}
	return scores
}

// tfidfVector builds an l2-normalized tf-idf vector for one document
func tfidfVector(tokens []string, idf map[string]float64) map[string]float64 {
	if len(tokens) == 0 {
		return nil
	}

	tf := make(map[string]float64)
	for _, t := range tokens {
		tf[t]++
	}

	var norm float64
	vec := make(map[string]float64, len(tf))
	for t, count := range tf {
		w := (count / float64(len(tokens))) * idf[t]
		vec[t] = w
		norm += w * w
	}
	if norm == 0 {
		return nil
	}
	norm = math.Sqrt(norm)
	for t := range vec {
		vec[t] /= norm
	}
	return vec
}

// cosine computes the dot product of two l2-normalized sparse vectors
func cosine(a, b map[string]float64) float64 {
	if len(b) < len(a) {
		a, b = b, a
	}
	var dot float64
	for t, w := range a {
		dot += w * b[t]
	}
	// Floating-point dust can push the dot product a hair past 1
	return clamp(dot, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
