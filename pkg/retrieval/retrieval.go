// Package retrieval ranks evidence chunks for a query against a single
// document. It wraps the vector similarity search with retries,
// high-similarity merging and fingerprint deduplication.
package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/strategraph/backend/internal/util"
	"github.com/strategraph/backend/pkg/common"
)

// DefaultTopK is the evidence budget for graph synthesis. Node chat uses a
// narrower bound, see ChatTopK.
const (
	DefaultTopK = 10
	ChatTopK    = 5
)

// highSimilarity marks chunks that are kept even when they fall outside the
// top-k window, so long queries are not starved of strong evidence.
const highSimilarity = 0.85

const (
	maxAttempts = 3
	baseBackoff = 500 * time.Millisecond
)

// Searcher is the similarity search capability the ranker consumes. The
// returned chunks are ordered by descending score.
type Searcher interface {
	SearchChunks(ctx context.Context, query string, documentID string, limit int) ([]common.EvidenceChunk, error)
}

// Ranker produces ordered, deduplicated evidence sets.
type Ranker struct {
	searcher Searcher
	backoff  time.Duration
}

// NewRanker returns a Ranker backed by the given similarity search.
func NewRanker(searcher Searcher) *Ranker {
	return &Ranker{searcher: searcher, backoff: baseBackoff}
}

// Rank retrieves evidence for query scoped to documentID. It over-fetches
// twice the requested top-k, deduplicates near-identical text and keeps the
// best topK chunks plus any further chunk scoring at or above the
// high-similarity threshold. A search error or an empty result set counts as
// the service being unavailable and is retried with backoff before
// ErrRetrievalUnavailable is surfaced.
func (r *Ranker) Rank(ctx context.Context, query string, documentID string, topK int) ([]common.EvidenceChunk, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	hits, err := util.RetryWithBackoff(ctx, maxAttempts, r.backoff,
		func(ctx context.Context) ([]common.EvidenceChunk, error) {
			hits, err := r.searcher.SearchChunks(ctx, query, documentID, 2*topK)
			if err != nil {
				return nil, fmt.Errorf("similarity search: %w", err)
			}
			if len(hits) == 0 {
				return nil, fmt.Errorf("similarity search returned no chunks for document %s", documentID)
			}
			return hits, nil
		})
	if err != nil {
		return nil, common.NewStageError(common.StageRetrieval, maxAttempts,
			fmt.Errorf("%w: %v", common.ErrRetrievalUnavailable, err))
	}

	deduped := dedupe(hits)
	sort.SliceStable(deduped, func(i, j int) bool {
		return deduped[i].Score > deduped[j].Score
	})

	result := make([]common.EvidenceChunk, 0, topK)
	for i, hit := range deduped {
		if i < topK || hit.Score >= highSimilarity {
			result = append(result, hit)
		}
	}
	return result, nil
}

// dedupe collapses chunks whose normalized text is identical, keeping the
// highest-scoring occurrence. Order of first occurrence is preserved.
func dedupe(chunks []common.EvidenceChunk) []common.EvidenceChunk {
	seen := make(map[string]int, len(chunks))
	var result []common.EvidenceChunk

	for _, chunk := range chunks {
		fp := Fingerprint(chunk.Text)
		if idx, ok := seen[fp]; ok {
			if chunk.Score > result[idx].Score {
				result[idx] = chunk
			}
			continue
		}
		seen[fp] = len(result)
		result = append(result, chunk)
	}
	return result
}

// Fingerprint normalizes text for duplicate detection: lowercase, punctuation
// removed, whitespace runs collapsed to a single space.
func Fingerprint(text string) string {
	var sb strings.Builder
	sb.Grow(len(text))

	lastSpace := true
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsSpace(r):
			if !lastSpace {
				sb.WriteRune(' ')
				lastSpace = true
			}
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			// skip
		default:
			sb.WriteRune(r)
			lastSpace = false
		}
	}
	return strings.TrimSpace(sb.String())
}
