// Package vector composes the embedding provider and the similarity index
// into the retrieval surface used by the tool layer and report ingestion.
package vector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/scamwatch/scamwatch-backend/internal/embeddings"
	"github.com/scamwatch/scamwatch-backend/internal/model"
	"github.com/scamwatch/scamwatch-backend/internal/searchindex"
)

// DefaultTopK is the neighbor count used when callers pass k <= 0.
const DefaultTopK = 5

// EmbeddingError wraps an embedding-provider failure so callers can
// distinguish it from index failures and degrade instead of aborting.
type EmbeddingError struct {
	Cause error
}

func (e *EmbeddingError) Error() string { return fmt.Sprintf("embedding failed: %v", e.Cause) }
func (e *EmbeddingError) Unwrap() error { return e.Cause }

// IsEmbeddingError checks whether err is (or wraps) an EmbeddingError.
func IsEmbeddingError(err error) bool {
	var ee *EmbeddingError
	return errors.As(err, &ee)
}

// Store answers nearest-neighbor queries over stored scam reports.
type Store struct {
	emb embeddings.Provider
	idx searchindex.Index
	log zerolog.Logger
}

func New(emb embeddings.Provider, idx searchindex.Index, log zerolog.Logger) *Store {
	return &Store{emb: emb, idx: idx, log: log}
}

// Embed exposes the raw embedding primitive, used during report
// ingestion/update to keep stored embeddings consistent with the current
// description text.
func (s *Store) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := s.emb.Embed(ctx, text)
	if err != nil {
		return nil, &EmbeddingError{Cause: err}
	}
	return vec, nil
}

// Search returns up to k most similar reports for the query, ascending by
// distance, ties broken by ascending report id. An empty query is a caller
// error and yields model.ErrValidation; no empty-result fallback is made.
func (s *Store) Search(ctx context.Context, query string, k int, filter *model.ReportFilter) ([]model.ReportHit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query must not be empty: %w", model.ErrValidation)
	}
	if k <= 0 {
		k = DefaultTopK
	}

	vec, err := s.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	hits, err := s.idx.SearchReports(ctx, query, vec, k, filter)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].ReportID < hits[j].ReportID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	s.log.Debug().Int("k", k).Int("hits", len(hits)).Msg("report similarity search done")
	return hits, nil
}
