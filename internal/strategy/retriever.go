// Package strategy retrieves questioning strategies by structured profile
// matching, not vector similarity.
package strategy

import (
	"context"
	"sort"

	"github.com/rs/zerolog"

	"github.com/scamwatch/scamwatch-backend/internal/model"
	"github.com/scamwatch/scamwatch-backend/internal/store"
)

// Retriever matches stored strategies against a partial user profile.
type Retriever struct {
	store store.Store
	log   zerolog.Logger
}

func New(st store.Store, log zerolog.Logger) *Retriever {
	return &Retriever{store: st, log: log}
}

// WithStore returns a Retriever reading through st instead of the root
// store. Callers holding an open transaction use this so strategy reads go
// through the transaction's connection rather than contending with it in
// the pool.
func (r *Retriever) WithStore(st store.Store) *Retriever {
	return &Retriever{store: st, log: r.log}
}

// Match returns up to k strategies whose profile is compatible with the
// query profile, ranked by success score descending with earlier-proven
// strategies winning ties. Strategy augmentation is non-essential: a store
// failure is logged and degrades to an empty result, never an error.
// Each returned strategy's retrieval count is incremented best-effort.
func (r *Retriever) Match(ctx context.Context, profile model.Profile, k int) []model.Strategy {
	if k <= 0 {
		k = 5
	}

	all, err := r.store.Strategies().List(ctx)
	if err != nil {
		r.log.Error().Err(err).Msg("strategy read failed; degrading to empty augmentation")
		return nil
	}

	var matched []model.Strategy
	for _, s := range all {
		if s.Profile.Matches(profile) {
			matched = append(matched, *s)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].SuccessScore != matched[j].SuccessScore {
			return matched[i].SuccessScore > matched[j].SuccessScore
		}
		return matched[i].CreationTime.Before(matched[j].CreationTime)
	})
	if len(matched) > k {
		matched = matched[:k]
	}

	if len(matched) > 0 {
		ids := make([]int64, len(matched))
		for i, s := range matched {
			ids[i] = s.StrategyID
		}
		if err := r.store.Strategies().IncrementRetrievalCount(ctx, ids); err != nil {
			// best-effort: the counter feeds later pruning, not this turn
			r.log.Error().Err(err).Ints64("strategy_ids", ids).Msg("retrieval count increment failed")
		}
	}
	return matched
}
