// Package reports manages scam report persistence together with the
// similarity index: the indexed embedding always reflects the current
// description text.
package reports

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/scamwatch/scamwatch-backend/internal/model"
	"github.com/scamwatch/scamwatch-backend/internal/searchindex"
	"github.com/scamwatch/scamwatch-backend/internal/store"
	"github.com/scamwatch/scamwatch-backend/internal/vector"
)

type Service struct {
	store   store.Store
	vectors *vector.Store
	idx     searchindex.Index
	log     zerolog.Logger
}

func NewService(st store.Store, vs *vector.Store, idx searchindex.Index, log zerolog.Logger) *Service {
	return &Service{store: st, vectors: vs, idx: idx, log: log}
}

// Ingest persists a new report and, when it has a description, embeds and
// indexes it. Reports without a description stay out of similarity search.
func (s *Service) Ingest(ctx context.Context, r *model.ScamReport) (*model.ScamReport, error) {
	created, err := s.store.Reports().Create(ctx, r)
	if err != nil {
		return nil, err
	}
	if err := s.indexReport(ctx, created); err != nil {
		// report is durable; the index catches up on the next reindex
		s.log.Error().Err(err).Int64("report_id", created.ReportID).Msg("report indexing failed")
	}
	return created, nil
}

// Update persists report changes and re-embeds when the description text
// changed, so search never serves a stale vector.
func (s *Service) Update(ctx context.Context, r *model.ScamReport) (*model.ScamReport, error) {
	prev, err := s.store.Reports().Get(ctx, r.ReportID)
	if err != nil {
		return nil, err
	}
	updated, err := s.store.Reports().Update(ctx, r)
	if err != nil {
		return nil, err
	}
	if prev.Description != updated.Description {
		if err := s.indexReport(ctx, updated); err != nil {
			s.log.Error().Err(err).Int64("report_id", updated.ReportID).Msg("report reindexing failed")
		}
	}
	return updated, nil
}

// Get returns one report by id.
func (s *Service) Get(ctx context.Context, reportID int64) (*model.ScamReport, error) {
	return s.store.Reports().Get(ctx, reportID)
}

// Search delegates to the vector store.
func (s *Service) Search(ctx context.Context, query string, k int, filter *model.ReportFilter) ([]model.ReportHit, error) {
	return s.vectors.Search(ctx, query, k, filter)
}

// ReindexAll embeds every described report and batch-upserts the index.
// Used by the init-index command after schema creation.
func (s *Service) ReindexAll(ctx context.Context) (int, error) {
	all, err := s.store.Reports().List(ctx)
	if err != nil {
		return 0, err
	}
	items := make([]searchindex.ReportVector, 0, len(all))
	for _, r := range all {
		if strings.TrimSpace(r.Description) == "" {
			continue
		}
		vec, err := s.vectors.Embed(ctx, r.Description)
		if err != nil {
			return 0, err
		}
		items = append(items, searchindex.ReportVector{Report: r, Vector: vec})
	}
	if err := s.idx.BatchUpsert(ctx, items); err != nil {
		return 0, err
	}
	return len(items), nil
}

// indexReport upserts the description embedding, or removes the report
// from the index when the description is empty.
func (s *Service) indexReport(ctx context.Context, r *model.ScamReport) error {
	if strings.TrimSpace(r.Description) == "" {
		return s.idx.DeleteReport(ctx, r.ReportID)
	}
	vec, err := s.vectors.Embed(ctx, r.Description)
	if err != nil {
		return err
	}
	return s.idx.UpsertReport(ctx, r, vec)
}
