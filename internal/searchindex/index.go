package searchindex

import (
	"context"

	"github.com/scamwatch/scamwatch-backend/internal/model"
)

// Index provides vector search and index maintenance over scam reports.
type Index interface {
	// SearchReports returns up to topK hits for the query vector,
	// optionally restricted by a metadata filter. Hit ordering is not
	// guaranteed here; the vector store enforces deterministic ordering.
	SearchReports(ctx context.Context, query string, vec []float32, topK int, filter *model.ReportFilter) ([]model.ReportHit, error)

	// UpsertReport replaces the indexed object for a report.
	UpsertReport(ctx context.Context, r *model.ScamReport, vec []float32) error

	// BatchUpsert indexes many reports at once, used by full reindexing.
	BatchUpsert(ctx context.Context, items []ReportVector) error

	// DeleteReport removes a report from the index.
	DeleteReport(ctx context.Context, reportID int64) error
}

// ReportVector pairs a report with its description embedding.
type ReportVector struct {
	Report *model.ScamReport
	Vector []float32
}

// HealthPinger is optionally implemented by an Index to expose specialized
// health check logic. Returns nil when healthy.
type HealthPinger interface {
	HealthPing(ctx context.Context) error
}
