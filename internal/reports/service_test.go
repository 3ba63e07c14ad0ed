package reports

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scamwatch/scamwatch-backend/internal/model"
	"github.com/scamwatch/scamwatch-backend/internal/searchindex"
	"github.com/scamwatch/scamwatch-backend/internal/store"
	"github.com/scamwatch/scamwatch-backend/internal/store/sqlite"
	"github.com/scamwatch/scamwatch-backend/internal/vector"
)

type recordingIndex struct {
	upserts int64
	deletes int64
	batched int
}

func (r *recordingIndex) SearchReports(context.Context, string, []float32, int, *model.ReportFilter) ([]model.ReportHit, error) {
	return nil, nil
}
func (r *recordingIndex) UpsertReport(_ context.Context, rep *model.ScamReport, _ []float32) error {
	r.upserts++
	return nil
}
func (r *recordingIndex) BatchUpsert(_ context.Context, items []searchindex.ReportVector) error {
	r.batched += len(items)
	return nil
}
func (r *recordingIndex) DeleteReport(context.Context, int64) error {
	r.deletes++
	return nil
}

type unitEmbedder struct{ calls int }

func (u *unitEmbedder) Embed(context.Context, string) ([]float32, error) {
	u.calls++
	return []float32{1}, nil
}

func newService(t *testing.T) (*Service, store.Store, *recordingIndex, *unitEmbedder) {
	t.Helper()
	db, err := sqlite.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, sqlite.EnsureSchema(context.Background(), db))
	st := sqlite.New(db)

	idx := &recordingIndex{}
	emb := &unitEmbedder{}
	vs := vector.New(emb, idx, zerolog.Nop())
	return NewService(st, vs, idx, zerolog.Nop()), st, idx, emb
}

func sampleReport(desc string) *model.ScamReport {
	return &model.ScamReport{
		IncidentDate:     time.Date(2025, 5, 10, 0, 0, 0, 0, time.UTC),
		ReportDate:       time.Date(2025, 5, 11, 0, 0, 0, 0, time.UTC),
		ScamType:         "ECOMMERCE",
		ApproachPlatform: "FACEBOOK",
		AmountLost:       120.50,
		Description:      desc,
	}
}

func TestIngestIndexesDescribedReport(t *testing.T) {
	svc, _, idx, emb := newService(t)

	created, err := svc.Ingest(context.Background(), sampleReport("seller vanished after payment"))
	require.NoError(t, err)
	assert.NotZero(t, created.ReportID)
	assert.EqualValues(t, 1, idx.upserts)
	assert.Equal(t, 1, emb.calls)
}

func TestIngestSkipsEmptyDescription(t *testing.T) {
	svc, _, idx, emb := newService(t)

	_, err := svc.Ingest(context.Background(), sampleReport("  "))
	require.NoError(t, err)
	assert.EqualValues(t, 0, idx.upserts)
	assert.EqualValues(t, 1, idx.deletes)
	assert.Equal(t, 0, emb.calls)
}

func TestUpdateReembedsOnlyOnDescriptionChange(t *testing.T) {
	svc, _, idx, emb := newService(t)

	created, err := svc.Ingest(context.Background(), sampleReport("original description"))
	require.NoError(t, err)
	require.Equal(t, 1, emb.calls)

	// metadata-only change keeps the stored vector
	created.AmountLost = 999
	_, err = svc.Update(context.Background(), created)
	require.NoError(t, err)
	assert.Equal(t, 1, emb.calls)
	assert.EqualValues(t, 1, idx.upserts)

	created.Description = "changed description"
	_, err = svc.Update(context.Background(), created)
	require.NoError(t, err)
	assert.Equal(t, 2, emb.calls)
	assert.EqualValues(t, 2, idx.upserts)
}

func TestReindexAllSkipsUndescribed(t *testing.T) {
	svc, _, idx, _ := newService(t)

	_, err := svc.Ingest(context.Background(), sampleReport("one"))
	require.NoError(t, err)
	_, err = svc.Ingest(context.Background(), sampleReport(""))
	require.NoError(t, err)

	n, err := svc.ReindexAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, idx.batched)
}
