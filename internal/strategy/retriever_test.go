package strategy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scamwatch/scamwatch-backend/internal/model"
	"github.com/scamwatch/scamwatch-backend/internal/store"
)

type fakeStrategies struct {
	list    []*model.Strategy
	listErr error
	incErr  error
	bumped  []int64
}

func (f *fakeStrategies) Create(_ context.Context, s *model.Strategy) (*model.Strategy, error) {
	return s, nil
}

func (f *fakeStrategies) List(context.Context) ([]*model.Strategy, error) {
	return f.list, f.listErr
}

func (f *fakeStrategies) IncrementRetrievalCount(_ context.Context, ids []int64) error {
	f.bumped = append(f.bumped, ids...)
	return f.incErr
}

type fakeStore struct {
	strategies *fakeStrategies
}

func (f *fakeStore) Conversations() store.Conversations { return nil }
func (f *fakeStore) Messages() store.Messages           { return nil }
func (f *fakeStore) Reports() store.Reports             { return nil }
func (f *fakeStore) Strategies() store.Strategies       { return f.strategies }
func (f *fakeStore) WithinTx(ctx context.Context, fn func(tx store.Store) error) error {
	return fn(f)
}

func dim(level string) *model.Dimension { return &model.Dimension{Level: level} }

func strategyFixture() []*model.Strategy {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	return []*model.Strategy{
		{StrategyID: 1, SuccessScore: 0.9, CreationTime: base,
			Profile: model.Profile{TechLiteracy: dim("low")}},
		{StrategyID: 2, SuccessScore: 0.7, CreationTime: base.Add(time.Hour),
			Profile: model.Profile{TechLiteracy: dim("high")}},
		{StrategyID: 3, SuccessScore: 0.9, CreationTime: base.Add(2 * time.Hour),
			Profile: model.Profile{}},
		{StrategyID: 4, SuccessScore: 0.5, CreationTime: base.Add(3 * time.Hour),
			Profile: model.Profile{TechLiteracy: dim("low"), EmotionalState: dim("distressed")}},
	}
}

func TestMatchFiltersByProfile(t *testing.T) {
	st := &fakeStore{strategies: &fakeStrategies{list: strategyFixture()}}
	r := New(st, zerolog.Nop())

	got := r.Match(context.Background(), model.Profile{TechLiteracy: dim("low")}, 10)
	require.Len(t, got, 3)
	// equal scores fall back to earlier creation time
	assert.Equal(t, int64(1), got[0].StrategyID)
	assert.Equal(t, int64(3), got[1].StrategyID)
	assert.Equal(t, int64(4), got[2].StrategyID)
}

func TestMatchEmptyQueryProfileMatchesEverything(t *testing.T) {
	st := &fakeStore{strategies: &fakeStrategies{list: strategyFixture()}}
	r := New(st, zerolog.Nop())

	got := r.Match(context.Background(), model.Profile{}, 10)
	assert.Len(t, got, 4)
}

func TestMatchCapsAtK(t *testing.T) {
	st := &fakeStore{strategies: &fakeStrategies{list: strategyFixture()}}
	r := New(st, zerolog.Nop())

	got := r.Match(context.Background(), model.Profile{}, 2)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].StrategyID)
	assert.Equal(t, int64(3), got[1].StrategyID)
}

func TestMatchIncrementsOnlyReturned(t *testing.T) {
	fs := &fakeStrategies{list: strategyFixture()}
	r := New(&fakeStore{strategies: fs}, zerolog.Nop())

	r.Match(context.Background(), model.Profile{TechLiteracy: dim("high")}, 10)
	assert.ElementsMatch(t, []int64{2, 3}, fs.bumped)
}

func TestMatchSurvivesIncrementFailure(t *testing.T) {
	fs := &fakeStrategies{list: strategyFixture(), incErr: errors.New("db busy")}
	r := New(&fakeStore{strategies: fs}, zerolog.Nop())

	got := r.Match(context.Background(), model.Profile{}, 10)
	assert.Len(t, got, 4)
}

func TestMatchDegradesOnReadFailure(t *testing.T) {
	fs := &fakeStrategies{listErr: errors.New("db gone")}
	r := New(&fakeStore{strategies: fs}, zerolog.Nop())

	got := r.Match(context.Background(), model.Profile{}, 10)
	assert.Empty(t, got)
}
