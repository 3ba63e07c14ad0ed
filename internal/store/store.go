package store

import (
	"context"

	"github.com/scamwatch/scamwatch-backend/internal/model"
)

// Store exposes persistence operations required by the conversation core.
// Implementations live under internal/store/<driver>/ (postgres, sqlite).
type Store interface {
	Conversations() Conversations
	Messages() Messages
	Reports() Reports
	Strategies() Strategies

	// WithinTx runs fn against a Store view bound to a single transaction.
	// A fn error rolls everything back. Nested calls reuse the open
	// transaction rather than starting a new one.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}

type Conversations interface {
	Create(ctx context.Context, reportID *int64) (*model.Conversation, error)
	// Get returns model.ErrNotFound (wrapped) when the id is absent.
	Get(ctx context.Context, conversationID int64) (*model.Conversation, error)
}

type Messages interface {
	// Append persists one message with a store-assigned SentTime.
	Append(ctx context.Context, conversationID int64, role model.SenderRole, content string) (*model.Message, error)
	// List returns all messages for a conversation ordered by SentTime
	// ascending, message id breaking ties, so history replays match the
	// original append sequence.
	List(ctx context.Context, conversationID int64) ([]*model.Message, error)
}

type Reports interface {
	Create(ctx context.Context, r *model.ScamReport) (*model.ScamReport, error)
	Get(ctx context.Context, reportID int64) (*model.ScamReport, error)
	Update(ctx context.Context, r *model.ScamReport) (*model.ScamReport, error)
	List(ctx context.Context) ([]*model.ScamReport, error)
}

type Strategies interface {
	Create(ctx context.Context, s *model.Strategy) (*model.Strategy, error)
	List(ctx context.Context) ([]*model.Strategy, error)
	// IncrementRetrievalCount bumps the counter for each id by one.
	IncrementRetrievalCount(ctx context.Context, strategyIDs []int64) error
}
