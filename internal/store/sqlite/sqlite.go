package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/scamwatch/scamwatch-backend/internal/model"
	"github.com/scamwatch/scamwatch-backend/internal/store"
)

// timeLayout is a fixed-width UTC layout so lexicographic ordering in SQL
// matches chronological ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// New constructs a SQLite-backed store over an opened database.
func New(db *sql.DB) store.Store { return &sqlStore{db: db, q: db} }

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type sqlStore struct {
	db *sql.DB
	q  querier
	tx *sql.Tx
}

func (s *sqlStore) Conversations() store.Conversations { return &conversations{q: s.q} }
func (s *sqlStore) Messages() store.Messages           { return &messages{q: s.q} }
func (s *sqlStore) Reports() store.Reports             { return &reports{q: s.q} }
func (s *sqlStore) Strategies() store.Strategies       { return &strategies{q: s.q} }

func (s *sqlStore) WithinTx(ctx context.Context, fn func(tx store.Store) error) error {
	if s.tx != nil {
		// already transactional; reuse the open scope
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&sqlStore{db: s.db, q: tx, tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

// HealthPing implements health probing for the SQLite-backed store.
func (s *sqlStore) HealthPing(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func now() string { return time.Now().UTC().Format(timeLayout) }

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		// tolerate rows written by other tools
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t
}

// --- Conversations ---

type conversations struct{ q querier }

func (c *conversations) Create(ctx context.Context, reportID *int64) (*model.Conversation, error) {
	created := now()
	res, err := c.q.ExecContext(ctx, `
        INSERT INTO conversations (report_id, creation_time) VALUES (?, ?)
    `, nullableID(reportID), created)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &model.Conversation{ConversationID: id, ReportID: reportID, CreationTime: parseTime(created)}, nil
}

func (c *conversations) Get(ctx context.Context, conversationID int64) (*model.Conversation, error) {
	var out model.Conversation
	var reportID sql.NullInt64
	var created string
	row := c.q.QueryRowContext(ctx, `
        SELECT conversation_id, report_id, creation_time
        FROM conversations WHERE conversation_id=?
    `, conversationID)
	if err := row.Scan(&out.ConversationID, &reportID, &created); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("conversation %d: %w", conversationID, model.ErrNotFound)
		}
		return nil, err
	}
	if reportID.Valid {
		v := reportID.Int64
		out.ReportID = &v
	}
	out.CreationTime = parseTime(created)
	return &out, nil
}

// --- Messages ---

type messages struct{ q querier }

func (m *messages) Append(ctx context.Context, conversationID int64, role model.SenderRole, content string) (*model.Message, error) {
	sent := now()
	res, err := m.q.ExecContext(ctx, `
        INSERT INTO messages (conversation_id, sender_role, content, sent_time)
        VALUES (?, ?, ?, ?)
    `, conversationID, string(role), content, sent)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &model.Message{
		MessageID:      id,
		ConversationID: conversationID,
		SenderRole:     role,
		Content:        content,
		SentTime:       parseTime(sent),
	}, nil
}

func (m *messages) List(ctx context.Context, conversationID int64) ([]*model.Message, error) {
	rows, err := m.q.QueryContext(ctx, `
        SELECT message_id, conversation_id, sender_role, content, sent_time
        FROM messages WHERE conversation_id=?
        ORDER BY sent_time ASC, message_id ASC
    `, conversationID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []*model.Message
	for rows.Next() {
		var msg model.Message
		var role, sent string
		if err := rows.Scan(&msg.MessageID, &msg.ConversationID, &role, &msg.Content, &sent); err != nil {
			return nil, err
		}
		msg.SenderRole = model.SenderRole(role)
		msg.SentTime = parseTime(sent)
		out = append(out, &msg)
	}
	return out, rows.Err()
}

// --- Reports ---

type reports struct{ q querier }

func (r *reports) Create(ctx context.Context, in *model.ScamReport) (*model.ScamReport, error) {
	created := now()
	res, err := r.q.ExecContext(ctx, `
        INSERT INTO scam_reports (
            incident_date, report_date, scam_type, approach_platform,
            communication_platform, transaction_type, beneficiary_platform,
            beneficiary_identifier, contact_no, email, moniker, url_link,
            amount_lost, description, creation_time, update_time
        ) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
    `, in.IncidentDate.UTC().Format(timeLayout), in.ReportDate.UTC().Format(timeLayout),
		in.ScamType, in.ApproachPlatform, in.CommunicationPlatform, in.TransactionType,
		in.BeneficiaryPlatform, in.BeneficiaryIdentifier, in.ContactNo, in.Email,
		in.Moniker, in.URLLink, in.AmountLost, in.Description, created, created)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	out := *in
	out.ReportID = id
	out.CreationTime = parseTime(created)
	out.UpdateTime = out.CreationTime
	return &out, nil
}

func (r *reports) Get(ctx context.Context, reportID int64) (*model.ScamReport, error) {
	row := r.q.QueryRowContext(ctx, `
        SELECT report_id, incident_date, report_date, scam_type, approach_platform,
               communication_platform, transaction_type, beneficiary_platform,
               beneficiary_identifier, contact_no, email, moniker, url_link,
               amount_lost, description, creation_time, update_time
        FROM scam_reports WHERE report_id=?
    `, reportID)
	out, err := scanReport(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("report %d: %w", reportID, model.ErrNotFound)
	}
	return out, err
}

func (r *reports) Update(ctx context.Context, in *model.ScamReport) (*model.ScamReport, error) {
	updated := now()
	res, err := r.q.ExecContext(ctx, `
        UPDATE scam_reports SET
            incident_date=?, report_date=?, scam_type=?, approach_platform=?,
            communication_platform=?, transaction_type=?, beneficiary_platform=?,
            beneficiary_identifier=?, contact_no=?, email=?, moniker=?, url_link=?,
            amount_lost=?, description=?, update_time=?
        WHERE report_id=?
    `, in.IncidentDate.UTC().Format(timeLayout), in.ReportDate.UTC().Format(timeLayout),
		in.ScamType, in.ApproachPlatform, in.CommunicationPlatform, in.TransactionType,
		in.BeneficiaryPlatform, in.BeneficiaryIdentifier, in.ContactNo, in.Email,
		in.Moniker, in.URLLink, in.AmountLost, in.Description, updated, in.ReportID)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("report %d: %w", in.ReportID, model.ErrNotFound)
	}
	out := *in
	out.UpdateTime = parseTime(updated)
	return &out, nil
}

func (r *reports) List(ctx context.Context) ([]*model.ScamReport, error) {
	rows, err := r.q.QueryContext(ctx, `
        SELECT report_id, incident_date, report_date, scam_type, approach_platform,
               communication_platform, transaction_type, beneficiary_platform,
               beneficiary_identifier, contact_no, email, moniker, url_link,
               amount_lost, description, creation_time, update_time
        FROM scam_reports ORDER BY report_id ASC
    `)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []*model.ScamReport
	for rows.Next() {
		rep, err := scanReport(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}

func scanReport(scan func(dest ...interface{}) error) (*model.ScamReport, error) {
	var out model.ScamReport
	var incident, reported, created, updated string
	if err := scan(&out.ReportID, &incident, &reported, &out.ScamType, &out.ApproachPlatform,
		&out.CommunicationPlatform, &out.TransactionType, &out.BeneficiaryPlatform,
		&out.BeneficiaryIdentifier, &out.ContactNo, &out.Email, &out.Moniker, &out.URLLink,
		&out.AmountLost, &out.Description, &created, &updated); err != nil {
		return nil, err
	}
	out.IncidentDate = parseTime(incident)
	out.ReportDate = parseTime(reported)
	out.CreationTime = parseTime(created)
	out.UpdateTime = parseTime(updated)
	return &out, nil
}

// --- Strategies ---

type strategies struct{ q querier }

func (s *strategies) Create(ctx context.Context, in *model.Strategy) (*model.Strategy, error) {
	created := now()
	profileJSON, err := json.Marshal(in.Profile)
	if err != nil {
		return nil, err
	}
	res, err := s.q.ExecContext(ctx, `
        INSERT INTO strategies (strategy_type, response, success_score, user_profile, retrieval_count, creation_time)
        VALUES (?,?,?,?,?,?)
    `, in.StrategyType, in.Response, in.SuccessScore, string(profileJSON), in.RetrievalCount, created)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	out := *in
	out.StrategyID = id
	out.CreationTime = parseTime(created)
	return &out, nil
}

func (s *strategies) List(ctx context.Context) ([]*model.Strategy, error) {
	rows, err := s.q.QueryContext(ctx, `
        SELECT strategy_id, strategy_type, response, success_score, user_profile, retrieval_count, creation_time
        FROM strategies ORDER BY strategy_id ASC
    `)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []*model.Strategy
	for rows.Next() {
		var st model.Strategy
		var profileJSON, created string
		if err := rows.Scan(&st.StrategyID, &st.StrategyType, &st.Response, &st.SuccessScore,
			&profileJSON, &st.RetrievalCount, &created); err != nil {
			return nil, err
		}
		st.Profile, _ = model.ParseProfile([]byte(profileJSON))
		st.CreationTime = parseTime(created)
		out = append(out, &st)
	}
	return out, rows.Err()
}

func (s *strategies) IncrementRetrievalCount(ctx context.Context, strategyIDs []int64) error {
	for _, id := range strategyIDs {
		if _, err := s.q.ExecContext(ctx, `
            UPDATE strategies SET retrieval_count = retrieval_count + 1 WHERE strategy_id=?
        `, id); err != nil {
			return err
		}
	}
	return nil
}

func nullableID(id *int64) interface{} {
	if id == nil {
		return nil
	}
	return *id
}
