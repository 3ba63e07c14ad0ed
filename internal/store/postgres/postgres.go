package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/scamwatch/scamwatch-backend/internal/model"
	"github.com/scamwatch/scamwatch-backend/internal/store"
)

// Open opens a PostgreSQL connection using the pgx stdlib driver and
// verifies connectivity.
func Open(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is empty")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// New constructs a native Postgres store backed directly by database/sql.
func New(db *sql.DB) store.Store { return &pgStore{db: db, q: db} }

type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type pgStore struct {
	db *sql.DB
	q  querier
	tx *sql.Tx
}

func (s *pgStore) Conversations() store.Conversations { return &conversations{q: s.q} }
func (s *pgStore) Messages() store.Messages           { return &messages{q: s.q} }
func (s *pgStore) Reports() store.Reports             { return &reports{q: s.q} }
func (s *pgStore) Strategies() store.Strategies       { return &strategies{q: s.q} }

func (s *pgStore) WithinTx(ctx context.Context, fn func(tx store.Store) error) error {
	if s.tx != nil {
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&pgStore{db: s.db, q: tx, tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

// HealthPing implements health probing for the Postgres-backed store.
func (s *pgStore) HealthPing(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS conversations (
    conversation_id BIGSERIAL PRIMARY KEY,
    report_id       BIGINT,
    creation_time   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS messages (
    message_id      BIGSERIAL PRIMARY KEY,
    conversation_id BIGINT NOT NULL REFERENCES conversations(conversation_id) ON DELETE CASCADE,
    sender_role     TEXT NOT NULL CHECK (sender_role IN ('HUMAN','AI')),
    content         TEXT NOT NULL,
    sent_time       TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp()
);
CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, sent_time);

CREATE TABLE IF NOT EXISTS scam_reports (
    report_id              BIGSERIAL PRIMARY KEY,
    incident_date          TIMESTAMPTZ NOT NULL,
    report_date            TIMESTAMPTZ NOT NULL,
    scam_type              TEXT NOT NULL DEFAULT '',
    approach_platform      TEXT NOT NULL DEFAULT '',
    communication_platform TEXT NOT NULL DEFAULT '',
    transaction_type       TEXT NOT NULL DEFAULT '',
    beneficiary_platform   TEXT NOT NULL DEFAULT '',
    beneficiary_identifier TEXT NOT NULL DEFAULT '',
    contact_no             TEXT NOT NULL DEFAULT '',
    email                  TEXT NOT NULL DEFAULT '',
    moniker                TEXT NOT NULL DEFAULT '',
    url_link               TEXT NOT NULL DEFAULT '',
    amount_lost            DOUBLE PRECISION NOT NULL DEFAULT 0,
    description            TEXT NOT NULL,
    creation_time          TIMESTAMPTZ NOT NULL DEFAULT now(),
    update_time            TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS strategies (
    strategy_id     BIGSERIAL PRIMARY KEY,
    strategy_type   TEXT NOT NULL,
    response        TEXT NOT NULL,
    success_score   DOUBLE PRECISION NOT NULL,
    user_profile    JSONB NOT NULL DEFAULT '{}'::jsonb,
    retrieval_count INTEGER NOT NULL DEFAULT 0,
    creation_time   TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// EnsureSchema creates the tables when they do not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schemaDDL)
	return err
}

// --- Conversations ---

type conversations struct{ q querier }

func (c *conversations) Create(ctx context.Context, reportID *int64) (*model.Conversation, error) {
	var out model.Conversation
	row := c.q.QueryRowContext(ctx, `
        INSERT INTO conversations (report_id) VALUES ($1)
        RETURNING conversation_id, creation_time
    `, reportID)
	if err := row.Scan(&out.ConversationID, &out.CreationTime); err != nil {
		return nil, err
	}
	out.ReportID = reportID
	return &out, nil
}

func (c *conversations) Get(ctx context.Context, conversationID int64) (*model.Conversation, error) {
	var out model.Conversation
	var reportID sql.NullInt64
	row := c.q.QueryRowContext(ctx, `
        SELECT conversation_id, report_id, creation_time
        FROM conversations WHERE conversation_id=$1
    `, conversationID)
	if err := row.Scan(&out.ConversationID, &reportID, &out.CreationTime); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("conversation %d: %w", conversationID, model.ErrNotFound)
		}
		return nil, err
	}
	if reportID.Valid {
		v := reportID.Int64
		out.ReportID = &v
	}
	return &out, nil
}

// --- Messages ---

type messages struct{ q querier }

func (m *messages) Append(ctx context.Context, conversationID int64, role model.SenderRole, content string) (*model.Message, error) {
	out := model.Message{ConversationID: conversationID, SenderRole: role, Content: content}
	// clock_timestamp() keeps sent_time strictly advancing within one
	// transaction, unlike now() which is fixed at transaction start.
	row := m.q.QueryRowContext(ctx, `
        INSERT INTO messages (conversation_id, sender_role, content)
        VALUES ($1,$2,$3)
        RETURNING message_id, sent_time
    `, conversationID, string(role), content)
	if err := row.Scan(&out.MessageID, &out.SentTime); err != nil {
		return nil, err
	}
	return &out, nil
}

func (m *messages) List(ctx context.Context, conversationID int64) ([]*model.Message, error) {
	rows, err := m.q.QueryContext(ctx, `
        SELECT message_id, conversation_id, sender_role, content, sent_time
        FROM messages WHERE conversation_id=$1
        ORDER BY sent_time ASC, message_id ASC
    `, conversationID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []*model.Message
	for rows.Next() {
		var msg model.Message
		var role string
		if err := rows.Scan(&msg.MessageID, &msg.ConversationID, &role, &msg.Content, &msg.SentTime); err != nil {
			return nil, err
		}
		msg.SenderRole = model.SenderRole(role)
		out = append(out, &msg)
	}
	return out, rows.Err()
}

// --- Reports ---

type reports struct{ q querier }

func (r *reports) Create(ctx context.Context, in *model.ScamReport) (*model.ScamReport, error) {
	out := *in
	row := r.q.QueryRowContext(ctx, `
        INSERT INTO scam_reports (
            incident_date, report_date, scam_type, approach_platform,
            communication_platform, transaction_type, beneficiary_platform,
            beneficiary_identifier, contact_no, email, moniker, url_link,
            amount_lost, description
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
        RETURNING report_id, creation_time, update_time
    `, in.IncidentDate, in.ReportDate, in.ScamType, in.ApproachPlatform,
		in.CommunicationPlatform, in.TransactionType, in.BeneficiaryPlatform,
		in.BeneficiaryIdentifier, in.ContactNo, in.Email, in.Moniker, in.URLLink,
		in.AmountLost, in.Description)
	if err := row.Scan(&out.ReportID, &out.CreationTime, &out.UpdateTime); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *reports) Get(ctx context.Context, reportID int64) (*model.ScamReport, error) {
	var out model.ScamReport
	row := r.q.QueryRowContext(ctx, `
        SELECT report_id, incident_date, report_date, scam_type, approach_platform,
               communication_platform, transaction_type, beneficiary_platform,
               beneficiary_identifier, contact_no, email, moniker, url_link,
               amount_lost, description, creation_time, update_time
        FROM scam_reports WHERE report_id=$1
    `, reportID)
	if err := row.Scan(&out.ReportID, &out.IncidentDate, &out.ReportDate, &out.ScamType,
		&out.ApproachPlatform, &out.CommunicationPlatform, &out.TransactionType,
		&out.BeneficiaryPlatform, &out.BeneficiaryIdentifier, &out.ContactNo, &out.Email,
		&out.Moniker, &out.URLLink, &out.AmountLost, &out.Description,
		&out.CreationTime, &out.UpdateTime); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("report %d: %w", reportID, model.ErrNotFound)
		}
		return nil, err
	}
	return &out, nil
}

func (r *reports) Update(ctx context.Context, in *model.ScamReport) (*model.ScamReport, error) {
	out := *in
	row := r.q.QueryRowContext(ctx, `
        UPDATE scam_reports SET
            incident_date=$1, report_date=$2, scam_type=$3, approach_platform=$4,
            communication_platform=$5, transaction_type=$6, beneficiary_platform=$7,
            beneficiary_identifier=$8, contact_no=$9, email=$10, moniker=$11, url_link=$12,
            amount_lost=$13, description=$14, update_time=now()
        WHERE report_id=$15
        RETURNING update_time
    `, in.IncidentDate, in.ReportDate, in.ScamType, in.ApproachPlatform,
		in.CommunicationPlatform, in.TransactionType, in.BeneficiaryPlatform,
		in.BeneficiaryIdentifier, in.ContactNo, in.Email, in.Moniker, in.URLLink,
		in.AmountLost, in.Description, in.ReportID)
	if err := row.Scan(&out.UpdateTime); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("report %d: %w", in.ReportID, model.ErrNotFound)
		}
		return nil, err
	}
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
		var rep model.ScamReport
		if err := rows.Scan(&rep.ReportID, &rep.IncidentDate, &rep.ReportDate, &rep.ScamType,
			&rep.ApproachPlatform, &rep.CommunicationPlatform, &rep.TransactionType,
			&rep.BeneficiaryPlatform, &rep.BeneficiaryIdentifier, &rep.ContactNo, &rep.Email,
			&rep.Moniker, &rep.URLLink, &rep.AmountLost, &rep.Description,
			&rep.CreationTime, &rep.UpdateTime); err != nil {
			return nil, err
		}
		out = append(out, &rep)
	}
	return out, rows.Err()
}

// --- Strategies ---

type strategies struct{ q querier }

func (s *strategies) Create(ctx context.Context, in *model.Strategy) (*model.Strategy, error) {
	profileJSON, err := json.Marshal(in.Profile)
	if err != nil {
		return nil, err
	}
	out := *in
	row := s.q.QueryRowContext(ctx, `
        INSERT INTO strategies (strategy_type, response, success_score, user_profile, retrieval_count)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING strategy_id, creation_time
    `, in.StrategyType, in.Response, in.SuccessScore, profileJSON, in.RetrievalCount)
	if err := row.Scan(&out.StrategyID, &out.CreationTime); err != nil {
		return nil, err
	}
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
		var profileJSON []byte
		if err := rows.Scan(&st.StrategyID, &st.StrategyType, &st.Response, &st.SuccessScore,
			&profileJSON, &st.RetrievalCount, &st.CreationTime); err != nil {
			return nil, err
		}
		st.Profile, _ = model.ParseProfile(profileJSON)
		out = append(out, &st)
	}
	return out, rows.Err()
}

func (s *strategies) IncrementRetrievalCount(ctx context.Context, strategyIDs []int64) error {
	for _, id := range strategyIDs {
		if _, err := s.q.ExecContext(ctx, `
            UPDATE strategies SET retrieval_count = retrieval_count + 1 WHERE strategy_id=$1
        `, id); err != nil {
			return err
		}
	}
	return nil
}
