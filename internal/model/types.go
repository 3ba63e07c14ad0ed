package model

import "time"

// SenderRole identifies who authored a message in an intake conversation.
type SenderRole string

const (
	SenderHuman SenderRole = "HUMAN"
	SenderAI    SenderRole = "AI"
)

// Conversation is a durable thread of alternating human/AI messages.
// ReportID stays nil until a report is filed from the conversation.
type Conversation struct {
	ConversationID int64     `json:"conversationId"`
	ReportID       *int64    `json:"reportId,omitempty"`
	CreationTime   time.Time `json:"creationTime"`
}

// Message is one immutable turn half. SentTime is assigned by the store,
// never by callers; within a conversation it is non-decreasing.
type Message struct {
	MessageID      int64      `json:"messageId"`
	ConversationID int64      `json:"conversationId"`
	SenderRole     SenderRole `json:"senderRole"`
	Content        string     `json:"content"`
	SentTime       time.Time  `json:"sentTime"`
}

// ScamReport is a filed scam report. The description's embedding is held
// in the vector index, keyed by ReportID, and is recomputed whenever the
// description text changes.
type ScamReport struct {
	ReportID              int64     `json:"reportId"`
	IncidentDate          time.Time `json:"incidentDate"`
	ReportDate            time.Time `json:"reportDate"`
	ScamType              string    `json:"scamType"`
	ApproachPlatform      string    `json:"approachPlatform"`
	CommunicationPlatform string    `json:"communicationPlatform"`
	TransactionType       string    `json:"transactionType"`
	BeneficiaryPlatform   string    `json:"beneficiaryPlatform"`
	BeneficiaryIdentifier string    `json:"beneficiaryIdentifier"`
	ContactNo             string    `json:"contactNo"`
	Email                 string    `json:"email"`
	Moniker               string    `json:"moniker"`
	URLLink               string    `json:"urlLink"`
	AmountLost            float64   `json:"amountLost"`
	Description           string    `json:"description"`
	CreationTime          time.Time `json:"creationTime"`
	UpdateTime            time.Time `json:"updateTime"`
}

// ReportFilter restricts similarity search by report metadata.
// Zero-value fields do not participate.
type ReportFilter struct {
	ScamType         string `json:"scamType,omitempty"`
	ApproachPlatform string `json:"approachPlatform,omitempty"`
}

// ReportHit is one similarity-search result. Distance is ascending-better;
// ties are broken by ascending ReportID for determinism.
type ReportHit struct {
	ReportID         int64   `json:"reportId"`
	Description      string  `json:"description"`
	ScamType         string  `json:"scamType"`
	ApproachPlatform string  `json:"approachPlatform"`
	Distance         float64 `json:"distance"`
}

// Strategy is a profile-tagged response template used to guide the
// questioning agent, ranked by historical success.
type Strategy struct {
	StrategyID     int64     `json:"strategyId"`
	StrategyType   string    `json:"strategyType"`
	Response       string    `json:"response"`
	SuccessScore   float64   `json:"successScore"`
	Profile        Profile   `json:"userProfile"`
	RetrievalCount int       `json:"retrievalCount"`
	CreationTime   time.Time `json:"creationTime"`
}

// TurnResult is what one successful ProcessUserQuery call returns.
type TurnResult struct {
	Response       string      `json:"response"`
	ConversationID int64       `json:"conversationId"`
	StructuredData ScamDetails `json:"structuredData"`
}
