package model

import (
	"encoding/json"
	"strconv"
)

// ScamDetails is the structured extraction returned with every turn.
// The key set is fixed: fields the agent did not extract default to the
// empty string, and the amount defaults to zero, so consumers can rely on
// key presence.
type ScamDetails struct {
	IncidentDate          string  `json:"scam_incident_date"`
	ScamType              string  `json:"scam_type"`
	ApproachPlatform      string  `json:"scam_approach_platform"`
	CommunicationPlatform string  `json:"scam_communication_platform"`
	TransactionType       string  `json:"scam_transaction_type"`
	BeneficiaryPlatform   string  `json:"scam_beneficiary_platform"`
	BeneficiaryIdentifier string  `json:"scam_beneficiary_identifier"`
	ContactNo             string  `json:"scam_contact_no"`
	Email                 string  `json:"scam_email"`
	Moniker               string  `json:"scam_moniker"`
	URLLink               string  `json:"scam_url_link"`
	AmountLost            float64 `json:"scam_amount_lost"`
	IncidentDescription   string  `json:"scam_incident_description"`
}

// NewScamDetails normalizes a loosely-typed agent extraction into the
// fixed key set. Unknown keys are ignored; missing keys keep defaults.
func NewScamDetails(fields map[string]interface{}) ScamDetails {
	d := ScamDetails{
		IncidentDate:          stringField(fields, "scam_incident_date"),
		ScamType:              stringField(fields, "scam_type"),
		ApproachPlatform:      stringField(fields, "scam_approach_platform"),
		CommunicationPlatform: stringField(fields, "scam_communication_platform"),
		TransactionType:       stringField(fields, "scam_transaction_type"),
		BeneficiaryPlatform:   stringField(fields, "scam_beneficiary_platform"),
		BeneficiaryIdentifier: stringField(fields, "scam_beneficiary_identifier"),
		ContactNo:             stringField(fields, "scam_contact_no"),
		Email:                 stringField(fields, "scam_email"),
		Moniker:               stringField(fields, "scam_moniker"),
		URLLink:               stringField(fields, "scam_url_link"),
		IncidentDescription:   stringField(fields, "scam_incident_description"),
	}
	d.AmountLost = numberField(fields, "scam_amount_lost")
	return d
}

func stringField(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func numberField(m map[string]interface{}, key string) float64 {
	if m == nil {
		return 0
	}
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f
		}
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return 0
}
