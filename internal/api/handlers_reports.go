package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/scamwatch/scamwatch-backend/internal/api/respond"
	"github.com/scamwatch/scamwatch-backend/internal/api/validate"
	"github.com/scamwatch/scamwatch-backend/internal/model"
	"github.com/scamwatch/scamwatch-backend/internal/vector"
)

// ReportService is the report surface the handler needs.
type ReportService interface {
	Ingest(ctx context.Context, r *model.ScamReport) (*model.ScamReport, error)
	Update(ctx context.Context, r *model.ScamReport) (*model.ScamReport, error)
	Get(ctx context.Context, reportID int64) (*model.ScamReport, error)
	Search(ctx context.Context, query string, k int, filter *model.ReportFilter) ([]model.ReportHit, error)
}

// ReportHandler serves scam report CRUD and similarity search.
type ReportHandler struct {
	reports ReportService
}

func NewReportHandler(reports ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

type reportRequest struct {
	IncidentDate          string  `json:"incidentDate"`
	ScamType              string  `json:"scamType"`
	ApproachPlatform      string  `json:"approachPlatform"`
	CommunicationPlatform string  `json:"communicationPlatform"`
	TransactionType       string  `json:"transactionType"`
	BeneficiaryPlatform   string  `json:"beneficiaryPlatform"`
	BeneficiaryIdentifier string  `json:"beneficiaryIdentifier"`
	ContactNo             string  `json:"contactNo"`
	Email                 string  `json:"email"`
	Moniker               string  `json:"moniker"`
	URLLink               string  `json:"urlLink"`
	AmountLost            float64 `json:"amountLost"`
	Description           string  `json:"description"`
}

func (req *reportRequest) toModel() (*model.ScamReport, error) {
	r := &model.ScamReport{
		ScamType:              req.ScamType,
		ApproachPlatform:      req.ApproachPlatform,
		CommunicationPlatform: req.CommunicationPlatform,
		TransactionType:       req.TransactionType,
		BeneficiaryPlatform:   req.BeneficiaryPlatform,
		BeneficiaryIdentifier: req.BeneficiaryIdentifier,
		ContactNo:             req.ContactNo,
		Email:                 req.Email,
		Moniker:               req.Moniker,
		URLLink:               req.URLLink,
		AmountLost:            req.AmountLost,
		Description:           req.Description,
		ReportDate:            time.Now().UTC(),
	}
	if req.IncidentDate != "" {
		t, err := time.Parse("2006-01-02", req.IncidentDate)
		if err != nil {
			return nil, errors.New("incidentDate must be YYYY-MM-DD")
		}
		r.IncidentDate = t
	}
	return r, nil
}

// CreateReport handles POST /api/reports.
func (h *ReportHandler) CreateReport(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "invalid JSON body")
		return
	}
	if err := validate.NonEmpty("scamType", req.ScamType); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	rep, err := req.toModel()
	if err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}

	created, err := h.reports.Ingest(r.Context(), rep)
	if err != nil {
		log.Error().Err(err).Msg("report creation failed")
		respond.WriteInternalError(w, "failed to create report")
		return
	}
	respond.WriteJSON(w, http.StatusCreated, created)
}

// GetReport handles GET /api/reports/{reportId}.
func (h *ReportHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "reportId")
	if err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	rep, err := h.reports.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			respond.WriteNotFound(w, err.Error())
			return
		}
		log.Error().Err(err).Int64("report_id", id).Msg("report lookup failed")
		respond.WriteInternalError(w, "failed to load report")
		return
	}
	respond.WriteJSON(w, http.StatusOK, rep)
}

// UpdateReport handles PUT /api/reports/{reportId}.
func (h *ReportHandler) UpdateReport(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "reportId")
	if err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	var req reportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "invalid JSON body")
		return
	}
	rep, err := req.toModel()
	if err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	rep.ReportID = id

	updated, err := h.reports.Update(r.Context(), rep)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			respond.WriteNotFound(w, err.Error())
			return
		}
		log.Error().Err(err).Int64("report_id", id).Msg("report update failed")
		respond.WriteInternalError(w, "failed to update report")
		return
	}
	respond.WriteJSON(w, http.StatusOK, updated)
}

type searchRequest struct {
	Query  string              `json:"query"`
	TopK   int                 `json:"topK,omitempty"`
	Filter *model.ReportFilter `json:"filter,omitempty"`
}

// SearchReports handles POST /api/reports/search.
func (h *ReportHandler) SearchReports(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "invalid JSON body")
		return
	}
	if err := validate.Query(req.Query); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	if err := validate.TopK(req.TopK); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}

	hits, err := h.reports.Search(r.Context(), req.Query, req.TopK, req.Filter)
	if err != nil {
		if errors.Is(err, model.ErrValidation) {
			respond.WriteBadRequest(w, err.Error())
			return
		}
		if vector.IsEmbeddingError(err) {
			log.Error().Err(err).Msg("search embedding failed")
			respond.WriteError(w, http.StatusServiceUnavailable, "embedding provider unavailable")
			return
		}
		log.Error().Err(err).Msg("report search failed")
		respond.WriteInternalError(w, "failed to search reports")
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"hits":  hits,
		"count": len(hits),
	})
}
