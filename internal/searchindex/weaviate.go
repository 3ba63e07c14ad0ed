package searchindex

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	weaviate "github.com/weaviate/weaviate-go-client/v5/weaviate"
	filters "github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	gql "github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/scamwatch/scamwatch-backend/internal/model"
)

const reportClass = "ScamReport"

// weavIndex implements Index using the Weaviate Go client.
type weavIndex struct {
	client  *weaviate.Client
	baseURL string // host:port without scheme
}

// NewWeaviateIndex constructs an Index backed by Weaviate at baseURL.
// baseURL should be host:port (without scheme), e.g. "localhost:8081".
func NewWeaviateIndex(baseURL string) (Index, error) {
	cfg := weaviate.Config{Scheme: "http", Host: baseURL}
	cl, err := weaviate.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &weavIndex{client: cl, baseURL: baseURL}, nil
}

// objectID derives a stable Weaviate object id from the report id so that
// upserts replace instead of duplicate.
func objectID(reportID int64) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("scam-report-%d", reportID))).String()
}

func (w *weavIndex) SearchReports(ctx context.Context, query string, vec []float32, topK int, filter *model.ReportFilter) ([]model.ReportHit, error) {
	log.Debug().Str("query", query).Int("topK", topK).Int("vectorLength", len(vec)).Msg("weaviate report search starting")

	nv := (&gql.NearVectorArgumentBuilder{}).WithVector(vec)

	req := w.client.GraphQL().Get().
		WithClassName(reportClass).
		WithNearVector(nv).
		WithLimit(topK).
		WithFields(
			gql.Field{Name: "reportId"},
			gql.Field{Name: "scamType"},
			gql.Field{Name: "approachPlatform"},
			gql.Field{Name: "description"},
			gql.Field{Name: "_additional", Fields: []gql.Field{{Name: "distance"}}},
		)
	if where := buildWhere(filter); where != nil {
		req = req.WithWhere(where)
	}

	resp, err := req.Do(ctx)
	if err != nil {
		log.Error().Err(err).Msg("weaviate graphql query failed")
		return nil, err
	}
	if len(resp.Errors) > 0 {
		log.Error().Interface("errors", resp.Errors).Msg("weaviate graphql errors")
		return nil, fmt.Errorf("weaviate graphql: %s", formatGraphQLErrors(resp.Errors))
	}

	// a missing envelope and an empty class list both mean no hits
	getData, ok := resp.Data["Get"].(map[string]interface{})
	if !ok {
		return []model.ReportHit{}, nil
	}
	raw, ok := getData[reportClass].([]interface{})
	if !ok || raw == nil {
		return []model.ReportHit{}, nil
	}

	out := make([]model.ReportHit, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		hit := model.ReportHit{
			ReportID:         intField(m, "reportId"),
			ScamType:         stringField(m, "scamType"),
			ApproachPlatform: stringField(m, "approachPlatform"),
			Description:      stringField(m, "description"),
		}
		if add, ok := m["_additional"].(map[string]interface{}); ok {
			switch v := add["distance"].(type) {
			case float64:
				hit.Distance = v
			case string:
				if f, err := strconv.ParseFloat(v, 64); err == nil {
					hit.Distance = f
				}
			}
		}
		out = append(out, hit)
	}
	log.Debug().Int("resultCount", len(out)).Msg("weaviate report search completed")
	return out, nil
}

func buildWhere(filter *model.ReportFilter) *filters.WhereBuilder {
	if filter == nil {
		return nil
	}
	var conds []*filters.WhereBuilder
	if filter.ScamType != "" {
		conds = append(conds, filters.Where().
			WithPath([]string{"scamType"}).WithOperator(filters.Equal).WithValueText(filter.ScamType))
	}
	if filter.ApproachPlatform != "" {
		conds = append(conds, filters.Where().
			WithPath([]string{"approachPlatform"}).WithOperator(filters.Equal).WithValueText(filter.ApproachPlatform))
	}
	switch len(conds) {
	case 0:
		return nil
	case 1:
		return conds[0]
	default:
		return filters.Where().WithOperator(filters.And).WithOperands(conds)
	}
}

func (w *weavIndex) UpsertReport(ctx context.Context, r *model.ScamReport, vec []float32) error {
	if w == nil || w.client == nil {
		return nil
	}
	id := objectID(r.ReportID)
	// delete-then-create: the Data Creator does not replace existing objects
	_ = w.client.Data().Deleter().WithClassName(reportClass).WithID(id).Do(ctx)
	_, err := w.client.Data().Creator().
		WithClassName(reportClass).
		WithID(id).
		WithProperties(reportProperties(r)).
		WithVector(vec).
		Do(ctx)
	return err
}

func (w *weavIndex) BatchUpsert(ctx context.Context, items []ReportVector) error {
	if w == nil || w.client == nil || len(items) == 0 {
		return nil
	}
	objs := make([]*models.Object, 0, len(items))
	for _, it := range items {
		objs = append(objs, &models.Object{
			Class:      reportClass,
			ID:         strfmt.UUID(objectID(it.Report.ReportID)),
			Properties: reportProperties(it.Report),
			Vector:     models.C11yVector(it.Vector),
		})
	}
	resp, err := w.client.Batch().ObjectsBatcher().WithObjects(objs...).Do(ctx)
	if err != nil {
		return err
	}
	for _, obj := range resp {
		if obj.Result != nil && obj.Result.Errors != nil && len(obj.Result.Errors.Error) > 0 {
			return fmt.Errorf("weaviate batch: %s", obj.Result.Errors.Error[0].Message)
		}
	}
	return nil
}

func (w *weavIndex) DeleteReport(ctx context.Context, reportID int64) error {
	if w == nil || w.client == nil {
		return nil
	}
	return w.client.Data().Deleter().WithClassName(reportClass).WithID(objectID(reportID)).Do(ctx)
}

func reportProperties(r *model.ScamReport) map[string]interface{} {
	return map[string]interface{}{
		"reportId":         r.ReportID,
		"scamType":         r.ScamType,
		"approachPlatform": r.ApproachPlatform,
		"description":      r.Description,
		"incidentDate":     r.IncidentDate.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// HealthPing calls GET http://<baseURL>/v1/meta and expects 200 OK.
func (w *weavIndex) HealthPing(ctx context.Context) error {
	if w == nil || w.baseURL == "" {
		return fmt.Errorf("weaviate baseURL missing")
	}
	url := w.baseURL
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "http://" + url
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url+"/v1/meta", nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("weaviate status %d", resp.StatusCode)
	}
	return nil
}

func stringField(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

func intField(m map[string]interface{}, key string) int64 {
	switch v := m[key].(type) {
	case float64:
		return int64(v)
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return 0
}

// formatGraphQLErrors returns a compact string with messages for logging.
func formatGraphQLErrors(errs interface{}) string {
	if b, err := json.Marshal(errs); err == nil {
		return string(b)
	}
	return fmt.Sprintf("%v", errs)
}
