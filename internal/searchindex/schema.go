package searchindex

import (
	"context"
	"fmt"
	"time"

	weaviate "github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate/entities/models"
)

// EnsureSchema creates the ScamReport class when it does not exist.
// Vectors are supplied by the embedding provider, never by Weaviate.
func EnsureSchema(ctx context.Context, baseURL string) error {
	cfg := weaviate.Config{Scheme: "http", Host: baseURL}
	cl, err := weaviate.NewClient(cfg)
	if err != nil {
		return err
	}

	cctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	desired := &models.Class{
		Class:      reportClass,
		Vectorizer: "none",
		Properties: []*models.Property{
			{Name: "reportId", DataType: []string{"int"}},
			{Name: "scamType", DataType: []string{"text"}},
			{Name: "approachPlatform", DataType: []string{"text"}},
			{Name: "description", DataType: []string{"text"}},
			{Name: "incidentDate", DataType: []string{"date"}},
		},
	}

	exists, err := cl.Schema().ClassExistenceChecker().WithClassName(reportClass).Do(cctx)
	if err != nil {
		return fmt.Errorf("check class %s: %w", reportClass, err)
	}
	if exists {
		return nil
	}
	if err := cl.Schema().ClassCreator().WithClass(desired).Do(cctx); err != nil {
		return fmt.Errorf("create class %s: %w", reportClass, err)
	}
	return nil
}
