package vector

import (
	"context"

	"github.com/eveternet/styleseeker-worker/models"
)

// Index is the vector-index capability the pipeline writes to. Records are
// keyed by product id within a tenant namespace; the index handles
// embedding the record text itself.
type Index interface {
	UpsertBatch(ctx context.Context, namespace string, records []models.SearchRecord) error
	DeleteOne(ctx context.Context, namespace, id string) error
	UpdateMetadata(ctx context.Context, namespace, id string, fields map[string]any) error
}
