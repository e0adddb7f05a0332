package services

import (
	"context"
	"fmt"
	"time"

	"github.com/eveternet/styleseeker-worker/internal/database"
	"github.com/eveternet/styleseeker-worker/internal/logger"
	"github.com/eveternet/styleseeker-worker/internal/vector"
	"github.com/eveternet/styleseeker-worker/models"
)

const defaultVectorBatchSize = 50

// Namespace returns the vector index namespace for a tenant. It matches
// the tenant database naming so both stores shard the same way.
func Namespace(tenantID string) string {
	return "tenant_" + tenantID
}

// Sink owns the durable write path: every record lands in the vector
// index and the mirror; nothing else mutates either store.
type Sink struct {
	index      vector.Index
	mirror     database.MirrorStore
	batchSize  int
	batchPause time.Duration
}

func NewSink(index vector.Index, mirror database.MirrorStore, batchSize int, batchPause time.Duration) *Sink {
	if batchSize <= 0 {
		batchSize = defaultVectorBatchSize
	}
	return &Sink{
		index:      index,
		mirror:     mirror,
		batchSize:  batchSize,
		batchPause: batchPause,
	}
}

// WriteChunk upserts a chunk into the vector index in request-size-limited
// sub-batches, then mirrors each record. A vector failure aborts the chunk
// write; mirror upserts are independent per record.
func (s *Sink) WriteChunk(ctx context.Context, records []models.SearchRecord, tenantID string) error {
	if len(records) == 0 {
		return nil
	}
	ns := Namespace(tenantID)

	for start := 0; start < len(records); start += s.batchSize {
		end := start + s.batchSize
		if end > len(records) {
			end = len(records)
		}

		if start > 0 && s.batchPause > 0 {
			time.Sleep(s.batchPause)
		}

		if err := s.index.UpsertBatch(ctx, ns, records[start:end]); err != nil {
			return fmt.Errorf("vector upsert failed for records %d-%d: %w", start, end-1, err)
		}
	}

	for _, record := range records {
		if err := s.mirror.Upsert(ctx, tenantID, record); err != nil {
			logger.Error("Mirror upsert failed",
				"tenant_id", tenantID, "product_id", record.ProductID, "error", err)
		}
	}

	return nil
}

// DeleteProduct removes a product from both stores. Returns false on any
// failure so webhook callers can respond gracefully instead of panicking.
func (s *Sink) DeleteProduct(ctx context.Context, tenantID, productID string) bool {
	ok := true

	if err := s.index.DeleteOne(ctx, Namespace(tenantID), productID); err != nil {
		logger.Error("Vector delete failed", "tenant_id", tenantID, "product_id", productID, "error", err)
		ok = false
	}

	if err := s.mirror.Delete(ctx, tenantID, productID); err != nil {
		logger.Error("Mirror delete failed", "tenant_id", tenantID, "product_id", productID, "error", err)
		ok = false
	}

	return ok
}

// SetPublished flips the publish flag in both stores without reprocessing
// text. The mirror is the publish-flag source of truth, so it goes first;
// database.ErrMirrorNotFound propagates for callers that fall back to a
// full fetch-and-upsert.
func (s *Sink) SetPublished(ctx context.Context, tenantID, productID string, published bool) error {
	if err := s.mirror.SetPublished(ctx, tenantID, productID, published); err != nil {
		return err
	}

	fields := map[string]any{"is_published": published}
	if err := s.index.UpdateMetadata(ctx, Namespace(tenantID), productID, fields); err != nil {
		return fmt.Errorf("vector publish update failed for product %s: %w", productID, err)
	}
	return nil
}
