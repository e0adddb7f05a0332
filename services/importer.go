package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/eveternet/styleseeker-worker/internal/catalog"
	"github.com/eveternet/styleseeker-worker/internal/database"
	"github.com/eveternet/styleseeker-worker/internal/logger"
	"github.com/eveternet/styleseeker-worker/models"
	"github.com/eveternet/styleseeker-worker/utils"
)

const (
	defaultChunkSize       = 100
	defaultMaxConcurrentAI = 10
)

// ImportResult is the structured outcome of an import job. Job-level
// failures are reported here, never raised.
type ImportResult struct {
	JobID         string `json:"job_id"`
	Message       string `json:"message"`
	ImportedCount int    `json:"imported_count"`
	TotalProducts int    `json:"total_products"`
	Status        int    `json:"status"`
}

// CatalogResolver maps a tenant's configured platform id to a catalog
// source. Injected so the orchestrator owns no ambient plugin state.
type CatalogResolver func(platform string, creds catalog.Credentials) (catalog.Source, error)

// ImporterOptions carries the pipeline tunables; zero values fall back to
// the defaults.
type ImporterOptions struct {
	ChunkSize       int
	MaxConcurrentAI int
	GroupPause      time.Duration
	ChunkPause      time.Duration
}

// Importer drives the full import pipeline: fetch the catalog, chunk it,
// split each chunk into cache-hit and cache-miss groups, enrich with
// bounded concurrency, and persist chunk by chunk.
type Importer struct {
	enricher        *Enricher
	sink            *Sink
	mirror          database.MirrorStore
	lock            ImportLocker
	resolve         CatalogResolver
	chunkSize       int
	maxConcurrentAI int
	groupPause      time.Duration
	chunkPause      time.Duration
}

func NewImporter(enricher *Enricher, sink *Sink, mirror database.MirrorStore, lock ImportLocker, resolve CatalogResolver, opts ImporterOptions) *Importer {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = defaultChunkSize
	}
	if opts.MaxConcurrentAI <= 0 {
		opts.MaxConcurrentAI = defaultMaxConcurrentAI
	}

	return &Importer{
		enricher:        enricher,
		sink:            sink,
		mirror:          mirror,
		lock:            lock,
		resolve:         resolve,
		chunkSize:       opts.ChunkSize,
		maxConcurrentAI: opts.MaxConcurrentAI,
		groupPause:      opts.GroupPause,
		chunkPause:      opts.ChunkPause,
	}
}

// enrichOutcome is the per-product result collected while processing a
// chunk. Failed products are filtered out of the chunk's output; counts
// derive from the outcomes, not from log lines.
type enrichOutcome struct {
	productID int64
	record    *models.SearchRecord
	err       error
}

// ProcessAndStoreProducts runs a full catalog import for one tenant.
// Chunks are processed and persisted strictly in order; a failed chunk is
// logged and skipped, only catalog/configuration failures abort the job.
func (i *Importer) ProcessAndStoreProducts(ctx context.Context, tenant *models.Tenant) ImportResult {
	jobID := uuid.NewString()
	tenantID := tenant.ID.Hex()

	tracer := otel.Tracer("importer")
	ctx, span := tracer.Start(ctx, "import.process_and_store")
	defer span.End()
	span.SetAttributes(
		attribute.String("import.job_id", jobID),
		attribute.String("import.tenant_id", tenantID),
		attribute.String("import.platform", tenant.Platform),
	)

	release, err := i.lock.Acquire(ctx, tenantID)
	if err != nil {
		if errors.Is(err, ErrImportRunning) {
			return ImportResult{JobID: jobID, Message: err.Error(), Status: http.StatusConflict}
		}
		return ImportResult{JobID: jobID, Message: fmt.Sprintf("failed to acquire import lock: %v", err), Status: http.StatusInternalServerError}
	}
	defer release()

	source, err := i.resolve(tenant.Platform, catalog.Credentials{
		StoreURL:  tenant.StoreURL,
		APIKey:    tenant.APIKey,
		APISecret: tenant.APISecret,
	})
	if err != nil {
		return i.failResult(jobID, tenantID, "catalog configuration error", err)
	}
	if err := source.Init(ctx); err != nil {
		return i.failResult(jobID, tenantID, "catalog initialization failed", err)
	}

	products, err := source.FetchAll(ctx)
	if err != nil {
		return i.failResult(jobID, tenantID, "catalog fetch failed", err)
	}
	total := len(products)
	span.SetAttributes(attribute.Int("import.total_products", total))

	logger.Info("Catalog fetched, starting import",
		"job_id", jobID, "tenant_id", tenantID, "products", total, "chunk_size", i.chunkSize)

	imported := 0
	for start := 0; start < total; start += i.chunkSize {
		end := start + i.chunkSize
		if end > total {
			end = total
		}
		chunkIdx := start / i.chunkSize

		if start > 0 && i.chunkPause > 0 {
			time.Sleep(i.chunkPause)
		}

		outcomes := i.processChunk(ctx, tenantID, products[start:end])

		records := make([]models.SearchRecord, 0, len(outcomes))
		for _, outcome := range outcomes {
			if outcome.err != nil {
				logger.Warn("Product skipped during enrichment",
					"job_id", jobID, "tenant_id", tenantID, "product_id", outcome.productID,
					"chunk", chunkIdx, "error", outcome.err)
				continue
			}
			records = append(records, *outcome.record)
		}

		if len(records) == 0 {
			continue
		}

		// Persist per chunk: partial progress stays durable even when a
		// later chunk fails.
		if err := i.sink.WriteChunk(ctx, records, tenantID); err != nil {
			logger.Error("Chunk persistence failed",
				"job_id", jobID, "tenant_id", tenantID, "chunk", chunkIdx,
				"records", len(records), "error", err)
			continue
		}
		imported += len(records)
	}

	span.SetAttributes(attribute.Int("import.imported_count", imported))

	result := ImportResult{
		JobID:         jobID,
		ImportedCount: imported,
		TotalProducts: total,
	}
	if imported > 0 {
		result.Status = http.StatusOK
		result.Message = fmt.Sprintf("imported %d of %d products", imported, total)
		logger.Info("Import completed", "job_id", jobID, "tenant_id", tenantID,
			"imported", imported, "total", total)
	} else {
		result.Status = http.StatusInternalServerError
		result.Message = fmt.Sprintf("no products imported (%d fetched)", total)
		logger.Error("Import finished with zero stored products",
			"job_id", jobID, "tenant_id", tenantID, "total", total)
	}
	return result
}

// processChunk resolves the description cache for the whole chunk in one
// query, then enriches: cache hits and imageless products sequentially
// (no external calls), cache misses in bounded-width groups of concurrent
// AI calls with a pause between groups.
func (i *Importer) processChunk(ctx context.Context, tenantID string, chunk []models.RawProduct) []enrichOutcome {
	checksums := make([]string, 0, len(chunk))
	for _, p := range chunk {
		if url := p.FirstImageURL(); url != "" {
			checksums = append(checksums, utils.Checksum(url))
		}
	}

	cache, err := i.mirror.CachedDescriptions(ctx, tenantID, checksums)
	if err != nil {
		logger.Warn("Chunk cache lookup failed, proceeding without cache",
			"tenant_id", tenantID, "error", err)
		cache = map[string]string{}
	}

	var fast, slow []models.RawProduct
	for _, p := range chunk {
		url := p.FirstImageURL()
		if url == "" || cache[utils.Checksum(url)] != "" {
			fast = append(fast, p)
		} else {
			slow = append(slow, p)
		}
	}

	outcomes := make([]enrichOutcome, 0, len(chunk))
	for _, p := range fast {
		record, err := i.enricher.EnrichWithCache(ctx, p, tenantID, cache)
		outcomes = append(outcomes, enrichOutcome{productID: p.ID, record: record, err: err})
	}

	for start := 0; start < len(slow); start += i.maxConcurrentAI {
		end := start + i.maxConcurrentAI
		if end > len(slow) {
			end = len(slow)
		}
		group := slow[start:end]

		if start > 0 && i.groupPause > 0 {
			// Short breather between groups so we don't burst the provider.
			time.Sleep(i.groupPause)
		}

		groupOutcomes := make([]enrichOutcome, len(group))
		var g errgroup.Group
		for idx, p := range group {
			idx, p := idx, p
			g.Go(func() error {
				record, err := i.enricher.EnrichWithCache(ctx, p, tenantID, cache)
				groupOutcomes[idx] = enrichOutcome{productID: p.ID, record: record, err: err}
				return nil
			})
		}
		// Join-all: per-product failures live in the outcomes, never here.
		_ = g.Wait()
		outcomes = append(outcomes, groupOutcomes...)
	}

	return outcomes
}

// UpsertSingleProduct enriches and persists one product, bypassing the
// batch orchestration. Used by webhook handlers.
func (i *Importer) UpsertSingleProduct(ctx context.Context, tenant *models.Tenant, product models.RawProduct) error {
	tenantID := tenant.ID.Hex()

	record, err := i.enricher.Enrich(ctx, product, tenantID)
	if err != nil {
		return err
	}
	return i.sink.WriteChunk(ctx, []models.SearchRecord{*record}, tenantID)
}

// DeleteProduct removes one product from both stores.
func (i *Importer) DeleteProduct(ctx context.Context, tenant *models.Tenant, productID string) bool {
	return i.sink.DeleteProduct(ctx, tenant.ID.Hex(), productID)
}

// SetPublishedStatus flips the publish flag for an already-imported product.
func (i *Importer) SetPublishedStatus(ctx context.Context, tenant *models.Tenant, productID string, published bool) error {
	return i.sink.SetPublished(ctx, tenant.ID.Hex(), productID, published)
}

// SetPublishedStatusWithFetch flips the publish flag, falling back to a
// full fetch-and-upsert when the product was never imported. This is how a
// webhook can publish a product the pipeline has not seen yet.
func (i *Importer) SetPublishedStatusWithFetch(ctx context.Context, tenant *models.Tenant, productID string, published bool) error {
	tenantID := tenant.ID.Hex()

	row, err := i.mirror.Get(ctx, tenantID, productID)
	if err != nil {
		return err
	}
	if row != nil {
		return i.sink.SetPublished(ctx, tenantID, productID, published)
	}

	source, err := i.resolve(tenant.Platform, catalog.Credentials{
		StoreURL:  tenant.StoreURL,
		APIKey:    tenant.APIKey,
		APISecret: tenant.APISecret,
	})
	if err != nil {
		return err
	}
	if err := source.Init(ctx); err != nil {
		return err
	}

	fetcher, ok := source.(catalog.SingleFetcher)
	if !ok {
		return fmt.Errorf("platform %q does not support fetching a single product", tenant.Platform)
	}

	id, err := catalog.ParseProductID(productID)
	if err != nil {
		return err
	}

	product, err := fetcher.FetchByID(ctx, id)
	if err != nil {
		return err
	}

	product.IsPublished = published
	return i.UpsertSingleProduct(ctx, tenant, *product)
}

func (i *Importer) failResult(jobID, tenantID, message string, err error) ImportResult {
	logger.Error("Import job failed", "job_id", jobID, "tenant_id", tenantID,
		"reason", message, "error", err)
	return ImportResult{
		JobID:   jobID,
		Message: fmt.Sprintf("%s: %v", message, err),
		Status:  http.StatusInternalServerError,
	}
}
