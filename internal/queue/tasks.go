package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hibiken/asynq"

	"github.com/eveternet/styleseeker-worker/internal/database"
	"github.com/eveternet/styleseeker-worker/internal/logger"
	"github.com/eveternet/styleseeker-worker/models"
	"github.com/eveternet/styleseeker-worker/services"
)

const (
	TaskCatalogImport  = "catalog:import"
	TaskProductUpsert  = "product:upsert"
	TaskProductDelete  = "product:delete"
	TaskProductPublish = "product:publish"
)

type ImportPayload struct {
	TenantID string `json:"tenant_id"`
}

type ProductUpsertPayload struct {
	TenantID string            `json:"tenant_id"`
	Product  models.RawProduct `json:"product"`
}

type ProductDeletePayload struct {
	TenantID  string `json:"tenant_id"`
	ProductID string `json:"product_id"`
}

type ProductPublishPayload struct {
	TenantID    string `json:"tenant_id"`
	ProductID   string `json:"product_id"`
	IsPublished bool   `json:"is_published"`
}

// Task creators
func NewCatalogImportTask(tenantID string) (*asynq.Task, error) {
	payload, err := json.Marshal(ImportPayload{TenantID: tenantID})
	if err != nil {
		return nil, err
	}

	// Imports are not retried: a rerun reprocesses the whole catalog and
	// the checksum cache makes that cheap, but stacking retries behind a
	// long job helps nobody.
	return asynq.NewTask(
		TaskCatalogImport,
		payload,
		asynq.MaxRetry(0),
		asynq.Timeout(60*time.Minute),
		asynq.Queue("imports"),
	), nil
}

func NewProductUpsertTask(tenantID string, product models.RawProduct) (*asynq.Task, error) {
	payload, err := json.Marshal(ProductUpsertPayload{TenantID: tenantID, Product: product})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskProductUpsert,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(5*time.Minute),
		asynq.Queue("webhooks"),
	), nil
}

func NewProductDeleteTask(tenantID, productID string) (*asynq.Task, error) {
	payload, err := json.Marshal(ProductDeletePayload{TenantID: tenantID, ProductID: productID})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskProductDelete,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(time.Minute),
		asynq.Queue("webhooks"),
	), nil
}

func NewProductPublishTask(tenantID, productID string, published bool) (*asynq.Task, error) {
	payload, err := json.Marshal(ProductPublishPayload{
		TenantID:    tenantID,
		ProductID:   productID,
		IsPublished: published,
	})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskProductPublish,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(5*time.Minute),
		asynq.Queue("webhooks"),
	), nil
}

// TaskProcessor dispatches queue tasks to the import pipeline.
type TaskProcessor struct {
	importer *services.Importer
	tenants  *database.TenantStore
}

func NewTaskProcessor(importer *services.Importer, tenants *database.TenantStore) *TaskProcessor {
	return &TaskProcessor{
		importer: importer,
		tenants:  tenants,
	}
}

func (p *TaskProcessor) HandleCatalogImport(ctx context.Context, task *asynq.Task) error {
	var payload ImportPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid import payload: %v: %w", err, asynq.SkipRetry)
	}

	tenant, err := p.tenants.GetByID(ctx, payload.TenantID)
	if err != nil {
		return err
	}

	result := p.importer.ProcessAndStoreProducts(ctx, tenant)
	if result.Status != http.StatusOK {
		return fmt.Errorf("import job %s failed: %s", result.JobID, result.Message)
	}

	logger.Info("Import task finished", "job_id", result.JobID,
		"tenant_id", payload.TenantID, "imported", result.ImportedCount)
	return nil
}

func (p *TaskProcessor) HandleProductUpsert(ctx context.Context, task *asynq.Task) error {
	var payload ProductUpsertPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid product upsert payload: %v: %w", err, asynq.SkipRetry)
	}

	tenant, err := p.tenants.GetByID(ctx, payload.TenantID)
	if err != nil {
		return err
	}

	return p.importer.UpsertSingleProduct(ctx, tenant, payload.Product)
}

func (p *TaskProcessor) HandleProductDelete(ctx context.Context, task *asynq.Task) error {
	var payload ProductDeletePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid product delete payload: %v: %w", err, asynq.SkipRetry)
	}

	tenant, err := p.tenants.GetByID(ctx, payload.TenantID)
	if err != nil {
		return err
	}

	if !p.importer.DeleteProduct(ctx, tenant, payload.ProductID) {
		return fmt.Errorf("delete failed for product %s", payload.ProductID)
	}
	return nil
}

func (p *TaskProcessor) HandleProductPublish(ctx context.Context, task *asynq.Task) error {
	var payload ProductPublishPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid product publish payload: %v: %w", err, asynq.SkipRetry)
	}

	tenant, err := p.tenants.GetByID(ctx, payload.TenantID)
	if err != nil {
		return err
	}

	return p.importer.SetPublishedStatusWithFetch(ctx, tenant, payload.ProductID, payload.IsPublished)
}
