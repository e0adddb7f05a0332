package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"github.com/eveternet/styleseeker-worker/internal/database"
	"github.com/eveternet/styleseeker-worker/internal/queue"
	"github.com/eveternet/styleseeker-worker/middleware"
	"github.com/eveternet/styleseeker-worker/models"
	"github.com/eveternet/styleseeker-worker/services"
)

type publishRequest struct {
	IsPublished *bool `json:"is_published" binding:"required"`
}

// SetupWebhookRoutes wires the single-product operations merchants'
// platform webhooks call. Upsert and publish may involve an AI call, so
// they are queued; delete is fast and runs inline.
func SetupWebhookRoutes(router *gin.Engine, auth *middleware.AuthMiddleware, importer *services.Importer, tenants *database.TenantStore, queueClient *asynq.Client) {
	api := router.Group("/api/v1")
	api.Use(auth.RequireAuth())

	api.POST("/tenants/:tenantID/products", func(c *gin.Context) {
		tenantID := c.Param("tenantID")

		var product models.RawProduct
		if err := c.ShouldBindJSON(&product); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error_code": "invalid_payload", "message": err.Error()})
			return
		}
		if product.ID == 0 || product.Name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error_code": "invalid_product", "message": "product requires id and name"})
			return
		}

		if _, err := tenants.GetByID(c.Request.Context(), tenantID); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error_code": "tenant_not_found", "message": err.Error()})
			return
		}

		task, err := queue.NewProductUpsertTask(tenantID, product)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error_code": "task_error", "message": err.Error()})
			return
		}
		if _, err := queueClient.Enqueue(task); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error_code": "enqueue_error", "message": err.Error()})
			return
		}

		c.JSON(http.StatusAccepted, gin.H{"message": "product upsert queued"})
	})

	api.DELETE("/tenants/:tenantID/products/:productID", func(c *gin.Context) {
		tenantID := c.Param("tenantID")
		productID := c.Param("productID")

		tenant, err := tenants.GetByID(c.Request.Context(), tenantID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error_code": "tenant_not_found", "message": err.Error()})
			return
		}

		if !importer.DeleteProduct(c.Request.Context(), tenant, productID) {
			c.JSON(http.StatusBadGateway, gin.H{"error_code": "delete_failed", "message": "product delete did not complete"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "product deleted"})
	})

	api.PUT("/tenants/:tenantID/products/:productID/published", func(c *gin.Context) {
		tenantID := c.Param("tenantID")
		productID := c.Param("productID")

		var req publishRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.IsPublished == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error_code": "invalid_payload", "message": "is_published is required"})
			return
		}

		if _, err := tenants.GetByID(c.Request.Context(), tenantID); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error_code": "tenant_not_found", "message": err.Error()})
			return
		}

		task, err := queue.NewProductPublishTask(tenantID, productID, *req.IsPublished)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error_code": "task_error", "message": err.Error()})
			return
		}
		if _, err := queueClient.Enqueue(task); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error_code": "enqueue_error", "message": err.Error()})
			return
		}

		c.JSON(http.StatusAccepted, gin.H{"message": "publish update queued"})
	})
}
