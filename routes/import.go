package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"github.com/eveternet/styleseeker-worker/internal/database"
	"github.com/eveternet/styleseeker-worker/internal/queue"
	"github.com/eveternet/styleseeker-worker/middleware"
	"github.com/eveternet/styleseeker-worker/services"
)

// SetupImportRoutes wires the import trigger surface. The queued variant
// returns immediately; the sync variant blocks and returns the full job
// result with its status mapped onto the HTTP response.
func SetupImportRoutes(router *gin.Engine, auth *middleware.AuthMiddleware, importer *services.Importer, tenants *database.TenantStore, queueClient *asynq.Client) {
	api := router.Group("/api/v1")
	api.Use(auth.RequireAuth())

	api.POST("/tenants/:tenantID/import", func(c *gin.Context) {
		tenantID := c.Param("tenantID")

		if _, err := tenants.GetByID(c.Request.Context(), tenantID); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error_code": "tenant_not_found", "message": err.Error()})
			return
		}

		task, err := queue.NewCatalogImportTask(tenantID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error_code": "task_error", "message": err.Error()})
			return
		}
		info, err := queueClient.Enqueue(task)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error_code": "enqueue_error", "message": err.Error()})
			return
		}

		c.JSON(http.StatusAccepted, gin.H{
			"message": "import queued",
			"task_id": info.ID,
		})
	})

	api.POST("/tenants/:tenantID/import/run", func(c *gin.Context) {
		tenantID := c.Param("tenantID")

		tenant, err := tenants.GetByID(c.Request.Context(), tenantID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error_code": "tenant_not_found", "message": err.Error()})
			return
		}

		result := importer.ProcessAndStoreProducts(c.Request.Context(), tenant)
		c.JSON(result.Status, result)
	})
}
