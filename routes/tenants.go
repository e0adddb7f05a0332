package routes

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eveternet/styleseeker-worker/internal/catalog"
	"github.com/eveternet/styleseeker-worker/internal/database"
	"github.com/eveternet/styleseeker-worker/middleware"
	"github.com/eveternet/styleseeker-worker/models"
)

// SetupTenantRoutes wires tenant onboarding.
func SetupTenantRoutes(router *gin.Engine, auth *middleware.AuthMiddleware, tenants *database.TenantStore) {
	api := router.Group("/api/v1")
	api.Use(auth.RequireAuth())

	api.POST("/tenants", func(c *gin.Context) {
		var req models.CreateTenantRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error_code": "invalid_payload", "message": err.Error()})
			return
		}

		// Fail fast on platforms the registry does not know.
		if _, err := catalog.Resolve(req.Platform, catalog.Credentials{}); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error_code": "unknown_platform",
				"message":    fmt.Sprintf("platform %q is not supported, known platforms: %v", req.Platform, catalog.Platforms()),
			})
			return
		}

		tenant, err := tenants.Create(c.Request.Context(), req)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error_code": "create_failed", "message": err.Error()})
			return
		}

		c.JSON(http.StatusCreated, tenant)
	})
}
