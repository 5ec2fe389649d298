// Package api wires the HTTP surface of the money-movement core: routing,
// middleware, and server lifecycle.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/novabank/core-banking/internal/api/handler"
	"github.com/novabank/core-banking/internal/api/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	accountHandler *handler.AccountHandler,
	transferHandler *handler.TransferHandler,
	adminHandler *handler.AdminHandler,
	pinHandler *handler.PinHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		// User-facing operations, identity injected by the auth gateway
		user := v1.Group("", middleware.UserAuth())
		{
			accounts := user.Group("/accounts")
			{
				accounts.POST("", accountHandler.Create)
				accounts.GET("/:id", accountHandler.GetByID)
				accounts.POST("/:id/deposits", accountHandler.Deposit)
				accounts.GET("/:id/transactions", accountHandler.GetTransactions)
			}

			transfers := user.Group("/transfers")
			{
				transfers.POST("", transferHandler.Initiate)
				transfers.GET("/:id", transferHandler.GetByID)
				transfers.GET("/reference/:reference", transferHandler.GetByReference)
			}

			user.PUT("/users/me/transfer-pin", pinHandler.Set)
		}

		// Administrative operations
		admin := v1.Group("/admin", middleware.AdminAuth())
		{
			admin.POST("/transfers/:id/approve", adminHandler.Approve)
			admin.POST("/transfers/:id/decline", adminHandler.Decline)
			admin.POST("/transfers/:id/reverse", adminHandler.Reverse)
			admin.PATCH("/transfers/:id", adminHandler.Edit)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
