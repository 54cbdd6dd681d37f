package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"pay-watch.backend/internal/interfaces/http/handlers"
)

type routeDeps struct {
	invoiceHandler *handlers.InvoiceHandler
	webhookHandler *handlers.WebhookHandler
	webhookAuth    gin.HandlerFunc
}

func registerAPIV1Routes(r *gin.Engine, d routeDeps) {
	v1 := r.Group("/api/v1")
	{
		invoices := v1.Group("/invoices")
		{
			invoices.POST("", d.invoiceHandler.Create)
			invoices.GET("/:id", d.invoiceHandler.Get)
			invoices.POST("/:id/watch", d.invoiceHandler.Watch)
		}

		webhooks := v1.Group("/webhooks")
		webhooks.Use(d.webhookAuth)
		{
			webhooks.POST("/tx", d.webhookHandler.HandleTxNotification)
		}
	}
}

func registerHealthRoute(r *gin.Engine, pingDB func() error) {
	r.GET("/health", func(c *gin.Context) {
		if err := pingDB(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

func registerMetricsRoute(r *gin.Engine) {
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
