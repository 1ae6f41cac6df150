package handler

import (
	"github.com/gin-gonic/gin"
)

// Handlers groups everything the router mounts. Artifacts and Metrics may be nil.
type Handlers struct {
	Intake    *IntakeHandler
	Drafts    *DraftHandler
	Identity  *IdentityHandler
	Artifacts *ArtifactHandler
	Metrics   *MetricsHandler
}

// RegisterRoutes mounts the intake API under prefix.
func RegisterRoutes(r gin.IRouter, prefix string, h Handlers) {
	if h.Metrics != nil {
		r.GET("/health", h.Metrics.Health)
		r.GET("/ready", h.Metrics.Ready)
		r.GET("/metrics", h.Metrics.Prometheus)
	}

	api := r.Group(prefix)
	forms := api.Group("/forms/:type")
	forms.POST("/validate", h.Intake.Validate)
	forms.POST("/preview", h.Intake.Preview)
	forms.POST("/record", h.Intake.Record)
	forms.POST("/submit", h.Intake.Submit)

	drafts := api.Group("/drafts/:type")
	drafts.GET("", h.Drafts.Get)
	drafts.PUT("", h.Drafts.Put)
	drafts.DELETE("", h.Drafts.Delete)

	api.GET("/identity", h.Identity.Get)
	if h.Artifacts != nil {
		api.GET("/artifacts/:token", h.Artifacts.Download)
	}
}
