// Package router assembles the gin engine and the background task server.
package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/dig"

	"github.com/semweave/semweave/internal/config"
	"github.com/semweave/semweave/internal/handler"
	"github.com/semweave/semweave/internal/middleware"
)

// RouterParams collects the router's dependencies from the container.
type RouterParams struct {
	dig.In

	Config            *config.Config
	ExtractionHandler *handler.ExtractionHandler
	OntologyHandler   *handler.OntologyHandler
	SystemHandler     *handler.SystemHandler
}

// NewRouter creates the HTTP router with the full middleware chain.
func NewRouter(params RouterParams) *gin.Engine {
	r := gin.New()

	// CORS first
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "Access-Control-Allow-Origin"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.Auth(params.Config))
	r.Use(middleware.TracingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	{
		RegisterExtractionRoutes(v1, params.ExtractionHandler)
		RegisterOntologyRoutes(v1, params.OntologyHandler)
		RegisterSystemRoutes(v1, params.SystemHandler)
	}

	return r
}

// RegisterExtractionRoutes registers the extraction run routes.
func RegisterExtractionRoutes(r *gin.RouterGroup, handler *handler.ExtractionHandler) {
	extractions := r.Group("/extractions")
	{
		extractions.POST("", handler.StartExtraction)
		extractions.GET("/:id", handler.GetExtraction)
		extractions.GET("/:id/checkpoints", handler.GetExtractionCheckpoints)
	}
}

// RegisterOntologyRoutes registers the ontology management routes.
func RegisterOntologyRoutes(r *gin.RouterGroup, handler *handler.OntologyHandler) {
	ontologies := r.Group("/ontologies")
	{
		ontologies.POST("/:namespace/:name", handler.UploadOntology)
		ontologies.GET("/:namespace/:name/:hash", handler.GetOntology)
		ontologies.GET("/:namespace/:name/:hash/shapes", handler.GetOntologyShapes)
	}
}

// RegisterSystemRoutes registers the system info routes.
func RegisterSystemRoutes(r *gin.RouterGroup, handler *handler.SystemHandler) {
	system := r.Group("/system")
	{
		system.GET("/info", handler.GetSystemInfo)
	}
}
