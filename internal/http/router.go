package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookstack/internal/auth"
)

// NewRouter creates and configures the HTTP router with all endpoints.
// Optional dependencies left nil in cfg simply leave their routes out.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())

	// Apply security headers to all responses
	router.Use(auth.SecurityHeadersMiddleware())
	router.Use(auth.StrictTransportSecurityMiddleware())

	router.Use(CORSMiddleware(cfg.AllowedOrigins))

	requireToken := auth.NewMiddleware("", nil).RequireToken()
	if cfg.Auth != nil {
		requireToken = cfg.Auth.RequireToken()
	}

	// Health endpoints
	checks := []HealthCheck{{Name: "database", Probe: cfg.Database, Critical: true}}
	if p, ok := cfg.Thumbnails.(Pinger); ok {
		checks = append(checks, HealthCheck{Name: "thumbnails", Probe: p})
	}
	health := NewHealthController(cfg.Version, checks...)
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	api := router.Group("/api")
	mutations := api.Group("", requireToken, MutationLogMiddleware())

	// Books
	if cfg.Books != nil {
		books := NewBooksController(cfg.Books, cfg.Importer, cfg.Thumbnails)
		api.GET("/books", books.ListBooks)
		api.GET("/books/:id", books.GetBook)
		api.GET("/stats", books.GetStats)
		if cfg.Thumbnails != nil {
			api.GET("/books/:id/thumbnail", books.GetThumbnail)
		}
		mutations.POST("/books", books.AddBook)
		mutations.PATCH("/books/:id", books.UpdateBook)
		mutations.DELETE("/books/:id", books.DeleteBook)
		if cfg.Importer != nil {
			mutations.POST("/books/import", books.ImportBook)
		}
	}

	// Authors and categories
	if cfg.Authors != nil && cfg.Categories != nil {
		taxonomy := NewAuthorsController(cfg.Authors, cfg.Categories)
		api.GET("/authors", taxonomy.ListAuthors)
		api.GET("/categories", taxonomy.ListCategories)
		mutations.POST("/authors", taxonomy.AddAuthor)
		mutations.POST("/categories", taxonomy.AddCategory)
	}

	// Google Books passthrough
	if cfg.Provider != nil {
		provider := NewProviderController(cfg.Provider)
		api.GET("/provider/volumes", provider.SearchVolumes)
		api.GET("/provider/volumes/:id", provider.GetVolume)
		api.GET("/provider/isbn/:isbn", provider.SearchISBN)
	}

	if cfg.Audit != nil {
		auditController := NewAuditController(cfg.Audit)
		api.GET("/audit", auditController.ListEvents)
		api.GET("/audit/:id", auditController.GetEvent)
	}

	// Task queue endpoints
	if cfg.Tasks != nil {
		tasksController := NewTasksController(cfg.Tasks)
		api.GET("/tasks/:id", tasksController.GetTaskStatus)
		mutations.POST("/imports", tasksController.EnqueueImport)
	}

	router.NoRoute(func(c *gin.Context) {
		respondNotFound(c, "route")
	})

	return router
}
