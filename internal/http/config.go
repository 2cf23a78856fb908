package http

import "github.com/mrlokans/bookstack/internal/auth"

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Catalog operations
	Books      BookStore
	Authors    AuthorStore
	Categories CategoryStore
	Importer   BookImporter
	Provider   ProviderSearcher

	// Thumbnail cache (optional)
	Thumbnails ThumbnailCache

	// Audit trail (optional)
	Audit AuditReader

	// Task queue (optional). Asynchronous imports are only routed when set.
	Tasks TaskQueue

	// Storage health check
	Database Pinger

	// Token authentication for mutation routes. Nil leaves them open.
	Auth *auth.Middleware

	// CORS origins. "*" allows any origin.
	AllowedOrigins []string

	// Application info
	Version string
}
