package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/bookstack/internal/audit"
	"github.com/mrlokans/bookstack/internal/catalog"
	"github.com/mrlokans/bookstack/internal/covers"
	"github.com/mrlokans/bookstack/internal/database"
	"github.com/mrlokans/bookstack/internal/googlebooks"
	"github.com/mrlokans/bookstack/internal/http"
	"github.com/mrlokans/bookstack/internal/scheduler"
	"github.com/mrlokans/bookstack/internal/tasks"
)

// =============================================================================
// Catalog
// =============================================================================

var _ http.BookStore = (*catalog.Service)(nil)
var _ http.BookImporter = (*catalog.Service)(nil)
var _ http.AuthorStore = (*catalog.Service)(nil)
var _ http.CategoryStore = (*catalog.Service)(nil)
var _ http.ProviderSearcher = (*catalog.Service)(nil)
var _ http.Pinger = (*database.Database)(nil)
var _ http.ThumbnailCache = (*covers.Cache)(nil)
var _ http.Pinger = (*covers.Cache)(nil)

// =============================================================================
// External Services
// =============================================================================

var _ catalog.Provider = (*googlebooks.Client)(nil)

// =============================================================================
// Audit Trail
// =============================================================================

var _ catalog.Auditor = (*audit.Service)(nil)
var _ http.AuditReader = (*audit.Service)(nil)
var _ tasks.AuditEventCleaner = (*audit.Service)(nil)

// =============================================================================
// Background Work
// =============================================================================

var _ tasks.BookImporter = (*catalog.Service)(nil)
var _ http.TaskQueue = (*tasks.Client)(nil)
var _ scheduler.Enqueuer = (*tasks.Client)(nil)
