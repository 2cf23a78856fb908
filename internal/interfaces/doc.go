// Package interfaces documents the core abstractions used throughout the application.
//
// # Interface Categories
//
// ## Catalog Interfaces
//
//   - BookStore, AuthorStore, CategoryStore: catalog queries and mutations (internal/http/stores.go)
//   - BookImporter: copy a Google Books volume into the catalog (internal/http/stores.go, internal/tasks/import_book.go)
//   - ProviderSearcher: read-only Google Books passthrough (internal/http/stores.go)
//
// All of them are implemented by catalog.Service.
//
// ## External Service Interfaces
//
//   - Provider: volume source used by imports (internal/catalog/service.go),
//     implemented by googlebooks.Client
//
// ## Audit Interfaces
//
//   - Auditor: non-blocking sink for mutation events (internal/catalog/service.go)
//   - AuditReader: paged audit history (internal/http/stores.go)
//   - AuditEventCleaner: retention pruning (internal/tasks/cleanup_audit.go)
//
// All three are implemented by audit.Service.
//
// ## Background Work Interfaces
//
//   - TaskQueue: enqueue tasks and poll their status (internal/http/stores.go)
//   - Enqueuer: what the cron scheduler needs from the queue (internal/scheduler/audit_cleanup.go)
//
// Both are implemented by tasks.Client.
//
// # Adding a Provider
//
// Implement catalog.Provider (Search, GetByID, SearchByISBN) and pass it to
// catalog.NewService. Return an error wrapping googlebooks.ErrVolumeNotFound
// for unknown ids so imports report ErrNotFound; any other error is reported
// as ErrProviderUnavailable.
//
// # Compile-Time Checks
//
// checks.go asserts every implementation listed above.
package interfaces
