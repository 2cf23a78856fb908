// Package database provides the data access layer for the catalog.
//
// # Architecture
//
//	database/
//	├── database.go      # Connection setup (sqlite, postgres, mysql) and migrations
//	├── listing/         # Storage-level filter and sort translation
//	├── books/           # Book CRUD and association rows
//	├── authors/         # Author creation, lookup and listing
//	├── categories/      # Category creation, lookup and listing
//	└── audit/           # Audit event persistence
//
// # Using Sub-packages
//
// Each sub-package provides a Repository bound to a *gorm.DB. Repositories
// never open transactions across packages themselves; callers that need
// atomicity bind fresh repositories to the transaction handle:
//
//	db, err := database.NewDatabase("./bookstack.db")
//
//	err = db.DB.Transaction(func(tx *gorm.DB) error {
//		book := &entities.Book{Title: "Notes"}
//		if err := books.NewRepository(tx).Create(ctx, book); err != nil {
//			return err
//		}
//		author, _, err := authors.NewRepository(tx).GetOrCreate(ctx, "Ada Lovelace", now)
//		...
//	})
//
// # Not Found Convention
//
// Single-row lookups return gorm.ErrRecordNotFound when the row is absent;
// callers classify it with errors.Is.
package database
