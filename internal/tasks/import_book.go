package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/bookstack/internal/entities"
)

// BookImporter copies a provider volume into the catalog.
type BookImporter interface {
	ImportBook(ctx context.Context, externalID string) (*entities.Book, error)
}

// ImportBookTask imports one Google Books volume in the background.
type ImportBookTask struct {
	ExternalID string `json:"external_id"`
}

// Config makes a single attempt: imports are never retried, a failed task
// is reported through its status instead.
func (t ImportBookTask) Config() backlite.QueueConfig {
	return queueConfig(QueueImportBook, 1, time.Second, time.Minute)
}

func ImportBookProcessor(importer BookImporter) backlite.QueueProcessor[ImportBookTask] {
	return func(ctx context.Context, task ImportBookTask) error {
		if importer == nil {
			return fmt.Errorf("book importer not configured")
		}

		book, err := importer.ImportBook(ctx, task.ExternalID)
		if err != nil {
			return fmt.Errorf("import volume %s: %w", task.ExternalID, err)
		}

		log.Printf("[TASK] Imported volume %s as book %d (%s)", task.ExternalID, book.ID, book.Title)
		return nil
	}
}

func NewImportBookQueue(importer BookImporter) backlite.Queue {
	return backlite.NewQueue(ImportBookProcessor(importer))
}
