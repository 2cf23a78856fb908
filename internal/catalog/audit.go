package catalog

import (
	"fmt"
	"unicode/utf8"

	"github.com/mrlokans/bookstack/internal/entities"
)

const maxAuditMessage = 500

func (s *Service) record(eventType entities.AuditEventType, action, entityType string, entityID *uint, description string, err error) {
	if s.auditor == nil {
		return
	}

	event := &entities.AuditEvent{
		EventType:   eventType,
		Action:      action,
		Description: truncate(description, maxAuditMessage),
		EntityType:  entityType,
		Status:      entities.AuditStatusSuccess,
	}
	if entityID != nil && *entityID != 0 {
		id := *entityID
		event.EntityID = &id
	}
	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), maxAuditMessage)
		event.Metadata = fmt.Sprintf(`{"reason":%q}`, Kind(err))
	}

	s.auditor.Record(event)
}

// truncate caps s at maxLen bytes without splitting a UTF-8 sequence.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
