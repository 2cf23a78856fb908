package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookstack/internal/entities"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

type AuditController struct {
	reader AuditReader
}

func NewAuditController(reader AuditReader) *AuditController {
	return &AuditController{reader: reader}
}

// ListEvents handles GET /api/audit?limit=&offset=&entityType=&entityId=
// Events come newest first.
func (ac *AuditController) ListEvents(c *gin.Context) {
	limit, ok := parseIntQuery(c, "limit", defaultAuditLimit)
	if !ok {
		return
	}
	offset, ok := parseIntQuery(c, "offset", 0)
	if !ok {
		return
	}
	if limit == 0 {
		limit = defaultAuditLimit
	}
	if limit > maxAuditLimit {
		limit = maxAuditLimit
	}

	var (
		events []entities.AuditEvent
		total  int64
		err    error
	)
	if entityType := c.Query("entityType"); entityType != "" {
		entityID, ok := parseIntQuery(c, "entityId", 0)
		if !ok {
			return
		}
		if entityID == 0 {
			respondBadRequest(c, "entityId is required with entityType")
			return
		}
		events, total, err = ac.reader.GetEventsForEntity(c.Request.Context(), entityType, uint(entityID), limit, offset)
	} else {
		events, total, err = ac.reader.GetEvents(c.Request.Context(), limit, offset)
	}
	if err != nil {
		respondInternalError(c, err, "list audit events")
		return
	}
	if events == nil {
		events = []entities.AuditEvent{}
	}

	c.JSON(http.StatusOK, PaginatedResponse{
		Data:    events,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: int64(offset+len(events)) < total,
	})
}

// GetEvent handles GET /api/audit/:id
func (ac *AuditController) GetEvent(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	event, err := ac.reader.GetEvent(c.Request.Context(), id)
	if err != nil {
		respondInternalError(c, err, "get audit event")
		return
	}
	if event == nil {
		respondNotFound(c, "audit event")
		return
	}

	c.JSON(http.StatusOK, event)
}
