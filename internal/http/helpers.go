package http

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookstack/internal/catalog"
	"github.com/mrlokans/bookstack/internal/database/listing"
)

// --- Response Types ---

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`    // machine-readable error code
	Details any    `json:"details,omitempty"` // per-field validation messages
}

// PaginatedResponse wraps paginated data with metadata.
type PaginatedResponse struct {
	Data    any   `json:"data"`
	Total   int64 `json:"total"`
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
	HasMore bool  `json:"hasMore"`
}

// Machine-readable error codes.
const (
	CodeBadRequest          = "bad_request"
	CodeValidation          = "validation_failed"
	CodeNotFound            = "not_found"
	CodeConflict            = "conflict"
	CodeProviderUnavailable = "provider_unavailable"
	CodeInternal            = "internal"
)

// --- Error Response Helpers ---

// respondBadRequest sends a 400 Bad Request response.
func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message, Code: CodeBadRequest})
}

// respondNotFound sends a 404 Not Found response.
func respondNotFound(c *gin.Context, resource string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: resource + " not found", Code: CodeNotFound})
}

// respondInternalError logs the error and sends a 500 Internal Server Error response.
// The actual error is logged but not exposed to the client.
func respondInternalError(c *gin.Context, err error, context string) {
	log.Printf("Internal error (%s): %v", context, err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error", Code: CodeInternal})
}

// respondServiceError maps a catalog error kind onto its status code.
// Anything unclassified is a 500.
func respondServiceError(c *gin.Context, err error, context string) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		respondInternalError(c, err, context)
		return
	}

	resp := ErrorResponse{Error: err.Error(), Code: code}
	var verr *catalog.ValidationError
	if errors.As(err, &verr) {
		resp.Details = verr.Fields
	}
	c.JSON(status, resp)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, catalog.ErrValidation), errors.Is(err, listing.ErrInvalid):
		return http.StatusUnprocessableEntity, CodeValidation
	case errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, catalog.ErrConflict):
		return http.StatusConflict, CodeConflict
	case errors.Is(err, catalog.ErrProviderUnavailable):
		return http.StatusBadGateway, CodeProviderUnavailable
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// --- Parameter Parsing ---

// parseIDParam extracts and validates an unsigned integer ID from URL parameters.
// Returns the parsed ID or responds with a 400 error and returns 0, false.
func parseIDParam(c *gin.Context, paramName string) (uint, bool) {
	idStr := c.Param(paramName)
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil || id == 0 {
		respondBadRequest(c, "invalid "+paramName)
		return 0, false
	}
	return uint(id), true
}

// parseListing reads filter, sort, limit and offset from the query string.
// On failure it responds with 422 and returns false.
func parseListing(c *gin.Context) (listing.Query, bool) {
	q, err := listing.ParseValues(c.Request.URL.Query())
	if err != nil {
		respondServiceError(c, err, "parse listing")
		return listing.Query{}, false
	}
	return q, true
}

// parseIntQuery reads an optional non-negative integer query parameter.
func parseIntQuery(c *gin.Context, name string, fallback int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		respondBadRequest(c, "invalid "+name)
		return 0, false
	}
	return n, true
}

// bindJSON decodes the request body into dst. Malformed JSON is a 400.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return false
	}
	return true
}
