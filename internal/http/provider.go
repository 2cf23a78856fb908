package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookstack/internal/googlebooks"
)

// ProviderController proxies lookups to Google Books without touching the
// catalog.
type ProviderController struct {
	provider ProviderSearcher
}

func NewProviderController(provider ProviderSearcher) *ProviderController {
	return &ProviderController{provider: provider}
}

// SearchVolumes handles GET /api/provider/volumes?q=&maxResults=
func (pc *ProviderController) SearchVolumes(c *gin.Context) {
	maxResults, ok := parseIntQuery(c, "maxResults", googlebooks.DefaultMaxResults)
	if !ok {
		return
	}

	volumes, err := pc.provider.SearchProvider(c.Request.Context(), c.Query("q"), maxResults)
	if err != nil {
		respondServiceError(c, err, "search provider")
		return
	}

	c.JSON(http.StatusOK, volumes)
}

// GetVolume handles GET /api/provider/volumes/:id
func (pc *ProviderController) GetVolume(c *gin.Context) {
	volume, err := pc.provider.GetProviderVolume(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "get provider volume")
		return
	}

	c.JSON(http.StatusOK, volume)
}

// SearchISBN handles GET /api/provider/isbn/:isbn
func (pc *ProviderController) SearchISBN(c *gin.Context) {
	volumes, err := pc.provider.SearchProviderByISBN(c.Request.Context(), c.Param("isbn"))
	if err != nil {
		respondServiceError(c, err, "search provider by isbn")
		return
	}

	c.JSON(http.StatusOK, volumes)
}
