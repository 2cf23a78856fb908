package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookstack/internal/catalog"
	"github.com/mrlokans/bookstack/internal/entities"
)

// AuthorsController serves /api/authors and /api/categories, which share a
// shape.
type AuthorsController struct {
	authors    AuthorStore
	categories CategoryStore
}

func NewAuthorsController(authors AuthorStore, categories CategoryStore) *AuthorsController {
	return &AuthorsController{authors: authors, categories: categories}
}

// ListAuthors handles GET /api/authors
func (ac *AuthorsController) ListAuthors(c *gin.Context) {
	q, ok := parseListing(c)
	if !ok {
		return
	}

	authors, err := ac.authors.ListAuthors(c.Request.Context(), q)
	if err != nil {
		respondServiceError(c, err, "list authors")
		return
	}
	if authors == nil {
		authors = []entities.Author{}
	}

	c.JSON(http.StatusOK, gin.H{"authors": authors})
}

// AddAuthor handles POST /api/authors
func (ac *AuthorsController) AddAuthor(c *gin.Context) {
	var in catalog.NameInput
	if !bindJSON(c, &in) {
		return
	}

	author, err := ac.authors.AddAuthor(c.Request.Context(), in.Name)
	if err != nil {
		respondServiceError(c, err, "add author")
		return
	}

	c.JSON(http.StatusCreated, author)
}

// ListCategories handles GET /api/categories
func (ac *AuthorsController) ListCategories(c *gin.Context) {
	q, ok := parseListing(c)
	if !ok {
		return
	}

	categories, err := ac.categories.ListCategories(c.Request.Context(), q)
	if err != nil {
		respondServiceError(c, err, "list categories")
		return
	}
	if categories == nil {
		categories = []entities.Category{}
	}

	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// AddCategory handles POST /api/categories
func (ac *AuthorsController) AddCategory(c *gin.Context) {
	var in catalog.NameInput
	if !bindJSON(c, &in) {
		return
	}

	category, err := ac.categories.AddCategory(c.Request.Context(), in.Name)
	if err != nil {
		respondServiceError(c, err, "add category")
		return
	}

	c.JSON(http.StatusCreated, category)
}
