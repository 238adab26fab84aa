package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"vinyl_back_end/internal/catalog"
)

// 📀 GET /api/products?genre=&search=
func (h *Handler) GetProducts(c *gin.Context) {
	products, err := h.Catalog.Products(c.Request.Context(), catalog.Filter{
		Genre:  c.Query("genre"),
		Search: c.Query("search"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

// 🎵 GET /api/products/genres
func (h *Handler) GetGenres(c *gin.Context) {
	genres, err := h.Catalog.Genres(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, genres)
}
