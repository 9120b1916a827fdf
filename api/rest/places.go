package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/platemate/server/places"
)

// PlacesHandler proxies place lookups to the places API.
type PlacesHandler struct {
	client places.Client
}

// NewPlacesHandler creates a new PlacesHandler.
func NewPlacesHandler(client places.Client) *PlacesHandler {
	return &PlacesHandler{client: client}
}

// Details handles GET /api/places/lookup/:google_id.
func (h *PlacesHandler) Details(c *gin.Context) {
	googleID := c.Param("google_id")
	if googleID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing place id"})
		return
	}
	details, err := h.client.Details(c.Request.Context(), googleID)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

// Search handles GET /api/places/search?text=.
func (h *PlacesHandler) Search(c *gin.Context) {
	text := c.Query("text")
	if text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing search text"})
		return
	}
	results, err := h.client.Search(c.Request.Context(), text)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"places": results})
}
