package rest

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/platemate/server/audit"
	mw "github.com/platemate/server/middleware"
	"github.com/platemate/server/ratings"
)

// RatingsHandler exposes rating creation and the rating views.
type RatingsHandler struct {
	svc   *ratings.Service
	audit *audit.Service
}

// NewRatingsHandler creates a new RatingsHandler.
func NewRatingsHandler(svc *ratings.Service, aud *audit.Service) *RatingsHandler {
	return &RatingsHandler{svc: svc, audit: aud}
}

// List handles GET /api/ratings: the caller's own ratings.
func (h *RatingsHandler) List(c *gin.Context) {
	user, _ := mw.CurrentUser(c)

	rows, err := h.svc.UserRatings(user)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ratings": rows})
}

// Create handles POST /api/ratings.
func (h *RatingsHandler) Create(c *gin.Context) {
	start := time.Now()
	user, _ := mw.CurrentUser(c)

	var req ratings.CreateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rating, err := h.svc.Create(c.Request.Context(), user, req)
	if err != nil {
		h.audit.Log(audit.Entry{
			TraceID: mw.GetTraceID(c), UserID: &user.ID, Handle: user.Handle,
			Action: "rating_create", Request: req, Error: err.Error(),
			IP: c.ClientIP(), DurationMs: int(time.Since(start).Milliseconds()),
		})
		writeDomainError(c, err)
		return
	}
	h.audit.Log(audit.Entry{
		TraceID: mw.GetTraceID(c), UserID: &user.ID, Handle: user.Handle,
		Action: "rating_create", Request: req, Response: gin.H{"id": rating.ID},
		IP: c.ClientIP(), DurationMs: int(time.Since(start).Milliseconds()),
	})
	c.JSON(http.StatusCreated, rating)
}

// Update handles PUT /api/ratings.
func (h *RatingsHandler) Update(c *gin.Context) {
	user, _ := mw.CurrentUser(c)

	var req ratings.UpdateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rating, err := h.svc.Update(user, req)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, rating)
}

// ForPlaceAndFriends handles GET /api/places/:id/ratings: ratings of the
// place by the caller and their friends.
func (h *RatingsHandler) ForPlaceAndFriends(c *gin.Context) {
	user, _ := mw.CurrentUser(c)

	placeID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid place id"})
		return
	}
	rows, err := h.svc.ForPlaceAndFriends(placeID, user)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ratings": rows})
}
