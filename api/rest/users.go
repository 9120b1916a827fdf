package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/platemate/server/friends"
	mw "github.com/platemate/server/middleware"
)

// UsersHandler exposes the user search engine.
type UsersHandler struct {
	svc *friends.Service
}

// NewUsersHandler creates a new UsersHandler.
func NewUsersHandler(svc *friends.Service) *UsersHandler {
	return &UsersHandler{svc: svc}
}

// Search handles GET /api/users/search?term=&page=.
func (h *UsersHandler) Search(c *gin.Context) {
	user, _ := mw.CurrentUser(c)

	page := 1
	if raw := c.Query("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page"})
			return
		}
		page = parsed
	}

	result, err := h.svc.SearchUsers(user, c.Query("term"), page)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Me handles GET /api/users/me.
func (h *UsersHandler) Me(c *gin.Context) {
	user, _ := mw.CurrentUser(c)
	c.JSON(http.StatusOK, gin.H{
		"id":         user.ID,
		"handle":     user.Handle,
		"email":      user.Email,
		"first_name": user.FirstName,
		"last_name":  user.LastName,
	})
}
