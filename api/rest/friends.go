package rest

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/platemate/server/audit"
	"github.com/platemate/server/friends"
	mw "github.com/platemate/server/middleware"
	"github.com/platemate/server/model"
	"gorm.io/gorm"
)

// FriendsHandler exposes the friendship lifecycle and views.
type FriendsHandler struct {
	db    *gorm.DB
	svc   *friends.Service
	audit *audit.Service
}

// NewFriendsHandler creates a new FriendsHandler.
func NewFriendsHandler(db *gorm.DB, svc *friends.Service, aud *audit.Service) *FriendsHandler {
	return &FriendsHandler{db: db, svc: svc, audit: aud}
}

func (h *FriendsHandler) logAction(c *gin.Context, user model.User, action string, req interface{}, start time.Time, errMsg string) {
	h.audit.Log(audit.Entry{
		TraceID:    mw.GetTraceID(c),
		UserID:     &user.ID,
		Handle:     user.Handle,
		Action:     action,
		Request:    req,
		Error:      errMsg,
		IP:         c.ClientIP(),
		DurationMs: int(time.Since(start).Milliseconds()),
	})
}

// userByID loads the counterpart user for lifecycle operations.
func (h *FriendsHandler) userByID(c *gin.Context, id int64) (model.User, bool) {
	var u model.User
	if err := h.db.First(&u, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return model.User{}, false
	}
	return u, true
}

type friendTargetRequest struct {
	UserID int64 `json:"user_id" binding:"required"`
}

// Request handles POST /api/friends/request.
func (h *FriendsHandler) Request(c *gin.Context) {
	start := time.Now()
	user, _ := mw.CurrentUser(c)

	var req friendTargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	target, ok := h.userByID(c, req.UserID)
	if !ok {
		return
	}
	if err := h.svc.Request(user, target); err != nil {
		h.logAction(c, user, "friend_request", req, start, err.Error())
		writeDomainError(c, err)
		return
	}
	h.logAction(c, user, "friend_request", req, start, "")
	c.JSON(http.StatusCreated, gin.H{"message": "request sent"})
}

// Accept handles POST /api/friends/accept.
func (h *FriendsHandler) Accept(c *gin.Context) {
	start := time.Now()
	user, _ := mw.CurrentUser(c)

	var req friendTargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	requester, ok := h.userByID(c, req.UserID)
	if !ok {
		return
	}
	if err := h.svc.Accept(user, requester); err != nil {
		h.logAction(c, user, "friend_accept", req, start, err.Error())
		writeDomainError(c, err)
		return
	}
	h.logAction(c, user, "friend_accept", req, start, "")
	c.JSON(http.StatusOK, gin.H{"message": "accepted"})
}

// Delete handles DELETE /api/friends/:id.
func (h *FriendsHandler) Delete(c *gin.Context) {
	start := time.Now()
	user, _ := mw.CurrentUser(c)

	otherID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	other, ok := h.userByID(c, otherID)
	if !ok {
		return
	}
	if err := h.svc.Delete(user, other); err != nil {
		h.logAction(c, user, "friend_delete", gin.H{"user_id": otherID}, start, err.Error())
		writeDomainError(c, err)
		return
	}
	h.logAction(c, user, "friend_delete", gin.H{"user_id": otherID}, start, "")
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

// List handles GET /api/friends.
func (h *FriendsHandler) List(c *gin.Context) {
	user, _ := mw.CurrentUser(c)

	list, err := h.svc.ListFriends(user)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"friends": list})
}

// Pending handles GET /api/friends/pending?direction=inbound|outbound|both.
func (h *FriendsHandler) Pending(c *gin.Context) {
	user, _ := mw.CurrentUser(c)

	dir := friends.Direction(c.DefaultQuery("direction", string(friends.DirectionBoth)))
	list, err := h.svc.PendingRequests(user, dir)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pending": list})
}
