package rest

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/platemate/server/audit"
	"github.com/platemate/server/cache"
	mw "github.com/platemate/server/middleware"
	"github.com/platemate/server/model"
	"github.com/platemate/server/pipeline"
	"github.com/platemate/server/ratings"
	"github.com/platemate/server/scheduler"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AdminHandler handles admin-only REST endpoints.
// Routes must be protected by Auth + RequireAdmin middleware.
type AdminHandler struct {
	db      *gorm.DB
	pubsub  cache.PubSub
	ratings *ratings.Service
	sched   *scheduler.Scheduler
	audit   *audit.Service
	logger  *zap.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(
	db *gorm.DB,
	ps cache.PubSub,
	rt *ratings.Service,
	sched *scheduler.Scheduler,
	aud *audit.Service,
	logger *zap.Logger,
) *AdminHandler {
	return &AdminHandler{db: db, pubsub: ps, ratings: rt, sched: sched, audit: aud, logger: logger}
}

// ListUsers returns all registered users.
// GET /api/admin/users
func (h *AdminHandler) ListUsers(c *gin.Context) {
	var users []model.User
	if err := h.db.Order("id").Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users, "count": len(users)})
}

// DeleteUser queues an account for deletion by publishing to the pipeline.
// The consumer purges ratings, friendships, then the user row.
// DELETE /api/admin/users/:id
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	start := time.Now()
	admin, _ := mw.CurrentUser(c)

	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var target model.User
	if err := h.db.First(&target, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	payload, err := json.Marshal(pipeline.UserDeletedEvent{UserID: target.ID, Handle: target.Handle})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if err := h.pubsub.Publish(c.Request.Context(), pipeline.ChannelUserDeleted, string(payload)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "publish failed"})
		return
	}

	h.logger.Info("admin queued user deletion",
		zap.Int64("user_id", target.ID),
		zap.String("handle", target.Handle))
	h.audit.Log(audit.Entry{
		TraceID: mw.GetTraceID(c), UserID: &admin.ID, Handle: admin.Handle,
		Action: "admin_delete_user", Request: gin.H{"user_id": target.ID},
		IP: c.ClientIP(), DurationMs: int(time.Since(start).Milliseconds()),
	})
	c.JSON(http.StatusAccepted, gin.H{"message": "deletion queued"})
}

// DeleteRating removes any user's rating.
// DELETE /api/admin/ratings/:id
func (h *AdminHandler) DeleteRating(c *gin.Context) {
	start := time.Now()
	admin, _ := mw.CurrentUser(c)

	ratingID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if err := h.ratings.DeleteByID(ratingID); err != nil {
		writeDomainError(c, err)
		return
	}
	h.audit.Log(audit.Entry{
		TraceID: mw.GetTraceID(c), UserID: &admin.ID, Handle: admin.Handle,
		Action: "admin_delete_rating", Request: gin.H{"rating_id": ratingID},
		IP: c.ClientIP(), DurationMs: int(time.Since(start).Milliseconds()),
	})
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// ListSchedulerTasks returns names of all registered ticker tasks.
// GET /api/admin/scheduler
func (h *AdminHandler) ListSchedulerTasks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tasks": h.sched.ListTickers()})
}
