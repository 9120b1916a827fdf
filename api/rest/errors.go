package rest

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/platemate/server/friends"
	"github.com/platemate/server/places"
	"github.com/platemate/server/ratings"
)

// writeDomainError maps domain sentinel errors onto HTTP status codes. Errors
// with no mapping become a generic 500 so internals never leak to clients.
func writeDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, friends.ErrInvalidArgument),
		errors.Is(err, ratings.ErrInvalidArgument),
		errors.Is(err, friends.ErrPageOutOfRange):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, friends.ErrRelationshipNotFound),
		errors.Is(err, ratings.ErrRatingNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, friends.ErrDuplicateRelationship),
		errors.Is(err, friends.ErrAlreadyAccepted):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, friends.ErrNotTheTarget),
		errors.Is(err, ratings.ErrNotOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, places.ErrBadStatus),
		errors.Is(err, places.ErrMissingData):
		c.JSON(http.StatusBadGateway, gin.H{"error": "place lookup failed"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// isUniqueViolation detects duplicate-key errors from common database drivers.
func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") ||
		strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "already exists")
}
