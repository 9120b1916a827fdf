package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// TraceIDKey is the gin context key the trace id is stored under.
	TraceIDKey = "trace_id"
	// TraceIDHeader carries the trace id on requests and responses.
	// Callers may supply their own; otherwise one is minted here.
	TraceIDHeader = "X-Trace-ID"
)

// TraceID tags every request with a trace id and echoes it back in the
// response. The same id flows into request logs and audit entries.
func TraceID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(TraceIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(TraceIDKey, id)
		c.Header(TraceIDHeader, id)
		c.Next()
	}
}

// GetTraceID returns the request's trace id, or "" outside a traced request.
func GetTraceID(c *gin.Context) string {
	if v, ok := c.Get(TraceIDKey); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}
