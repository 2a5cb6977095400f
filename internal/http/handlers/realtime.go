package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/lessonforge-backend/internal/pkg/logger"
	"github.com/yungbote/lessonforge-backend/internal/realtime"
)

type RealtimeHandler struct {
	Log *logger.Logger
	Hub *realtime.SSEHub
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.SSEHub) *RealtimeHandler {
	return &RealtimeHandler{Log: log.With("handler", "RealtimeHandler"), Hub: hub}
}

// GET /api/lessons/:id/processing-step/stream
func (h *RealtimeHandler) LessonProcessingStream(c *gin.Context) {
	id, ok := lessonID(c)
	if !ok {
		return
	}
	client := h.Hub.NewSSEClient()
	client.Logger = h.Log.With("SSEClientID", client.ID, "lesson_id", id)
	h.Hub.AddChannel(client, realtime.LessonProcessingChannel(id))
	client.Logger.Debug("SSE stream open")

	h.Hub.ServeHTTP(c.Writer, c.Request, client)

	h.Hub.CloseClient(client)
	client.Logger.Debug("SSE stream closed")
}
