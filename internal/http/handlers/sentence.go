package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/lessonforge-backend/internal/http/response"
	"github.com/yungbote/lessonforge-backend/internal/pkg/logger"
	"github.com/yungbote/lessonforge-backend/internal/services"
)

type SentenceHandler struct {
	log     *logger.Logger
	lessons services.LessonService
}

func NewSentenceHandler(log *logger.Logger, lessons services.LessonService) *SentenceHandler {
	return &SentenceHandler{log: log.With("handler", "SentenceHandler"), lessons: lessons}
}

// POST /api/sentences/:id/mark-active-inactive?active=bool
func (h *SentenceHandler) SetActive(c *gin.Context) {
	id, ok := int64Param(c, "id", "invalid sentence id")
	if !ok {
		return
	}
	if c.Query("active") == "" {
		badRequest(c, "active is required")
		return
	}
	active, ok := boolQuery(c, "active", false)
	if !ok {
		return
	}
	sentence, err := h.lessons.SetSentenceActive(c.Request.Context(), id, active)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"sentence": sentence})
}
