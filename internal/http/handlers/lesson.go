package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/lessonforge-backend/internal/http/response"
	"github.com/yungbote/lessonforge-backend/internal/pkg/logger"
	"github.com/yungbote/lessonforge-backend/internal/services"
)

type LessonHandler struct {
	log     *logger.Logger
	lessons services.LessonService
	saga    services.SagaService
}

func NewLessonHandler(log *logger.Logger, lessons services.LessonService, saga services.SagaService) *LessonHandler {
	return &LessonHandler{
		log:     log.With("handler", "LessonHandler"),
		lessons: lessons,
		saga:    saga,
	}
}

// POST /api/lessons
func (h *LessonHandler) CreateLesson(c *gin.Context) {
	var in services.CreateLessonInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	lesson, err := h.saga.CreateLesson(c.Request.Context(), in)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	response.RespondCreated(c, gin.H{"lesson": lesson})
}

// GET /api/lessons/:id
// The segment is the lesson slug on this route.
func (h *LessonHandler) GetLesson(c *gin.Context) {
	lesson, err := h.lessons.GetBySlug(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"lesson": lesson})
}

// POST /api/lessons/:id/re-try?isRestart=bool
func (h *LessonHandler) RetryGeneration(c *gin.Context) {
	id, ok := lessonID(c)
	if !ok {
		return
	}
	isRestart, ok := boolQuery(c, "isRestart", false)
	if !ok {
		return
	}
	lesson, err := h.saga.RetryGeneration(c.Request.Context(), id, isRestart)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"lesson": lesson})
}

// POST /api/lessons/:id/cancel-ai-processing
func (h *LessonHandler) CancelGeneration(c *gin.Context) {
	id, ok := lessonID(c)
	if !ok {
		return
	}
	lesson, err := h.saga.CancelGeneration(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"lesson": lesson})
}

// POST /api/lessons/:id/publish
func (h *LessonHandler) Publish(c *gin.Context) {
	id, ok := lessonID(c)
	if !ok {
		return
	}
	lesson, err := h.lessons.Publish(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"lesson": lesson})
}

// POST /api/lessons/:id/unpublish
func (h *LessonHandler) Unpublish(c *gin.Context) {
	id, ok := lessonID(c)
	if !ok {
		return
	}
	lesson, err := h.lessons.Unpublish(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"lesson": lesson})
}

// DELETE /api/lessons/:id
func (h *LessonHandler) Delete(c *gin.Context) {
	id, ok := lessonID(c)
	if !ok {
		return
	}
	if err := h.lessons.Delete(c.Request.Context(), id); err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func lessonID(c *gin.Context) (int64, bool) {
	return int64Param(c, "id", "invalid lesson id")
}

func int64Param(c *gin.Context, name, msg string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Param(name)), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, msg)
		return 0, false
	}
	return id, true
}

func boolQuery(c *gin.Context, name string, def bool) (bool, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return def, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		badRequest(c, "invalid "+name)
		return false, false
	}
	return v, true
}
