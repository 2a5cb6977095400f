package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/lessonforge-backend/internal/http/response"
	pkgerrors "github.com/yungbote/lessonforge-backend/internal/pkg/errors"
	"github.com/yungbote/lessonforge-backend/internal/pkg/logger"
)

type errorMapping struct {
	target error
	status int
	code   string
}

// Order matters: the first match wins.
var errorMappings = []errorMapping{
	{pkgerrors.ErrNotFound, http.StatusNotFound, "not_found"},
	{pkgerrors.ErrInvalidArgument, http.StatusBadRequest, "invalid_argument"},
	{pkgerrors.ErrConflict, http.StatusConflict, "conflict"},
	{pkgerrors.ErrUnprocessable, http.StatusUnprocessableEntity, "unprocessable"},
	{pkgerrors.ErrUpstream, http.StatusBadGateway, "upstream_error"},
}

// respondServiceError maps a service error onto the error envelope. Unknown
// errors become 500 and are logged.
func respondServiceError(c *gin.Context, log *logger.Logger, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			response.RespondError(c, m.status, m.code, err)
			return
		}
	}
	if log != nil {
		log.Error("Unhandled service error", "path", c.FullPath(), "error", err)
	}
	response.RespondError(c, http.StatusInternalServerError, "internal", errors.New("internal server error"))
}

func badRequest(c *gin.Context, msg string) {
	response.RespondError(c, http.StatusBadRequest, "invalid_argument", errors.New(msg))
}
