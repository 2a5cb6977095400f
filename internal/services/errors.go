package services

import (
	"fmt"

	"github.com/yungbote/lessonforge-backend/internal/clients/metadata"
	pkgerrors "github.com/yungbote/lessonforge-backend/internal/pkg/errors"
)

var (
	ErrLessonNotFound   = fmt.Errorf("lesson %w", pkgerrors.ErrNotFound)
	ErrSentenceNotFound = fmt.Errorf("sentence %w", pkgerrors.ErrNotFound)
	ErrSlugTaken        = fmt.Errorf("%w: a lesson with this title already exists", pkgerrors.ErrConflict)
	ErrNotAIAssisted    = fmt.Errorf("%w: lesson is not AI-assisted", pkgerrors.ErrUnprocessable)
	ErrNotReady         = fmt.Errorf("%w: lesson is not ready", pkgerrors.ErrUnprocessable)
	ErrJobCreation      = fmt.Errorf("%w: could not create AI job", pkgerrors.ErrUpstream)
	ErrPublish          = fmt.Errorf("%w: could not publish event", pkgerrors.ErrUpstream)
	ErrMetadata         = metadata.ErrUnavailable
)

func invalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", pkgerrors.ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// wrapCause keeps sentinel for errors.Is and the cause for logs.
func wrapCause(sentinel, cause error) error {
	if cause == nil {
		return sentinel
	}
	return fmt.Errorf("%w: %w", sentinel, cause)
}
