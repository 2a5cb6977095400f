package realtime

import "fmt"

type SSEEvent string

const (
	SSEEventLessonProcessingStep SSEEvent = "LessonProcessingStep"
)

type SSEMessage struct {
	Channel string   `json:"channel"`
	Event   SSEEvent `json:"event"`
	Data    any      `json:"data,omitempty"`
}

// LessonProcessingChannel is the subscription name for a lesson's progress.
func LessonProcessingChannel(lessonID int64) string {
	return fmt.Sprintf("lessons/%d/processing-step", lessonID)
}
