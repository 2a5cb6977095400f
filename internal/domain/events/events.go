package events

import (
	"github.com/yungbote/lessonforge-backend/internal/domain/lessons"
)

const (
	// TopicGenerationRequested is keyed by lesson id.
	TopicGenerationRequested = "lesson-generation-requested-v1"
	// TopicProcessingStepUpdated is keyed by job id.
	TopicProcessingStepUpdated = "lesson-processing-step-updated-v1"
	// TopicProcessingStepNotify is keyed by lesson id.
	TopicProcessingStepNotify = "lesson-processing-step-notify-v1"
)

// GenerationRequested asks the AI worker to run a job for a lesson.
type GenerationRequested struct {
	LessonID      int64              `json:"lessonId"`
	SourceType    lessons.SourceType `json:"sourceType"`
	SourceURL     string             `json:"sourceUrl"`
	AIJobID       string             `json:"aiJobId"`
	AIMetadataURL *string            `json:"aiMetadataUrl"`
	IsRestart     *bool              `json:"isRestart,omitempty"`
}

// ProcessingStepUpdated is emitted by the AI worker after each pipeline step.
// Pointer fields are absent when nil and never clear stored values.
type ProcessingStepUpdated struct {
	AIJobID           string                 `json:"aiJobId"`
	ProcessingStep    lessons.ProcessingStep `json:"processingStep"`
	AIMessage         *string                `json:"aiMessage,omitempty"`
	AudioURL          *string                `json:"audioUrl,omitempty"`
	SourceReferenceID *string                `json:"sourceReferenceId,omitempty"`
	ThumbnailURL      *string                `json:"thumbnailUrl,omitempty"`
	DurationSeconds   *int                   `json:"durationSeconds,omitempty"`
	AIMetadataURL     *string                `json:"aiMetadataUrl,omitempty"`
	IsSkip            bool                   `json:"isSkip,omitempty"`
}

// StepNotify is the per-lesson progress notification. Descriptor fields carry
// the triggering event's values, not the lesson snapshot.
type StepNotify struct {
	LessonID          int64                  `json:"lessonId"`
	AIJobID           string                 `json:"aiJobId"`
	ProcessingStep    lessons.ProcessingStep `json:"processingStep"`
	AIMessage         *string                `json:"aiMessage,omitempty"`
	AudioURL          *string                `json:"audioUrl,omitempty"`
	SourceReferenceID *string                `json:"sourceReferenceId,omitempty"`
	ThumbnailURL      *string                `json:"thumbnailUrl,omitempty"`
	DurationSeconds   *int                   `json:"durationSeconds,omitempty"`
}

func NotifyFrom(lessonID int64, ev ProcessingStepUpdated) StepNotify {
	return StepNotify{
		LessonID:          lessonID,
		AIJobID:           ev.AIJobID,
		ProcessingStep:    ev.ProcessingStep,
		AIMessage:         ev.AIMessage,
		AudioURL:          ev.AudioURL,
		SourceReferenceID: ev.SourceReferenceID,
		ThumbnailURL:      ev.ThumbnailURL,
		DurationSeconds:   ev.DurationSeconds,
	}
}
