package domain

import (
	"github.com/yungbote/lessonforge-backend/internal/domain/lessons"
)

type (
	Lesson         = lessons.Lesson
	LessonSentence = lessons.Sentence
	LessonWord     = lessons.Word
)

const (
	LessonStatusDraft      = lessons.StatusDraft
	LessonStatusProcessing = lessons.StatusProcessing
	LessonStatusReady      = lessons.StatusReady
	LessonStatusError      = lessons.StatusError
)
