package lessons

import (
	"time"
)

type Lesson struct {
	ID                int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Title             string         `gorm:"column:title;not null" json:"title"`
	Slug              string         `gorm:"column:slug;not null;uniqueIndex" json:"slug"`
	Description       string         `gorm:"column:description;type:text" json:"description,omitempty"`
	TopicSlug         string         `gorm:"column:topic_slug;not null;index" json:"topic_slug"`
	LessonType        LessonType     `gorm:"column:lesson_type;not null" json:"lesson_type"`
	SourceType        SourceType     `gorm:"column:source_type" json:"source_type,omitempty"`
	SourceURL         string         `gorm:"column:source_url;type:text" json:"source_url,omitempty"`
	SourceLanguage    string         `gorm:"column:source_language" json:"source_language,omitempty"`
	LanguageLevel     string         `gorm:"column:language_level" json:"language_level,omitempty"`
	EnableDictation   bool           `gorm:"column:enable_dictation;not null" json:"enable_dictation"`
	EnableShadowing   bool           `gorm:"column:enable_shadowing;not null" json:"enable_shadowing"`
	ProcessingStep    ProcessingStep `gorm:"column:processing_step;not null;index" json:"processing_step"`
	Status            Status         `gorm:"column:status;not null;index" json:"status"`
	AIJobID           *string        `gorm:"column:ai_job_id;index" json:"ai_job_id,omitempty"`
	AIMetadataURL     *string        `gorm:"column:ai_metadata_url;type:text" json:"ai_metadata_url,omitempty"`
	AIMessage         *string        `gorm:"column:ai_message;type:text" json:"ai_message,omitempty"`
	AudioURL          *string        `gorm:"column:audio_url;type:text" json:"audio_url,omitempty"`
	SourceReferenceID *string        `gorm:"column:source_reference_id" json:"source_reference_id,omitempty"`
	ThumbnailURL      *string        `gorm:"column:thumbnail_url;type:text" json:"thumbnail_url,omitempty"`
	DurationSeconds   *int           `gorm:"column:duration_seconds" json:"duration_seconds,omitempty"`
	TotalSentences    int            `gorm:"column:total_sentences;not null" json:"total_sentences"`
	PublishedAt       *time.Time     `gorm:"column:published_at;index" json:"published_at,omitempty"`
	CreatedAt         time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"not null" json:"updated_at"`

	Sentences []Sentence `gorm:"foreignKey:LessonID" json:"sentences,omitempty"`
}

func (Lesson) TableName() string { return "lesson" }

func (l *Lesson) IsAIAssisted() bool { return l != nil && l.LessonType == LessonTypeAIAssisted }
