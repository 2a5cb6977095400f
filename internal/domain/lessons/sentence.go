package lessons

import (
	"time"

	"gorm.io/datatypes"
)

type Sentence struct {
	ID            int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	LessonID      int64          `gorm:"column:lesson_id;not null;index:idx_lesson_sentence_order,priority:1" json:"lesson_id"`
	OrderIndex    int            `gorm:"column:order_index;not null;index:idx_lesson_sentence_order,priority:2" json:"order_index"`
	TextRaw       string         `gorm:"column:text_raw;type:text;not null" json:"text_raw"`
	TextDisplay   string         `gorm:"column:text_display;type:text;not null" json:"text_display"`
	TranslationVi *string        `gorm:"column:translation_vi;type:text" json:"translation_vi,omitempty"`
	PhoneticUk    *string        `gorm:"column:phonetic_uk" json:"phonetic_uk,omitempty"`
	PhoneticUs    *string        `gorm:"column:phonetic_us" json:"phonetic_us,omitempty"`
	AudioStartMs  *int           `gorm:"column:audio_start_ms" json:"audio_start_ms,omitempty"`
	AudioEndMs    *int           `gorm:"column:audio_end_ms" json:"audio_end_ms,omitempty"`
	IsActive      bool           `gorm:"column:is_active;not null" json:"is_active"`
	AIMetadata    datatypes.JSON `gorm:"column:ai_metadata" json:"ai_metadata,omitempty"`
	CreatedAt     time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null" json:"updated_at"`

	Words []Word `gorm:"foreignKey:SentenceID" json:"words,omitempty"`
}

func (Sentence) TableName() string { return "lesson_sentence" }

type Word struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SentenceID     int64     `gorm:"column:sentence_id;not null;index:idx_lesson_word_order,priority:1" json:"sentence_id"`
	OrderIndex     int       `gorm:"column:order_index;not null;index:idx_lesson_word_order,priority:2" json:"order_index"`
	WordText       string    `gorm:"column:word_text;not null" json:"word_text"`
	WordLower      string    `gorm:"column:word_lower;not null" json:"word_lower"`
	WordNormalized string    `gorm:"column:word_normalized;not null;index" json:"word_normalized"`
	WordSlug       *string   `gorm:"column:word_slug;index" json:"word_slug,omitempty"`
	StartCharIndex *int      `gorm:"column:start_char_index" json:"start_char_index,omitempty"`
	EndCharIndex   *int      `gorm:"column:end_char_index" json:"end_char_index,omitempty"`
	AudioStartMs   *int      `gorm:"column:audio_start_ms" json:"audio_start_ms,omitempty"`
	AudioEndMs     *int      `gorm:"column:audio_end_ms" json:"audio_end_ms,omitempty"`
	IsPunctuation  bool      `gorm:"column:is_punctuation;not null" json:"is_punctuation"`
	IsClickable    bool      `gorm:"column:is_clickable;not null" json:"is_clickable"`
	CreatedAt      time.Time `gorm:"not null" json:"created_at"`
}

func (Word) TableName() string { return "lesson_word" }
