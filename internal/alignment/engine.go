// Package alignment turns the AI worker's metadata document into the lesson's
// sentence and word tree. Everything here is pure and deterministic.
package alignment

import (
	"encoding/json"
	"math"
	"strings"
	"unicode/utf8"

	"gorm.io/datatypes"

	"github.com/yungbote/lessonforge-backend/internal/domain/events"
	"github.com/yungbote/lessonforge-backend/internal/domain/lessons"
	"github.com/yungbote/lessonforge-backend/internal/normalization"
	"github.com/yungbote/lessonforge-backend/internal/pkg/pointers"
)

// BuildSentences produces one sentence per transcription segment, in segment
// order. LessonID is left for the caller to set.
func BuildSentences(doc *events.MetadataDocument) []lessons.Sentence {
	if doc == nil || doc.Transcribed == nil || len(doc.Transcribed.Segments) == 0 {
		return nil
	}

	nlpByIndex := map[int]events.NLPSentence{}
	if doc.NLPAnalyzed != nil {
		for _, s := range doc.NLPAnalyzed.Sentences {
			nlpByIndex[s.OrderIndex] = s
		}
	}

	out := make([]lessons.Sentence, 0, len(doc.Transcribed.Segments))
	for i, seg := range doc.Transcribed.Segments {
		text := strings.TrimSpace(seg.Text)
		s := lessons.Sentence{
			OrderIndex:   i,
			TextRaw:      text,
			TextDisplay:  text,
			AudioStartMs: SecondsToMs(seg.Start),
			AudioEndMs:   SecondsToMs(seg.End),
			IsActive:     true,
			Words:        AlignWords(text, seg.Words),
		}
		nlp, hasNLP := nlpByIndex[i]
		if hasNLP {
			s.TranslationVi = nlp.TranslationVi
			s.PhoneticUk = nlp.PhoneticUk
			s.PhoneticUs = nlp.PhoneticUs
		}
		s.AIMetadata = rawMetadata(seg, nlp, hasNLP)
		out = append(out, s)
	}
	return out
}

// AlignWords locates each timed word in text with a cursor that only moves
// forward. Every timing yields one word. A word that cannot be found, or is
// blank, keeps null offsets and leaves the cursor where it was. Offsets count
// characters, end exclusive.
func AlignWords(text string, timings []events.WordTiming) []lessons.Word {
	if len(timings) == 0 {
		return nil
	}
	words := make([]lessons.Word, 0, len(timings))
	cursor := 0
	for i, wt := range timings {
		token := strings.TrimSpace(wt.Word)
		punct := normalization.HasPunctuation(token)
		w := lessons.Word{
			OrderIndex:     i,
			WordText:       token,
			WordLower:      strings.ToLower(token),
			WordNormalized: normalization.NormalizeWord(token),
			AudioStartMs:   SecondsToMs(wt.Start),
			AudioEndMs:     SecondsToMs(wt.End),
			IsPunctuation:  punct,
			IsClickable:    !punct,
		}
		if w.WordNormalized != "" {
			if slug := normalization.Slugify(w.WordNormalized); slug != "" {
				w.WordSlug = pointers.String(slug)
			}
		}
		if token == "" {
			words = append(words, w)
			continue
		}
		if idx := strings.Index(text[cursor:], token); idx >= 0 {
			start := cursor + idx
			startChar := utf8.RuneCountInString(text[:start])
			w.StartCharIndex = pointers.Int(startChar)
			w.EndCharIndex = pointers.Int(startChar + utf8.RuneCountInString(token))
			cursor = start + len(token)
		}
		words = append(words, w)
	}
	return words
}

// SecondsToMs converts seconds to milliseconds rounding half up.
func SecondsToMs(sec *float64) *int {
	if sec == nil || math.IsNaN(*sec) || math.IsInf(*sec, 0) {
		return nil
	}
	ms := int(math.Floor(*sec*1000 + 0.5))
	return &ms
}

// MergeSource copies the present source descriptors onto the lesson.
// Fractional durations are truncated to whole seconds.
func MergeSource(l *lessons.Lesson, sf *events.SourceFetched) {
	if l == nil || sf == nil {
		return
	}
	pointers.MergeString(&l.AudioURL, sf.AudioURL)
	pointers.MergeString(&l.SourceReferenceID, sf.SourceReferenceID)
	pointers.MergeString(&l.ThumbnailURL, sf.ThumbnailURL)
	if sf.Duration != nil && !math.IsNaN(*sf.Duration) {
		l.DurationSeconds = pointers.Int(int(*sf.Duration))
	}
}

type sentenceMetadata struct {
	Segment events.Segment      `json:"segment"`
	NLP     *events.NLPSentence `json:"nlp,omitempty"`
}

func rawMetadata(seg events.Segment, nlp events.NLPSentence, hasNLP bool) datatypes.JSON {
	m := sentenceMetadata{Segment: seg}
	if hasNLP {
		m.NLP = &nlp
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}
