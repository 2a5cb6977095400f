package events

// MetadataDocument is the AI worker's result payload, fetched by URL at
// completion. Every section is optional.
type MetadataDocument struct {
	SourceFetched *SourceFetched `json:"sourceFetched,omitempty"`
	Transcribed   *Transcription `json:"transcribed,omitempty"`
	NLPAnalyzed   *NLPAnalysis   `json:"nlpAnalyzed,omitempty"`
}

type SourceFetched struct {
	FilePathSnake     string   `json:"file_path,omitempty"`
	FilePathCamel     string   `json:"filePath,omitempty"`
	Duration          *float64 `json:"duration,omitempty"`
	SourceReferenceID *string  `json:"sourceReferenceId,omitempty"`
	ThumbnailURL      *string  `json:"thumbnailUrl,omitempty"`
	AudioURL          *string  `json:"audioUrl,omitempty"`
}

// FilePath returns whichever spelling the worker used.
func (s *SourceFetched) FilePath() string {
	if s == nil {
		return ""
	}
	if s.FilePathSnake != "" {
		return s.FilePathSnake
	}
	return s.FilePathCamel
}

type Transcription struct {
	Segments []Segment `json:"segments"`
}

type Segment struct {
	Start *float64     `json:"start,omitempty"`
	End   *float64     `json:"end,omitempty"`
	Text  string       `json:"text"`
	Words []WordTiming `json:"words,omitempty"`
}

type WordTiming struct {
	Word  string   `json:"word"`
	Start *float64 `json:"start,omitempty"`
	End   *float64 `json:"end,omitempty"`
	Score *float64 `json:"score,omitempty"`
}

type NLPAnalysis struct {
	Sentences []NLPSentence `json:"sentences"`
}

type NLPSentence struct {
	OrderIndex    int     `json:"orderIndex"`
	PhoneticUk    *string `json:"phoneticUk,omitempty"`
	PhoneticUs    *string `json:"phoneticUs,omitempty"`
	TranslationVi *string `json:"translationVi,omitempty"`
}
