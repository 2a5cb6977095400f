package lessons

// ProcessingStep is the AI pipeline position of a lesson.
type ProcessingStep string

const (
	StepNone              ProcessingStep = "NONE"
	StepProcessingStarted ProcessingStep = "PROCESSING_STARTED"
	StepSourceFetched     ProcessingStep = "SOURCE_FETCHED"
	StepTranscribed       ProcessingStep = "TRANSCRIBED"
	StepNLPAnalyzed       ProcessingStep = "NLP_ANALYZED"
	StepCompleted         ProcessingStep = "COMPLETED"
	StepFailed            ProcessingStep = "FAILED"
)

// AllProcessingSteps lists every step in pipeline order, FAILED last.
func AllProcessingSteps() []ProcessingStep {
	return []ProcessingStep{
		StepNone,
		StepProcessingStarted,
		StepSourceFetched,
		StepTranscribed,
		StepNLPAnalyzed,
		StepCompleted,
		StepFailed,
	}
}

func (s ProcessingStep) Valid() bool {
	for _, v := range AllProcessingSteps() {
		if s == v {
			return true
		}
	}
	return false
}

// WorkerEmitted reports whether the AI worker may send this step.
func (s ProcessingStep) WorkerEmitted() bool {
	switch s {
	case StepSourceFetched, StepTranscribed, StepNLPAnalyzed, StepCompleted, StepFailed:
		return true
	}
	return false
}

type Status string

const (
	StatusDraft      Status = "DRAFT"
	StatusProcessing Status = "PROCESSING"
	StatusReady      Status = "READY"
	StatusError      Status = "ERROR"
)

type LessonType string

const (
	LessonTypeTraditional LessonType = "TRADITIONAL"
	LessonTypeAIAssisted  LessonType = "AI_ASSISTED"
)

func (t LessonType) Valid() bool {
	return t == LessonTypeTraditional || t == LessonTypeAIAssisted
}

type SourceType string

const (
	SourceTypeYouTube   SourceType = "YOUTUBE"
	SourceTypeAudioFile SourceType = "AUDIO_FILE"
	SourceTypeVideoFile SourceType = "VIDEO_FILE"
)

func (t SourceType) Valid() bool {
	switch t {
	case SourceTypeYouTube, SourceTypeAudioFile, SourceTypeVideoFile:
		return true
	}
	return false
}
