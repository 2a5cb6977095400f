package alignment

import (
	"encoding/json"
	"testing"

	"github.com/yungbote/lessonforge-backend/internal/domain/events"
	"github.com/yungbote/lessonforge-backend/internal/domain/lessons"
	"github.com/yungbote/lessonforge-backend/internal/pkg/pointers"
)

func f(v float64) *float64 { return &v }

func timings(words ...string) []events.WordTiming {
	out := make([]events.WordTiming, 0, len(words))
	for _, w := range words {
		out = append(out, events.WordTiming{Word: w})
	}
	return out
}

func offsets(t *testing.T, w lessons.Word) (int, int) {
	t.Helper()
	if w.StartCharIndex == nil || w.EndCharIndex == nil {
		t.Fatalf("word %q has no offsets", w.WordText)
	}
	return *w.StartCharIndex, *w.EndCharIndex
}

func TestAlignWordsCursorAdvancesPastRepeats(t *testing.T) {
	words := AlignWords("a cat and a cat", timings("a", "cat", "and", "a", "cat"))
	want := [][2]int{{0, 1}, {2, 5}, {6, 9}, {10, 11}, {12, 15}}
	if len(words) != len(want) {
		t.Fatalf("len(words)=%d want %d", len(words), len(want))
	}
	prevEnd := 0
	for i, w := range words {
		start, end := offsets(t, w)
		if start != want[i][0] || end != want[i][1] {
			t.Fatalf("word %d (%q): got [%d,%d) want [%d,%d)", i, w.WordText, start, end, want[i][0], want[i][1])
		}
		if start < prevEnd {
			t.Fatalf("word %d starts at %d before previous end %d", i, start, prevEnd)
		}
		prevEnd = end
		if w.OrderIndex != i {
			t.Fatalf("word %d has order index %d", i, w.OrderIndex)
		}
	}
}

func TestAlignWordsUnmatchedKeepsCursor(t *testing.T) {
	words := AlignWords("Hello world", timings("Hello", "xyz", "world"))
	if len(words) != 3 {
		t.Fatalf("len(words)=%d want 3", len(words))
	}
	if words[1].StartCharIndex != nil || words[1].EndCharIndex != nil {
		t.Fatalf("unmatched word should have null offsets")
	}
	start, end := offsets(t, words[2])
	if start != 6 || end != 11 {
		t.Fatalf("world: got [%d,%d) want [6,11)", start, end)
	}
}

func TestAlignWordsCountsCharacters(t *testing.T) {
	words := AlignWords("Café au lait", timings("Café", "au"))
	start, end := offsets(t, words[0])
	if start != 0 || end != 4 {
		t.Fatalf("Café: got [%d,%d) want [0,4)", start, end)
	}
	start, end = offsets(t, words[1])
	if start != 5 || end != 7 {
		t.Fatalf("au: got [%d,%d) want [5,7)", start, end)
	}
}

func TestAlignWordsForms(t *testing.T) {
	words := AlignWords("Don't stop, ok", timings("Don't", "stop", ",", "ok"))
	dont := words[0]
	if dont.WordLower != "don't" || dont.WordNormalized != "dont" {
		t.Fatalf("unexpected forms: lower=%q normalized=%q", dont.WordLower, dont.WordNormalized)
	}
	if dont.WordSlug == nil || *dont.WordSlug != "dont" {
		t.Fatalf("unexpected slug: %v", dont.WordSlug)
	}
	if !dont.IsClickable || dont.IsPunctuation {
		t.Fatalf("regular word should be clickable and not punctuation")
	}
	comma := words[2]
	if !comma.IsPunctuation || comma.IsClickable {
		t.Fatalf("comma should be punctuation and not clickable")
	}
	if comma.WordSlug != nil {
		t.Fatalf("punctuation should have no slug, got %q", *comma.WordSlug)
	}
	start, _ := offsets(t, comma)
	if start != 10 {
		t.Fatalf("comma start=%d want 10", start)
	}
}

func TestAlignWordsAttachedPunctuation(t *testing.T) {
	words := AlignWords("Hello, well-known world.", timings("Hello,", "well-known", "world."))
	if len(words) != 3 {
		t.Fatalf("len(words)=%d want 3", len(words))
	}
	for _, w := range words {
		if !w.IsPunctuation || w.IsClickable {
			t.Fatalf("%q: punct=%v clickable=%v", w.WordText, w.IsPunctuation, w.IsClickable)
		}
	}
	if words[2].WordNormalized != "world" {
		t.Fatalf("normalized=%q want world", words[2].WordNormalized)
	}
	start, end := offsets(t, words[2])
	if start != 18 || end != 24 {
		t.Fatalf("world.: got [%d,%d) want [18,24)", start, end)
	}
}

func TestAlignWordsKeepsBlankTimings(t *testing.T) {
	words := AlignWords("a b", timings("a", "", "b"))
	if len(words) != 3 {
		t.Fatalf("len(words)=%d want 3", len(words))
	}
	for i, w := range words {
		if w.OrderIndex != i {
			t.Fatalf("word %d has order index %d", i, w.OrderIndex)
		}
	}
	blank := words[1]
	if blank.WordText != "" || blank.StartCharIndex != nil || blank.EndCharIndex != nil || blank.WordSlug != nil {
		t.Fatalf("blank timing: %+v", blank)
	}
	start, end := offsets(t, words[2])
	if start != 2 || end != 3 {
		t.Fatalf("b: got [%d,%d) want [2,3)", start, end)
	}
}

func TestSecondsToMs(t *testing.T) {
	cases := []struct {
		in   *float64
		want *int
	}{
		{in: f(1.2345), want: pointers.Int(1235)},
		{in: f(2.0), want: pointers.Int(2000)},
		{in: f(0), want: pointers.Int(0)},
		{in: f(3.4561), want: pointers.Int(3456)},
		{in: nil, want: nil},
	}
	for _, tc := range cases {
		got := SecondsToMs(tc.in)
		if tc.want == nil {
			if got != nil {
				t.Fatalf("SecondsToMs(nil)=%d want nil", *got)
			}
			continue
		}
		if got == nil || *got != *tc.want {
			t.Fatalf("SecondsToMs(%v)=%v want %d", *tc.in, got, *tc.want)
		}
	}
}

func TestBuildSentencesJoinsNLPByOrderIndex(t *testing.T) {
	doc := &events.MetadataDocument{
		Transcribed: &events.Transcription{Segments: []events.Segment{
			{Start: f(0), End: f(1.5), Text: "  Hi there  ", Words: []events.WordTiming{
				{Word: "Hi", Start: f(0), End: f(0.4)},
				{Word: "there", Start: f(0.5), End: f(1.2)},
			}},
			{Start: f(1.5), End: f(3), Text: "Bye."},
		}},
		NLPAnalyzed: &events.NLPAnalysis{Sentences: []events.NLPSentence{
			{OrderIndex: 1, TranslationVi: pointers.String("Tạm biệt."), PhoneticUs: pointers.String("/baɪ/")},
		}},
	}

	sentences := BuildSentences(doc)
	if len(sentences) != 2 {
		t.Fatalf("len(sentences)=%d want 2", len(sentences))
	}
	first := sentences[0]
	if first.TextRaw != "Hi there" || first.TextDisplay != "Hi there" {
		t.Fatalf("segment text should be trimmed, got %q", first.TextRaw)
	}
	if first.TranslationVi != nil || first.PhoneticUs != nil || first.PhoneticUk != nil {
		t.Fatalf("sentence without NLP row should have null NLP fields")
	}
	if first.AudioEndMs == nil || *first.AudioEndMs != 1500 {
		t.Fatalf("AudioEndMs=%v want 1500", first.AudioEndMs)
	}
	start, end := offsets(t, first.Words[1])
	if start != 3 || end != 8 {
		t.Fatalf("there: got [%d,%d) want [3,8)", start, end)
	}
	if !first.IsActive {
		t.Fatalf("new sentences should be active")
	}

	second := sentences[1]
	if second.OrderIndex != 1 {
		t.Fatalf("OrderIndex=%d want 1", second.OrderIndex)
	}
	if second.TranslationVi == nil || *second.TranslationVi != "Tạm biệt." {
		t.Fatalf("translation not joined: %v", second.TranslationVi)
	}
	if len(second.Words) != 0 {
		t.Fatalf("segment without words should produce no words")
	}

	var meta map[string]json.RawMessage
	if err := json.Unmarshal(second.AIMetadata, &meta); err != nil {
		t.Fatalf("ai metadata: %v", err)
	}
	if _, ok := meta["nlp"]; !ok {
		t.Fatalf("ai metadata should carry the nlp row")
	}
}

func TestBuildSentencesEmpty(t *testing.T) {
	if got := BuildSentences(nil); got != nil {
		t.Fatalf("nil doc should produce no sentences")
	}
	if got := BuildSentences(&events.MetadataDocument{Transcribed: &events.Transcription{}}); got != nil {
		t.Fatalf("no segments should produce no sentences")
	}
}

func TestMergeSourceByPresence(t *testing.T) {
	l := &lessons.Lesson{AudioURL: pointers.String("a1"), ThumbnailURL: pointers.String("t1")}
	MergeSource(l, &events.SourceFetched{AudioURL: pointers.String("a2"), Duration: f(61.9)})
	if *l.AudioURL != "a2" {
		t.Fatalf("AudioURL=%q want a2", *l.AudioURL)
	}
	if *l.ThumbnailURL != "t1" {
		t.Fatalf("absent thumbnail should not clear stored value")
	}
	if l.DurationSeconds == nil || *l.DurationSeconds != 61 {
		t.Fatalf("DurationSeconds=%v want 61", l.DurationSeconds)
	}
}
