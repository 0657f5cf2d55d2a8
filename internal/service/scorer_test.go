package service

import (
	"math"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/gargarushee/VisualMemorySearch/internal/domain"
)

func TestCosineSimilarity(t *testing.T) {
	cases := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0, 0}, []float32{1, 0, 0}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0},
		{"dimension mismatch", []float32{1, 0}, []float32{1, 0, 0}, 0},
		{"empty", nil, nil, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := cosineSimilarity(tc.a, tc.b)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("cosineSimilarity = %f, want %f", got, tc.want)
			}
		})
	}
}

func TestTextMatchSignal(t *testing.T) {
	cases := []struct {
		name      string
		query     string
		haystack  string
		wantScore float64
		wantTag   string
	}{
		{
			name:      "exact phrase",
			query:     "authentication error",
			haystack:  "an authentication error occurred",
			wantScore: 100,
			wantTag:   "text match: 'authentication error'",
		},
		{
			name:      "partial overlap",
			query:     "error message about auth",
			haystack:  "authentication error",
			wantScore: 17.5, // 1 of 4 terms, scaled to 70
			wantTag:   "text match: 'error'",
		},
		{
			name:      "no match",
			query:     "mountain sunset",
			haystack:  "login form",
			wantScore: 0,
			wantTag:   "",
		},
		{
			name:      "empty haystack",
			query:     "anything",
			haystack:  "",
			wantScore: 0,
			wantTag:   "",
		},
		{
			name:      "case insensitive",
			query:     "Login Failed",
			haystack:  "login failed. try again",
			wantScore: 100,
			wantTag:   "text match: 'login failed'",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			terms := tokenize(tc.query)
			score, tag := textMatchSignal(tc.query, terms, strings.ToLower(tc.haystack))
			if math.Abs(score-tc.wantScore) > 1e-9 {
				t.Errorf("score = %f, want %f", score, tc.wantScore)
			}
			if tag != tc.wantTag {
				t.Errorf("tag = %q, want %q", tag, tc.wantTag)
			}
		})
	}
}

func TestContentTypeSignal(t *testing.T) {
	uiShot := &domain.Screenshot{
		OCRText:           "Submit button and password field",
		VisualDescription: "A login form",
	}
	visualShot := &domain.Screenshot{
		VisualDescription: "A blue gradient background with mountains",
	}
	blankShot := &domain.Screenshot{}

	cases := []struct {
		name    string
		leaning QueryLeaning
		shot    *domain.Screenshot
		want    float64
	}{
		{"content query, ui shot", LeaningContent, uiShot, 100},
		{"content query, visual shot", LeaningContent, visualShot, 0},
		{"visual query, visual shot", LeaningVisual, visualShot, 100},
		{"visual query, ui shot", LeaningVisual, uiShot, 0},
		{"mixed query carries no leaning", LeaningMixed, uiShot, 0},
		{"blank shot", LeaningContent, blankShot, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, _ := contentTypeSignal(tc.leaning, tc.shot)
			if got != tc.want {
				t.Errorf("signal = %f, want %f", got, tc.want)
			}
		})
	}
}

func TestFilenameSignal(t *testing.T) {
	score, tag := filenameSignal([]string{"auth", "error"}, "auth_error.png")
	if score != 100 {
		t.Errorf("full overlap score = %f, want 100", score)
	}
	if tag != "filename: 'auth_error.png'" {
		t.Errorf("tag = %q", tag)
	}

	score, _ = filenameSignal([]string{"auth", "error"}, "dashboard.png")
	if score != 0 {
		t.Errorf("no-overlap score = %f, want 0", score)
	}

	score, _ = filenameSignal([]string{"auth", "error", "message", "shown"}, "auth_error.png")
	if math.Abs(score-50) > 1e-9 {
		t.Errorf("half overlap score = %f, want 50", score)
	}
}

func TestScoreScreenshotExcludesMissingEmbedding(t *testing.T) {
	shot := &domain.Screenshot{
		ID:        "s1",
		Filename:  "a.png",
		Processed: true,
		OCRText:   "anything",
	}
	profile := AnalyzeQuery("anything")
	if _, ok := scoreScreenshot("anything", profile, lexicalEmbedding("anything", 64), shot); ok {
		t.Error("candidate without an embedding must be excluded, not scored")
	}
}

// A candidate engineered to max out all four signals must still land at
// or below 100.
func TestScoreScreenshotClamp(t *testing.T) {
	query := "login error button"
	profile := AnalyzeQuery(query)
	embedding := lexicalEmbedding(query, 64)

	shot := &domain.Screenshot{
		ID:                "s1",
		Filename:          "login_error_button.png",
		Processed:         true,
		OCRText:           "login error button",
		VisualDescription: "login error button dialog",
		Embedding:         domain.Vector(embedding),
		UploadedAt:        time.Now(),
	}

	result, ok := scoreScreenshot(query, profile, embedding, shot)
	if !ok {
		t.Fatal("candidate unexpectedly excluded")
	}
	if result.Confidence > 100 || result.Confidence < 0 {
		t.Errorf("confidence = %d, want within [0,100]", result.Confidence)
	}
	if result.Confidence < 90 {
		t.Errorf("maxed-out candidate scored only %d", result.Confidence)
	}
	if len(result.MatchedElements) == 0 {
		t.Error("maxed-out candidate has no matched elements")
	}
}

// The "visual:" description tag appears only when the semantic signal
// clears the threshold; weak similarity keeps the explanation list free
// of misleading visual claims.
func TestScoreScreenshotVisualTagThreshold(t *testing.T) {
	query := "zzz unrelated terms"
	profile := AnalyzeQuery(query)

	shot := &domain.Screenshot{
		ID:                "s1",
		Filename:          "a.png",
		Processed:         true,
		VisualDescription: "a blue dashboard with charts",
		UploadedAt:        time.Now(),
	}

	strong := []float32{1, 0, 0, 0}
	weak := []float32{0, 1, 0, 0}

	shot.Embedding = domain.Vector(strong)
	result, ok := scoreScreenshot(query, profile, strong, shot)
	if !ok {
		t.Fatal("candidate unexpectedly excluded")
	}
	hasVisual := false
	for _, tag := range result.MatchedElements {
		if strings.HasPrefix(tag, "visual:") {
			hasVisual = true
		}
	}
	if !hasVisual {
		t.Errorf("identical embeddings produced no visual tag: %v", result.MatchedElements)
	}

	result, ok = scoreScreenshot(query, profile, weak, shot)
	if !ok {
		t.Fatal("candidate unexpectedly excluded")
	}
	for _, tag := range result.MatchedElements {
		if strings.HasPrefix(tag, "visual:") {
			t.Errorf("orthogonal embeddings still produced a visual tag: %v", result.MatchedElements)
		}
	}
}

func TestOrderElements(t *testing.T) {
	elements := []matchedElement{
		{tag: "filename: 'a.png'", signal: 30},
		{tag: "text match: 'error'", signal: 90},
		{tag: "text match: 'error'", signal: 90},
		{tag: "content type: ui text", signal: 100},
	}
	got := orderElements(elements)
	want := []string{"content type: ui text", "text match: 'error'", "filename: 'a.png'"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ordered tags = %v, want %v", got, want)
	}
}
