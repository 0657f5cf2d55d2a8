package service

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/gargarushee/VisualMemorySearch/internal/domain"
)

// ScoredResult is one search hit: the screenshot's display fields plus the
// query-relative confidence and the tags explaining where the score came
// from. Derived per query, never persisted.
type ScoredResult struct {
	ID                string    `json:"id"`
	Filename          string    `json:"filename"`
	Confidence        int       `json:"confidence_score"`
	MatchedElements   []string  `json:"matched_elements"`
	PreviewURL        string    `json:"preview_url"`
	OCRText           string    `json:"ocr_text"`
	VisualDescription string    `json:"visual_description"`
	UploadedAt        time.Time `json:"uploaded_at"`
}

// matchedElement pairs an explanation tag with the raw signal magnitude
// that produced it, for ordering before the tags are surfaced.
type matchedElement struct {
	tag    string
	signal float64
}

// visualTagThreshold is the minimum semantic signal (on the [0,100] scale,
// where 50 is a zero cosine) for a result to carry a "visual:" description
// tag. Below it the semantic contribution is too weak to present as an
// explanation.
const visualTagThreshold = 70

// scoreScreenshot computes the four partial signals for one candidate and
// combines them with the profile's weights. Returns false when the
// candidate cannot participate in ranking (missing embedding).
func scoreScreenshot(query string, profile QueryProfile, queryEmbedding []float32, shot *domain.Screenshot) (ScoredResult, bool) {
	if !shot.Searchable() {
		return ScoredResult{}, false
	}

	var elements []matchedElement

	semantic := semanticSignal(queryEmbedding, shot.Embedding)
	if semantic >= visualTagThreshold {
		if tag := visualTag(shot.VisualDescription); tag != "" {
			elements = append(elements, matchedElement{tag: tag, signal: semantic})
		}
	}

	haystack := strings.ToLower(shot.OCRText + " " + shot.VisualDescription)
	text, textTag := textMatchSignal(query, profile.Terms, haystack)
	if text > 0 && textTag != "" {
		elements = append(elements, matchedElement{tag: textTag, signal: text})
	}

	contentType, ctTag := contentTypeSignal(profile.Leaning, shot)
	if contentType > 0 && ctTag != "" {
		elements = append(elements, matchedElement{tag: ctTag, signal: contentType})
	}

	filename, fnTag := filenameSignal(profile.Terms, shot.Filename)
	if filename > 0 && fnTag != "" {
		elements = append(elements, matchedElement{tag: fnTag, signal: filename})
	}

	w := profile.Weights
	weighted := semantic*float64(w.Semantic) +
		text*float64(w.Text) +
		contentType*float64(w.ContentType) +
		filename*float64(w.Filename)
	confidence := int(math.Round(weighted / 100))
	if confidence > 100 {
		confidence = 100
	}
	if confidence < 0 {
		confidence = 0
	}

	return ScoredResult{
		ID:                shot.ID,
		Filename:          shot.Filename,
		Confidence:        confidence,
		MatchedElements:   orderElements(elements),
		OCRText:           shot.OCRText,
		VisualDescription: shot.VisualDescription,
		UploadedAt:        shot.UploadedAt,
	}, true
}

// semanticSignal maps cosine similarity from [-1,1] into [0,100].
func semanticSignal(query, candidate []float32) float64 {
	cos := cosineSimilarity(query, candidate)
	return (cos + 1) / 2 * 100
}

// cosineSimilarity returns 0 for mismatched dimensions or zero vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// textMatchSignal scores word overlap between the query and the candidate's
// OCR text plus description. An exact phrase match scores the full 100;
// partial term overlap scales up to 70. Case-insensitive, no penalty for a
// miss.
func textMatchSignal(query string, terms []string, haystack string) (float64, string) {
	if haystack == "" || len(terms) == 0 {
		return 0, ""
	}

	phrase := strings.ToLower(strings.TrimSpace(query))
	if phrase != "" && strings.Contains(haystack, phrase) {
		return 100, fmt.Sprintf("text match: '%s'", phrase)
	}

	haystackTokens := make(map[string]struct{})
	for _, tok := range tokenize(haystack) {
		haystackTokens[tok] = struct{}{}
	}

	var matched []string
	for _, term := range terms {
		if _, ok := haystackTokens[term]; ok {
			matched = append(matched, term)
		}
	}
	if len(matched) == 0 {
		return 0, ""
	}

	score := float64(len(matched)) / float64(len(terms)) * 70
	return score, fmt.Sprintf("text match: '%s'", strings.Join(matched, " "))
}

// contentTypeSignal grants a bonus when the query's leaning matches what
// the candidate's own text suggests it contains. Mixed queries carry no
// leaning, so the signal stays 0 for them.
func contentTypeSignal(leaning QueryLeaning, shot *domain.Screenshot) (float64, string) {
	switch leaning {
	case LeaningContent:
		if hasContentVocabulary(tokenize(shot.OCRText + " " + shot.VisualDescription)) {
			return 100, "content type: ui text"
		}
	case LeaningVisual:
		if hasVisualVocabulary(tokenize(shot.VisualDescription)) {
			return 100, "content type: visual scene"
		}
	}
	return 0, ""
}

// filenameSignal scores term overlap against the filename's tokens, with
// the extension stripped. Weak by design of its weight, not its scale.
func filenameSignal(terms []string, filename string) (float64, string) {
	stem := filename
	if idx := strings.LastIndex(stem, "."); idx > 0 {
		stem = stem[:idx]
	}
	fileTokens := make(map[string]struct{})
	for _, tok := range tokenize(stem) {
		fileTokens[tok] = struct{}{}
	}
	if len(fileTokens) == 0 || len(terms) == 0 {
		return 0, ""
	}

	matched := 0
	for _, term := range terms {
		if _, ok := fileTokens[term]; ok {
			matched++
		}
	}
	if matched == 0 {
		return 0, ""
	}

	score := float64(matched) / float64(len(terms)) * 100
	return score, fmt.Sprintf("filename: '%s'", filename)
}

// visualTag builds a short description snippet for a strong semantic hit.
func visualTag(description string) string {
	words := strings.Fields(description)
	if len(words) == 0 {
		return ""
	}
	if len(words) > 5 {
		words = words[:5]
	}
	snippet := strings.TrimRight(strings.Join(words, " "), ".,;:")
	return "visual: " + strings.ToLower(snippet)
}

// orderElements sorts tags by the magnitude of the signal that produced
// them and drops duplicates.
func orderElements(elements []matchedElement) []string {
	sort.SliceStable(elements, func(i, j int) bool {
		return elements[i].signal > elements[j].signal
	})
	seen := make(map[string]struct{}, len(elements))
	tags := make([]string, 0, len(elements))
	for _, el := range elements {
		if _, ok := seen[el.tag]; ok {
			continue
		}
		seen[el.tag] = struct{}{}
		tags = append(tags, el.tag)
	}
	return tags
}
