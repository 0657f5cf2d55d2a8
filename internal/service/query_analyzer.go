package service

// QueryLeaning classifies what kind of evidence a query is after.
type QueryLeaning string

const (
	// LeaningContent queries reference on-screen text or UI semantics.
	LeaningContent QueryLeaning = "content"
	// LeaningVisual queries reference appearance: colors, scenery, layout.
	LeaningVisual QueryLeaning = "visual"
	// LeaningMixed is the default when neither vocabulary dominates.
	LeaningMixed QueryLeaning = "mixed"
)

// SignalWeights distributes a fixed total of 100 points across the four
// ranking signals. The scorer uses the vector unmodified.
type SignalWeights struct {
	Semantic    int
	Text        int
	ContentType int
	Filename    int
}

// Total returns the sum of the weights. Always 100 for the built-in
// profiles; tests assert this.
func (w SignalWeights) Total() int {
	return w.Semantic + w.Text + w.ContentType + w.Filename
}

// QueryProfile is the analyzer's output: the classified leaning, the
// weight vector for it, and the query's normalized terms.
type QueryProfile struct {
	Leaning QueryLeaning
	Weights SignalWeights
	Terms   []string
}

// Vocabulary tables drive the classification. Extending a table shifts
// which queries fall into which leaning without touching control flow.
var (
	// contentVocabulary marks queries about on-screen text and UI widgets.
	contentVocabulary = vocabularySet(
		"error", "errors", "warning", "exception", "failed", "failure",
		"message", "text", "button", "form", "field", "input", "checkbox",
		"dropdown", "dialog", "modal", "popup", "menu", "toolbar", "tab",
		"login", "signin", "signup", "password", "username", "email",
		"settings", "config", "configuration", "code", "terminal", "console",
		"log", "stacktrace", "invoice", "receipt", "table", "chart", "says",
	)

	// visualVocabulary marks queries about appearance and scenery.
	visualVocabulary = vocabularySet(
		"red", "orange", "yellow", "green", "blue", "purple", "pink",
		"black", "white", "gray", "grey", "dark", "light", "bright",
		"colorful", "color", "colors", "photo", "photograph", "picture",
		"image", "landscape", "scenery", "nature", "mountain", "beach",
		"sunset", "sky", "gradient", "background", "wallpaper", "looks",
		"looking", "design", "layout", "style",
	)
)

// Weight profiles per leaning. Each sums to 100.
var leaningWeights = map[QueryLeaning]SignalWeights{
	LeaningMixed:   {Semantic: 50, Text: 30, ContentType: 10, Filename: 10},
	LeaningContent: {Semantic: 40, Text: 42, ContentType: 10, Filename: 8},
	LeaningVisual:  {Semantic: 55, Text: 25, ContentType: 12, Filename: 8},
}

// AnalyzeQuery classifies the query and picks its weight vector. Pure
// lexical work, no external calls, deterministic for a given query.
func AnalyzeQuery(query string) QueryProfile {
	terms := tokenize(query)

	contentHits := 0
	visualHits := 0
	for _, term := range terms {
		if _, ok := contentVocabulary[term]; ok {
			contentHits++
		}
		if _, ok := visualVocabulary[term]; ok {
			visualHits++
		}
	}

	leaning := LeaningMixed
	switch {
	case contentHits > visualHits:
		leaning = LeaningContent
	case visualHits > contentHits:
		leaning = LeaningVisual
	}

	return QueryProfile{
		Leaning: leaning,
		Weights: leaningWeights[leaning],
		Terms:   terms,
	}
}

// hasContentVocabulary reports whether any token of the text appears in
// the content vocabulary. The scorer uses this to detect UI-oriented
// records on the candidate side.
func hasContentVocabulary(tokens []string) bool {
	for _, tok := range tokens {
		if _, ok := contentVocabulary[tok]; ok {
			return true
		}
	}
	return false
}

// hasVisualVocabulary reports whether any token appears in the visual
// vocabulary.
func hasVisualVocabulary(tokens []string) bool {
	for _, tok := range tokens {
		if _, ok := visualVocabulary[tok]; ok {
			return true
		}
	}
	return false
}

func vocabularySet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
