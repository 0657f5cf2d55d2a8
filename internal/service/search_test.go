package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/gargarushee/VisualMemorySearch/internal/domain"
)

func newTestSearch(store *fakeStore, embedder Embedder) *SearchService {
	return NewSearchService(store, newFakeBlobs(), embedder, 5, 50, 4, nil)
}

// addProcessed inserts a processed screenshot whose embedding is derived
// from its own text, the same way the fake embedder would during ingestion.
func addProcessed(t *testing.T, store *fakeStore, id, filename, ocr, description string, uploadedAt time.Time) {
	t.Helper()
	embedText := buildEmbeddingText(filename, ocr, description)
	shot := &domain.Screenshot{
		ID:                id,
		Filename:          filename,
		StorageKey:        "ab/" + id + ".png",
		Processed:         true,
		OCRText:           ocr,
		VisualDescription: description,
		Embedding:         domain.Vector(lexicalEmbedding(embedText, 64)),
		UploadedAt:        uploadedAt,
	}
	if err := store.Create(context.Background(), shot); err != nil {
		t.Fatal(err)
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	svc := newTestSearch(newFakeStore(), newFakeEmbedder())

	for _, query := range []string{"", "   ", "\t\n"} {
		if _, err := svc.Search(context.Background(), query, 5); !errors.Is(err, ErrEmptyQuery) {
			t.Errorf("Search(%q): err = %v, want ErrEmptyQuery", query, err)
		}
	}
}

func TestSearchEmptyCorpus(t *testing.T) {
	svc := newTestSearch(newFakeStore(), newFakeEmbedder())

	resp, err := svc.Search(context.Background(), "anything", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(resp.Results) != 0 {
		t.Errorf("results = %d, want 0", len(resp.Results))
	}
	if resp.TotalSearched != 0 {
		t.Errorf("total searched = %d, want 0", resp.TotalSearched)
	}
	if resp.QueryTimeMs < 0 {
		t.Errorf("query time = %d, want >= 0", resp.QueryTimeMs)
	}
}

// With one of three screenshots containing the OCR text "authentication
// error", a query about auth errors must rank it first with a text-match
// contribution.
func TestSearchRanksTextMatchFirst(t *testing.T) {
	store := newFakeStore()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	addProcessed(t, store, "s1", "dashboard.png", "revenue dashboard Q3", "a bar chart over a white background", base)
	addProcessed(t, store, "s2", "screenshot2.png", "authentication error", "a red error dialog", base.Add(time.Minute))
	addProcessed(t, store, "s3", "vacation.png", "", "a beach at sunset", base.Add(2*time.Minute))

	svc := newTestSearch(store, newFakeEmbedder())
	resp, err := svc.Search(context.Background(), "error message about auth", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if resp.TotalSearched != 3 {
		t.Errorf("total searched = %d, want 3", resp.TotalSearched)
	}
	if len(resp.Results) == 0 {
		t.Fatal("no results")
	}
	first := resp.Results[0]
	if first.ID != "s2" {
		t.Fatalf("top result = %s, want s2", first.ID)
	}

	hasTextMatch := false
	for _, tag := range first.MatchedElements {
		if strings.HasPrefix(tag, "text match:") {
			hasTextMatch = true
		}
	}
	if !hasTextMatch {
		t.Errorf("top result missing text-match tag: %v", first.MatchedElements)
	}
	if first.PreviewURL == "" {
		t.Error("top result missing preview URL")
	}
}

func TestSearchDeterministic(t *testing.T) {
	store := newFakeStore()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		addProcessed(t, store, fmt.Sprintf("s%d", i), fmt.Sprintf("file%d.png", i),
			fmt.Sprintf("text sample %d", i), "a settings page", base.Add(time.Duration(i)*time.Second))
	}

	svc := newTestSearch(store, newFakeEmbedder())
	first, err := svc.Search(context.Background(), "settings page", 10)
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.Search(context.Background(), "settings page", 10)
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(first.Results, second.Results) {
		t.Error("identical searches returned different ordered results")
	}
}

func TestSearchTieBreakByRecency(t *testing.T) {
	store := newFakeStore()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	// Identical content scores identically; only the upload time differs.
	addProcessed(t, store, "older", "invoice.png", "invoice total due", "a billing table", base)
	addProcessed(t, store, "newer", "invoice.png", "invoice total due", "a billing table", base.Add(time.Hour))

	svc := newTestSearch(store, newFakeEmbedder())
	resp, err := svc.Search(context.Background(), "invoice total", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("results = %d, want 2", len(resp.Results))
	}
	if resp.Results[0].Confidence != resp.Results[1].Confidence {
		t.Fatalf("expected a tie, got %d vs %d", resp.Results[0].Confidence, resp.Results[1].Confidence)
	}
	if resp.Results[0].ID != "newer" {
		t.Errorf("tie broken wrong: first = %s, want newer", resp.Results[0].ID)
	}
}

func TestSearchLimits(t *testing.T) {
	store := newFakeStore()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 20; i++ {
		addProcessed(t, store, fmt.Sprintf("s%d", i), "note.png", "shared note text", "", base.Add(time.Duration(i)*time.Second))
	}
	svc := NewSearchService(store, newFakeBlobs(), newFakeEmbedder(), 5, 10, 4, nil)

	cases := []struct {
		name  string
		limit int
		want  int
	}{
		{"default applied", 0, 5},
		{"explicit", 3, 3},
		{"capped at max", 100, 10},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := svc.Search(context.Background(), "note text", tc.limit)
			if err != nil {
				t.Fatal(err)
			}
			if len(resp.Results) != tc.want {
				t.Errorf("results = %d, want %d", len(resp.Results), tc.want)
			}
			if resp.TotalSearched != 20 {
				t.Errorf("total searched = %d, want 20", resp.TotalSearched)
			}
		})
	}
}

// A failing query embedder degrades to the lexical fallback instead of
// failing the search.
func TestSearchQueryEmbeddingFallback(t *testing.T) {
	store := newFakeStore()
	addProcessed(t, store, "s1", "login.png", "login failed", "a login form",
		time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))

	embedder := newFakeEmbedder()
	embedder.fail = true
	svc := newTestSearch(store, embedder)

	resp, err := svc.Search(context.Background(), "login failed", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("results = %d, want 1", len(resp.Results))
	}
	if resp.Results[0].Confidence == 0 {
		t.Error("fallback search scored a direct text match as zero")
	}
}

// Unprocessed records and processed records without embeddings never
// appear in results.
func TestSearchExcludesUnsearchable(t *testing.T) {
	store := newFakeStore()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	addProcessed(t, store, "ok", "a.png", "report text", "", base)

	broken := &domain.Screenshot{
		ID:         "broken",
		Filename:   "b.png",
		Processed:  true,
		OCRText:    "report text",
		UploadedAt: base.Add(time.Minute),
	}
	if err := store.Create(context.Background(), broken); err != nil {
		t.Fatal(err)
	}

	svc := newTestSearch(store, newFakeEmbedder())
	resp, err := svc.Search(context.Background(), "report text", 5)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range resp.Results {
		if r.ID == "broken" {
			t.Error("candidate without embedding appeared in results")
		}
	}
	if len(resp.Results) != 1 {
		t.Errorf("results = %d, want 1", len(resp.Results))
	}
}
