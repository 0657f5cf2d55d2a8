package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gargarushee/VisualMemorySearch/internal/domain"
	"github.com/gargarushee/VisualMemorySearch/internal/logger"
	"github.com/gargarushee/VisualMemorySearch/internal/storage"
	"github.com/google/uuid"
)

// ErrEmptyQuery is returned when a search is attempted with a blank query.
var ErrEmptyQuery = errors.New("query must not be empty")

// SearchService ranks the processed corpus against free-text queries.
// Scoring is a pure function of (query, candidate), so candidates are
// scored in parallel with no shared state beyond the result slots.
type SearchService struct {
	store        ScreenshotStore
	blobs        storage.ObjectStorage
	embedder     Embedder
	defaultLimit int
	maxLimit     int
	workers      int
	log          *logger.Logger
}

// SearchResponse is the orchestrator's output: the ranked hits, how many
// candidates were considered, and the wall-clock cost.
type SearchResponse struct {
	Results       []ScoredResult `json:"results"`
	TotalSearched int            `json:"total_searched"`
	QueryTimeMs   int64          `json:"query_time_ms"`
}

// NewSearchService creates the search service.
func NewSearchService(
	store ScreenshotStore,
	blobs storage.ObjectStorage,
	embedder Embedder,
	defaultLimit, maxLimit, workers int,
	log *logger.Logger,
) *SearchService {
	if defaultLimit <= 0 {
		defaultLimit = 5
	}
	if maxLimit <= 0 {
		maxLimit = 50
	}
	if workers <= 0 {
		workers = 8
	}
	if log == nil {
		log = logger.NewDefault()
	}
	return &SearchService{
		store:        store,
		blobs:        blobs,
		embedder:     embedder,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
		workers:      workers,
		log:          log,
	}
}

// Search runs the full ranking pipeline: analyze the query once, embed it,
// score every processed screenshot, sort, truncate. The same query against
// an unchanged corpus always returns the same ordered result.
func (s *SearchService) Search(ctx context.Context, query string, limit int) (*SearchResponse, error) {
	start := time.Now()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	if limit <= 0 {
		limit = s.defaultLimit
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}

	searchID := uuid.New().String()
	log := s.log.WithFields(logger.Fields{
		logger.FieldComponent: "search",
		logger.FieldSearchID:  searchID,
	})

	corpus, err := s.store.ListProcessed(ctx)
	if err != nil {
		return nil, err
	}
	if len(corpus) == 0 {
		return &SearchResponse{
			Results:       []ScoredResult{},
			TotalSearched: 0,
			QueryTimeMs:   time.Since(start).Milliseconds(),
		}, nil
	}

	profile := AnalyzeQuery(query)

	queryEmbedding, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		// Degraded but symmetric with corpus fallback vectors, so lexical
		// overlap still surfaces through the semantic signal.
		log.WithError(err).Warn("query embedding failed, using lexical fallback")
		queryEmbedding = lexicalEmbedding(query, s.embedder.Dimensions())
	}

	scored := s.scoreCorpus(query, profile, queryEmbedding, corpus)

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Confidence != scored[j].Confidence {
			return scored[i].Confidence > scored[j].Confidence
		}
		if !scored[i].UploadedAt.Equal(scored[j].UploadedAt) {
			return scored[i].UploadedAt.After(scored[j].UploadedAt)
		}
		return scored[i].ID < scored[j].ID
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}

	elapsed := time.Since(start).Milliseconds()
	log.WithFields(logger.Fields{
		logger.FieldCount:      len(scored),
		logger.FieldDurationMs: elapsed,
		"total_searched":       len(corpus),
		"leaning":              string(profile.Leaning),
	}).Info("search completed")

	return &SearchResponse{
		Results:       scored,
		TotalSearched: len(corpus),
		QueryTimeMs:   elapsed,
	}, nil
}

// scoreCorpus fans candidates out over a bounded worker pool. Each result
// lands in its own slot, so no locking is needed.
func (s *SearchService) scoreCorpus(query string, profile QueryProfile, queryEmbedding []float32, corpus []domain.Screenshot) []ScoredResult {
	type slot struct {
		result ScoredResult
		ok     bool
	}
	slots := make([]slot, len(corpus))

	indexChan := make(chan int)
	var wg sync.WaitGroup
	workers := s.workers
	if workers > len(corpus) {
		workers = len(corpus)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range indexChan {
				result, ok := scoreScreenshot(query, profile, queryEmbedding, &corpus[idx])
				if ok && s.blobs != nil {
					result.PreviewURL = s.blobs.GetURL(corpus[idx].StorageKey)
				}
				slots[idx] = slot{result: result, ok: ok}
			}
		}()
	}
	for idx := range corpus {
		indexChan <- idx
	}
	close(indexChan)
	wg.Wait()

	scored := make([]ScoredResult, 0, len(corpus))
	for _, sl := range slots {
		if sl.ok {
			scored = append(scored, sl.result)
		}
	}
	return scored
}
