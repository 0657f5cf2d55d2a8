package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/gargarushee/VisualMemorySearch/internal/domain"
)

// fakeStore is an in-memory ScreenshotStore.
type fakeStore struct {
	mu    sync.Mutex
	shots map[string]*domain.Screenshot
	order []string

	failUpdateFor map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		shots:         make(map[string]*domain.Screenshot),
		failUpdateFor: make(map[string]bool),
	}
}

func (s *fakeStore) Create(ctx context.Context, shot *domain.Screenshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *shot
	s.shots[shot.ID] = &cp
	s.order = append(s.order, shot.ID)
	return nil
}

func (s *fakeStore) Update(ctx context.Context, shot *domain.Screenshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failUpdateFor[shot.Filename] {
		return errors.New("simulated update failure")
	}
	if _, ok := s.shots[shot.ID]; !ok {
		return errors.New("record not found")
	}
	cp := *shot
	s.shots[shot.ID] = &cp
	return nil
}

func (s *fakeStore) GetByID(ctx context.Context, id string) (*domain.Screenshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	shot, ok := s.shots[id]
	if !ok {
		return nil, errors.New("record not found")
	}
	cp := *shot
	return &cp, nil
}

func (s *fakeStore) ListProcessed(ctx context.Context) ([]domain.Screenshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Screenshot
	for _, id := range s.order {
		if shot := s.shots[id]; shot != nil && shot.Processed {
			out = append(out, *shot)
		}
	}
	return out, nil
}

func (s *fakeStore) List(ctx context.Context, limit, offset int) ([]domain.Screenshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Screenshot
	for _, id := range s.order {
		if shot := s.shots[id]; shot != nil {
			out = append(out, *shot)
		}
	}
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.shots, id)
	return nil
}

// fakeBlobs records uploads and deletions without touching disk.
type fakeBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{objects: make(map[string][]byte)}
}

func (b *fakeBlobs) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = data
	return nil
}

func (b *fakeBlobs) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	return nil, errors.New("not implemented")
}

func (b *fakeBlobs) GetURL(key string) string {
	return "/uploads/" + key
}

func (b *fakeBlobs) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, key)
	b.deleted = append(b.deleted, key)
	return nil
}

func (b *fakeBlobs) Exists(ctx context.Context, key string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.objects[key]
	return ok, nil
}

// fakeExtractor returns canned OCR text or a failure.
type fakeExtractor struct {
	text string
	fail bool
}

func (f *fakeExtractor) ExtractText(ctx context.Context, imageData []byte, format string) (string, error) {
	if f.fail {
		return "", fmt.Errorf("%w: simulated", ErrExtractionFailed)
	}
	return f.text, nil
}

// fakeDescriber returns a canned description or a failure.
type fakeDescriber struct {
	text string
	fail bool
}

func (f *fakeDescriber) DescribeImage(ctx context.Context, imageData []byte, format string) (string, error) {
	if f.fail {
		return "", fmt.Errorf("%w: simulated", ErrDescriptionUnavailable)
	}
	return f.text, nil
}

// fakeEmbedder embeds via the lexical fallback so tests get real,
// deterministic vectors with meaningful cosine distances. Set fail to
// exercise the degraded path.
type fakeEmbedder struct {
	dims int
	fail bool
}

func newFakeEmbedder() *fakeEmbedder {
	return &fakeEmbedder{dims: 64}
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.fail {
		return nil, fmt.Errorf("%w: simulated", ErrEmbeddingFailed)
	}
	return lexicalEmbedding(text, f.dims), nil
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	return f.Embed(ctx, query)
}

func (f *fakeEmbedder) Dimensions() int { return f.dims }

func (f *fakeEmbedder) Model() string { return "fake-embedder" }
