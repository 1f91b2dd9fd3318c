package pipeline

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"readscrape/config"
	"readscrape/models"
	"readscrape/parser"
)

type mockWriter struct {
	mu          sync.Mutex
	batches     [][]*models.Book
	closed      bool
	validateErr error
}

func (mw *mockWriter) Write(books []*models.Book) error {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	copyBatch := make([]*models.Book, len(books))
	copy(copyBatch, books)
	mw.batches = append(mw.batches, copyBatch)
	return nil
}

func (mw *mockWriter) Close() error {
	mw.mu.Lock()
	mw.closed = true
	mw.mu.Unlock()
	return nil
}

func (mw *mockWriter) Validate() error {
	return mw.validateErr
}

func (mw *mockWriter) totalWritten() int {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	total := 0
	for _, batch := range mw.batches {
		total += len(batch)
	}
	return total
}

func (mw *mockWriter) batchSizes() []int {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	sizes := make([]int, 0, len(mw.batches))
	for _, batch := range mw.batches {
		sizes = append(sizes, len(batch))
	}
	return sizes
}

type blockingWriter struct {
	blockCh chan struct{}
}

func (bw *blockingWriter) Write(books []*models.Book) error {
	<-bw.blockCh
	return nil
}

func (bw *blockingWriter) Close() error {
	return nil
}

func (bw *blockingWriter) Validate() error {
	return nil
}

func validBook(url string) *models.Book {
	return &models.Book{
		Topic:     "fantasy",
		Title:     "A Book",
		Author:    "An Author",
		AvgRating: 4.1,
		URL:       url,
		ScrapedAt: time.Now(),
	}
}

func prepareBook(b *models.Book) error {
	return parser.ValidateBook(b)
}

func TestPipelineProcessValidationAndDedup(t *testing.T) {
	cfg := config.DefaultConfig()
	writer := &mockWriter{}
	p := NewPipeline(context.Background(), writer, cfg, prepareBook)
	p.Start(1)

	valid := validBook("http://example.test/book/show/1")
	invalid := validBook("http://example.test/book/show/2")
	invalid.Title = ""
	duplicate := validBook("http://example.test/book/show/1")

	if err := p.Process(valid, invalid, duplicate); err != nil {
		t.Fatalf("process: %v", err)
	}

	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if got := writer.totalWritten(); got != 1 {
		t.Fatalf("written books = %d, want 1", got)
	}

	metrics := p.GetMetrics()
	validation, ok := metrics["validation_errors"].(map[string]int)
	if !ok {
		t.Fatalf("expected validation errors map")
	}
	if validation["invalid_record"] == 0 {
		t.Fatalf("expected invalid_record validation error")
	}
	if validation["duplicate_key"] == 0 {
		t.Fatalf("expected duplicate_key validation error")
	}
}

func TestPipelineBatchFlushThreshold(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BatchSize = 64
	writer := &mockWriter{}
	p := NewPipeline(context.Background(), writer, cfg, prepareBook)
	p.Start(1)

	for i := 0; i < 65; i++ {
		if err := p.Process(validBook("http://example.test/book/show/" + strconv.Itoa(i))); err != nil {
			t.Fatalf("process: %v", err)
		}
	}

	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	sizes := writer.batchSizes()
	if len(sizes) != 2 {
		t.Fatalf("batch writes = %d, want 2", len(sizes))
	}
	if sizes[0] != 64 || sizes[1] != 1 {
		t.Fatalf("batch sizes = %v, want [64 1]", sizes)
	}
}

func TestPipelineCloseDrainsPendingItems(t *testing.T) {
	cfg := config.DefaultConfig()
	writer := &mockWriter{}
	p := NewPipeline(context.Background(), writer, cfg, prepareBook)
	p.Start(2)

	for i := 0; i < 100; i++ {
		if err := p.Process(validBook("http://example.test/book/show/" + strconv.Itoa(i+200))); err != nil {
			t.Fatalf("process: %v", err)
		}
	}

	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if got := writer.totalWritten(); got != 100 {
		t.Fatalf("written books = %d, want 100", got)
	}
}

func TestPipelineCloseTimeout(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BatchSize = 1

	writer := &blockingWriter{blockCh: make(chan struct{})}
	p := NewPipeline(context.Background(), writer, cfg, prepareBook)
	p.Start(1)

	if err := p.Process(validBook("http://example.test/book/show/blocked")); err != nil {
		t.Fatalf("process: %v", err)
	}

	previousTimeout := drainTimeout
	drainTimeout = 25 * time.Millisecond
	t.Cleanup(func() {
		drainTimeout = previousTimeout
		close(writer.blockCh)
	})

	if err := p.Close(); err == nil || !errors.Is(err, ErrPipelineCloseTimeout) {
		t.Fatalf("expected close timeout error, got %v", err)
	}
}

func TestPipelineProcessAfterClose(t *testing.T) {
	cfg := config.DefaultConfig()
	writer := &mockWriter{}
	p := NewPipeline(context.Background(), writer, cfg, prepareBook)
	p.Start(1)

	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if err := p.Process(validBook("http://example.test/book/show/late")); !errors.Is(err, ErrPipelineClosed) {
		t.Fatalf("expected ErrPipelineClosed, got %v", err)
	}
}

func TestPipelineReviews(t *testing.T) {
	cfg := config.DefaultConfig()
	writer := &reviewCollector{}
	p := NewPipeline(context.Background(), writer, cfg, func(r *models.Review) error {
		return parser.ValidateReview(r)
	})
	p.Start(1)

	review := &models.Review{
		BookURL:   "http://example.test/book/show/1",
		Reviewer:  "Alice",
		Rating:    5,
		Date:      "Jan 02, 2020",
		Text:      "Loved it.",
		ScrapedAt: time.Now(),
	}
	anonymous := &models.Review{
		BookURL: "http://example.test/book/show/1",
		Rating:  3,
	}

	if err := p.Process(review, anonymous); err != nil {
		t.Fatalf("process: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if got := writer.count(); got != 1 {
		t.Fatalf("written reviews = %d, want 1", got)
	}
}

type reviewCollector struct {
	mu      sync.Mutex
	reviews []*models.Review
}

func (rc *reviewCollector) Write(reviews []*models.Review) error {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.reviews = append(rc.reviews, reviews...)
	return nil
}

func (rc *reviewCollector) Close() error {
	return nil
}

func (rc *reviewCollector) Validate() error {
	return nil
}

func (rc *reviewCollector) count() int {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return len(rc.reviews)
}
