package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"readscrape/config"
	"readscrape/models"
	"readscrape/parser"
	"readscrape/pipeline"
)

// ReviewScraper visits each book's review listing and emits Review
// records. Pagination is bounded per book, not globally.
type ReviewScraper struct {
	*crawler

	pagesMu  sync.Mutex
	pagesFor map[string]int
}

// NewReviewScraper builds a review crawler configured from cfg.
func NewReviewScraper(cfg *config.Config) (*ReviewScraper, error) {
	c, err := newCrawler(cfg)
	if err != nil {
		return nil, err
	}
	return &ReviewScraper{
		crawler:  c,
		pagesFor: make(map[string]int),
	}, nil
}

// Run crawls the review pages of every book URL and streams records
// through the pipeline.
func (s *ReviewScraper) Run(ctx context.Context, p *pipeline.Pipeline[*models.Review], bookURLs []string) (*models.CrawlResult, error) {
	if len(bookURLs) == 0 {
		return nil, fmt.Errorf("no book URLs to crawl")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	s.handlersOnce.Do(func() {
		s.installBaseHandlers()
		s.installReviewHandlers(ctx, p)
	})

	result, err := s.run(ctx, func() error {
		var firstErr error
		for _, bookURL := range bookURLs {
			if ctx.Err() != nil {
				break
			}
			if err := s.collector.Visit(bookURL); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("visit %s: %w", bookURL, err)
			}
		}
		return firstErr
	})
	if err != nil {
		return nil, err
	}

	if metrics := p.GetMetrics(); metrics != nil {
		if processed, ok := metrics["processed_records"].(int64); ok {
			result.TotalCount = int(processed)
		}
	}
	return result, nil
}

func (s *ReviewScraper) installReviewHandlers(ctx context.Context, p *pipeline.Pipeline[*models.Review]) {
	s.collector.OnHTML("div.review", func(e *colly.HTMLElement) {
		review := extractReview(e.DOM, canonicalURL(e.Request.URL))
		if review == nil {
			return
		}
		s.Metrics.IncRecords("review")
		if err := p.Process(review); err != nil && err != pipeline.ErrPipelineClosed {
			slog.Error("pipeline process error", slog.Any("error", err))
		}
	})

	s.collector.OnHTML("a.next_page", func(e *colly.HTMLElement) {
		if !strings.Contains(e.Request.URL.Path, "/book/show/") {
			return
		}
		book := canonicalURL(e.Request.URL)
		if !s.allowNextPage(book) {
			return
		}
		atomic.AddInt64(&s.pageCount, 1)
		s.Metrics.IncPages()
		if ctx.Err() != nil {
			return
		}
		s.collector.Visit(e.Request.AbsoluteURL(e.Attr("href")))
	})
}

// allowNextPage enforces the per-book page bound.
func (s *ReviewScraper) allowNextPage(book string) bool {
	s.pagesMu.Lock()
	defer s.pagesMu.Unlock()
	// The first page was fetched before any next link fires, so visited
	// starts at 1.
	visited := s.pagesFor[book] + 1
	if visited >= s.cfg.MaxPages {
		return false
	}
	s.pagesFor[book] = visited
	return true
}

// extractReview builds one record from a review block.
func extractReview(block *goquery.Selection, bookURL string) *models.Review {
	reviewer := parser.CleanText(block.Find("a.user").First().Text())
	if reviewer == "" {
		return nil
	}

	phrase, _ := block.Find("span.staticStars").First().Attr("title")

	return &models.Review{
		BookURL:   bookURL,
		Reviewer:  reviewer,
		Rating:    parser.StarPhraseToNumeric(phrase),
		Date:      parser.CleanText(block.Find("a.reviewDate").First().Text()),
		Text:      parser.CleanText(block.Find("div.reviewText").First().Text()),
		ScrapedAt: time.Now(),
	}
}
