package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"readscrape/config"
	"readscrape/models"
	"readscrape/parser"
	"readscrape/pipeline"
)

// BookScraper walks a topic's paginated listing and emits Book records.
// With FetchDetails enabled it follows each row's detail link and builds
// the full record from the detail page; otherwise the listing row's summary
// fields are all it reports.
type BookScraper struct {
	*crawler
}

// NewBookScraper builds a book crawler configured from cfg.
func NewBookScraper(cfg *config.Config) (*BookScraper, error) {
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, fmt.Errorf("topic cannot be empty")
	}
	c, err := newCrawler(cfg)
	if err != nil {
		return nil, err
	}
	return &BookScraper{crawler: c}, nil
}

// Run starts the crawl and streams records through the pipeline.
func (s *BookScraper) Run(ctx context.Context, p *pipeline.Pipeline[*models.Book]) (*models.CrawlResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	s.handlersOnce.Do(func() {
		s.installBaseHandlers()
		s.installBookHandlers(ctx, p)
	})

	result, err := s.run(ctx, func() error {
		return s.collector.Visit(s.listURL(1))
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

func (s *BookScraper) listURL(page int) string {
	return fmt.Sprintf("%s/list/show/%s?page=%d",
		strings.TrimSuffix(s.cfg.BaseURL, "/"), url.PathEscape(s.cfg.Topic), page)
}

func (s *BookScraper) installBookHandlers(ctx context.Context, p *pipeline.Pipeline[*models.Book]) {
	s.collector.OnHTML(`tr[itemtype="http://schema.org/Book"]`, func(e *colly.HTMLElement) {
		titleLink := e.DOM.Find("a.bookTitle")
		href, _ := titleLink.Attr("href")
		if href == "" {
			return
		}
		detailURL := e.Request.AbsoluteURL(href)

		if s.cfg.FetchDetails {
			if ctx.Err() != nil {
				return
			}
			s.collector.Visit(detailURL)
			return
		}

		book := s.extractListedBook(e.DOM, detailURL)
		if book == nil {
			return
		}
		s.emit(p, book)
	})

	// Detail pages carry everything the listing row does plus review
	// counts, page counts, genres, and the original publication year.
	s.collector.OnHTML("html", func(e *colly.HTMLElement) {
		if !strings.Contains(e.Request.URL.Path, "/book/show/") {
			return
		}
		book := s.extractDetailBook(e.DOM, canonicalURL(e.Request.URL))
		if book == nil {
			return
		}
		s.emit(p, book)
	})

	s.collector.OnHTML("a.next_page", func(e *colly.HTMLElement) {
		if !strings.Contains(e.Request.URL.Path, "/list/show/") {
			return
		}
		currentPage := atomic.AddInt64(&s.pageCount, 1)
		s.Metrics.IncPages()
		if currentPage >= int64(s.cfg.MaxPages) {
			return
		}
		if ctx.Err() != nil {
			return
		}
		s.collector.Visit(e.Request.AbsoluteURL(e.Attr("href")))
	})
}

func (s *BookScraper) emit(p *pipeline.Pipeline[*models.Book], book *models.Book) {
	s.Metrics.IncRecords("book")
	if err := p.Process(book); err != nil && err != pipeline.ErrPipelineClosed {
		slog.Error("pipeline process error", slog.Any("error", err))
	}
}

// extractListedBook builds a summary record from one listing row.
func (s *BookScraper) extractListedBook(row *goquery.Selection, detailURL string) *models.Book {
	title := parser.CleanText(row.Find("a.bookTitle").Text())
	if title == "" {
		return nil
	}

	avgRating, numRatings := parser.ParseMiniRating(row.Find("span.minirating").Text())

	return &models.Book{
		Topic:      s.cfg.Topic,
		Title:      title,
		Author:     parser.CleanText(row.Find("a.authorName").First().Text()),
		AvgRating:  avgRating,
		NumRatings: numRatings,
		URL:        detailURL,
		ScrapedAt:  time.Now(),
	}
}

// extractDetailBook builds a full record from a book detail page.
func (s *BookScraper) extractDetailBook(doc *goquery.Selection, bookURL string) *models.Book {
	title := parser.CleanText(doc.Find("#bookTitle").Text())
	if title == "" {
		return nil
	}

	genres := doc.Find(`a.bookPageGenreLink[href*="/genres/"]`).Map(func(_ int, sel *goquery.Selection) string {
		return sel.Text()
	})
	awards := doc.Find("a.award").Map(func(_ int, sel *goquery.Selection) string {
		return sel.Text()
	})
	isbn, isbn13, asin := extractBookIDs(doc)

	return &models.Book{
		Topic:           s.cfg.Topic,
		Title:           title,
		Author:          parser.CleanText(doc.Find("a.authorName span").First().Text()),
		AvgRating:       parser.ParseAvgRating(doc.Find("[itemprop=ratingValue]").First().Text()),
		NumRatings:      attrOrTextCount(doc.Find("[itemprop=ratingCount]").First()),
		NumReviews:      attrOrTextCount(doc.Find("[itemprop=reviewCount]").First()),
		Genres:          parser.NormalizeList(genres),
		PublishYear:     parser.ParseFirstPublished(doc.Find("#details").Text()),
		NumPages:        parser.ParsePageCount(doc.Find("[itemprop=numberOfPages]").First().Text()),
		Language:        parser.CleanText(doc.Find("div[itemprop=inLanguage]").First().Text()),
		Series:          parser.CleanText(doc.Find(`div.infoBoxRowItem a[href*="/series/"]`).First().Text()),
		ISBN:            isbn,
		ISBN13:          isbn13,
		ASIN:            asin,
		Awards:          parser.NormalizeList(awards),
		RatingHistogram: parser.ParseRatingHistogram(doc.Find(`script[type*="protovis"]`).Text()),
		URL:             bookURL,
		ScrapedAt:       time.Now(),
	}
}

// extractBookIDs classifies the identifier box texts: 10 digits is an
// ISBN, 13 digits an ISBN-13, and a 10-character mixed string an ASIN.
// Kindle editions put the ASIN where the ISBN normally sits, so the ASIN
// only comes from the itemprop=isbn box.
func extractBookIDs(doc *goquery.Selection) (isbn, isbn13, asin string) {
	doc.Find("[itemprop=isbn]").Each(func(_ int, sel *goquery.Selection) {
		if asin == "" {
			asin = parser.ParseASIN(sel.Text())
		}
	})
	doc.Find("[itemprop=isbn], div.infoBoxRowItem").Each(func(_ int, sel *goquery.Selection) {
		text := sel.Text()
		if isbn == "" {
			isbn = parser.ParseISBN(text)
		}
		if isbn13 == "" {
			isbn13 = parser.ParseISBN13(text)
		}
	})
	return isbn, isbn13, asin
}

// attrOrTextCount prefers the schema.org content attribute over the
// element text, mirroring how the site publishes its counts.
func attrOrTextCount(sel *goquery.Selection) int {
	if content, ok := sel.Attr("content"); ok {
		return parser.ParseCount(content)
	}
	return parser.ParseCount(sel.Text())
}

// canonicalURL strips query and fragment so one book maps to one key.
func canonicalURL(u *url.URL) string {
	clean := *u
	clean.RawQuery = ""
	clean.Fragment = ""
	return clean.String()
}
