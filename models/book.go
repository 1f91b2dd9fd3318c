// Package models defines the record shapes shared by the crawlers and the
// report tool.
package models

import (
	"strconv"
	"strings"
	"time"
)

// Record is implemented by everything the pipeline can carry.
type Record interface {
	// Key identifies a record for duplicate suppression within a run.
	Key() string
	// CSVRow renders the record as one flat CSV row.
	CSVRow() []string
}

// BookColumns is the header row for Book CSV output.
var BookColumns = []string{
	"topic", "title", "author", "avg_rating", "num_ratings", "num_reviews",
	"genres", "publish_year", "num_pages", "language", "series",
	"isbn", "isbn13", "asin", "awards",
	"num_1star", "num_2star", "num_3star", "num_4star", "num_5star",
	"url", "scraped_at",
}

// Book represents one book gathered from a listing or detail page. The
// identifier, language, series, award, and histogram fields are only
// populated from detail pages.
type Book struct {
	Topic       string    `json:"topic"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	AvgRating   float64   `json:"avg_rating"`
	NumRatings  int       `json:"num_ratings"`
	NumReviews  int       `json:"num_reviews"`
	Genres      []string  `json:"genres"`
	PublishYear int       `json:"publish_year"`
	NumPages    int       `json:"num_pages"`
	Language    string    `json:"language,omitempty"`
	Series      string    `json:"series,omitempty"`
	ISBN        string    `json:"isbn,omitempty"`
	ISBN13      string    `json:"isbn13,omitempty"`
	ASIN        string    `json:"asin,omitempty"`
	Awards      []string  `json:"awards,omitempty"`
	// RatingHistogram counts ratings per star; index 0 is the 1-star bucket.
	RatingHistogram [5]int    `json:"rating_histogram"`
	URL             string    `json:"url"`
	ScrapedAt       time.Time `json:"scraped_at"`
}

// Key returns the detail-page URL, the only identity a book carries.
func (b *Book) Key() string {
	return b.URL
}

// CSVRow flattens the book into the BookColumns order. List fields are
// joined with ";" so the row stays one CSV record.
func (b *Book) CSVRow() []string {
	return []string{
		b.Topic,
		b.Title,
		b.Author,
		strconv.FormatFloat(b.AvgRating, 'f', 2, 64),
		strconv.Itoa(b.NumRatings),
		strconv.Itoa(b.NumReviews),
		strings.Join(b.Genres, ";"),
		strconv.Itoa(b.PublishYear),
		strconv.Itoa(b.NumPages),
		b.Language,
		b.Series,
		b.ISBN,
		b.ISBN13,
		b.ASIN,
		strings.Join(b.Awards, ";"),
		strconv.Itoa(b.RatingHistogram[0]),
		strconv.Itoa(b.RatingHistogram[1]),
		strconv.Itoa(b.RatingHistogram[2]),
		strconv.Itoa(b.RatingHistogram[3]),
		strconv.Itoa(b.RatingHistogram[4]),
		b.URL,
		b.ScrapedAt.Format(time.RFC3339),
	}
}

// ReviewColumns is the header row for Review CSV output.
var ReviewColumns = []string{
	"book_url", "reviewer", "rating", "date", "text", "scraped_at",
}

// Review represents one reader review attached to a book.
type Review struct {
	BookURL   string    `json:"book_url"`
	Reviewer  string    `json:"reviewer"`
	Rating    int       `json:"rating"`
	Date      string    `json:"date"`
	Text      string    `json:"text"`
	ScrapedAt time.Time `json:"scraped_at"`
}

// Key combines book, reviewer, and date; the same review shows up on more
// than one page when new reviews shift the pagination.
func (r *Review) Key() string {
	return r.BookURL + "|" + r.Reviewer + "|" + r.Date
}

// CSVRow flattens the review into the ReviewColumns order.
func (r *Review) CSVRow() []string {
	return []string{
		r.BookURL,
		r.Reviewer,
		strconv.Itoa(r.Rating),
		r.Date,
		r.Text,
		r.ScrapedAt.Format(time.RFC3339),
	}
}

// CrawlResult holds the overall result of a crawl run.
type CrawlResult struct {
	StartTime    time.Time
	EndTime      time.Time
	TotalCount   int
	ErrorCount   int
	FailedURLs   []string
	ErrorsByType map[string]int
	RetryCount   int
	RequestCount int
	PageCount    int
}
