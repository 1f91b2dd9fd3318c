package analysis

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"readscrape/models"
)

const sampleCSV = `topic,title,author,avg_rating,num_ratings,num_reviews,genres,publish_year,num_pages,language,series,isbn,isbn13,asin,awards,num_1star,num_2star,num_3star,num_4star,num_5star,url,scraped_at
fantasy,The First Tome,Ann Writer,4.50,1200,300,Fantasy;Fiction,1996,420,English,The Tome Saga,0765342294,9780765342294,,Locus Award;Hugo Award,10,20,70,300,800,http://example.test/book/show/1,2026-08-01T10:00:00Z
fantasy,The Second Tome,Ann Writer,3.50,800,120,Fantasy,2004,310,English,The Tome Saga,,,,,50,150,200,250,150,http://example.test/book/show/2,2026-08-01T10:01:00Z
fantasy,A Third Story,Bob Author,2.10,50,4,Fiction;Adventure,2011,,Spanish,,,,,,0,0,0,0,0,http://example.test/book/show/3,2026-08-01T10:02:00Z
fantasy,,Missing Title,4.00,10,1,,2000,200,English,,,,,,0,0,0,0,0,http://example.test/book/show/4,2026-08-01T10:03:00Z
`

// legacyCSV predates the detail-page columns; missing fields read as zero.
const legacyCSV = `topic,title,author,avg_rating,num_ratings,num_reviews,genres,publish_year,num_pages,url,scraped_at
fantasy,Old Row,Ann Writer,4.00,100,10,Fantasy,1999,200,http://example.test/book/show/9,2026-08-01T10:00:00Z
`

func TestReadBooks(t *testing.T) {
	books, skipped, err := ReadBooks(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	assert.Equal(t, 1, skipped, "row without title must be skipped")
	require.Len(t, books, 3)

	first := books[0]
	assert.Equal(t, "fantasy", first.Topic)
	assert.Equal(t, "The First Tome", first.Title)
	assert.Equal(t, "Ann Writer", first.Author)
	assert.Equal(t, 4.50, first.AvgRating)
	assert.Equal(t, 1200, first.NumRatings)
	assert.Equal(t, 300, first.NumReviews)
	assert.Equal(t, []string{"Fantasy", "Fiction"}, first.Genres)
	assert.Equal(t, 1996, first.PublishYear)
	assert.Equal(t, 420, first.NumPages)
	assert.Equal(t, "English", first.Language)
	assert.Equal(t, "The Tome Saga", first.Series)
	assert.Equal(t, "0765342294", first.ISBN)
	assert.Equal(t, "9780765342294", first.ISBN13)
	assert.Empty(t, first.ASIN)
	assert.Equal(t, []string{"Locus Award", "Hugo Award"}, first.Awards)
	assert.Equal(t, [5]int{10, 20, 70, 300, 800}, first.RatingHistogram)
	assert.Equal(t, "http://example.test/book/show/1", first.URL)

	// Empty numeric cells read as zero, not as an error.
	assert.Equal(t, 0, books[2].NumPages)
}

func TestReadBooksLegacyColumns(t *testing.T) {
	books, skipped, err := ReadBooks(strings.NewReader(legacyCSV))
	require.NoError(t, err)
	assert.Zero(t, skipped)
	require.Len(t, books, 1)
	assert.Equal(t, "Old Row", books[0].Title)
	assert.Empty(t, books[0].Language)
	assert.Equal(t, [5]int{}, books[0].RatingHistogram)
}

func TestReadBooksHeaderOnly(t *testing.T) {
	header := "topic,title,author,avg_rating,num_ratings,num_reviews,genres,publish_year,num_pages,url,scraped_at\n"
	books, skipped, err := ReadBooks(strings.NewReader(header))
	require.NoError(t, err)
	assert.Empty(t, books)
	assert.Zero(t, skipped)
}

func TestReadBooksMissingColumn(t *testing.T) {
	_, _, err := ReadBooks(strings.NewReader("topic,author\nfantasy,Ann\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "title")
}

func TestReadBooksEmptyInput(t *testing.T) {
	_, _, err := ReadBooks(strings.NewReader(""))
	require.Error(t, err)
}

func TestSummarize(t *testing.T) {
	books, _, err := ReadBooks(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	s := Summarize(books, 2)

	assert.Equal(t, "fantasy", s.Topic)
	assert.Equal(t, 3, s.TotalBooks)
	assert.Equal(t, int64(2050), s.TotalRatings)
	assert.Equal(t, int64(424), s.TotalReviews)

	assert.Equal(t, 3, s.Rating.Count)
	assert.InDelta(t, 3.3667, s.Rating.Mean, 0.001)
	assert.InDelta(t, 3.50, s.Rating.Median, 0.001)
	assert.InDelta(t, 2.10, s.Rating.Min, 0.001)
	assert.InDelta(t, 4.50, s.Rating.Max, 0.001)

	// One book has no page count; stats cover the other two.
	assert.Equal(t, 2, s.Pages.Count)
	assert.InDelta(t, 365, s.Pages.Mean, 0.001)

	// 4.50 rounds to 5 stars, 3.50 to 4, 2.10 to 2.
	assert.Equal(t, [5]int{0, 1, 0, 1, 1}, s.StarHistogram)

	// Exact counts summed from the per-book histograms.
	assert.Equal(t, [5]int64{60, 170, 270, 550, 950}, s.StarRatings)

	require.Len(t, s.TopLanguages, 2)
	assert.Equal(t, NameCount{Name: "English", Count: 2}, s.TopLanguages[0])
	assert.Equal(t, NameCount{Name: "Spanish", Count: 1}, s.TopLanguages[1])

	require.Len(t, s.TopGenres, 2)
	assert.Equal(t, NameCount{Name: "Fantasy", Count: 2}, s.TopGenres[0])
	assert.Equal(t, NameCount{Name: "Fiction", Count: 2}, s.TopGenres[1])

	require.NotEmpty(t, s.TopAuthors)
	assert.Equal(t, NameCount{Name: "Ann Writer", Count: 2}, s.TopAuthors[0])

	assert.Equal(t, []NameCount{
		{Name: "1990s", Count: 1},
		{Name: "2000s", Count: 1},
		{Name: "2010s", Count: 1},
	}, s.Decades)

	require.NotEmpty(t, s.TopTitleWords)
	assert.Equal(t, NameCount{Name: "tome", Count: 2}, s.TopTitleWords[0])
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil, 10)
	assert.Zero(t, s.TotalBooks)
	assert.Zero(t, s.Rating.Count)
	assert.Empty(t, s.TopGenres)
	assert.Empty(t, s.Decades)
}

func TestTitleWords(t *testing.T) {
	words := titleWords("The Fellowship of the Ring (Lord of the Rings, #1)")
	assert.Equal(t, []string{"fellowship", "ring", "lord", "rings"}, words)
}

func TestComputeStatsEvenCount(t *testing.T) {
	stats := computeStats([]float64{1, 2, 3, 4})
	assert.Equal(t, 4, stats.Count)
	assert.InDelta(t, 2.5, stats.Mean, 0.001)
	assert.InDelta(t, 2.5, stats.Median, 0.001)
	assert.InDelta(t, 1.118, stats.StdDev, 0.001)
}

func TestWriteMarkdown(t *testing.T) {
	books, skipped, err := ReadBooks(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	s := Summarize(books, 5)
	s.SkippedRows = skipped

	var sb strings.Builder
	require.NoError(t, WriteMarkdown(&sb, s))
	report := sb.String()

	assert.Contains(t, report, "# Book Metadata Report")
	assert.Contains(t, report, "Rating Distribution")
	assert.Contains(t, report, "5★")
	// Detail-page histograms were present, so the star table reports exact
	// rating counts (950 five-star ratings) rather than books bucketed by
	// average.
	assert.Contains(t, report, "950")
	assert.Contains(t, report, "Languages")
	assert.Contains(t, report, "English")
	assert.Contains(t, report, "```mermaid")
	assert.Contains(t, report, "pie")
	assert.Contains(t, report, "Fantasy")
	assert.Contains(t, report, "Ann Writer")
	assert.Contains(t, report, "1990s")
}

func TestWriteMarkdownNoGenres(t *testing.T) {
	s := Summarize([]*models.Book{
		{Title: "Plain", URL: "http://example.test/book/show/9", AvgRating: 3.0},
	}, 5)

	var sb strings.Builder
	require.NoError(t, WriteMarkdown(&sb, s))
	assert.NotContains(t, sb.String(), "```mermaid")
}

func TestLoadBooksLeavesInputIntact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "books.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	books, skipped, err := LoadBooks(path)
	require.NoError(t, err)
	assert.Len(t, books, 3)
	assert.Equal(t, 1, skipped)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestLoadBooksMissingFile(t *testing.T) {
	_, _, err := LoadBooks(filepath.Join(t.TempDir(), "absent.csv"))
	require.Error(t, err)
}
