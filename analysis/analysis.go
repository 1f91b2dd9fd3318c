// Package analysis loads a crawled metadata table and computes the
// descriptive statistics behind the report tool. It never writes to the
// table it reads.
package analysis

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"readscrape/models"
)

// LoadBooks reads a Book CSV produced by the metadata crawler. Rows that
// fail to parse are skipped; the row count lost that way is reported via
// the second return value.
func LoadBooks(path string) ([]*models.Book, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open metadata table: %w", err)
	}
	defer f.Close()
	return ReadBooks(f)
}

// ReadBooks parses Book records from CSV data with a header row.
func ReadBooks(r io.Reader) ([]*models.Book, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, 0, fmt.Errorf("metadata table has no header row")
		}
		return nil, 0, fmt.Errorf("read header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"title", "url"} {
		if _, ok := col[required]; !ok {
			return nil, 0, fmt.Errorf("metadata table missing %q column", required)
		}
	}

	field := func(row []string, name string) string {
		idx, ok := col[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return row[idx]
	}

	var books []*models.Book
	skipped := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			continue
		}

		title := strings.TrimSpace(field(row, "title"))
		bookURL := strings.TrimSpace(field(row, "url"))
		if title == "" || bookURL == "" {
			skipped++
			continue
		}

		avgRating, _ := strconv.ParseFloat(field(row, "avg_rating"), 64)
		numRatings, _ := strconv.Atoi(field(row, "num_ratings"))
		numReviews, _ := strconv.Atoi(field(row, "num_reviews"))
		publishYear, _ := strconv.Atoi(field(row, "publish_year"))
		numPages, _ := strconv.Atoi(field(row, "num_pages"))
		scrapedAt, _ := time.Parse(time.RFC3339, field(row, "scraped_at"))

		var genres []string
		if raw := strings.TrimSpace(field(row, "genres")); raw != "" {
			genres = strings.Split(raw, ";")
		}
		var awards []string
		if raw := strings.TrimSpace(field(row, "awards")); raw != "" {
			awards = strings.Split(raw, ";")
		}
		var histogram [5]int
		for star := 1; star <= 5; star++ {
			histogram[star-1], _ = strconv.Atoi(field(row, fmt.Sprintf("num_%dstar", star)))
		}

		books = append(books, &models.Book{
			Topic:           field(row, "topic"),
			Title:           title,
			Author:          strings.TrimSpace(field(row, "author")),
			AvgRating:       avgRating,
			NumRatings:      numRatings,
			NumReviews:      numReviews,
			Genres:          genres,
			PublishYear:     publishYear,
			NumPages:        numPages,
			Language:        strings.TrimSpace(field(row, "language")),
			Series:          strings.TrimSpace(field(row, "series")),
			ISBN:            strings.TrimSpace(field(row, "isbn")),
			ISBN13:          strings.TrimSpace(field(row, "isbn13")),
			ASIN:            strings.TrimSpace(field(row, "asin")),
			Awards:          awards,
			RatingHistogram: histogram,
			URL:             bookURL,
			ScrapedAt:       scrapedAt,
		})
	}

	return books, skipped, nil
}

// Stats holds a five-number view of one numeric column.
type Stats struct {
	Count  int
	Mean   float64
	Median float64
	StdDev float64
	Min    float64
	Max    float64
}

// NameCount is a label with an occurrence count.
type NameCount struct {
	Name  string
	Count int
}

// Summary is everything the report renders.
type Summary struct {
	Topic        string
	TotalBooks   int
	SkippedRows  int
	TotalRatings int64
	TotalReviews int64
	Rating       Stats
	Pages        Stats
	// StarHistogram buckets books by rounded average rating; StarRatings
	// sums the per-book rating histograms when the crawl captured them.
	// Index 0 is the 1-star bucket in both.
	StarHistogram [5]int
	StarRatings   [5]int64
	TopGenres     []NameCount
	TopAuthors    []NameCount
	TopLanguages  []NameCount
	Decades       []NameCount
	TopTitleWords []NameCount
}

// Summarize computes descriptive statistics over the loaded table. topN
// bounds the ranked lists (genres, authors, words).
func Summarize(books []*models.Book, topN int) *Summary {
	if topN <= 0 {
		topN = 10
	}

	s := &Summary{TotalBooks: len(books)}

	var ratings, pages []float64
	genreCounts := make(map[string]int)
	authorCounts := make(map[string]int)
	languageCounts := make(map[string]int)
	decadeCounts := make(map[string]int)
	wordCounts := make(map[string]int)

	for _, b := range books {
		if s.Topic == "" && b.Topic != "" {
			s.Topic = b.Topic
		}
		s.TotalRatings += int64(b.NumRatings)
		s.TotalReviews += int64(b.NumReviews)

		if b.AvgRating > 0 {
			ratings = append(ratings, b.AvgRating)
			star := int(math.Round(b.AvgRating))
			if star < 1 {
				star = 1
			}
			if star > 5 {
				star = 5
			}
			s.StarHistogram[star-1]++
		}
		if b.NumPages > 0 {
			pages = append(pages, float64(b.NumPages))
		}
		for _, g := range b.Genres {
			if g = strings.TrimSpace(g); g != "" {
				genreCounts[g]++
			}
		}
		for star, count := range b.RatingHistogram {
			s.StarRatings[star] += int64(count)
		}
		if b.Author != "" {
			authorCounts[b.Author]++
		}
		if b.Language != "" {
			languageCounts[b.Language]++
		}
		if b.PublishYear > 0 {
			decadeCounts[fmt.Sprintf("%d0s", b.PublishYear/10)]++
		}
		for _, w := range titleWords(b.Title) {
			wordCounts[w]++
		}
	}

	s.Rating = computeStats(ratings)
	s.Pages = computeStats(pages)
	s.TopGenres = rank(genreCounts, topN)
	s.TopAuthors = rank(authorCounts, topN)
	s.TopLanguages = rank(languageCounts, topN)
	s.TopTitleWords = rank(wordCounts, topN)

	s.Decades = rank(decadeCounts, len(decadeCounts))
	sort.Slice(s.Decades, func(i, j int) bool {
		return s.Decades[i].Name < s.Decades[j].Name
	})

	return s
}

func computeStats(values []float64) Stats {
	if len(values) == 0 {
		return Stats{}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	mean := sum / float64(len(sorted))

	variance := 0.0
	for _, v := range sorted {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(sorted))

	median := sorted[len(sorted)/2]
	if len(sorted)%2 == 0 {
		median = (sorted[len(sorted)/2-1] + sorted[len(sorted)/2]) / 2
	}

	return Stats{
		Count:  len(sorted),
		Mean:   mean,
		Median: median,
		StdDev: math.Sqrt(variance),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
	}
}

func rank(counts map[string]int, topN int) []NameCount {
	ranked := make([]NameCount, 0, len(counts))
	for name, count := range counts {
		ranked = append(ranked, NameCount{Name: name, Count: count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Name < ranked[j].Name
	})
	if len(ranked) > topN {
		ranked = ranked[:topN]
	}
	return ranked
}

var wordPattern = regexp.MustCompile(`[a-z]+`)

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "at": {}, "book": {}, "but": {},
	"by": {}, "for": {}, "from": {}, "in": {}, "is": {}, "it": {},
	"of": {}, "on": {}, "or": {}, "s": {}, "the": {}, "to": {},
	"vol": {}, "with": {},
}

// titleWords tokenizes a title, lowercased and stop-word filtered.
func titleWords(title string) []string {
	raw := wordPattern.FindAllString(strings.ToLower(title), -1)
	words := raw[:0]
	for _, w := range raw {
		if len(w) < 2 {
			continue
		}
		if _, skip := stopWords[w]; skip {
			continue
		}
		words = append(words, w)
	}
	return words
}
