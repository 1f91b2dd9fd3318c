package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"readscrape/models"
)

// ValidateBook ensures the crawler captured the required fields.
func ValidateBook(b *models.Book) error {
	if b == nil {
		return fmt.Errorf("book is nil")
	}
	if strings.TrimSpace(b.Title) == "" {
		return fmt.Errorf("book missing title")
	}
	if strings.TrimSpace(b.URL) == "" {
		return fmt.Errorf("book missing detail link for %s", b.Title)
	}
	return nil
}

// ValidateReview ensures a review row is attributable to a book.
func ValidateReview(r *models.Review) error {
	if r == nil {
		return fmt.Errorf("review is nil")
	}
	if strings.TrimSpace(r.BookURL) == "" {
		return fmt.Errorf("review missing book link")
	}
	if strings.TrimSpace(r.Reviewer) == "" {
		return fmt.Errorf("review missing reviewer for %s", r.BookURL)
	}
	return nil
}

// CleanText collapses runs of whitespace into single spaces and trims.
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var numberPattern = regexp.MustCompile(`\d+`)

// ParseCount extracts the first integer from text such as
// "1,234,567 ratings". Returns 0 when no number is present.
func ParseCount(text string) int {
	match := numberPattern.FindString(strings.ReplaceAll(text, ",", ""))
	if match == "" {
		return 0
	}
	n, err := strconv.Atoi(match)
	if err != nil {
		return 0
	}
	return n
}

var ratingPattern = regexp.MustCompile(`\d\.\d+`)

// ParseAvgRating extracts a decimal rating such as "4.28" from text.
func ParseAvgRating(text string) float64 {
	match := ratingPattern.FindString(text)
	if match == "" {
		return 0
	}
	rating, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0
	}
	return rating
}

var miniRatingPattern = regexp.MustCompile(`(\d\.\d+)\s+avg rating\s*[—-]+\s*([\d,]+)\s+ratings?`)

// ParseMiniRating splits the listing-row rating text, e.g.
// "4.28 avg rating — 1,234,567 ratings", into its two numbers.
func ParseMiniRating(text string) (float64, int) {
	matches := miniRatingPattern.FindStringSubmatch(CleanText(text))
	if len(matches) < 3 {
		return 0, 0
	}
	return ParseAvgRating(matches[1]), ParseCount(matches[2])
}

var (
	firstPublishedPattern = regexp.MustCompile(`(?i)first published.*?(\d{4})`)
	yearPattern           = regexp.MustCompile(`\b(1[5-9]\d{2}|20\d{2})\b`)
)

// ParseFirstPublished extracts the original publication year from detail
// text such as "Published June 1st 2004 (first published 1996)". Falls back
// to the first four-digit year when the marker is absent.
func ParseFirstPublished(text string) int {
	text = CleanText(text)
	if matches := firstPublishedPattern.FindStringSubmatch(text); len(matches) == 2 {
		year, _ := strconv.Atoi(matches[1])
		return year
	}
	if match := yearPattern.FindString(text); match != "" {
		year, _ := strconv.Atoi(match)
		return year
	}
	return 0
}

// ParsePageCount extracts the leading number from "374 pages".
func ParsePageCount(text string) int {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 {
		return 0
	}
	n, err := strconv.Atoi(strings.ReplaceAll(fields[0], ",", ""))
	if err != nil {
		return 0
	}
	return n
}

// StarPhraseToNumeric maps the site's rating phrases to the 1-5 scale.
func StarPhraseToNumeric(phrase string) int {
	switch strings.ToLower(CleanText(phrase)) {
	case "it was amazing":
		return 5
	case "really liked it":
		return 4
	case "liked it":
		return 3
	case "it was ok":
		return 2
	case "did not like it":
		return 1
	default:
		return 0
	}
}

// NormalizeList trims, de-duplicates, and drops empty tags while keeping
// first-seen order. Used for genre and award lists.
func NormalizeList(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = CleanText(item)
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}

var ratingGraphPattern = regexp.MustCompile(`renderRatingGraph\(\[([\d,\s]+)\]`)

// ParseRatingHistogram extracts per-star rating counts from the embedded
// chart call "renderRatingGraph([5star, 4star, 3star, 2star, 1star])".
// The returned array is ordered 1-star first; all zeros when absent.
func ParseRatingHistogram(script string) [5]int {
	var histogram [5]int
	matches := ratingGraphPattern.FindStringSubmatch(script)
	if len(matches) < 2 {
		return histogram
	}
	parts := strings.Split(matches[1], ",")
	if len(parts) != 5 {
		return histogram
	}
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return [5]int{}
		}
		histogram[4-i] = n
	}
	return histogram
}

// ParseISBN keeps a 10-digit ISBN and discards anything else.
func ParseISBN(text string) string {
	text = CleanText(text)
	if len(text) == 10 && isDigits(text) {
		return text
	}
	return ""
}

// ParseISBN13 keeps a 13-digit ISBN and discards anything else.
func ParseISBN13(text string) string {
	text = CleanText(text)
	if len(text) == 13 && isDigits(text) {
		return text
	}
	return ""
}

// ParseASIN keeps a 10-character Amazon identifier. Pure digit strings are
// ISBNs, not ASINs.
func ParseASIN(text string) string {
	text = CleanText(text)
	if len(text) == 10 && !isDigits(text) {
		return text
	}
	return ""
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
