package parser

import (
	"reflect"
	"testing"
	"time"

	"readscrape/models"
)

func TestValidateBook(t *testing.T) {
	tests := []struct {
		name    string
		book    *models.Book
		wantErr bool
	}{
		{
			name: "valid book",
			book: &models.Book{
				Title:     "The Fifth Season",
				Author:    "N.K. Jemisin",
				AvgRating: 4.3,
				URL:       "http://example.com/book/show/1",
				ScrapedAt: time.Now(),
			},
			wantErr: false,
		},
		{
			name: "missing title",
			book: &models.Book{
				Author: "N.K. Jemisin",
				URL:    "http://example.com/book/show/1",
			},
			wantErr: true,
		},
		{
			name: "missing detail link",
			book: &models.Book{
				Title:  "The Fifth Season",
				Author: "N.K. Jemisin",
			},
			wantErr: true,
		},
		{
			name:    "nil book",
			book:    nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBook(tt.book)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateBook() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateReview(t *testing.T) {
	tests := []struct {
		name    string
		review  *models.Review
		wantErr bool
	}{
		{
			name: "valid review",
			review: &models.Review{
				BookURL:  "http://example.com/book/show/1",
				Reviewer: "Alice",
				Rating:   5,
			},
			wantErr: false,
		},
		{
			name: "missing book link",
			review: &models.Review{
				Reviewer: "Alice",
			},
			wantErr: true,
		},
		{
			name: "missing reviewer",
			review: &models.Review{
				BookURL: "http://example.com/book/show/1",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateReview(tt.review)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateReview() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int
	}{
		{name: "plain number", input: "1234", expected: 1234},
		{name: "with separators", input: "1,234,567 ratings", expected: 1234567},
		{name: "surrounding text", input: "about 89 reviews", expected: 89},
		{name: "no number", input: "ratings", expected: 0},
		{name: "empty", input: "", expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseCount(tt.input); got != tt.expected {
				t.Errorf("ParseCount(%q) = %d, want %d", tt.input, got, tt.expected)
			}
		})
	}
}

func TestParseMiniRating(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantRating  float64
		wantRatings int
	}{
		{
			name:        "em dash",
			input:       "4.28 avg rating — 1,234,567 ratings",
			wantRating:  4.28,
			wantRatings: 1234567,
		},
		{
			name:        "hyphen",
			input:       "3.90 avg rating - 42 ratings",
			wantRating:  3.90,
			wantRatings: 42,
		},
		{
			name:        "singular",
			input:       "5.00 avg rating — 1 rating",
			wantRating:  5.00,
			wantRatings: 1,
		},
		{
			name:        "multiline whitespace",
			input:       "  4.10 avg rating —\n  987 ratings  ",
			wantRating:  4.10,
			wantRatings: 987,
		},
		{name: "garbage", input: "currently reading", wantRating: 0, wantRatings: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rating, ratings := ParseMiniRating(tt.input)
			if rating != tt.wantRating || ratings != tt.wantRatings {
				t.Errorf("ParseMiniRating(%q) = (%v, %d), want (%v, %d)",
					tt.input, rating, ratings, tt.wantRating, tt.wantRatings)
			}
		})
	}
}

func TestParseFirstPublished(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int
	}{
		{
			name:     "marker present",
			input:    "Published June 1st 2004 by Vintage (first published 1996)",
			expected: 1996,
		},
		{
			name:     "marker case insensitive",
			input:    "First published 1887",
			expected: 1887,
		},
		{
			name:     "fallback to publication year",
			input:    "Published March 2015 by Tor",
			expected: 2015,
		},
		{name: "no year", input: "Published by Tor", expected: 0},
		{name: "empty", input: "", expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseFirstPublished(tt.input); got != tt.expected {
				t.Errorf("ParseFirstPublished(%q) = %d, want %d", tt.input, got, tt.expected)
			}
		})
	}
}

func TestParsePageCount(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int
	}{
		{name: "pages suffix", input: "374 pages", expected: 374},
		{name: "with separator", input: "1,104 pages", expected: 1104},
		{name: "whitespace", input: "  212 pages  ", expected: 212},
		{name: "no number", input: "Hardcover", expected: 0},
		{name: "empty", input: "", expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParsePageCount(tt.input); got != tt.expected {
				t.Errorf("ParsePageCount(%q) = %d, want %d", tt.input, got, tt.expected)
			}
		})
	}
}

func TestStarPhraseToNumeric(t *testing.T) {
	tests := []struct {
		input    string
		expected int
	}{
		{input: "it was amazing", expected: 5},
		{input: "really liked it", expected: 4},
		{input: "liked it", expected: 3},
		{input: "it was ok", expected: 2},
		{input: "did not like it", expected: 1},
		{input: "It Was Amazing", expected: 5},
		{input: "  liked it  ", expected: 3},
		{input: "unrated", expected: 0},
		{input: "", expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := StarPhraseToNumeric(tt.input); got != tt.expected {
				t.Errorf("StarPhraseToNumeric(%q) = %d, want %d", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNormalizeList(t *testing.T) {
	got := NormalizeList([]string{" Fantasy ", "Fiction", "", "Fantasy", "Science Fiction\n"})
	want := []string{"Fantasy", "Fiction", "Science Fiction"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("NormalizeList() = %v, want %v", got, want)
	}
}

func TestParseRatingHistogram(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   [5]int
	}{
		{
			name:   "embedded chart call",
			script: "renderRatingGraph([6, 3, 2, 2, 1]);\nif ($('rating_details')) {\n  $('rating_details').insert({top: $('rating_graph')})\n}",
			want:   [5]int{1, 2, 2, 3, 6},
		},
		{
			name:   "no chart call",
			script: "var unrelated = [1, 2, 3];",
			want:   [5]int{},
		},
		{
			name:   "wrong arity",
			script: "renderRatingGraph([6, 3, 2]);",
			want:   [5]int{},
		},
		{
			name:   "empty",
			script: "",
			want:   [5]int{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseRatingHistogram(tt.script); got != tt.want {
				t.Errorf("ParseRatingHistogram() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseBookIdentifiers(t *testing.T) {
	if got := ParseISBN(" 0765342294 "); got != "0765342294" {
		t.Errorf("ParseISBN() = %q", got)
	}
	if got := ParseISBN("9780765342294"); got != "" {
		t.Errorf("ParseISBN() accepted 13 digits: %q", got)
	}
	if got := ParseISBN13("9780765342294"); got != "9780765342294" {
		t.Errorf("ParseISBN13() = %q", got)
	}
	if got := ParseISBN13("0765342294"); got != "" {
		t.Errorf("ParseISBN13() accepted 10 digits: %q", got)
	}
	if got := ParseASIN("B00A2RT7X2"); got != "B00A2RT7X2" {
		t.Errorf("ParseASIN() = %q", got)
	}
	if got := ParseASIN("0765342294"); got != "" {
		t.Errorf("ParseASIN() accepted a pure-digit ISBN: %q", got)
	}
	if got := ParseASIN("Paperback"); got != "" {
		t.Errorf("ParseASIN() accepted a short word: %q", got)
	}
}

func TestCleanText(t *testing.T) {
	if got := CleanText("  The \n  Fifth\tSeason "); got != "The Fifth Season" {
		t.Errorf("CleanText() = %q", got)
	}
}
