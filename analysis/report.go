package analysis

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// WriteMarkdown renders the summary as a Markdown report with tables and a
// genre distribution pie chart.
func WriteMarkdown(w io.Writer, s *Summary) error {
	md := markdown.NewMarkdown(w)

	writeHeader(md, s)
	writeRatings(md, s)
	writeGenres(md, s)
	writeAuthors(md, s)
	writeLanguages(md, s)
	writeDecades(md, s)
	writePages(md, s)
	writeTitleWords(md, s)

	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Generated %s*", time.Now().Format("2006-01-02 15:04:05 MST"))

	return md.Build()
}

func writeHeader(md *markdown.Markdown, s *Summary) {
	md.H1("Book Metadata Report")
	md.PlainText("")

	topic := s.Topic
	if topic == "" {
		topic = "-"
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Topic", "`" + topic + "`"},
			{"Books", strconv.Itoa(s.TotalBooks)},
			{"Skipped rows", strconv.Itoa(s.SkippedRows)},
			{"Ratings counted", strconv.FormatInt(s.TotalRatings, 10)},
			{"Reviews counted", strconv.FormatInt(s.TotalReviews, 10)},
		},
	})
	md.PlainText("")
}

func writeRatings(md *markdown.Markdown, s *Summary) {
	md.H2("Rating Distribution")
	md.PlainText("")

	if s.Rating.Count == 0 {
		md.PlainText("No rated books in the table.")
		md.PlainText("")
		return
	}

	md.Table(markdown.TableSet{
		Header: []string{"Statistic", "Value"},
		Rows: [][]string{
			{"Rated books", strconv.Itoa(s.Rating.Count)},
			{"Mean", fmt.Sprintf("%.2f", s.Rating.Mean)},
			{"Median", fmt.Sprintf("%.2f", s.Rating.Median)},
			{"Std dev", fmt.Sprintf("%.2f", s.Rating.StdDev)},
			{"Min", fmt.Sprintf("%.2f", s.Rating.Min)},
			{"Max", fmt.Sprintf("%.2f", s.Rating.Max)},
		},
	})
	md.PlainText("")

	// Exact per-star rating counts come from the detail pages; without them
	// the table falls back to bucketing books by rounded average.
	var totalStarRatings int64
	for _, count := range s.StarRatings {
		totalStarRatings += count
	}

	rows := make([][]string, 0, len(s.StarHistogram))
	if totalStarRatings > 0 {
		for star := len(s.StarRatings); star >= 1; star-- {
			count := s.StarRatings[star-1]
			rows = append(rows, []string{
				fmt.Sprintf("%d★", star),
				strconv.FormatInt(count, 10),
				histogramBar(count, totalStarRatings),
			})
		}
		md.Table(markdown.TableSet{
			Header: []string{"Stars", "Ratings", "Share"},
			Rows:   rows,
		})
	} else {
		for star := len(s.StarHistogram); star >= 1; star-- {
			count := s.StarHistogram[star-1]
			rows = append(rows, []string{
				fmt.Sprintf("%d★", star),
				strconv.Itoa(count),
				histogramBar(int64(count), int64(s.Rating.Count)),
			})
		}
		md.Table(markdown.TableSet{
			Header: []string{"Stars", "Books", "Share"},
			Rows:   rows,
		})
	}
	md.PlainText("")
}

// histogramBar renders a proportional block bar, 40 cells at full scale.
func histogramBar(count, total int64) string {
	if total == 0 {
		return ""
	}
	cells := int(count * 40 / total)
	if count > 0 && cells == 0 {
		cells = 1
	}
	return strings.Repeat("█", cells)
}

func writeGenres(md *markdown.Markdown, s *Summary) {
	md.H2("Genres")
	md.PlainText("")

	if len(s.TopGenres) == 0 {
		md.PlainText("No genre tags in the table.")
		md.PlainText("")
		return
	}

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Genre Share"),
		piechart.WithShowData(true),
	)
	for _, g := range s.TopGenres {
		chart.LabelAndIntValue(g.Name, uint64(g.Count))
	}
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Genre", "Books"},
		Rows:   nameCountRows(s.TopGenres),
	})
	md.PlainText("")
}

func writeAuthors(md *markdown.Markdown, s *Summary) {
	if len(s.TopAuthors) == 0 {
		return
	}
	md.H2("Most Listed Authors")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Author", "Books"},
		Rows:   nameCountRows(s.TopAuthors),
	})
	md.PlainText("")
}

func writeLanguages(md *markdown.Markdown, s *Summary) {
	if len(s.TopLanguages) == 0 {
		return
	}
	md.H2("Languages")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Language", "Books"},
		Rows:   nameCountRows(s.TopLanguages),
	})
	md.PlainText("")
}

func writeDecades(md *markdown.Markdown, s *Summary) {
	if len(s.Decades) == 0 {
		return
	}
	md.H2("Publication Decades")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Decade", "Books"},
		Rows:   nameCountRows(s.Decades),
	})
	md.PlainText("")
}

func writePages(md *markdown.Markdown, s *Summary) {
	if s.Pages.Count == 0 {
		return
	}
	md.H2("Page Counts")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Statistic", "Value"},
		Rows: [][]string{
			{"Books with page counts", strconv.Itoa(s.Pages.Count)},
			{"Mean", fmt.Sprintf("%.0f", s.Pages.Mean)},
			{"Median", fmt.Sprintf("%.0f", s.Pages.Median)},
			{"Min", fmt.Sprintf("%.0f", s.Pages.Min)},
			{"Max", fmt.Sprintf("%.0f", s.Pages.Max)},
		},
	})
	md.PlainText("")
}

func writeTitleWords(md *markdown.Markdown, s *Summary) {
	if len(s.TopTitleWords) == 0 {
		return
	}
	md.H2("Title Word Frequencies")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Word", "Occurrences"},
		Rows:   nameCountRows(s.TopTitleWords),
	})
	md.PlainText("")
}

func nameCountRows(items []NameCount) [][]string {
	rows := make([][]string, len(items))
	for i, item := range items {
		rows[i] = []string{item.Name, strconv.Itoa(item.Count)}
	}
	return rows
}
