package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Category labels the failure classes surfaced by a crawl. The labels feed
// both the run summary and the Prometheus error counter.
type Category string

const (
	CategoryTimeout     Category = "timeout"
	CategoryConnection  Category = "connection"
	CategoryForbidden   Category = "forbidden"
	CategoryNotFound    Category = "not_found"
	CategoryRateLimited Category = "rate_limited"
	CategoryOther       Category = "other"
	CategoryUnknown     Category = "unknown"
)

// CrawlError wraps a transport or HTTP failure with its category.
type CrawlError struct {
	Category Category
	Err      error
}

func (e *CrawlError) Error() string {
	return fmt.Sprintf("%s: %v", e.Category, e.Err)
}

func (e *CrawlError) Unwrap() error {
	return e.Err
}

// Classify buckets an error and/or status code into a Category.
func Classify(err error, statusCode int) Category {
	if err == nil && statusCode == 0 {
		return CategoryUnknown
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return CategoryTimeout
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return CategoryConnection
	}

	switch statusCode {
	case http.StatusForbidden:
		return CategoryForbidden
	case http.StatusNotFound:
		return CategoryNotFound
	case http.StatusTooManyRequests:
		return CategoryRateLimited
	}

	if err == nil {
		return CategoryUnknown
	}
	return CategoryOther
}

// WrapError builds a CrawlError carrying the classification. A nil error
// with a failing status code still yields a descriptive error.
func WrapError(err error, statusCode int) error {
	category := Classify(err, statusCode)
	if err == nil {
		if statusCode == 0 {
			return nil
		}
		err = fmt.Errorf("http status %d", statusCode)
	}
	return &CrawlError{Category: category, Err: err}
}
