// Package scraper drives the crawls: collector setup, rate limits, error
// classification, retries, and the page handlers for listings, book detail
// pages, and review listings.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gocolly/colly/v2"

	"readscrape/config"
	"readscrape/models"
)

// crawler is the shared core under BookScraper and ReviewScraper.
type crawler struct {
	cfg       *config.Config
	collector *colly.Collector
	retry     *retryManager
	Metrics   *Metrics

	requestCount int64
	pageCount    int64
	errorCount   int64

	mu           sync.Mutex
	failedURLs   []string
	errorsByType map[string]int

	handlersOnce sync.Once
}

func newCrawler(cfg *config.Config) (*crawler, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}

	collector := colly.NewCollector(
		colly.Async(true),
		colly.AllowedDomains(parsed.Host),
		colly.UserAgent(cfg.UserAgent),
	)

	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = !cfg.RespectRobotsTxt
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: cfg.Parallelism,
		Delay:       cfg.Delay,
		RandomDelay: cfg.RandomDelay,
	}); err != nil {
		return nil, fmt.Errorf("configure rate limits: %w", err)
	}

	c := &crawler{
		cfg:          cfg,
		collector:    collector,
		errorsByType: make(map[string]int),
		Metrics:      NewMetrics(),
	}
	c.retry = newRetryManager(cfg, c.Metrics)
	return c, nil
}

// installBaseHandlers wires the request/response/error bookkeeping that is
// common to both crawl modes.
func (c *crawler) installBaseHandlers() {
	c.collector.OnRequest(func(r *colly.Request) {
		r.Ctx.Put("start", time.Now())
		current := atomic.AddInt64(&c.requestCount, 1)
		c.Metrics.IncRequest("started")
		if current%50 == 0 {
			slog.Debug("crawler request progress",
				slog.Int64("requests", current),
				slog.Int64("pages", atomic.LoadInt64(&c.pageCount)),
				slog.String("url", r.URL.String()),
			)
		}
	})

	c.collector.OnResponse(func(r *colly.Response) {
		if r.StatusCode >= http.StatusBadRequest {
			slog.Error("non-200 response",
				slog.Int("status", r.StatusCode),
				slog.String("url", r.Request.URL.String()),
			)
		}
		if start, ok := r.Request.Ctx.GetAny("start").(time.Time); ok {
			c.Metrics.ObserveDuration(time.Since(start))
		}
	})

	c.collector.OnError(func(r *colly.Response, err error) {
		atomic.AddInt64(&c.errorCount, 1)
		statusCode := 0
		var req *colly.Request
		if r != nil {
			statusCode = r.StatusCode
			req = r.Request
		}

		wrapped := WrapError(err, statusCode)
		category := CategoryUnknown
		var crawlErr *CrawlError
		if errors.As(wrapped, &crawlErr) {
			category = crawlErr.Category
		}

		c.mu.Lock()
		c.errorsByType[string(category)]++
		c.mu.Unlock()

		failedURL := ""
		if req != nil && req.URL != nil {
			failedURL = req.URL.String()
		}
		slog.Error("request error",
			slog.String("url", failedURL),
			slog.String("category", string(category)),
			slog.Any("error", wrapped),
		)
		c.Metrics.IncError(category)

		if !c.retry.Schedule(req) {
			c.mu.Lock()
			c.failedURLs = append(c.failedURLs, failedURL)
			c.mu.Unlock()
		}
	})
}

// run performs the crawl skeleton: attach the context, fire the first
// visits, and wait for the collector and retry timers to drain.
func (c *crawler) run(ctx context.Context, visit func() error) (*models.CrawlResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	c.retry.SetContext(ctx)

	start := time.Now()
	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			c.collector.Wait()
			c.stopRetries()
		case <-done:
		}
	}()

	if err := visit(); err != nil {
		return nil, fmt.Errorf("initial visit: %w", err)
	}

	// Retries fire from timers after the collector drains, so keep
	// alternating until no backoff timer remains.
	c.collector.Wait()
	for c.retry.drain() {
		c.collector.Wait()
	}
	c.stopRetries()

	return &models.CrawlResult{
		StartTime:    start,
		EndTime:      time.Now(),
		ErrorCount:   int(atomic.LoadInt64(&c.errorCount)),
		FailedURLs:   c.snapshotFailedURLs(),
		ErrorsByType: c.snapshotErrors(),
		RetryCount:   c.retry.TotalRetries(),
		RequestCount: int(atomic.LoadInt64(&c.requestCount)),
		PageCount:    int(atomic.LoadInt64(&c.pageCount)),
	}, nil
}

// stopRetries cancels pending retry timers and records the URLs they
// would have re-fetched as failed.
func (c *crawler) stopRetries() {
	abandoned := c.retry.Stop()
	if len(abandoned) == 0 {
		return
	}
	c.mu.Lock()
	c.failedURLs = append(c.failedURLs, abandoned...)
	c.mu.Unlock()
}

func (c *crawler) snapshotFailedURLs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.failedURLs))
	copy(out, c.failedURLs)
	return out
}

func (c *crawler) snapshotErrors() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int, len(c.errorsByType))
	for k, v := range c.errorsByType {
		out[k] = v
	}
	return out
}
