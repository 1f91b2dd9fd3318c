package scraper

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"

	"readscrape/config"
)

// retryManager re-queues failed requests with capped exponential backoff.
// Each URL gets at most cfg.MaxRetries attempts per run. Re-fetching goes
// through Request.Retry, which bypasses the collector's visited store.
type retryManager struct {
	cfg     *config.Config
	metrics *Metrics
	ctx     context.Context

	mu           sync.Mutex
	attempts     map[string]int
	timers       map[string]*time.Timer
	totalRetries int
	stopped      bool
}

func newRetryManager(cfg *config.Config, metrics *Metrics) *retryManager {
	return &retryManager{
		cfg:      cfg,
		attempts: make(map[string]int),
		timers:   make(map[string]*time.Timer),
		metrics:  metrics,
		ctx:      context.Background(),
	}
}

// Schedule queues another attempt for the failed request. It reports false
// when the URL has exhausted its attempts or the manager is shutting down.
func (rm *retryManager) Schedule(req *colly.Request) bool {
	if req == nil || req.URL == nil {
		return false
	}
	url := req.URL.String()
	if rm.cfg.MaxRetries == 0 || url == "" {
		return false
	}

	rm.mu.Lock()

	if rm.stopped {
		rm.mu.Unlock()
		return false
	}
	if rm.ctx != nil && rm.ctx.Err() != nil {
		rm.mu.Unlock()
		return false
	}

	attempt := rm.attempts[url]
	if attempt >= rm.cfg.MaxRetries {
		rm.mu.Unlock()
		return false
	}

	attempt++
	rm.attempts[url] = attempt
	rm.totalRetries++
	rm.metrics.IncRetries()

	delay := rm.backoff(attempt)
	rm.resetTimerLocked(url)
	rm.timers[url] = time.AfterFunc(delay, func() {
		rm.fireRetry(url, req)
	})
	rm.mu.Unlock()
	return true
}

func (rm *retryManager) backoff(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}

	base := rm.cfg.RetryBackoff
	if base <= 0 {
		base = 100 * time.Millisecond
	}

	delay := base * time.Duration(1<<(attempt-1))
	if max := rm.cfg.RetryBackoffMax; max > 0 && delay > max {
		delay = max
	}
	return delay
}

func (rm *retryManager) resetTimerLocked(url string) {
	if timer, ok := rm.timers[url]; ok {
		timer.Stop()
		delete(rm.timers, url)
	}
}

func (rm *retryManager) fireRetry(url string, req *colly.Request) {
	// The timer entry must outlive the Retry call so drain keeps the run
	// alive until the re-fetch is registered with the collector.
	defer func() {
		rm.mu.Lock()
		delete(rm.timers, url)
		rm.mu.Unlock()
	}()

	rm.mu.Lock()
	stopped := rm.stopped
	ctx := rm.ctx
	rm.mu.Unlock()

	if stopped {
		return
	}
	if ctx != nil && ctx.Err() != nil {
		return
	}
	if err := req.Retry(); err != nil {
		slog.Debug("retry visit failed", slog.String("url", url), slog.Any("error", err))
	}
}

// drain blocks until every scheduled retry has fired or the manager is
// stopped. It reports whether any retry was pending when called, so the
// caller knows to wait on the collector again.
func (rm *retryManager) drain() bool {
	waited := false
	for {
		rm.mu.Lock()
		pending := len(rm.timers)
		stopped := rm.stopped
		rm.mu.Unlock()

		if pending == 0 || stopped {
			return waited
		}
		waited = true
		time.Sleep(5 * time.Millisecond)
	}
}

// Stop cancels all pending retry timers and returns the URLs whose retries
// were abandoned, so the caller can record them as failed.
func (rm *retryManager) Stop() []string {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.stopped {
		return nil
	}

	rm.stopped = true
	abandoned := make([]string, 0, len(rm.timers))
	for url, timer := range rm.timers {
		if timer.Stop() {
			abandoned = append(abandoned, url)
		}
		delete(rm.timers, url)
	}
	return abandoned
}

// TotalRetries reports how many retry attempts were scheduled.
func (rm *retryManager) TotalRetries() int {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.totalRetries
}

// SetContext attaches the run context so pending retries stop on cancel.
func (rm *retryManager) SetContext(ctx context.Context) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if ctx == nil {
		rm.ctx = context.Background()
		return
	}
	rm.ctx = ctx
}
