// Package pagination provides windowed batch fetching for paginated results endpoints
package pagination

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Config holds batch fetcher configuration
type Config struct {
	// PageSize is the limit sent with every page request
	PageSize int
	// Concurrency is the number of requests in flight per window
	Concurrency int
	// Stagger delays request i of a window by i*Stagger
	Stagger time.Duration
	// MaxStagger caps the adaptive stagger after failed windows
	MaxStagger time.Duration
	// Timeout per page fetch
	Timeout time.Duration
	// Adaptive widens the stagger after partial failures and narrows it on success
	Adaptive bool
}

// DefaultConfig returns safe default configuration for the results API
func DefaultConfig() Config {
	return Config{
		PageSize:    100,
		Concurrency: 3,
		Stagger:     100 * time.Millisecond,
		MaxStagger:  2 * time.Second,
		Timeout:     15 * time.Second,
		Adaptive:    true,
	}
}

// Page is one page of a paginated collection
type Page[T any] struct {
	Items  []T
	Total  int
	Limit  int
	Offset int
}

// PageFunc fetches a single page of a collection
type PageFunc[T any] func(ctx context.Context, limit, offset int) (Page[T], error)

// Pacer tracks the stagger shared by fetchers hitting the same upstream.
// Safe for concurrent use.
type Pacer struct {
	mu      sync.Mutex
	base    time.Duration
	max     time.Duration
	current time.Duration
}

// NewPacer creates a pacer starting at the base stagger
func NewPacer(base, max time.Duration) *Pacer {
	if max < base {
		max = base
	}
	return &Pacer{base: base, max: max, current: base}
}

// Current returns the stagger in effect
func (p *Pacer) Current() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Backoff doubles the stagger up to the cap
func (p *Pacer) Backoff() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	next := p.current * 2
	if next == 0 {
		next = 50 * time.Millisecond
	}
	if next > p.max {
		next = p.max
	}
	p.current = next
	return p.current
}

// Recover halves the stagger back toward the base
func (p *Pacer) Recover() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	next := p.current / 2
	if next < p.base {
		next = p.base
	}
	p.current = next
	return p.current
}

// BatchFetcher retrieves an entire paginated resource in bounded windows
type BatchFetcher[T any] struct {
	config Config
	pacer  *Pacer
	logger *logrus.Entry
}

// NewBatchFetcher creates a new batch fetcher. A nil pacer gets a private one.
func NewBatchFetcher[T any](config Config, pacer *Pacer, logger *logrus.Entry) *BatchFetcher[T] {
	defaults := DefaultConfig()
	if config.PageSize <= 0 {
		config.PageSize = defaults.PageSize
	}
	if config.Concurrency <= 0 {
		config.Concurrency = defaults.Concurrency
	}
	if config.Stagger < 0 {
		config.Stagger = 0
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if pacer == nil {
		pacer = NewPacer(config.Stagger, config.MaxStagger)
	}
	if logger == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		logger = logrus.NewEntry(l)
	}

	return &BatchFetcher[T]{
		config: config,
		pacer:  pacer,
		logger: logger.WithField("component", "batch_fetcher"),
	}
}

// Offsets returns the page offsets needed to cover total items
func Offsets(total, pageSize int) []int {
	if total <= 0 || pageSize <= 0 {
		return nil
	}
	pages := (total + pageSize - 1) / pageSize
	offsets := make([]int, pages)
	for i := range offsets {
		offsets[i] = i * pageSize
	}
	return offsets
}

// FetchAll fetches every page of a resource. A single probe (limit=1)
// determines the total; pages are then requested in windows of
// Concurrency, each window awaited before the next starts. Items are
// concatenated in offset order.
//
// Any failed request aborts its window and returns a *PartialBatchError;
// no items are returned in that case.
func (bf *BatchFetcher[T]) FetchAll(ctx context.Context, resource string, fetch PageFunc[T]) ([]T, error) {
	start := time.Now()

	probeCtx, cancel := context.WithTimeout(ctx, bf.config.Timeout)
	probe, err := fetch(probeCtx, 1, 0)
	cancel()
	if err != nil {
		return nil, &PartialBatchError{Resource: resource, Failed: []int{0}, Err: fmt.Errorf("probe: %w", err)}
	}

	offsets := Offsets(probe.Total, bf.config.PageSize)
	if len(offsets) == 0 {
		return []T{}, nil
	}

	bf.logger.WithFields(logrus.Fields{
		"resource":    resource,
		"total":       probe.Total,
		"pages":       len(offsets),
		"concurrency": bf.config.Concurrency,
	}).Debug("Starting windowed page fetch")

	items := make([]T, 0, probe.Total)
	succeeded := make([]int, 0, len(offsets))

	for w := 0; w < len(offsets); w += bf.config.Concurrency {
		end := w + bf.config.Concurrency
		if end > len(offsets) {
			end = len(offsets)
		}
		window := offsets[w:end]

		pages, ok, err := bf.fetchWindow(ctx, window, fetch)
		succeeded = append(succeeded, ok...)
		if err != nil {
			failed := make([]int, 0, len(window))
			done := make(map[int]bool, len(ok))
			for _, off := range ok {
				done[off] = true
			}
			for _, off := range window {
				if !done[off] {
					failed = append(failed, off)
				}
			}
			if bf.config.Adaptive {
				stagger := bf.pacer.Backoff()
				bf.logger.WithField("stagger", stagger).Debug("Widened stagger after failed window")
			}
			bf.logger.WithError(err).WithFields(logrus.Fields{
				"resource":  resource,
				"succeeded": len(succeeded),
				"pages":     len(offsets),
			}).Warn("Page window failed")
			sort.Ints(succeeded)
			return nil, &PartialBatchError{Resource: resource, Succeeded: succeeded, Failed: failed, Err: err}
		}
		for _, p := range pages {
			items = append(items, p.Items...)
		}
	}

	if bf.config.Adaptive {
		bf.pacer.Recover()
	}

	bf.logger.WithFields(logrus.Fields{
		"resource": resource,
		"pages":    len(offsets),
		"items":    len(items),
		"duration": time.Since(start),
	}).Debug("Fetch complete")

	return items, nil
}

// fetchWindow issues one request per offset concurrently and waits for all
// of them. The first failure cancels the rest of the window.
func (bf *BatchFetcher[T]) fetchWindow(ctx context.Context, window []int, fetch PageFunc[T]) ([]Page[T], []int, error) {
	g, gctx := errgroup.WithContext(ctx)
	stagger := bf.pacer.Current()

	pages := make([]Page[T], len(window))
	var mu sync.Mutex
	ok := make([]int, 0, len(window))

	for i, offset := range window {
		i, offset := i, offset
		g.Go(func() error {
			if delay := time.Duration(i) * stagger; delay > 0 {
				timer := time.NewTimer(delay)
				select {
				case <-gctx.Done():
					timer.Stop()
					return gctx.Err()
				case <-timer.C:
				}
			}

			pageCtx, cancel := context.WithTimeout(gctx, bf.config.Timeout)
			defer cancel()

			page, err := fetch(pageCtx, bf.config.PageSize, offset)
			if err != nil {
				return fmt.Errorf("offset %d: %w", offset, err)
			}
			pages[i] = page

			mu.Lock()
			ok = append(ok, offset)
			mu.Unlock()
			return nil
		})
	}

	err := g.Wait()
	return pages, ok, err
}
