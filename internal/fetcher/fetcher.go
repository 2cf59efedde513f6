// Package fetcher retrieves one JSON document per geographic code from the
// rate-limited INSEE APIs. A code that cannot be fetched yields nil instead of
// failing the whole batch.
package fetcher

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/medlin-app/medlin/internal/config"
	"github.com/medlin-app/medlin/internal/resilience"
)

// Placeholder is replaced by each code in a URL template.
const Placeholder = "{code}"

// Policy selects how the requests of a batch are scheduled.
type Policy string

const (
	// Concurrent issues every request at once, optionally bounded.
	Concurrent Policy = "concurrent"
	// Serial issues one request at a time with a fixed pause between them.
	Serial Policy = "serial"
)

// Cache stores response bodies by URL. Implementations decide expiry.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, body []byte) error
}

// Options configures a Fetcher.
type Options struct {
	Token          string
	UserAgent      string
	Timeout        time.Duration
	Policy         Policy
	SerialPause    time.Duration
	MaxConcurrency int
	Retry          resilience.RetryConfig
	Cache          Cache
	Service        string
}

// Fetcher fans requests out over a batch of codes.
type Fetcher struct {
	client  *Client
	policy  Policy
	limit   int
	pause   *rate.Limiter
	retry   resilience.RetryConfig
	cache   Cache
	service string
	// statusBodies answers these statuses with a fixed body.
	statusBodies map[int][]byte
}

// New creates a Fetcher. An unknown policy falls back to Concurrent.
func New(opts Options) *Fetcher {
	if opts.Policy != Serial {
		opts.Policy = Concurrent
	}
	if opts.Service == "" {
		opts.Service = "insee"
	}
	limit := rate.Inf
	if opts.SerialPause > 0 {
		limit = rate.Every(opts.SerialPause)
	}
	return &Fetcher{
		client: NewClient(ClientOptions{
			Token:     opts.Token,
			UserAgent: opts.UserAgent,
			Timeout:   opts.Timeout,
		}),
		policy:  opts.Policy,
		limit:   opts.MaxConcurrency,
		pause:   rate.NewLimiter(limit, 1),
		retry:   opts.Retry,
		cache:   opts.Cache,
		service: opts.Service,
	}
}

// FromConfig builds the INSEE fetcher described by cfg. cache may be nil.
func FromConfig(cfg *config.Config, cache Cache) *Fetcher {
	return New(Options{
		Token:          cfg.Insee.Token,
		Timeout:        cfg.Fetch.Timeout(),
		Policy:         Policy(cfg.Fetch.Policy),
		SerialPause:    cfg.Fetch.SerialPause(),
		MaxConcurrency: cfg.Fetch.MaxConcurrency,
		Retry: resilience.FromRetryConfig(
			cfg.Fetch.MaxAttempts,
			cfg.Fetch.InitialBackoffMs,
			cfg.Fetch.MaxBackoffMs,
			cfg.Fetch.Multiplier,
		),
		Cache: cache,
	})
}

// Anonymous returns a copy that sends no credential, for public endpoints.
// The copy shares the pacing limiter and the cache.
func (f *Fetcher) Anonymous(service string) *Fetcher {
	cp := *f
	cp.client = f.client.withToken("")
	cp.service = service
	return &cp
}

// WithStatusBody returns a copy that answers body when the upstream responds
// with status, for APIs that report an empty result as an error status.
// Such answers are not cached.
func (f *Fetcher) WithStatusBody(status int, body []byte) *Fetcher {
	cp := *f
	cp.statusBodies = make(map[int][]byte, len(f.statusBodies)+1)
	for k, v := range f.statusBodies {
		cp.statusBodies[k] = v
	}
	cp.statusBodies[status] = body
	return &cp
}

// Policy returns the scheduling policy.
func (f *Fetcher) Policy() Policy {
	return f.policy
}

// FetchAll requests urlTemplate once per code, with {code} substituted.
// The result has one slot per code in input order; a slot is nil when the
// request failed for good. FetchAll waits for every request to settle.
func (f *Fetcher) FetchAll(ctx context.Context, codes []string, urlTemplate string) [][]byte {
	return f.FetchFunc(ctx, codes, func(code string) string {
		return Expand(urlTemplate, code)
	})
}

// FetchFunc is FetchAll with the URL of each code built by urlFor.
func (f *Fetcher) FetchFunc(ctx context.Context, codes []string, urlFor func(code string) string) [][]byte {
	urls := make([]string, len(codes))
	for i, code := range codes {
		urls[i] = urlFor(code)
	}
	return f.fetchURLs(ctx, codes, urls)
}

// FetchURLs requests each URL and returns the bodies in input order.
func (f *Fetcher) FetchURLs(ctx context.Context, urls []string) [][]byte {
	return f.fetchURLs(ctx, urls, urls)
}

func (f *Fetcher) fetchURLs(ctx context.Context, codes, urls []string) [][]byte {
	results := make([][]byte, len(urls))
	if f.policy == Serial {
		for i := range urls {
			if err := f.pause.Wait(ctx); err != nil {
				zap.L().Warn("fetch: batch cancelled",
					zap.String("service", f.service),
					zap.Int("remaining", len(urls)-i),
					zap.Error(err),
				)
				break
			}
			results[i] = f.fetchOne(ctx, codes[i], urls[i])
		}
		return results
	}

	var g errgroup.Group
	if f.limit > 0 {
		g.SetLimit(f.limit)
	}
	for i := range urls {
		g.Go(func() error {
			results[i] = f.fetchOne(ctx, codes[i], urls[i])
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// fetchOne never returns an error: failures are logged and become nil.
func (f *Fetcher) fetchOne(ctx context.Context, code, url string) []byte {
	log := zap.L().With(
		zap.String("service", f.service),
		zap.String("code", code),
	)

	if f.cache != nil {
		body, ok, err := f.cache.Get(ctx, url)
		if err != nil {
			log.Warn("fetch: cache read failed", zap.Error(err))
		} else if ok {
			log.Debug("fetch: cache hit")
			return body
		}
	}

	retry := f.retry
	retry.OnRetry = resilience.RetryLogger(f.service, code)
	body, err := resilience.DoVal(ctx, retry, func(ctx context.Context) ([]byte, error) {
		return f.client.Get(ctx, url)
	})
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) {
			if alt, ok := f.statusBodies[se.StatusCode]; ok {
				log.Debug("fetch: status mapped to empty result", zap.Int("status", se.StatusCode))
				return alt
			}
		}
		log.Error("fetch: giving up on code",
			zap.String("url", url),
			zap.Bool("exhausted", resilience.IsExhausted(err)),
			zap.Error(err),
		)
		return nil
	}

	if f.cache != nil {
		if err := f.cache.Set(ctx, url, body); err != nil {
			log.Warn("fetch: cache write failed", zap.Error(err))
		}
	}
	return body
}

// Expand substitutes code into a URL template.
func Expand(urlTemplate, code string) string {
	return strings.ReplaceAll(urlTemplate, Placeholder, code)
}
