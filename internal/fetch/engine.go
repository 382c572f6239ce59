// Package fetch implements the fetch-and-extract engine: one bounded HTTP
// fetch per call, parsed into a seo.MetricsBundle. The engine is stateless
// and safe for concurrent use by multiple workers.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/rankrocket/rankrocket-crawler/internal/seo"
)

// Config controls collector behavior.
type Config struct {
	UserAgent    string
	Timeout      time.Duration
	MaxBodyBytes int
}

// Engine fetches pages with a Colly collector and extracts SEO metrics.
type Engine struct {
	cfg           Config
	transport     http.RoundTripper
	baseCollector *colly.Collector
}

// New builds an Engine.
func New(cfg Config) *Engine {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true
	if cfg.MaxBodyBytes > 0 {
		c.MaxBodySize = cfg.MaxBodyBytes
	}

	transport := newHTTPTransport()
	c.WithTransport(transport)

	return &Engine{
		cfg:           cfg,
		transport:     transport,
		baseCollector: c,
	}
}

type fetchResult struct {
	url        string
	statusCode int
	body       []byte
	duration   time.Duration
}

// Crawl performs one GET of url and derives the metrics bundle. The raw body
// is returned alongside for snapshotting. Failures surface as *seo.FetchError
// and are never retried here; retries are a scheduling concern.
func (e *Engine) Crawl(ctx context.Context, url string) (seo.MetricsBundle, []byte, error) {
	if err := seo.ValidateURL(url); err != nil {
		return seo.MetricsBundle{}, nil, err
	}

	res, err := e.fetch(ctx, url)
	if err != nil {
		return seo.MetricsBundle{}, nil, err
	}

	bundle, err := Extract(res.url, res.body)
	if err != nil {
		return seo.MetricsBundle{}, nil, &seo.FetchError{Kind: seo.FetchParse, URL: url, Err: err}
	}
	bundle.PageBytes = len(res.body)
	bundle.FetchDuration = res.duration
	bundle.StatusCode = res.statusCode
	return bundle, res.body, nil
}

func (e *Engine) fetch(ctx context.Context, url string) (fetchResult, error) {
	var (
		result     fetchResult
		hookErr    error
		hookStatus int
	)
	start := time.Now()

	collector := e.baseCollector.Clone()
	if e.cfg.UserAgent != "" {
		collector.UserAgent = e.cfg.UserAgent
	}
	collector.IgnoreRobotsTxt = true
	collector.SetRequestTimeout(e.cfg.Timeout)
	collector.WithTransport(e.transport)

	collector.OnResponse(func(r *colly.Response) {
		result = fetchResult{
			url:        r.Request.URL.String(),
			statusCode: r.StatusCode,
			body:       append([]byte(nil), r.Body...),
			duration:   time.Since(start),
		}
	})
	collector.OnError(func(r *colly.Response, err error) {
		hookErr = err
		if r != nil {
			hookStatus = r.StatusCode
		}
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fetchResult{}, &seo.FetchError{Kind: seo.FetchTimeout, URL: url, Err: ctx.Err()}
	case visitErr := <-done:
		if hookErr != nil {
			return fetchResult{}, classify(url, hookStatus, hookErr)
		}
		if visitErr != nil {
			return fetchResult{}, classify(url, 0, fmt.Errorf("visit: %w", visitErr))
		}
		return result, nil
	}
}

// classify maps transport failures onto the fetch error taxonomy.
func classify(url string, status int, err error) *seo.FetchError {
	if status >= 400 {
		return &seo.FetchError{Kind: seo.FetchHTTPStatus, URL: url, StatusCode: status, Err: err}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &seo.FetchError{Kind: seo.FetchDNS, URL: url, Err: err}
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &seo.FetchError{Kind: seo.FetchTimeout, URL: url, Err: err}
	}

	return &seo.FetchError{Kind: seo.FetchNetwork, URL: url, Err: err}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
