// Package fetch is the single point of outbound I/O. It issues plain GET
// requests through a Colly collector, bounded by a global in-flight cap and a
// minimum inter-request delay per remote host. It performs no retries; retry
// policy belongs to the caller.
package fetch

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gocolly/colly/v2"
)

// Config controls collector and politeness behavior.
type Config struct {
	UserAgent   string
	Timeout     time.Duration
	Parallelism int
	Delay       time.Duration
}

// Client fetches listing pages, detail pages and binary PDFs.
type Client struct {
	cfg     Config
	base    *colly.Collector
	limiter *hostLimiter
	slots   chan struct{}
}

// New builds a Client. Parallelism defaults to 2 and the timeout to 15s;
// the per-host delay has no default because removing it is never correct
// against a shared public source, so a zero delay must be an explicit choice.
func New(cfg Config) *Client {
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 2
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	base := colly.NewCollector(colly.Async(false))
	base.WithTransport(newHTTPTransport())
	return &Client{
		cfg:     cfg,
		base:    base,
		limiter: newHostLimiter(cfg.Delay),
		slots:   make(chan struct{}, cfg.Parallelism),
	}
}

// FetchText fetches a URL and returns its body as a string.
func (c *Client) FetchText(ctx context.Context, rawURL string) (string, error) {
	body, err := c.fetch(ctx, rawURL)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// FetchBinary fetches a URL and returns its raw bytes (PDF documents).
func (c *Client) FetchBinary(ctx context.Context, rawURL string) ([]byte, error) {
	return c.fetch(ctx, rawURL)
}

func (c *Client) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if err := c.acquire(ctx); err != nil {
		return nil, err
	}
	defer c.release()

	if err := c.limiter.Wait(ctx, rawURL); err != nil {
		return nil, err
	}

	collector := c.base.Clone()
	if c.cfg.UserAgent != "" {
		collector.UserAgent = c.cfg.UserAgent
	}
	collector.SetRequestTimeout(c.cfg.Timeout)
	collector.CheckHead = false

	var (
		body     []byte
		status   int
		fetchErr error
	)
	collector.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		fetchErr = err
	})

	if err := c.runVisit(ctx, collector, rawURL); err != nil {
		return nil, err
	}
	if fetchErr != nil {
		return nil, fmt.Errorf("fetch %s: status %d: %w", rawURL, status, fetchErr)
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", rawURL, status)
	}
	return body, nil
}

// runVisit races the blocking Visit call against ctx so a canceled crawl
// does not hang on a slow remote.
func (c *Client) runVisit(ctx context.Context, collector *colly.Collector, rawURL string) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(rawURL)
	}()
	select {
	case <-ctx.Done():
		return fmt.Errorf("fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("visit %s: %w", rawURL, err)
		}
		return nil
	}
}

func (c *Client) acquire(ctx context.Context) error {
	select {
	case c.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("fetch slot wait: %w", ctx.Err())
	}
}

func (c *Client) release() {
	<-c.slots
}

// Host extracts the hostname of a raw URL for logging and metrics.
func Host(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "unknown"
	}
	return u.Hostname()
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
