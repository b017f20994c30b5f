package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"golang.org/x/time/rate"
)

// Fetcher performs single-attempt HTTP GETs for feeds and pages.
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	timeout    time.Duration
	limiter    *HostRateLimiter
	robots     *robotsCache
}

type FetcherOption func(*Fetcher)

// WithHostInterval spaces requests to the same host at least interval apart.
func WithHostInterval(interval time.Duration) FetcherOption {
	return func(f *Fetcher) {
		if interval > 0 {
			f.limiter = NewHostRateLimiter(interval)
		}
	}
}

// WithRobots makes page fetches honor robots.txt for the fetcher's user agent.
func WithRobots() FetcherOption {
	return func(f *Fetcher) {
		f.robots = &robotsCache{hosts: make(map[string]*robotstxt.RobotsData)}
	}
}

func NewFetcher(httpClient *http.Client, userAgent string, timeout time.Duration, opts ...FetcherOption) *Fetcher {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	f := &Fetcher{
		httpClient: httpClient,
		userAgent:  userAgent,
		timeout:    timeout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Get fetches rawURL. A zero timeout uses the fetcher default.
func (f *Fetcher) Get(ctx context.Context, rawURL string, timeout time.Duration) ([]byte, error) {
	data, _, err := f.get(ctx, rawURL, timeout)
	return data, err
}

// GetHTML fetches rawURL and rejects responses that are not HTML.
func (f *Fetcher) GetHTML(ctx context.Context, rawURL string, timeout time.Duration) ([]byte, error) {
	if f.robots != nil {
		allowed, err := f.robotsAllowed(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, fmt.Errorf("blocked by robots.txt: %s", rawURL)
		}
	}

	data, contentType, err := f.get(ctx, rawURL, timeout)
	if err != nil {
		return nil, err
	}

	if contentType != "" && !strings.Contains(strings.ToLower(contentType), "html") {
		return nil, fmt.Errorf("content type is not HTML: %s", contentType)
	}

	return data, nil
}

func (f *Fetcher) get(ctx context.Context, rawURL string, timeout time.Duration) ([]byte, string, error) {
	if timeout <= 0 {
		timeout = f.timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if f.limiter != nil {
		if err := f.limiter.WaitForHost(ctx, rawURL); err != nil {
			return nil, "", fmt.Errorf("rate limiting failed: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read response body: %w", err)
	}

	return data, resp.Header.Get("Content-Type"), nil
}

type robotsCache struct {
	mu    sync.Mutex
	hosts map[string]*robotstxt.RobotsData
}

func (f *Fetcher) robotsAllowed(ctx context.Context, rawURL string) (bool, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false, fmt.Errorf("failed to parse URL: %w", err)
	}

	key := u.Scheme + "://" + u.Host

	f.robots.mu.Lock()
	robots, ok := f.robots.hosts[key]
	f.robots.mu.Unlock()

	if !ok {
		robots = f.fetchRobots(ctx, key)

		f.robots.mu.Lock()
		f.robots.hosts[key] = robots
		f.robots.mu.Unlock()
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return robots.TestAgent(path, f.userAgent), nil
}

// fetchRobots treats an unreachable robots.txt as allow-all.
func (f *Fetcher) fetchRobots(ctx context.Context, origin string) *robotstxt.RobotsData {
	robotsURL := origin + "/robots.txt"

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, "GET", robotsURL, nil)
	if err == nil {
		req.Header.Set("User-Agent", f.userAgent)

		var resp *http.Response
		resp, err = f.httpClient.Do(req)
		if err == nil {
			defer resp.Body.Close()

			robots, parseErr := robotstxt.FromResponse(resp)
			if parseErr == nil {
				return robots
			}
			err = parseErr
		}
	}

	slog.Debug("robots.txt unavailable, allowing all", "url", robotsURL, "error", err)
	allowAll, _ := robotstxt.FromStatusAndBytes(http.StatusNotFound, nil)
	return allowAll
}

// HostRateLimiter keeps one token bucket per host.
type HostRateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	interval time.Duration
}

func NewHostRateLimiter(interval time.Duration) *HostRateLimiter {
	return &HostRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		interval: interval,
	}
}

func (h *HostRateLimiter) WaitForHost(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	if u.Host == "" {
		return fmt.Errorf("missing host in URL: %s", rawURL)
	}

	return h.getLimiterForHost(u.Host).Wait(ctx)
}

func (h *HostRateLimiter) getLimiterForHost(host string) *rate.Limiter {
	h.mu.RLock()
	limiter, exists := h.limiters[host]
	h.mu.RUnlock()

	if exists {
		return limiter
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if limiter, exists := h.limiters[host]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(rate.Every(h.interval), 1)
	h.limiters[host] = limiter
	return limiter
}
