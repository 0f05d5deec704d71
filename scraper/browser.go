package scraper

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"price-recommender/utils"
)

// ErrEmptyPage is returned when a navigation produced no document.
var ErrEmptyPage = errors.New("empty page")

// Source is the raw listing source: given a URL, return its rendered HTML.
type Source interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// BrowserOptions configures the headless browser source.
type BrowserOptions struct {
	ChromeBin   string
	Headless    bool
	WaitTime    time.Duration // fixed post-navigation delay before the DOM is read
	PageTimeout time.Duration
	RateLimitMs int
}

// Browser fetches pages through one headless Chrome process. Each Fetch
// opens a fresh tab. Close releases the process.
type Browser struct {
	opts     BrowserOptions
	logger   *utils.Logger
	throttle *utils.Throttle

	cancelAlloc   context.CancelFunc
	browserCtx    context.Context
	cancelBrowser context.CancelFunc
}

// NewBrowser starts a Chrome allocator. The browser process itself launches
// on the first Fetch.
func NewBrowser(opts BrowserOptions, logger *utils.Logger) (*Browser, error) {
	chromeBin := opts.ChromeBin
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}
	logger.Info("[browser] Using browser binary: %s", orDefault(chromeBin, "<chromedp default>"))

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)
	if chromeBin != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)

	// Suppress chromedp log noise
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	if opts.PageTimeout <= 0 {
		opts.PageTimeout = 60 * time.Second
	}

	return &Browser{
		opts:          opts,
		logger:        logger,
		throttle:      utils.NewThrottle(opts.RateLimitMs),
		cancelAlloc:   cancelAlloc,
		browserCtx:    browserCtx,
		cancelBrowser: cancelBrowser,
	}, nil
}

// Fetch navigates a new tab to url, waits the fixed delay, and returns the
// document's outer HTML. An empty document is reported as ErrEmptyPage.
func (b *Browser) Fetch(ctx context.Context, url string) (string, error) {
	b.throttle.Wait()

	tabCtx, cancel := chromedp.NewContext(b.browserCtx)
	defer cancel()

	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, b.opts.PageTimeout)
	defer cancelTimeout()

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var html string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.Sleep(b.opts.WaitTime),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("chromedp fetch %s: %w", url, err)
	}
	if strings.TrimSpace(html) == "" {
		return "", fmt.Errorf("%s: %w", url, ErrEmptyPage)
	}
	return html, nil
}

// Close shuts down the browser and its allocator.
func (b *Browser) Close() {
	b.cancelBrowser()
	b.cancelAlloc()
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// findChromeBinary locates Chrome/Chromium binary.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
