// Package browser owns the headless-browser plumbing shared by the
// credential and patent verifiers. Each verification gets a fresh, isolated
// browser context; a semaphore caps how many run at once so a burst of
// submissions cannot fork an unbounded number of Chrome processes.
package browser

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
)

const (
	// DefaultConcurrency matches the worker pool size the external portals
	// tolerate without tripping rate limits.
	DefaultConcurrency = 3

	// DefaultTaskTimeout bounds one full verification: navigation, the
	// anti-automation settle delay, and DOM extraction.
	DefaultTaskTimeout = 90 * time.Second

	// SettleDelay is how long the portals' anti-automation interstitials
	// typically take before the real page loads. See the chsi and cnipa
	// adapters for where it applies.
	SettleDelay = 10 * time.Second

	userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Pool limits concurrent browser sessions.
type Pool struct {
	slots   chan struct{}
	timeout time.Duration
}

// NewPool creates a pool admitting up to size concurrent sessions. A size
// of zero or less falls back to DefaultConcurrency.
func NewPool(size int, taskTimeout time.Duration) *Pool {
	if size <= 0 {
		size = DefaultConcurrency
	}
	if taskTimeout <= 0 {
		taskTimeout = DefaultTaskTimeout
	}
	return &Pool{
		slots:   make(chan struct{}, size),
		timeout: taskTimeout,
	}
}

// Run acquires a slot, starts an isolated headless browser, and executes
// tasks in it. The slot and the browser are released on all paths.
func (p *Pool) Run(ctx context.Context, tasks ...chromedp.Action) error {
	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-p.slots }()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(userAgent),
		chromedp.Flag("lang", "zh-CN"),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	return chromedp.Run(browserCtx, tasks...)
}
