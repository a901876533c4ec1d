package scraper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// Renderer loads a URL in a browser and returns the HTML after client-side scripts ran.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

type RenderOptions struct {
	Timeout     time.Duration
	Headless    bool
	ExecPath    string
	UserAgent   string
	WaitVisible string
}

// ChromeRenderer drives headless Chrome through the DevTools protocol. Each Render call
// gets its own browser from the shared allocator and closes it afterwards, so no page
// state is shared between concurrent renders.
type ChromeRenderer struct {
	allocCtx    context.Context
	cancel      context.CancelFunc
	timeout     time.Duration
	waitVisible string
	logger      *zap.Logger
}

var _ Renderer = (*ChromeRenderer)(nil)

func NewChromeRenderer(opts RenderOptions, logger *zap.Logger) *ChromeRenderer {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.UserAgent(opts.UserAgent),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)

	waitVisible := opts.WaitVisible
	if waitVisible == "" {
		waitVisible = "body"
	}

	logger.Info("Chrome renderer initialized",
		zap.Duration("timeout", opts.Timeout),
		zap.Bool("headless", opts.Headless),
		zap.String("wait_selector", waitVisible))

	return &ChromeRenderer{
		allocCtx:    allocCtx,
		cancel:      cancel,
		timeout:     opts.Timeout,
		waitVisible: waitVisible,
		logger:      logger,
	}
}

func (r *ChromeRenderer) Render(ctx context.Context, url string) (string, error) {
	browserCtx, cancelBrowser := chromedp.NewContext(r.allocCtx)
	defer cancelBrowser()

	runCtx, cancelRun := context.WithTimeout(browserCtx, r.timeout)
	defer cancelRun()

	// The browser context does not descend from ctx, so propagate the caller's cancellation.
	stop := context.AfterFunc(ctx, cancelRun)
	defer stop()

	idle := newIdleWatcher()
	chromedp.ListenTarget(runCtx, idle.observe)

	started := time.Now()
	var html string
	err := chromedp.Run(runCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			return page.SetLifecycleEventsEnabled(true).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameID, loaderID, errorText, err := page.Navigate(url).Do(ctx)
			if err != nil {
				return err
			}
			if errorText != "" {
				return fmt.Errorf("page load error %s", errorText)
			}
			return idle.wait(ctx, frameID, loaderID)
		}),
		chromedp.WaitReady(r.waitVisible, chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("render %s cancelled: %w", url, ctx.Err())
		}
		if runCtx.Err() != nil {
			return "", fmt.Errorf("render %s timed out after %s: %w", url, r.timeout, context.DeadlineExceeded)
		}
		return "", fmt.Errorf("render %s: %w", url, err)
	}

	r.logger.Debug("Page rendered",
		zap.String("url", url),
		zap.Duration("elapsed", time.Since(started)),
		zap.Int("bytes", len(html)))

	return html, nil
}

// Close shuts down the allocator and any browser still running.
func (r *ChromeRenderer) Close() {
	r.cancel()
}

type documentKey struct {
	frame  cdp.FrameID
	loader cdp.LoaderID
}

// idleWatcher records networkIdle per document, so an idle event replayed for the
// initial about:blank document does not count for the navigated page.
type idleWatcher struct {
	mu     sync.Mutex
	idle   map[documentKey]struct{}
	notify chan struct{}
}

func newIdleWatcher() *idleWatcher {
	return &idleWatcher{
		idle:   make(map[documentKey]struct{}),
		notify: make(chan struct{}, 1),
	}
}

func (w *idleWatcher) observe(ev interface{}) {
	e, ok := ev.(*page.EventLifecycleEvent)
	if !ok || e.Name != "networkIdle" {
		return
	}

	w.mu.Lock()
	w.idle[documentKey{frame: e.FrameID, loader: e.LoaderID}] = struct{}{}
	w.mu.Unlock()

	select {
	case w.notify <- struct{}{}:
	default:
	}
}

// wait blocks until the document loaded by the given navigation has gone network idle.
func (w *idleWatcher) wait(ctx context.Context, frame cdp.FrameID, loader cdp.LoaderID) error {
	key := documentKey{frame: frame, loader: loader}
	for {
		w.mu.Lock()
		_, done := w.idle[key]
		w.mu.Unlock()
		if done {
			return nil
		}

		select {
		case <-w.notify:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
