// Package headless contains the chromedp-backed Fetcher that renders the
// source page with the configured identity profile applied.
package headless

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/go-rod/stealth"
	"go.uber.org/zap"

	"github.com/JakeFAU/profile-watcher/internal/identity"
	"github.com/JakeFAU/profile-watcher/internal/monitor"
)

const (
	defaultNavigationTimeout = 90 * time.Second
	defaultMarkerTimeout     = 60 * time.Second
	captureTimeout           = 15 * time.Second
)

// Config controls the behavior of the headless fetcher.
type Config struct {
	NavigationTimeout time.Duration
	// SettleDelay is waited after the marker appears so late units render.
	SettleDelay time.Duration
	Headless    bool
	// ExecPath overrides the Chrome binary; empty uses chromedp's lookup.
	ExecPath string
}

// Fetcher implements monitor.Fetcher using chromedp and headless Chrome.
// One browser is kept alive across fetches; each fetch gets a fresh tab.
type Fetcher struct {
	cfg    Config
	logger *zap.Logger

	mu            sync.Mutex
	allocator     context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// NewChromedp creates a headless fetcher. Chrome is launched lazily on the
// first Fetch and relaunched if it dies.
func NewChromedp(cfg Config, logger *zap.Logger) (*Fetcher, error) {
	if cfg.NavigationTimeout < 0 || cfg.SettleDelay < 0 {
		return nil, fmt.Errorf("timeouts must be >= 0")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{cfg: cfg, logger: logger}, nil
}

// Close shuts down the browser and allocator.
func (f *Fetcher) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.teardownLocked()
}

// Fetch applies the profile and session, navigates, waits for the content
// marker and returns the rendered DOM together with the refreshed cookies.
func (f *Fetcher) Fetch(ctx context.Context, request monitor.FetchRequest) (monitor.FetchResponse, error) {
	browserCtx, err := f.ensureBrowser()
	if err != nil {
		return monitor.FetchResponse{}, &monitor.FetchError{Kind: monitor.FetchNavigation, URL: request.URL, Err: err}
	}

	tabCtx, cancelTab := chromedp.NewContext(browserCtx)
	defer cancelTab()
	stopForward := forwardCancel(ctx, cancelTab)
	defer stopForward()

	start := time.Now()
	// The first Run binds the target's event loop to its context, so the tab
	// is attached without a deadline and only later Runs are bounded.
	if err := chromedp.Run(tabCtx); err != nil {
		return monitor.FetchResponse{}, &monitor.FetchError{
			Kind: monitor.FetchNavigation, URL: request.URL, Err: fmt.Errorf("open tab: %w", err),
		}
	}
	if err := f.navigate(tabCtx, request); err != nil {
		return monitor.FetchResponse{}, err
	}
	if err := f.waitMarker(tabCtx, request); err != nil {
		return monitor.FetchResponse{}, err
	}

	captureCtx, cancel := context.WithTimeout(tabCtx, captureTimeout)
	defer cancel()
	var html string
	if err := chromedp.Run(captureCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return monitor.FetchResponse{}, &monitor.FetchError{
			Kind: classify(err), URL: request.URL, Err: fmt.Errorf("read dom: %w", err),
		}
	}

	return monitor.FetchResponse{
		URL:      request.URL,
		Body:     []byte(html),
		Session:  f.captureSession(captureCtx, request.Session),
		Duration: time.Since(start),
	}, nil
}

func (f *Fetcher) navigate(tabCtx context.Context, request monitor.FetchRequest) error {
	setup, err := f.profileActions(request.Profile)
	if err != nil {
		return &monitor.FetchError{Kind: monitor.FetchNavigation, URL: request.URL, Err: err}
	}
	navCtx, cancel := context.WithTimeout(tabCtx, f.navTimeout())
	defer cancel()

	actions := chromedp.Tasks{
		setup,
		f.restoreSessionAction(request.Session),
		chromedp.Navigate(request.URL),
	}
	if err := chromedp.Run(navCtx, actions); err != nil {
		return &monitor.FetchError{Kind: classify(err), URL: request.URL, Err: fmt.Errorf("navigate: %w", err)}
	}
	return nil
}

func (f *Fetcher) waitMarker(tabCtx context.Context, request monitor.FetchRequest) error {
	if request.Marker == "" {
		return nil
	}
	timeout := request.MarkerTimeout
	if timeout <= 0 {
		timeout = defaultMarkerTimeout
	}
	markerCtx, cancel := context.WithTimeout(tabCtx, timeout)
	defer cancel()

	tasks := chromedp.Tasks{chromedp.WaitReady(request.Marker, chromedp.ByQuery)}
	if f.cfg.SettleDelay > 0 {
		tasks = append(tasks, chromedp.Sleep(f.cfg.SettleDelay))
	}
	if err := chromedp.Run(markerCtx, tasks); err != nil {
		kind := monitor.FetchMarker
		if errors.Is(err, context.Canceled) {
			kind = monitor.FetchNavigation
		}
		return &monitor.FetchError{
			Kind: kind, URL: request.URL,
			Err: fmt.Errorf("content marker %q not found within %s: %w", request.Marker, timeout, err),
		}
	}
	return nil
}

// profileActions pins every fingerprint attribute before the first document loads.
func (f *Fetcher) profileActions(p identity.Profile) (chromedp.Tasks, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	script, err := p.OverrideScript()
	if err != nil {
		return nil, err
	}
	tasks := chromedp.Tasks{
		network.Enable(),
		emulation.SetUserAgentOverride(p.UserAgent).
			WithAcceptLanguage(p.AcceptLanguage()).
			WithPlatform(p.Platform),
		emulation.SetLocaleOverride().WithLocale(p.Locale()),
		emulation.SetTimezoneOverride(p.Timezone),
		emulation.SetDeviceMetricsOverride(int64(p.ViewportWidth), int64(p.ViewportHeight), 1, false),
		network.SetExtraHTTPHeaders(network.Headers{"Accept-Language": p.AcceptLanguage()}),
	}
	if p.Stealth {
		tasks = append(tasks, addScriptAction(stealth.JS))
	}
	tasks = append(tasks, addScriptAction(script))
	return tasks, nil
}

func addScriptAction(source string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if _, err := page.AddScriptToEvaluateOnNewDocument(source).Do(ctx); err != nil {
			return fmt.Errorf("add init script: %w", err)
		}
		return nil
	})
}

func (f *Fetcher) restoreSessionAction(state monitor.SessionState) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if state.Empty() {
			return nil
		}
		params, err := decodeCookies(state)
		if err != nil {
			f.logger.Warn("persisted session unreadable; navigating without cookies", zap.Error(err))
			return nil
		}
		if len(params) == 0 {
			return nil
		}
		if err := network.SetCookies(params).Do(ctx); err != nil {
			return fmt.Errorf("restore cookies: %w", err)
		}
		f.logger.Debug("session restored", zap.Int("cookies", len(params)))
		return nil
	})
}

// captureSession reads the page's cookies. On failure the previous state is
// returned unchanged so a bad capture never wipes a good session.
func (f *Fetcher) captureSession(ctx context.Context, previous monitor.SessionState) monitor.SessionState {
	var cookies []*network.Cookie
	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		cookies, err = network.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		f.logger.Warn("capture cookies failed; keeping previous session", zap.Error(err))
		return previous
	}
	state, err := encodeCookies(cookies)
	if err != nil {
		f.logger.Warn("encode cookies failed; keeping previous session", zap.Error(err))
		return previous
	}
	return state
}

func (f *Fetcher) ensureBrowser() (context.Context, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.browserCtx != nil && f.browserCtx.Err() == nil {
		return f.browserCtx, nil
	}
	if f.browserCtx != nil {
		f.logger.Warn("browser context ended; relaunching", zap.Error(f.browserCtx.Err()))
		f.teardownLocked()
	}

	f.allocator, f.allocCancel = chromedp.NewExecAllocator(context.Background(), f.allocatorOptions()...)
	f.browserCtx, f.browserCancel = chromedp.NewContext(f.allocator)
	if err := chromedp.Run(f.browserCtx); err != nil {
		f.teardownLocked()
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	f.logger.Info("browser launched", zap.Bool("headless", f.cfg.Headless))
	return f.browserCtx, nil
}

func (f *Fetcher) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption(nil), chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", f.cfg.Headless),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("start-maximized", true),
	)
	if f.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(f.cfg.ExecPath))
	}
	return opts
}

func (f *Fetcher) teardownLocked() {
	if f.browserCancel != nil {
		f.browserCancel()
	}
	if f.allocCancel != nil {
		f.allocCancel()
	}
	f.browserCtx, f.browserCancel = nil, nil
	f.allocator, f.allocCancel = nil, nil
}

func (f *Fetcher) navTimeout() time.Duration {
	if f.cfg.NavigationTimeout > 0 {
		return f.cfg.NavigationTimeout
	}
	return defaultNavigationTimeout
}

func classify(err error) monitor.FetchErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return monitor.FetchTimeout
	}
	return monitor.FetchNavigation
}

// forwardCancel cancels the tab when the caller's context ends.
func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
