package browser

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/labstack/gommon/log"
)

type chromeDriver struct {
	lock   sync.Mutex
	closed bool

	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	profile     string
}

// allocatorOptions mirrors the flags a meeting bot needs: fake media devices
// so the call never prompts, no automation banner, and desktop capture
// auto-selected.
func allocatorOptions(opts Options, profile string) []chromedp.ExecAllocatorOption {
	o := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	o = append(o,
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-notifications", true),
		chromedp.Flag("use-fake-ui-for-media-stream", true),
		chromedp.Flag("use-fake-device-for-media-stream", true),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("auto-select-desktop-capture-source", "Entire screen"),
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserDataDir(profile),
		chromedp.WindowSize(opts.Width, opts.Height),
	)
	if !opts.Headless {
		o = append(o, chromedp.Flag("start-maximized", true))
	}
	if opts.ExecPath != "" {
		o = append(o, chromedp.ExecPath(opts.ExecPath))
	}
	return o
}

// NewChrome launches a browser with a fresh profile directory.
func NewChrome(ctx context.Context, opts Options) (Driver, error) {
	profile, err := os.MkdirTemp(opts.ProfileDir, fmt.Sprintf("chrome_profile_%d_", time.Now().Unix()))
	if err != nil {
		return nil, err
	}
	log.Debugf("using chrome profile | dir: %s, headless: %v", profile, opts.Headless)

	// The browser outlives the caller's request context, so only values are inherited.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocatorOptions(opts, profile)...)
	bctx, cancel := chromedp.NewContext(allocCtx)

	// First Run starts the browser
	if err := chromedp.Run(bctx); err != nil {
		cancel()
		allocCancel()
		os.RemoveAll(profile)
		return nil, fmt.Errorf("cannot start browser: %w", err)
	}

	return &chromeDriver{
		ctx:         bctx,
		cancel:      cancel,
		allocCancel: allocCancel,
		profile:     profile,
	}, nil
}

// run executes actions on the browser context, bounded by both the caller's
// ctx and the optional timeout.
func (d *chromeDriver) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	d.lock.Lock()
	if d.closed {
		d.lock.Unlock()
		return ErrDriverClosed
	}
	d.lock.Unlock()

	rctx, cancel := context.WithCancel(d.ctx)
	defer cancel()
	if timeout > 0 {
		rctx, cancel = context.WithTimeout(rctx, timeout)
		defer cancel()
	}

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(rctx, actions...)
}

func queryOption(sel Selector) (string, chromedp.QueryOption, error) {
	switch sel.By {
	case ByXPath:
		return sel.Value, chromedp.BySearch, nil
	case ByID:
		return sel.Value, chromedp.ByID, nil
	default:
		css, err := sel.css()
		if err != nil {
			return "", nil, err
		}
		return css, chromedp.ByQuery, nil
	}
}

func (d *chromeDriver) Navigate(ctx context.Context, url string) error {
	return d.run(ctx, 0, chromedp.Navigate(url))
}

func (d *chromeDriver) Click(ctx context.Context, sel Selector, timeout time.Duration) error {
	q, by, err := queryOption(sel)
	if err != nil {
		return err
	}
	err = d.run(ctx, timeout,
		chromedp.WaitVisible(q, by),
		chromedp.ScrollIntoView(q, by),
		chromedp.Click(q, by),
	)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrElementNotFound, sel, err)
	}
	return nil
}

func (d *chromeDriver) Type(ctx context.Context, sel Selector, text string, timeout time.Duration) error {
	q, by, err := queryOption(sel)
	if err != nil {
		return err
	}
	err = d.run(ctx, timeout,
		chromedp.WaitVisible(q, by),
		chromedp.SendKeys(q, text, by),
	)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrElementNotFound, sel, err)
	}
	return nil
}

func (d *chromeDriver) WaitVisible(ctx context.Context, sel Selector, timeout time.Duration) error {
	q, by, err := queryOption(sel)
	if err != nil {
		return err
	}
	if err = d.run(ctx, timeout, chromedp.WaitVisible(q, by)); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrElementNotFound, sel, err)
	}
	return nil
}

func (d *chromeDriver) Query(ctx context.Context, sel Selector) ([]Element, error) {
	script, err := sel.queryScript()
	if err != nil {
		return nil, err
	}
	var elements []Element
	if err = d.run(ctx, 0, chromedp.Evaluate(script, &elements)); err != nil {
		return nil, err
	}
	return elements, nil
}

func (d *chromeDriver) ClickNth(ctx context.Context, sel Selector, n int) error {
	script, err := sel.clickNthScript(n)
	if err != nil {
		return err
	}
	var clicked bool
	if err = d.run(ctx, 0, chromedp.Evaluate(script, &clicked)); err != nil {
		return err
	}
	if !clicked {
		return fmt.Errorf("%w: %s[%d]", ErrElementNotFound, sel, n)
	}
	return nil
}

func (d *chromeDriver) ClearCookies(ctx context.Context) error {
	return d.run(ctx, 0, network.ClearBrowserCookies())
}

func (d *chromeDriver) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := d.run(ctx, 0, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, err
	}
	return buf, nil
}

func (d *chromeDriver) Close() error {
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true

	// Closing the tab context also stops the browser process
	d.cancel()
	d.allocCancel()
	if err := os.RemoveAll(d.profile); err != nil {
		return err
	}
	log.Debugf("closed browser | profile: %s", d.profile)
	return nil
}
