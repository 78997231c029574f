package meet

import (
	"context"
	"sync"
	"time"

	"github.com/cloudgroundcontrol/meet-recorder/pkg/browser"
)

type fakeDriver struct {
	lock      sync.Mutex
	clickable map[string]bool
	visible   map[string]bool
	elements  map[string][]browser.Element

	navigated []string
	clicked   []string
	typed     map[string]string
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		clickable: make(map[string]bool),
		visible:   make(map[string]bool),
		elements:  make(map[string][]browser.Element),
		typed:     make(map[string]string),
	}
}

func (f *fakeDriver) Navigate(ctx context.Context, url string) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.navigated = append(f.navigated, url)
	return nil
}

func (f *fakeDriver) Click(ctx context.Context, sel browser.Selector, timeout time.Duration) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	if !f.clickable[sel.String()] {
		return browser.ErrElementNotFound
	}
	f.clicked = append(f.clicked, sel.String())
	return nil
}

func (f *fakeDriver) Type(ctx context.Context, sel browser.Selector, text string, timeout time.Duration) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	if !f.clickable[sel.String()] {
		return browser.ErrElementNotFound
	}
	f.typed[sel.String()] = text
	return nil
}

func (f *fakeDriver) WaitVisible(ctx context.Context, sel browser.Selector, timeout time.Duration) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	if !f.visible[sel.String()] && !f.clickable[sel.String()] {
		return browser.ErrElementNotFound
	}
	return nil
}

func (f *fakeDriver) Query(ctx context.Context, sel browser.Selector) ([]browser.Element, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.elements[sel.String()], nil
}

func (f *fakeDriver) ClickNth(ctx context.Context, sel browser.Selector, n int) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	if n >= len(f.elements[sel.String()]) {
		return browser.ErrElementNotFound
	}
	f.clicked = append(f.clicked, sel.String())
	return nil
}

func (f *fakeDriver) ClearCookies(ctx context.Context) error {
	return nil
}

func (f *fakeDriver) Screenshot(ctx context.Context) ([]byte, error) {
	return []byte("png"), nil
}

func (f *fakeDriver) Close() error {
	return nil
}

func fastTimeouts() Timeouts {
	return Timeouts{
		Login:    time.Millisecond,
		Prompt:   time.Millisecond,
		Join:     time.Millisecond,
		Toggle:   time.Millisecond,
		Presence: time.Millisecond,
		Settle:   time.Millisecond,
	}
}
