package browser

import (
	"context"
	"errors"
	"time"
)

type Driver interface {
	Navigate(ctx context.Context, url string) error

	// Click waits up to timeout for the element to be visible and clicks it.
	Click(ctx context.Context, sel Selector, timeout time.Duration) error
	Type(ctx context.Context, sel Selector, text string, timeout time.Duration) error
	WaitVisible(ctx context.Context, sel Selector, timeout time.Duration) error

	// Query returns whatever currently matches without waiting.
	Query(ctx context.Context, sel Selector) ([]Element, error)
	ClickNth(ctx context.Context, sel Selector, n int) error

	ClearCookies(ctx context.Context) error
	Screenshot(ctx context.Context) ([]byte, error)
	Close() error
}

var (
	ErrElementNotFound = errors.New("element not found")
	ErrDriverClosed    = errors.New("driver closed")
)

type Options struct {
	Headless bool
	ExecPath string

	// ProfileDir is the parent of the per-session profile directory.
	// Empty means the system temp dir.
	ProfileDir string

	Width  int
	Height int
}

func DefaultOptions() Options {
	return Options{
		Headless: true,
		Width:    1920,
		Height:   1080,
	}
}
