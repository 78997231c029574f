package session

import (
	"context"
	"time"

	"github.com/cloudgroundcontrol/meet-recorder/pkg/analyze"
	"github.com/cloudgroundcontrol/meet-recorder/pkg/browser"
	"github.com/cloudgroundcontrol/meet-recorder/pkg/capture"
	"github.com/cloudgroundcontrol/meet-recorder/pkg/meet"
	"github.com/cloudgroundcontrol/meet-recorder/pkg/transcript"
	"github.com/cloudgroundcontrol/meet-recorder/pkg/upload"
)

// Page is the meeting tab the bot drives.
type Page interface {
	Login(ctx context.Context, email string, password string) error
	Join(ctx context.Context, link string) error
	Leave(ctx context.Context)
	ParticipantsPresent(ctx context.Context) bool
	Screenshot(ctx context.Context) ([]byte, error)
	Close() error
}

type Launcher func(ctx context.Context) (Page, error)

type Media interface {
	Validate(ctx context.Context, path string) (int64, error)
	Repair(ctx context.Context, path string) error
}

type Transcriber interface {
	Transcribe(ctx context.Context, recording string) (map[string][]transcript.Entry, error)
}

type Tools struct {
	Launch      Launcher
	NewRecorder func(output string) capture.Recorder
	Media       Media

	// Optional
	Transcriber Transcriber
	Analyzers   func(page Page) []analyze.Analyzer
	Uploader    upload.Uploader
	OnFinish    func(data Data)
}

type chromePage struct {
	*meet.Page
	driver browser.Driver
}

func (c *chromePage) Close() error {
	return c.driver.Close()
}

// ChromeLauncher opens a fresh Chrome for every session.
func ChromeLauncher(opts browser.Options, timeouts meet.Timeouts) Launcher {
	return func(ctx context.Context) (Page, error) {
		driver, err := browser.NewChrome(ctx, opts)
		if err != nil {
			return nil, err
		}
		return &chromePage{Page: meet.NewPage(driver, timeouts), driver: driver}, nil
	}
}

// EmotionAnalyzers samples the meeting page when an endpoint is configured.
func EmotionAnalyzers(config analyze.EmotionConfig) func(page Page) []analyze.Analyzer {
	return func(page Page) []analyze.Analyzer {
		if config.Endpoint == "" {
			return nil
		}
		a, err := analyze.NewEmotionAnalyzer(config, page)
		if err != nil {
			return nil
		}
		return []analyze.Analyzer{a}
	}
}

type Config struct {
	ID       string
	Link     string
	Output   string
	Duration time.Duration

	Email    string
	Password string

	PollInterval    time.Duration
	CheckInterval   time.Duration
	WarmUp          time.Duration
	AbsentChecks    int
	AnalyzerTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Duration:        60 * time.Minute,
		PollInterval:    10 * time.Second,
		CheckInterval:   30 * time.Second,
		WarmUp:          20 * time.Second,
		AbsentChecks:    2,
		AnalyzerTimeout: 2 * time.Second,
	}
}
