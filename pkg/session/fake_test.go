package session

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"time"

	"github.com/cloudgroundcontrol/meet-recorder/pkg/capture"
	"github.com/cloudgroundcontrol/meet-recorder/pkg/transcript"
)

type fakePage struct {
	lock     sync.Mutex
	presence []bool
	checks   int
	loginErr error
	joinErr  error
	logins   int
	joined   string
	left     bool
	closed   bool
}

func (p *fakePage) Login(ctx context.Context, email string, password string) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.logins++
	return p.loginErr
}

func (p *fakePage) Join(ctx context.Context, link string) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.joined = link
	return p.joinErr
}

func (p *fakePage) Leave(ctx context.Context) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.left = true
}

// ParticipantsPresent replays the presence sequence and then repeats its last
// value. An empty sequence means someone is always present.
func (p *fakePage) ParticipantsPresent(ctx context.Context) bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.checks++
	if len(p.presence) == 0 {
		return true
	}
	v := p.presence[0]
	if len(p.presence) > 1 {
		p.presence = p.presence[1:]
	}
	return v
}

func (p *fakePage) Screenshot(ctx context.Context) ([]byte, error) {
	return []byte("png"), nil
}

func (p *fakePage) Close() error {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.closed = true
	return nil
}

func (p *fakePage) snapshot() fakePage {
	p.lock.Lock()
	defer p.lock.Unlock()
	return fakePage{checks: p.checks, logins: p.logins, joined: p.joined, left: p.left, closed: p.closed}
}

type fakeRecorder struct {
	output   string
	startErr error
	stopMode capture.StopMode
	stopErr  error
	stops    int
}

func (r *fakeRecorder) Start(ctx context.Context) error {
	if r.startErr != nil {
		return r.startErr
	}
	return os.WriteFile(r.output, []byte("video"), 0644)
}

func (r *fakeRecorder) Stop() (capture.StopMode, error) {
	r.stops++
	if r.stopMode != "" {
		return r.stopMode, r.stopErr
	}
	return capture.StopGraceful, nil
}

func (r *fakeRecorder) Output() string {
	return r.output
}

type fakeMedia struct {
	lock     sync.Mutex
	results  []error
	repaired int
}

func (m *fakeMedia) Validate(ctx context.Context, path string) (int64, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if len(m.results) == 0 {
		return 5, nil
	}
	err := m.results[0]
	m.results = m.results[1:]
	return 5, err
}

func (m *fakeMedia) Repair(ctx context.Context, path string) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.repaired++
	return nil
}

type fakeTranscriber struct {
	entries map[string][]transcript.Entry
	err     error
}

func (f fakeTranscriber) Transcribe(ctx context.Context, recording string) (map[string][]transcript.Entry, error) {
	return f.entries, f.err
}

type memoryUploader struct {
	lock    sync.Mutex
	objects map[string]int
}

func (m *memoryUploader) Upload(ctx context.Context, key string, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.lock.Lock()
	defer m.lock.Unlock()
	m.objects[key] = len(data)
	return nil
}

func (m *memoryUploader) Directory() string {
	return "meetings"
}

var errBoom = errors.New("boom")

type harness struct {
	page     *fakePage
	recorder *fakeRecorder
	media    *fakeMedia
	finished chan Data
}

func newHarness(output string) *harness {
	return &harness{
		page:     &fakePage{},
		recorder: &fakeRecorder{output: output},
		media:    &fakeMedia{},
		finished: make(chan Data, 1),
	}
}

func (h *harness) tools() Tools {
	return Tools{
		Launch: func(ctx context.Context) (Page, error) {
			return h.page, nil
		},
		NewRecorder: func(output string) capture.Recorder {
			return h.recorder
		},
		Media: h.media,
		OnFinish: func(data Data) {
			h.finished <- data
		},
	}
}

func fastConfig(output string) Config {
	return Config{
		ID:              "s1",
		Link:            "https://meet.google.com/abc-defg-hij",
		Output:          output,
		PollInterval:    5 * time.Millisecond,
		CheckInterval:   10 * time.Millisecond,
		AbsentChecks:    2,
		AnalyzerTimeout: time.Second,
	}
}
