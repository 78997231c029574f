package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cloudgroundcontrol/meet-recorder/pkg/analyze"
	"github.com/cloudgroundcontrol/meet-recorder/pkg/capture"
	"github.com/labstack/gommon/log"
)

var (
	ErrEmptyLink      = errors.New("empty meeting link")
	ErrEmptyOutput    = errors.New("empty output file")
	ErrMissingTools   = errors.New("missing session tools")
	ErrAlreadyRunning = errors.New("session already running")
)

type Session struct {
	config Config
	tools  Tools

	lock sync.Mutex
	data Data

	started  bool
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	uploads  sync.WaitGroup

	// Set while running
	page      Page
	recorder  capture.Recorder
	analyzers *analyze.Group
	collector *analyze.Collector
}

func New(config Config, tools Tools) (*Session, error) {
	if config.Link == "" {
		return nil, ErrEmptyLink
	}
	if config.Output == "" {
		return nil, ErrEmptyOutput
	}
	if tools.Launch == nil || tools.NewRecorder == nil || tools.Media == nil {
		return nil, ErrMissingTools
	}

	defaults := DefaultConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = defaults.PollInterval
	}
	if config.CheckInterval <= 0 {
		config.CheckInterval = defaults.CheckInterval
	}
	if config.WarmUp < 0 {
		config.WarmUp = 0
	}
	if config.AbsentChecks <= 0 {
		config.AbsentChecks = defaults.AbsentChecks
	}
	if config.AnalyzerTimeout <= 0 {
		config.AnalyzerTimeout = defaults.AnalyzerTimeout
	}

	return &Session{
		config: config,
		tools:  tools,
		data: Data{
			ID:          config.ID,
			MeetingLink: config.Link,
			State:       StateCreated,
		},
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		collector: analyze.NewCollector(),
	}, nil
}

func (s *Session) Data() Data {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.data
}

func (s *Session) setState(state State) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if !advance(s.data.State, state) {
		return
	}
	log.Debugf("session state changed | id: %s, from: %s, to: %s", s.data.ID, s.data.State, state)
	s.data.State = state
}

// Stop asks a running session to end. Safe to call any number of times.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
}

// Done is closed once the session has finished and its uploads are done.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Run drives the session to completion. The stop sequence always runs, even
// when an earlier step failed.
func (s *Session) Run(ctx context.Context) (err error) {
	s.lock.Lock()
	if s.started {
		s.lock.Unlock()
		return ErrAlreadyRunning
	}
	s.started = true
	s.data.Start = now()
	s.lock.Unlock()

	reason := ReasonError
	defer func() {
		s.finish(context.WithoutCancel(ctx), reason, err)
	}()

	s.setState(StateStarting)
	s.page, err = s.tools.Launch(ctx)
	if err != nil {
		return fmt.Errorf("cannot launch browser: %w", err)
	}

	// Record from the start so login and join are captured too
	rec := s.tools.NewRecorder(s.config.Output)
	if err = rec.Start(ctx); err != nil {
		return fmt.Errorf("cannot start recording: %w", err)
	}
	s.recorder = rec
	s.lock.Lock()
	s.data.Output = s.recorder.Output()
	s.lock.Unlock()

	if s.tools.Analyzers != nil {
		if analyzers := s.tools.Analyzers(s.page); len(analyzers) > 0 {
			s.analyzers = analyze.Start(ctx, s.collector, analyzers...)
		}
	}

	s.setState(StateJoining)
	if s.config.Email != "" && s.config.Password != "" {
		if err = s.page.Login(ctx, s.config.Email, s.config.Password); err != nil {
			return err
		}
	}
	if err = s.page.Join(ctx, s.config.Link); err != nil {
		return err
	}

	s.setState(StateRecording)
	log.Infof("session recording | id: %s, link: %s, output: %s", s.config.ID, s.config.Link, s.recorder.Output())
	reason = s.monitor(ctx)
	return nil
}

func (s *Session) monitor(ctx context.Context) Reason {
	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	var deadline <-chan time.Time
	if s.config.Duration > 0 {
		timer := time.NewTimer(s.config.Duration)
		defer timer.Stop()
		deadline = timer.C
	}

	start := time.Now()
	lastCheck := start
	absent := 0
	for {
		select {
		case <-ctx.Done():
			return ReasonStopped
		case <-s.stop:
			return ReasonStopped
		case <-deadline:
			return ReasonDurationElapsed
		case now := <-ticker.C:
			if now.Sub(start) <= s.config.WarmUp || now.Sub(lastCheck) < s.config.CheckInterval {
				continue
			}
			lastCheck = now

			if s.page.ParticipantsPresent(ctx) {
				absent = 0
				continue
			}
			absent++
			log.Infof("no participants detected | id: %s, checks: %d/%d", s.config.ID, absent, s.config.AbsentChecks)
			if absent >= s.config.AbsentChecks {
				return ReasonParticipantsLeft
			}
		}
	}
}
