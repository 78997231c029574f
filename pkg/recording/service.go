package recording

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cloudgroundcontrol/meet-recorder/pkg/session"
	"github.com/labstack/gommon/log"
	"github.com/lithammer/shortuuid/v4"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionRunning  = errors.New("session still running")
	ErrInvalidLink     = errors.New("invalid meeting link")
	ErrInvalidDuration = errors.New("invalid meeting duration")
	ErrInvalidFilename = errors.New("invalid file name")
	ErrShuttingDown    = errors.New("service is shutting down")
)

const MaxDuration = 8 * time.Hour

type StartMeetingRequest struct {
	MeetingLink string
	Filename    string
	Duration    time.Duration
}

type Service interface {
	StartMeeting(ctx context.Context, req StartMeetingRequest) (session.Data, error)
	StopMeeting(ctx context.Context, id string) (session.Data, error)
	GetMeeting(id string) (session.Data, error)
	ListMeetings() []session.Data
	Forget(id string) error
	Shutdown(ctx context.Context) error
}

type Metrics interface {
	SessionStarted()
	SessionFinished(reason, state, stopMode string, seconds float64)
}

type Options struct {
	RecordingsDir   string
	DefaultDuration time.Duration
	Webhooks        []string

	// Session is the template every new session starts from.
	Session session.Config
	Tools   session.Tools
	Metrics Metrics
}

type service struct {
	options Options
	ctx     context.Context
	cancel  context.CancelFunc

	lock     sync.Mutex
	sessions map[string]*session.Session
	closed   bool
	running  sync.WaitGroup
}

func NewService(options Options) Service {
	if options.DefaultDuration <= 0 {
		options.DefaultDuration = session.DefaultConfig().Duration
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &service{
		options:  options,
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[string]*session.Session),
	}
}

func validateLink(link string) error {
	u, err := url.Parse(link)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidLink, link)
	}
	return nil
}

func (s *service) outputPath(filename string) (string, error) {
	if filename == "" {
		return filepath.Join(s.options.RecordingsDir, "reco-"+shortuuid.New()+".mp4"), nil
	}
	if filename != filepath.Base(filename) || strings.HasPrefix(filename, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidFilename, filename)
	}
	if !strings.EqualFold(filepath.Ext(filename), ".mp4") {
		filename += ".mp4"
	}
	return filepath.Join(s.options.RecordingsDir, filename), nil
}

func (s *service) StartMeeting(ctx context.Context, req StartMeetingRequest) (session.Data, error) {
	if err := validateLink(req.MeetingLink); err != nil {
		return session.Data{}, err
	}
	if req.Duration < 0 || req.Duration > MaxDuration {
		return session.Data{}, fmt.Errorf("%w: %v", ErrInvalidDuration, req.Duration)
	}
	if req.Duration == 0 {
		req.Duration = s.options.DefaultDuration
	}
	output, err := s.outputPath(req.Filename)
	if err != nil {
		return session.Data{}, err
	}

	config := s.options.Session
	config.ID = shortuuid.New()
	config.Link = req.MeetingLink
	config.Output = output
	config.Duration = req.Duration

	tools := s.options.Tools
	tools.OnFinish = s.onFinish

	sess, err := session.New(config, tools)
	if err != nil {
		return session.Data{}, err
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	if s.closed {
		return session.Data{}, ErrShuttingDown
	}
	s.sessions[config.ID] = sess

	if s.options.Metrics != nil {
		s.options.Metrics.SessionStarted()
	}

	s.running.Add(1)
	go func() {
		defer s.running.Done()
		if err := sess.Run(s.ctx); err != nil {
			log.Errorf("session ended with error | id: %s, error: %v", config.ID, err)
		}
		<-sess.Done()
	}()

	log.Infof("started meeting session | id: %s, link: %s, output: %s, duration: %v", config.ID, config.Link, output, config.Duration)
	return sess.Data(), nil
}

func (s *service) find(id string) (*session.Session, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	sess, found := s.sessions[id]
	if !found {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (s *service) StopMeeting(ctx context.Context, id string) (session.Data, error) {
	sess, err := s.find(id)
	if err != nil {
		return session.Data{}, err
	}
	sess.Stop()
	log.Infof("stop requested | id: %s", id)
	return sess.Data(), nil
}

func (s *service) GetMeeting(id string) (session.Data, error) {
	sess, err := s.find(id)
	if err != nil {
		return session.Data{}, err
	}
	return sess.Data(), nil
}

func (s *service) ListMeetings() []session.Data {
	s.lock.Lock()
	out := make([]session.Data, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess.Data())
	}
	s.lock.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].Start.Before(out[j].Start)
	})
	return out
}

// Forget drops a finished session from the registry.
func (s *service) Forget(id string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	sess, found := s.sessions[id]
	if !found {
		return ErrSessionNotFound
	}
	if !sess.Data().State.Finished() {
		return ErrSessionRunning
	}
	delete(s.sessions, id)
	return nil
}

// Shutdown stops every session and waits for them to finish. When ctx ends
// first the sessions are cancelled and ctx's error is returned.
func (s *service) Shutdown(ctx context.Context) error {
	s.lock.Lock()
	s.closed = true
	for _, sess := range s.sessions {
		sess.Stop()
	}
	s.lock.Unlock()

	done := make(chan struct{})
	go func() {
		s.running.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		return ctx.Err()
	}
}

func (s *service) onFinish(data session.Data) {
	if s.options.Metrics != nil {
		var seconds float64
		if !data.Start.IsZero() && !data.End.IsZero() {
			seconds = data.End.Sub(data.Start).Seconds()
		}
		s.options.Metrics.SessionFinished(string(data.Reason), string(data.State), data.StopMode, seconds)
	}
	s.SendRecordingData(data)
}
