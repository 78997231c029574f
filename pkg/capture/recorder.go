package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/labstack/gommon/log"
)

type StopMode string

const (
	StopNone       StopMode = ""
	StopGraceful   StopMode = "graceful"
	StopTerminated StopMode = "terminated"
	StopKilled     StopMode = "killed"
	StopExited     StopMode = "exited"
)

var (
	ErrAllMethodsFailed = errors.New("all recording methods failed")
	ErrNotStarted       = errors.New("recording not started")
	ErrAlreadyStarted   = errors.New("recording already started")
	ErrExitedEarly      = errors.New("recorder exited before stop")
)

type Config struct {
	Tools    Toolchain
	Platform Platform
	Grab     GrabOptions

	// AudioDevices skips device detection when not nil.
	AudioDevices []string

	StartupGrace     time.Duration
	GracefulTimeout  time.Duration
	TerminateTimeout time.Duration
}

func DefaultConfig() Config {
	p := CurrentPlatform()
	return Config{
		Tools:            DefaultToolchain(),
		Platform:         p,
		Grab:             DefaultGrabOptions(p),
		StartupGrace:     2 * time.Second,
		GracefulTimeout:  15 * time.Second,
		TerminateTimeout: 5 * time.Second,
	}
}

type Recorder interface {
	Start(ctx context.Context) error
	Stop() (StopMode, error)
	Output() string
}

type recorder struct {
	config Config
	output string

	lock     sync.Mutex
	proc     *process
	stopOnce sync.Once
	mode     StopMode
	stopErr  error
}

// NewRecorder records the screen into output. ".mp4" is appended when
// missing.
func NewRecorder(config Config, output string) Recorder {
	if !strings.EqualFold(filepath.Ext(output), ".mp4") {
		output += ".mp4"
	}
	return &recorder{config: config, output: output}
}

func (r *recorder) Output() string {
	return r.output
}

func (r *recorder) Start(ctx context.Context) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.proc != nil {
		return ErrAlreadyStarted
	}

	devices := r.config.AudioDevices
	if devices == nil {
		devices = r.config.Tools.ListAudioDevices(ctx, r.config.Platform)
	}
	log.Debugf("available audio devices | devices: %v", devices)

	var lastErr error
	for _, m := range BuildMethods(r.config.Platform, devices, r.output, r.config.Grab) {
		log.Debugf("attempting recording | method: %s, args: %s", m.Name, strings.Join(m.Args, " "))
		p, err := launch(r.config.Tools.FFmpeg, m.Args)
		if err != nil {
			lastErr = err
			log.Warnf("cannot launch recorder | method: %s, error: %v", m.Name, err)
			continue
		}

		select {
		case <-p.done:
			lastErr = fmt.Errorf("%s: %v: %s", m.Name, p.err, strings.TrimSpace(p.stderr.String()))
			log.Warnf("recording attempt failed | error: %v", lastErr)
			continue
		case <-ctx.Done():
			p.cmd.Process.Kill()
			<-p.done
			return ctx.Err()
		case <-time.After(r.config.StartupGrace):
		}

		r.proc = p
		log.Infof("recording started | method: %s, output: %s, pid: %d", m.Name, r.output, p.cmd.Process.Pid)
		return nil
	}
	return fmt.Errorf("%w: %v", ErrAllMethodsFailed, lastErr)
}

// Stop asks ffmpeg to finish the file, escalating to terminate and kill when
// it does not exit in time. Only the first call does any work.
func (r *recorder) Stop() (StopMode, error) {
	r.stopOnce.Do(func() {
		r.lock.Lock()
		p := r.proc
		r.lock.Unlock()

		if p == nil {
			r.stopErr = ErrNotStarted
			return
		}
		r.mode, r.stopErr = r.shutdown(p)
		log.Infof("recording stopped | mode: %s, output: %s", r.mode, r.output)
	})
	return r.mode, r.stopErr
}

func (r *recorder) shutdown(p *process) (StopMode, error) {
	select {
	case <-p.done:
		log.Errorf("ffmpeg exited before stop | error: %v, stderr: %s", p.err, strings.TrimSpace(p.stderr.String()))
		return StopExited, fmt.Errorf("%w: %v", ErrExitedEarly, p.err)
	default:
	}

	if _, err := io.WriteString(p.stdin, "q\n"); err != nil {
		log.Warnf("cannot send quit to ffmpeg | error: %v", err)
	}
	p.stdin.Close()
	if p.wait(r.config.GracefulTimeout) {
		return StopGraceful, nil
	}

	log.Warnf("ffmpeg did not exit, terminating | pid: %d", p.cmd.Process.Pid)
	if err := p.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		// Windows has no SIGTERM
		p.cmd.Process.Kill()
	}
	if p.wait(r.config.TerminateTimeout) {
		return StopTerminated, nil
	}

	log.Warnf("ffmpeg did not terminate, killing | pid: %d", p.cmd.Process.Pid)
	p.cmd.Process.Kill()
	<-p.done
	return StopKilled, nil
}

type process struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr *syncBuffer
	done   chan struct{}
	err    error
}

func launch(bin string, args []string) (*process, error) {
	cmd := exec.Command(bin, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stderr := &syncBuffer{}
	cmd.Stderr = stderr
	cmd.WaitDelay = time.Second

	if err = cmd.Start(); err != nil {
		return nil, err
	}

	p := &process{cmd: cmd, stdin: stdin, stderr: stderr, done: make(chan struct{})}
	go func() {
		p.err = cmd.Wait()
		close(p.done)
	}()
	return p, nil
}

func (p *process) wait(timeout time.Duration) bool {
	select {
	case <-p.done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// syncBuffer keeps the tail of ffmpeg's stderr for error reports.
type syncBuffer struct {
	lock sync.Mutex
	buf  bytes.Buffer
}

const stderrLimit = 4096

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	n, err := b.buf.Write(p)
	if over := b.buf.Len() - stderrLimit; over > 0 {
		b.buf.Next(over)
	}
	return n, err
}

func (b *syncBuffer) String() string {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.buf.String()
}
