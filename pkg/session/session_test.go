package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cloudgroundcontrol/meet-recorder/pkg/analyze"
	"github.com/cloudgroundcontrol/meet-recorder/pkg/capture"
	"github.com/cloudgroundcontrol/meet-recorder/pkg/transcript"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func run(t *testing.T, s *Session) error {
	t.Helper()
	err := s.Run(context.Background())
	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("session did not finish")
	}
	return err
}

func readReport(t *testing.T, path string) Report {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var r Report
	require.NoError(t, json.Unmarshal(data, &r))
	return r
}

func TestNewValidates(t *testing.T) {
	h := newHarness("x.mp4")

	_, err := New(Config{Output: "x.mp4"}, h.tools())
	require.ErrorIs(t, err, ErrEmptyLink)

	_, err = New(Config{Link: "https://meet.google.com/x"}, h.tools())
	require.ErrorIs(t, err, ErrEmptyOutput)

	_, err = New(Config{Link: "https://meet.google.com/x", Output: "x.mp4"}, Tools{})
	require.ErrorIs(t, err, ErrMissingTools)
}

func TestAdvance(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{StateCreated, StateStarting, true},
		{StateStarting, StateRecording, true},
		{StateRecording, StateJoining, false},
		{StateRecording, StateRecording, false},
		{StateJoining, StateFailed, true},
		{StateStopping, StateDone, true},
		{StateDone, StateFailed, false},
		{StateFailed, StateDone, false},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, advance(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestParticipantsLeft(t *testing.T) {
	output := filepath.Join(t.TempDir(), "class.mp4")
	h := newHarness(output)
	h.page.presence = []bool{false}

	s, err := New(fastConfig(output), h.tools())
	require.NoError(t, err)
	require.NoError(t, run(t, s))

	data := s.Data()
	require.Equal(t, StateDone, data.State)
	require.Equal(t, ReasonParticipantsLeft, data.Reason)
	require.Equal(t, output, data.Output)
	require.Equal(t, string(capture.StopGraceful), data.StopMode)
	require.Empty(t, data.Error)
	require.False(t, data.End.Before(data.Start))

	page := h.page.snapshot()
	require.Equal(t, 2, page.checks)
	require.Equal(t, 0, page.logins)
	require.Equal(t, "https://meet.google.com/abc-defg-hij", page.joined)
	require.True(t, page.left)
	require.True(t, page.closed)
	require.Equal(t, 1, h.recorder.stops)

	report := readReport(t, filepath.Join(filepath.Dir(output), "class_report.json"))
	require.Equal(t, "class", report.MeetingTitle)
	require.Equal(t, "https://meet.google.com/abc-defg-hij", report.MeetingLink)
	require.Equal(t, ReasonParticipantsLeft, report.Reason)
	require.Regexp(t, `^\d{2}:\d{2}:\d{2}$`, report.Duration)
	require.Equal(t, data.Report, filepath.Join(filepath.Dir(output), "class_report.json"))

	finished := <-h.finished
	require.Equal(t, StateDone, finished.State)
}

func TestPresenceResetsAbsentCount(t *testing.T) {
	output := filepath.Join(t.TempDir(), "class.mp4")
	h := newHarness(output)
	h.page.presence = []bool{false, true, false, true, false, false}

	s, err := New(fastConfig(output), h.tools())
	require.NoError(t, err)
	require.NoError(t, run(t, s))

	require.Equal(t, ReasonParticipantsLeft, s.Data().Reason)
	require.Equal(t, 6, h.page.snapshot().checks)
}

func TestWarmUpDelaysChecks(t *testing.T) {
	output := filepath.Join(t.TempDir(), "class.mp4")
	h := newHarness(output)
	h.page.presence = []bool{false}

	config := fastConfig(output)
	config.WarmUp = time.Hour
	config.Duration = 60 * time.Millisecond

	s, err := New(config, h.tools())
	require.NoError(t, err)
	require.NoError(t, run(t, s))

	require.Equal(t, ReasonDurationElapsed, s.Data().Reason)
	require.Zero(t, h.page.snapshot().checks)
}

func TestDurationElapsed(t *testing.T) {
	output := filepath.Join(t.TempDir(), "class.mp4")
	h := newHarness(output)

	config := fastConfig(output)
	config.Duration = 50 * time.Millisecond

	s, err := New(config, h.tools())
	require.NoError(t, err)
	require.NoError(t, run(t, s))

	require.Equal(t, ReasonDurationElapsed, s.Data().Reason)
	require.Equal(t, StateDone, s.Data().State)
}

func TestStop(t *testing.T) {
	output := filepath.Join(t.TempDir(), "class.mp4")
	h := newHarness(output)

	s, err := New(fastConfig(output), h.tools())
	require.NoError(t, err)

	errs := make(chan error, 1)
	go func() {
		errs <- s.Run(context.Background())
	}()
	require.Eventually(t, func() bool {
		return s.Data().State == StateRecording
	}, time.Second, 5*time.Millisecond)

	s.Stop()
	s.Stop()
	require.NoError(t, <-errs)
	<-s.Done()

	require.Equal(t, ReasonStopped, s.Data().Reason)
	require.Equal(t, 1, h.recorder.stops)
}

func TestContextCancelStops(t *testing.T) {
	output := filepath.Join(t.TempDir(), "class.mp4")
	h := newHarness(output)

	s, err := New(fastConfig(output), h.tools())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	require.NoError(t, s.Run(ctx))
	<-s.Done()

	require.Equal(t, ReasonStopped, s.Data().Reason)
	require.Equal(t, StateDone, s.Data().State)
}

func TestRunTwice(t *testing.T) {
	output := filepath.Join(t.TempDir(), "class.mp4")
	h := newHarness(output)
	h.page.presence = []bool{false}

	s, err := New(fastConfig(output), h.tools())
	require.NoError(t, err)
	require.NoError(t, run(t, s))
	require.ErrorIs(t, s.Run(context.Background()), ErrAlreadyRunning)
}

func TestLaunchFailure(t *testing.T) {
	output := filepath.Join(t.TempDir(), "class.mp4")
	h := newHarness(output)
	tools := h.tools()
	tools.Launch = func(ctx context.Context) (Page, error) {
		return nil, errBoom
	}

	s, err := New(fastConfig(output), tools)
	require.NoError(t, err)
	require.ErrorIs(t, run(t, s), errBoom)

	data := s.Data()
	require.Equal(t, StateFailed, data.State)
	require.Equal(t, ReasonError, data.Reason)
	require.Contains(t, data.Error, "boom")
	require.Zero(t, h.recorder.stops)
}

func TestRecorderFailure(t *testing.T) {
	output := filepath.Join(t.TempDir(), "class.mp4")
	h := newHarness(output)
	h.recorder.startErr = capture.ErrAllMethodsFailed

	s, err := New(fastConfig(output), h.tools())
	require.NoError(t, err)
	require.ErrorIs(t, run(t, s), capture.ErrAllMethodsFailed)

	require.Equal(t, StateFailed, s.Data().State)
	require.True(t, h.page.snapshot().closed)
	require.Empty(t, h.page.snapshot().joined)
	require.Zero(t, h.recorder.stops)
	require.NoFileExists(t, reportPath(output))
}

func TestJoinFailureStillStops(t *testing.T) {
	output := filepath.Join(t.TempDir(), "class.mp4")
	h := newHarness(output)
	h.page.joinErr = errBoom

	s, err := New(fastConfig(output), h.tools())
	require.NoError(t, err)
	require.ErrorIs(t, run(t, s), errBoom)

	data := s.Data()
	require.Equal(t, StateFailed, data.State)
	require.Equal(t, ReasonError, data.Reason)
	require.Equal(t, 1, h.recorder.stops)
	require.True(t, h.page.snapshot().closed)
	require.FileExists(t, reportPath(output))
}

func TestLoginWithCredentials(t *testing.T) {
	output := filepath.Join(t.TempDir(), "class.mp4")
	h := newHarness(output)
	h.page.presence = []bool{false}

	config := fastConfig(output)
	config.Email = "bot@example.com"
	config.Password = "secret"

	s, err := New(config, h.tools())
	require.NoError(t, err)
	require.NoError(t, run(t, s))
	require.Equal(t, 1, h.page.snapshot().logins)
}

func TestLoginFailure(t *testing.T) {
	output := filepath.Join(t.TempDir(), "class.mp4")
	h := newHarness(output)
	h.page.loginErr = errBoom

	config := fastConfig(output)
	config.Email = "bot@example.com"
	config.Password = "secret"

	s, err := New(config, h.tools())
	require.NoError(t, err)
	require.ErrorIs(t, run(t, s), errBoom)
	require.Empty(t, h.page.snapshot().joined)
}

func TestCorruptOutputIsRepaired(t *testing.T) {
	output := filepath.Join(t.TempDir(), "class.mp4")
	h := newHarness(output)
	h.page.presence = []bool{false}
	h.media.results = []error{capture.ErrOutputCorrupt, nil}

	s, err := New(fastConfig(output), h.tools())
	require.NoError(t, err)
	require.NoError(t, run(t, s))

	require.Equal(t, 1, h.media.repaired)
	require.Equal(t, StateDone, s.Data().State)
	require.Equal(t, output, s.Data().Output)
}

func TestMissingOutputFails(t *testing.T) {
	output := filepath.Join(t.TempDir(), "class.mp4")
	h := newHarness(output)
	h.page.presence = []bool{false}
	h.media.results = []error{capture.ErrOutputMissing}

	s, err := New(fastConfig(output), h.tools())
	require.NoError(t, err)
	require.NoError(t, run(t, s))

	data := s.Data()
	require.Equal(t, StateFailed, data.State)
	require.Equal(t, ReasonParticipantsLeft, data.Reason)
	require.Empty(t, data.Output)
	require.Empty(t, data.Report)
	require.Contains(t, data.Error, capture.ErrOutputMissing.Error())
}

func TestRecorderCrashFailsSession(t *testing.T) {
	output := filepath.Join(t.TempDir(), "class.mp4")
	h := newHarness(output)
	h.page.presence = []bool{false}
	h.recorder.stopMode = capture.StopExited
	h.recorder.stopErr = fmt.Errorf("%w: exit status 1", capture.ErrExitedEarly)

	s, err := New(fastConfig(output), h.tools())
	require.NoError(t, err)
	require.NoError(t, run(t, s))

	data := s.Data()
	require.Equal(t, StateFailed, data.State)
	require.Equal(t, string(capture.StopExited), data.StopMode)
	require.Contains(t, data.Error, capture.ErrExitedEarly.Error())
	require.Equal(t, output, data.Output)
}

func TestTranscriptAndEmotionsInReport(t *testing.T) {
	output := filepath.Join(t.TempDir(), "class.mp4")
	h := newHarness(output)
	h.page.presence = []bool{false}

	tools := h.tools()
	tools.Transcriber = fakeTranscriber{entries: map[string][]transcript.Entry{
		"speaker_1": {{Timestamp: "00:00:01", Text: "good morning"}},
	}}
	tools.Analyzers = func(page Page) []analyze.Analyzer {
		return []analyze.Analyzer{oneShotAnalyzer{}}
	}

	s, err := New(fastConfig(output), tools)
	require.NoError(t, err)
	require.NoError(t, run(t, s))

	report := readReport(t, reportPath(output))
	require.Equal(t, "good morning", report.TranscriptBySpeaker["speaker_1"][0].Text)
	require.Equal(t, "happy", report.EmotionsByPerson["person_1"][0].Emotion)
}

func TestTranscriptionFailureKeepsReport(t *testing.T) {
	output := filepath.Join(t.TempDir(), "class.mp4")
	h := newHarness(output)
	h.page.presence = []bool{false}

	tools := h.tools()
	tools.Transcriber = fakeTranscriber{err: errors.New("backend down")}

	s, err := New(fastConfig(output), tools)
	require.NoError(t, err)
	require.NoError(t, run(t, s))

	require.Equal(t, StateDone, s.Data().State)
	require.Empty(t, readReport(t, reportPath(output)).TranscriptBySpeaker)
}

func TestUploadsRecordingAndReport(t *testing.T) {
	output := filepath.Join(t.TempDir(), "class.mp4")
	h := newHarness(output)
	h.page.presence = []bool{false}

	uploader := &memoryUploader{objects: map[string]int{}}
	tools := h.tools()
	tools.Uploader = uploader

	s, err := New(fastConfig(output), tools)
	require.NoError(t, err)
	require.NoError(t, run(t, s))

	data := s.Data()
	require.Equal(t, "meetings/class.mp4", data.Output)
	require.Equal(t, "meetings/class_report.json", data.Report)
	require.Equal(t, 5, uploader.objects["class.mp4"])
	require.Contains(t, uploader.objects, "class_report.json")
	require.NoFileExists(t, output)
}

type oneShotAnalyzer struct{}

func (oneShotAnalyzer) Name() string { return "one-shot" }

func (oneShotAnalyzer) Run(ctx context.Context, c *analyze.Collector) error {
	c.AddEmotion("person_1", analyze.Emotion{Emotion: "happy", Confidence: 80})
	<-ctx.Done()
	return nil
}

func TestTitleAndReportPath(t *testing.T) {
	require.Equal(t, "reco-abc", title("/data/recordings/reco-abc.mp4"))
	require.Equal(t, "/data/recordings/reco-abc_report.json", reportPath("/data/recordings/reco-abc.mp4"))
}
