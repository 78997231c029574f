package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/cloudgroundcontrol/meet-recorder/pkg/capture"
	"github.com/cloudgroundcontrol/meet-recorder/pkg/transcript"
	"github.com/cloudgroundcontrol/meet-recorder/pkg/upload"
	"github.com/labstack/gommon/log"
)

func (s *Session) finish(ctx context.Context, reason Reason, runErr error) {
	s.setState(StateStopping)
	log.Infof("stopping session | id: %s, reason: %s", s.config.ID, reason)

	if s.analyzers != nil && !s.analyzers.Stop(s.config.AnalyzerTimeout) {
		log.Warnf("analyzers did not stop in time | id: %s", s.config.ID)
	}

	var (
		mode    capture.StopMode
		stopErr error
	)
	if s.recorder != nil {
		mode, stopErr = s.recorder.Stop()
		if errors.Is(stopErr, capture.ErrNotStarted) {
			stopErr = nil
		}
		if stopErr != nil {
			log.Errorf("cannot stop recorder | id: %s, mode: %s, error: %v", s.config.ID, mode, stopErr)
		}
	}

	output, outErr := s.checkOutput(ctx)

	if s.page != nil {
		s.page.Leave(ctx)
		if err := s.page.Close(); err != nil {
			log.Warnf("cannot close browser | id: %s, error: %v", s.config.ID, err)
		}
	}

	var bySpeaker map[string][]transcript.Entry
	if output != "" && s.tools.Transcriber != nil {
		var err error
		bySpeaker, err = s.tools.Transcriber.Transcribe(ctx, output)
		if err != nil {
			log.Errorf("cannot transcribe recording | id: %s, error: %v", s.config.ID, err)
		}
	}

	var report string
	if output != "" {
		var err error
		report, err = writeReport(output, s.report(reason, bySpeaker))
		if err != nil {
			log.Errorf("cannot write report | id: %s, error: %v", s.config.ID, err)
			report = ""
		}
	}

	err := runErr
	if err == nil && outErr != nil {
		err = outErr
	}
	if err == nil && stopErr != nil {
		err = stopErr
	}

	s.lock.Lock()
	s.data.Reason = reason
	s.data.End = now()
	s.data.StopMode = string(mode)
	s.data.Output = output
	s.data.Report = report
	if err != nil {
		s.data.Error = err.Error()
	}
	s.lock.Unlock()

	if s.tools.Uploader != nil {
		s.upload(ctx, output, report)
	}

	if err != nil {
		log.Errorf("session failed | id: %s, reason: %s, error: %v", s.config.ID, reason, err)
		s.setState(StateFailed)
	} else {
		log.Infof("session done | id: %s, reason: %s, output: %s", s.config.ID, reason, output)
		s.setState(StateDone)
	}

	if s.tools.OnFinish != nil {
		s.tools.OnFinish(s.Data())
	}

	go func() {
		s.uploads.Wait()
		close(s.done)
	}()
}

// checkOutput returns the recording path once it probes as a valid media
// file, repairing it first when needed.
func (s *Session) checkOutput(ctx context.Context) (string, error) {
	if s.recorder == nil {
		return "", nil
	}
	path := s.recorder.Output()

	size, err := s.tools.Media.Validate(ctx, path)
	if errors.Is(err, capture.ErrOutputCorrupt) {
		log.Warnf("recording corrupt, repairing | id: %s, output: %s", s.config.ID, path)
		if err = s.tools.Media.Repair(ctx, path); err == nil {
			size, err = s.tools.Media.Validate(ctx, path)
		}
	}
	if err != nil {
		return "", fmt.Errorf("invalid recording %s: %w", path, err)
	}

	log.Infof("recording saved | id: %s, output: %s, size: %d", s.config.ID, path, size)
	return path, nil
}

// upload sends the recording and its report in the background. The data
// points at the remote location as soon as the upload starts.
func (s *Session) upload(ctx context.Context, files ...string) {
	for _, file := range files {
		if file == "" {
			continue
		}
		remote := upload.Location(s.tools.Uploader, filepath.Base(file))
		s.lock.Lock()
		switch file {
		case s.data.Output:
			s.data.Output = remote
		case s.data.Report:
			s.data.Report = remote
		}
		s.lock.Unlock()

		s.uploads.Add(1)
		go func(file string) {
			defer s.uploads.Done()
			location, err := upload.File(ctx, s.tools.Uploader, file)
			if err != nil {
				log.Errorf("cannot upload file | error: %v, file: %s, session: %s", err, file, s.config.ID)
				return
			}
			log.Infof("uploaded file | output: %s, session: %s", location, s.config.ID)
		}(file)
	}
}
