package transcript

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/gommon/log"
)

type AudioExtractor interface {
	ExtractAudio(ctx context.Context, input string, output string) error
}

// Service turns a finished recording into a per-speaker transcript.
type Service struct {
	extractor  AudioExtractor
	backend    Backend
	speakerGap time.Duration
}

func NewService(extractor AudioExtractor, backend Backend, speakerGap time.Duration) *Service {
	if speakerGap <= 0 {
		speakerGap = DefaultSpeakerGap
	}
	return &Service{extractor, backend, speakerGap}
}

func (s *Service) Transcribe(ctx context.Context, recording string) (map[string][]Entry, error) {
	wavPath := strings.TrimSuffix(recording, filepath.Ext(recording)) + "_audio.wav"
	if err := s.extractor.ExtractAudio(ctx, recording, wavPath); err != nil {
		return nil, fmt.Errorf("cannot extract audio: %w", err)
	}
	defer os.Remove(wavPath)

	tr, err := s.backend.Transcribe(ctx, wavPath)
	if err != nil {
		return nil, err
	}
	AssignSpeakers(tr.Segments, s.speakerGap)
	log.Infof("transcribed recording | output: %s, segments: %d, language: %s", recording, len(tr.Segments), tr.Language)
	return BySpeaker(tr.Segments), nil
}
