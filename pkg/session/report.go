package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloudgroundcontrol/meet-recorder/pkg/analyze"
	"github.com/cloudgroundcontrol/meet-recorder/pkg/transcript"
)

var now = time.Now

type Report struct {
	MeetingTitle        string                        `json:"meeting_title"`
	Date                string                        `json:"date"`
	Duration            string                        `json:"duration"`
	TranscriptBySpeaker map[string][]transcript.Entry `json:"transcript_by_speaker"`
	EmotionsByPerson    map[string][]analyze.Emotion  `json:"emotions_by_person"`
	MeetingLink         string                        `json:"meeting_link"`
	Reason              Reason                        `json:"end_reason"`
}

func (s *Session) report(reason Reason, bySpeaker map[string][]transcript.Entry) Report {
	if bySpeaker == nil {
		bySpeaker = map[string][]transcript.Entry{}
	}
	end := now()
	start := s.Data().Start

	return Report{
		MeetingTitle:        title(s.config.Output),
		Date:                end.Format("2006-01-02 15:04:05"),
		Duration:            transcript.FormatClock(end.Sub(start)),
		TranscriptBySpeaker: bySpeaker,
		EmotionsByPerson:    s.collector.Emotions(),
		MeetingLink:         s.config.Link,
		Reason:              reason,
	}
}

func title(output string) string {
	base := filepath.Base(output)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func reportPath(output string) string {
	return strings.TrimSuffix(output, filepath.Ext(output)) + "_report.json"
}

func writeReport(output string, r Report) (string, error) {
	path := reportPath(output)
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return path, os.WriteFile(path, data, 0644)
}
