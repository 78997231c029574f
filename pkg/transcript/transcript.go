package transcript

import (
	"context"
	"fmt"
	"time"
)

// Segment is a span of recognised speech, relative to the recording start.
type Segment struct {
	Start   time.Duration
	End     time.Duration
	Text    string
	Speaker string
}

type Transcript struct {
	Language string
	Segments []Segment
	Duration time.Duration
}

type Backend interface {
	Transcribe(ctx context.Context, wavPath string) (Transcript, error)
}

// Entry is one line of the per-speaker transcript in the meeting report.
type Entry struct {
	Timestamp string `json:"timestamp"`
	Text      string `json:"text"`
}

const DefaultSpeakerGap = 10 * time.Second

// AssignSpeakers labels segments speaker_1, speaker_2, ... starting a new
// speaker whenever the silence before a segment exceeds gap. Without
// diarization this is a heuristic: turn-taking usually comes with a pause.
func AssignSpeakers(segments []Segment, gap time.Duration) {
	count := 0
	var prevEnd time.Duration
	for i := range segments {
		if count == 0 || segments[i].Start-prevEnd > gap {
			count++
		}
		segments[i].Speaker = fmt.Sprintf("speaker_%d", count)
		prevEnd = segments[i].End
	}
}

func BySpeaker(segments []Segment) map[string][]Entry {
	out := make(map[string][]Entry)
	for _, s := range segments {
		if s.Text == "" {
			continue
		}
		out[s.Speaker] = append(out[s.Speaker], Entry{
			Timestamp: FormatClock(s.Start),
			Text:      s.Text,
		})
	}
	return out
}

// FormatClock renders d as HH:MM:SS.
func FormatClock(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
