package transcript

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/gommon/log"
)

type WhisperConfig struct {
	// BaseURL of an OpenAI-compatible server, e.g. https://api.openai.com
	BaseURL  string
	APIKey   string
	Model    string
	Language string

	// MaxChunk bounds each upload, keeping requests under server size limits.
	MaxChunk time.Duration
	Timeout  time.Duration
}

var ErrEmptyBaseURL = errors.New("empty transcription base url")

type whisperBackend struct {
	config WhisperConfig
	client *http.Client
}

func NewWhisperBackend(config WhisperConfig) (Backend, error) {
	if config.BaseURL == "" {
		return nil, ErrEmptyBaseURL
	}
	if config.Model == "" {
		config.Model = "whisper-1"
	}
	if config.MaxChunk <= 0 {
		config.MaxChunk = 10 * time.Minute
	}
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Minute
	}
	return &whisperBackend{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}, nil
}

type verboseResponse struct {
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
	Text     string  `json:"text"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func (w *whisperBackend) Transcribe(ctx context.Context, wavPath string) (Transcript, error) {
	chunks, err := splitWAV(wavPath, w.config.MaxChunk)
	if err != nil {
		return Transcript{}, err
	}
	defer removeChunks(chunks)

	var tr Transcript
	for _, c := range chunks {
		res, err := w.request(ctx, c.Path)
		if err != nil {
			return Transcript{}, fmt.Errorf("cannot transcribe %s: %w", filepath.Base(c.Path), err)
		}
		if tr.Language == "" {
			tr.Language = res.Language
		}
		for _, s := range res.Segments {
			tr.Segments = append(tr.Segments, Segment{
				Start: c.Offset + seconds(s.Start),
				End:   c.Offset + seconds(s.End),
				Text:  strings.TrimSpace(s.Text),
			})
		}
		// Some servers omit segments
		if len(res.Segments) == 0 && strings.TrimSpace(res.Text) != "" {
			tr.Segments = append(tr.Segments, Segment{
				Start: c.Offset,
				End:   c.Offset + seconds(res.Duration),
				Text:  strings.TrimSpace(res.Text),
			})
		}
		tr.Duration = c.Offset + seconds(res.Duration)
		log.Debugf("transcribed chunk | file: %s, offset: %v, segments: %d", c.Path, c.Offset, len(res.Segments))
	}
	return tr, nil
}

func (w *whisperBackend) request(ctx context.Context, path string) (*verboseResponse, error) {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err = io.Copy(part, f); err != nil {
		return nil, err
	}
	fields := map[string]string{
		"model":           w.config.Model,
		"response_format": "verbose_json",
	}
	if w.config.Language != "" {
		fields["language"] = w.config.Language
	}
	for k, v := range fields {
		if err = mw.WriteField(k, v); err != nil {
			return nil, err
		}
	}
	if err = mw.Close(); err != nil {
		return nil, err
	}

	url := strings.TrimSuffix(w.config.BaseURL, "/") + "/v1/audio/transcriptions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if w.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+w.config.APIKey)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("transcription server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	res := new(verboseResponse)
	if err = json.NewDecoder(resp.Body).Decode(res); err != nil {
		return nil, err
	}
	return res, nil
}
