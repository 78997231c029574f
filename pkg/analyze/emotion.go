package analyze

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/gommon/log"
)

type Screenshotter interface {
	Screenshot(ctx context.Context) ([]byte, error)
}

type EmotionConfig struct {
	// Endpoint accepts a PNG body and answers with the faces it found.
	Endpoint string
	Interval time.Duration
	Timeout  time.Duration
}

var ErrEmptyEndpoint = errors.New("empty emotion endpoint")

type emotionAnalyzer struct {
	config EmotionConfig
	source Screenshotter
	client *http.Client
}

// NewEmotionAnalyzer samples the meeting grid from the browser and asks a
// face-emotion service to classify each face.
func NewEmotionAnalyzer(config EmotionConfig, source Screenshotter) (Analyzer, error) {
	if config.Endpoint == "" {
		return nil, ErrEmptyEndpoint
	}
	if config.Interval <= 0 {
		config.Interval = 5 * time.Second
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	return &emotionAnalyzer{
		config: config,
		source: source,
		client: &http.Client{Timeout: config.Timeout},
	}, nil
}

func (a *emotionAnalyzer) Name() string {
	return "emotion"
}

type faceResponse struct {
	Faces []struct {
		Emotion    string  `json:"emotion"`
		Confidence float64 `json:"confidence"`
	} `json:"faces"`
}

func (a *emotionAnalyzer) Run(ctx context.Context, c *Collector) error {
	ticker := time.NewTicker(a.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := a.sample(ctx, c); err != nil && ctx.Err() == nil {
				log.Warnf("emotion analysis error | error: %v", err)
			}
		}
	}
}

func (a *emotionAnalyzer) sample(ctx context.Context, c *Collector) error {
	img, err := a.source.Screenshot(ctx)
	if err != nil {
		return fmt.Errorf("cannot take screenshot: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.Endpoint, bytes.NewReader(img))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "image/png")

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("emotion service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var res faceResponse
	if err = json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return err
	}

	ts := time.Now().Format("15:04:05")
	for i, f := range res.Faces {
		person := fmt.Sprintf("person_%d", i+1)
		c.AddEmotion(person, Emotion{Timestamp: ts, Emotion: f.Emotion, Confidence: f.Confidence})
		log.Debugf("emotion sample | person: %s, emotion: %s, confidence: %.1f", person, f.Emotion, f.Confidence)
	}
	return nil
}
