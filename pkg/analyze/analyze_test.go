package analyze

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type blockingAnalyzer struct {
	ignoreCancel bool
}

func (b *blockingAnalyzer) Name() string { return "blocking" }

func (b *blockingAnalyzer) Run(ctx context.Context, c *Collector) error {
	if b.ignoreCancel {
		time.Sleep(200 * time.Millisecond)
		return nil
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestGroupStopsAnalyzers(t *testing.T) {
	g := Start(context.Background(), NewCollector(), &blockingAnalyzer{}, &blockingAnalyzer{})
	require.True(t, g.Stop(time.Second))
}

func TestGroupStopTimesOut(t *testing.T) {
	g := Start(context.Background(), NewCollector(), &blockingAnalyzer{ignoreCancel: true})
	require.False(t, g.Stop(10*time.Millisecond))
	// Let the straggler finish before the test ends
	time.Sleep(250 * time.Millisecond)
}

func TestCollectorReturnsCopies(t *testing.T) {
	c := NewCollector()
	c.AddEmotion("person_1", Emotion{Emotion: "happy", Confidence: 90})

	out := c.Emotions()
	out["person_1"][0].Emotion = "sad"
	require.Equal(t, "happy", c.Emotions()["person_1"][0].Emotion)
}

type staticScreen struct {
	err error
}

func (s staticScreen) Screenshot(ctx context.Context) ([]byte, error) {
	return []byte("png"), s.err
}

func TestNewEmotionAnalyzerRequiresEndpoint(t *testing.T) {
	_, err := NewEmotionAnalyzer(EmotionConfig{}, staticScreen{})
	require.ErrorIs(t, err, ErrEmptyEndpoint)
}

func TestEmotionSampleRecordsFaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "image/png", r.Header.Get("Content-Type"))
		w.Write([]byte(`{"faces": [{"emotion": "happy", "confidence": 91.5}, {"emotion": "neutral", "confidence": 60}]}`))
	}))
	defer server.Close()

	a, err := NewEmotionAnalyzer(EmotionConfig{Endpoint: server.URL}, staticScreen{})
	require.NoError(t, err)

	c := NewCollector()
	require.NoError(t, a.(*emotionAnalyzer).sample(context.Background(), c))

	emotions := c.Emotions()
	require.Len(t, emotions, 2)
	require.Equal(t, "happy", emotions["person_1"][0].Emotion)
	require.Equal(t, 60.0, emotions["person_2"][0].Confidence)
}

func TestEmotionSampleScreenshotFailure(t *testing.T) {
	a, err := NewEmotionAnalyzer(EmotionConfig{Endpoint: "http://127.0.0.1:1"}, staticScreen{err: errors.New("closed")})
	require.NoError(t, err)
	require.Error(t, a.(*emotionAnalyzer).sample(context.Background(), NewCollector()))
}

func TestEmotionRunStopsOnCancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"faces": [{"emotion": "surprise", "confidence": 70}]}`))
	}))
	defer server.Close()

	a, err := NewEmotionAnalyzer(EmotionConfig{Endpoint: server.URL, Interval: 10 * time.Millisecond}, staticScreen{})
	require.NoError(t, err)

	c := NewCollector()
	g := Start(context.Background(), c, a)
	require.Eventually(t, func() bool {
		return len(c.Emotions()["person_1"]) > 0
	}, time.Second, 10*time.Millisecond)
	require.True(t, g.Stop(time.Second))
}
