package analyze

import (
	"context"
	"sync"
	"time"

	"github.com/labstack/gommon/log"
)

// Analyzer observes the meeting in the background while it is recorded.
type Analyzer interface {
	Name() string
	Run(ctx context.Context, c *Collector) error
}

type Emotion struct {
	Timestamp  string  `json:"timestamp"`
	Emotion    string  `json:"emotion"`
	Confidence float64 `json:"confidence"`
}

// Collector gathers analyzer output. It is safe for concurrent use.
type Collector struct {
	lock     sync.Mutex
	emotions map[string][]Emotion
}

func NewCollector() *Collector {
	return &Collector{emotions: make(map[string][]Emotion)}
}

func (c *Collector) AddEmotion(person string, e Emotion) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.emotions[person] = append(c.emotions[person], e)
}

func (c *Collector) Emotions() map[string][]Emotion {
	c.lock.Lock()
	defer c.lock.Unlock()
	out := make(map[string][]Emotion, len(c.emotions))
	for k, v := range c.emotions {
		out[k] = append([]Emotion(nil), v...)
	}
	return out
}

type Group struct {
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Start runs every analyzer in its own goroutine until Stop.
func Start(ctx context.Context, c *Collector, analyzers ...Analyzer) *Group {
	ctx, cancel := context.WithCancel(ctx)
	g := &Group{cancel: cancel}
	for _, a := range analyzers {
		g.wg.Add(1)
		go func(a Analyzer) {
			defer g.wg.Done()
			log.Debugf("analyzer started | name: %s", a.Name())
			if err := a.Run(ctx, c); err != nil && ctx.Err() == nil {
				log.Errorf("analyzer stopped with error | name: %s, error: %v", a.Name(), err)
				return
			}
			log.Debugf("analyzer stopped | name: %s", a.Name())
		}(a)
	}
	return g
}

// Stop cancels the analyzers and waits up to timeout for them to return.
// It reports whether all of them did.
func (g *Group) Stop(timeout time.Duration) bool {
	g.cancel()
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
