package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/scenestream/stream"
)

// viewerSummary counts the events sent to a viewer and periodically logs
// them.
type viewerSummary struct {
	entry    logs.Entry
	interval time.Duration

	mutex   sync.Mutex
	counter map[stream.EventType]int
}

func newViewerSummary(entry logs.Entry, interval time.Duration) *viewerSummary {
	return &viewerSummary{
		entry:    entry,
		interval: interval,
		counter:  make(map[stream.EventType]int),
	}
}

func (s *viewerSummary) incCounter(t stream.EventType) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.counter[t]++
}

// start logs a summary every interval until the context is done. It returns
// immediately when the interval is not positive.
func (s *viewerSummary) start(ctx context.Context) {
	if s.interval <= 0 {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			s.logSummary()
		}
	}
}

func (s *viewerSummary) logSummary() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if len(s.counter) == 0 {
		return
	}

	entry := s.entry.WithTag("time_interval", s.interval)
	for k, v := range s.counter {
		entry = entry.WithTag(string(k), v)
		delete(s.counter, k)
	}

	entry.Info("outbound event summary")
}
