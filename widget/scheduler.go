package widget

import (
	"context"
	"sync"
	"time"
)

// DefaultFrameRate is the frame rate of a scheduler created with rate <= 0
const DefaultFrameRate = 60

// TickerScheduler is a FrameScheduler driven by a time.Ticker
type TickerScheduler struct {
	interval time.Duration
}

// NewTickerScheduler creates a scheduler firing rate times per second
func NewTickerScheduler(rate int) *TickerScheduler {
	if rate <= 0 {
		rate = DefaultFrameRate
	}
	return &TickerScheduler{interval: time.Second / time.Duration(rate)}
}

// Interval returns the time between frames
func (s *TickerScheduler) Interval() time.Duration {
	return s.interval
}

// Schedule calls fn on every tick from a dedicated goroutine. Ticks that fire
// while fn is still running are skipped by the ticker. The returned cancel
// waits for a running fn to return.
func (s *TickerScheduler) Schedule(fn func()) func() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if ctx.Err() != nil {
					return
				}
				fn()
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
}
