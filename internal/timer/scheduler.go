package timer

import (
	"sync"
	"time"
)

// Stopper stops a periodic callback. Stop may be called more than once.
type Stopper interface {
	Stop()
}

// Scheduler runs fn every interval until the returned Stopper is stopped.
type Scheduler interface {
	Every(interval time.Duration, fn func()) Stopper
}

// TickerScheduler backs each periodic callback with its own goroutine
// and time.Ticker.
type TickerScheduler struct{}

func (TickerScheduler) Every(interval time.Duration, fn func()) Stopper {
	t := &tickerTimer{
		ticker: time.NewTicker(interval),
		stopCh: make(chan struct{}),
	}
	go t.run(fn)
	return t
}

type tickerTimer struct {
	ticker *time.Ticker
	stopCh chan struct{}
	once   sync.Once
}

func (t *tickerTimer) run(fn func()) {
	defer t.ticker.Stop()
	for {
		select {
		case <-t.ticker.C:
			// a tick and a stop can be ready together; stop wins
			select {
			case <-t.stopCh:
				return
			default:
			}
			fn()
		case <-t.stopCh:
			return
		}
	}
}

func (t *tickerTimer) Stop() {
	t.once.Do(func() {
		close(t.stopCh)
	})
}
