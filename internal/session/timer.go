package session

import (
	"sync"
	"time"
)

// Countdown drives one question's time budget. Starting it again supersedes
// the previous run; a superseded run never fires its callbacks again.
type Countdown struct {
	mu        sync.Mutex
	interval  time.Duration
	gen       uint64
	remaining int
	stop      chan struct{}
}

// NewCountdown builds a countdown that ticks every interval (one second in production).
func NewCountdown(interval time.Duration) *Countdown {
	if interval <= 0 {
		interval = time.Second
	}
	return &Countdown{interval: interval}
}

// Start begins counting down from seconds. onTick receives the remaining seconds
// after each decrement; onExpire runs once when zero is reached. Both run on the
// countdown goroutine.
func (c *Countdown) Start(seconds int, onTick func(remaining int), onExpire func()) {
	if seconds < 0 {
		seconds = 0
	}

	c.mu.Lock()
	c.stopLocked()
	c.gen++
	gen := c.gen
	c.remaining = seconds
	stop := make(chan struct{})
	c.stop = stop
	c.mu.Unlock()

	go c.run(gen, stop, onTick, onExpire)
}

// Stop cancels the active run, if any.
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
	c.gen++
}

// Remaining returns the seconds left on the active run, never negative.
func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

func (c *Countdown) stopLocked() {
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
}

func (c *Countdown) run(gen uint64, stop <-chan struct{}, onTick func(int), onExpire func()) {
	if c.expireIfZero(gen) {
		if onExpire != nil {
			onExpire()
		}
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			remaining, ok := c.decrement(gen)
			if !ok {
				return
			}
			if onTick != nil {
				onTick(remaining)
			}
			if remaining == 0 {
				if c.current(gen) && onExpire != nil {
					onExpire()
				}
				return
			}
		}
	}
}

func (c *Countdown) decrement(gen uint64) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return 0, false
	}
	if c.remaining > 0 {
		c.remaining--
	}
	return c.remaining, true
}

func (c *Countdown) expireIfZero(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen == gen && c.remaining == 0
}

func (c *Countdown) current(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen == gen
}
