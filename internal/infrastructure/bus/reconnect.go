package bus

import (
	"sync"
	"time"
)

// backoff tracks the reconnect delay sequence: starting at base, doubling
// on each failed attempt up to max, and resetting to base on success.
type backoff struct {
	base time.Duration
	max  time.Duration

	cur time.Duration
	mu  sync.Mutex
}

// newBackoff creates a backoff starting at base and capped at max.
func newBackoff(base, max time.Duration) *backoff {
	return &backoff{
		base: base,
		max:  max,
		cur:  base,
	}
}

// Current returns the delay for the next attempt.
func (b *backoff) Current() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cur
}

// Advance doubles the delay, capped at max.
func (b *backoff) Advance() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cur *= 2
	if b.cur > b.max {
		b.cur = b.max
	}
}

// Reset returns the delay to its base value.
func (b *backoff) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cur = b.base
}

// startReconnect launches the background reconnect loop if one is not
// already running. Called on unexpected disconnects only.
func (c *Client) startReconnect() {
	c.reconnectMu.Lock()
	if c.reconnecting {
		c.reconnectMu.Unlock()
		return
	}
	c.reconnecting = true
	c.reconnectMu.Unlock()

	c.wg.Add(1)
	go c.reconnectLoop()
}

// reconnectLoop retries the broker connection with exponential backoff.
// The wait uses a timer selected against the shutdown channel, so
// Disconnect interrupts an in-progress sleep rather than merely
// preventing the next one. The loop exits on success or shutdown.
func (c *Client) reconnectLoop() {
	defer c.wg.Done()
	defer func() {
		c.reconnectMu.Lock()
		c.reconnecting = false
		c.reconnectMu.Unlock()
	}()

	for {
		delay := c.backoff.Current()
		c.logInfo("attempting reconnect", "delay", delay)

		timer := time.NewTimer(delay)
		select {
		case <-c.done:
			timer.Stop()
			return
		case <-timer.C:
		}

		if err := c.Connect(); err != nil {
			c.logWarn("reconnect attempt failed", "error", err)
			c.backoff.Advance()
			continue
		}

		// Connect resets the backoff; handleConnect restores subscriptions.
		return
	}
}
