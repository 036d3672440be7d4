package api

import (
	"sync"
	"time"
)

// KeepAlive keeps the backend session warm with a periodic identity
// probe. Probe failures are ignored; a real session expiry surfaces
// through the client's 401 broadcast on the next user-driven request.
type KeepAlive struct {
	client   *Client
	interval time.Duration
	stopCh   chan struct{}
	running  bool
	mu       sync.Mutex
}

// NewKeepAlive creates a new keep-alive pinger
func NewKeepAlive(client *Client, interval time.Duration) *KeepAlive {
	return &KeepAlive{
		client:   client,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background probe
func (k *KeepAlive) Start() {
	k.mu.Lock()
	if k.running {
		k.mu.Unlock()
		return
	}
	k.running = true
	k.mu.Unlock()

	go func() {
		ticker := time.NewTicker(k.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				_, _ = k.client.Identity()
			case <-k.stopCh:
				return
			}
		}
	}()
}

// Stop halts the background probe
func (k *KeepAlive) Stop() {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.running {
		close(k.stopCh)
		k.running = false
	}
}
