package stream

import (
	"context"
	"sync"

	"github.com/sdrlabs/iqgen/internal/metrics"
)

// Broadcaster fans out generated I/Q blocks from one source to N listeners.
type Broadcaster struct {
	mu        sync.RWMutex
	listeners map[*Listener]struct{}
}

// Listener receives I/Q blocks from the broadcaster.
type Listener struct {
	C    chan []byte // buffered channel of output blocks
	done chan struct{}
}

// NewBroadcaster creates a new broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		listeners: make(map[*Listener]struct{}),
	}
}

// Subscribe registers a new listener. Returns a Listener that receives blocks.
func (b *Broadcaster) Subscribe() *Listener {
	l := &Listener{
		C:    make(chan []byte, 16),
		done: make(chan struct{}),
	}
	b.mu.Lock()
	b.listeners[l] = struct{}{}
	b.mu.Unlock()
	metrics.StreamListeners.Inc()
	return l
}

// Unsubscribe removes a listener and signals it to stop.
func (b *Broadcaster) Unsubscribe(l *Listener) {
	b.mu.Lock()
	delete(b.listeners, l)
	b.mu.Unlock()
	close(l.done)
	metrics.StreamListeners.Dec()
}

// ListenerCount returns the number of active listeners.
func (b *Broadcaster) ListenerCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners)
}

// Run reads blocks from source and fans out to all listeners.
// Slow listeners get blocks dropped rather than blocking the broadcast.
func (b *Broadcaster) Run(ctx context.Context, source <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case block, ok := <-source:
			if !ok {
				return
			}
			b.mu.RLock()
			for l := range b.listeners {
				select {
				case l.C <- block:
				default:
					// listener too slow, drop the block to keep generation moving
					metrics.BlocksDroppedTotal.Inc()
				}
			}
			b.mu.RUnlock()
		}
	}
}
