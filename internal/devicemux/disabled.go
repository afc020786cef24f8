package devicemux

import (
	"context"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/speleodata/shotline/internal/protocol"
)

// Disabled is a no-op device mux used when the rangefinder hardware is absent
// (-disable-device). It lets the server and admin routes run without a real
// device. Subscriber channels are tracked so they can be deterministically
// closed on Unsubscribe or Close, unblocking readers during shutdown.
type Disabled struct {
	mu          sync.Mutex
	frames      chan []byte
	subscribers map[string]chan []byte
	closing     bool
}

func NewDisabled() *Disabled {
	return &Disabled{
		frames:      make(chan []byte),
		subscribers: make(map[string]chan []byte),
	}
}

func (d *Disabled) Frames() <-chan []byte { return d.frames }

func (d *Disabled) Subscribe() (string, chan []byte) {
	id := uuid.NewString()
	ch := make(chan []byte)

	d.mu.Lock()
	if d.closing {
		// Already closing: hand back a closed channel so callers don't block.
		close(ch)
		d.mu.Unlock()
		return id, ch
	}
	d.subscribers[id] = ch
	d.mu.Unlock()
	return id, ch
}

func (d *Disabled) Unsubscribe(id string) {
	d.mu.Lock()
	if ch, ok := d.subscribers[id]; ok {
		close(ch)
		delete(d.subscribers, id)
	}
	d.mu.Unlock()
}

func (d *Disabled) SendCommand(protocol.Command) error { return nil }

func (d *Disabled) Monitor(ctx context.Context) error { <-ctx.Done(); return ctx.Err() }

func (d *Disabled) Close() error {
	d.mu.Lock()
	if d.closing {
		d.mu.Unlock()
		return nil
	}
	d.closing = true
	close(d.frames)
	for id, ch := range d.subscribers {
		close(ch)
		delete(d.subscribers, id)
	}
	d.mu.Unlock()
	return nil
}

func (d *Disabled) AttachAdminRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/debug/device-disabled", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("device disabled"))
	})
}
