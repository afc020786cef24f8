// Package devicemux provides an abstraction over the rangefinder's serial
// link: one goroutine owns the port, reads fixed-size protocol frames, feeds
// them to the ingest pipeline in arrival order, and fans out best-effort
// copies to debug subscribers. Outbound commands are serialised through the
// same owner.
package devicemux

import (
	"bytes"
	"context"
	"embed"
	"encoding/hex"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"tailscale.com/tsweb"

	"github.com/speleodata/shotline/internal/protocol"
)

var ErrWriteFailed = fmt.Errorf("failed to write to serial port")

//go:embed templates/*
var adminTemplateFS embed.FS

var sendCommandTemplate = template.Must(template.ParseFS(adminTemplateFS, "templates/send-command.html.tmpl"))

// frameChanDepth bounds how far the port reader may run ahead of the
// pipeline before backpressure applies.
const frameChanDepth = 16

// DeviceMux multiplexes a single rangefinder serial port: the primary frame
// stream is delivered losslessly and in order on Frames(), while any number
// of subscribers receive best-effort copies for debugging.
type DeviceMux[T Porter] struct {
	port         T
	frames       chan []byte
	done         chan struct{}
	framesOnce   sync.Once
	subscribers  map[string]chan []byte
	subscriberMu sync.Mutex
	commandMu    sync.Mutex
	closing      bool
	closingMu    sync.Mutex
}

// Interface defines the device mux surface consumed by the pipeline and the
// admin layer.
type Interface interface {
	// Frames returns the ordered, lossless stream of inbound 8-byte frames.
	// There is exactly one intended reader: the ingest pipeline. The channel
	// closes when monitoring ends.
	Frames() <-chan []byte
	// Subscribe creates a best-effort channel of frame copies, identified by
	// the returned ID for Unsubscribe. Used by the debug tail.
	Subscribe() (string, chan []byte)
	// Unsubscribe removes a debug subscriber.
	Unsubscribe(string)
	// SendCommand encodes and writes a command frame to the device.
	SendCommand(protocol.Command) error
	// Monitor reads frames from the port until the context ends.
	Monitor(context.Context) error
	// Close closes all channels and the underlying port.
	Close() error

	// AttachAdminRoutes attaches debug endpoints (frame tail, send-command)
	// to the given mux under /debug/. These are reachable only over
	// localhost/Tailscale, never publicly.
	AttachAdminRoutes(*http.ServeMux)
}

// New creates a DeviceMux backed by the given port.
func New[T Porter](port T) *DeviceMux[T] {
	return &DeviceMux[T]{
		port:        port,
		frames:      make(chan []byte, frameChanDepth),
		done:        make(chan struct{}),
		subscribers: make(map[string]chan []byte),
	}
}

// Frames returns the primary ordered frame stream.
func (m *DeviceMux[T]) Frames() <-chan []byte {
	return m.frames
}

// Subscribe registers a best-effort debug subscriber.
func (m *DeviceMux[T]) Subscribe() (string, chan []byte) {
	id := uuid.NewString()
	ch := make(chan []byte)
	m.subscriberMu.Lock()
	defer m.subscriberMu.Unlock()
	m.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes a debug subscriber and closes its channel.
func (m *DeviceMux[T]) Unsubscribe(id string) {
	m.subscriberMu.Lock()
	defer m.subscriberMu.Unlock()
	if ch, ok := m.subscribers[id]; ok {
		close(ch)
		delete(m.subscribers, id)
	}
}

// SendCommand encodes the command into its 8-byte frame and writes it to the
// port. Writes are serialised so concurrent callers cannot interleave frames.
func (m *DeviceMux[T]) SendCommand(cmd protocol.Command) error {
	frame, err := protocol.EncodeCommand(cmd)
	if err != nil {
		return err
	}
	m.commandMu.Lock()
	defer m.commandMu.Unlock()
	n, err := m.port.Write(frame)
	if err != nil {
		return err
	}
	if n != len(frame) {
		return ErrWriteFailed
	}
	return nil
}

// Monitor reads fixed-size frames from the port and delivers them until the
// context is cancelled or the port fails. Delivery on the primary stream
// blocks, preserving arrival order end to end; debug subscribers are lossy.
func (m *DeviceMux[T]) Monitor(ctx context.Context) error {
	// The primary stream closes when monitoring ends, signalling the
	// pipeline that no further frames can arrive.
	defer m.framesOnce.Do(func() { close(m.frames) })

	frameChan := make(chan []byte)
	readErrChan := make(chan error, 1)

	// Reader goroutine so the blocking ReadFull cannot wedge the select loop
	// against context cancellation.
	go func() {
		defer close(frameChan)
		for {
			frame := make([]byte, protocol.FrameSize)
			if _, err := io.ReadFull(m.port, frame); err != nil {
				if err != io.EOF {
					select {
					case readErrChan <- err:
					case <-ctx.Done():
					}
				}
				return
			}
			select {
			case frameChan <- frame:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-readErrChan:
			return err

		case frame, ok := <-frameChan:
			if !ok {
				return nil
			}
			m.closingMu.Lock()
			if m.closing {
				m.closingMu.Unlock()
				return nil
			}
			m.closingMu.Unlock()

			// Primary stream first: the pipeline must see every frame, in
			// order. Backpressure here is intentional.
			select {
			case m.frames <- frame:
			case <-m.done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}

			m.subscriberMu.Lock()
			for _, ch := range m.subscribers {
				select {
				case ch <- frame:
				default:
					// skip slow debug subscribers rather than stall ingest
				}
			}
			m.subscriberMu.Unlock()
		}
	}
}

// Close stops monitoring, closes all subscriber channels, and closes the
// port. The primary stream is closed by Monitor on its way out.
func (m *DeviceMux[T]) Close() error {
	m.closingMu.Lock()
	if m.closing {
		m.closingMu.Unlock()
		return nil
	}
	m.closing = true
	m.closingMu.Unlock()

	close(m.done)

	m.subscriberMu.Lock()
	defer m.subscriberMu.Unlock()
	for id, ch := range m.subscribers {
		close(ch)
		delete(m.subscribers, id)
	}
	return m.port.Close()
}

// AttachAdminRoutes attaches the frame tail and send-command debug endpoints.
func (m *DeviceMux[T]) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)

	debug.HandleFunc("send-command", "send a command frame to the device", func(w http.ResponseWriter, r *http.Request) {
		buf := bytes.NewBuffer(nil)
		if err := sendCommandTemplate.Execute(buf, nil); err != nil {
			http.Error(w, "Failed to render template", http.StatusInternalServerError)
			return
		}
		io.Copy(w, buf)
	})

	debug.HandleSilentFunc("send-command-api", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		name := strings.TrimSpace(r.FormValue("command"))
		cmd, ok := commandByName(name)
		if !ok {
			http.Error(w, "Unknown command", http.StatusBadRequest)
			return
		}
		if err := m.SendCommand(cmd); err != nil {
			http.Error(w, "Failed to write command", http.StatusInternalServerError)
			return
		}
		io.WriteString(w, fmt.Sprintf("Wrote command %q to device", name))
	})

	// SSE tail of inbound frames, hex encoded.
	debug.HandleSilentFunc("tail", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no") // Disable buffering for nginx

		id, c := m.Subscribe()
		defer m.Unsubscribe(id)

		w.Write([]byte(": ping\n\n"))
		w.(http.Flusher).Flush()

		for {
			select {
			case frame, ok := <-c:
				if !ok {
					return
				}
				if _, err := fmt.Fprintf(w, "data: %s\n\n", hex.EncodeToString(frame)); err != nil {
					return
				}
				w.(http.Flusher).Flush()
			case <-r.Context().Done():
				return
			}
		}
	})

	debug.HandleSilentFunc("tail.js", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/javascript")
		w.Header().Set("Cache-Control", "no-cache")

		f, err := adminTemplateFS.Open("templates/tail.js")
		if err != nil {
			http.Error(w, "Failed to open tail.js", http.StatusInternalServerError)
			return
		}
		defer f.Close()
		io.Copy(w, f)
	})
}

// commandByName maps the admin form's command tokens to protocol commands.
// Only argument-free commands are exposed here.
func commandByName(name string) (protocol.Command, bool) {
	switch name {
	case "laser-on":
		return protocol.LaserOn{}, true
	case "laser-off":
		return protocol.LaserOff{}, true
	case "power-off":
		return protocol.PowerOff{}, true
	case "start-calibration":
		return protocol.StartCalibration{}, true
	case "stop-calibration":
		return protocol.StopCalibration{}, true
	default:
		return nil, false
	}
}
