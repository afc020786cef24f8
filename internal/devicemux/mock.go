package devicemux

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"time"
)

// NewScripted creates a DeviceMux that replays the given frame bytes on a
// timer, simulating a device emitting readings. Writes (command frames) are
// discarded. Used for -dev mode and demos.
func NewScripted(script []byte, interval time.Duration) *DeviceMux[*scriptedPort] {
	r, w := io.Pipe()

	go func() {
		defer w.Close()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			if _, err := w.Write(script); err != nil {
				return
			}
		}
	}()

	return New(&scriptedPort{reader: r})
}

type scriptedPort struct {
	reader *io.PipeReader
}

func (p *scriptedPort) Read(b []byte) (int, error)  { return p.reader.Read(b) }
func (p *scriptedPort) Write(b []byte) (int, error) { return len(b), nil }
func (p *scriptedPort) Close() error                { return p.reader.Close() }

// TestablePort implements Porter with configurable behaviour for unit tests:
// scripted reads, captured writes, injectable errors, optional blocking.
type TestablePort struct {
	mu sync.Mutex

	// ReadBuffer holds data to be returned by Read calls.
	ReadBuffer *bytes.Buffer

	// WriteBuffer captures data written to the port.
	WriteBuffer *bytes.Buffer

	// ReadError is returned by the next Read call if set.
	ReadError error

	// WriteError is returned by the next Write call if set.
	WriteError error

	// CloseError is returned by Close if set.
	CloseError error

	// Closed indicates whether Close was called.
	Closed bool

	// BlockReads causes Read to block until data is added or Close is called.
	BlockReads bool

	// ReadTimeout is the current read timeout.
	ReadTimeout time.Duration

	readCond *sync.Cond
}

// NewTestablePort creates a TestablePort with empty buffers.
func NewTestablePort() *TestablePort {
	p := &TestablePort{
		ReadBuffer:  bytes.NewBuffer(nil),
		WriteBuffer: bytes.NewBuffer(nil),
	}
	p.readCond = sync.NewCond(&p.mu)
	return p
}

// Read returns scripted data, optionally blocking until some is available.
func (p *TestablePort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Closed {
		return 0, errors.New("serial port closed")
	}

	if p.ReadError != nil {
		err := p.ReadError
		p.ReadError = nil
		return 0, err
	}

	if p.BlockReads && p.ReadBuffer.Len() == 0 {
		for !p.Closed && p.ReadBuffer.Len() == 0 {
			p.readCond.Wait()
		}
		if p.Closed {
			return 0, errors.New("serial port closed")
		}
	}

	return p.ReadBuffer.Read(b)
}

// Write captures command frames for later inspection.
func (p *TestablePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Closed {
		return 0, errors.New("serial port closed")
	}

	if p.WriteError != nil {
		err := p.WriteError
		p.WriteError = nil
		return 0, err
	}

	return p.WriteBuffer.Write(b)
}

// Close marks the port as closed and wakes blocked readers.
func (p *TestablePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Closed = true
	p.readCond.Broadcast()

	return p.CloseError
}

// SetReadTimeout implements TimeoutPorter.
func (p *TestablePort) SetReadTimeout(timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.ReadTimeout = timeout
	return nil
}

// AddReadData queues data for subsequent Read calls and wakes a blocked
// reader.
func (p *TestablePort) AddReadData(data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.ReadBuffer.Write(data)
	p.readCond.Signal()
}

// WrittenData returns everything written to the port so far.
func (p *TestablePort) WrittenData() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.WriteBuffer.Bytes()
}
