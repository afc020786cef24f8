// Package pipeline wires the ingest chain: raw frames from the device mux are
// decoded, deduplicated on the sequence bit, converted to raw measurements,
// and classified into detected shots, strictly in transport arrival order.
package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/speleodata/shotline/internal/classify"
	"github.com/speleodata/shotline/internal/devicemux"
	"github.com/speleodata/shotline/internal/monitoring"
	"github.com/speleodata/shotline/internal/protocol"
)

// CalibrationFunc receives decoded calibration samples. The calibration
// fitting algorithm lives outside this module.
type CalibrationFunc func(protocol.CalibrationSample)

// Session owns one connection's ingest state: the sequence guard and the
// classifier window. Opening a new session (as on reconnect) starts with
// fresh state, which is what resets the duplicate filter.
//
// Frame processing runs to completion, including shot notification, before
// the next frame is accepted; Clear and Flush interleave between frames,
// never during one.
type Session struct {
	id         string
	mux        devicemux.Interface
	guard      *protocol.SequenceGuard
	classifier *classify.Classifier

	// autoAck controls whether accepted measurement frames are acknowledged
	// back to the device. The device retransmits until acked.
	autoAck bool

	onCalibration CalibrationFunc

	mu       sync.Mutex
	lastInfo *protocol.DeviceInfo
}

// Option configures a Session.
type Option func(*Session)

// WithAutoAck enables acknowledging accepted measurement frames.
func WithAutoAck() Option {
	return func(s *Session) { s.autoAck = true }
}

// WithCalibrationHandler routes decoded calibration samples to fn.
func WithCalibrationHandler(fn CalibrationFunc) Option {
	return func(s *Session) { s.onCalibration = fn }
}

// NewSession creates a session over the given mux with fresh dedup and
// classifier state.
func NewSession(mux devicemux.Interface, opts ...Option) *Session {
	s := &Session{
		id:         uuid.NewString(),
		mux:        mux,
		guard:      protocol.NewSequenceGuard(),
		classifier: classify.NewClassifier(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// OnShotDetected registers fn for every emitted shot; it is invoked
// synchronously from frame processing, in emission order.
func (s *Session) OnShotDetected(fn classify.ShotFunc) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.classifier.OnShotDetected(fn)
}

// RemoveShotListener deregisters a shot subscriber.
func (s *Session) RemoveShotListener(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.classifier.RemoveShotListener(id)
}

// Run consumes frames from the mux until the context ends or the frame
// stream closes. Each frame is fully processed before the next is read.
func (s *Session) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case frame, ok := <-s.mux.Frames():
			if !ok {
				return nil
			}
			if err := s.ProcessFrame(frame); err != nil {
				// Malformed frames are fatal to that frame only; decoding
				// resumes on the next one.
				monitoring.Logf("dropping frame: %v", err)
			}
		}
	}
}

// ProcessFrame decodes one frame and routes the result. Measurement frames
// pass the sequence guard before reaching the classifier, so a retransmitted
// reading never inflates the pending window.
func (s *Session) ProcessFrame(frame []byte) error {
	msg, err := protocol.Decode(frame)
	if err != nil {
		return fmt.Errorf("session %s: %w", s.id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch msg.Type {
	case protocol.MessageMeasurement:
		if !s.guard.Accept(msg.SequenceBit) {
			// Retransmission of the reading we already have. Expected
			// protocol behaviour, not an error; re-ack so the device stops.
			s.acknowledge(msg.SequenceBit)
			return nil
		}
		s.acknowledge(msg.SequenceBit)
		m := msg.Measurement
		s.classifier.AddMeasurement(classify.RawMeasurement{
			Distance:    m.Distance,
			Azimuth:     m.Azimuth,
			Inclination: m.Inclination,
			Timestamp:   m.Timestamp,
		})

	case protocol.MessageCalibrationSample:
		if s.onCalibration != nil {
			s.onCalibration(*msg.Calibration)
		}

	case protocol.MessageDeviceInfo:
		info := *msg.DeviceInfo
		s.lastInfo = &info
		monitoring.Logf("device info: firmware %d.%d, battery %dmV",
			info.FirmwareMajor, info.FirmwareMinor, info.BatteryMillivolt)

	case protocol.MessageAck:
		monitoring.Logf("device ack for opcode 0x%02X", msg.AckOpcode)

	default:
		monitoring.Logf("unknown frame type 0x%02X payload %x", msg.RawType, msg.RawPayload)
	}
	return nil
}

// acknowledge sends the ack command echoing the given sequence bit. Failures
// are logged, not returned: the device will simply retransmit and the guard
// will drop the duplicate.
func (s *Session) acknowledge(sequenceBit bool) {
	if !s.autoAck {
		return
	}
	if err := s.mux.SendCommand(protocol.Acknowledge{SequenceBit: sequenceBit}); err != nil {
		monitoring.Logf("failed to ack measurement: %v", err)
	}
}

// Flush emits every pending measurement as an individual splay, oldest
// first, and empties the window.
func (s *Session) Flush() []*classify.DetectedShot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.classifier.Flush()
}

// Clear abandons all pending smart-mode state without emitting anything.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.classifier.Clear()
}

// PendingCount returns the classifier's pending window length, for status
// display.
func (s *Session) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.classifier.PendingCount()
}

// DeviceInfo returns the most recently received device info, or nil if none
// has arrived this session.
func (s *Session) DeviceInfo() *protocol.DeviceInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastInfo == nil {
		return nil
	}
	info := *s.lastInfo
	return &info
}
