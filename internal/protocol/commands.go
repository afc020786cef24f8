package protocol

import "fmt"

// Outbound command opcodes. This is a fixed lookup table matching the device
// firmware; the values must be preserved bit-for-bit to remain compatible
// with the physical hardware.
const (
	OpStopCalibration  uint8 = 0x30 // leave calibration mode
	OpStartCalibration uint8 = 0x31 // enter calibration mode (device streams raw samples)
	OpPowerOff         uint8 = 0x34 // immediate device power-down
	OpLaserOn          uint8 = 0x36 // switch the ranging laser on
	OpLaserOff         uint8 = 0x37 // switch the ranging laser off
	OpReadMemory       uint8 = 0x38 // read 4 bytes of device memory at an address
	OpAck              uint8 = 0x55 // acknowledge a measurement (sequence bit in bit 7)
)

// Command is an outbound device request. Implementations serialise themselves
// into a fixed 8-byte frame; encoding is pure and deterministic.
type Command interface {
	// Opcode returns the command's wire opcode, excluding any flag bits.
	Opcode() uint8
	encode(frame *[FrameSize]byte)
}

// Acknowledge confirms receipt of a measurement frame. The device retransmits
// a reading until it sees an ack carrying the same sequence bit, so the
// acknowledgement must echo the bit of the frame being confirmed.
type Acknowledge struct {
	SequenceBit bool
}

func (a Acknowledge) Opcode() uint8 { return OpAck }

func (a Acknowledge) encode(frame *[FrameSize]byte) {
	frame[0] = OpAck
	if a.SequenceBit {
		frame[0] |= SequenceBitMask
	}
}

// LaserOn switches the ranging laser on.
type LaserOn struct{}

func (LaserOn) Opcode() uint8 { return OpLaserOn }
func (LaserOn) encode(frame *[FrameSize]byte) { frame[0] = OpLaserOn }

// LaserOff switches the ranging laser off.
type LaserOff struct{}

func (LaserOff) Opcode() uint8 { return OpLaserOff }
func (LaserOff) encode(frame *[FrameSize]byte) { frame[0] = OpLaserOff }

// PowerOff powers the device down.
type PowerOff struct{}

func (PowerOff) Opcode() uint8 { return OpPowerOff }
func (PowerOff) encode(frame *[FrameSize]byte) { frame[0] = OpPowerOff }

// StartCalibration puts the device into calibration mode, after which it
// streams raw accelerometer/magnetometer samples instead of measurements.
type StartCalibration struct{}

func (StartCalibration) Opcode() uint8 { return OpStartCalibration }
func (StartCalibration) encode(frame *[FrameSize]byte) { frame[0] = OpStartCalibration }

// StopCalibration returns the device to normal measurement mode.
type StopCalibration struct{}

func (StopCalibration) Opcode() uint8 { return OpStopCalibration }
func (StopCalibration) encode(frame *[FrameSize]byte) { frame[0] = OpStopCalibration }

// ReadMemory requests 4 bytes of device memory, used to read stored
// calibration coefficients. The address is packed little-endian after the
// opcode.
type ReadMemory struct {
	Address uint16
}

func (ReadMemory) Opcode() uint8 { return OpReadMemory }

func (r ReadMemory) encode(frame *[FrameSize]byte) {
	frame[0] = OpReadMemory
	frame[1] = byte(r.Address)
	frame[2] = byte(r.Address >> 8)
}

// EncodeCommand serialises a command into the 8-byte frame the device
// expects. Unused payload bytes are zero.
func EncodeCommand(cmd Command) ([]byte, error) {
	if cmd == nil {
		return nil, fmt.Errorf("nil command")
	}
	var frame [FrameSize]byte
	cmd.encode(&frame)
	return frame[:], nil
}
