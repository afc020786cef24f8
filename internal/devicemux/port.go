package devicemux

import (
	"io"
	"time"
)

// Porter is the minimal interface the mux needs from a serial port. The
// abstraction enables unit testing without rangefinder hardware.
type Porter interface {
	io.ReadWriter
	io.Closer
}

// TimeoutPorter extends Porter with a read timeout. Ports may optionally
// implement it.
type TimeoutPorter interface {
	Porter
	SetReadTimeout(timeout time.Duration) error
}
