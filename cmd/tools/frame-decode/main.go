// Command frame-decode reads hex-encoded device frames from stdin, one per
// line (the format produced by the debug tail endpoint), and prints decoded
// measurements as CSV. Non-measurement frames are reported on stderr.
package main

import (
	"bufio"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/speleodata/shotline/internal/protocol"
	"github.com/speleodata/shotline/internal/units"
)

func main() {
	distanceUnits := flag.String("units", units.Meters, "Distance units for output ("+units.GetValidUnitsString()+")")
	flag.Parse()

	if !units.IsValid(*distanceUnits) {
		fmt.Fprintf(os.Stderr, "invalid units %q: valid values are %s\n", *distanceUnits, units.GetValidUnitsString())
		os.Exit(1)
	}

	fmt.Printf("seq,distance_%s,azimuth_deg,inclination_deg,roll_deg\n", *distanceUnits)

	scan := bufio.NewScanner(os.Stdin)
	lineNo := 0
	for scan.Scan() {
		lineNo++
		line := strings.TrimSpace(scan.Text())
		if line == "" {
			continue
		}

		frame, err := hex.DecodeString(line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "line %d: bad hex: %v\n", lineNo, err)
			continue
		}

		msg, err := protocol.Decode(frame)
		if err != nil {
			fmt.Fprintf(os.Stderr, "line %d: %v\n", lineNo, err)
			continue
		}

		switch msg.Type {
		case protocol.MessageMeasurement:
			m := msg.Measurement
			seq := 0
			if msg.SequenceBit {
				seq = 1
			}
			fmt.Printf("%d,%.3f,%.2f,%.2f,%.1f\n", seq,
				units.ConvertDistance(m.Distance, *distanceUnits), m.Azimuth, m.Inclination, m.Roll)
		case protocol.MessageCalibrationSample:
			c := msg.Calibration
			fmt.Fprintf(os.Stderr, "line %d: calibration kind=%d x=%d y=%d z=%d\n", lineNo, c.Kind, c.X, c.Y, c.Z)
		case protocol.MessageDeviceInfo:
			i := msg.DeviceInfo
			fmt.Fprintf(os.Stderr, "line %d: device info fw=%d.%d battery=%dmV\n", lineNo, i.FirmwareMajor, i.FirmwareMinor, i.BatteryMillivolt)
		case protocol.MessageAck:
			fmt.Fprintf(os.Stderr, "line %d: ack opcode=0x%02X\n", lineNo, msg.AckOpcode)
		default:
			fmt.Fprintf(os.Stderr, "line %d: unknown type 0x%02X\n", lineNo, msg.RawType)
		}
	}
	if err := scan.Err(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
