package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeMeasurement(t *testing.T) {
	t.Parallel()

	t.Run("converts fixed-point fields to SI units", func(t *testing.T) {
		t.Parallel()
		// 12.345m, azimuth 90°, inclination 45°, roll 180°, sequence bit set
		frame := []byte{
			TypeMeasurement | SequenceBitMask,
			0x39, 0x30, // 12345 mm
			0x00, 0x40, // 16384 = 90°
			0x00, 0x20, // 8192 = 45°
			0x80, // roll 180°
		}

		msg, err := Decode(frame)
		require.NoError(t, err)
		require.Equal(t, MessageMeasurement, msg.Type)
		require.NotNil(t, msg.Measurement)

		assert.True(t, msg.SequenceBit)
		assert.InDelta(t, 12.345, msg.Measurement.Distance, 1e-9)
		assert.InDelta(t, 90.0, msg.Measurement.Azimuth, 1e-9)
		assert.InDelta(t, 45.0, msg.Measurement.Inclination, 1e-9)
		assert.InDelta(t, 180.0, msg.Measurement.Roll, 1e-9)
		assert.False(t, msg.Measurement.Timestamp.IsZero())
	})

	t.Run("distance extension bit adds bit 16", func(t *testing.T) {
		t.Parallel()
		// extension bit plus zero low bits = 65.536m
		frame := []byte{TypeMeasurement | DistanceExtMask, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}

		msg, err := Decode(frame)
		require.NoError(t, err)
		assert.InDelta(t, 65.536, msg.Measurement.Distance, 1e-9)
	})

	t.Run("negative inclination", func(t *testing.T) {
		t.Parallel()
		// -16384 = -90°
		frame := []byte{TypeMeasurement, 0x00, 0x00, 0x00, 0x00, 0x00, 0xC0, 0x00}

		msg, err := Decode(frame)
		require.NoError(t, err)
		assert.InDelta(t, -90.0, msg.Measurement.Inclination, 1e-9)
	})

	t.Run("azimuth stays in canonical range", func(t *testing.T) {
		t.Parallel()
		// 65535 units is just below a full turn
		frame := []byte{TypeMeasurement, 0x00, 0x00, 0xFF, 0xFF, 0x00, 0x00, 0x00}

		msg, err := Decode(frame)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, msg.Measurement.Azimuth, 0.0)
		assert.Less(t, msg.Measurement.Azimuth, 360.0)
		assert.InDelta(t, 360.0-AzimuthResolution, msg.Measurement.Azimuth, 1e-9)
	})

	t.Run("round-trips through the frame encoder", func(t *testing.T) {
		t.Parallel()
		cases := []struct {
			name          string
			dist, az, inc float64
		}{
			{"level shot", 10.00, 45.0, 5.0},
			{"steep shot", 3.25, 359.9, -72.5},
			{"long shot", 101.5, 180.0, 0.0},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				t.Parallel()
				msg, err := Decode(EncodeMeasurementFrame(true, tc.dist, tc.az, tc.inc))
				require.NoError(t, err)
				assert.True(t, msg.SequenceBit)
				assert.InDelta(t, tc.dist, msg.Measurement.Distance, DistanceResolution)
				assert.InDelta(t, tc.az, msg.Measurement.Azimuth, AzimuthResolution)
				assert.InDelta(t, tc.inc, msg.Measurement.Inclination, InclinationResolution)
			})
		}
	})
}

func TestDecodeCalibrationSample(t *testing.T) {
	t.Parallel()

	t.Run("accelerometer sample", func(t *testing.T) {
		t.Parallel()
		frame := []byte{
			TypeCalibAccel,
			0x01, 0x00, // x = 1
			0xFF, 0xFF, // y = -1
			0x00, 0x40, // z = 16384
			0x00,
		}

		msg, err := Decode(frame)
		require.NoError(t, err)
		require.Equal(t, MessageCalibrationSample, msg.Type)
		require.NotNil(t, msg.Calibration)
		assert.Equal(t, CalibrationAccel, msg.Calibration.Kind)
		assert.Equal(t, int16(1), msg.Calibration.X)
		assert.Equal(t, int16(-1), msg.Calibration.Y)
		assert.Equal(t, int16(16384), msg.Calibration.Z)
	})

	t.Run("magnetometer sample carries sequence bit", func(t *testing.T) {
		t.Parallel()
		frame := []byte{TypeCalibMag | SequenceBitMask, 0, 0, 0, 0, 0, 0, 0}

		msg, err := Decode(frame)
		require.NoError(t, err)
		assert.Equal(t, CalibrationMag, msg.Calibration.Kind)
		assert.True(t, msg.SequenceBit)
	})
}

func TestDecodeDeviceInfo(t *testing.T) {
	t.Parallel()

	msg, err := Decode([]byte{TypeDeviceInfo, 2, 5, 0x6C, 0x0E, 0, 0, 0})
	require.NoError(t, err)
	require.Equal(t, MessageDeviceInfo, msg.Type)
	assert.Equal(t, uint8(2), msg.DeviceInfo.FirmwareMajor)
	assert.Equal(t, uint8(5), msg.DeviceInfo.FirmwareMinor)
	assert.Equal(t, uint16(3692), msg.DeviceInfo.BatteryMillivolt)
}

func TestDecodeAck(t *testing.T) {
	t.Parallel()

	msg, err := Decode([]byte{TypeAck, OpLaserOn, 0, 0, 0, 0, 0, 0})
	require.NoError(t, err)
	require.Equal(t, MessageAck, msg.Type)
	assert.Equal(t, OpLaserOn, msg.AckOpcode)
}

func TestDecodeUnknownDiscriminator(t *testing.T) {
	t.Parallel()

	// Well-formed frame with a discriminator this firmware does not define:
	// decodes to Unknown rather than failing, for firmware tolerance.
	frame := []byte{0x3F | SequenceBitMask, 1, 2, 3, 4, 5, 6, 7}

	msg, err := Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, MessageUnknown, msg.Type)
	assert.True(t, msg.SequenceBit)
	assert.Equal(t, uint8(0x3F), msg.RawType)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7}, msg.RawPayload)
}

func TestDecodeMalformed(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		frame []byte
	}{
		{"empty", nil},
		{"short", []byte{TypeMeasurement, 0x00, 0x00}},
		{"long", make([]byte, FrameSize+1)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Decode(tc.frame)
			require.ErrorIs(t, err, ErrMalformedPacket)
		})
	}
}
