package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestToVector(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		az, inc  float64
		want     r3.Vec
	}{
		{"north horizontal", 0, 0, r3.Vec{X: 0, Y: 1, Z: 0}},
		{"east horizontal", 90, 0, r3.Vec{X: 1, Y: 0, Z: 0}},
		{"south horizontal", 180, 0, r3.Vec{X: 0, Y: -1, Z: 0}},
		{"west horizontal", 270, 0, r3.Vec{X: -1, Y: 0, Z: 0}},
		{"straight up", 0, 90, r3.Vec{X: 0, Y: 0, Z: 1}},
		{"straight down", 0, -90, r3.Vec{X: 0, Y: 0, Z: -1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := ToVector(tc.az, tc.inc)
			assert.InDelta(t, tc.want.X, got.X, 1e-12)
			assert.InDelta(t, tc.want.Y, got.Y, 1e-12)
			assert.InDelta(t, tc.want.Z, got.Z, 1e-12)
		})
	}
}

func TestToAnglesRoundTrip(t *testing.T) {
	t.Parallel()

	// Away from the poles the pair must invert within floating tolerance.
	for az := 0.0; az < 360.0; az += 17.3 {
		for inc := -85.0; inc <= 85.0; inc += 21.1 {
			gotAz, gotInc := ToAngles(ToVector(az, inc))
			assert.InDelta(t, az, gotAz, 1e-9, "azimuth at (%.1f, %.1f)", az, inc)
			assert.InDelta(t, inc, gotInc, 1e-9, "inclination at (%.1f, %.1f)", az, inc)
		}
	}
}

func TestToAnglesPoleConvention(t *testing.T) {
	t.Parallel()

	t.Run("vertical up", func(t *testing.T) {
		t.Parallel()
		az, inc := ToAngles(r3.Vec{X: 0, Y: 0, Z: 1})
		assert.Equal(t, 0.0, az)
		assert.Equal(t, 90.0, inc)
	})

	t.Run("vertical down", func(t *testing.T) {
		t.Parallel()
		az, inc := ToAngles(r3.Vec{X: 0, Y: 0, Z: -1})
		assert.Equal(t, 0.0, az)
		assert.Equal(t, -90.0, inc)
	})

	t.Run("non-unit vertical input is normalised", func(t *testing.T) {
		t.Parallel()
		az, inc := ToAngles(r3.Vec{X: 0, Y: 0, Z: 3.5})
		assert.Equal(t, 0.0, az)
		assert.Equal(t, 90.0, inc)
	})
}

func TestAngularSeparation(t *testing.T) {
	t.Parallel()

	t.Run("identical directions", func(t *testing.T) {
		t.Parallel()
		v := ToVector(123.4, -5.6)
		assert.InDelta(t, 0, AngularSeparation(v, v), 1e-6)
	})

	t.Run("invariant across the azimuth seam", func(t *testing.T) {
		t.Parallel()
		acrossSeam := AngularSeparation(ToVector(359.5, 0), ToVector(0, 0))
		withinSeam := AngularSeparation(ToVector(0, 0), ToVector(0.5, 0))
		assert.InDelta(t, 0.5, acrossSeam, 1e-9)
		assert.InDelta(t, 0.5, withinSeam, 1e-9)
		assert.InDelta(t, acrossSeam, withinSeam, 1e-9)
	})

	t.Run("folds inclination into the same measure", func(t *testing.T) {
		t.Parallel()
		sep := AngularSeparation(ToVector(45, 10), ToVector(45, 12))
		assert.InDelta(t, 2.0, sep, 1e-9)
	})

	t.Run("opposite directions", func(t *testing.T) {
		t.Parallel()
		sep := AngularSeparation(ToVector(0, 0), ToVector(180, 0))
		assert.InDelta(t, 180.0, sep, 1e-9)
	})

	t.Run("clamps rounding noise out of acos domain", func(t *testing.T) {
		t.Parallel()
		// A dot product can land epsilon above 1 for nearly identical unit
		// vectors; the result must be a number, not NaN.
		a := ToVector(30.000000001, 0)
		b := ToVector(30.0, 0)
		assert.False(t, math.IsNaN(AngularSeparation(a, b)))
	})
}

func TestAverageDirections(t *testing.T) {
	t.Parallel()

	t.Run("mean across the azimuth seam", func(t *testing.T) {
		t.Parallel()
		avg := AverageDirections([]r3.Vec{
			ToVector(359.0, 0),
			ToVector(1.0, 0),
		})
		az, inc := ToAngles(avg)
		assert.InDelta(t, 0.0, math.Min(az, 360-az), 1e-9)
		assert.InDelta(t, 0.0, inc, 1e-9)
	})

	t.Run("result is unit length", func(t *testing.T) {
		t.Parallel()
		avg := AverageDirections([]r3.Vec{
			ToVector(10, 5),
			ToVector(12, 7),
			ToVector(11, 6),
		})
		assert.InDelta(t, 1.0, r3.Norm(avg), 1e-12)
	})

	t.Run("single direction is returned unchanged", func(t *testing.T) {
		t.Parallel()
		v := ToVector(200, -30)
		avg := AverageDirections([]r3.Vec{v})
		assert.InDelta(t, 0, AngularSeparation(v, avg), 1e-9)
	})
}

func TestAverageDistances(t *testing.T) {
	t.Parallel()

	require.InDelta(t, 10.02, AverageDistances([]float64{10.00, 10.02, 10.04}), 1e-12)
	require.Equal(t, 5.0, AverageDistances([]float64{5.0}))
}
