// Package geom provides the pure direction math used by shot classification:
// conversion between compass angles and 3-D unit vectors, angular separation,
// and direction/distance averaging.
//
// Working on unit vectors rather than raw angles is what gives the classifier
// correct behaviour across the 0/360 azimuth seam and folds inclination into
// the same comparison, with no wraparound special cases.
package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"
)

const (
	degToRad = math.Pi / 180
	radToDeg = 180 / math.Pi

	// poleEpsilon bounds |up| beyond which a direction is treated as vertical
	// and azimuth becomes meaningless.
	poleEpsilon = 1e-9
)

// ToVector converts an (azimuth, inclination) pair in degrees to a unit
// vector in the local (east, north, up) frame. Azimuth is measured clockwise
// from north, inclination upward from horizontal.
func ToVector(azimuthDeg, inclinationDeg float64) r3.Vec {
	az := azimuthDeg * degToRad
	inc := inclinationDeg * degToRad
	cosInc := math.Cos(inc)
	return r3.Vec{
		X: cosInc * math.Sin(az), // east
		Y: cosInc * math.Cos(az), // north
		Z: math.Sin(inc),         // up
	}
}

// ToAngles converts a direction vector back to (azimuth, inclination) in
// degrees, azimuth in [0,360) and inclination in [-90,90]. At the poles
// (|up| ≈ 1) azimuth is undefined; by convention it is returned as 0.
func ToAngles(v r3.Vec) (azimuthDeg, inclinationDeg float64) {
	u := r3.Unit(v)
	if 1-math.Abs(u.Z) < poleEpsilon {
		if u.Z > 0 {
			return 0, 90
		}
		return 0, -90
	}
	azimuthDeg = math.Atan2(u.X, u.Y) * radToDeg
	if azimuthDeg < 0 {
		azimuthDeg += 360
	}
	inclinationDeg = math.Asin(clamp(u.Z)) * radToDeg
	return azimuthDeg, inclinationDeg
}

// AngularSeparation returns the angle in degrees between two direction
// vectors: arccos of the clamped dot product. Both inputs are expected to be
// unit vectors.
func AngularSeparation(a, b r3.Vec) float64 {
	return math.Acos(clamp(r3.Dot(a, b))) * radToDeg
}

// AverageDirections returns the normalised component-wise mean of the given
// unit vectors. Averaging in vector space handles the circular-mean problem
// for azimuth naturally. The input must be non-empty and not sum to zero.
func AverageDirections(vecs []r3.Vec) r3.Vec {
	var sum r3.Vec
	for _, v := range vecs {
		sum = r3.Add(sum, v)
	}
	return r3.Unit(sum)
}

// AverageDistances returns the arithmetic mean of the given distances.
func AverageDistances(distances []float64) float64 {
	return stat.Mean(distances, nil)
}

// clamp bounds a cosine to [-1,1] so rounding noise cannot push Acos/Asin
// out of domain.
func clamp(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
