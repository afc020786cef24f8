// Package units provides shared constants and validation for distance units.
package units

// Unit constants. Survey instruments and legacy cave data use both metric and
// imperial lengths; the pipeline stores meters and converts only for display.
const (
	Meters = "m"
	Feet   = "ft"
)

// ValidUnits contains all valid unit values.
var ValidUnits = []string{Meters, Feet}

// IsValid checks if the given unit is in the list of valid units.
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for
// error messages.
func GetValidUnitsString() string {
	return "m, ft"
}

// ConvertDistance converts a distance from meters to the target units.
// Internally every distance is in meters.
func ConvertDistance(meters float64, targetUnits string) float64 {
	switch targetUnits {
	case Feet:
		return meters / 0.3048 // exact international foot
	case Meters:
		return meters
	default:
		return meters // default to meters if unknown unit
	}
}
