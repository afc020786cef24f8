// Package classify implements smart-mode shot detection: a size-bounded
// sliding window over incoming measurements that separates one-off splay
// readings from deliberate triple-repeated survey legs.
package classify

import (
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/speleodata/shotline/internal/geom"
)

// Smart-mode thresholds. A triple of readings is one survey leg when every
// pair agrees within both bounds (strict less-than). These match the device
// vendor's published tolerances and are not runtime-configurable.
const (
	// DistanceThreshold is the maximum pairwise difference in meters.
	DistanceThreshold = 0.05
	// AngleThreshold is the maximum pairwise angular separation in degrees.
	AngleThreshold = 1.7
	// WindowSize is the number of repeats that confirm a survey leg.
	WindowSize = 3
)

// RawMeasurement is one deduplicated reading from the device. Distance is in
// meters, azimuth in degrees [0,360), inclination in degrees [-90,90].
// Immutable once constructed.
type RawMeasurement struct {
	Distance    float64
	Azimuth     float64
	Inclination float64
	Timestamp   time.Time
}

// ShotType separates single splay readings from averaged survey legs.
type ShotType int

const (
	Splay ShotType = iota
	SurveyShot
)

func (t ShotType) String() string {
	if t == SurveyShot {
		return "survey"
	}
	return "splay"
}

// DetectedShot is one classified measurement emitted to the consumer. A
// SurveyShot averages exactly three constituent measurements; a Splay wraps
// exactly one, unchanged. Constituents are in arrival order.
type DetectedShot struct {
	Type         ShotType
	Distance     float64
	Azimuth      float64
	Inclination  float64
	Constituents []RawMeasurement
}

// Classifier is the smart-mode state machine. Its only state is the pending
// buffer of at most WindowSize measurements awaiting classification; there is
// no separate state enum. It is not safe for concurrent use: the pipeline
// feeds it from a single goroutine in transport arrival order, which is what
// makes the sliding window correct.
type Classifier struct {
	pending   []RawMeasurement
	notifiers notifierList
}

// NewClassifier returns an empty classifier.
func NewClassifier() *Classifier {
	return &Classifier{pending: make([]RawMeasurement, 0, WindowSize)}
}

// PendingCount returns the number of measurements awaiting classification,
// for status display.
func (c *Classifier) PendingCount() int {
	return len(c.pending)
}

// AddMeasurement appends one reading to the pending window and classifies if
// the window is full. It returns the emitted shot, or nil while the window is
// still filling. Subscribers are notified synchronously before return.
//
// With a full window of three, the triple is one survey leg iff every pair
// agrees within DistanceThreshold and AngleThreshold; the emitted SurveyShot
// averages all three and the window empties. On a pattern break only the
// oldest reading is evicted as a Splay and the two most recent stay pending
// for comparison against later arrivals. Eviction is deliberately one at a
// time; the survivors are not re-tested against each other until the next
// arrival completes a new triple.
func (c *Classifier) AddMeasurement(m RawMeasurement) *DetectedShot {
	c.pending = append(c.pending, m)
	if len(c.pending) < WindowSize {
		return nil
	}

	if c.windowMatches() {
		shot := c.emitSurveyShot()
		c.pending = c.pending[:0]
		return shot
	}

	shot := c.emitSplay(c.pending[0])
	c.pending = append(c.pending[:0], c.pending[1:]...)
	return shot
}

// Flush classifies nothing further: every pending measurement is emitted as
// an individual Splay, oldest first, and the window empties. Used when the
// surveyor ends a session or switches context before a triple completes.
func (c *Classifier) Flush() []*DetectedShot {
	shots := make([]*DetectedShot, 0, len(c.pending))
	for _, m := range c.pending {
		shots = append(shots, c.emitSplay(m))
	}
	c.pending = c.pending[:0]
	return shots
}

// Clear discards all pending measurements without emitting anything, as on an
// explicit user cancel.
func (c *Classifier) Clear() {
	c.pending = c.pending[:0]
}

// windowMatches reports whether every pair in the full window agrees within
// both thresholds. Both comparisons are strict.
func (c *Classifier) windowMatches() bool {
	vecs := make([]r3.Vec, len(c.pending))
	for i, m := range c.pending {
		vecs[i] = geom.ToVector(m.Azimuth, m.Inclination)
	}
	for i := 0; i < len(c.pending); i++ {
		for j := i + 1; j < len(c.pending); j++ {
			distanceDiff := c.pending[i].Distance - c.pending[j].Distance
			if distanceDiff < 0 {
				distanceDiff = -distanceDiff
			}
			if distanceDiff >= DistanceThreshold {
				return false
			}
			if geom.AngularSeparation(vecs[i], vecs[j]) >= AngleThreshold {
				return false
			}
		}
	}
	return true
}

// emitSurveyShot averages the full window into one survey leg.
func (c *Classifier) emitSurveyShot() *DetectedShot {
	distances := make([]float64, len(c.pending))
	vecs := make([]r3.Vec, len(c.pending))
	constituents := make([]RawMeasurement, len(c.pending))
	for i, m := range c.pending {
		distances[i] = m.Distance
		vecs[i] = geom.ToVector(m.Azimuth, m.Inclination)
		constituents[i] = m
	}

	azimuth, inclination := geom.ToAngles(geom.AverageDirections(vecs))
	shot := &DetectedShot{
		Type:         SurveyShot,
		Distance:     geom.AverageDistances(distances),
		Azimuth:      azimuth,
		Inclination:  inclination,
		Constituents: constituents,
	}
	c.notifiers.notify(shot)
	return shot
}

// emitSplay wraps a single measurement, unchanged.
func (c *Classifier) emitSplay(m RawMeasurement) *DetectedShot {
	shot := &DetectedShot{
		Type:         Splay,
		Distance:     m.Distance,
		Azimuth:      m.Azimuth,
		Inclination:  m.Inclination,
		Constituents: []RawMeasurement{m},
	}
	c.notifiers.notify(shot)
	return shot
}
