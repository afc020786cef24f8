package classify

import "github.com/google/uuid"

// ShotFunc receives each emitted shot synchronously, in emission order, from
// within AddMeasurement and Flush. Handlers must not call back into the
// classifier.
type ShotFunc func(*DetectedShot)

// notifierList is an ordered subscriber registry. An explicit list keyed by
// random IDs replaces a single mutable callback field so multiple consumers
// (recorder, status display, tests) can observe shots independently.
type notifierList struct {
	ids   []string
	funcs map[string]ShotFunc
}

// OnShotDetected registers fn for every subsequently emitted shot and returns
// an ID for removal.
func (c *Classifier) OnShotDetected(fn ShotFunc) string {
	if c.notifiers.funcs == nil {
		c.notifiers.funcs = make(map[string]ShotFunc)
	}
	id := uuid.NewString()
	c.notifiers.ids = append(c.notifiers.ids, id)
	c.notifiers.funcs[id] = fn
	return id
}

// RemoveShotListener deregisters a subscriber by ID. Unknown IDs are ignored.
func (c *Classifier) RemoveShotListener(id string) {
	if _, ok := c.notifiers.funcs[id]; !ok {
		return
	}
	delete(c.notifiers.funcs, id)
	for i, existing := range c.notifiers.ids {
		if existing == id {
			c.notifiers.ids = append(c.notifiers.ids[:i], c.notifiers.ids[i+1:]...)
			break
		}
	}
}

func (l *notifierList) notify(shot *DetectedShot) {
	for _, id := range l.ids {
		l.funcs[id](shot)
	}
}
