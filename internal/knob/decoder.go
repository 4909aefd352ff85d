package knob

// channel is the debounce state for one encoder phase.
type channel struct {
	level    uint8
	debounce uint8
}

// evaluate folds one raw sample into the channel and reports whether it
// confirmed a detent. Only a rise to high can confirm; the low branch only
// builds up or resets the dwell count. The dwell count saturates at 255
// rather than wrapping, so a very long low dwell still confirms on release.
func (c *channel) evaluate(raw uint8) bool {
	if raw != 0 {
		raw = 1
	}
	fired := false
	if raw == 0 {
		if raw != c.level {
			c.debounce = 0
		} else if c.debounce < 0xff {
			c.debounce++
		}
	} else {
		if raw != c.level && int(c.debounce)+1 >= DebounceTicks {
			fired = true
		}
		c.debounce = 0
	}
	c.level = raw
	return fired
}
