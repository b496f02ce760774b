package navigation

// Tracker latches arrival so it is reported once per approach rather than
// once per sample.
type Tracker struct {
	state ProximityState
}

func (t *Tracker) State() ProximityState {
	if t.state == "" {
		return StateApproaching
	}
	return t.state
}

func (t *Tracker) Reset() {
	t.state = StateApproaching
}

// Observe feeds one distance measurement. Arrival is only latched once the
// destination's place name is known.
func (t *Tracker) Observe(distance float64, placeKnown bool) Transition {
	switch t.State() {
	case StateApproaching:
		if distance <= ArrivalThresholdMeters && placeKnown {
			t.state = StateArrived
			return TransitionArrived
		}
	case StateArrived:
		if distance > ArrivalThresholdMeters {
			t.state = StateApproaching
			return TransitionDeparted
		}
	}
	return TransitionNone
}
