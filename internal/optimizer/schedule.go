package optimizer

// Schedule computes a cyclical triangular learning rate. The rate rises
// linearly from FloorLR to PeakLR over the first half of each cycle and
// falls back to FloorLR over the second half.
type Schedule struct {
	PeakLR  float64
	FloorLR float64
	Period  int
}

// DefaultSchedule returns the schedule used for Glow-style training runs.
func DefaultSchedule() Schedule {
	return Schedule{PeakLR: 3e-3, FloorLR: 1e-4, Period: 10000}
}

// LearningRate returns the learning rate for the given training step.
func (s Schedule) LearningRate(step int) float64 {
	if s.Period <= 0 {
		return s.FloorLR
	}
	if step < 0 {
		step = 0
	}
	inCycle := float64(step % s.Period)
	span := s.PeakLR - s.FloorLR
	frac := inCycle / float64(s.Period)
	if inCycle < float64(s.Period)/2 {
		return s.FloorLR + span*2*frac
	}
	return s.FloorLR + span*2*(1-frac)
}
