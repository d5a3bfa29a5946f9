package device

// Stepgen generates step and direction signals for one motor channel. The
// position accumulator is 64-bit fixed point with 32 fractional bits: the
// commanded speed is added once per tick, so one whole step corresponds to a
// carry out of the low word. Speed changes slew toward the command at the
// configured acceleration limit instead of jumping.

// StepgenIn is the per-tick command sample for one channel.
type StepgenIn struct {
	// TargetSpeed is the commanded speed in position units per tick.
	TargetSpeed int32
	// MaxAccel limits the speed change per tick; 0 means unlimited.
	MaxAccel int32
	// StepLen is the step pulse width in ticks.
	StepLen uint32
	// DirHold is the quiet time around a direction change in ticks.
	DirHold uint32
	// Enable is false while the watchdog gates the channel.
	Enable bool
}

// StepgenOut is the per-tick output for one channel.
type StepgenOut struct {
	Position int64
	Step     bool
	Dir      bool
}

// Stepgen is the step generation state for one channel.
type Stepgen struct {
	speed    int32
	position int64
	dir      bool

	stepTimer uint32 // remaining ticks of the current step pulse
	dirTimer  uint32 // remaining quiet ticks after a direction change
}

// Position returns the current position accumulator.
func (s *Stepgen) Position() int64 { return s.position }

// Tick advances the channel one clock cycle.
func (s *Stepgen) Tick(in StepgenIn) StepgenOut {
	target := in.TargetSpeed
	if !in.Enable {
		target = 0
	}

	// Slew the speed toward the target.
	diff := int64(target) - int64(s.speed)
	if in.MaxAccel > 0 {
		limit := int64(in.MaxAccel)
		if diff > limit {
			diff = limit
		} else if diff < -limit {
			diff = -limit
		}
	}
	s.speed += int32(diff)

	oldWhole := s.position >> 32
	s.position += int64(s.speed)
	newWhole := s.position >> 32

	// Direction changes wait for the current pulse and the quiet window.
	wantDir := s.speed >= 0
	if wantDir != s.dir && s.stepTimer == 0 && s.dirTimer == 0 {
		s.dir = wantDir
		s.dirTimer = in.DirHold
	}
	if s.dirTimer > 0 {
		s.dirTimer--
	}

	// Emit a pulse for every whole-step boundary the accumulator crossed.
	if s.stepTimer > 0 {
		s.stepTimer--
	} else if newWhole != oldWhole && s.dirTimer == 0 {
		s.stepTimer = in.StepLen
	}

	return StepgenOut{
		Position: s.position,
		Step:     s.stepTimer > 0,
		Dir:      s.dir,
	}
}
