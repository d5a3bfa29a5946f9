package device

// Quadrature encoder decode logic.
//
// The A, B and Z lines originate outside the clock domain, so each one runs
// through a 3-deep sampling history before anything looks at it; only the
// two delayed slots ever feed the decode (the classical two-flip-flop
// synchronizer, plus one more slot for edge detection). For each pulse it
// takes 3 clock cycles to process the signal, which puts the count rate
// ceiling at clock/3.

// EncoderParams is the per-instance configuration the logic needs. It is
// derived from a validated EncoderConfig; the logic itself never checks
// bounds ordering.
type EncoderParams struct {
	// HasIndex is false when no Z pin is configured. The index registers
	// still exist for layout stability, but index behavior is statically
	// disabled: the pulse flag stays false and index-enable never fires.
	HasIndex bool
	// Min and Max bound the counter inclusively; nil means unbounded.
	Min, Max *int32
	// Reset is the initial counter value and the value restored on reset.
	Reset int32
}

// EncoderIn is the per-tick input sample: the raw pins plus this instance's
// bits of the shared command registers and the global reset line.
type EncoderIn struct {
	A, B, Z         bool
	Reset           bool
	IndexEnable     bool
	ResetIndexPulse bool
}

// EncoderOut is the per-tick output. Counter and IndexPulse are the status
// values; the Clear flags report that the device consumed a one-shot command
// bit this tick and its register bit must be cleared.
type EncoderOut struct {
	Counter              int32
	IndexPulse           bool
	ClearIndexEnable     bool
	ClearResetIndexPulse bool
}

// step classifies what one tick does to the counter. Classification is
// explicit so the precedence between a reset and a coinciding count edge is
// a tested transition instead of an accident of signal timing.
type step uint8

const (
	stepIdle step = iota
	stepCount
	stepIndexReset
	stepGlobalReset
)

// Encoder is the decode state machine for one quadrature encoder instance.
type Encoder struct {
	params EncoderParams

	// Sampling histories. Slot 0 is the raw sample taken last tick; the
	// decode only reads slots 1 and 2.
	histA, histB, histZ [3]bool

	counter    int32
	indexPulse bool
}

// NewEncoder returns an encoder with its counter at the reset value.
func NewEncoder(params EncoderParams) *Encoder {
	return &Encoder{params: params, counter: params.Reset}
}

// Counter returns the current count.
func (e *Encoder) Counter() int32 { return e.counter }

// IndexPulse returns the latched index pulse flag.
func (e *Encoder) IndexPulse() bool { return e.indexPulse }

// Tick advances the state machine one clock cycle.
func (e *Encoder) Tick(in EncoderIn) EncoderOut {
	// Decode from the delayed samples only, never the raw inputs.
	a1, a2 := e.histA[1], e.histA[2]
	b1, b2 := e.histB[1], e.histB[2]
	z1, z2 := e.histZ[1], e.histZ[2]

	// Any edge on either channel is a count event (4x resolution); the
	// phase relation between the delayed samples gives the direction.
	countEnable := (a1 != a2) != (b1 != b2)
	countDir := a1 != b2
	indexRise := e.params.HasIndex && z1 && !z2

	out := EncoderOut{}

	// Index pulse latch. A rising edge sets the flag; the host acknowledge
	// clears it. When the acknowledge and a fresh edge coincide, the
	// acknowledge wins: the host has already seen a pulse. The acknowledge
	// bit is consumed in the same cycle, so the host never needs a second
	// write to undo its own request.
	pulse := e.indexPulse
	if indexRise {
		pulse = true
	}
	if in.ResetIndexPulse && e.indexPulse {
		pulse = false
		out.ClearResetIndexPulse = true
	}
	e.indexPulse = pulse

	switch e.classify(in, countEnable, indexRise) {
	case stepGlobalReset, stepIndexReset:
		// Reset outranks a coinciding count edge: the counter lands exactly
		// on the reset value, never one off. Index enable is one-shot and
		// is consumed by the reset.
		e.counter = e.params.Reset
		if in.IndexEnable {
			out.ClearIndexEnable = true
		}
	case stepCount:
		if countDir {
			e.increment()
		} else {
			e.decrement()
		}
	}

	// Shift the raw samples in for the next tick.
	e.histA = [3]bool{in.A, e.histA[0], e.histA[1]}
	e.histB = [3]bool{in.B, e.histB[0], e.histB[1]}
	e.histZ = [3]bool{in.Z, e.histZ[0], e.histZ[1]}

	out.Counter = e.counter
	out.IndexPulse = e.indexPulse
	return out
}

// classify picks the transition for this tick, highest precedence first.
func (e *Encoder) classify(in EncoderIn, countEnable, indexRise bool) step {
	switch {
	case in.Reset:
		return stepGlobalReset
	case in.IndexEnable && indexRise:
		return stepIndexReset
	case countEnable:
		return stepCount
	default:
		return stepIdle
	}
}

// increment advances the counter, saturating at the maximum bound.
func (e *Encoder) increment() {
	if e.params.Max != nil && e.counter >= *e.params.Max {
		return
	}
	e.counter++
}

// decrement retreats the counter, saturating at the minimum bound.
func (e *Encoder) decrement() {
	if e.params.Min != nil && e.counter <= *e.params.Min {
		return
	}
	e.counter--
}
