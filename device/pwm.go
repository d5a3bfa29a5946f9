package device

// PWM is one pulse-width-modulated output. The output is high while the
// cycle counter is below the commanded width. The watchdog gates the output:
// a tripped watchdog forces it low and restarts the cycle.
type PWM struct {
	counter uint32
}

// Tick advances the output one clock cycle. blocked is the watchdog gate.
func (p *PWM) Tick(enable bool, period, width uint32, blocked bool) bool {
	if !enable || blocked || period == 0 {
		p.counter = 0
		return false
	}

	out := p.counter < width
	p.counter++
	if p.counter >= period {
		p.counter = 0
	}
	return out
}
