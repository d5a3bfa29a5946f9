package device

// GPIOIn samples asynchronous input pins into the gpio_in register. Each pin
// runs through a 2-deep synchronizer; the register carries the delayed
// sample, never the raw pin.
type GPIOIn struct {
	hist [][2]bool
}

// NewGPIOIn returns a sampler for n input pins.
func NewGPIOIn(n int) *GPIOIn {
	return &GPIOIn{hist: make([][2]bool, n)}
}

// Tick shifts the raw pin states in and returns the synchronized samples.
func (g *GPIOIn) Tick(pins []bool) []bool {
	out := make([]bool, len(g.hist))
	for i := range g.hist {
		out[i] = g.hist[i][1]
		raw := i < len(pins) && pins[i]
		g.hist[i] = [2]bool{raw, g.hist[i][0]}
	}
	return out
}
