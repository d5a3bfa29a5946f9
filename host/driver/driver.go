// Package driver is the host-side counterpart of a generated board. It
// computes the board's register layout from the peripheral counts alone,
// without access to the firmware build, and exposes typed operations on top
// of a word-addressed register bus.
package driver

import (
	"fmt"

	"fpgacnc/protocol"
)

// Bus is the word-addressed register access the driver runs on. Both the
// serial transport and an in-process register file satisfy it.
type Bus interface {
	ReadWords(addr, count int) ([]uint32, error)
	WriteWords(addr int, words []uint32) error
}

// Counts holds the peripheral instance counts of a board. The register
// layout is a pure function of these numbers; host and device must be built
// from the same configuration or every access lands on the wrong register.
type Counts struct {
	GPIOIn   int
	GPIOOut  int
	PWMs     int
	Stepgens int
	Encoders int
}

// Layout holds the computed word address of every register block. An
// address of -1 means the block is absent because its peripheral count is
// zero.
type Layout struct {
	Counts Counts

	// Write side.
	WatchdogData         int
	GPIOOut              int
	PWMBase              int // 3 words per instance: enable, period, width
	StepgenStepLen       int
	StepgenDirHoldTime   int
	StepgenDirSetupTime  int
	StepgenApplyTime     int // 2 words
	StepgenCommandBase   int // 2 words per instance: speed, max acceleration
	EncoderIndexEnable   int
	EncoderResetIndexPls int

	// Read side.
	WatchdogHasBitten  int
	WallClock          int // 2 words
	GPIOIn             int
	StepgenPosBase     int // 2 words per instance
	EncoderIndexPulse  int
	EncoderCounterBase int // 1 word per instance

	// TotalWords is the full register file size in words.
	TotalWords int
}

// flagWords returns the words occupied by a flag register over n instances.
func flagWords(n int) int {
	return (n + 31) / 32
}

// ComputeLayout derives the register layout from the peripheral counts,
// walking the blocks in the same fixed order the firmware allocates them.
func ComputeLayout(counts Counts) Layout {
	l := Layout{
		Counts:               counts,
		GPIOOut:              -1,
		PWMBase:              -1,
		StepgenStepLen:       -1,
		StepgenDirHoldTime:   -1,
		StepgenDirSetupTime:  -1,
		StepgenApplyTime:     -1,
		StepgenCommandBase:   -1,
		EncoderIndexEnable:   -1,
		EncoderResetIndexPls: -1,
		GPIOIn:               -1,
		StepgenPosBase:       -1,
		EncoderIndexPulse:    -1,
		EncoderCounterBase:   -1,
	}

	addr := 0
	next := func(words int) int {
		a := addr
		addr += words
		return a
	}

	// Write side.
	l.WatchdogData = next(1)
	if counts.GPIOOut > 0 {
		l.GPIOOut = next(flagWords(counts.GPIOOut))
	}
	if counts.PWMs > 0 {
		l.PWMBase = next(3 * counts.PWMs)
	}
	if counts.Stepgens > 0 {
		l.StepgenStepLen = next(1)
		l.StepgenDirHoldTime = next(1)
		l.StepgenDirSetupTime = next(1)
		l.StepgenApplyTime = next(2)
		l.StepgenCommandBase = next(2 * counts.Stepgens)
	}
	if counts.Encoders > 0 {
		l.EncoderIndexEnable = next(flagWords(counts.Encoders))
		l.EncoderResetIndexPls = next(flagWords(counts.Encoders))
	}

	// Read side.
	l.WatchdogHasBitten = next(1)
	l.WallClock = next(2)
	if counts.GPIOIn > 0 {
		l.GPIOIn = next(flagWords(counts.GPIOIn))
	}
	if counts.Stepgens > 0 {
		l.StepgenPosBase = next(2 * counts.Stepgens)
	}
	if counts.Encoders > 0 {
		l.EncoderIndexPulse = next(flagWords(counts.Encoders))
		l.EncoderCounterBase = next(counts.Encoders)
	}

	l.TotalWords = addr
	return l
}

// Fingerprint condenses the layout into a checksum suitable for a cheap
// configuration match check between host and device builds.
func (l Layout) Fingerprint() uint16 {
	c := l.Counts
	return protocol.CRC16([]byte{
		byte(c.GPIOIn), byte(c.GPIOOut),
		byte(c.PWMs), byte(c.Stepgens), byte(c.Encoders),
		byte(l.TotalWords), byte(l.TotalWords >> 8),
	})
}

// flagLocation returns the word address and mask of flag bit for instance i
// in the flag register at base. Bit 0 of the lowest-numbered instances lives
// in the last word of the register, matching a big-endian multi-word value.
func (l Layout) flagLocation(base, instances, i int) (int, uint32) {
	words := flagWords(instances)
	return base + words - 1 - i/32, 1 << (uint(i) % 32)
}

// Driver drives one board over a register bus.
type Driver struct {
	bus    Bus
	layout Layout
}

// New creates a driver for a board with the given peripheral counts.
func New(bus Bus, counts Counts) *Driver {
	return &Driver{bus: bus, layout: ComputeLayout(counts)}
}

// Layout exposes the computed register layout.
func (d *Driver) Layout() Layout {
	return d.layout
}

// readWord reads a single register word.
func (d *Driver) readWord(addr int) (uint32, error) {
	words, err := d.bus.ReadWords(addr, 1)
	if err != nil {
		return 0, err
	}
	return words[0], nil
}

// read64 reads a 64-bit register, most significant word first.
func (d *Driver) read64(addr int) (uint64, error) {
	words, err := d.bus.ReadWords(addr, 2)
	if err != nil {
		return 0, err
	}
	return uint64(words[0])<<32 | uint64(words[1]), nil
}

// write64 writes a 64-bit register, most significant word first.
func (d *Driver) write64(addr int, v uint64) error {
	return d.bus.WriteWords(addr, []uint32{uint32(v >> 32), uint32(v)})
}

// WatchdogEnableBit marks the watchdog data register's enable flag.
const WatchdogEnableBit = 1 << 31

// SetWatchdog arms the watchdog with a timeout in clock ticks, or disarms
// it. Writing also clears a previous timeout and reloads the countdown, so
// this doubles as the periodic keep-alive.
func (d *Driver) SetWatchdog(enable bool, timeoutTicks uint32) error {
	data := timeoutTicks &^ uint32(WatchdogEnableBit)
	if enable {
		data |= WatchdogEnableBit
	}
	return d.bus.WriteWords(d.layout.WatchdogData, []uint32{data})
}

// HasBitten reports whether the watchdog timed out.
func (d *Driver) HasBitten() (bool, error) {
	w, err := d.readWord(d.layout.WatchdogHasBitten)
	if err != nil {
		return false, err
	}
	return w&1 != 0, nil
}

// WallClock reads the free-running tick counter.
func (d *Driver) WallClock() (uint64, error) {
	return d.read64(d.layout.WallClock)
}

// SetOutputs writes all GPIO output bits at once, bit i driving pin i.
func (d *Driver) SetOutputs(bits []uint32) error {
	if d.layout.GPIOOut < 0 {
		return fmt.Errorf("board has no output pins")
	}
	want := flagWords(d.layout.Counts.GPIOOut)
	if len(bits) != want {
		return fmt.Errorf("gpio out needs %d words, got %d", want, len(bits))
	}
	return d.bus.WriteWords(d.layout.GPIOOut, bits)
}

// SetOutputPin drives a single output pin, read-modify-write on its word.
func (d *Driver) SetOutputPin(pin int, high bool) error {
	if d.layout.GPIOOut < 0 || pin < 0 || pin >= d.layout.Counts.GPIOOut {
		return fmt.Errorf("no output pin %d", pin)
	}
	addr, mask := d.layout.flagLocation(d.layout.GPIOOut, d.layout.Counts.GPIOOut, pin)
	w, err := d.readWord(addr)
	if err != nil {
		return err
	}
	if high {
		w |= mask
	} else {
		w &^= mask
	}
	return d.bus.WriteWords(addr, []uint32{w})
}

// InputPin reads a single GPIO input pin.
func (d *Driver) InputPin(pin int) (bool, error) {
	if d.layout.GPIOIn < 0 || pin < 0 || pin >= d.layout.Counts.GPIOIn {
		return false, fmt.Errorf("no input pin %d", pin)
	}
	addr, mask := d.layout.flagLocation(d.layout.GPIOIn, d.layout.Counts.GPIOIn, pin)
	w, err := d.readWord(addr)
	if err != nil {
		return false, err
	}
	return w&mask != 0, nil
}

// ConfigurePWM writes one PWM instance's enable, period and width.
func (d *Driver) ConfigurePWM(index int, enable bool, period, width uint32) error {
	if index < 0 || index >= d.layout.Counts.PWMs {
		return fmt.Errorf("no pwm instance %d", index)
	}
	en := uint32(0)
	if enable {
		en = 1
	}
	return d.bus.WriteWords(d.layout.PWMBase+3*index, []uint32{en, period, width})
}

// StepTiming bundles the pulse-shape settings shared by all step generators.
type StepTiming struct {
	StepLen      uint32
	DirHoldTime  uint32
	DirSetupTime uint32
}

// SetStepTiming writes the shared step pulse timing registers.
func (d *Driver) SetStepTiming(t StepTiming) error {
	if d.layout.Counts.Stepgens == 0 {
		return fmt.Errorf("board has no step generators")
	}
	return d.bus.WriteWords(d.layout.StepgenStepLen,
		[]uint32{t.StepLen, t.DirHoldTime, t.DirSetupTime})
}

// SetSpeed queues a speed command for one step generator. The command takes
// effect when the device's wall clock reaches the apply time previously set
// with SetApplyTime.
func (d *Driver) SetSpeed(index int, speed int32, maxAccel uint32) error {
	if index < 0 || index >= d.layout.Counts.Stepgens {
		return fmt.Errorf("no step generator %d", index)
	}
	return d.bus.WriteWords(d.layout.StepgenCommandBase+2*index,
		[]uint32{uint32(speed), maxAccel})
}

// SetApplyTime sets the wall clock tick at which queued speed commands
// activate, so commands for multiple axes take effect together.
func (d *Driver) SetApplyTime(tick uint64) error {
	if d.layout.Counts.Stepgens == 0 {
		return fmt.Errorf("board has no step generators")
	}
	return d.write64(d.layout.StepgenApplyTime, tick)
}

// Position reads one step generator's position accumulator.
func (d *Driver) Position(index int) (int64, error) {
	if index < 0 || index >= d.layout.Counts.Stepgens {
		return 0, fmt.Errorf("no step generator %d", index)
	}
	v, err := d.read64(d.layout.StepgenPosBase + 2*index)
	return int64(v), err
}

// SetIndexEnable arms one encoder so its next index pulse resets the
// counter. The device clears the flag after the reset fires.
func (d *Driver) SetIndexEnable(index int) error {
	return d.setEncoderFlag(d.layout.EncoderIndexEnable, index)
}

// AckIndexPulse acknowledges one encoder's latched index pulse. The device
// clears both the pulse and the acknowledge flag.
func (d *Driver) AckIndexPulse(index int) error {
	return d.setEncoderFlag(d.layout.EncoderResetIndexPls, index)
}

func (d *Driver) setEncoderFlag(base, index int) error {
	if base < 0 || index < 0 || index >= d.layout.Counts.Encoders {
		return fmt.Errorf("no encoder %d", index)
	}
	addr, mask := d.layout.flagLocation(base, d.layout.Counts.Encoders, index)
	w, err := d.readWord(addr)
	if err != nil {
		return err
	}
	return d.bus.WriteWords(addr, []uint32{w | mask})
}

// IndexPulse reads one encoder's latched index pulse flag.
func (d *Driver) IndexPulse(index int) (bool, error) {
	if d.layout.EncoderIndexPulse < 0 || index < 0 || index >= d.layout.Counts.Encoders {
		return false, fmt.Errorf("no encoder %d", index)
	}
	addr, mask := d.layout.flagLocation(d.layout.EncoderIndexPulse, d.layout.Counts.Encoders, index)
	w, err := d.readWord(addr)
	if err != nil {
		return false, err
	}
	return w&mask != 0, nil
}

// Counter reads one encoder's signed count.
func (d *Driver) Counter(index int) (int32, error) {
	if d.layout.EncoderCounterBase < 0 || index < 0 || index >= d.layout.Counts.Encoders {
		return 0, fmt.Errorf("no encoder %d", index)
	}
	w, err := d.readWord(d.layout.EncoderCounterBase + index)
	return int32(w), err
}

// Counters reads all encoder counts in one transfer.
func (d *Driver) Counters() ([]int32, error) {
	n := d.layout.Counts.Encoders
	if n == 0 {
		return nil, nil
	}
	words, err := d.bus.ReadWords(d.layout.EncoderCounterBase, n)
	if err != nil {
		return nil, err
	}
	counts := make([]int32, n)
	for i, w := range words {
		counts[i] = int32(w)
	}
	return counts, nil
}
