package device

import "fmt"

// BoardParams carries the validated peripheral counts and per-encoder
// parameters the logic needs. It deliberately knows nothing about pins or
// JSON; the firmware package derives it from a validated configuration.
type BoardParams struct {
	Encoders []EncoderParams
	Stepgens int
	PWMs     int
	GPIOIn   int
	GPIOOut  int
}

type pwmRegs struct {
	enable, period, width Reg
}

type stepgenRegs struct {
	speed, maxAccel Reg
}

// Board wires every logic module to its slice of the register map and
// advances them in lockstep, one Tick per clock cycle.
type Board struct {
	file *RegisterFile

	// Write side.
	watchdogData       Reg
	gpioOut            Reg
	pwmRegs            []pwmRegs
	sgSteplen          Reg
	sgDirHold          Reg
	sgDirSetup         Reg
	sgApplyTime        Reg
	sgRegs             []stepgenRegs
	encIndexEnable     Reg
	encResetIndexPulse Reg

	// Read side.
	watchdogHasBitten Reg
	wallClockReg      Reg
	gpioIn            Reg
	sgPosition        []Reg
	encIndexPulse     Reg
	encCounters       []Reg

	watchdog      *Watchdog
	gpioSampler   *GPIOIn
	pwms          []*PWM
	stepgens      []*Stepgen
	appliedSpeed  []int32
	encoders      []*Encoder
	encoderParams []EncoderParams

	wallClock uint64
	reset     bool

	inputPins  []bool
	outputPins []bool
	pwmOut     []bool
	encPins    [][3]bool
	sgOut      []StepgenOut
}

// NewBoard builds the logic for a finalized register map. The map must have
// been generated from the same peripheral counts; a missing register means
// the two went out of step and is reported as an error.
func NewBoard(file *RegisterFile, p BoardParams) (*Board, error) {
	b := &Board{
		file:          file,
		watchdog:      NewWatchdog(),
		encoderParams: p.Encoders,
		inputPins:     make([]bool, p.GPIOIn),
		outputPins:    make([]bool, p.GPIOOut),
		pwmOut:        make([]bool, p.PWMs),
		encPins:       make([][3]bool, len(p.Encoders)),
		sgOut:         make([]StepgenOut, p.Stepgens),
		appliedSpeed:  make([]int32, p.Stepgens),
	}

	var err error
	reg := func(name string) Reg {
		if err != nil {
			return Reg{}
		}
		var r Reg
		r, err = file.Reg(name)
		return r
	}

	b.watchdogData = reg("watchdog_data")
	b.watchdogHasBitten = reg("watchdog_has_bitten")
	b.wallClockReg = reg("wall_clock")

	if p.GPIOOut > 0 {
		b.gpioOut = reg("gpio_out")
	}
	if p.GPIOIn > 0 {
		b.gpioIn = reg("gpio_in")
		b.gpioSampler = NewGPIOIn(p.GPIOIn)
	}

	for i := 0; i < p.PWMs; i++ {
		b.pwms = append(b.pwms, &PWM{})
		b.pwmRegs = append(b.pwmRegs, pwmRegs{
			enable: reg(fmt.Sprintf("pwm_%d_enable", i)),
			period: reg(fmt.Sprintf("pwm_%d_period", i)),
			width:  reg(fmt.Sprintf("pwm_%d_width", i)),
		})
	}

	if p.Stepgens > 0 {
		b.sgSteplen = reg("stepgen_steplen")
		b.sgDirHold = reg("stepgen_dir_hold_time")
		b.sgDirSetup = reg("stepgen_dir_setup_time")
		b.sgApplyTime = reg("stepgen_apply_time")
	}
	for i := 0; i < p.Stepgens; i++ {
		b.stepgens = append(b.stepgens, &Stepgen{})
		b.sgRegs = append(b.sgRegs, stepgenRegs{
			speed:    reg(fmt.Sprintf("stepgen_%d_speed", i)),
			maxAccel: reg(fmt.Sprintf("stepgen_%d_max_acceleration", i)),
		})
		b.sgPosition = append(b.sgPosition, reg(fmt.Sprintf("stepgen_%d_position", i)))
	}

	if len(p.Encoders) > 0 {
		b.encIndexEnable = reg("encoder_index_enable")
		b.encResetIndexPulse = reg("encoder_reset_index_pulse")
		b.encIndexPulse = reg("encoder_index_pulse")
	}
	for i, ep := range p.Encoders {
		b.encoders = append(b.encoders, NewEncoder(ep))
		b.encCounters = append(b.encCounters, reg(fmt.Sprintf("encoder_%d_counter", i)))
	}

	if err != nil {
		return nil, fmt.Errorf("device: register map does not match peripheral counts: %w", err)
	}

	// Publish initial status so the host sees the reset values before the
	// first tick.
	for i, enc := range b.encoders {
		b.encCounters[i].SetInt32(enc.Counter())
	}
	file.Commit()

	return b, nil
}

// File returns the board's register file.
func (b *Board) File() *RegisterFile { return b.file }

// WallClock returns the number of ticks since the board started.
func (b *Board) WallClock() uint64 { return b.wallClock }

// SetReset drives the global reset line shared by every instance.
func (b *Board) SetReset(v bool) { b.reset = v }

// SetEncoderPins drives the raw A, B and Z lines of one encoder.
func (b *Board) SetEncoderPins(i int, a, bb, z bool) {
	b.encPins[i] = [3]bool{a, bb, z}
}

// SetInputPin drives one raw GPIO input pin.
func (b *Board) SetInputPin(i int, v bool) { b.inputPins[i] = v }

// OutputPin returns the state of one GPIO output pin.
func (b *Board) OutputPin(i int) bool { return b.outputPins[i] }

// PWMOutput returns the state of one PWM output.
func (b *Board) PWMOutput(i int) bool { return b.pwmOut[i] }

// StepgenOutput returns the step and direction state of one channel.
func (b *Board) StepgenOutput(i int) StepgenOut { return b.sgOut[i] }

// Tick advances the whole board one clock cycle. Modules read the committed
// snapshot and stage their writes; the commit at the end makes everything
// visible simultaneously, so no module ever observes another module's
// same-tick output.
func (b *Board) Tick() {
	b.wallClock++
	b.wallClockReg.SetUint64(b.wallClock)

	bitten := b.watchdog.Tick(b.watchdogData.Word(), b.watchdogData.HostWrote())
	if bitten {
		b.watchdogHasBitten.SetWord(1)
	} else {
		b.watchdogHasBitten.SetWord(0)
	}

	for i := range b.outputPins {
		b.outputPins[i] = b.gpioOut.Bit(i)
	}

	if b.gpioSampler != nil {
		sample := b.gpioSampler.Tick(b.inputPins)
		for i, v := range sample {
			b.gpioIn.SetBit(i, v)
		}
	}

	for i, p := range b.pwms {
		regs := b.pwmRegs[i]
		b.pwmOut[i] = p.Tick(regs.enable.Word() != 0, regs.period.Word(), regs.width.Word(), bitten)
	}

	if len(b.stepgens) > 0 {
		// Queued speed commands take effect once the wall clock passes the
		// apply time; zero means apply immediately.
		applyTime := b.sgApplyTime.Uint64()
		if applyTime == 0 || b.wallClock >= applyTime {
			for i := range b.stepgens {
				b.appliedSpeed[i] = b.sgRegs[i].speed.Int32()
			}
		}
		for i, sg := range b.stepgens {
			out := sg.Tick(StepgenIn{
				TargetSpeed: b.appliedSpeed[i],
				MaxAccel:    b.sgRegs[i].maxAccel.Int32(),
				StepLen:     b.sgSteplen.Word(),
				DirHold:     b.sgDirHold.Word() + b.sgDirSetup.Word(),
				Enable:      !bitten,
			})
			b.sgOut[i] = out
			b.sgPosition[i].SetUint64(uint64(out.Position))
		}
	}

	for i, enc := range b.encoders {
		pins := b.encPins[i]
		out := enc.Tick(EncoderIn{
			A:               pins[0],
			B:               pins[1],
			Z:               pins[2],
			Reset:           b.reset,
			IndexEnable:     b.encIndexEnable.Bit(i),
			ResetIndexPulse: b.encResetIndexPulse.Bit(i),
		})
		b.encCounters[i].SetInt32(out.Counter)
		b.encIndexPulse.SetBit(i, out.IndexPulse)
		if out.ClearIndexEnable {
			b.encIndexEnable.SetBit(i, false)
		}
		if out.ClearResetIndexPulse {
			b.encResetIndexPulse.SetBit(i, false)
		}
	}

	b.file.Commit()
}
