package firmware

import (
	"fmt"

	"fpgacnc/regmap"
)

// Stepgen register contribution. The pulse-shape registers (step length,
// direction setup and hold times, apply time) are shared across instances
// and therefore allocated once, but only when at least one step generator is
// configured.

func addStepgenWriteRegisters(b *regmap.Builder, configs []StepgenConfig) error {
	if len(configs) == 0 {
		return nil
	}
	shared := []struct {
		name  string
		width int
		src   regmap.UpdateSource
		descr string
	}{
		{"stepgen_steplen", 32, regmap.HostOnly, "Step pulse length in clock ticks."},
		{"stepgen_dir_hold_time", 32, regmap.HostOnly, "Hold time after a direction change in clock ticks."},
		{"stepgen_dir_setup_time", 32, regmap.HostOnly, "Setup time before a direction change in clock ticks."},
		{"stepgen_apply_time", 64, regmap.DeviceToo, "Wall clock time at which queued speed commands take effect."},
	}
	for _, reg := range shared {
		if err := b.Write(reg.name, reg.width, reg.src, reg.descr); err != nil {
			return err
		}
	}
	for index := range configs {
		speed := fmt.Sprintf("stepgen_%d_speed", index)
		if err := b.Write(speed, 32, regmap.HostOnly,
			"Commanded speed in position units per tick (signed, fixed point)."); err != nil {
			return err
		}
		accel := fmt.Sprintf("stepgen_%d_max_acceleration", index)
		if err := b.Write(accel, 32, regmap.HostOnly,
			"Maximum speed change per tick (fixed point)."); err != nil {
			return err
		}
	}
	return nil
}

func addStepgenReadRegisters(b *regmap.Builder, configs []StepgenConfig) error {
	for index := range configs {
		name := fmt.Sprintf("stepgen_%d_position", index)
		if err := b.Read(name, 64,
			fmt.Sprintf("Position accumulator for step generator %d (fixed point).", index)); err != nil {
			return err
		}
	}
	return nil
}
