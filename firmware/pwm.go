package firmware

import (
	"fmt"

	"fpgacnc/regmap"
)

// PWM register contribution: enable, period and width per instance, in
// ascending instance order.

func addPWMWriteRegisters(b *regmap.Builder, configs []PWMConfig) error {
	for index := range configs {
		fields := []struct {
			field string
			descr string
		}{
			{"enable", "Nonzero enables the output."},
			{"period", "Cycle length in clock ticks."},
			{"width", "On-time in clock ticks."},
		}
		for _, f := range fields {
			name := fmt.Sprintf("pwm_%d_%s", index, f.field)
			if err := b.Write(name, 32, regmap.HostOnly, f.descr); err != nil {
				return err
			}
		}
	}
	return nil
}
