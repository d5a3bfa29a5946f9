package firmware

import "fpgacnc/regmap"

// GPIO register contribution: one flag register per direction, one bit per
// pin at the pin's instance index.

func addGPIOWriteRegisters(b *regmap.Builder, outputs []GPIOConfig) error {
	if len(outputs) == 0 {
		return nil
	}
	return b.Write("gpio_out", regmap.FlagWidth(len(outputs)), regmap.HostOnly,
		"Output pin states, one bit per configured output pin.")
}

func addGPIOReadRegisters(b *regmap.Builder, inputs []GPIOConfig) error {
	if len(inputs) == 0 {
		return nil
	}
	return b.Read("gpio_in", regmap.FlagWidth(len(inputs)),
		"Sampled input pin states, one bit per configured input pin.")
}
