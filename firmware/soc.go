package firmware

import (
	"fmt"

	"fpgacnc/device"
	"fpgacnc/regmap"
)

// Firmware is a generated device: the register map shared with the host
// driver plus the logic bound to it.
type Firmware struct {
	Config *BoardConfig
	Map    *regmap.Map
	Board  *device.Board
}

// BuildMap builds the register layout for a configuration. The block order
// is a contract with the host driver and must not change without a
// coordinated version bump:
//
//	WRITE: watchdog, gpio_out, pwm, stepgen, encoder
//	READ:  watchdog, wall_clock, gpio_in, stepgen, encoder
//
// A mis-aligned order makes the driver write the wrong registers, or hang
// the device by writing to a read-only one; there is no runtime negotiation.
func BuildMap(config *BoardConfig) (*regmap.Map, error) {
	b := regmap.NewBuilder()

	contributions := []func() error{
		// Write side.
		func() error { return addWatchdogWriteRegisters(b) },
		func() error { return addGPIOWriteRegisters(b, config.GPIOOut) },
		func() error { return addPWMWriteRegisters(b, config.PWM) },
		func() error { return addStepgenWriteRegisters(b, config.Stepgen) },
		func() error { return addEncoderWriteRegisters(b, config.Encoders) },
		// Read side.
		func() error { return addWatchdogReadRegisters(b) },
		func() error { return addWallClockReadRegisters(b) },
		func() error { return addGPIOReadRegisters(b, config.GPIOIn) },
		func() error { return addStepgenReadRegisters(b, config.Stepgen) },
		func() error { return addEncoderReadRegisters(b, config.Encoders) },
	}
	for _, add := range contributions {
		if err := add(); err != nil {
			return nil, fmt.Errorf("firmware: build register map: %w", err)
		}
	}

	return b.Finalize(), nil
}

// Build validates the configuration, builds the register map and
// instantiates the logic. All configuration errors surface here, before any
// logic exists; a partial build is never returned.
func Build(config *BoardConfig) (*Firmware, *ValidationResult, error) {
	result := config.Validate()
	if !result.OK() {
		return nil, result, fmt.Errorf("firmware: %w", result.Err())
	}

	m, err := BuildMap(config)
	if err != nil {
		return nil, result, err
	}

	board, err := device.NewBoard(device.NewRegisterFile(m), boardParams(config))
	if err != nil {
		return nil, result, err
	}

	return &Firmware{Config: config, Map: m, Board: board}, result, nil
}

// boardParams maps a validated configuration onto the parameters the logic
// needs. Pin names matter only for synthesis I/O binding, not for the logic.
func boardParams(config *BoardConfig) device.BoardParams {
	encoders := make([]device.EncoderParams, len(config.Encoders))
	for i, enc := range config.Encoders {
		encoders[i] = device.EncoderParams{
			HasIndex: enc.PinZ != "",
			Min:      enc.MinValue,
			Max:      enc.MaxValue,
			Reset:    enc.ResetValue,
		}
	}
	return device.BoardParams{
		Encoders: encoders,
		Stepgens: len(config.Stepgen),
		PWMs:     len(config.PWM),
		GPIOIn:   len(config.GPIOIn),
		GPIOOut:  len(config.GPIOOut),
	}
}
