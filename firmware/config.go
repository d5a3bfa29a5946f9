// Package firmware turns a validated board configuration into the register
// map and the synchronous logic modules of a motion-control interface board.
package firmware

import (
	"encoding/json"
	"fmt"
)

// DefaultIOStandard is the voltage standard applied to pins when the
// configuration does not name one.
const DefaultIOStandard = "LVCMOS33"

// DefaultClockFrequency is the logic clock in Hz when unset.
const DefaultClockFrequency = 50_000_000

// MaxInstances caps the number of instances per peripheral family. The
// one-shot flag registers index instances by bit position, and the driver
// contract fixes them at one transport word per 32 instances.
const MaxInstances = 32

// EncoderConfig configures hardware counting of one quadrature encoder.
type EncoderConfig struct {
	Name string `json:"name"`
	PinA string `json:"pin_a"`
	PinB string `json:"pin_b"`
	// PinZ is optional. When unset the index registers are still allocated
	// so the layout stays stable, but the index behavior of the instance is
	// statically disabled.
	PinZ string `json:"pin_z,omitempty"`
	// MinValue and MaxValue bound the counter inclusively. A nil bound is
	// unlimited in that direction.
	MinValue *int32 `json:"min_value,omitempty"`
	MaxValue *int32 `json:"max_value,omitempty"`
	// ResetValue is the initial counter value and the value restored by the
	// global reset or an index-triggered reset.
	ResetValue int32  `json:"reset_value"`
	IOStandard string `json:"io_standard,omitempty"`
}

// StepgenConfig configures one step/direction pulse generator.
type StepgenConfig struct {
	Name       string `json:"name"`
	StepPin    string `json:"step_pin"`
	DirPin     string `json:"dir_pin"`
	IOStandard string `json:"io_standard,omitempty"`
}

// PWMConfig configures one PWM output.
type PWMConfig struct {
	Name       string `json:"name"`
	Pin        string `json:"pin"`
	IOStandard string `json:"io_standard,omitempty"`
}

// GPIOConfig configures one general-purpose pin.
type GPIOConfig struct {
	Name       string `json:"name"`
	Pin        string `json:"pin"`
	IOStandard string `json:"io_standard,omitempty"`
}

// BoardConfig is the complete device configuration. The slices fix the
// instance indices used for register naming and flag bit positions.
type BoardConfig struct {
	BoardName      string          `json:"board_name"`
	ClockFrequency uint32          `json:"clock_frequency"`
	GPIOIn         []GPIOConfig    `json:"gpio_in"`
	GPIOOut        []GPIOConfig    `json:"gpio_out"`
	PWM            []PWMConfig     `json:"pwm"`
	Stepgen        []StepgenConfig `json:"stepgen"`
	Encoders       []EncoderConfig `json:"encoders"`
}

// LoadConfig parses a JSON configuration and returns a BoardConfig with
// defaults applied. The result is not yet validated; call Validate before
// generating.
func LoadConfig(jsonData []byte) (*BoardConfig, error) {
	var config BoardConfig

	if err := json.Unmarshal(jsonData, &config); err != nil {
		return nil, fmt.Errorf("firmware: parse config: %w", err)
	}

	applyDefaults(&config)

	return &config, nil
}

// applyDefaults fills in missing configuration values with sensible defaults
func applyDefaults(config *BoardConfig) {
	if config.ClockFrequency == 0 {
		config.ClockFrequency = DefaultClockFrequency
	}
	for i := range config.Encoders {
		if config.Encoders[i].IOStandard == "" {
			config.Encoders[i].IOStandard = DefaultIOStandard
		}
	}
	for i := range config.Stepgen {
		if config.Stepgen[i].IOStandard == "" {
			config.Stepgen[i].IOStandard = DefaultIOStandard
		}
	}
	for i := range config.PWM {
		if config.PWM[i].IOStandard == "" {
			config.PWM[i].IOStandard = DefaultIOStandard
		}
	}
	for i := range config.GPIOIn {
		if config.GPIOIn[i].IOStandard == "" {
			config.GPIOIn[i].IOStandard = DefaultIOStandard
		}
	}
	for i := range config.GPIOOut {
		if config.GPIOOut[i].IOStandard == "" {
			config.GPIOOut[i].IOStandard = DefaultIOStandard
		}
	}
}
