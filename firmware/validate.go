package firmware

import "fmt"

// ConfigError describes an invalid configuration value. Configuration errors
// are always fatal to generation; they are never silently corrected.
type ConfigError struct {
	Peripheral string // e.g. "encoder_1"
	Reason     string
}

func (e *ConfigError) Error() string {
	if e.Peripheral == "" {
		return "invalid config: " + e.Reason
	}
	return fmt.Sprintf("invalid config for %s: %s", e.Peripheral, e.Reason)
}

// ValidationResult collects every error and warning found in a
// configuration. Warnings flag configurations that generate fine but are
// provably degenerate (a counter frozen between equal bounds); they are
// surfaced to the operator, not auto-fixed.
type ValidationResult struct {
	Errors   []error
	Warnings []string
}

// OK reports whether generation may proceed.
func (r *ValidationResult) OK() bool { return len(r.Errors) == 0 }

// Err returns the first error, or nil.
func (r *ValidationResult) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return r.Errors[0]
}

func (r *ValidationResult) errorf(peripheral, format string, args ...interface{}) {
	r.Errors = append(r.Errors, &ConfigError{
		Peripheral: peripheral,
		Reason:     fmt.Sprintf(format, args...),
	})
}

func (r *ValidationResult) warnf(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Validate checks the whole board configuration. Validation is pure: it
// inspects the config and returns a result, so generation code never has to
// branch on malformed input.
func (c *BoardConfig) Validate() *ValidationResult {
	r := &ValidationResult{}

	if c.BoardName == "" {
		r.errorf("", "board_name is required")
	}

	if len(c.Encoders) > MaxInstances {
		r.errorf("", "at most %d encoders supported, got %d", MaxInstances, len(c.Encoders))
	}
	if len(c.Stepgen) > MaxInstances {
		r.errorf("", "at most %d step generators supported, got %d", MaxInstances, len(c.Stepgen))
	}

	seen := make(map[string]string)
	checkName := func(peripheral, name string) {
		if name == "" {
			return
		}
		if prev, dup := seen[name]; dup {
			r.errorf(peripheral, "name %q already used by %s", name, prev)
			return
		}
		seen[name] = peripheral
	}

	for i, enc := range c.Encoders {
		id := fmt.Sprintf("encoder_%d", i)
		checkName(id, enc.Name)
		validateEncoder(r, id, enc)
	}
	for i, sg := range c.Stepgen {
		id := fmt.Sprintf("stepgen_%d", i)
		checkName(id, sg.Name)
		if sg.StepPin == "" {
			r.errorf(id, "step_pin is required")
		}
		if sg.DirPin == "" {
			r.errorf(id, "dir_pin is required")
		}
	}
	for i, pwm := range c.PWM {
		id := fmt.Sprintf("pwm_%d", i)
		checkName(id, pwm.Name)
		if pwm.Pin == "" {
			r.errorf(id, "pin is required")
		}
	}

	return r
}

// validateEncoder checks bound ordering and the reset value of one encoder.
func validateEncoder(r *ValidationResult, id string, enc EncoderConfig) {
	if enc.PinA == "" {
		r.errorf(id, "pin_a is required")
	}
	if enc.PinB == "" {
		r.errorf(id, "pin_b is required")
	}

	if enc.MinValue != nil && enc.ResetValue < *enc.MinValue {
		r.errorf(id, "reset value %d is below the minimum value %d", enc.ResetValue, *enc.MinValue)
	}
	if enc.MaxValue != nil && enc.ResetValue > *enc.MaxValue {
		r.errorf(id, "reset value %d is above the maximum value %d", enc.ResetValue, *enc.MaxValue)
	}
	if enc.MinValue != nil && enc.MaxValue != nil {
		if *enc.MaxValue < *enc.MinValue {
			r.errorf(id, "minimum value %d exceeds maximum value %d", *enc.MinValue, *enc.MaxValue)
		} else if *enc.MaxValue == *enc.MinValue {
			r.warnf("%s: minimum and maximum value are equal; the counter is fixed at %d and will not count", id, *enc.MinValue)
		}
	}
}
