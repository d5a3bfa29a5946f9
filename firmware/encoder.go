package firmware

import (
	"fmt"

	"fpgacnc/regmap"
)

// Encoder register contribution. The flag registers carry one bit per
// instance at the instance's index; the counter registers are per instance.
// All registers are allocated even for encoders without an index pin, so the
// layout is a function of the instance count alone.

// addEncoderWriteRegisters appends the encoder command registers. Nothing is
// allocated when no encoders are configured: the driver detects block
// presence by absence, not by zero width.
func addEncoderWriteRegisters(b *regmap.Builder, configs []EncoderConfig) error {
	if len(configs) == 0 {
		return nil
	}
	width := regmap.FlagWidth(len(configs))
	if err := b.Write("encoder_index_enable", width, regmap.DeviceToo,
		"Index enable flags. While the flag for an encoder is set, the next index "+
			"pulse resets its counter. Cleared by the device after the reset fires; "+
			"the host must re-arm it before every expected index pulse."); err != nil {
		return err
	}
	if err := b.Write("encoder_reset_index_pulse", width, regmap.DeviceToo,
		"Index pulse acknowledge flags. Setting the flag for an encoder clears its "+
			"latched index pulse; the device clears the flag once the pulse is gone."); err != nil {
		return err
	}
	return nil
}

// addEncoderReadRegisters appends the encoder status registers.
func addEncoderReadRegisters(b *regmap.Builder, configs []EncoderConfig) error {
	if len(configs) == 0 {
		return nil
	}
	if err := b.Read("encoder_index_pulse", regmap.FlagWidth(len(configs)),
		"Index pulse flags. The flag for an encoder is set when an index pulse has "+
			"been detected and stays set until acknowledged through the "+
			"reset-index-pulse register."); err != nil {
		return err
	}
	for index := range configs {
		name := fmt.Sprintf("encoder_%d_counter", index)
		if err := b.Read(name, 32,
			fmt.Sprintf("Signed count for encoder %d.", index)); err != nil {
			return err
		}
	}
	return nil
}
