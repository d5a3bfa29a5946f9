package firmware

import "fpgacnc/regmap"

// Watchdog register contribution. The watchdog is always present: it heads
// both sides of the map so the driver can locate it without knowing the
// peripheral counts.

func addWatchdogWriteRegisters(b *regmap.Builder) error {
	return b.Write("watchdog_data", 32, regmap.HostOnly,
		"Watchdog data. Bit 31 is the enable flag; bits 0-30 hold the timeout in "+
			"clock ticks. Writing this register reloads the countdown.")
}

func addWatchdogReadRegisters(b *regmap.Builder) error {
	return b.Read("watchdog_has_bitten", 1,
		"Set when the watchdog timeout expired. Peripheral outputs stay gated "+
			"until the host reloads the watchdog.")
}

func addWallClockReadRegisters(b *regmap.Builder) error {
	return b.Read("wall_clock", 64,
		"Free-running count of clock ticks since the device started. At 64 bits a "+
			"roll-over practically never occurs during the runtime of a machine.")
}
