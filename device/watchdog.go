package device

// Watchdog disables peripheral outputs when the host stops communicating.
// The host periodically rewrites watchdog_data; every write reloads the
// countdown. Bit 31 of the data word is the enable flag, bits 0-30 hold the
// timeout in clock ticks.

const (
	watchdogEnableBit   = 1 << 31
	watchdogTimeoutMask = 0x7FFFFFFF
)

// Watchdog is the timeout state machine shared by the whole board.
type Watchdog struct {
	enabled   bool
	remaining uint32
	bitten    bool
}

// NewWatchdog returns a disabled watchdog.
func NewWatchdog() *Watchdog { return &Watchdog{} }

// HasBitten reports whether the timeout expired.
func (w *Watchdog) HasBitten() bool { return w.bitten }

// Tick advances the watchdog one clock cycle. data is the current
// watchdog_data word and written is the host write strobe for it. A host
// write reloads the countdown and is the only way to recover from a trip;
// the device never retries on its own.
func (w *Watchdog) Tick(data uint32, written bool) bool {
	if written {
		w.enabled = data&watchdogEnableBit != 0
		w.remaining = data & watchdogTimeoutMask
		w.bitten = false
	}

	if w.bitten || !w.enabled {
		return w.bitten
	}

	if w.remaining == 0 {
		w.bitten = true
	} else {
		w.remaining--
	}
	return w.bitten
}
