package driver

import (
	"testing"

	"fpgacnc/firmware"
)

// buildBoard builds a firmware instance and a driver sharing its register
// file, so driver operations land exactly where the logic looks.
func buildBoard(t *testing.T, config *firmware.BoardConfig) (*firmware.Firmware, *Driver) {
	t.Helper()
	fw, _, err := firmware.Build(config)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	d := New(fw.Board.File(), Counts{
		GPIOIn:   len(config.GPIOIn),
		GPIOOut:  len(config.GPIOOut),
		PWMs:     len(config.PWM),
		Stepgens: len(config.Stepgen),
		Encoders: len(config.Encoders),
	})
	return fw, d
}

func TestDriverWallClock(t *testing.T) {
	fw, d := buildBoard(t, &firmware.BoardConfig{BoardName: "test"})

	for i := 0; i < 10; i++ {
		fw.Board.Tick()
	}
	clock, err := d.WallClock()
	if err != nil {
		t.Fatalf("WallClock: %v", err)
	}
	if clock != 10 {
		t.Errorf("wall clock = %d, want 10", clock)
	}
}

func TestDriverWatchdog(t *testing.T) {
	fw, d := buildBoard(t, &firmware.BoardConfig{BoardName: "test"})

	if err := d.SetWatchdog(true, 5); err != nil {
		t.Fatalf("SetWatchdog: %v", err)
	}
	for i := 0; i < 4; i++ {
		fw.Board.Tick()
	}
	if bitten, _ := d.HasBitten(); bitten {
		t.Fatal("watchdog bit before its timeout")
	}

	for i := 0; i < 10; i++ {
		fw.Board.Tick()
	}
	if bitten, _ := d.HasBitten(); !bitten {
		t.Fatal("watchdog did not bite after timeout")
	}

	// A reload recovers the board.
	if err := d.SetWatchdog(true, 100); err != nil {
		t.Fatalf("SetWatchdog: %v", err)
	}
	fw.Board.Tick()
	fw.Board.Tick()
	if bitten, _ := d.HasBitten(); bitten {
		t.Error("watchdog still bitten after reload")
	}
}

func TestDriverGPIO(t *testing.T) {
	config := &firmware.BoardConfig{
		BoardName: "test",
		GPIOIn:    gpios(3),
		GPIOOut:   gpios(2),
	}
	fw, d := buildBoard(t, config)

	if err := d.SetOutputPin(1, true); err != nil {
		t.Fatalf("SetOutputPin: %v", err)
	}
	fw.Board.Tick() // write commits
	fw.Board.Tick() // output logic samples it
	if !fw.Board.OutputPin(1) {
		t.Error("output pin 1 not driven high")
	}
	if fw.Board.OutputPin(0) {
		t.Error("output pin 0 driven without a write")
	}

	fw.Board.SetInputPin(2, true)
	for i := 0; i < 4; i++ { // input synchronizer delay
		fw.Board.Tick()
	}
	if v, _ := d.InputPin(2); !v {
		t.Error("input pin 2 not observed high")
	}
	if v, _ := d.InputPin(0); v {
		t.Error("input pin 0 observed high without being driven")
	}
}

func TestDriverEncoderCount(t *testing.T) {
	config := &firmware.BoardConfig{
		BoardName: "test",
		Encoders:  encoders(2),
	}
	fw, d := buildBoard(t, config)

	// One full forward quadrature cycle on encoder 0 is four transitions.
	phases := [][2]bool{{false, false}, {true, false}, {true, true}, {false, true}, {false, false}}
	for _, p := range phases {
		fw.Board.SetEncoderPins(0, p[0], p[1], false)
		for i := 0; i < 4; i++ {
			fw.Board.Tick()
		}
	}

	count, err := d.Counter(0)
	if err != nil {
		t.Fatalf("Counter: %v", err)
	}
	if count != 4 {
		t.Errorf("encoder 0 count = %d, want 4", count)
	}
	if count1, _ := d.Counter(1); count1 != 0 {
		t.Errorf("encoder 1 count = %d, want 0", count1)
	}

	counts, err := d.Counters()
	if err != nil {
		t.Fatalf("Counters: %v", err)
	}
	if len(counts) != 2 || counts[0] != 4 || counts[1] != 0 {
		t.Errorf("Counters() = %v, want [4 0]", counts)
	}
}

func TestDriverIndexHandshake(t *testing.T) {
	config := &firmware.BoardConfig{
		BoardName: "test",
		Encoders: []firmware.EncoderConfig{
			{Name: "spindle", PinA: "A0", PinB: "B0", PinZ: "Z0", ResetValue: 100},
		},
	}
	fw, d := buildBoard(t, config)

	if err := d.SetIndexEnable(0); err != nil {
		t.Fatalf("SetIndexEnable: %v", err)
	}
	fw.Board.Tick()

	// Index pulse rises.
	fw.Board.SetEncoderPins(0, false, false, true)
	for i := 0; i < 5; i++ {
		fw.Board.Tick()
	}

	if pulse, _ := d.IndexPulse(0); !pulse {
		t.Fatal("index pulse not latched")
	}
	if count, _ := d.Counter(0); count != 100 {
		t.Errorf("counter after index reset = %d, want 100", count)
	}

	// The arming flag is one-shot: the device cleared it.
	addr, mask := d.layout.flagLocation(d.layout.EncoderIndexEnable, 1, 0)
	w, _ := d.readWord(addr)
	if w&mask != 0 {
		t.Error("index enable flag not cleared after reset fired")
	}

	// Acknowledge clears the latched pulse and the acknowledge flag itself.
	if err := d.AckIndexPulse(0); err != nil {
		t.Fatalf("AckIndexPulse: %v", err)
	}
	fw.Board.Tick()
	fw.Board.Tick()
	if pulse, _ := d.IndexPulse(0); pulse {
		t.Error("index pulse still latched after acknowledge")
	}
	addr, mask = d.layout.flagLocation(d.layout.EncoderResetIndexPls, 1, 0)
	w, _ = d.readWord(addr)
	if w&mask != 0 {
		t.Error("acknowledge flag not self-cleared")
	}
}
