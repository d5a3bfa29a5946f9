package firmware

import (
	"testing"

	"fpgacnc/regmap"
)

func fullConfig() *BoardConfig {
	return &BoardConfig{
		BoardName: "test",
		GPIOIn: []GPIOConfig{
			{Name: "estop", Pin: "j1:0"},
			{Name: "probe", Pin: "j1:1"},
		},
		GPIOOut: []GPIOConfig{
			{Name: "enable", Pin: "j2:0"},
		},
		PWM: []PWMConfig{
			{Name: "spindle", Pin: "j2:1"},
		},
		Stepgen: []StepgenConfig{
			{Name: "x", StepPin: "j3:0", DirPin: "j3:1"},
			{Name: "y", StepPin: "j3:2", DirPin: "j3:3"},
		},
		Encoders: []EncoderConfig{
			{Name: "enc_x", PinA: "j4:0", PinB: "j4:1"},
			{Name: "enc_spindle", PinA: "j4:2", PinB: "j4:3", PinZ: "j4:4"},
		},
	}
}

// TestBuildMapLayout pins the complete register sequence for a
// representative configuration. The order is load-bearing: the driver
// derives every address from it.
func TestBuildMapLayout(t *testing.T) {
	m, err := BuildMap(fullConfig())
	if err != nil {
		t.Fatalf("BuildMap: %v", err)
	}

	want := []struct {
		name string
		addr int
	}{
		// Write side.
		{"watchdog_data", 0},
		{"gpio_out", 1},
		{"pwm_0_enable", 2},
		{"pwm_0_period", 3},
		{"pwm_0_width", 4},
		{"stepgen_steplen", 5},
		{"stepgen_dir_hold_time", 6},
		{"stepgen_dir_setup_time", 7},
		{"stepgen_apply_time", 8}, // 2 words
		{"stepgen_0_speed", 10},
		{"stepgen_0_max_acceleration", 11},
		{"stepgen_1_speed", 12},
		{"stepgen_1_max_acceleration", 13},
		{"encoder_index_enable", 14},
		{"encoder_reset_index_pulse", 15},
		// Read side.
		{"watchdog_has_bitten", 16},
		{"wall_clock", 17}, // 2 words
		{"gpio_in", 19},
		{"stepgen_0_position", 20}, // 2 words
		{"stepgen_1_position", 22}, // 2 words
		{"encoder_index_pulse", 24},
		{"encoder_0_counter", 25},
		{"encoder_1_counter", 26},
	}

	if m.Len() != len(want) {
		t.Fatalf("map has %d registers, want %d", m.Len(), len(want))
	}
	regs := m.Registers()
	for i, w := range want {
		if regs[i].Name != w.name {
			t.Errorf("register %d = %q, want %q", i, regs[i].Name, w.name)
			continue
		}
		if regs[i].Addr != w.addr {
			t.Errorf("%s at address %d, want %d", w.name, regs[i].Addr, w.addr)
		}
	}
	if m.Words() != 27 {
		t.Errorf("map occupies %d words, want 27", m.Words())
	}
}

// TestBuildMapOmitsEmptyBlocks verifies absence, not zero width: a block
// with no instances contributes no registers at all.
func TestBuildMapOmitsEmptyBlocks(t *testing.T) {
	m, err := BuildMap(&BoardConfig{BoardName: "test"})
	if err != nil {
		t.Fatalf("BuildMap: %v", err)
	}

	for _, name := range []string{
		"gpio_out", "gpio_in", "pwm_0_enable",
		"stepgen_steplen", "stepgen_apply_time",
		"encoder_index_enable", "encoder_index_pulse",
	} {
		if _, ok := m.Lookup(name); ok {
			t.Errorf("register %q allocated for empty peripheral block", name)
		}
	}

	// Watchdog and wall clock are unconditional.
	for _, name := range []string{"watchdog_data", "watchdog_has_bitten", "wall_clock"} {
		if _, ok := m.Lookup(name); !ok {
			t.Errorf("register %q missing", name)
		}
	}
}

// TestBuildMapDeterministic: the layout is a pure function of the config.
func TestBuildMapDeterministic(t *testing.T) {
	a, err := BuildMap(fullConfig())
	if err != nil {
		t.Fatal(err)
	}
	b, err := BuildMap(fullConfig())
	if err != nil {
		t.Fatal(err)
	}

	ra, rb := a.Registers(), b.Registers()
	if len(ra) != len(rb) {
		t.Fatalf("register counts differ: %d vs %d", len(ra), len(rb))
	}
	for i := range ra {
		if ra[i] != rb[i] {
			t.Errorf("register %d differs: %+v vs %+v", i, ra[i], rb[i])
		}
	}
}

func TestBuildRejectsInvalidConfig(t *testing.T) {
	_, result, err := Build(&BoardConfig{})
	if err == nil {
		t.Fatal("config without board name accepted")
	}
	if result == nil || result.OK() {
		t.Error("validation result does not carry the errors")
	}
}

func TestBuildFullBoard(t *testing.T) {
	fw, result, err := Build(fullConfig())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", result.Warnings)
	}
	if fw.Board == nil || fw.Map == nil {
		t.Fatal("incomplete firmware returned")
	}
	if fw.Board.File().Map().Words() != fw.Map.Words() {
		t.Error("board register file sized from a different map")
	}
}

func TestEncoderWithoutIndexStillAllocates(t *testing.T) {
	// The index registers are allocated even when no encoder has an index
	// pin, so the layout depends on the count alone.
	config := &BoardConfig{
		BoardName: "test",
		Encoders:  []EncoderConfig{{Name: "e", PinA: "a", PinB: "b"}},
	}
	m, err := BuildMap(config)
	if err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"encoder_index_enable", "encoder_reset_index_pulse", "encoder_index_pulse"} {
		r, ok := m.Lookup(name)
		if !ok {
			t.Errorf("register %q missing for index-less encoder", name)
			continue
		}
		if r.Width != regmap.FlagWidth(1) {
			t.Errorf("%s width = %d, want %d", name, r.Width, regmap.FlagWidth(1))
		}
	}
}
