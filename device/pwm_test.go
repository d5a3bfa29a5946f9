package device

import "testing"

func TestPWMDutyCycle(t *testing.T) {
	p := &PWM{}

	// Period 4, width 1: high one tick out of four.
	high := 0
	for i := 0; i < 40; i++ {
		if p.Tick(true, 4, 1, false) {
			high++
		}
	}
	if high != 10 {
		t.Errorf("output high %d of 40 ticks, want 10", high)
	}
}

func TestPWMFullAndZeroWidth(t *testing.T) {
	p := &PWM{}
	for i := 0; i < 8; i++ {
		if !p.Tick(true, 4, 4, false) {
			t.Fatal("width == period must be constantly high")
		}
	}

	p = &PWM{}
	for i := 0; i < 8; i++ {
		if p.Tick(true, 4, 0, false) {
			t.Fatal("zero width must be constantly low")
		}
	}
}

func TestPWMDisabledAndBlocked(t *testing.T) {
	p := &PWM{}
	if p.Tick(false, 4, 4, false) {
		t.Error("disabled output went high")
	}
	if p.Tick(true, 4, 4, true) {
		t.Error("watchdog-blocked output went high")
	}
	if p.Tick(true, 0, 0, false) {
		t.Error("zero period output went high")
	}
}

func TestPWMBlockRestartsCycle(t *testing.T) {
	p := &PWM{}
	// Advance partway into the cycle, then block.
	p.Tick(true, 8, 4, false)
	p.Tick(true, 8, 4, false)
	p.Tick(true, 8, 4, true)

	// After unblocking the cycle starts over from the beginning.
	if !p.Tick(true, 8, 4, false) {
		t.Error("cycle did not restart from the high phase")
	}
}
