package device

import "testing"

func TestGPIOInSynchronizerDelay(t *testing.T) {
	g := NewGPIOIn(2)

	// A raw change appears in the sample exactly two ticks later.
	out := g.Tick([]bool{true, false})
	if out[0] {
		t.Error("raw pin visible on the arrival tick")
	}
	out = g.Tick([]bool{true, false})
	if out[0] {
		t.Error("raw pin visible after one tick")
	}
	out = g.Tick([]bool{true, false})
	if !out[0] {
		t.Error("pin not visible after the synchronizer delay")
	}
	if out[1] {
		t.Error("idle pin reported high")
	}
}

func TestGPIOInShortPinSlice(t *testing.T) {
	g := NewGPIOIn(3)

	// Missing pins read as low instead of panicking.
	for i := 0; i < 4; i++ {
		out := g.Tick([]bool{true})
		if out[1] || out[2] {
			t.Fatal("unspecified pins must sample low")
		}
	}
}
