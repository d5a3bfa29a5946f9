package protocol

import "testing"

func TestCRC16(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", []byte{}},
		{"single byte", []byte{0x42}},
		{"frame header", []byte{0x05, 0x10}},
		{"longer payload", []byte{0x05, 0x10, 0x01, 0x02, 0x03, 0x04}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			crc1 := CRC16(tt.data)
			crc2 := CRC16(tt.data)
			if crc1 != crc2 {
				t.Errorf("CRC16 not deterministic: %04x vs %04x", crc1, crc2)
			}
		})
	}
}

func TestCRC16EmptyIsInit(t *testing.T) {
	if got := CRC16(nil); got != 0xFFFF {
		t.Errorf("CRC16(nil) = %04x, want ffff", got)
	}
}

func TestCRC16Sensitivity(t *testing.T) {
	base := []byte{0x05, 0x10, 0x01}
	baseCRC := CRC16(base)

	for i := range base {
		mutated := make([]byte, len(base))
		copy(mutated, base)
		mutated[i] ^= 0x01
		if CRC16(mutated) == baseCRC {
			t.Errorf("single-bit flip at byte %d not detected", i)
		}
	}
}
