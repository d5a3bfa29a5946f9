package device

import (
	"testing"

	"fpgacnc/regmap"
)

func testFile(t *testing.T) *RegisterFile {
	t.Helper()
	b := regmap.NewBuilder()
	if err := b.Write("cmd", 32, regmap.HostOnly, ""); err != nil {
		t.Fatal(err)
	}
	if err := b.Write("wide", 64, regmap.HostOnly, ""); err != nil {
		t.Fatal(err)
	}
	if err := b.Write("flags", 64, regmap.DeviceToo, ""); err != nil {
		t.Fatal(err)
	}
	return NewRegisterFile(b.Finalize())
}

func TestRegisterFileWriteVisibleAfterCommit(t *testing.T) {
	f := testFile(t)
	r, err := f.Reg("cmd")
	if err != nil {
		t.Fatal(err)
	}

	if err := f.WriteWords(0, []uint32{42}); err != nil {
		t.Fatal(err)
	}
	if r.Word() != 0 {
		t.Error("staged write visible before commit")
	}
	f.Commit()
	if r.Word() != 42 {
		t.Errorf("word = %d after commit, want 42", r.Word())
	}
}

func TestRegisterFileStrobeMatchesData(t *testing.T) {
	f := testFile(t)
	r, _ := f.Reg("cmd")

	f.WriteWords(0, []uint32{7})
	if r.HostWrote() {
		t.Error("strobe visible before the data")
	}
	f.Commit()
	if !r.HostWrote() {
		t.Error("strobe not visible together with the data")
	}
	f.Commit()
	if r.HostWrote() {
		t.Error("strobe lasted more than one tick")
	}
	if r.Word() != 7 {
		t.Error("data lost when the strobe cleared")
	}
}

func TestRegisterFileUint64MSWFirst(t *testing.T) {
	f := testFile(t)
	r, _ := f.Reg("wide")

	r.SetUint64(0x11223344_55667788)
	f.Commit()

	words, err := f.ReadWords(1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if words[0] != 0x11223344 || words[1] != 0x55667788 {
		t.Errorf("words = %#x %#x, want MSW first", words[0], words[1])
	}
	if r.Uint64() != 0x11223344_55667788 {
		t.Errorf("Uint64 = %#x", r.Uint64())
	}
}

func TestRegisterFileFlagBits(t *testing.T) {
	f := testFile(t)
	r, _ := f.Reg("flags") // 2 words at addr 3

	// Bit 0 lands in the last word, bit 32 in the first.
	r.SetBit(0, true)
	r.SetBit(32, true)
	f.Commit()

	words, _ := f.ReadWords(3, 2)
	if words[1] != 1 {
		t.Errorf("low word = %#x, want bit 0 set", words[1])
	}
	if words[0] != 1 {
		t.Errorf("high word = %#x, want bit 32 set", words[0])
	}
	if !r.Bit(0) || !r.Bit(32) || r.Bit(1) {
		t.Error("Bit readback mismatched")
	}

	// Clearing one bit leaves the others alone.
	r.SetBit(0, false)
	f.Commit()
	if r.Bit(0) || !r.Bit(32) {
		t.Error("SetBit(false) disturbed another bit")
	}
}

func TestRegisterFileBoundsChecked(t *testing.T) {
	f := testFile(t)

	if _, err := f.ReadWords(3, 3); err == nil {
		t.Error("out-of-range read accepted")
	}
	if err := f.WriteWords(4, []uint32{1, 2}); err == nil {
		t.Error("out-of-range write accepted")
	}
	if _, err := f.Reg("missing"); err == nil {
		t.Error("unknown register name accepted")
	}
}
