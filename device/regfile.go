// Package device simulates the synchronous logic of the interface board.
// Everything advances one step per Board.Tick with no goroutines: modules
// read the previous tick's register snapshot and their writes become
// visible on the following tick, matching single-clock-domain hardware.
package device

import (
	"fmt"

	"fpgacnc/regmap"
)

// RegisterFile holds the register contents for one board as 32-bit transport
// words. It keeps two copies: the committed snapshot everyone reads during a
// tick, and the pending state that collects writes until Commit.
//
// The file is not safe for concurrent use; ticks and bus accesses must be
// serialized by the caller, the way a clocked bus serializes them in
// hardware.
type RegisterFile struct {
	m *regmap.Map

	cur  []uint32
	next []uint32

	// Host write strobes, double-buffered like the data so a strobe is
	// observed on the same tick the written value becomes visible.
	wroteCur  []bool
	wroteNext []bool
}

// NewRegisterFile allocates a register file sized from a finalized map.
func NewRegisterFile(m *regmap.Map) *RegisterFile {
	return &RegisterFile{
		m:         m,
		cur:       make([]uint32, m.Words()),
		next:      make([]uint32, m.Words()),
		wroteCur:  make([]bool, m.Words()),
		wroteNext: make([]bool, m.Words()),
	}
}

// Map returns the layout this file was built from.
func (f *RegisterFile) Map() *regmap.Map { return f.m }

// Reg resolves a named register to a typed handle. Unknown names indicate a
// wiring bug, not a runtime condition.
func (f *RegisterFile) Reg(name string) (Reg, error) {
	r, ok := f.m.Lookup(name)
	if !ok {
		return Reg{}, fmt.Errorf("device: no register named %q", name)
	}
	return Reg{f: f, addr: r.Addr, words: r.Words}, nil
}

// ReadWords returns count words starting at the given word address, from the
// committed snapshot.
func (f *RegisterFile) ReadWords(addr, count int) ([]uint32, error) {
	if addr < 0 || count < 0 || addr+count > len(f.cur) {
		return nil, fmt.Errorf("device: read [%d,%d) outside register file of %d words", addr, addr+count, len(f.cur))
	}
	words := make([]uint32, count)
	copy(words, f.cur[addr:addr+count])
	return words, nil
}

// WriteWords stores words starting at the given word address. Host writes
// land in the pending state and become visible to the logic on the next
// tick.
func (f *RegisterFile) WriteWords(addr int, words []uint32) error {
	if addr < 0 || addr+len(words) > len(f.next) {
		return fmt.Errorf("device: write [%d,%d) outside register file of %d words", addr, addr+len(words), len(f.next))
	}
	for i, w := range words {
		f.next[addr+i] = w
		f.wroteNext[addr+i] = true
	}
	return nil
}

// Commit publishes all pending writes and advances the host write strobes.
// The board calls this once at the end of every tick.
func (f *RegisterFile) Commit() {
	copy(f.cur, f.next)
	copy(f.wroteCur, f.wroteNext)
	for i := range f.wroteNext {
		f.wroteNext[i] = false
	}
}

// Reg is a typed handle on one register. Reads come from the committed
// snapshot; writes go to the pending state.
type Reg struct {
	f     *RegisterFile
	addr  int
	words int
}

// Word returns the register's single transport word.
func (r Reg) Word() uint32 { return r.f.cur[r.addr] }

// SetWord stores the register's single transport word.
func (r Reg) SetWord(v uint32) { r.f.next[r.addr] = v }

// Int32 returns the register word as a signed value.
func (r Reg) Int32() int32 { return int32(r.Word()) }

// SetInt32 stores a signed value in the register word.
func (r Reg) SetInt32(v int32) { r.SetWord(uint32(v)) }

// Uint64 returns a two-word register, most-significant word first.
func (r Reg) Uint64() uint64 {
	return uint64(r.f.cur[r.addr])<<32 | uint64(r.f.cur[r.addr+1])
}

// SetUint64 stores a two-word register, most-significant word first.
func (r Reg) SetUint64(v uint64) {
	r.f.next[r.addr] = uint32(v >> 32)
	r.f.next[r.addr+1] = uint32(v)
}

// bitLocation maps flag bit i to its word and in-word position. Flag bit i
// of instance i lives at bit position i counting from the register's least
// significant word, which is the last word in the MSW-first layout.
func (r Reg) bitLocation(i int) (word int, mask uint32) {
	word = r.addr + r.words - 1 - i/regmap.WordBits
	mask = 1 << (uint(i) % regmap.WordBits)
	return word, mask
}

// Bit returns flag bit i.
func (r Reg) Bit(i int) bool {
	word, mask := r.bitLocation(i)
	return r.f.cur[word]&mask != 0
}

// SetBit updates flag bit i, leaving the other bits of the register to their
// own writers.
func (r Reg) SetBit(i int, v bool) {
	word, mask := r.bitLocation(i)
	if v {
		r.f.next[word] |= mask
	} else {
		r.f.next[word] &^= mask
	}
}

// HostWrote reports whether a host write to this register became visible on
// the current tick. Used as a write strobe by the watchdog.
func (r Reg) HostWrote() bool {
	for i := 0; i < r.words; i++ {
		if r.f.wroteCur[r.addr+i] {
			return true
		}
	}
	return false
}
