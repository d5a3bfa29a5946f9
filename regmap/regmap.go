// Package regmap builds the memory-mapped register layout shared between the
// host driver and the FPGA logic. Registers are appended in call order and
// addresses are assigned when the map is finalized; the host driver parses
// the layout positionally, so the order registers are allocated in is part
// of the external contract.
package regmap

import "fmt"

// WordBits is the transport word size. The communication layer transfers
// whole 32-bit words, so partial words are not addressable.
const WordBits = 32

// Direction indicates which side writes a register.
type Direction uint8

const (
	// Write registers are written by the host (configuration, commands).
	Write Direction = iota
	// Read registers are written by the device (status).
	Read
)

func (d Direction) String() string {
	if d == Write {
		return "write"
	}
	return "read"
}

// UpdateSource indicates which side may update a register after
// initialization. Most write registers are host-only; a few (the one-shot
// flag registers) are also cleared by the device.
type UpdateSource uint8

const (
	// HostOnly registers are updated exclusively by the host.
	HostOnly UpdateSource = iota
	// DeviceToo registers may additionally be updated by the device
	// (self-clearing flags, status values).
	DeviceToo
)

// Register describes one named register in the map. Addr and Words are
// assigned when the builder is finalized.
type Register struct {
	Name   string
	Width  int // bits
	Dir    Direction
	Source UpdateSource
	Descr  string
	Addr   int // word address within the map
	Words  int // number of transport words occupied
}

// FlagWidth returns the width in bits of a one-bit-per-instance flag
// register for n instances, rounded up to the next whole transport word.
// Zero instances yield zero width; callers must omit the register entirely
// in that case rather than allocate an empty one.
func FlagWidth(n int) int {
	if n <= 0 {
		return 0
	}
	return (n + WordBits - 1) / WordBits * WordBits
}

// Builder accumulates register allocations in strict call order.
type Builder struct {
	regs      []Register
	byName    map[string]int
	finalized bool
}

// NewBuilder returns an empty register map builder.
func NewBuilder() *Builder {
	return &Builder{byName: make(map[string]int)}
}

// Allocate appends one register to the map. Allocation requests are never
// reordered, deduplicated or padded: the resulting layout is a pure function
// of the call sequence. A duplicate name or an allocation after Finalize is
// a generation-time programming error.
func (b *Builder) Allocate(name string, width int, dir Direction, src UpdateSource, descr string) error {
	if b.finalized {
		return fmt.Errorf("regmap: allocate %q: %w", name, ErrFinalized)
	}
	if width <= 0 {
		return fmt.Errorf("regmap: allocate %q: invalid width %d", name, width)
	}
	if _, dup := b.byName[name]; dup {
		return fmt.Errorf("regmap: %w: %q", ErrDuplicateName, name)
	}
	b.byName[name] = len(b.regs)
	b.regs = append(b.regs, Register{
		Name:   name,
		Width:  width,
		Dir:    dir,
		Source: src,
		Descr:  descr,
	})
	return nil
}

// Write appends a host-written register.
func (b *Builder) Write(name string, width int, src UpdateSource, descr string) error {
	return b.Allocate(name, width, Write, src, descr)
}

// Read appends a device-written status register.
func (b *Builder) Read(name string, width int, descr string) error {
	return b.Allocate(name, width, Read, DeviceToo, descr)
}

// Finalize assigns word addresses in declaration order and freezes the map.
// Each register occupies ceil(width/32) consecutive words.
func (b *Builder) Finalize() *Map {
	b.finalized = true
	regs := make([]Register, len(b.regs))
	copy(regs, b.regs)
	addr := 0
	for i := range regs {
		regs[i].Addr = addr
		regs[i].Words = (regs[i].Width + WordBits - 1) / WordBits
		addr += regs[i].Words
	}
	byName := make(map[string]int, len(regs))
	for i, r := range regs {
		byName[r.Name] = i
	}
	return &Map{regs: regs, byName: byName, words: addr}
}

// Map is a finalized, immutable register layout.
type Map struct {
	regs   []Register
	byName map[string]int
	words  int
}

// Registers returns the registers in allocation order.
func (m *Map) Registers() []Register {
	regs := make([]Register, len(m.regs))
	copy(regs, m.regs)
	return regs
}

// Len returns the number of registers in the map.
func (m *Map) Len() int { return len(m.regs) }

// Words returns the total size of the map in transport words.
func (m *Map) Words() int { return m.words }

// Lookup returns the register with the given name.
func (m *Map) Lookup(name string) (Register, bool) {
	i, ok := m.byName[name]
	if !ok {
		return Register{}, false
	}
	return m.regs[i], true
}
