package protocol

import (
	"fmt"
	"net"
	"testing"
	"time"
)

// memoryBus is a flat word array standing in for a board register file.
type memoryBus struct {
	words  []uint32
	writes int
}

func (b *memoryBus) ReadWords(addr, count int) ([]uint32, error) {
	if addr < 0 || addr+count > len(b.words) {
		return nil, fmt.Errorf("address %d+%d out of range", addr, count)
	}
	out := make([]uint32, count)
	copy(out, b.words[addr:addr+count])
	return out, nil
}

func (b *memoryBus) WriteWords(addr int, words []uint32) error {
	if addr < 0 || addr+len(words) > len(b.words) {
		return fmt.Errorf("address %d+%d out of range", addr, len(words))
	}
	copy(b.words[addr:], words)
	b.writes++
	return nil
}

func startLoopback(t *testing.T, bus RegisterBus) *HostTransport {
	t.Helper()

	hostEnd, deviceEnd := net.Pipe()
	server := NewServer(deviceEnd, bus)
	go server.Serve()

	transport := NewHostTransport(hostEnd)
	transport.SetTimeout(time.Second)
	t.Cleanup(func() {
		transport.Close()
		deviceEnd.Close()
	})
	return transport
}

func TestLoopbackWriteRead(t *testing.T) {
	bus := &memoryBus{words: make([]uint32, 64)}
	transport := startLoopback(t, bus)

	want := []uint32{0x12345678, 0, 0xFFFFFFFF, 42}
	if err := transport.WriteWords(8, want); err != nil {
		t.Fatalf("WriteWords: %v", err)
	}

	got, err := transport.ReadWords(8, len(want))
	if err != nil {
		t.Fatalf("ReadWords: %v", err)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("word %d = %#x, want %#x", i, got[i], want[i])
		}
	}
}

func TestLoopbackChunkedTransfer(t *testing.T) {
	bus := &memoryBus{words: make([]uint32, 128)}
	transport := startLoopback(t, bus)

	// More words than fit one frame; the transport must chunk.
	want := make([]uint32, MaxWordsPerFrame*2+5)
	for i := range want {
		want[i] = uint32(i * 3)
	}

	if err := transport.WriteWords(0, want); err != nil {
		t.Fatalf("WriteWords: %v", err)
	}
	if bus.writes < 3 {
		t.Errorf("expected at least 3 chunked writes, got %d", bus.writes)
	}

	got, err := transport.ReadWords(0, len(want))
	if err != nil {
		t.Fatalf("ReadWords: %v", err)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("word %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestLoopbackSequenceAdvances(t *testing.T) {
	bus := &memoryBus{words: make([]uint32, 16)}
	transport := startLoopback(t, bus)

	// More transactions than the 4-bit sequence space, forcing wraparound.
	for i := 0; i < 20; i++ {
		if err := transport.WriteWords(0, []uint32{uint32(i)}); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}
	if bus.words[0] != 19 {
		t.Errorf("final word = %d, want 19", bus.words[0])
	}
}

func TestLoopbackIdentify(t *testing.T) {
	bus := &memoryBus{words: make([]uint32, 16)}

	hostEnd, deviceEnd := net.Pipe()
	server := NewServer(deviceEnd, bus)

	// Longer than one identify chunk, so fetching must iterate.
	dict := make([]byte, MaxIdentifyChunk*3+7)
	for i := range dict {
		dict[i] = byte(i * 7)
	}
	server.SetIdentifyData(dict)
	go server.Serve()

	transport := NewHostTransport(hostEnd)
	transport.SetTimeout(time.Second)
	defer func() {
		transport.Close()
		deviceEnd.Close()
	}()

	got, err := transport.Identify()
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}
	if len(got) != len(dict) {
		t.Fatalf("fetched %d bytes, want %d", len(got), len(dict))
	}
	for i := range dict {
		if got[i] != dict[i] {
			t.Fatalf("dictionary byte %d = %#x, want %#x", i, got[i], dict[i])
		}
	}
}

func TestLoopbackAfterFrameHook(t *testing.T) {
	bus := &memoryBus{words: make([]uint32, 16)}

	hostEnd, deviceEnd := net.Pipe()
	server := NewServer(deviceEnd, bus)
	commits := 0
	server.SetAfterFrame(func() { commits++ })
	go server.Serve()

	transport := NewHostTransport(hostEnd)
	transport.SetTimeout(time.Second)
	defer func() {
		transport.Close()
		deviceEnd.Close()
	}()

	for i := 0; i < 3; i++ {
		if err := transport.WriteWords(1, []uint32{7}); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}
	if commits != 3 {
		t.Errorf("after-frame hook ran %d times, want 3", commits)
	}
}
