package tinycompress

import (
	"bytes"
	"compress/zlib"
	"io"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	inputs := [][]byte{
		nil,
		[]byte("x"),
		[]byte(`{"board_name":"colorlight_5a75e","encoders":2}`),
		bytes.Repeat([]byte("abcdefgh"), 512),
	}

	for _, input := range inputs {
		compressed := Compress(input)
		out, err := Decompress(compressed)
		if err != nil {
			t.Fatalf("Decompress(%d bytes): %v", len(input), err)
		}
		if !bytes.Equal(out, input) {
			t.Errorf("round trip of %d bytes mismatched", len(input))
		}
	}
}

// TestStdlibCompatible checks that an ordinary zlib reader accepts the
// stored-block stream, since host-side tooling will not use this package.
func TestStdlibCompatible(t *testing.T) {
	input := []byte(`{"registers":[{"name":"watchdog_data","addr":0}]}`)

	r, err := zlib.NewReader(bytes.NewReader(Compress(input)))
	if err != nil {
		t.Fatalf("zlib.NewReader: %v", err)
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(out, input) {
		t.Errorf("stdlib decoded %q, want %q", out, input)
	}
}

func TestDecompressRejectsCorrupt(t *testing.T) {
	good := Compress([]byte("payload"))

	cases := map[string][]byte{
		"too short":    good[:5],
		"bad header":   append([]byte{0x00}, good[1:]...),
		"bad checksum": append(append([]byte{}, good[:len(good)-1]...), good[len(good)-1]^0xFF),
	}
	for name, data := range cases {
		if _, err := Decompress(data); err == nil {
			t.Errorf("%s: corrupt input accepted", name)
		}
	}
}

func TestMultiBlock(t *testing.T) {
	// Larger than one stored block, forcing a block split.
	input := bytes.Repeat([]byte{0x42}, maxStoredBlock+100)

	out, err := Decompress(Compress(input))
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if !bytes.Equal(out, input) {
		t.Error("multi-block round trip mismatched")
	}
}
