// Package tinycompress wraps data in zlib framing using stored DEFLATE
// blocks. The board dictionary is served through it: standard zlib tooling
// on the host side can decode the result, while the encoder stays trivial
// enough for a softcore.
package tinycompress

import (
	"errors"
	"hash/adler32"
)

var ErrCorrupt = errors.New("tinycompress: corrupt zlib data")

// maxStoredBlock is the largest payload of one stored DEFLATE block.
const maxStoredBlock = 0xFFFF

// Compress wraps input in a zlib stream of stored blocks.
func Compress(input []byte) []byte {
	blocks := (len(input) + maxStoredBlock - 1) / maxStoredBlock
	if blocks == 0 {
		blocks = 1
	}
	out := make([]byte, 0, 2+5*blocks+len(input)+4)

	// Zlib header: deflate, 32K window, default level.
	out = append(out, 0x78, 0x9C)

	rest := input
	for {
		n := len(rest)
		if n > maxStoredBlock {
			n = maxStoredBlock
		}
		final := byte(0)
		if n == len(rest) {
			final = 1
		}
		out = append(out, final,
			byte(n), byte(n>>8),
			byte(^n), byte(^n>>8))
		out = append(out, rest[:n]...)
		rest = rest[n:]
		if final == 1 {
			break
		}
	}

	checksum := adler32.Checksum(input)
	return append(out,
		byte(checksum>>24), byte(checksum>>16),
		byte(checksum>>8), byte(checksum))
}

// Decompress unwraps a stream produced by Compress. General DEFLATE input
// is rejected; only stored blocks are understood.
func Decompress(compressed []byte) ([]byte, error) {
	if len(compressed) < 7 {
		return nil, ErrCorrupt
	}
	if compressed[0] != 0x78 {
		return nil, ErrCorrupt
	}

	pos := 2
	var out []byte
	for {
		if pos+5 > len(compressed)-4 {
			return nil, ErrCorrupt
		}
		header := compressed[pos]
		if header>>1&0x03 != 0 {
			return nil, ErrCorrupt // compressed block types unsupported
		}
		length := int(compressed[pos+1]) | int(compressed[pos+2])<<8
		nlength := int(compressed[pos+3]) | int(compressed[pos+4])<<8
		if length != ^nlength&0xFFFF {
			return nil, ErrCorrupt
		}
		pos += 5

		if pos+length > len(compressed)-4 {
			return nil, ErrCorrupt
		}
		out = append(out, compressed[pos:pos+length]...)
		pos += length

		if header&0x01 != 0 {
			break
		}
	}

	if pos+4 != len(compressed) {
		return nil, ErrCorrupt
	}
	expected := uint32(compressed[pos])<<24 | uint32(compressed[pos+1])<<16 |
		uint32(compressed[pos+2])<<8 | uint32(compressed[pos+3])
	if adler32.Checksum(out) != expected {
		return nil, ErrCorrupt
	}
	return out, nil
}
