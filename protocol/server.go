package protocol

import (
	"errors"
	"fmt"
	"io"
)

// RegisterBus is the word-addressed register interface the server exposes
// over the link. The board's register file implements it directly.
type RegisterBus interface {
	ReadWords(addr, count int) ([]uint32, error)
	WriteWords(addr int, words []uint32) error
}

// Server is the board-side end of the link. It validates incoming frames,
// applies register writes, answers register reads and acknowledges every
// in-sequence frame.
type Server struct {
	rw      io.ReadWriter
	bus     RegisterBus
	scanner *FrameScanner
	input   *FifoBuffer

	nextSequence uint8

	// identify holds the compressed board dictionary served in slices
	// through CmdIdentify.
	identify []byte

	// afterFrame runs after each processed command frame, before the ACK
	// is sent. The board uses it to commit staged register writes.
	afterFrame func()
}

// NewServer creates a server speaking over rw against the given bus.
func NewServer(rw io.ReadWriter, bus RegisterBus) *Server {
	return &Server{
		rw:           rw,
		bus:          bus,
		scanner:      NewFrameScanner(),
		input:        NewFifoBuffer(1024),
		nextSequence: MessageDest,
	}
}

// SetAfterFrame registers a hook invoked once per accepted command frame.
func (s *Server) SetAfterFrame(fn func()) {
	s.afterFrame = fn
}

// SetIdentifyData sets the compressed dictionary served to the host.
func (s *Server) SetIdentifyData(data []byte) {
	s.identify = data
}

// Serve reads the link until EOF or error, processing frames as they arrive.
func (s *Server) Serve() error {
	buf := make([]byte, 256)
	for {
		n, err := s.rw.Read(buf)
		if n > 0 {
			s.input.Write(buf[:n])
			if perr := s.process(); perr != nil {
				return perr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

func (s *Server) process() error {
	var sendErr error
	s.scanner.Scan(s.input, func(msg *Message) {
		if sendErr != nil {
			return
		}

		// A frame at the base sequence means the host restarted; resync
		// to it instead of ignoring the host forever.
		if msg.Sequence == MessageDest {
			s.nextSequence = MessageDest
		}

		if msg.Sequence == s.nextSequence {
			s.nextSequence = ((msg.Sequence + 1) & MessageSeqMask) | MessageDest
			if err := s.handleFrame(msg.Payload); err != nil {
				sendErr = err
				return
			}
		}

		// The ACK carries the next expected sequence, so a duplicate or
		// out-of-order frame is answered with the same value again.
		sendErr = s.send(EncodeFrame(s.nextSequence, nil))
	})
	return sendErr
}

func (s *Server) handleFrame(payload []byte) error {
	for len(payload) > 0 {
		cmd, err := DecodeVLQUint(&payload)
		if err != nil {
			return nil // truncated payload, drop the rest
		}

		switch cmd {
		case CmdRegWrite:
			if err := s.handleWrite(&payload); err != nil {
				return err
			}
		case CmdRegRead:
			if err := s.handleRead(&payload); err != nil {
				return err
			}
		case CmdIdentify:
			if err := s.handleIdentify(&payload); err != nil {
				return err
			}
		default:
			return nil
		}
	}

	if s.afterFrame != nil {
		s.afterFrame()
	}
	return nil
}

func (s *Server) handleWrite(payload *[]byte) error {
	addr, err := DecodeVLQUint(payload)
	if err != nil {
		return nil
	}
	count, err := DecodeVLQUint(payload)
	if err != nil || count > MaxWordsPerFrame {
		return nil
	}

	words := make([]uint32, count)
	for i := range words {
		w, err := DecodeVLQUint(payload)
		if err != nil {
			return nil
		}
		words[i] = w
	}

	if err := s.bus.WriteWords(int(addr), words); err != nil {
		return fmt.Errorf("register write at %d: %w", addr, err)
	}
	return nil
}

func (s *Server) handleRead(payload *[]byte) error {
	addr, err := DecodeVLQUint(payload)
	if err != nil {
		return nil
	}
	count, err := DecodeVLQUint(payload)
	if err != nil || count > MaxWordsPerFrame {
		return nil
	}

	words, err := s.bus.ReadWords(int(addr), int(count))
	if err != nil {
		return fmt.Errorf("register read at %d: %w", addr, err)
	}

	frame := EncodeFrame(s.nextSequence, func(out OutputBuffer) {
		EncodeVLQUint(out, RspRegData)
		EncodeVLQUint(out, addr)
		EncodeVLQUint(out, uint32(len(words)))
		for _, w := range words {
			EncodeVLQUint(out, w)
		}
	})
	return s.send(frame)
}

// handleIdentify answers with a slice of the dictionary. A request past the
// end gets an empty slice, which is how the host detects completion.
func (s *Server) handleIdentify(payload *[]byte) error {
	offset, err := DecodeVLQUint(payload)
	if err != nil {
		return nil
	}
	count, err := DecodeVLQUint(payload)
	if err != nil {
		return nil
	}

	if count > MaxIdentifyChunk {
		count = MaxIdentifyChunk
	}
	start := int(offset)
	if start > len(s.identify) {
		start = len(s.identify)
	}
	end := start + int(count)
	if end > len(s.identify) {
		end = len(s.identify)
	}
	chunk := s.identify[start:end]

	frame := EncodeFrame(s.nextSequence, func(out OutputBuffer) {
		EncodeVLQUint(out, RspIdentify)
		EncodeVLQUint(out, offset)
		EncodeVLQUint(out, uint32(len(chunk)))
		for _, b := range chunk {
			EncodeVLQUint(out, uint32(b))
		}
	})
	return s.send(frame)
}

func (s *Server) send(frame []byte) error {
	if _, err := s.rw.Write(frame); err != nil {
		return fmt.Errorf("link write: %w", err)
	}
	return nil
}
