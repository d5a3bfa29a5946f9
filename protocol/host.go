package protocol

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

var (
	// ErrTimeout is returned when the board does not answer in time.
	ErrTimeout = errors.New("timeout waiting for response")

	// ErrSequenceMismatch is returned when an ACK does not match the
	// frame it should acknowledge.
	ErrSequenceMismatch = errors.New("sequence mismatch in acknowledge")

	// ErrTransportClosed is returned after Close.
	ErrTransportClosed = errors.New("transport closed")
)

// HostTransport is the host-side end of the link. All register access is
// synchronous: each frame is retransmitted until acknowledged or the
// retries run out.
type HostTransport struct {
	port io.ReadWriteCloser

	writeMu     sync.Mutex
	sequence    uint8
	ackChan     chan *Message
	rspChan     chan *Message
	stopChan    chan struct{}
	doneChan    chan struct{}
	closeOnce   sync.Once
	readTimeout time.Duration
	retries     int
}

// NewHostTransport creates a transport over an open port and starts its
// read loop.
func NewHostTransport(port io.ReadWriteCloser) *HostTransport {
	t := &HostTransport{
		port:        port,
		sequence:    MessageDest,
		ackChan:     make(chan *Message, 4),
		rspChan:     make(chan *Message, 4),
		stopChan:    make(chan struct{}),
		doneChan:    make(chan struct{}),
		readTimeout: 2 * time.Second,
		retries:     3,
	}
	go t.readLoop()
	return t
}

// SetTimeout overrides the per-frame response timeout.
func (t *HostTransport) SetTimeout(d time.Duration) {
	t.readTimeout = d
}

// Close shuts down the read loop and the underlying port.
func (t *HostTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.stopChan)
		err = t.port.Close()
		<-t.doneChan
	})
	return err
}

// WriteWords writes words to consecutive transport addresses starting at
// addr, chunking into frames as needed.
func (t *HostTransport) WriteWords(addr int, words []uint32) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	for len(words) > 0 {
		n := len(words)
		if n > MaxWordsPerFrame {
			n = MaxWordsPerFrame
		}
		chunk := words[:n]

		err := t.transact(func(out OutputBuffer) {
			EncodeVLQUint(out, CmdRegWrite)
			EncodeVLQUint(out, uint32(addr))
			EncodeVLQUint(out, uint32(n))
			for _, w := range chunk {
				EncodeVLQUint(out, w)
			}
		}, nil)
		if err != nil {
			return err
		}

		addr += n
		words = words[n:]
	}
	return nil
}

// ReadWords reads count words starting at transport address addr.
func (t *HostTransport) ReadWords(addr, count int) ([]uint32, error) {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	result := make([]uint32, 0, count)
	for count > 0 {
		n := count
		if n > MaxWordsPerFrame {
			n = MaxWordsPerFrame
		}

		var words []uint32
		err := t.transact(func(out OutputBuffer) {
			EncodeVLQUint(out, CmdRegRead)
			EncodeVLQUint(out, uint32(addr))
			EncodeVLQUint(out, uint32(n))
		}, func(rsp *Message) error {
			var derr error
			words, derr = decodeRegData(rsp.Payload, addr, n)
			return derr
		})
		if err != nil {
			return nil, err
		}

		result = append(result, words...)
		addr += n
		count -= n
	}
	return result, nil
}

// Identify fetches the board's complete dictionary, slice by slice.
func (t *HostTransport) Identify() ([]byte, error) {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	var data []byte
	for {
		offset := uint32(len(data))
		var chunk []byte
		err := t.transact(func(out OutputBuffer) {
			EncodeVLQUint(out, CmdIdentify)
			EncodeVLQUint(out, offset)
			EncodeVLQUint(out, MaxIdentifyChunk)
		}, func(rsp *Message) error {
			var derr error
			chunk, derr = decodeIdentify(rsp.Payload, offset)
			return derr
		})
		if err != nil {
			return nil, err
		}
		if len(chunk) == 0 {
			return data, nil
		}
		data = append(data, chunk...)
	}
}

// transact sends one command frame and waits for its ACK, retransmitting on
// timeout. When handleRsp is non-nil a data response is expected as well.
func (t *HostTransport) transact(payload func(OutputBuffer), handleRsp func(*Message) error) error {
	frame := EncodeFrame(t.sequence, payload)
	expectAck := ((t.sequence + 1) & MessageSeqMask) | MessageDest

	var lastErr error
	for attempt := 0; attempt <= t.retries; attempt++ {
		if _, err := t.port.Write(frame); err != nil {
			return fmt.Errorf("port write: %w", err)
		}

		acked, rsp, err := t.collect(expectAck, handleRsp != nil)
		if err != nil {
			lastErr = err
			continue
		}
		if !acked {
			lastErr = ErrTimeout
			continue
		}

		t.sequence = expectAck
		if handleRsp != nil {
			return handleRsp(rsp)
		}
		return nil
	}
	return lastErr
}

// collect waits for the ACK of the in-flight frame and, when wantRsp is
// set, for the data response belonging to it.
func (t *HostTransport) collect(expectAck uint8, wantRsp bool) (bool, *Message, error) {
	deadline := time.NewTimer(t.readTimeout)
	defer deadline.Stop()

	var rsp *Message
	acked := false
	for !acked || (wantRsp && rsp == nil) {
		select {
		case ack := <-t.ackChan:
			if ack.Sequence != expectAck {
				return false, nil, ErrSequenceMismatch
			}
			acked = true
		case m := <-t.rspChan:
			rsp = m
		case <-deadline.C:
			return false, nil, ErrTimeout
		case <-t.stopChan:
			return false, nil, ErrTransportClosed
		}
	}
	return acked, rsp, nil
}

func (t *HostTransport) readLoop() {
	defer close(t.doneChan)

	scanner := NewFrameScanner()
	input := NewFifoBuffer(4096)
	buf := make([]byte, 256)

	for {
		select {
		case <-t.stopChan:
			return
		default:
		}

		n, err := t.port.Read(buf)
		if n > 0 {
			input.Write(buf[:n])
			scanner.Scan(input, func(msg *Message) {
				if len(msg.Payload) == 0 {
					select {
					case t.ackChan <- msg:
					default:
					}
					return
				}
				select {
				case t.rspChan <- msg:
				default:
				}
			})
		}
		if err != nil {
			return
		}
	}
}

// decodeIdentify parses a RspIdentify payload.
func decodeIdentify(payload []byte, offset uint32) ([]byte, error) {
	cmd, err := DecodeVLQUint(&payload)
	if err != nil || cmd != RspIdentify {
		return nil, fmt.Errorf("unexpected response frame")
	}
	rOffset, err := DecodeVLQUint(&payload)
	if err != nil {
		return nil, err
	}
	if rOffset != offset {
		return nil, fmt.Errorf("identify response for offset %d, requested %d", rOffset, offset)
	}
	count, err := DecodeVLQUint(&payload)
	if err != nil {
		return nil, err
	}

	chunk := make([]byte, count)
	for i := range chunk {
		b, err := DecodeVLQUint(&payload)
		if err != nil {
			return nil, err
		}
		chunk[i] = byte(b)
	}
	return chunk, nil
}

// decodeRegData parses a RspRegData payload and checks that it answers the
// request that was sent.
func decodeRegData(payload []byte, addr, count int) ([]uint32, error) {
	cmd, err := DecodeVLQUint(&payload)
	if err != nil || cmd != RspRegData {
		return nil, fmt.Errorf("unexpected response frame")
	}

	rAddr, err := DecodeVLQUint(&payload)
	if err != nil {
		return nil, err
	}
	rCount, err := DecodeVLQUint(&payload)
	if err != nil {
		return nil, err
	}
	if int(rAddr) != addr || int(rCount) != count {
		return nil, fmt.Errorf("response for %d+%d, requested %d+%d", rAddr, rCount, addr, count)
	}

	words := make([]uint32, rCount)
	for i := range words {
		w, err := DecodeVLQUint(&payload)
		if err != nil {
			return nil, err
		}
		words[i] = w
	}
	return words, nil
}
