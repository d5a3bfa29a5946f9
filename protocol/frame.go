package protocol

// Message is one parsed frame.
type Message struct {
	Length   uint8
	Sequence uint8
	Payload  []byte // frame data without header and trailer
	CRC      uint16
}

// EncodeFrame builds a complete frame: header with the given sequence byte,
// the payload, CRC16 over header plus payload, and the trailing sync byte.
// A nil payload writer produces an ACK frame.
func EncodeFrame(seq uint8, payload func(OutputBuffer)) []byte {
	out := NewScratchOutput()
	out.Output([]byte{0, seq})
	if payload != nil {
		payload(out)
	}

	body := out.CurPosition()
	out.Update(MessagePositionLen, uint8(body+MessageTrailerSize))

	crc := CRC16(out.DataSince(0))
	out.Output([]byte{
		uint8(crc >> 8),
		uint8(crc & 0xFF),
		MessageValueSync,
	})

	result := make([]byte, out.CurPosition())
	copy(result, out.Result())
	return result
}

// FrameScanner extracts complete frames from a byte stream. Any framing
// violation (bad length, bad destination bits, CRC mismatch, missing sync)
// drops the stream out of synchronization; the scanner then discards bytes
// until the next sync byte.
type FrameScanner struct {
	synchronized bool
}

// NewFrameScanner returns a scanner that starts synchronized.
func NewFrameScanner() *FrameScanner {
	return &FrameScanner{synchronized: true}
}

// Scan consumes as many complete frames as the input holds, invoking emit
// for each valid one. Incomplete trailing data is left in the buffer.
func (s *FrameScanner) Scan(input InputBuffer, emit func(*Message)) {
	data := input.Data()

	for len(data) > 0 {
		if !s.synchronized {
			syncPos := -1
			for i, b := range data {
				if b == MessageValueSync {
					syncPos = i
					break
				}
			}
			if syncPos < 0 {
				data = nil
				break
			}
			data = data[syncPos+1:]
			s.synchronized = true
			continue
		}

		// Skip leading sync bytes between frames.
		if data[0] == MessageValueSync {
			data = data[1:]
			continue
		}

		if len(data) < MessageLengthMin {
			break
		}

		msgLen := int(data[MessagePositionLen])
		if msgLen < MessageLengthMin || msgLen > MessageLengthMax {
			s.synchronized = false
			continue
		}

		seq := data[MessagePositionSeq]
		if seq&^uint8(MessageSeqMask) != MessageDest {
			s.synchronized = false
			continue
		}

		// Wait for the full frame to arrive.
		if len(data) < msgLen {
			break
		}

		if data[msgLen-MessageTrailerSync] != MessageValueSync {
			s.synchronized = false
			continue
		}

		frameCRC := uint16(data[msgLen-MessageTrailerCRC])<<8 |
			uint16(data[msgLen-MessageTrailerCRC+1])
		if frameCRC != CRC16(data[:msgLen-MessageTrailerSize]) {
			s.synchronized = false
			continue
		}

		payload := make([]byte, msgLen-MessageHeaderSize-MessageTrailerSize)
		copy(payload, data[MessageHeaderSize:msgLen-MessageTrailerSize])

		emit(&Message{
			Length:   data[MessagePositionLen],
			Sequence: seq,
			Payload:  payload,
			CRC:      frameCRC,
		})

		data = data[msgLen:]
	}

	consumed := input.Available() - len(data)
	if consumed > 0 {
		input.Pop(consumed)
	}
}
