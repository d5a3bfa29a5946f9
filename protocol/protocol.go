// Package protocol implements the framed register transport between the
// host driver and the interface board. Frames carry register reads and
// writes addressed by transport word; payload integers are VLQ encoded and
// every frame is CRC16-protected.
package protocol

// Frame layout: [length seq payload... crcHigh crcLow sync]
const (
	MessageHeaderSize  = 2
	MessageTrailerSize = 3
	MessageLengthMin   = MessageHeaderSize + MessageTrailerSize
	MessageLengthMax   = 128
	MessagePositionLen = 0
	MessagePositionSeq = 1
	MessageTrailerCRC  = 3
	MessageTrailerSync = 1
	MessageValueSync   = 0x7E

	// Sequence bytes are MessageDest plus a 4-bit rolling counter.
	MessageDest    = 0x10
	MessageSeqMask = 0x0F
)

// Command IDs. The first payload integer of every frame selects the
// operation; zero-payload frames are ACKs.
const (
	RspRegData  = 0 // addr, count, count words: response to CmdRegRead
	CmdRegWrite = 1 // addr, count, count words
	CmdRegRead  = 2 // addr, count
	CmdIdentify = 3 // offset, count: request a slice of the dictionary
	RspIdentify = 4 // offset, count, count bytes: response to CmdIdentify
)

// MaxWordsPerFrame bounds the register words carried by one frame so the
// worst-case VLQ encoding still fits MessageLengthMax. Larger transfers are
// chunked by the caller.
const MaxWordsPerFrame = 16

// MaxIdentifyChunk bounds the dictionary bytes carried by one identify
// response, again sized for the worst-case VLQ encoding.
const MaxIdentifyChunk = 40
