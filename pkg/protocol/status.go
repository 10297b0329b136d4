// Package protocol implements the 20-byte trunked-radio status packet
// carried one-per-datagram over UDP.
//
// All multi-byte fields are little-endian. The layout is fixed for this
// protocol revision (length word = 5); both producer and consumer are
// controlled by the same revision, so no network-order conversion is
// performed.
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrMalformedPacket is returned when decoding input that is not a valid
// status packet: short header, wrong magic bytes, or a declared length
// exceeding the available bytes.
var ErrMalformedPacket = errors.New("malformed status packet")

// StatusPacket is a single trunked-radio status event on the wire.
type StatusPacket struct {
	Kind        EventKind // Event kind, 1-8
	Words       uint8     // Packet size in 4-byte words, always 5
	P25ID       uint32    // System ID [31:20] | WACN [19:0]
	NAC         uint16    // Network access code, 12 bits
	TalkgroupID uint16    // Talkgroup, 0 when not applicable
	RadioID     uint32    // Radio/unit that triggered the event
	Timestamp   uint32    // Unix epoch seconds
}

// PackP25ID combines a 12-bit system ID and 20-bit WACN into the composite
// identifier. Oversized inputs are silently masked; this truncation is part
// of the wire contract and must not be tightened.
func PackP25ID(systemID uint16, wacn uint32) uint32 {
	return (uint32(systemID&SystemIDMask) << SystemIDShift) | (wacn & WACNMask)
}

// UnpackSystemID extracts the 12-bit system ID from a composite P25 ID.
func UnpackSystemID(p25ID uint32) uint16 {
	return uint16(p25ID >> SystemIDShift)
}

// UnpackWACN extracts the 20-bit WACN from a composite P25 ID.
func UnpackWACN(p25ID uint32) uint32 {
	return p25ID & WACNMask
}

// MaskNAC reduces a raw NAC-bearing value to its 12 significant bits.
func MaskNAC(raw uint32) uint16 {
	return uint16(raw & NACMask)
}

// NewStatusPacket builds a revision-5 packet with all identifier masking
// applied.
func NewStatusPacket(kind EventKind, systemID uint16, wacn uint32, nac uint32, talkgroup uint16, radioID uint32, timestamp uint32) *StatusPacket {
	return &StatusPacket{
		Kind:        kind,
		Words:       StatusPacketWords,
		P25ID:       PackP25ID(systemID, wacn),
		NAC:         MaskNAC(nac),
		TalkgroupID: talkgroup,
		RadioID:     radioID,
		Timestamp:   timestamp,
	}
}

// Encode serializes the packet to its exact 20-byte wire form.
func (p *StatusPacket) Encode() ([]byte, error) {
	if !p.Kind.Valid() {
		return nil, fmt.Errorf("cannot encode invalid event kind %d", p.Kind)
	}

	data := make([]byte, StatusPacketSize)
	data[OffsetMagic] = Magic0
	data[OffsetMagic+1] = Magic1
	data[OffsetKind] = byte(p.Kind)
	data[OffsetWords] = StatusPacketWords
	binary.LittleEndian.PutUint32(data[OffsetP25ID:OffsetP25ID+4], p.P25ID)
	binary.LittleEndian.PutUint16(data[OffsetNAC:OffsetNAC+2], p.NAC&NACMask)
	binary.LittleEndian.PutUint16(data[OffsetTalkgroup:OffsetTalkgroup+2], p.TalkgroupID)
	binary.LittleEndian.PutUint32(data[OffsetRadioID:OffsetRadioID+4], p.RadioID)
	binary.LittleEndian.PutUint32(data[OffsetTimestamp:OffsetTimestamp+4], p.Timestamp)

	return data, nil
}

// Parse decodes a revision-5 status packet from raw bytes.
func (p *StatusPacket) Parse(data []byte) error {
	if len(data) < HeaderSize {
		return fmt.Errorf("%w: %d bytes, need at least %d header bytes",
			ErrMalformedPacket, len(data), HeaderSize)
	}

	if data[OffsetMagic] != Magic0 || data[OffsetMagic+1] != Magic1 {
		return fmt.Errorf("%w: bad magic 0x%02X%02X",
			ErrMalformedPacket, data[OffsetMagic], data[OffsetMagic+1])
	}

	words := data[OffsetWords]
	size := int(words) * WordSize
	if size > len(data) {
		return fmt.Errorf("%w: declared %d bytes, only %d available",
			ErrMalformedPacket, size, len(data))
	}
	if words != StatusPacketWords {
		return fmt.Errorf("%w: unsupported length %d words", ErrMalformedPacket, words)
	}

	p.Kind = EventKind(data[OffsetKind])
	p.Words = words
	p.P25ID = binary.LittleEndian.Uint32(data[OffsetP25ID : OffsetP25ID+4])
	p.NAC = binary.LittleEndian.Uint16(data[OffsetNAC : OffsetNAC+2])
	p.TalkgroupID = binary.LittleEndian.Uint16(data[OffsetTalkgroup : OffsetTalkgroup+2])
	p.RadioID = binary.LittleEndian.Uint32(data[OffsetRadioID : OffsetRadioID+4])
	p.Timestamp = binary.LittleEndian.Uint32(data[OffsetTimestamp : OffsetTimestamp+4])

	return nil
}

// ParseStatus decodes a status packet from raw bytes.
func ParseStatus(data []byte) (*StatusPacket, error) {
	p := &StatusPacket{}
	err := p.Parse(data)
	return p, err
}

// ConsumeFrame decodes the next frame from a buffer, returning the packet
// and the number of bytes consumed. A frame with a valid header but an
// unknown length word is a future protocol extension: it is skipped (nil
// packet, non-zero n) rather than treated as an error, so decoders stay
// forward compatible.
func ConsumeFrame(data []byte) (*StatusPacket, int, error) {
	if len(data) < HeaderSize {
		return nil, 0, fmt.Errorf("%w: %d bytes, need at least %d header bytes",
			ErrMalformedPacket, len(data), HeaderSize)
	}
	if data[OffsetMagic] != Magic0 || data[OffsetMagic+1] != Magic1 {
		return nil, 0, fmt.Errorf("%w: bad magic 0x%02X%02X",
			ErrMalformedPacket, data[OffsetMagic], data[OffsetMagic+1])
	}

	words := data[OffsetWords]
	size := int(words) * WordSize
	if size > len(data) {
		return nil, 0, fmt.Errorf("%w: declared %d bytes, only %d available",
			ErrMalformedPacket, size, len(data))
	}

	if words != StatusPacketWords {
		// Unknown extension, skip it.
		return nil, size, nil
	}

	p := &StatusPacket{}
	if err := p.Parse(data[:size]); err != nil {
		return nil, 0, err
	}
	return p, size, nil
}

// Equal reports whether two packets carry the same status for duplicate
// suppression. Magic and the length word are excluded from the identity;
// every other field, including the timestamp, participates.
func (p *StatusPacket) Equal(o *StatusPacket) bool {
	if o == nil {
		return false
	}
	return p.Kind == o.Kind &&
		p.P25ID == o.P25ID &&
		p.NAC == o.NAC &&
		p.TalkgroupID == o.TalkgroupID &&
		p.RadioID == o.RadioID &&
		p.Timestamp == o.Timestamp
}
