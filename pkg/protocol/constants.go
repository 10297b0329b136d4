package protocol

// Status packet magic bytes ('M', 'C')
const (
	Magic0 = 'M'
	Magic1 = 'C'
)

// Packet size constants (in bytes)
const (
	StatusPacketSize  = 20 // Fixed size for protocol revision 5
	StatusPacketWords = 5  // Declared length in 4-byte words
	WordSize          = 4  // Length field unit
	HeaderSize        = 4  // Magic + kind + words
)

// Status packet field offsets
const (
	OffsetMagic     = 0  // 2 bytes: 'M', 'C'
	OffsetKind      = 2  // 1 byte: event kind
	OffsetWords     = 3  // 1 byte: packet size in 4-byte words
	OffsetP25ID     = 4  // 4 bytes: system ID (12 bits) | WACN (20 bits)
	OffsetNAC       = 8  // 2 bytes: network access code (12 bits)
	OffsetTalkgroup = 10 // 2 bytes: talkgroup ID, 0 when not applicable
	OffsetRadioID   = 12 // 4 bytes: source radio/unit ID
	OffsetTimestamp = 16 // 4 bytes: Unix epoch seconds
)

// Composite P25 ID bit layout: system ID in [31:20], WACN in [19:0]
const (
	SystemIDMask  = 0x0FFF
	SystemIDShift = 20
	WACNMask      = 0xFFFFF
	NACMask       = 0x0FFF
)

// EventKind identifies the trunked-radio event a status packet reports.
// Values are stable for the lifetime of the protocol; 0 is reserved and
// never transmitted.
type EventKind uint8

const (
	EventInvalid             EventKind = 0
	EventRegistered          EventKind = 1 // Unit registration (on)
	EventDeregistered        EventKind = 2 // Unit de-registration (off)
	EventAcknowledgeResponse EventKind = 3 // Unit acknowledge response
	EventAffiliated          EventKind = 4 // Talkgroup affiliation (join)
	EventDataGrant           EventKind = 5 // Data channel grant
	EventAnswerRequest       EventKind = 6 // Unit-to-unit answer request
	EventLocationUpdate      EventKind = 7 // Location/roaming update
	EventPushToTalk          EventKind = 8 // Call start / PTT pressed
)

// String returns a short lowercase name suitable for logs and topics.
func (k EventKind) String() string {
	switch k {
	case EventRegistered:
		return "registered"
	case EventDeregistered:
		return "deregistered"
	case EventAcknowledgeResponse:
		return "ack_response"
	case EventAffiliated:
		return "affiliated"
	case EventDataGrant:
		return "data_grant"
	case EventAnswerRequest:
		return "answer_request"
	case EventLocationUpdate:
		return "location"
	case EventPushToTalk:
		return "push_to_talk"
	default:
		return "invalid"
	}
}

// Valid reports whether the kind is one of the transmittable values.
func (k EventKind) Valid() bool {
	return k >= EventRegistered && k <= EventPushToTalk
}
