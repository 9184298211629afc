package flowplot

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
)

// Protocol constants
const (
	ProtocolVersion byte = 1

	MessageTypeData      byte = 0x01
	MessageTypeMetadata  byte = 0x02
	MessageTypeStreamEnd byte = 0x03

	// Header size in bytes
	EnvelopeHeaderSize = 8
)

// Every message starts with this header, little endian:
//
//	byte 0     version
//	byte 1-2   reserved
//	byte 3     message type
//	byte 4-7   payload length
type EnvelopeHeader struct {
	Version  byte
	Reserved [2]byte
	Type     byte
	Length   uint32
}

// The samples of one panel. SeriesID is the panel row, X holds unix seconds.
type DataMessage struct {
	SeriesID uint32
	Length   uint32
	X        []float64
	Y        []float64
}

type StreamEndMessage struct {
	Error bool
	Msg   string
}

type WSMessage struct {
	Header  EnvelopeHeader
	Payload interface{} // One of: DataMessage, Metadata, StreamEndMessage
}

func EncodeEnvelopeHeader(env EnvelopeHeader) []byte {
	buf := make([]byte, EnvelopeHeaderSize)
	buf[0] = env.Version
	copy(buf[1:3], env.Reserved[:])
	buf[3] = env.Type
	binary.LittleEndian.PutUint32(buf[4:8], env.Length)
	return buf
}

func DecodeEnvelopeHeader(buf []byte) (EnvelopeHeader, error) {
	if len(buf) < EnvelopeHeaderSize {
		return EnvelopeHeader{}, fmt.Errorf("buffer too short: expected at least %d bytes, got %d", EnvelopeHeaderSize, len(buf))
	}

	env := EnvelopeHeader{
		Version: buf[0],
		Type:    buf[3],
		Length:  binary.LittleEndian.Uint32(buf[4:8]),
	}
	copy(env.Reserved[:], buf[1:3])

	return env, nil
}

func putFloats(buf []byte, values []float64) []byte {
	for _, v := range values {
		binary.LittleEndian.PutUint64(buf[:8], math.Float64bits(v))
		buf = buf[8:]
	}
	return buf
}

func readFloats(buf []byte, n uint32) ([]float64, []byte) {
	values := make([]float64, n)
	for i := range values {
		values[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[:8]))
		buf = buf[8:]
	}
	return values, buf
}

// Layout: SeriesID(4) Length(4) X[Length] Y[Length], all float64.
func EncodeDataMessage(msg DataMessage) ([]byte, error) {
	if len(msg.X) != len(msg.Y) {
		return nil, fmt.Errorf("X and Y arrays must have same length: X=%d, Y=%d", len(msg.X), len(msg.Y))
	}
	if uint32(len(msg.X)) != msg.Length {
		return nil, fmt.Errorf("Length field (%d) doesn't match array length (%d)", msg.Length, len(msg.X))
	}

	buf := make([]byte, 8+msg.Length*16)
	binary.LittleEndian.PutUint32(buf[0:4], msg.SeriesID)
	binary.LittleEndian.PutUint32(buf[4:8], msg.Length)

	rest := putFloats(buf[8:], msg.X)
	putFloats(rest, msg.Y)

	return buf, nil
}

func DecodeDataMessage(buf []byte) (DataMessage, error) {
	if len(buf) < 8 {
		return DataMessage{}, fmt.Errorf("buffer too short for DATA message: expected at least 8 bytes, got %d", len(buf))
	}

	msg := DataMessage{
		SeriesID: binary.LittleEndian.Uint32(buf[0:4]),
		Length:   binary.LittleEndian.Uint32(buf[4:8]),
	}

	expectedSize := 8 + uint64(msg.Length)*16
	if uint64(len(buf)) != expectedSize {
		return DataMessage{}, fmt.Errorf("buffer size mismatch: expected %d bytes for %d pairs, got %d", expectedSize, msg.Length, len(buf))
	}

	var rest []byte
	msg.X, rest = readFloats(buf[8:], msg.Length)
	msg.Y, _ = readFloats(rest, msg.Length)

	return msg, nil
}

// METADATA and STREAM_END payloads are a 4 byte JSON length followed by the
// JSON document.
func encodeJSONPayload(kind string, v interface{}) ([]byte, error) {
	jsonData, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", kind, err)
	}

	buf := make([]byte, 4+len(jsonData))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(jsonData)))
	copy(buf[4:], jsonData)

	return buf, nil
}

func decodeJSONPayload[T any](kind string, buf []byte) (T, error) {
	var v T
	if len(buf) < 4 {
		return v, fmt.Errorf("buffer too short for %s: expected at least 4 bytes, got %d", kind, len(buf))
	}

	expectedSize := 4 + uint64(binary.LittleEndian.Uint32(buf[0:4]))
	if uint64(len(buf)) != expectedSize {
		return v, fmt.Errorf("buffer size mismatch: expected %d bytes, got %d", expectedSize, len(buf))
	}

	if err := json.Unmarshal(buf[4:], &v); err != nil {
		return v, fmt.Errorf("failed to unmarshal %s: %w", kind, err)
	}

	return v, nil
}

func EncodeMetadataMessage(metadata Metadata) ([]byte, error) {
	return encodeJSONPayload("metadata", metadata)
}

func DecodeMetadataMessage(buf []byte) (Metadata, error) {
	return decodeJSONPayload[Metadata]("metadata", buf)
}

func EncodeStreamEndMessage(msg StreamEndMessage) ([]byte, error) {
	return encodeJSONPayload("stream end message", msg)
}

func DecodeStreamEndMessage(buf []byte) (StreamEndMessage, error) {
	return decodeJSONPayload[StreamEndMessage]("stream end message", buf)
}

// Encodes header and payload. The header length is set from the payload.
func EncodeWSMessage(msg WSMessage) ([]byte, error) {
	var payload []byte
	var err error

	switch msg.Header.Type {
	case MessageTypeData:
		dataMsg, ok := msg.Payload.(DataMessage)
		if !ok {
			return nil, fmt.Errorf("payload type mismatch: expected DataMessage for type 0x%02x, got %T", msg.Header.Type, msg.Payload)
		}
		payload, err = EncodeDataMessage(dataMsg)
	case MessageTypeMetadata:
		metadata, ok := msg.Payload.(Metadata)
		if !ok {
			return nil, fmt.Errorf("payload type mismatch: expected Metadata for type 0x%02x, got %T", msg.Header.Type, msg.Payload)
		}
		payload, err = EncodeMetadataMessage(metadata)
	case MessageTypeStreamEnd:
		streamEnd, ok := msg.Payload.(StreamEndMessage)
		if !ok {
			return nil, fmt.Errorf("payload type mismatch: expected StreamEndMessage for type 0x%02x, got %T", msg.Header.Type, msg.Payload)
		}
		payload, err = EncodeStreamEndMessage(streamEnd)
	default:
		return nil, fmt.Errorf("unknown message type: 0x%02x", msg.Header.Type)
	}
	if err != nil {
		return nil, err
	}

	msg.Header.Length = uint32(len(payload))

	return append(EncodeEnvelopeHeader(msg.Header), payload...), nil
}

func DecodeWSMessage(buf []byte) (WSMessage, error) {
	env, err := DecodeEnvelopeHeader(buf)
	if err != nil {
		return WSMessage{}, err
	}

	expectedSize := EnvelopeHeaderSize + uint64(env.Length)
	if uint64(len(buf)) < expectedSize {
		return WSMessage{}, fmt.Errorf("buffer too short: expected %d bytes (header + payload), got %d", expectedSize, len(buf))
	}

	payloadBytes := buf[EnvelopeHeaderSize:expectedSize]

	var payload interface{}
	switch env.Type {
	case MessageTypeData:
		payload, err = DecodeDataMessage(payloadBytes)
	case MessageTypeMetadata:
		payload, err = DecodeMetadataMessage(payloadBytes)
	case MessageTypeStreamEnd:
		payload, err = DecodeStreamEndMessage(payloadBytes)
	default:
		return WSMessage{}, fmt.Errorf("unknown message type: 0x%02x", env.Type)
	}
	if err != nil {
		return WSMessage{}, err
	}

	return WSMessage{
		Header:  env,
		Payload: payload,
	}, nil
}

func newWSMessage(messageType byte, payload interface{}) WSMessage {
	return WSMessage{
		Header:  EnvelopeHeader{Version: ProtocolVersion, Type: messageType},
		Payload: payload,
	}
}

// The messages that describe a figure, in the order they are sent: its
// metadata, one DATA message per panel and a STREAM_END.
func FigureMessages(f *Figure) []WSMessage {
	messages := make([]WSMessage, 0, len(f.Panels)+2)
	messages = append(messages, newWSMessage(MessageTypeMetadata, f.Metadata()))

	for _, p := range f.Panels {
		for _, s := range p.Series {
			x := make([]float64, len(s.Times))
			for i, t := range s.Times {
				x[i] = float64(t.UnixMicro()) / 1000000.0
			}

			messages = append(messages, newWSMessage(MessageTypeData, DataMessage{
				SeriesID: uint32(p.Row),
				Length:   uint32(len(x)),
				X:        x,
				Y:        s.Values,
			}))
		}
	}

	messages = append(messages, newWSMessage(MessageTypeStreamEnd, StreamEndMessage{Msg: "figure complete"}))
	return messages
}
