package osc

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

// Color is an RGBA color packed into 4 bytes on the wire ('r' type tag).
type Color struct {
	R, G, B, A byte
}

// MIDI is a 4-byte MIDI message ('m' type tag): port id, status, data1,
// data2.
type MIDI struct {
	PortID, Status, Data1, Data2 byte
}

// padBytesNeeded returns how many zero bytes must follow n bytes of payload
// so that the total occupies a multiple of 4 bytes.
func padBytesNeeded(n int) int {
	return (4 - n%4) % 4
}

// roundUp4 rounds n up to the next multiple of 4.
func roundUp4(n int) int {
	return n + padBytesNeeded(n)
}

func needBytes(buf []byte, cursor, n int) error {
	if cursor < 0 || n < 0 || cursor+n > len(buf) {
		return errors.Wrapf(ErrMalformed, "need %d bytes at offset %d, have %d", n, cursor, len(buf))
	}
	return nil
}

// ReadInt32 reads a big-endian 32-bit integer.
func ReadInt32(buf []byte, cursor int) (int32, int, error) {
	if err := needBytes(buf, cursor, 4); err != nil {
		return 0, cursor, err
	}
	return int32(binary.BigEndian.Uint32(buf[cursor:])), cursor + 4, nil
}

// WriteInt32 appends a big-endian 32-bit integer.
func WriteInt32(v int32, buf []byte) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], uint32(v))
	return append(buf, tmp[:]...)
}

// ReadInt64 reads a big-endian 64-bit integer.
func ReadInt64(buf []byte, cursor int) (int64, int, error) {
	if err := needBytes(buf, cursor, 8); err != nil {
		return 0, cursor, err
	}
	return int64(binary.BigEndian.Uint64(buf[cursor:])), cursor + 8, nil
}

// WriteInt64 appends a big-endian 64-bit integer.
func WriteInt64(v int64, buf []byte) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], uint64(v))
	return append(buf, tmp[:]...)
}

// ReadFloat32 reads a big-endian IEEE-754 single-precision float.
func ReadFloat32(buf []byte, cursor int) (float32, int, error) {
	if err := needBytes(buf, cursor, 4); err != nil {
		return 0, cursor, err
	}
	return math.Float32frombits(binary.BigEndian.Uint32(buf[cursor:])), cursor + 4, nil
}

// WriteFloat32 appends a big-endian IEEE-754 single-precision float.
func WriteFloat32(v float32, buf []byte) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], math.Float32bits(v))
	return append(buf, tmp[:]...)
}

// ReadFloat64 reads a big-endian IEEE-754 double-precision float.
func ReadFloat64(buf []byte, cursor int) (float64, int, error) {
	if err := needBytes(buf, cursor, 8); err != nil {
		return 0, cursor, err
	}
	return math.Float64frombits(binary.BigEndian.Uint64(buf[cursor:])), cursor + 8, nil
}

// WriteFloat64 appends a big-endian IEEE-754 double-precision float.
func WriteFloat64(v float64, buf []byte) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], math.Float64bits(v))
	return append(buf, tmp[:]...)
}

// ReadTimetag reads an 8-byte NTP time tag.
func ReadTimetag(buf []byte, cursor int) (Timetag, int, error) {
	if err := needBytes(buf, cursor, 8); err != nil {
		return 0, cursor, err
	}
	return TimetagFromBytes(buf[cursor:]), cursor + 8, nil
}

// WriteTimetag appends an 8-byte NTP time tag.
func WriteTimetag(v Timetag, buf []byte) []byte {
	b := v.ToBytes()
	return append(buf, b[:]...)
}

// ReadChar32 reads a 32-bit-wide ASCII character ('c' type tag): the
// character occupies the low byte, the upper 3 bytes are zero.
func ReadChar32(buf []byte, cursor int) (rune, int, error) {
	v, next, err := ReadInt32(buf, cursor)
	if err != nil {
		return 0, cursor, err
	}
	return rune(byte(v)), next, nil
}

// WriteChar32 appends a character padded to 32 bits.
func WriteChar32(r rune, buf []byte) []byte {
	return WriteInt32(int32(byte(r)), buf)
}

// ReadColor reads a 4-byte RGBA color.
func ReadColor(buf []byte, cursor int) (Color, int, error) {
	if err := needBytes(buf, cursor, 4); err != nil {
		return Color{}, cursor, err
	}
	c := Color{buf[cursor], buf[cursor+1], buf[cursor+2], buf[cursor+3]}
	return c, cursor + 4, nil
}

// WriteColor appends a 4-byte RGBA color.
func WriteColor(c Color, buf []byte) []byte {
	return append(buf, c.R, c.G, c.B, c.A)
}

// ReadMIDI reads a 4-byte MIDI message.
func ReadMIDI(buf []byte, cursor int) (MIDI, int, error) {
	if err := needBytes(buf, cursor, 4); err != nil {
		return MIDI{}, cursor, err
	}
	m := MIDI{buf[cursor], buf[cursor+1], buf[cursor+2], buf[cursor+3]}
	return m, cursor + 4, nil
}

// WriteMIDI appends a 4-byte MIDI message.
func WriteMIDI(m MIDI, buf []byte) []byte {
	return append(buf, m.PortID, m.Status, m.Data1, m.Data2)
}

// ReadString reads a null-terminated, 4-byte-aligned OSC-string: bytes are
// consumed up to the first null, then the cursor advances past the full
// 4-aligned span. It fails with ErrMalformed if that span is not wholly
// present in buf.
func ReadString(buf []byte, cursor int) (string, int, error) {
	if cursor < 0 || cursor > len(buf) {
		return "", cursor, errors.Wrapf(ErrMalformed, "osc-string offset %d out of range", cursor)
	}
	end := -1
	for i := cursor; i < len(buf); i++ {
		if buf[i] == 0 {
			end = i
			break
		}
	}
	if end == -1 {
		return "", cursor, errors.Wrap(ErrMalformed, "osc-string missing null terminator")
	}
	span := roundUp4(end - cursor + 1)
	if cursor+span > len(buf) {
		return "", cursor, errors.Wrap(ErrMalformed, "osc-string padding truncated")
	}
	return string(buf[cursor:end]), cursor + span, nil
}

// WriteString appends an OSC-string: payload bytes, at least one null, then
// null padding to the next multiple of 4.
func WriteString(s string, buf []byte) []byte {
	buf = append(buf, s...)
	buf = append(buf, 0)
	pad := padBytesNeeded(len(s) + 1)
	for i := 0; i < pad; i++ {
		buf = append(buf, 0)
	}
	return buf
}

// ReadBlob reads a length-prefixed OSC-blob: a big-endian int32 length L,
// L payload bytes, then (4 - L mod 4) mod 4 null pad bytes.
func ReadBlob(buf []byte, cursor int) ([]byte, int, error) {
	length, next, err := ReadInt32(buf, cursor)
	if err != nil {
		return nil, cursor, errors.Wrap(err, "blob length")
	}
	if length < 0 {
		return nil, cursor, errors.Wrap(ErrMalformed, "negative blob length")
	}
	if err := needBytes(buf, next, int(length)); err != nil {
		return nil, cursor, errors.Wrap(err, "blob payload")
	}
	data := append([]byte(nil), buf[next:next+int(length)]...)
	next += int(length)
	next += padBytesNeeded(int(length))
	if next > len(buf) {
		return nil, cursor, errors.Wrap(ErrMalformed, "blob padding truncated")
	}
	return data, next, nil
}

// WriteBlob appends a length-prefixed, 4-aligned OSC-blob.
func WriteBlob(data []byte, buf []byte) []byte {
	buf = WriteInt32(int32(len(data)), buf)
	buf = append(buf, data...)
	pad := padBytesNeeded(len(data))
	for i := 0; i < pad; i++ {
		buf = append(buf, 0)
	}
	return buf
}
