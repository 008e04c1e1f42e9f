package dialect

import (
	"bytes"
	"math"

	"github.com/pkg/errors"

	"github.com/vexis-audio/oscrt/osc"
)

// tagError constructs an UnsupportedTagError for a decoded type tag byte a
// dialect's ArgCodec doesn't know.
func tagError(tag byte) error {
	return &osc.UnsupportedTagError{Tag: tag}
}

// kindError reports that an argument's Kind has no representation in this
// dialect at all (as opposed to a decode-time unknown tag byte).
func kindError(k osc.Kind) error {
	return errors.Wrapf(osc.ErrUnsupportedTag, "argument kind %s has no encoding in this dialect", k)
}

func isInf32(v float32) bool { return math.IsInf(float64(v), 0) }
func isInf64(v float64) bool { return math.IsInf(v, 0) }
func isNaN32(v float32) bool { return v != v }
func isNaN64(v float64) bool { return v != v }

// --- Minimal --------------------------------------------------------------

// minimalCodec supports only i, f, s, b. int64 is clamped to int32, float64
// narrowed to float32; anything else is stringified via its diagnostic
// rendering, and a nil argument becomes the literal string "NULL" (spec
// §4.3 table).
type minimalCodec struct{}

func (minimalCodec) EncodeArg(buf *bytes.Buffer, a osc.Argument) (byte, error) {
	switch a.Kind {
	case osc.KindInt32:
		buf.Write(osc.WriteInt32(a.Int32(), nil))
		return 'i', nil
	case osc.KindInt64:
		v := a.Int64()
		buf.Write(osc.WriteInt32(clampInt32(v), nil))
		return 'i', nil
	case osc.KindFloat32:
		buf.Write(osc.WriteFloat32(a.Float32(), nil))
		return 'f', nil
	case osc.KindFloat64:
		buf.Write(osc.WriteFloat32(float32(a.Float64()), nil))
		return 'f', nil
	case osc.KindString:
		buf.Write(osc.WriteString(a.String2(), nil))
		return 's', nil
	case osc.KindBlob:
		buf.Write(osc.WriteBlob(a.Blob2(), nil))
		return 'b', nil
	case osc.KindNil:
		buf.Write(osc.WriteString("NULL", nil))
		return 's', nil
	default:
		buf.Write(osc.WriteString(a.GoString(), nil))
		return 's', nil
	}
}

func (minimalCodec) DecodeArg(data []byte, cursor int, tag byte) (osc.Argument, int, error) {
	switch tag {
	case 'i':
		v, next, err := osc.ReadInt32(data, cursor)
		return osc.Int32(v), next, err
	case 'f':
		v, next, err := osc.ReadFloat32(data, cursor)
		return osc.Float32(v), next, err
	case 's', 'S':
		v, next, err := osc.ReadString(data, cursor)
		return osc.String(v), next, err
	case 'b':
		v, next, err := osc.ReadBlob(data, cursor)
		return osc.Blob(v), next, err
	default:
		return osc.Argument{}, cursor, tagError(tag)
	}
}

func clampInt32(v int64) int32 {
	switch {
	case v > math.MaxInt32:
		return math.MaxInt32
	case v < math.MinInt32:
		return math.MinInt32
	default:
		return int32(v)
	}
}

// Minimal returns the OSC dialect supporting only i, f, s, b. Empty
// type-tag strings are emitted (matches spec §8 scenario 3).
func Minimal() *Converter {
	return &Converter{
		EmitEmptyTypeTagString: true,
		SupportsArrays:         false,
		Codec:                  minimalCodec{},
	}
}

// --- Full-1.0 ---------------------------------------------------------------

// full10Codec is the OSC 1.0/1.1 complete type tag set: every canonical tag
// plus array nesting. NaN floats/doubles encode as 'N' (no payload);
// infinite floats/doubles encode as 'I' (no payload) per spec §4.3.
type full10Codec struct{}

func (full10Codec) EncodeArg(buf *bytes.Buffer, a osc.Argument) (byte, error) {
	switch a.Kind {
	case osc.KindInt32:
		buf.Write(osc.WriteInt32(a.Int32(), nil))
		return 'i', nil
	case osc.KindInt64:
		buf.Write(osc.WriteInt64(a.Int64(), nil))
		return 'h', nil
	case osc.KindFloat32:
		v := a.Float32()
		if isNaN32(v) {
			return 'N', nil
		}
		if isInf32(v) {
			return 'I', nil
		}
		buf.Write(osc.WriteFloat32(v, nil))
		return 'f', nil
	case osc.KindFloat64:
		v := a.Float64()
		if isNaN64(v) {
			return 'N', nil
		}
		if isInf64(v) {
			return 'I', nil
		}
		buf.Write(osc.WriteFloat64(v, nil))
		return 'd', nil
	case osc.KindString:
		buf.Write(osc.WriteString(a.String2(), nil))
		return 's', nil
	case osc.KindBlob:
		buf.Write(osc.WriteBlob(a.Blob2(), nil))
		return 'b', nil
	case osc.KindTimetag:
		buf.Write(osc.WriteTimetag(a.Timetag(), nil))
		return 't', nil
	case osc.KindColor:
		buf.Write(osc.WriteColor(a.Color(), nil))
		return 'r', nil
	case osc.KindMIDI:
		buf.Write(osc.WriteMIDI(a.MIDI(), nil))
		return 'm', nil
	case osc.KindChar:
		buf.Write(osc.WriteChar32(a.Char(), nil))
		return 'c', nil
	case osc.KindBool:
		if a.Bool() {
			return 'T', nil
		}
		return 'F', nil
	case osc.KindNil:
		return 'N', nil
	case osc.KindInf:
		return 'I', nil
	default:
		return 0, kindError(a.Kind)
	}
}

func (full10Codec) DecodeArg(data []byte, cursor int, tag byte) (osc.Argument, int, error) {
	switch tag {
	case 'i':
		v, next, err := osc.ReadInt32(data, cursor)
		return osc.Int32(v), next, err
	case 'h':
		v, next, err := osc.ReadInt64(data, cursor)
		return osc.Int64(v), next, err
	case 'f':
		v, next, err := osc.ReadFloat32(data, cursor)
		return osc.Float32(v), next, err
	case 'd':
		v, next, err := osc.ReadFloat64(data, cursor)
		return osc.Float64(v), next, err
	case 's', 'S':
		v, next, err := osc.ReadString(data, cursor)
		return osc.String(v), next, err
	case 'b':
		v, next, err := osc.ReadBlob(data, cursor)
		return osc.Blob(v), next, err
	case 't':
		v, next, err := osc.ReadTimetag(data, cursor)
		return osc.TimetagArg(v), next, err
	case 'r':
		v, next, err := osc.ReadColor(data, cursor)
		return osc.ColorArg(v), next, err
	case 'm':
		v, next, err := osc.ReadMIDI(data, cursor)
		return osc.MIDIArg(v), next, err
	case 'c':
		v, next, err := osc.ReadChar32(data, cursor)
		return osc.Char(v), next, err
	case 'T':
		return osc.Bool(true), cursor, nil
	case 'F':
		return osc.Bool(false), cursor, nil
	case 'N':
		return osc.Nil(), cursor, nil
	case 'I':
		return osc.Inf(), cursor, nil
	default:
		return osc.Argument{}, cursor, tagError(tag)
	}
}

// Full10 returns the OSC 1.0/1.1 dialect supporting the complete canonical
// type tag set plus array nesting.
func Full10() *Converter {
	return &Converter{
		EmitEmptyTypeTagString: true,
		SupportsArrays:         true,
		Codec:                  full10Codec{},
	}
}

// --- Supercollider sclang ----------------------------------------------------

// sclangCodec matches sclang's argument encoder: no 't' or 'r', int64
// clamped to int32, booleans as T/F, no arrays.
type sclangCodec struct{}

func (sclangCodec) EncodeArg(buf *bytes.Buffer, a osc.Argument) (byte, error) {
	switch a.Kind {
	case osc.KindInt32:
		buf.Write(osc.WriteInt32(a.Int32(), nil))
		return 'i', nil
	case osc.KindInt64:
		buf.Write(osc.WriteInt32(clampInt32(a.Int64()), nil))
		return 'i', nil
	case osc.KindFloat32:
		v := a.Float32()
		if isNaN32(v) {
			return 'N', nil
		}
		if isInf32(v) {
			return 'I', nil
		}
		buf.Write(osc.WriteFloat32(v, nil))
		return 'f', nil
	case osc.KindFloat64:
		v := a.Float64()
		if isNaN64(v) {
			return 'N', nil
		}
		if isInf64(v) {
			return 'I', nil
		}
		buf.Write(osc.WriteFloat64(v, nil))
		return 'd', nil
	case osc.KindString:
		buf.Write(osc.WriteString(a.String2(), nil))
		return 's', nil
	case osc.KindBlob:
		buf.Write(osc.WriteBlob(a.Blob2(), nil))
		return 'b', nil
	case osc.KindMIDI:
		buf.Write(osc.WriteMIDI(a.MIDI(), nil))
		return 'm', nil
	case osc.KindChar:
		buf.Write(osc.WriteChar32(a.Char(), nil))
		return 'c', nil
	case osc.KindBool:
		if a.Bool() {
			return 'T', nil
		}
		return 'F', nil
	case osc.KindNil:
		return 'N', nil
	case osc.KindInf:
		return 'I', nil
	default:
		return 0, kindError(a.Kind)
	}
}

func (sclangCodec) DecodeArg(data []byte, cursor int, tag byte) (osc.Argument, int, error) {
	switch tag {
	case 'i':
		v, next, err := osc.ReadInt32(data, cursor)
		return osc.Int32(v), next, err
	case 'f':
		v, next, err := osc.ReadFloat32(data, cursor)
		return osc.Float32(v), next, err
	case 'd':
		v, next, err := osc.ReadFloat64(data, cursor)
		return osc.Float64(v), next, err
	case 's', 'S':
		v, next, err := osc.ReadString(data, cursor)
		return osc.String(v), next, err
	case 'b':
		v, next, err := osc.ReadBlob(data, cursor)
		return osc.Blob(v), next, err
	case 'm':
		v, next, err := osc.ReadMIDI(data, cursor)
		return osc.MIDIArg(v), next, err
	case 'c':
		v, next, err := osc.ReadChar32(data, cursor)
		return osc.Char(v), next, err
	case 'T':
		return osc.Bool(true), cursor, nil
	case 'F':
		return osc.Bool(false), cursor, nil
	case 'N':
		return osc.Nil(), cursor, nil
	case 'I':
		return osc.Inf(), cursor, nil
	default:
		return osc.Argument{}, cursor, tagError(tag)
	}
}

// Sclang returns the dialect matching SuperCollider's sclang client.
func Sclang() *Converter {
	return &Converter{
		EmitEmptyTypeTagString: true,
		SupportsArrays:         false,
		Codec:                  sclangCodec{},
	}
}

// --- Supercollider scsynth ----------------------------------------------------

// scsynthCodec is the conservative dialect scsynth (the audio server)
// accepts: i, f, s, b, d, int64 clamped to int32, nil encoded as the
// literal string "NULL" rather than the 'N' tag, no arrays.
type scsynthCodec struct{}

func (scsynthCodec) EncodeArg(buf *bytes.Buffer, a osc.Argument) (byte, error) {
	switch a.Kind {
	case osc.KindInt32:
		buf.Write(osc.WriteInt32(a.Int32(), nil))
		return 'i', nil
	case osc.KindInt64:
		buf.Write(osc.WriteInt32(clampInt32(a.Int64()), nil))
		return 'i', nil
	case osc.KindFloat32:
		buf.Write(osc.WriteFloat32(a.Float32(), nil))
		return 'f', nil
	case osc.KindFloat64:
		buf.Write(osc.WriteFloat64(a.Float64(), nil))
		return 'd', nil
	case osc.KindString:
		buf.Write(osc.WriteString(a.String2(), nil))
		return 's', nil
	case osc.KindBlob:
		buf.Write(osc.WriteBlob(a.Blob2(), nil))
		return 'b', nil
	case osc.KindNil:
		buf.Write(osc.WriteString("NULL", nil))
		return 's', nil
	default:
		return 0, kindError(a.Kind)
	}
}

func (scsynthCodec) DecodeArg(data []byte, cursor int, tag byte) (osc.Argument, int, error) {
	switch tag {
	case 'i':
		v, next, err := osc.ReadInt32(data, cursor)
		return osc.Int32(v), next, err
	case 'f':
		v, next, err := osc.ReadFloat32(data, cursor)
		return osc.Float32(v), next, err
	case 'd':
		v, next, err := osc.ReadFloat64(data, cursor)
		return osc.Float64(v), next, err
	case 's', 'S':
		v, next, err := osc.ReadString(data, cursor)
		return osc.String(v), next, err
	case 'b':
		v, next, err := osc.ReadBlob(data, cursor)
		return osc.Blob(v), next, err
	default:
		return osc.Argument{}, cursor, tagError(tag)
	}
}

// Scsynth returns the conservative dialect scsynth accepts.
func Scsynth() *Converter {
	return &Converter{
		EmitEmptyTypeTagString: true,
		SupportsArrays:         false,
		Codec:                  scsynthCodec{},
	}
}
