package osc

import "fmt"

// Kind discriminates the variant held by an Argument. The source's boxed
// interface{} with a type switch is re-expressed as an explicit tagged
// union so every dialect's encode/decode path dispatches on Kind instead of
// a Go type assertion.
type Kind uint8

const (
	KindInt32 Kind = iota
	KindInt64
	KindFloat32
	KindFloat64
	KindString
	KindBlob
	KindTimetag
	KindColor
	KindMIDI
	KindChar
	KindBool
	KindNil
	KindInf
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindInt32:
		return "int32"
	case KindInt64:
		return "int64"
	case KindFloat32:
		return "float32"
	case KindFloat64:
		return "float64"
	case KindString:
		return "string"
	case KindBlob:
		return "blob"
	case KindTimetag:
		return "timetag"
	case KindColor:
		return "color"
	case KindMIDI:
		return "midi"
	case KindChar:
		return "char"
	case KindBool:
		return "bool"
	case KindNil:
		return "nil"
	case KindInf:
		return "inf"
	case KindArray:
		return "array"
	default:
		return "unknown"
	}
}

// Argument is a single OSC message argument: a tagged union over every
// value variant the type tag table (spec §3) names, including nested
// arrays for dialects that support them.
type Argument struct {
	Kind  Kind
	i32   int32
	i64   int64
	f32   float32
	f64   float64
	str   string
	blob  []byte
	tt    Timetag
	color Color
	midi  MIDI
	char  rune
	b     bool
	array []Argument
}

// Constructors. Each fixes Kind alongside the payload so accessors never
// need to guess which field is live.

func Int32(v int32) Argument     { return Argument{Kind: KindInt32, i32: v} }
func Int64(v int64) Argument     { return Argument{Kind: KindInt64, i64: v} }
func Float32(v float32) Argument { return Argument{Kind: KindFloat32, f32: v} }
func Float64(v float64) Argument { return Argument{Kind: KindFloat64, f64: v} }
func String(v string) Argument   { return Argument{Kind: KindString, str: v} }
func Blob(v []byte) Argument     { return Argument{Kind: KindBlob, blob: v} }
func TimetagArg(v Timetag) Argument { return Argument{Kind: KindTimetag, tt: v} }
func ColorArg(v Color) Argument   { return Argument{Kind: KindColor, color: v} }
func MIDIArg(v MIDI) Argument     { return Argument{Kind: KindMIDI, midi: v} }
func Char(v rune) Argument        { return Argument{Kind: KindChar, char: v} }
func Bool(v bool) Argument        { return Argument{Kind: KindBool, b: v} }
func Nil() Argument               { return Argument{Kind: KindNil} }
func Inf() Argument                { return Argument{Kind: KindInf} }
func Array(v []Argument) Argument { return Argument{Kind: KindArray, array: v} }

// Accessors. Each panics if Kind doesn't match, mirroring how a type switch
// on the source's boxed interface{} would fail on a mismatched case -- the
// caller is expected to have branched on Kind first.

func (a Argument) Int32() int32 {
	a.mustBe(KindInt32)
	return a.i32
}

func (a Argument) Int64() int64 {
	a.mustBe(KindInt64)
	return a.i64
}

func (a Argument) Float32() float32 {
	a.mustBe(KindFloat32)
	return a.f32
}

func (a Argument) Float64() float64 {
	a.mustBe(KindFloat64)
	return a.f64
}

func (a Argument) String2() string {
	a.mustBe(KindString)
	return a.str
}

func (a Argument) Blob2() []byte {
	a.mustBe(KindBlob)
	return a.blob
}

func (a Argument) Timetag() Timetag {
	a.mustBe(KindTimetag)
	return a.tt
}

func (a Argument) Color() Color {
	a.mustBe(KindColor)
	return a.color
}

func (a Argument) MIDI() MIDI {
	a.mustBe(KindMIDI)
	return a.midi
}

func (a Argument) Char() rune {
	a.mustBe(KindChar)
	return a.char
}

func (a Argument) Bool() bool {
	a.mustBe(KindBool)
	return a.b
}

func (a Argument) Array() []Argument {
	a.mustBe(KindArray)
	return a.array
}

func (a Argument) mustBe(k Kind) {
	if a.Kind != k {
		panic(fmt.Sprintf("osc: Argument is %s, not %s", a.Kind, k))
	}
}

// Equal compares two arguments value-wise, recursing into arrays.
func (a Argument) Equal(b Argument) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindInt32:
		return a.i32 == b.i32
	case KindInt64:
		return a.i64 == b.i64
	case KindFloat32:
		return a.f32 == b.f32 || (a.f32 != a.f32 && b.f32 != b.f32) // NaN == NaN for round-trip checks
	case KindFloat64:
		return a.f64 == b.f64 || (a.f64 != a.f64 && b.f64 != b.f64)
	case KindString:
		return a.str == b.str
	case KindBlob:
		if len(a.blob) != len(b.blob) {
			return false
		}
		for i := range a.blob {
			if a.blob[i] != b.blob[i] {
				return false
			}
		}
		return true
	case KindTimetag:
		return a.tt == b.tt
	case KindColor:
		return a.color == b.color
	case KindMIDI:
		return a.midi == b.midi
	case KindChar:
		return a.char == b.char
	case KindBool:
		return a.b == b.b
	case KindNil, KindInf:
		return true
	case KindArray:
		if len(a.array) != len(b.array) {
			return false
		}
		for i := range a.array {
			if !a.array[i].Equal(b.array[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// CanonicalTag returns the Full-1.0 type tag byte for a's Kind, for
// diagnostic purposes (Message.TypeTags, String). It does not account for
// any particular dialect's restrictions -- a dialect.Converter may encode
// the same argument with a different tag (e.g. Minimal narrows 'h' to 'i').
func (a Argument) CanonicalTag() byte {
	switch a.Kind {
	case KindInt32:
		return 'i'
	case KindInt64:
		return 'h'
	case KindFloat32:
		return 'f'
	case KindFloat64:
		return 'd'
	case KindString:
		return 's'
	case KindBlob:
		return 'b'
	case KindTimetag:
		return 't'
	case KindColor:
		return 'r'
	case KindMIDI:
		return 'm'
	case KindChar:
		return 'c'
	case KindBool:
		if a.b {
			return 'T'
		}
		return 'F'
	case KindNil:
		return 'N'
	case KindInf:
		return 'I'
	default:
		return '?'
	}
}

// GoString renders an argument the way fmt's %v would render the
// equivalent Go value, for diagnostic use only -- never part of the wire
// format.
func (a Argument) GoString() string {
	switch a.Kind {
	case KindInt32:
		return fmt.Sprintf("%d", a.i32)
	case KindInt64:
		return fmt.Sprintf("%d", a.i64)
	case KindFloat32:
		return fmt.Sprintf("%g", a.f32)
	case KindFloat64:
		return fmt.Sprintf("%g", a.f64)
	case KindString:
		return fmt.Sprintf("%q", a.str)
	case KindBlob:
		return fmt.Sprintf("blob[%d]", len(a.blob))
	case KindTimetag:
		return fmt.Sprintf("timetag(%d)", uint64(a.tt))
	case KindColor:
		return fmt.Sprintf("rgba(%d,%d,%d,%d)", a.color.R, a.color.G, a.color.B, a.color.A)
	case KindMIDI:
		return fmt.Sprintf("midi(%d,%d,%d,%d)", a.midi.PortID, a.midi.Status, a.midi.Data1, a.midi.Data2)
	case KindChar:
		return fmt.Sprintf("%q", a.char)
	case KindBool:
		return fmt.Sprintf("%t", a.b)
	case KindNil:
		return "Nil"
	case KindInf:
		return "Inf"
	case KindArray:
		s := "["
		for i, e := range a.array {
			if i > 0 {
				s += " "
			}
			s += e.GoString()
		}
		return s + "]"
	default:
		return "?"
	}
}
