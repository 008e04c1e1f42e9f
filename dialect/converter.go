// Package dialect implements the OSC Converter abstraction (spec §4.3): a
// message/bundle/packet codec parameterized by a pluggable per-dialect
// argument codec, re-expressing what the source modeled as an inheritance
// hierarchy of converter subclasses as a single Converter driven by an
// ArgCodec interface plus two capability flags.
package dialect

import (
	"bytes"

	"github.com/pkg/errors"

	"github.com/vexis-audio/oscrt/osc"
)

// ArgCodec is the argument-level plugin a Converter is parameterized by.
// Each concrete dialect (Minimal, Full10, Sclang, Scsynth) provides one.
type ArgCodec interface {
	// EncodeArg appends arg's value bytes (if any) to buf and returns the
	// type tag byte that should appear in the type-tag string.
	EncodeArg(buf *bytes.Buffer, arg osc.Argument) (tag byte, err error)
	// DecodeArg reads the value for the given tag byte out of data starting
	// at cursor, returning the parsed argument and the advanced cursor.
	DecodeArg(data []byte, cursor int, tag byte) (osc.Argument, int, error)
}

// Converter serializes and parses Messages, Bundles and Packets for one OSC
// dialect.
type Converter struct {
	// EmitEmptyTypeTagString controls whether a zero-argument message
	// still carries the 4-byte ",\x00\x00\x00" type-tag string.
	EmitEmptyTypeTagString bool
	// SupportsArrays controls whether '['/']' type-tag nesting is honored.
	// When false, argument arrays are flattened on encode and arrays are
	// rejected with ErrUnsupportedTag on decode.
	SupportsArrays bool
	Codec          ArgCodec
}

// EncodeMessage serializes m per the algorithm in spec §4.3.
func (c *Converter) EncodeMessage(m *osc.Message) ([]byte, error) {
	out := osc.WriteString(m.Address, nil)

	if len(m.Arguments) == 0 {
		if c.EmitEmptyTypeTagString {
			out = osc.WriteString(",", out)
		}
		return out, nil
	}

	tags := []byte{','}
	var vals bytes.Buffer
	for _, a := range m.Arguments {
		if err := c.encodeArgument(&tags, &vals, a); err != nil {
			return nil, err
		}
	}
	tags = append(tags, 0)
	for len(tags)%4 != 0 {
		tags = append(tags, 0)
	}
	out = append(out, tags...)
	out = append(out, vals.Bytes()...)
	return out, nil
}

func (c *Converter) encodeArgument(tags *[]byte, vals *bytes.Buffer, a osc.Argument) error {
	if a.Kind == osc.KindArray {
		if c.SupportsArrays {
			*tags = append(*tags, '[')
			for _, e := range a.Array() {
				if err := c.encodeArgument(tags, vals, e); err != nil {
					return err
				}
			}
			*tags = append(*tags, ']')
			return nil
		}
		// Dialect doesn't support arrays: flatten in place.
		for _, e := range a.Array() {
			if err := c.encodeArgument(tags, vals, e); err != nil {
				return err
			}
		}
		return nil
	}
	tag, err := c.Codec.EncodeArg(vals, a)
	if err != nil {
		return err
	}
	*tags = append(*tags, tag)
	return nil
}

// DecodeMessage parses a message out of data starting at cursor per the
// algorithm in spec §4.3, returning the advanced cursor.
func (c *Converter) DecodeMessage(data []byte, cursor int) (*osc.Message, int, error) {
	addr, cursor, err := osc.ReadString(data, cursor)
	if err != nil {
		return nil, 0, errors.Wrap(err, "message address")
	}
	if err := osc.ValidateAddress(addr); err != nil {
		return nil, 0, err
	}

	if cursor == len(data) {
		if c.EmitEmptyTypeTagString {
			return nil, 0, errors.Wrap(osc.ErrMalformed, "message: missing required empty type-tag string")
		}
		return &osc.Message{Address: addr}, cursor, nil
	}

	if data[cursor] != ',' {
		return nil, 0, errors.Wrap(osc.ErrMalformed, "message: missing ',' type-tag prefix")
	}
	tagStr, next, err := osc.ReadString(data, cursor)
	if err != nil {
		return nil, 0, errors.Wrap(err, "message type-tag string")
	}
	tags := tagStr[1:]

	args, ti, valCursor, err := c.decodeTagRun(data, next, tags, 0)
	if err != nil {
		return nil, 0, err
	}
	if ti != len(tags) {
		return nil, 0, errors.Wrap(osc.ErrMalformed, "message: unbalanced ']' in type tags")
	}
	return &osc.Message{Address: addr, Arguments: args}, valCursor, nil
}

// decodeTagRun decodes a run of type tags starting at tags[i], stopping at
// either end of string or an unmatched ']' (the latter is left for the
// caller that opened the corresponding '[' to consume).
func (c *Converter) decodeTagRun(data []byte, cursor int, tags string, i int) ([]osc.Argument, int, int, error) {
	var args []osc.Argument
	for i < len(tags) {
		tag := tags[i]
		if tag == ']' {
			return args, i, cursor, nil
		}
		if tag == '[' {
			if !c.SupportsArrays {
				return nil, 0, 0, errors.Wrap(osc.ErrUnsupportedTag, "message: '[' not supported by dialect")
			}
			inner, ni, nc, err := c.decodeTagRun(data, cursor, tags, i+1)
			if err != nil {
				return nil, 0, 0, err
			}
			if ni >= len(tags) || tags[ni] != ']' {
				return nil, 0, 0, errors.Wrap(osc.ErrMalformed, "message: unbalanced '[' in type tags")
			}
			args = append(args, osc.Array(inner))
			i = ni + 1
			cursor = nc
			continue
		}
		arg, nc, err := c.Codec.DecodeArg(data, cursor, tag)
		if err != nil {
			return nil, 0, 0, err
		}
		args = append(args, arg)
		cursor = nc
		i++
	}
	return args, i, cursor, nil
}

// EncodeBundle serializes b: "#bundle\0", the time tag, then each child
// element as a 4-byte size prefix followed by its own encoded bytes.
func (c *Converter) EncodeBundle(b *osc.Bundle) ([]byte, error) {
	out := make([]byte, 0, 16)
	out = append(out, "#bundle\x00"...)
	tt := b.Timetag.ToBytes()
	out = append(out, tt[:]...)

	for _, elem := range b.Elements {
		eb, err := c.EncodePacket(elem)
		if err != nil {
			return nil, err
		}
		out = osc.WriteInt32(int32(len(eb)), out)
		out = append(out, eb...)
	}
	return out, nil
}

// EncodePacket serializes either a *osc.Message or *osc.Bundle.
func (c *Converter) EncodePacket(p osc.Packet) ([]byte, error) {
	switch v := p.(type) {
	case *osc.Message:
		return c.EncodeMessage(v)
	case *osc.Bundle:
		return c.EncodeBundle(v)
	default:
		return nil, errors.Errorf("dialect: unknown packet type %T", p)
	}
}

// DecodeBundle parses a bundle out of data starting at cursor. end bounds
// the bundle's declared extent (exclusive); callers decoding a top-level
// packet pass len(data).
func (c *Converter) DecodeBundle(data []byte, cursor, end int) (*osc.Bundle, int, error) {
	if end-cursor < 16 || string(data[cursor:cursor+7]) != "#bundle" || data[cursor+7] != 0 {
		return nil, 0, errors.Wrap(osc.ErrMalformed, "bundle: missing '#bundle\\0' prefix")
	}
	tt, cursor, err := osc.ReadTimetag(data, cursor+8)
	if err != nil {
		return nil, 0, errors.Wrap(err, "bundle timetag")
	}
	b := osc.NewBundle(tt)
	for cursor < end {
		size, next, err := osc.ReadInt32(data, cursor)
		if err != nil {
			return nil, 0, errors.Wrap(err, "bundle element size")
		}
		if size < 0 || next+int(size) > end {
			return nil, 0, errors.Wrap(osc.ErrMalformed, "bundle: element size exceeds declared length")
		}
		elem, _, err := c.DecodePacket(data, next, next+int(size))
		if err != nil {
			return nil, 0, err
		}
		b.Append(elem)
		cursor = next + int(size)
	}
	return b, cursor, nil
}

// DecodePacket classifies the packet at data[cursor:end] by its first byte
// and decodes it as a message or bundle.
func (c *Converter) DecodePacket(data []byte, cursor, end int) (osc.Packet, int, error) {
	if cursor >= end {
		return nil, 0, errors.Wrap(osc.ErrMalformed, "packet: empty")
	}
	switch data[cursor] {
	case '#':
		return c.DecodeBundle(data, cursor, end)
	case '/':
		return c.DecodeMessage(data[:end], cursor)
	default:
		return nil, 0, errors.Wrapf(osc.ErrMalformed, "packet: invalid leading byte %q", data[cursor])
	}
}

// DecodeTopLevelPacket decodes an entire datagram, which must be wholly one
// packet (no declared size prefix, unlike a bundle's children).
func (c *Converter) DecodeTopLevelPacket(data []byte) (osc.Packet, error) {
	p, _, err := c.DecodePacket(data, 0, len(data))
	return p, err
}
