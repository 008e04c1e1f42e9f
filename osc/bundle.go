package osc

import "strings"

// Bundle is a time-tagged collection of child elements, each either a
// Message or another Bundle.
type Bundle struct {
	Timetag  Timetag
	Elements []Packet
}

// NewBundle returns an empty bundle scheduled for tt.
func NewBundle(tt Timetag) *Bundle {
	return &Bundle{Timetag: tt}
}

// Append adds a child element (a *Message or *Bundle) to the bundle.
func (b *Bundle) Append(elem Packet) {
	b.Elements = append(b.Elements, elem)
}

// String renders a human-readable diagnostic form.
func (b *Bundle) String() string {
	if b == nil {
		return ""
	}
	var s strings.Builder
	s.WriteString("#bundle[")
	for i, e := range b.Elements {
		if i > 0 {
			s.WriteString(", ")
		}
		s.WriteString(e.String())
	}
	s.WriteString("]")
	return s.String()
}

// Flatten unwraps a bundle-of-bundles into a flat, ordered sequence of leaf
// bundles (bundles whose Elements contain no further Bundle children),
// dropping any nested bundle whose time tag is strictly earlier than its
// enclosing bundle's, per the OSC spec's monotonicity rule (spec §4.3).
// The top-level bundle's own non-bundle elements form the first entry of
// the result; every kept bundle contributes one entry in discovery order,
// even when it carries no messages of its own.
func (b *Bundle) Flatten() []*Bundle {
	var out []*Bundle
	flattenInto(b, &out)
	return out
}

func flattenInto(b *Bundle, out *[]*Bundle) {
	leaf := &Bundle{Timetag: b.Timetag}
	var children []*Bundle
	for _, e := range b.Elements {
		switch v := e.(type) {
		case *Message:
			leaf.Elements = append(leaf.Elements, v)
		case *Bundle:
			if v.Timetag.Before(b.Timetag) {
				continue
			}
			children = append(children, v)
		}
	}
	*out = append(*out, leaf)
	for _, c := range children {
		flattenInto(c, out)
	}
}
