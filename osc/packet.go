package osc

import "fmt"

// Packet is the common interface for Message and Bundle: an opaque element
// that is either one, discriminated at decode time by its first wire byte.
type Packet interface {
	fmt.Stringer
	isPacket()
}

func (*Message) isPacket() {}
func (*Bundle) isPacket()  {}

// Iterate unpacks p into its individual messages, calling handler for each
// in depth-first discovery order. If handler returns an error, iteration
// stops and that error is returned. This is a read-only convenience for
// consumers that just want "every message carried by this packet" -- it is
// distinct from the Receiver's internal, timetag-aware flattening (see
// Bundle.Flatten), which a consumer-facing walk has no need for.
func Iterate(p Packet, handler func(*Message) error) error {
	switch v := p.(type) {
	case *Message:
		return handler(v)
	case *Bundle:
		for _, e := range v.Elements {
			if err := Iterate(e, handler); err != nil {
				return err
			}
		}
	}
	return nil
}

// ToMessages collects every message packet carries, recursing into bundles
// depth-first. Prefer Iterate when a single allocation per message is
// unaffordable.
func ToMessages(p Packet) []*Message {
	var out []*Message
	_ = Iterate(p, func(m *Message) error {
		out = append(out, m)
		return nil
	})
	return out
}
