package osc

import (
	"strings"

	"github.com/pkg/errors"
)

// Message is a single OSC message: an address pattern and an ordered
// sequence of tagged arguments.
type Message struct {
	Address   string
	Arguments []Argument
}

// NewMessage returns a Message for addr with the given arguments. It
// panics if addr doesn't start with '/', mirroring the invariant in spec
// §3 -- callers constructing messages from fixed literals are expected to
// get this right at compile time; callers building addresses dynamically
// should validate with ValidateAddress first.
func NewMessage(addr string, args ...Argument) *Message {
	if err := ValidateAddress(addr); err != nil {
		panic(err)
	}
	return &Message{Address: addr, Arguments: args}
}

// ValidateAddress reports an error if addr does not begin with '/'.
func ValidateAddress(addr string) error {
	if !strings.HasPrefix(addr, "/") {
		return errors.Wrapf(ErrMalformed, "address %q must start with '/'", addr)
	}
	return nil
}

// Append adds arguments to the message.
func (m *Message) Append(args ...Argument) {
	m.Arguments = append(m.Arguments, args...)
}

// CountArguments returns the number of top-level arguments.
func (m *Message) CountArguments() int {
	return len(m.Arguments)
}

// TypeTags returns the message's type tag string (e.g. ",ifs"), using each
// argument's canonical Full-1.0 tag regardless of which dialect eventually
// encodes the message. Grounded on the teacher's same-named Message method.
func (m *Message) TypeTags() string {
	tags := make([]byte, 1, len(m.Arguments)+1)
	tags[0] = ','
	for _, a := range m.Arguments {
		if a.Kind == KindArray {
			tags = append(tags, '[')
			tags = append(tags, arrayTags(a.Array())...)
			tags = append(tags, ']')
			continue
		}
		tags = append(tags, a.CanonicalTag())
	}
	return string(tags)
}

func arrayTags(args []Argument) []byte {
	var tags []byte
	for _, a := range args {
		if a.Kind == KindArray {
			tags = append(tags, '[')
			tags = append(tags, arrayTags(a.Array())...)
			tags = append(tags, ']')
			continue
		}
		tags = append(tags, a.CanonicalTag())
	}
	return tags
}

// Equals reports whether m and other carry the same address and arguments.
func (m *Message) Equals(other *Message) bool {
	if m == nil || other == nil {
		return m == other
	}
	if m.Address != other.Address || len(m.Arguments) != len(other.Arguments) {
		return false
	}
	for i := range m.Arguments {
		if !m.Arguments[i].Equal(other.Arguments[i]) {
			return false
		}
	}
	return true
}

// String renders a human-readable diagnostic form. It is never used as a
// wire format; only the dialect package's Converter produces wire bytes.
func (m *Message) String() string {
	if m == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(m.Address)
	for _, a := range m.Arguments {
		b.WriteByte(' ')
		b.WriteString(a.GoString())
	}
	return b.String()
}
