package osc

import "time"

// ntpEpochOffset is the NTP epoch, 1900-01-01 00:00:00 UTC, expressed as the
// offset (in seconds) from the Unix epoch used by time.Time.
const ntpEpochOffset = 2208988800

// Immediate is the reserved NTP time tag value (seconds=0, fraction=1) that
// means "execute as soon as possible" rather than at a specific instant.
const Immediate Timetag = 1

// Timetag is a 64-bit NTP time tag: the upper 32 bits are seconds since
// 1900-01-01 UTC, the lower 32 bits are a binary fraction of a second.
type Timetag uint64

// NewTimetag converts a wall-clock time into its NTP wire representation.
func NewTimetag(t time.Time) Timetag {
	secs := t.Unix() + ntpEpochOffset
	frac := uint64(t.Nanosecond()) << 32 / uint64(time.Second)
	return Timetag(uint64(secs)<<32 | frac)
}

// Time converts the time tag back to a wall-clock time.Time in UTC.
func (t Timetag) Time() time.Time {
	secs := int64(uint64(t)>>32) - ntpEpochOffset
	frac := uint64(t) & 0xffffffff
	nsec := (frac * uint64(time.Second)) >> 32
	return time.Unix(secs, int64(nsec)).UTC()
}

// Seconds returns the NTP seconds-since-1900 component.
func (t Timetag) Seconds() uint32 { return uint32(uint64(t) >> 32) }

// Fraction returns the fractional-second component.
func (t Timetag) Fraction() uint32 { return uint32(uint64(t) & 0xffffffff) }

// IsImmediate reports whether this time tag is the reserved "immediately"
// value.
func (t Timetag) IsImmediate() bool { return t == Immediate }

// ExpiresIn returns the duration from now until this time tag elapses. An
// immediate time tag, or one already in the past, yields zero or a negative
// duration.
func (t Timetag) ExpiresIn() time.Duration {
	if t.IsImmediate() {
		return 0
	}
	return time.Until(t.Time())
}

// Before reports whether t denotes an earlier instant than u. The reserved
// Immediate value sorts before every other time tag.
func (t Timetag) Before(u Timetag) bool {
	if t == u {
		return false
	}
	if t.IsImmediate() {
		return true
	}
	if u.IsImmediate() {
		return false
	}
	return uint64(t) < uint64(u)
}

// ToBytes renders the time tag as its 8-byte big-endian wire form.
func (t Timetag) ToBytes() [8]byte {
	var b [8]byte
	v := uint64(t)
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
	return b
}

// TimetagFromBytes parses an 8-byte big-endian NTP time tag.
func TimetagFromBytes(b []byte) Timetag {
	var v uint64
	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(b[i])
	}
	return Timetag(v)
}
