package state

import (
	"encoding/binary"
	"io"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// Timestamp represents a fixed moment in time to nanosecond precision.
type Timestamp struct {
	nanoseconds uint64
}

// NewTimestamp returns a new timestamp from a uint64 nanosecond value.
func NewTimestamp(value uint64) Timestamp {
	return Timestamp{nanoseconds: value}
}

// CurrentTimestamp returns a Timestamp containing the current time.
func CurrentTimestamp() Timestamp {
	return Timestamp{nanoseconds: uint64(time.Now().UnixNano())}
}

// Nano returns the number of nanoseconds since the Unix epoch.
func (t Timestamp) Nano() uint64 {
	return t.nanoseconds
}

// Seconds returns the number of seconds since the Unix epoch.
func (t Timestamp) Seconds() uint32 {
	return uint32(t.nanoseconds / 1000000000)
}

// Time returns the timestamp as a time.Time.
func (t Timestamp) Time() time.Time {
	return time.Unix(0, int64(t.nanoseconds))
}

// Equal returns true when both timestamps name the same moment.
func (t Timestamp) Equal(other Timestamp) bool {
	return t.nanoseconds == other.nanoseconds
}

// IsZero returns true when the timestamp has never been set.
func (t Timestamp) IsZero() bool {
	return t.nanoseconds == 0
}

func (t Timestamp) String() string {
	return t.Time().UTC().Format(time.RFC3339Nano)
}

// Serialize writes the timestamp to w.
func (t Timestamp) Serialize(w io.Writer) error {
	return binary.Write(w, binary.LittleEndian, t.nanoseconds)
}

// DeserializeTimestamp reads a timestamp from r.
func DeserializeTimestamp(r io.Reader) (Timestamp, error) {
	var t Timestamp
	if err := binary.Read(r, binary.LittleEndian, &t.nanoseconds); err != nil {
		return t, err
	}
	return t, nil
}

// MarshalJSON encodes the timestamp as its nanosecond count.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatUint(t.nanoseconds, 10)), nil
}

// UnmarshalJSON decodes a nanosecond count into the timestamp.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if len(data) == 0 {
		return nil
	}

	value, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		return errors.Wrap(err, "parse timestamp")
	}

	t.nanoseconds = value
	return nil
}
