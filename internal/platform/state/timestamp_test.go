package state

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestTimestampSerialize(t *testing.T) {
	ts := CurrentTimestamp()

	var buf bytes.Buffer
	if err := ts.Serialize(&buf); err != nil {
		t.Fatalf("Failed to serialize : %v", err)
	}

	read, err := DeserializeTimestamp(&buf)
	if err != nil {
		t.Fatalf("Failed to deserialize : %v", err)
	}

	if !read.Equal(ts) {
		t.Errorf("Got %v, want %v", read, ts)
	}
}

func TestTimestampJSON(t *testing.T) {
	ts := NewTimestamp(1598000000000000000)

	data, err := json.Marshal(ts)
	if err != nil {
		t.Fatalf("Failed to marshal : %v", err)
	}

	if string(data) != "1598000000000000000" {
		t.Errorf("Got %s, want 1598000000000000000", data)
	}

	var read Timestamp
	if err := json.Unmarshal(data, &read); err != nil {
		t.Fatalf("Failed to unmarshal : %v", err)
	}

	if read.Nano() != ts.Nano() {
		t.Errorf("Got %v, want %v", read.Nano(), ts.Nano())
	}
}
