package internal

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/ValentinKolb/dTravel/lib/travel"
)

var samplePayload = travel.Payload{
	Destination:      "Rome",
	Date:             1700000000,
	Notes:            "hot",
	HistoricalEvents: []string{"founded", "sacked"},
}

// TestSizeBytes tests the SizeBytes method
func TestSizeBytes(t *testing.T) {
	payloadSize := 28 + len("Rome") + len("hot") + 4 + len("founded") + 4 + len("sacked")

	tests := []struct {
		name     string
		command  Command
		expected int
	}{
		{
			name:     "Create with payload",
			command:  Command{Type: CommandTCreate, Payload: samplePayload},
			expected: 1 + 8 + 8 + payloadSize,
		},
		{
			name:     "Delete ignores payload",
			command:  Command{Type: CommandTDelete, ID: 3, Payload: samplePayload},
			expected: 1 + 8 + 8,
		},
		{
			name:     "UpdateDate",
			command:  Command{Type: CommandTUpdateDate, ID: 3, Date: 9},
			expected: 1 + 8 + 8,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			size := tt.command.SizeBytes()
			if size != tt.expected {
				t.Errorf("SizeBytes() = %v, want %v", size, tt.expected)
			}
		})
	}
}

// TestSerializeDeserialize tests both Serialize and Deserialize methods
func TestSerializeDeserialize(t *testing.T) {
	tests := []struct {
		name    string
		command Command
	}{
		{
			name:    "Create",
			command: Command{Type: CommandTCreate, Payload: samplePayload},
		},
		{
			name:    "Create with empty payload",
			command: Command{Type: CommandTCreate},
		},
		{
			name:    "Replace",
			command: Command{Type: CommandTReplace, ID: 42, Payload: samplePayload},
		},
		{
			name:    "UpdateDate with max values",
			command: Command{Type: CommandTUpdateDate, ID: 18446744073709551615, Date: 18446744073709551615},
		},
		{
			name:    "Delete",
			command: Command{Type: CommandTDelete, ID: 7},
		},
		{
			name: "Replace with unicode",
			command: Command{Type: CommandTReplace, ID: 1, Payload: travel.Payload{
				Destination: "東京", Notes: "ünïcödé", HistoricalEvents: []string{"", "明治"},
			}},
		},
		{
			name: "Create with oversized payload",
			command: Command{Type: CommandTCreate, Payload: travel.Payload{
				Notes: strings.Repeat("n", 2*travel.MaxRecordSize),
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.command.Serialize()

			var newCommand Command
			if err := newCommand.Deserialize(data); err != nil {
				t.Fatalf("Deserialize() error = %v", err)
			}

			if newCommand.Type != tt.command.Type {
				t.Errorf("Type mismatch: got %v, want %v", newCommand.Type, tt.command.Type)
			}
			if newCommand.ID != tt.command.ID {
				t.Errorf("ID mismatch: got %v, want %v", newCommand.ID, tt.command.ID)
			}
			if newCommand.Date != tt.command.Date {
				t.Errorf("Date mismatch: got %v, want %v", newCommand.Date, tt.command.Date)
			}
			if !newCommand.Payload.WithID(0).Equal(tt.command.Payload.WithID(0)) {
				t.Errorf("Payload mismatch: got %+v, want %+v", newCommand.Payload, tt.command.Payload)
			}

			if tt.command.SizeBytes() != len(data) {
				t.Errorf("SizeBytes() = %d, but serialized data length = %d",
					tt.command.SizeBytes(), len(data))
			}
		})
	}
}

// TestDeserializeErrors tests error cases in Deserialize
func TestDeserializeErrors(t *testing.T) {
	valid := (&Command{Type: CommandTCreate, Payload: samplePayload}).Serialize()

	tests := []struct {
		name        string
		data        []byte
		expectedErr string
	}{
		{
			name:        "Empty data",
			data:        []byte{},
			expectedErr: "data too short for command",
		},
		{
			name:        "Data too short (less than header)",
			data:        []byte{1, 2, 3, 4, 5},
			expectedErr: "data too short for command",
		},
		{
			name:        "Delete with payload bytes",
			data:        append((&Command{Type: CommandTDelete, ID: 1}).Serialize(), 0xff),
			expectedErr: "unexpected 1 payload bytes for Delete command",
		},
		{
			name:        "Trailing bytes",
			data:        append(bytes.Clone(valid), 0, 0),
			expectedErr: "2 trailing bytes after payload",
		},
		{
			name:        "Truncated payload",
			data:        valid[:len(valid)-3],
			expectedErr: "invalid payload: data too short for historical event of length 6",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cmd Command
			err := cmd.Deserialize(tt.data)

			if err == nil {
				t.Fatalf("Expected error but got nil")
			}
			if err.Error() != tt.expectedErr {
				t.Errorf("Expected error %q, got %q", tt.expectedErr, err.Error())
			}
		})
	}
}

// TestBinaryFormat tests the exact binary format of serialized commands
func TestBinaryFormat(t *testing.T) {
	cmd := Command{
		Type: CommandTUpdateDate,
		ID:   12345,
		Date: 67890,
	}

	expected := make([]byte, cmd.SizeBytes())
	expected[0] = byte(CommandTUpdateDate)
	binary.BigEndian.PutUint64(expected[1:9], 12345)
	binary.BigEndian.PutUint64(expected[9:17], 67890)

	serialized := cmd.Serialize()
	if !bytes.Equal(serialized, expected) {
		t.Errorf("Binary format does not match:\nGot:      %v\nExpected: %v", serialized, expected)
	}

	// the payload uses the record encoding with id 0
	create := Command{Type: CommandTCreate, Payload: samplePayload}
	rec := samplePayload.WithID(0)
	expected = append([]byte{byte(CommandTCreate)}, make([]byte, 16)...)
	expected = rec.AppendBinary(expected)
	if !bytes.Equal(create.Serialize(), expected) {
		t.Errorf("Create payload is not encoded as record")
	}
}
