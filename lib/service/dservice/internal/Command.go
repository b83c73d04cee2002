package internal

import (
	"encoding/binary"
	"fmt"

	"github.com/ValentinKolb/dTravel/lib/travel"
)

// CommandType defines the possible operations for the state machine.
type CommandType uint8

const (
	CommandTCreate     CommandType = iota // Store a payload under a new id.
	CommandTReplace                       // Overwrite all fields of an existing record.
	CommandTUpdateDate                    // Change the date of an existing record.
	CommandTDelete                        // Delete a record.
)

func (ct CommandType) String() string {
	switch ct {
	case CommandTCreate:
		return "Create"
	case CommandTReplace:
		return "Replace"
	case CommandTUpdateDate:
		return "UpdateDate"
	case CommandTDelete:
		return "Delete"
	default:
		return fmt.Sprintf("Unknown(%d)", ct)
	}
}

// HasPayload reports whether commands of this type carry a payload
func (ct CommandType) HasPayload() bool {
	return ct == CommandTCreate || ct == CommandTReplace
}

// commandHeaderSize is Type + ID + Date
const commandHeaderSize = 1 + 8 + 8

// Command represents a command to be executed by the state machine (a single entry in the raft log)
type Command struct {
	Type    CommandType
	ID      uint64
	Date    uint64
	Payload travel.Payload
}

func (command *Command) payloadRecord() travel.Record {
	return command.Payload.WithID(0)
}

// SizeBytes returns the exact number of bytes needed to serialize this command
func (command *Command) SizeBytes() int {
	size := commandHeaderSize
	if command.Type.HasPayload() {
		rec := command.payloadRecord()
		size += rec.SizeBytes()
	}
	return size
}

// Serialize serializes a command into a byte array with the format:
// 1 byte for operation type,
// 8 bytes for the record id (big endian),
// 8 bytes for the date (big endian),
// N bytes for the payload (only Create and Replace)
func (command *Command) Serialize() []byte {
	result := make([]byte, commandHeaderSize, command.SizeBytes())

	result[0] = byte(command.Type)
	binary.BigEndian.PutUint64(result[1:9], command.ID)
	binary.BigEndian.PutUint64(result[9:17], command.Date)

	if command.Type.HasPayload() {
		rec := command.payloadRecord()
		result = rec.AppendBinary(result)
	}
	return result
}

// Deserialize extracts all Command fields from a byte array.
func (command *Command) Deserialize(data []byte) error {
	if len(data) < commandHeaderSize {
		return fmt.Errorf("data too short for command")
	}

	command.Type = CommandType(data[0])
	command.ID = binary.BigEndian.Uint64(data[1:9])
	command.Date = binary.BigEndian.Uint64(data[9:17])
	command.Payload = travel.Payload{}

	rest := data[commandHeaderSize:]
	if !command.Type.HasPayload() {
		if len(rest) != 0 {
			return fmt.Errorf("unexpected %d payload bytes for %s command", len(rest), command.Type)
		}
		return nil
	}

	var rec travel.Record
	n, err := rec.Deserialize(rest)
	if err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	if n != len(rest) {
		return fmt.Errorf("%d trailing bytes after payload", len(rest)-n)
	}
	command.Payload = rec.Payload()
	return nil
}
