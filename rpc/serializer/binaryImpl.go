package serializer

import (
	"encoding/binary"
	"fmt"

	"github.com/ValentinKolb/dTravel/lib/travel"
	"github.com/ValentinKolb/dTravel/rpc/common"
)

// NewBinarySerializer creates a new serializer using a custom binary format
// optimized for speed and efficiency
func NewBinarySerializer() IRPCSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IRPCSerializer using a custom binary format
type binarySerializerImpl struct {
}

// Bit flags to indicate which optional fields are present
const (
	hasID          uint16 = 1 << 0
	hasDate        uint16 = 1 << 1
	hasN           uint16 = 1 << 2
	hasDestination uint16 = 1 << 3
	hasPayload     uint16 = 1 << 4
	hasRecord      uint16 = 1 << 5
	hasRecords     uint16 = 1 << 6
	hasCount       uint16 = 1 << 7
	hasCode        uint16 = 1 << 8
	hasErr         uint16 = 1 << 9
	hasMeta        uint16 = 1 << 10
)

// headerSize is MsgType + flags
const headerSize = 1 + 2

// minRecordSize is the encoded size of an empty record
var minRecordSize = (&travel.Record{}).SizeBytes()

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	result := make([]byte, headerSize, b.sizeBytes(msg))

	// Write message type
	result[0] = byte(msg.MsgType)

	// Initialize flags
	var flags uint16 = 0

	if msg.ID > 0 {
		flags |= hasID
		result = binary.BigEndian.AppendUint64(result, msg.ID)
	}

	if msg.Date > 0 {
		flags |= hasDate
		result = binary.BigEndian.AppendUint64(result, msg.Date)
	}

	if msg.N > 0 {
		flags |= hasN
		result = binary.BigEndian.AppendUint64(result, msg.N)
	}

	if msg.Destination != "" {
		flags |= hasDestination
		result = appendBytes(result, []byte(msg.Destination))
	}

	// The payload is encoded as a record with id 0
	if msg.Payload != nil {
		flags |= hasPayload
		rec := msg.Payload.WithID(0)
		result = rec.AppendBinary(result)
	}

	if msg.Record != nil {
		flags |= hasRecord
		result = msg.Record.AppendBinary(result)
	}

	if msg.Records != nil {
		flags |= hasRecords
		result = binary.BigEndian.AppendUint32(result, uint32(len(msg.Records)))
		for i := range msg.Records {
			result = msg.Records[i].AppendBinary(result)
		}
	}

	if msg.Count > 0 {
		flags |= hasCount
		result = binary.BigEndian.AppendUint64(result, msg.Count)
	}

	if msg.Code != travel.RetCSuccess {
		flags |= hasCode
		result = binary.BigEndian.AppendUint64(result, uint64(msg.Code))
	}

	if msg.Err != "" {
		flags |= hasErr
		result = appendBytes(result, []byte(msg.Err))
	}

	if msg.Meta != nil {
		flags |= hasMeta
		result = appendBytes(result, msg.Meta)
	}

	// Set flags after knowing which fields are present
	binary.BigEndian.PutUint16(result[1:3], flags)

	return result, nil
}

func (b binarySerializerImpl) Deserialize(data []byte, msg *common.Message) error {
	// Check minimum size (MsgType + flags)
	if len(data) < headerSize {
		return fmt.Errorf("data too short for message header")
	}

	*msg = common.Message{MsgType: common.MessageType(data[0])}
	flags := binary.BigEndian.Uint16(data[1:3])
	pos := headerSize

	var err error

	if flags&hasID != 0 {
		if msg.ID, pos, err = readUint64(data, pos, "ID"); err != nil {
			return err
		}
	}

	if flags&hasDate != 0 {
		if msg.Date, pos, err = readUint64(data, pos, "Date"); err != nil {
			return err
		}
	}

	if flags&hasN != 0 {
		if msg.N, pos, err = readUint64(data, pos, "N"); err != nil {
			return err
		}
	}

	if flags&hasDestination != 0 {
		var raw []byte
		if raw, pos, err = readBytes(data, pos, "destination"); err != nil {
			return err
		}
		msg.Destination = string(raw)
	}

	if flags&hasPayload != 0 {
		var rec travel.Record
		if pos, err = readRecord(data, pos, &rec); err != nil {
			return fmt.Errorf("invalid payload: %w", err)
		}
		payload := rec.Payload()
		msg.Payload = &payload
	}

	if flags&hasRecord != 0 {
		msg.Record = &travel.Record{}
		if pos, err = readRecord(data, pos, msg.Record); err != nil {
			return fmt.Errorf("invalid record: %w", err)
		}
	}

	if flags&hasRecords != 0 {
		if pos+4 > len(data) {
			return fmt.Errorf("data too short for record count")
		}
		count := int(binary.BigEndian.Uint32(data[pos : pos+4]))
		pos += 4

		// every record needs at least its fixed header
		if count > (len(data)-pos)/minRecordSize {
			return fmt.Errorf("record count %d exceeds remaining %d bytes", count, len(data)-pos)
		}

		msg.Records = make([]travel.Record, count)
		for i := range msg.Records {
			if pos, err = readRecord(data, pos, &msg.Records[i]); err != nil {
				return fmt.Errorf("invalid record %d: %w", i, err)
			}
		}
	}

	if flags&hasCount != 0 {
		if msg.Count, pos, err = readUint64(data, pos, "Count"); err != nil {
			return err
		}
	}

	if flags&hasCode != 0 {
		var code uint64
		if code, pos, err = readUint64(data, pos, "Code"); err != nil {
			return err
		}
		msg.Code = travel.RetCode(code)
	}

	if flags&hasErr != 0 {
		var raw []byte
		if raw, pos, err = readBytes(data, pos, "error"); err != nil {
			return err
		}
		msg.Err = string(raw)
	}

	if flags&hasMeta != 0 {
		var raw []byte
		if raw, pos, err = readBytes(data, pos, "meta"); err != nil {
			return err
		}
		// create an empty slice (not nil) if length is 0
		msg.Meta = make([]byte, len(raw))
		copy(msg.Meta, raw)
	}

	if pos != len(data) {
		return fmt.Errorf("%d trailing bytes after message", len(data)-pos)
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// sizeBytes calculates the total size needed for serialization
func (b binarySerializerImpl) sizeBytes(msg common.Message) int {
	size := headerSize

	if msg.ID > 0 {
		size += 8
	}
	if msg.Date > 0 {
		size += 8
	}
	if msg.N > 0 {
		size += 8
	}
	if msg.Destination != "" {
		size += 4 + len(msg.Destination)
	}
	if msg.Payload != nil {
		rec := msg.Payload.WithID(0)
		size += rec.SizeBytes()
	}
	if msg.Record != nil {
		size += msg.Record.SizeBytes()
	}
	if msg.Records != nil {
		size += 4
		for i := range msg.Records {
			size += msg.Records[i].SizeBytes()
		}
	}
	if msg.Count > 0 {
		size += 8
	}
	if msg.Code != travel.RetCSuccess {
		size += 8
	}
	if msg.Err != "" {
		size += 4 + len(msg.Err)
	}
	if msg.Meta != nil {
		size += 4 + len(msg.Meta)
	}

	return size
}

func appendBytes(dst, b []byte) []byte {
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(b)))
	return append(dst, b...)
}

func readUint64(data []byte, pos int, field string) (uint64, int, error) {
	if pos+8 > len(data) {
		return 0, 0, fmt.Errorf("data too short for %s", field)
	}
	return binary.BigEndian.Uint64(data[pos : pos+8]), pos + 8, nil
}

// readBytes returns a slice into data, callers must copy it if they keep it
func readBytes(data []byte, pos int, field string) ([]byte, int, error) {
	if pos+4 > len(data) {
		return nil, 0, fmt.Errorf("data too short for %s length", field)
	}
	n := int(binary.BigEndian.Uint32(data[pos : pos+4]))
	pos += 4
	if n < 0 || len(data)-pos < n {
		return nil, 0, fmt.Errorf("data too short for %s data", field)
	}
	return data[pos : pos+n], pos + n, nil
}

func readRecord(data []byte, pos int, rec *travel.Record) (int, error) {
	n, err := rec.Deserialize(data[pos:])
	if err != nil {
		return 0, err
	}
	return pos + n, nil
}
