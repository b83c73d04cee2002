package travel

import (
	"encoding/binary"
	"fmt"
)

// MaxRecordSize is the largest encoded size a stored record may have.
const MaxRecordSize = 2048

// recordHeaderSize is ID + Date + DestinationLen + NotesLen + EventCount
const recordHeaderSize = 8 + 8 + 4 + 4 + 4

// SizeBytes returns the exact number of bytes needed to serialize this record
func (r *Record) SizeBytes() int {
	size := recordHeaderSize + len(r.Destination) + len(r.Notes)
	for _, event := range r.HistoricalEvents {
		size += 4 + len(event)
	}
	return size
}

// AppendBinary appends the record to dst with the format:
// 8 bytes id,
// 8 bytes date,
// 4 bytes destination length + destination,
// 4 bytes notes length + notes,
// 4 bytes event count,
// per event 4 bytes length + event.
// All integers are big endian. The size bound is not checked.
func (r *Record) AppendBinary(dst []byte) []byte {
	dst = binary.BigEndian.AppendUint64(dst, r.ID)
	dst = binary.BigEndian.AppendUint64(dst, r.Date)
	dst = appendString(dst, r.Destination)
	dst = appendString(dst, r.Notes)
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(r.HistoricalEvents)))
	for _, event := range r.HistoricalEvents {
		dst = appendString(dst, event)
	}
	return dst
}

func appendString(dst []byte, s string) []byte {
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(s)))
	return append(dst, s...)
}

// Deserialize reads one record from the start of data and returns
// the number of bytes consumed. Trailing bytes are left alone.
func (r *Record) Deserialize(data []byte) (int, error) {
	if len(data) < recordHeaderSize {
		return 0, fmt.Errorf("data too short for record: %d bytes", len(data))
	}

	r.ID = binary.BigEndian.Uint64(data[0:8])
	r.Date = binary.BigEndian.Uint64(data[8:16])
	offset := 16

	var err error
	if r.Destination, offset, err = readString(data, offset, "destination"); err != nil {
		return 0, err
	}
	if r.Notes, offset, err = readString(data, offset, "notes"); err != nil {
		return 0, err
	}

	if len(data) < offset+4 {
		return 0, fmt.Errorf("data too short for event count")
	}
	count := binary.BigEndian.Uint32(data[offset : offset+4])
	offset += 4

	// every event needs at least its length prefix
	if uint64(count)*4 > uint64(len(data)-offset) {
		return 0, fmt.Errorf("event count %d exceeds remaining %d bytes", count, len(data)-offset)
	}

	r.HistoricalEvents = nil
	if count > 0 {
		r.HistoricalEvents = make([]string, count)
		for i := range r.HistoricalEvents {
			if r.HistoricalEvents[i], offset, err = readString(data, offset, "historical event"); err != nil {
				return 0, err
			}
		}
	}

	return offset, nil
}

func readString(data []byte, offset int, field string) (string, int, error) {
	if len(data) < offset+4 {
		return "", 0, fmt.Errorf("data too short for %s length", field)
	}
	n := int(binary.BigEndian.Uint32(data[offset : offset+4]))
	offset += 4
	if n < 0 || len(data)-offset < n {
		return "", 0, fmt.Errorf("data too short for %s of length %d", field, n)
	}
	return string(data[offset : offset+n]), offset + n, nil
}

// --------------------------------------------------------------------------
// Bounded Encoding
// --------------------------------------------------------------------------

// Encode serializes a record for storage.
// It returns an EncodingFault when the record would exceed MaxRecordSize.
func Encode(r Record) ([]byte, error) {
	size := r.SizeBytes()
	if size > MaxRecordSize {
		return nil, NewError(RetCEncodingFault,
			fmt.Sprintf("travel experience with id=%d needs %d bytes, the limit is %d", r.ID, size, MaxRecordSize))
	}
	return r.AppendBinary(make([]byte, 0, size)), nil
}

// Decode deserializes a stored record. Trailing bytes are an error.
func Decode(data []byte) (Record, error) {
	var r Record
	n, err := r.Deserialize(data)
	if err != nil {
		return Record{}, NewError(RetCEncodingFault, err.Error())
	}
	if n != len(data) {
		return Record{}, NewError(RetCEncodingFault, fmt.Sprintf("%d trailing bytes after record", len(data)-n))
	}
	return r, nil
}
