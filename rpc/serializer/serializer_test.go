package serializer

import (
	"encoding/binary"
	"reflect"
	"testing"

	"github.com/ValentinKolb/dTravel/lib/travel"
	"github.com/ValentinKolb/dTravel/rpc/common"
)

// testSerializers is a map of serializer name to factory function
var testSerializers = map[string]func() IRPCSerializer{
	"JSON":   NewJSONSerializer,
	"GOB":    NewGOBSerializer,
	"Binary": NewBinarySerializer,
}

// testMessages creates a set of test messages with different fields filled
func testMessages() []common.Message {
	rome := travel.Record{ID: 2, Destination: "Rome", Date: 20, Notes: "hot", HistoricalEvents: []string{"founded", "sacked"}}
	oslo := travel.Record{ID: 3, Destination: "Oslo", Date: 30}

	return []common.Message{
		// Basic message with just a type
		{MsgType: common.MsgTSuccess},

		// Create request
		{
			MsgType: common.MsgTCreate,
			Payload: &travel.Payload{Destination: "Rome", Date: 20, HistoricalEvents: []string{"founded"}},
		},

		// Read response
		{
			MsgType: common.MsgTRead,
			Record:  &rome,
		},

		// Query response
		{
			MsgType: common.MsgTAll,
			Records: []travel.Record{rome, oslo},
		},

		// Count response
		{
			MsgType: common.MsgTCountByDateUpperBound,
			Count:   7,
		},

		// Error response
		{
			MsgType: common.MsgTDelete,
			Code:    travel.RetCNotFound,
			Err:     "test error message",
		},

		// Message with all fields filled
		{
			MsgType:     common.MsgTReplace,
			ID:          18446744073709551615,
			Date:        5,
			N:           3,
			Destination: "東京",
			Payload:     &travel.Payload{Destination: "x", Notes: "ünïcödé"},
			Record:      &oslo,
			Records:     []travel.Record{rome},
			Count:       1,
			Code:        travel.RetCEncodingFault,
			Err:         "too large",
			Meta:        []byte(`{"records":1}`),
		},
	}
}

// TestSerializerRoundTrip tests that messages can be serialized and deserialized correctly
func TestSerializerRoundTrip(t *testing.T) {
	messages := testMessages()

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for i, msg := range messages {
				// Serialize
				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Errorf("Failed to serialize message %d: %v", i, err)
					continue
				}

				// Deserialize
				var result common.Message
				err = serializer.Deserialize(data, &result)
				if err != nil {
					t.Errorf("Failed to deserialize message %d: %v", i, err)
					continue
				}

				// Compare
				if !reflect.DeepEqual(msg, result) {
					t.Errorf("Message %d doesn't match after round trip:\nOriginal: %+v\nResult: %+v",
						i, msg, result)
				}
			}
		})
	}
}

// TestMessageTypes tests each message type with each serializer
func TestMessageTypes(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			// Test each message type (don't test for MsgTUnknown since this should raise an error)
			for msgType := common.MsgTSuccess; msgType <= common.MsgTInfo; msgType++ {
				msg := common.Message{MsgType: msgType}

				// Serialize
				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Errorf("Failed to serialize message type %s: %v", msgType.String(), err)
					continue
				}

				// Deserialize
				var result common.Message
				err = serializer.Deserialize(data, &result)
				if err != nil {
					t.Errorf("Failed to deserialize message type %s: %v", msgType.String(), err)
					continue
				}

				// Check type
				if result.MsgType != msgType {
					t.Errorf("Message type doesn't match after round trip: Expected %s, got %s",
						msgType.String(), result.MsgType.String())
				}
			}
		})
	}
}

// TestResponseErrorSurvives tests that the typed error of a response survives every serializer
func TestResponseErrorSurvives(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()
			resp := common.NewRecordResponse(common.MsgTReplace, travel.Record{}, travel.ErrReplaceNotFound(9))

			data, err := serializer.Serialize(*resp)
			if err != nil {
				t.Fatalf("Failed to serialize: %v", err)
			}
			var result common.Message
			if err := serializer.Deserialize(data, &result); err != nil {
				t.Fatalf("Failed to deserialize: %v", err)
			}

			err = result.AsError()
			if !travel.IsNotFound(err) {
				t.Fatalf("Expected a NotFound error, got %v", err)
			}
			if err.Error() != travel.ErrReplaceNotFound(9).Error() {
				t.Errorf("Error message changed: %q", err.Error())
			}
		})
	}
}

// TestBinarySerializerSpecific tests specific edge cases for the binary serializer
func TestBinarySerializerSpecific(t *testing.T) {
	serializer := NewBinarySerializer()

	// Test cases for empty or zero values
	testCases := []struct {
		name string
		msg  common.Message
	}{
		{
			name: "Empty message",
			msg:  common.Message{},
		},
		{
			name: "Empty record list but not nil",
			msg: common.Message{
				MsgType: common.MsgTLatest,
				Records: []travel.Record{},
			},
		},
		{
			name: "Empty meta slice but not nil",
			msg: common.Message{
				MsgType: common.MsgTInfo,
				Meta:    []byte{},
			},
		},
		{
			name: "Empty payload",
			msg: common.Message{
				MsgType: common.MsgTCreate,
				Payload: &travel.Payload{},
			},
		},
		{
			name: "Record with id zero",
			msg: common.Message{
				MsgType: common.MsgTRead,
				Record:  &travel.Record{},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Serialize
			data, err := serializer.Serialize(tc.msg)
			if err != nil {
				t.Fatalf("Failed to serialize: %v", err)
			}

			// Deserialize
			var result common.Message
			err = serializer.Deserialize(data, &result)
			if err != nil {
				t.Fatalf("Failed to deserialize: %v", err)
			}

			// the binary format keeps nil and empty apart
			if !reflect.DeepEqual(tc.msg, result) {
				t.Errorf("Message doesn't match after round trip:\nOriginal: %+v\nResult: %+v", tc.msg, result)
			}
		})
	}
}

// TestBinarySizeIsExact tests that the preallocated buffer is never grown
func TestBinarySizeIsExact(t *testing.T) {
	s := binarySerializerImpl{}
	for i, msg := range testMessages() {
		data, err := s.Serialize(msg)
		if err != nil {
			t.Fatalf("Failed to serialize message %d: %v", i, err)
		}
		if len(data) != s.sizeBytes(msg) {
			t.Errorf("Message %d: sizeBytes() = %d, serialized length = %d", i, s.sizeBytes(msg), len(data))
		}
	}
}

// TestInvalidBinaryData tests how the binary serializer handles corrupt or invalid data
func TestInvalidBinaryData(t *testing.T) {
	serializer := NewBinarySerializer()

	header := func(flags uint16) []byte {
		return binary.BigEndian.AppendUint16([]byte{byte(common.MsgTRead)}, flags)
	}

	testCases := []struct {
		name        string
		data        []byte
		expectError bool
	}{
		{
			name:        "Empty data",
			data:        []byte{},
			expectError: true,
		},
		{
			name:        "Too short header",
			data:        []byte{1, 0}, // Message type and half the flags
			expectError: true,
		},
		{
			name:        "Valid header only",
			data:        header(0),
			expectError: false,
		},
		{
			name:        "Missing ID",
			data:        append(header(hasID), 0, 0, 0),
			expectError: true,
		},
		{
			name:        "Invalid length for destination",
			data:        append(header(hasDestination), 0, 0, 0, 5, 'a', 'b', 'c'), // Claims length 5 but only 3 bytes provided
			expectError: true,
		},
		{
			name:        "Truncated record",
			data:        append(header(hasRecord), make([]byte, 10)...),
			expectError: true,
		},
		{
			name:        "Record count exceeds data",
			data:        append(header(hasRecords), 0xff, 0xff, 0xff, 0xff),
			expectError: true,
		},
		{
			name:        "Trailing bytes",
			data:        append(header(0), 1),
			expectError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var msg common.Message
			err := serializer.Deserialize(tc.data, &msg)

			if tc.expectError && err == nil {
				t.Errorf("Expected error but got none")
			} else if !tc.expectError && err != nil {
				t.Errorf("Did not expect error but got: %v", err)
			}
		})
	}
}

// TestDeserializeResetsMessage tests that no field of a reused message survives decoding
func TestDeserializeResetsMessage(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()
			data, err := serializer.Serialize(common.Message{MsgType: common.MsgTCount, Count: 3})
			if err != nil {
				t.Fatalf("Failed to serialize: %v", err)
			}

			msg := common.Message{MsgType: common.MsgTRead, ID: 9, Err: "stale", Code: travel.RetCNotFound}
			if err := serializer.Deserialize(data, &msg); err != nil {
				t.Fatalf("Failed to deserialize: %v", err)
			}
			if !reflect.DeepEqual(msg, common.Message{MsgType: common.MsgTCount, Count: 3}) {
				t.Errorf("Stale fields survived: %+v", msg)
			}
		})
	}
}

// TestTrailingData tests that every serializer rejects data after the message
func TestTrailingData(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()
			data, err := serializer.Serialize(common.Message{MsgType: common.MsgTLatest, N: 2})
			if err != nil {
				t.Fatalf("Failed to serialize: %v", err)
			}

			var msg common.Message
			if err := serializer.Deserialize(append(data, data...), &msg); err == nil {
				t.Errorf("Expected an error for two concatenated messages")
			}
		})
	}
}
