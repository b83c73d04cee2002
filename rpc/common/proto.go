package common

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ValentinKolb/dTravel/lib/travel"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single message used for both requests and responses.
// Which fields are used depends on the type of message.
type Message struct {
	// Type of message
	MsgType MessageType `json:"msg_type"`

	// Request fields
	ID          uint64          `json:"id,omitempty"`          // Used for: Read, Replace, UpdateDate, Delete
	Date        uint64          `json:"date,omitempty"`        // Used for: UpdateDate, ByDateUpperBound, CountByDateUpperBound
	N           uint64          `json:"n,omitempty"`           // Used for: Latest
	Destination string          `json:"destination,omitempty"` // Used for: ByDestination
	Payload     *travel.Payload `json:"payload,omitempty"`     // Used for: Create, Replace

	// Response only fields
	Record  *travel.Record  `json:"record,omitempty"`  // Used for: Create, Read, Replace, UpdateDate, Delete responses
	Records []travel.Record `json:"records,omitempty"` // Used for: All, ByDateUpperBound, ByDestination, SortedByDate, Latest responses
	Count   uint64          `json:"count,omitempty"`   // Used for: Count, CountByDateUpperBound responses
	Code    travel.RetCode  `json:"code,omitempty"`    // travel.RetCSuccess if no error
	Err     string          `json:"err,omitempty"`     // Empty if no error, otherwise contains the error message

	// Meta information
	Meta []byte `json:"meta,omitempty"` // Used for: Info responses (json encoded service.Info)
}

// AsError rebuilds the travel.Error carried by a response, nil if the response is no error
func (m *Message) AsError() error {
	if m.Code == travel.RetCSuccess && m.Err == "" && m.MsgType != MsgTError {
		return nil
	}
	code := m.Code
	if code == travel.RetCSuccess {
		code = travel.RetCInternalError
	}
	return travel.NewError(code, m.Err)
}

// setErr stores err in the response fields
func (m *Message) setErr(err error) *Message {
	if err == nil {
		return m
	}
	m.Code = travel.CodeOf(err)
	m.Err = err.Error()
	var te *travel.Error
	if errors.As(err, &te) {
		m.Err = te.Msg
	}
	return m
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewCreateRequest creates a new Create request
func NewCreateRequest(p travel.Payload) *Message {
	return &Message{
		MsgType: MsgTCreate,
		Payload: &p,
	}
}

// NewReadRequest creates a new Read request
func NewReadRequest(id uint64) *Message {
	return &Message{
		MsgType: MsgTRead,
		ID:      id,
	}
}

// NewReplaceRequest creates a new Replace request
func NewReplaceRequest(id uint64, p travel.Payload) *Message {
	return &Message{
		MsgType: MsgTReplace,
		ID:      id,
		Payload: &p,
	}
}

// NewUpdateDateRequest creates a new UpdateDate request
func NewUpdateDateRequest(id, date uint64) *Message {
	return &Message{
		MsgType: MsgTUpdateDate,
		ID:      id,
		Date:    date,
	}
}

// NewDeleteRequest creates a new Delete request
func NewDeleteRequest(id uint64) *Message {
	return &Message{
		MsgType: MsgTDelete,
		ID:      id,
	}
}

// NewRecordResponse creates the response of every operation that affects a single record
func NewRecordResponse(msgType MessageType, rec travel.Record, err error) *Message {
	msg := &Message{MsgType: msgType}
	if err != nil {
		return msg.setErr(err)
	}
	msg.Record = &rec
	return msg
}

// NewAllRequest creates a new All request
func NewAllRequest() *Message {
	return &Message{MsgType: MsgTAll}
}

// NewCountRequest creates a new Count request
func NewCountRequest() *Message {
	return &Message{MsgType: MsgTCount}
}

// NewByDateUpperBoundRequest creates a new ByDateUpperBound request
func NewByDateUpperBoundRequest(date uint64) *Message {
	return &Message{
		MsgType: MsgTByDateUpperBound,
		Date:    date,
	}
}

// NewCountByDateUpperBoundRequest creates a new CountByDateUpperBound request
func NewCountByDateUpperBoundRequest(date uint64) *Message {
	return &Message{
		MsgType: MsgTCountByDateUpperBound,
		Date:    date,
	}
}

// NewByDestinationRequest creates a new ByDestination request
func NewByDestinationRequest(destination string) *Message {
	return &Message{
		MsgType:     MsgTByDestination,
		Destination: destination,
	}
}

// NewSortedByDateRequest creates a new SortedByDate request
func NewSortedByDateRequest() *Message {
	return &Message{MsgType: MsgTSortedByDate}
}

// NewLatestRequest creates a new Latest request
func NewLatestRequest(n uint64) *Message {
	return &Message{
		MsgType: MsgTLatest,
		N:       n,
	}
}

// NewRecordsResponse creates the response of every query that returns a list of records
func NewRecordsResponse(msgType MessageType, recs []travel.Record, err error) *Message {
	msg := &Message{MsgType: msgType}
	if err != nil {
		return msg.setErr(err)
	}
	msg.Records = recs
	return msg
}

// NewCountResponse creates the response of every query that returns a count
func NewCountResponse(msgType MessageType, n uint64, err error) *Message {
	msg := &Message{MsgType: msgType}
	if err != nil {
		return msg.setErr(err)
	}
	msg.Count = n
	return msg
}

// NewInfoRequest creates a new Info request
func NewInfoRequest() *Message {
	return &Message{MsgType: MsgTInfo}
}

// NewInfoResponse creates a new Info response, the info is passed json encoded
func NewInfoResponse(info []byte, err error) *Message {
	msg := &Message{MsgType: MsgTInfo}
	if err != nil {
		return msg.setErr(err)
	}
	msg.Meta = info
	return msg
}

// NewErrorResponse creates a new Error response
func NewErrorResponse(err string) *Message {
	return &Message{
		MsgType: MsgTError,
		Code:    travel.RetCInternalError,
		Err:     err,
	}
}

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType defines the type of message used in RPC communication.
type MessageType uint8

var messageTypeNames = map[MessageType]string{
	MsgTSuccess:               "success",
	MsgTError:                 "error",
	MsgTCreate:                "create",
	MsgTRead:                  "read",
	MsgTReplace:               "replace",
	MsgTUpdateDate:            "updateDate",
	MsgTDelete:                "delete",
	MsgTAll:                   "all",
	MsgTCount:                 "count",
	MsgTByDateUpperBound:      "byDateUpperBound",
	MsgTCountByDateUpperBound: "countByDateUpperBound",
	MsgTByDestination:         "byDestination",
	MsgTSortedByDate:          "sortedByDate",
	MsgTLatest:                "latest",
	MsgTInfo:                  "info",
}

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	if name, ok := messageTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// IsMutating reports whether the message type changes the stored records
func (t MessageType) IsMutating() bool {
	switch t {
	case MsgTCreate, MsgTReplace, MsgTUpdateDate, MsgTDelete:
		return true
	default:
		return false
	}
}

// MarshalJSON implements the json.Marshaller interface for MessageType.
// This allows MessageType to be serialized as a string in JSON.
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for MessageType.
// This allows MessageType to be deserialized from a string in JSON.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	// Convert string back to MessageType
	for msgType, name := range messageTypeNames {
		if name == s {
			*t = msgType
			return nil
		}
	}
	return fmt.Errorf("unknown message type: %s", s)
}

// --------------------------------------------------------------------------
// Message Type Constants
// --------------------------------------------------------------------------

const (
	// General message types

	MsgTUnknown MessageType = iota
	MsgTSuccess             // Indicates a successful operation
	MsgTError               // Indicates an error occurred

	// Mutations

	MsgTCreate     // Create a record with a new id
	MsgTRead       // Read a record by id
	MsgTReplace    // Replace all fields of a record
	MsgTUpdateDate // Change the date of a record
	MsgTDelete     // Delete a record

	// Queries

	MsgTAll                   // All records ascending by id
	MsgTCount                 // Number of records
	MsgTByDateUpperBound      // Records with date <= bound
	MsgTCountByDateUpperBound // Number of records with date <= bound
	MsgTByDestination         // Records with an exact destination
	MsgTSortedByDate          // Records ascending by date
	MsgTLatest                // The n records with the greatest dates

	// Service information

	MsgTInfo
)
