package common

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/ValentinKolb/dTravel/lib/travel"
)

// TestMessageTypeJSON tests that every message type survives the string encoding
func TestMessageTypeJSON(t *testing.T) {
	for msgType := MsgTSuccess; msgType <= MsgTInfo; msgType++ {
		data, err := json.Marshal(msgType)
		if err != nil {
			t.Fatalf("Failed to marshal %d: %v", msgType, err)
		}

		var result MessageType
		if err := json.Unmarshal(data, &result); err != nil {
			t.Fatalf("Failed to unmarshal %s: %v", data, err)
		}
		if result != msgType {
			t.Errorf("Message type doesn't match after round trip: expected %s, got %s", msgType, result)
		}
	}

	var result MessageType
	if err := json.Unmarshal([]byte(`"nope"`), &result); err == nil {
		t.Errorf("Expected an error for an unknown message type")
	}
}

func TestIsMutating(t *testing.T) {
	mutating := map[MessageType]bool{
		MsgTCreate:     true,
		MsgTReplace:    true,
		MsgTUpdateDate: true,
		MsgTDelete:     true,
	}
	for msgType := MsgTUnknown; msgType <= MsgTInfo; msgType++ {
		if msgType.IsMutating() != mutating[msgType] {
			t.Errorf("%s.IsMutating() = %v", msgType, msgType.IsMutating())
		}
	}
}

// TestResponseErrors tests that the typed error is restored from a response
func TestResponseErrors(t *testing.T) {
	ok := NewRecordResponse(MsgTRead, travel.Record{ID: 1}, nil)
	if err := ok.AsError(); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if ok.Record == nil || ok.Record.ID != 1 {
		t.Errorf("Expected the record in the response, got %+v", ok.Record)
	}

	notFound := NewRecordResponse(MsgTDelete, travel.Record{}, travel.ErrDeleteNotFound(4))
	if notFound.Record != nil {
		t.Errorf("Failed response carries a record")
	}
	var te *travel.Error
	if err := notFound.AsError(); !errors.As(err, &te) {
		t.Fatalf("Expected a travel.Error, got %v", err)
	}
	if te.Code != travel.RetCNotFound || te.Msg != travel.ErrDeleteNotFound(4).Msg {
		t.Errorf("Unexpected restored error: %+v", te)
	}

	foreign := NewCountResponse(MsgTCount, 0, errors.New("disk gone"))
	if err := foreign.AsError(); travel.CodeOf(err) != travel.RetCInternalError {
		t.Errorf("Expected an internal error, got %v", err)
	}

	if err := NewErrorResponse("bad shard").AsError(); travel.CodeOf(err) != travel.RetCInternalError {
		t.Errorf("Expected an internal error, got %v", err)
	}
}
