package sync

import (
	"encoding/json"
	"fmt"
)

// EventJoinRoom is the first frame a client sends: it names the broadcast
// group (the asserted user id) all later changes fan out to.
const EventJoinRoom = "join-room"

// Frame is the envelope of every websocket message, both directions.
type Frame struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// JoinPayload carries the asserted user id of a join-room frame.
type JoinPayload struct {
	UserID string `json:"userId"`
}

// UnmarshalJSON accepts both join-room shapes seen in the wild: the bare
// user-id string and the {"userId": ...} object form.
func (p *JoinPayload) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		p.UserID = s
		return nil
	}

	type object JoinPayload
	var o object
	if err := json.Unmarshal(data, &o); err != nil {
		return err
	}
	*p = JoinPayload(o)
	return nil
}

// NotebookChangePayload is the payload of a notebook-change frame. It is
// relayed to the other sessions unchanged as notebook-sync, so the same
// shape travels in both directions. The notebook document travels as an
// opaque snapshot.
type NotebookChangePayload struct {
	UserID     string          `json:"userId"`
	NotebookID string          `json:"notebookId"`
	Notebook   json.RawMessage `json:"notebook"`
}

// NoteChangePayload is the payload of a note-change frame, relayed
// unchanged as notes-sync.
type NoteChangePayload struct {
	UserID string          `json:"userId"`
	Note   json.RawMessage `json:"note"`
}

// EncodeFrame builds the outgoing frame for a relayed message. The payload
// is re-emitted in the shape the originating client sent it, so receivers
// can match snapshots by user and notebook.
func EncodeFrame(msg Message) (Frame, error) {
	if msg.Kind == KindNoteChange {
		payload, err := json.Marshal(NoteChangePayload{
			UserID: msg.UserID,
			Note:   msg.Snapshot,
		})
		if err != nil {
			return Frame{}, fmt.Errorf("encode %s payload: %w", EventNotesSync, err)
		}
		return Frame{Event: EventNotesSync, Payload: payload}, nil
	}

	payload, err := json.Marshal(NotebookChangePayload{
		UserID:     msg.UserID,
		NotebookID: msg.NotebookID,
		Notebook:   msg.Snapshot,
	})
	if err != nil {
		return Frame{}, fmt.Errorf("encode %s payload: %w", EventNotebookSync, err)
	}
	return Frame{Event: EventNotebookSync, Payload: payload}, nil
}

// DecodeChange parses an incoming change frame into a relay message.
// It returns false for frames that are not change events.
func DecodeChange(f Frame) (Message, bool, error) {
	switch f.Event {
	case KindNotebookChange:
		var p NotebookChangePayload
		if err := json.Unmarshal(f.Payload, &p); err != nil {
			return Message{}, true, fmt.Errorf("decode %s payload: %w", f.Event, err)
		}
		return Message{
			Kind:       KindNotebookChange,
			UserID:     p.UserID,
			NotebookID: p.NotebookID,
			Snapshot:   p.Notebook,
		}, true, nil
	case KindNoteChange:
		var p NoteChangePayload
		if err := json.Unmarshal(f.Payload, &p); err != nil {
			return Message{}, true, fmt.Errorf("decode %s payload: %w", f.Event, err)
		}
		return Message{
			Kind:     KindNoteChange,
			UserID:   p.UserID,
			Snapshot: p.Note,
		}, true, nil
	default:
		return Message{}, false, nil
	}
}
