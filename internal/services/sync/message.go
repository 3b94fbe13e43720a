package sync

import "encoding/json"

// Message kinds accepted from clients. The payload carries a whole-document
// snapshot; the relay never inspects or rewrites it.
const (
	KindNotebookChange = "notebook-change"
	KindNoteChange     = "note-change"
)

// Events emitted to the other sessions of the same user.
const (
	EventNotebookSync = "notebook-sync"
	EventNotesSync    = "notes-sync"
)

// Message is a transient change notification exchanged through the relay.
// It is never persisted: a session that is not connected when the message
// is published simply never sees it.
type Message struct {
	Kind       string          `json:"kind"`
	UserID     string          `json:"userId"`
	NotebookID string          `json:"notebookId,omitempty"`
	Snapshot   json.RawMessage `json:"snapshot"`
}

// SyncEvent returns the server-side event name a message is relayed under.
func (m Message) SyncEvent() string {
	if m.Kind == KindNoteChange {
		return EventNotesSync
	}
	return EventNotebookSync
}
