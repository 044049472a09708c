// Package bridge carries whole-document snapshots between a workspace and
// the editable surfaces showing it.
//
// The workspace is the single source of truth. It pushes SET_HTML snapshots;
// a surface announces itself with FRAME_READY and reports local edits as
// EDIT_HTML snapshots. Each push replaces the surface content wholesale, so
// the last snapshot wins.
package bridge

import "encoding/json"

type Type string

const (
	FrameReady Type = "FRAME_READY"
	SetHTML    Type = "SET_HTML"
	EditHTML   Type = "EDIT_HTML"
)

// Source labels who produced a snapshot.
type Source string

const (
	SourceTemplate Source = "template"
	SourceAI       Source = "ai"
	SourceUser     Source = "user"
)

// Message is one bridge frame. Frames without the editor marker belong to
// somebody else and are ignored.
type Message struct {
	Editor     bool   `json:"__editor"`
	Type       Type   `json:"type"`
	HTML       string `json:"html,omitempty"`
	Source     Source `json:"source,omitempty"`
	FocusBlock string `json:"focusBlock,omitempty"`
}

// Snapshot builds a SET_HTML message.
func Snapshot(html string, source Source, focus string) Message {
	return Message{Editor: true, Type: SetHTML, HTML: html, Source: source, FocusBlock: focus}
}

// Decode parses b and reports whether it is an editor frame of a known type.
func Decode(b []byte) (Message, bool) {
	var m Message
	if err := json.Unmarshal(b, &m); err != nil || !m.Editor {
		return Message{}, false
	}
	switch m.Type {
	case FrameReady, SetHTML, EditHTML:
		return m, true
	}
	return Message{}, false
}
