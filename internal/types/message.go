// Package types provides shared data structures used across packages.
// This enables dependency inversion: the onebot transport, the resolvers and
// commands all import types, rather than importing each other.
package types

import "strings"

type SegmentType string

const (
	SegmentText  SegmentType = "text"
	SegmentImage SegmentType = "image"
	SegmentReply SegmentType = "reply"
	SegmentAt    SegmentType = "at"
)

// Segment is one typed unit of a chat message.
type Segment struct {
	Type SegmentType
	Text string
	// Image sources. URL is the platform CDN link, File is a local path,
	// a file id or a base64:// payload depending on the implementation.
	URL  string
	File string
	// ReplyID is set on reply segments and names the quoted message.
	ReplyID string
	// Target is set on at segments.
	Target string
}

// Reply is a quoted message carried alongside the message that quotes it.
type Reply struct {
	MessageID string
	SenderID  string
	Segments  []Segment
}

// MessageEvent is an incoming chat message. It is not modified while it is
// being handled.
type MessageEvent struct {
	MessageID  int64
	GroupID    int64
	UserID     int64
	SelfID     int64
	Time       int64
	Nickname   string
	Card       string
	RawMessage string
	Segments   []Segment
	Reply      *Reply
}

func (e *MessageEvent) IsGroup() bool {
	return e.GroupID != 0
}

// PlainText joins the text segments of the message.
func (e *MessageEvent) PlainText() string {
	var b strings.Builder
	for _, seg := range e.Segments {
		if seg.Type == SegmentText {
			b.WriteString(seg.Text)
		}
	}
	return strings.TrimSpace(b.String())
}

// ReplySegmentID returns the quoted message id, or "" when the message does
// not quote anything.
func (e *MessageEvent) ReplySegmentID() string {
	for _, seg := range e.Segments {
		if seg.Type == SegmentReply && seg.ReplyID != "" {
			return seg.ReplyID
		}
	}
	return ""
}

// Album is a named image collection scoped to a group.
type Album struct {
	ID   string `json:"album_id"`
	Name string `json:"name"`
}

// RenderRequest is the input of one meme generation.
type RenderRequest struct {
	Images [][]byte
	Texts  []string
	Args   map[string]any
}
