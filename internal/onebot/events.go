package onebot

import (
	"github.com/tidwall/gjson"

	"github.com/vicentereig/qunalbum/internal/types"
)

// ParseEvent extracts a message event from a raw OneBot event payload. The
// second return value is false for anything that is not a message event
// (heartbeats, notices, action responses).
func ParseEvent(raw []byte) (*types.MessageEvent, bool) {
	if !gjson.ValidBytes(raw) {
		return nil, false
	}
	evt := gjson.ParseBytes(raw)
	if evt.Get("post_type").String() != "message" {
		return nil, false
	}

	msg := &types.MessageEvent{
		MessageID:  evt.Get("message_id").Int(),
		GroupID:    evt.Get("group_id").Int(),
		UserID:     evt.Get("user_id").Int(),
		SelfID:     evt.Get("self_id").Int(),
		Time:       evt.Get("time").Int(),
		Nickname:   evt.Get("sender.nickname").String(),
		Card:       evt.Get("sender.card").String(),
		RawMessage: evt.Get("raw_message").String(),
		Segments:   ParseSegments(evt.Get("message")),
	}
	return msg, true
}

// ParseSegments converts a OneBot message into segments. Only the array
// message format is understood; a CQ-code string is kept as plain text.
func ParseSegments(message gjson.Result) []types.Segment {
	if message.Type == gjson.String {
		return []types.Segment{{Type: types.SegmentText, Text: message.String()}}
	}

	var segments []types.Segment
	message.ForEach(func(_, seg gjson.Result) bool {
		data := seg.Get("data")
		switch types.SegmentType(seg.Get("type").String()) {
		case types.SegmentText:
			segments = append(segments, types.Segment{
				Type: types.SegmentText,
				Text: data.Get("text").String(),
			})
		case types.SegmentImage:
			segments = append(segments, types.Segment{
				Type: types.SegmentImage,
				URL:  data.Get("url").String(),
				File: data.Get("file").String(),
			})
		case types.SegmentReply:
			segments = append(segments, types.Segment{
				Type:    types.SegmentReply,
				ReplyID: data.Get("id").String(),
			})
		case types.SegmentAt:
			segments = append(segments, types.Segment{
				Type:   types.SegmentAt,
				Target: data.Get("qq").String(),
			})
		}
		return true
	})
	return segments
}
