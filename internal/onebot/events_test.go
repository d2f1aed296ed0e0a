package onebot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/vicentereig/qunalbum/internal/types"
)

func TestParseEventGroupMessageWithReply(t *testing.T) {
	raw := []byte(`{
		"post_type": "message",
		"message_type": "group",
		"time": 1700000000,
		"self_id": 10001,
		"message_id": 42,
		"group_id": 123456,
		"user_id": 987654,
		"raw_message": "[CQ:reply,id=41]/up 怪话",
		"sender": {"user_id": 987654, "nickname": "Alice", "card": "Alice in group"},
		"message": [
			{"type": "reply", "data": {"id": "41"}},
			{"type": "at", "data": {"qq": "10001"}},
			{"type": "text", "data": {"text": "/up 怪话"}},
			{"type": "image", "data": {"file": "abc.image", "url": "https://multimedia.nt.qq.com/abc"}}
		]
	}`)

	evt, ok := ParseEvent(raw)
	require.True(t, ok)

	assert.Equal(t, int64(42), evt.MessageID)
	assert.Equal(t, int64(123456), evt.GroupID)
	assert.Equal(t, int64(987654), evt.UserID)
	assert.Equal(t, int64(10001), evt.SelfID)
	assert.Equal(t, "Alice", evt.Nickname)
	assert.Equal(t, "Alice in group", evt.Card)
	assert.True(t, evt.IsGroup())
	assert.Equal(t, "/up 怪话", evt.PlainText())
	assert.Equal(t, "41", evt.ReplySegmentID())

	require.Len(t, evt.Segments, 4)
	assert.Equal(t, types.SegmentAt, evt.Segments[1].Type)
	assert.Equal(t, "10001", evt.Segments[1].Target)
	assert.Equal(t, types.Segment{
		Type: types.SegmentImage,
		URL:  "https://multimedia.nt.qq.com/abc",
		File: "abc.image",
	}, evt.Segments[3])
	assert.Nil(t, evt.Reply)
}

func TestParseEventIgnoresNonMessageEvents(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "heartbeat", raw: `{"post_type":"meta_event","meta_event_type":"heartbeat"}`},
		{name: "notice", raw: `{"post_type":"notice","notice_type":"group_increase"}`},
		{name: "action response", raw: `{"status":"ok","retcode":0,"data":null}`},
		{name: "invalid json", raw: `{"post_type":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evt, ok := ParseEvent([]byte(tt.raw))
			assert.False(t, ok)
			assert.Nil(t, evt)
		})
	}
}

func TestParseSegmentsKeepsStringMessageAsText(t *testing.T) {
	segments := ParseSegments(gjson.Parse(`"hello [CQ:face,id=1]"`))
	require.Len(t, segments, 1)
	assert.Equal(t, types.SegmentText, segments[0].Type)
	assert.Equal(t, "hello [CQ:face,id=1]", segments[0].Text)
}

func TestParseSegmentsSkipsUnknownTypes(t *testing.T) {
	segments := ParseSegments(gjson.Parse(`[
		{"type": "face", "data": {"id": "1"}},
		{"type": "text", "data": {"text": "hi"}}
	]`))
	require.Len(t, segments, 1)
	assert.Equal(t, "hi", segments[0].Text)
}
