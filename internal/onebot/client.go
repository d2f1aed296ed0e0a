package onebot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/vicentereig/qunalbum/internal/types"
)

// Client calls OneBot v11 actions over the implementation's HTTP API.
type Client struct {
	baseURL     string
	accessToken string
	http        *http.Client
	log         zerolog.Logger
}

type MemberInfo struct {
	Card     string
	Nickname string
}

type StrangerInfo struct {
	Nickname string
}

// ActionError is returned when the implementation answers with a non-ok
// status.
type ActionError struct {
	Action  string
	RetCode int64
	Message string
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("onebot action %s failed: retcode=%d %s", e.Action, e.RetCode, e.Message)
}

func NewClient(baseURL, accessToken string, log zerolog.Logger) *Client {
	return &Client{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		accessToken: accessToken,
		http:        &http.Client{},
		log:         log.With().Str("component", "onebot").Logger(),
	}
}

// Call invokes an action and returns its data field.
func (c *Client) Call(ctx context.Context, action string, params map[string]any) (gjson.Result, error) {
	if params == nil {
		params = map[string]any{}
	}
	body, err := json.Marshal(params)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("failed to encode %s params: %w", action, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+action, bytes.NewReader(body))
	if err != nil {
		return gjson.Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("onebot action %s: %w", action, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("failed to read %s response: %w", action, err)
	}
	c.log.Debug().Str("action", action).Int("status", resp.StatusCode).Dur("took", time.Since(start)).Msg("action called")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return gjson.Result{}, fmt.Errorf("onebot action %s: http status %d", action, resp.StatusCode)
	}
	if !gjson.ValidBytes(raw) {
		return gjson.Result{}, fmt.Errorf("onebot action %s: invalid JSON response", action)
	}

	res := gjson.ParseBytes(raw)
	if status := res.Get("status").String(); status != "ok" && status != "async" {
		msg := res.Get("wording").String()
		if msg == "" {
			msg = res.Get("message").String()
		}
		return gjson.Result{}, &ActionError{Action: action, RetCode: res.Get("retcode").Int(), Message: msg}
	}
	return res.Get("data"), nil
}

func (c *Client) GetGroupMemberInfo(ctx context.Context, groupID, userID int64) (MemberInfo, error) {
	data, err := c.Call(ctx, "get_group_member_info", map[string]any{
		"group_id": groupID,
		"user_id":  userID,
	})
	if err != nil {
		return MemberInfo{}, err
	}
	return MemberInfo{
		Card:     data.Get("card").String(),
		Nickname: data.Get("nickname").String(),
	}, nil
}

func (c *Client) GetStrangerInfo(ctx context.Context, userID int64) (StrangerInfo, error) {
	data, err := c.Call(ctx, "get_stranger_info", map[string]any{"user_id": userID})
	if err != nil {
		return StrangerInfo{}, err
	}
	return StrangerInfo{Nickname: data.Get("nickname").String()}, nil
}

// GetMsg fetches a stored message, used to hydrate quoted replies.
func (c *Client) GetMsg(ctx context.Context, messageID string) (*types.Reply, error) {
	id, err := strconv.ParseInt(messageID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid message id %q: %w", messageID, err)
	}
	data, err := c.Call(ctx, "get_msg", map[string]any{"message_id": id})
	if err != nil {
		return nil, err
	}

	sender := data.Get("sender.user_id").String()
	if sender == "" {
		sender = data.Get("user_id").String()
	}
	return &types.Reply{
		MessageID: messageID,
		SenderID:  sender,
		Segments:  ParseSegments(data.Get("message")),
	}, nil
}

func (c *Client) GetQunAlbumList(ctx context.Context, groupID int64) ([]types.Album, error) {
	data, err := c.Call(ctx, "get_qun_album_list", map[string]any{"group_id": groupID})
	if err != nil {
		return nil, err
	}

	var albums []types.Album
	data.ForEach(func(_, album gjson.Result) bool {
		albums = append(albums, types.Album{
			ID:   album.Get("album_id").String(),
			Name: album.Get("name").String(),
		})
		return true
	})
	return albums, nil
}

func (c *Client) UploadImageToQunAlbum(ctx context.Context, groupID int64, albumID, albumName, file string) error {
	_, err := c.Call(ctx, "upload_image_to_qun_album", map[string]any{
		"group_id":   groupID,
		"album_id":   albumID,
		"album_name": albumName,
		"file":       file,
	})
	return err
}

func (c *Client) SendGroupMsg(ctx context.Context, groupID int64, text string) error {
	_, err := c.Call(ctx, "send_group_msg", map[string]any{
		"group_id": groupID,
		"message": []map[string]any{
			{"type": "text", "data": map[string]any{"text": text}},
		},
	})
	return err
}
