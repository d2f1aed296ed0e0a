package onebot

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/vicentereig/qunalbum/internal/types"
)

// EventStream reads events from a OneBot forward WebSocket server.
type EventStream struct {
	url         string
	accessToken string
	dialer      *websocket.Dialer
	log         zerolog.Logger
}

func NewEventStream(url, accessToken string, log zerolog.Logger) *EventStream {
	return &EventStream{
		url:         url,
		accessToken: accessToken,
		dialer:      websocket.DefaultDialer,
		log:         log.With().Str("component", "onebot-ws").Logger(),
	}
}

// Run dials the server and calls handler for every message event until ctx
// is done or the connection drops. handler must not block.
func (s *EventStream) Run(ctx context.Context, handler func(*types.MessageEvent)) error {
	header := http.Header{}
	if s.accessToken != "" {
		header.Set("Authorization", "Bearer "+s.accessToken)
	}

	ws, resp, err := s.dialer.DialContext(ctx, s.url, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("failed to connect to %s: %w (http %d)", s.url, err, resp.StatusCode)
		}
		return fmt.Errorf("failed to connect to %s: %w", s.url, err)
	}
	defer ws.Close()
	s.log.Info().Str("url", s.url).Msg("connected to event stream")

	// ReadMessage blocks; closing the socket is the only way to unblock it.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			ws.Close()
		case <-done:
		}
	}()

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return errors.New("event stream closed by server")
			}
			return fmt.Errorf("failed to read event: %w", err)
		}

		evt, ok := ParseEvent(raw)
		if !ok {
			continue
		}
		handler(evt)
	}
}
