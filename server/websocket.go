package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Message is the envelope for every WebSocket frame in both directions.
type Message struct {
	Type    string          `json:"type"`
	Content string          `json:"content"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type chatOptions struct {
	TopK int `json:"top_k"`
}

// wsConn serializes writes; gorilla connections allow one concurrent writer.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) send(msgType, content string, data any) error {
	msg := Message{Type: msgType, Content: content}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return err
		}
		msg.Data = raw
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(msg)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	ws := &wsConn{conn: conn}
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read failed", "err", err)
			}
			cancel()
			return
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handleMessage(ctx, ws, msg)
		}()
	}
}

func (s *Server) handleMessage(ctx context.Context, ws *wsConn, msg Message) {
	var err error
	switch msg.Type {
	case "chat":
		err = s.handleChatMessage(ctx, ws, msg)
	case "summary":
		err = ws.send("response", "", s.svc.Summary())
	default:
		err = ws.send("error", fmt.Sprintf("unknown message type %q", msg.Type), nil)
	}
	if err != nil {
		s.logger.Debug("websocket send failed", "err", err)
	}
}

func (s *Server) handleChatMessage(ctx context.Context, ws *wsConn, msg Message) error {
	var opts chatOptions
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &opts); err != nil {
			return ws.send("error", fmt.Sprintf("invalid data: %v", err), nil)
		}
	}

	if err := ws.send("status", "Searching CVs...", nil); err != nil {
		return err
	}

	resp, err := s.svc.ChatStream(ctx, msg.Content, s.topK(opts.TopK), func(chunk string) {
		if err := ws.send("stream", chunk, nil); err != nil {
			s.logger.Debug("websocket send failed", "err", err)
		}
	})
	if err != nil {
		s.logger.Error("chat failed", "err", err)
		return ws.send("error", fmt.Sprintf("Error processing chat: %v", err), nil)
	}
	return ws.send("response", resp.Answer, resp)
}
