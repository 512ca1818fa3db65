package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"qrsentry/internal/scanner"
)

// Client control messages on the scan socket. Frames arrive as binary
// messages (JPEG or PNG encoded) between control messages.
type wsControlMsg struct {
	Type       string `json:"type"`
	IntervalMs int    `json:"interval_ms,omitempty"`
	Message    string `json:"message,omitempty"`
}

// Server-to-client events. Session events (ack/hint/decoded) are forwarded
// as-is; "result" carries the stored classification and ends the session.
type wsResultMsg struct {
	Type   string `json:"type"`
	Result any    `json:"result,omitempty"`
}

// handleScanSocket runs one decode session per connection. The camera stream
// handle stays on the client; the server owns the session state machine and
// every exit path cancels it.
func (s *Server) handleScanSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("ws accept error", "error", err)
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()

	// The first message must open the session.
	_, data, err := conn.Read(ctx)
	if err != nil {
		return
	}
	var start wsControlMsg
	if err := json.Unmarshal(data, &start); err != nil || start.Type != "start" {
		conn.Close(websocket.StatusInvalidFramePayloadData, "expected start message")
		return
	}

	opts := scanner.Options{
		SampleInterval: time.Duration(s.cfg.Scanner.SampleIntervalMs) * time.Millisecond,
		HintTimeout:    time.Duration(s.cfg.Scanner.HintTimeoutMs) * time.Millisecond,
		ConfirmDelay:   time.Duration(s.cfg.Scanner.ConfirmDelayMs) * time.Millisecond,
	}
	if start.IntervalMs > 0 {
		opts.SampleInterval = time.Duration(start.IntervalMs) * time.Millisecond
	}

	sess := scanner.New(s.decoder, opts)
	sess.Start()
	defer sess.Cancel()
	slog.Info("scan session started", "session_id", sess.ID)

	go s.pumpSessionEvents(ctx, conn, sess)

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			slog.Debug("scan session closed", "session_id", sess.ID, "error", err)
			return
		}

		switch typ {
		case websocket.MessageBinary:
			img, _, err := image.Decode(bytes.NewReader(data))
			if err != nil {
				slog.Debug("undecodable frame", "session_id", sess.ID, "error", err)
				continue
			}
			sess.Offer(ctx, img)

		case websocket.MessageText:
			var msg wsControlMsg
			if err := json.Unmarshal(data, &msg); err != nil {
				continue
			}
			switch msg.Type {
			case "cancel":
				conn.Close(websocket.StatusNormalClosure, "cancelled")
				return
			case "camera_error":
				// Terminal for the session and distinct from a decode miss:
				// the client could not acquire the camera at all.
				slog.Warn("client camera error", "session_id", sess.ID, "message", msg.Message)
				conn.Close(websocket.StatusNormalClosure, "camera unavailable")
				return
			}
		}
	}
}

// pumpSessionEvents forwards session events to the client. When the payload
// lands it classifies, persists, and replies with the final result; the
// classification runs detached from the socket context, so a client that
// navigated away just has its result dropped on the failed write.
func (s *Server) pumpSessionEvents(ctx context.Context, conn *websocket.Conn, sess *scanner.Session) {
	for ev := range sess.Events() {
		writeWS(ctx, conn, ev)
		if ev.Type != scanner.EventDecoded {
			continue
		}

		result, err := s.classifyAndStore(ev.Payload, "camera")
		if err != nil {
			slog.Error("storing scan result", "session_id", sess.ID, "error", err)
			writeWS(ctx, conn, wsResultMsg{Type: "error"})
			conn.Close(websocket.StatusInternalError, "failed to store result")
			return
		}

		slog.Info("scan complete",
			"session_id", sess.ID,
			"risk", result.Risk,
			"confidence", result.Confidence,
		)
		writeWS(ctx, conn, wsResultMsg{Type: "result", Result: result})
		conn.Close(websocket.StatusNormalClosure, "scan complete")
		return
	}
}

func writeWS(ctx context.Context, conn *websocket.Conn, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		slog.Debug("ws write error", "error", err)
	}
}
