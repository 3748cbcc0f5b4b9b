package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/dgnsrekt/chartdraw/internal/controller"
)

// socketReply is one websocket response. Exactly one of Result or Error is set.
type socketReply struct {
	Result *controller.InteractResult `json:"result,omitempty"`
	Error  string                     `json:"error,omitempty"`
	Code   string                     `json:"code,omitempty"`
}

// interactSocket streams pointer events for one chart. Each text message is
// an Input; each reply carries the controller state and, unless ?frame=false,
// the re-rendered frame. Only one event is processed at a time per socket.
func interactSocket(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		chartID := chi.URLParam(r, "chart_id")
		withFrame := r.URL.Query().Get("frame") != "false"

		conn, _, _, err := ws.UpgradeHTTP(r, w)
		if err != nil {
			slog.Debug("websocket upgrade failed", "chart_id", chartID, "error", err)
			return
		}
		defer conn.Close()
		slog.Info("interaction socket opened", "chart_id", chartID, "remote", r.RemoteAddr)

		for {
			data, op, err := wsutil.ReadClientData(conn)
			if err != nil {
				var closed wsutil.ClosedError
				if !errors.As(err, &closed) && !errors.Is(err, io.EOF) {
					slog.Debug("websocket read failed", "chart_id", chartID, "error", err)
				}
				break
			}
			if op != ws.OpText {
				continue
			}

			reply := handleSocketMessage(svc, chartID, data, withFrame)
			out, err := json.Marshal(reply)
			if err != nil {
				slog.Warn("websocket marshal failed", "chart_id", chartID, "error", err)
				continue
			}
			if err := wsutil.WriteServerText(conn, out); err != nil {
				slog.Debug("websocket write failed", "chart_id", chartID, "error", err)
				break
			}
		}
		slog.Info("interaction socket closed", "chart_id", chartID)
	}
}

func handleSocketMessage(svc Service, chartID string, data []byte, withFrame bool) socketReply {
	var in controller.Input
	if err := json.Unmarshal(data, &in); err != nil {
		return socketReply{Error: "malformed event: " + err.Error(), Code: controller.CodeValidation}
	}
	res, err := svc.Interact(chartID, in, withFrame)
	if err != nil {
		var coded *controller.CodedError
		if errors.As(err, &coded) {
			return socketReply{Error: coded.Message, Code: coded.Code}
		}
		return socketReply{Error: err.Error()}
	}
	return socketReply{Result: &res}
}
