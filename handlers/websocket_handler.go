package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/artcontest/judging-system/live"
	"github.com/artcontest/judging-system/services"
)

type WebSocketHandler struct {
	hub      *live.Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

func NewWebSocketHandler(hub *live.Hub, allowedOrigin string, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origin == allowedOrigin
			},
		},
		logger: logger,
	}
}

// ScoreFeed upgrades the connection and subscribes it to the contest's
// score event room.
func (h *WebSocketHandler) ScoreFeed(w http.ResponseWriter, r *http.Request) {
	contestID, err := strconv.Atoi(chi.URLParam(r, "contestID"))
	if err != nil || contestID <= 0 {
		badRequestResponse(w, r, errors.New("invalid contest id"))
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := &live.Client{
		Hub:  h.hub,
		Conn: conn,
		Send: make(chan []byte, 256),
		Room: services.ContestRoomID(contestID),
	}
	h.hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}
