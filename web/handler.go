// Package web exposes the relay over HTTP: a websocket endpoint carrying
// the interleaved control/audio protocol, plus a health check.
package web

import (
	"encoding/json"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"parley/relay"
	"parley/wire"
)

type Handler struct {
	registry *relay.Registry
	logger   *log.Logger
	upgrader websocket.Upgrader
}

func NewHandler(registry *relay.Registry, logger *log.Logger) *Handler {
	return &Handler{
		registry: registry,
		logger:   logger,
		upgrader: websocket.Upgrader{
			// Browser clients connect from arbitrary origins.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Get("/health", h.handleHealth)
	r.Get("/ws", h.handleSocket)
	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":   "ok",
		"service":  "parley",
		"sessions": h.registry.SessionCount(),
	})
}

// handleSocket owns one participant connection from upgrade to disconnect.
// Malformed input gets an error message back and the connection stays open;
// only a transport failure ends the loop.
func (h *Handler) handleSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	out := newSender(conn, h.logger)
	defer out.close()

	ctx := r.Context()
	var sessionID, participantID string

	defer func() {
		if participantID != "" {
			h.registry.RemoveParticipant(sessionID, participantID)
		}
	}()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		switch msgType {
		case websocket.TextMessage:
			msg, err := wire.DecodeMessage(data)
			if err != nil {
				out.SendJSON(wire.ErrorMessage(err.Error()))
				continue
			}

			switch msg.Type {
			case wire.TypeJoin:
				if participantID != "" {
					out.SendJSON(wire.ErrorMessage("already joined"))
					continue
				}
				if msg.ParticipantName == "" || msg.SpokenLanguage == "" {
					out.SendJSON(wire.ErrorMessage("join requires participantName and spokenLanguage"))
					continue
				}

				res, err := h.registry.AddParticipant(ctx, msg.SessionCode, relay.JoinInfo{
					Name:           msg.ParticipantName,
					SpokenLanguage: msg.SpokenLanguage,
					ListenLanguage: msg.ListenLanguage,
					VoiceProfileID: msg.VoiceProfileID,
					Sender:         out,
				})
				if err != nil {
					out.SendJSON(wire.ErrorMessage(err.Error()))
					continue
				}

				sessionID = res.SessionID
				participantID = res.ParticipantID
				out.SendJSON(wire.Message{
					Type:          wire.TypeJoined,
					SessionID:     res.SessionID,
					SessionCode:   res.Code,
					ParticipantID: res.ParticipantID,
					Participants:  res.Roster,
				})

			case wire.TypeLeave:
				if participantID == "" {
					continue
				}
				h.registry.RemoveParticipant(sessionID, participantID)
				sessionID, participantID = "", ""

			case wire.TypeUpdateSettings:
				if participantID == "" {
					out.SendJSON(wire.ErrorMessage("not joined"))
					continue
				}
				h.registry.UpdateListenLanguage(sessionID, participantID, msg.ListenLanguage)
			}

		case websocket.BinaryMessage:
			frame, err := wire.DecodeAudioFrame(data)
			if err != nil {
				out.SendJSON(wire.ErrorMessage(err.Error()))
				continue
			}
			if frame.Kind != wire.KindMic {
				out.SendJSON(wire.ErrorMessage("only mic audio flows inbound"))
				continue
			}
			if participantID == "" {
				continue
			}
			// The connection identity is authoritative; the frame's
			// speaker id is ignored so nobody can speak as someone else.
			h.registry.RouteAudio(ctx, sessionID, participantID, frame.PCM)
		}
	}
}
