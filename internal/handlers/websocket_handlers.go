package handlers

import (
	"net/http"

	"devflow/internal/api"
	"devflow/internal/middleware"
	"devflow/internal/websocket"

	ws "github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// HandleWebSocket subscribes the connection to live updates for one question.
// Questions are public, so no sign-in is required.
func (s *Server) HandleWebSocket() http.HandlerFunc {
	upgrader := ws.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}

	return func(w http.ResponseWriter, r *http.Request) {
		logger := middleware.RequestLogger(r.Context(), s.Logger)

		questionID, err := parseID("question", r.URL.Query().Get("question"))
		if err != nil {
			api.WriteError(w, err)
			return
		}
		if _, err := s.Service.GetQuestion(r.Context(), questionID); err != nil {
			api.WriteError(w, err)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// The upgrader already wrote the HTTP error.
			logger.Warn("WebSocket upgrade failed", zap.Error(err))
			return
		}

		client := websocket.NewClient(s.Hub, questionID, conn)
		if !s.Hub.RegisterClient(client) {
			logger.Debug("WebSocket hub stopped, dropping subscriber")
			_ = conn.WriteMessage(ws.CloseMessage, ws.FormatCloseMessage(ws.CloseGoingAway, "server shutting down"))
			conn.Close()
			return
		}
		logger.Debug("WebSocket client subscribed", zap.String("questionId", questionID.String()))

		go client.WritePump()
		go client.ReadPump()
	}
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	return origin == "" || s.CORS == nil || s.CORS.AllowsOrigin(origin)
}
