package eventstream

import (
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"
)

// Server exposes the bus over websocket so a UI can watch firings and batch
// progress live.
type Server struct {
	bus *Bus
	log zerolog.Logger
}

func NewServer(bus *Bus, log zerolog.Logger) *Server {
	return &Server{bus: bus, log: log.With().Str("component", "eventstream").Logger()}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("Websocket accept failed")
		return
	}
	defer conn.CloseNow()

	events, cancel := s.bus.Subscribe(64)
	defer cancel()

	ctx := r.Context()
	s.log.Debug().Str("remote", r.RemoteAddr).Msg("Event stream client connected")
	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case evt, ok := <-events:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			if err := wsjson.Write(ctx, conn, evt); err != nil {
				s.log.Debug().Err(err).Msg("Event stream client dropped")
				return
			}
		}
	}
}
