package adapthttp

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"healthlog/internal/domain"
)

const wsWriteTimeout = 5 * time.Second

// StateMessage is pushed to WebSocket clients: once on connect and after
// every store mutation.
type StateMessage struct {
	Type      string       `json:"type"`
	Timestamp time.Time    `json:"timestamp"`
	State     domain.State `json:"state"`
}

// handleWebSocket streams state snapshots. Slow clients skip intermediate
// snapshots and always receive the latest one.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Printf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.CloseNow()

	// Clients never send; CloseRead handles control frames and cancels ctx
	// when the peer goes away.
	ctx := conn.CloseRead(r.Context())

	updates := make(chan domain.State, 1)
	unsubscribe := s.store.Subscribe(func(st domain.State) {
		// Runs under the store lock: never block.
		select {
		case updates <- st:
		default:
			select {
			case <-updates:
			default:
			}
			select {
			case updates <- st:
			default:
			}
		}
	})
	defer unsubscribe()

	if err := s.writeState(ctx, conn, s.store.State()); err != nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case st := <-updates:
			if err := s.writeState(ctx, conn, st); err != nil {
				s.logger.Printf("websocket write: %v", err)
				return
			}
		}
	}
}

func (s *Server) writeState(ctx context.Context, conn *websocket.Conn, st domain.State) error {
	ctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, StateMessage{Type: "state", Timestamp: time.Now().UTC(), State: st})
}
