package httpapi

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/verdictlabs/verdict/pkg/domain/events"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsHub fans progress events out to websocket connections. One subscription
// to the publisher for the server's lifetime; each connection registers a
// buffered channel that is removed on disconnect.
type wsHub struct {
	mu      sync.RWMutex
	clients map[chan *events.ProgressEvent]string // value: run id filter
}

func newWSHub(publisher events.Publisher) *wsHub {
	h := &wsHub{
		clients: make(map[chan *events.ProgressEvent]string),
	}

	publisher.Subscribe(func(e *events.ProgressEvent) error {
		h.mu.RLock()
		defer h.mu.RUnlock()
		for ch, runID := range h.clients {
			if runID != "" && runID != e.RunID {
				continue
			}
			select {
			case ch <- e:
			default:
				// Drop if client is slow
			}
		}
		return nil
	})

	return h
}

func (h *wsHub) add(runID string) chan *events.ProgressEvent {
	ch := make(chan *events.ProgressEvent, 32)
	h.mu.Lock()
	h.clients[ch] = runID
	h.mu.Unlock()
	return ch
}

func (h *wsHub) remove(ch chan *events.ProgressEvent) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
}

// handleWebsocket pushes progress events for one run over a websocket.
// The connection closes after the run's terminal event.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("id")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	ch := s.ws.add(runID)
	defer s.ws.remove(ch)

	// Drain reads so close frames and pings are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-r.Context().Done():
			return
		case event := <-ch:
			if err := conn.WriteJSON(event); err != nil {
				return
			}
			if event.Terminal {
				closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "run finished")
				_ = conn.WriteMessage(websocket.CloseMessage, closeMsg)
				return
			}
		}
	}
}
