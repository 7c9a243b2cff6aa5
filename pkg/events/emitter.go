package events

import (
	"encoding/json"
	"net/http"
	"reflect"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ocif-labs/ip-staking/internal/logger"
)

// LogEmitter writes every event to the structured logger at info
// level, tagged with its Go type name. This is the always-on sink; the
// runtime wires it in regardless of whether a websocket fan-out is
// also configured.
type LogEmitter struct {
	log *logger.Logger
}

func NewLogEmitter(log *logger.Logger) *LogEmitter {
	return &LogEmitter{log: log}
}

func (e *LogEmitter) Emit(event interface{}) {
	kind := reflect.TypeOf(event)
	name := "event"
	if kind != nil {
		name = kind.Name()
	}
	e.log.WithFields(logger.Fields{"event": name, "payload": event}).Info("event emitted")
}

// MultiEmitter fans a single Emit out to every wrapped emitter.
type MultiEmitter struct {
	emitters []Emitter
}

func NewMultiEmitter(emitters ...Emitter) *MultiEmitter {
	return &MultiEmitter{emitters: emitters}
}

func (m *MultiEmitter) Emit(event interface{}) {
	for _, e := range m.emitters {
		e.Emit(event)
	}
}

// WebSocketEmitter broadcasts every event as JSON to all currently
// connected websocket clients (spec §6's live introspection surface).
// Slow or gone clients are dropped rather than allowed to back-pressure
// the settlement path.
type WebSocketEmitter struct {
	mu       sync.RWMutex
	clients  map[*websocket.Conn]chan []byte
	upgrader websocket.Upgrader
	log      *logger.Logger
}

func NewWebSocketEmitter(log *logger.Logger) *WebSocketEmitter {
	return &WebSocketEmitter{
		clients: make(map[*websocket.Conn]chan []byte),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: log,
	}
}

// HandleConn upgrades an HTTP request to a websocket connection and
// registers it as an event subscriber until the client disconnects.
func (w *WebSocketEmitter) HandleConn(rw http.ResponseWriter, r *http.Request) {
	conn, err := w.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		w.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	out := make(chan []byte, 32)
	w.mu.Lock()
	w.clients[conn] = out
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		delete(w.clients, conn)
		w.mu.Unlock()
		conn.Close()
	}()

	// Drain inbound frames (clients send nothing meaningful, but the
	// read pump must run to detect disconnects) while the write pump
	// below pushes event frames out.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for msg := range out {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func (w *WebSocketEmitter) Emit(event interface{}) {
	kind := reflect.TypeOf(event)
	name := "event"
	if kind != nil {
		name = kind.Name()
	}
	payload, err := json.Marshal(struct {
		Type string      `json:"type"`
		Data interface{} `json:"data"`
	}{Type: name, Data: event})
	if err != nil {
		w.log.WithError(err).Warn("event marshal failed")
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for conn, out := range w.clients {
		select {
		case out <- payload:
		default:
			w.log.WithField("remote", conn.RemoteAddr().String()).Warn("dropping slow websocket client")
			// Closing out ends HandleConn's write loop, which then
			// closes the connection.
			delete(w.clients, conn)
			close(out)
		}
	}
}
