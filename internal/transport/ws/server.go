package ws

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"wirecraft.ai/internal/protocol"
)

// ActEnvelope carries one decoded ACT from an observer connection to the
// tick loop.
type ActEnvelope struct {
	ObserverID string
	Act        protocol.ActMsg
}

// Server accepts observer websocket connections, runs the HELLO/WELCOME
// handshake, forwards ACT batches to the tick loop and fans OBS frames out
// to every connected observer.
type Server struct {
	welcome protocol.WelcomeMsg
	log     *log.Logger

	inbox  chan ActEnvelope
	nextID atomic.Uint64

	mu    sync.Mutex
	conns map[string]chan []byte

	upgrader websocket.Upgrader
}

func NewServer(welcome protocol.WelcomeMsg, logger *log.Logger) *Server {
	s := &Server{
		welcome: welcome,
		log:     logger,
		inbox:   make(chan ActEnvelope, 256),
		conns:   make(map[string]chan []byte),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
	return s
}

// Inbox delivers ACT batches from all live connections.
func (s *Server) Inbox() <-chan ActEnvelope { return s.inbox }

// ConnCount reports the number of connected observers.
func (s *Server) ConnCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Broadcast marshals v once and queues it on every connection. Observers
// that cannot keep up drop frames rather than stalling the tick loop.
func (s *Server) Broadcast(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, out := range s.conns {
		select {
		case out <- b:
		default:
		}
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		observerID, out := s.handshake(conn)
		if observerID == "" {
			return
		}

		s.mu.Lock()
		s.conns[observerID] = out
		s.mu.Unlock()
		defer func() {
			s.mu.Lock()
			delete(s.conns, observerID)
			s.mu.Unlock()
		}()

		done := make(chan struct{})

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-done:
					return
				case b, ok := <-out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil {
				continue
			}
			if base.Type != protocol.TypeAct {
				continue
			}
			var act protocol.ActMsg
			if err := json.Unmarshal(msg, &act); err != nil {
				continue
			}
			if act.ProtocolVersion != protocol.Version {
				continue
			}
			s.inbox <- ActEnvelope{ObserverID: observerID, Act: act}
		}

		close(done)
	}
}

func (s *Server) handshake(conn *websocket.Conn) (observerID string, out chan []byte) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return "", nil
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return "", nil
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return "", nil
	}
	if hello.ObserverName == "" {
		hello.ObserverName = "observer"
	}

	observerID = fmt.Sprintf("O%d", s.nextID.Add(1))
	out = make(chan []byte, 8)

	welcome := s.welcome
	welcome.ObserverID = observerID
	if err := writeJSON(conn, welcome); err != nil {
		return "", nil
	}

	if s.log != nil {
		s.log.Printf("observer %s connected as %q", observerID, hello.ObserverName)
	}
	return observerID, out
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
