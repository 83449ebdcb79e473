package httpapi

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/antoniostano/traduttore/internal/pipeline"
	"github.com/antoniostano/traduttore/internal/protocol"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsReadTimeout  = 120 * time.Second
	subBuffer      = 16
)

// hub fans display updates out to connected websocket listeners.
type hub struct {
	mu   sync.Mutex
	subs map[chan protocol.DisplayUpdate]struct{}
}

func newHub() *hub {
	return &hub{subs: make(map[chan protocol.DisplayUpdate]struct{})}
}

func (h *hub) subscribe() chan protocol.DisplayUpdate {
	ch := make(chan protocol.DisplayUpdate, subBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *hub) unsubscribe(ch chan protocol.DisplayUpdate) {
	h.mu.Lock()
	delete(h.subs, ch)
	h.mu.Unlock()
}

func (h *hub) broadcast(u protocol.DisplayUpdate) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- u:
		default:
			// Slow listeners miss intermediate updates, never block the
			// pipeline.
		}
	}
}

func (s *Server) broadcastDisplay(state pipeline.DisplayState) {
	sessionID := ""
	if sess := s.engine.Active(); sess != nil {
		sessionID = sess.ID()
	}
	s.hub.broadcast(displayUpdate(sessionID, state))
}

func displayUpdate(sessionID string, state pipeline.DisplayState) protocol.DisplayUpdate {
	ts := state.UpdatedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	return protocol.DisplayUpdate{
		Type:        protocol.TypeDisplayUpdate,
		SessionID:   sessionID,
		Seq:         state.Seq,
		Transcript:  state.Transcript,
		Translation: state.Translation,
		AudioURL:    state.AudioURL,
		TSMs:        ts.UnixMilli(),
	}
}

// handleWS serves the listener websocket. Display updates are pushed as they
// happen; clients may also stream audio chunks and end the session over the
// same connection.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	updates := s.hub.subscribe()
	defer s.hub.unsubscribe(updates)

	done := make(chan struct{})
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-done:
				return
			case u := <-updates:
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				if err := conn.WriteJSON(u); err != nil {
					return
				}
			}
		}
	}()

	// Let late joiners catch up with the current line.
	if state := s.engine.Display(); state.Seq > 0 || state.Transcript != "" {
		sessionID := ""
		if sess := s.engine.Active(); sess != nil {
			sessionID = sess.ID()
		}
		select {
		case updates <- displayUpdate(sessionID, state):
		default:
		}
	}

	conn.SetReadLimit(2 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if msgType != websocket.TextMessage {
			continue
		}
		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			_ = conn.WriteJSON(protocol.ErrorEvent{
				Type:      protocol.TypeErrorEvent,
				Code:      "invalid_client_message",
				Retryable: false,
				Detail:    err.Error(),
			})
			continue
		}
		s.handleClientMessage(parsed)
	}

	close(done)
	<-writerDone
}

func (s *Server) handleClientMessage(msg any) {
	switch m := msg.(type) {
	case protocol.ClientAudioChunk:
		sess := s.engine.Active()
		if sess == nil || sess.ID() != m.SessionID {
			return
		}
		samples, err := decodePCMChunk(m.PCM16Base64, m.SampleRate)
		if err != nil {
			return
		}
		s.mu.Lock()
		source := s.source
		s.mu.Unlock()
		if source != nil {
			_ = source.Push(samples, m.SampleRate)
		}
	case protocol.ClientControl:
		if m.Action != "end" {
			return
		}
		sess := s.engine.Active()
		if sess == nil || sess.ID() != m.SessionID {
			return
		}
		sess.Stop()
		s.mu.Lock()
		s.source = nil
		s.mu.Unlock()
	}
}
