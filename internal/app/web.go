// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/leogreu/stepdist/internal/config"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// WSMessage is pushed to websocket clients.
type WSMessage struct {
	Type string          `json:"type"` // status, distance
	Data json.RawMessage `json:"data"`
}

// webServer caches the latest status and distance payloads and fans them
// out to websocket clients.
type webServer struct {
	pub          Publisher
	commandTopic string

	mu     sync.RWMutex
	latest map[string]json.RawMessage
	peers  map[*wsPeer]struct{}
}

type wsPeer struct {
	conn *websocket.Conn
	send chan []byte
}

func newWebServer(pub Publisher, commandTopic string) *webServer {
	return &webServer{
		pub:          pub,
		commandTopic: commandTopic,
		latest:       make(map[string]json.RawMessage),
		peers:        make(map[*wsPeer]struct{}),
	}
}

// update stores payload as the latest value of kind and broadcasts it.
func (s *webServer) update(kind string, payload []byte) {
	if !json.Valid(payload) {
		log.Printf("web: dropping invalid %s payload", kind)
		return
	}
	raw := json.RawMessage(append([]byte(nil), payload...))
	msg, err := json.Marshal(WSMessage{Type: kind, Data: raw})
	if err != nil {
		log.Printf("web: marshal error: %v", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest[kind] = raw
	for p := range s.peers {
		select {
		case p.send <- msg:
		default:
			// slow client; it catches up on the next update
		}
	}
}

func (s *webServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.serveLatest("status"))
	mux.HandleFunc("/api/distance", s.serveLatest("distance"))
	mux.HandleFunc("/api/command", s.serveCommand)
	mux.HandleFunc("/ws", s.serveWS)
	mux.Handle("/", http.FileServer(http.Dir("web")))
	return mux
}

func (s *webServer) serveLatest(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		raw, ok := s.latest[kind]
		s.mu.RUnlock()

		if !ok {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write(raw); err != nil {
			log.Printf("web: write error: %v", err)
		}
	}
}

func (s *webServer) serveCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 64<<10))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	c, err := DecodeCommand(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.pub.Publish(s.commandTopic, c); err != nil {
		http.Error(w, fmt.Sprintf("publish: %v", err), http.StatusBadGateway)
		return
	}
	log.Printf("web: forwarded %s", c.Action)
	w.WriteHeader(http.StatusAccepted)
}

func (s *webServer) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade error: %v", err)
		return
	}
	p := &wsPeer{conn: conn, send: make(chan []byte, 16)}

	s.mu.Lock()
	for _, kind := range []string{"status", "distance"} {
		if raw, ok := s.latest[kind]; ok {
			if msg, err := json.Marshal(WSMessage{Type: kind, Data: raw}); err == nil {
				p.send <- msg
			}
		}
	}
	s.peers[p] = struct{}{}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range p.send {
			_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Printf("web: websocket write error: %v", err)
				conn.Close()
				return
			}
		}
	}()

	// Clients only listen; reading detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.mu.Lock()
	delete(s.peers, p)
	close(p.send)
	s.mu.Unlock()
	<-done
	conn.Close()
}

func (s *webServer) peerCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.peers)
}

// RunWeb serves the latest status and distance over HTTP and websocket, and
// forwards POSTed commands to the stepdist service.
func RunWeb() error {
	cfg := config.Get()

	// 1) Connect to MQTT broker
	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDWeb)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	s := newWebServer(mqttPublisher{client: client}, cfg.TopicCommand)

	// 2) Subscribe to report topics
	if err := subscribe(client, cfg.TopicStatus, func(p []byte) { s.update("status", p) }); err != nil {
		return err
	}
	if err := subscribe(client, cfg.TopicDistance, func(p []byte) { s.update("distance", p) }); err != nil {
		return err
	}

	// 3) HTTP API, websocket and static files from ./web
	addr := fmt.Sprintf(":%d", cfg.WebServerPort)
	log.Printf("web server listening on %s", addr)
	return http.ListenAndServe(addr, s.handler())
}
