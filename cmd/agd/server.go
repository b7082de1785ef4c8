package main

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/currantlabs/ag"
	"github.com/currantlabs/ag/gateway"
	"github.com/currantlabs/ag/internal/ctl"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// reply answers a command on the connection that sent it.
type reply struct {
	Reply  string      `json:"reply"`
	Error  string      `json:"error,omitempty"`
	Blocks []ctl.Block `json:"blocks,omitempty"`
}

type server struct {
	gw  *gateway.Gateway
	hub *hub
}

func (s *server) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/state", s.handleState)
	return mux
}

func (s *server) serveEvent(e ag.Event) {
	s.hub.post(ctl.FromEvent(e))
}

func (s *server) blocks() []ctl.Block {
	var bs []ctl.Block
	for _, v := range s.gw.Views() {
		bs = append(bs, ctl.FromView(v))
	}
	return bs
}

func (s *server) handleState(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if r.Method != "GET" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		json.NewEncoder(w).Encode(reply{Reply: "state", Error: "method not allowed"})
		return
	}
	json.NewEncoder(w).Encode(reply{Reply: "state", Blocks: s.blocks()})
}

func (s *server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("can't upgrade connection", "remote", r.RemoteAddr, "err", err)
		return
	}
	c := &client{conn: conn}
	s.hub.add(c)
	logger.Info("client connected", "remote", r.RemoteAddr)
	defer s.hub.remove(c)

	for {
		var cmd ctl.Command
		if err := conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("read failed", "remote", r.RemoteAddr, "err", err)
			}
			return
		}
		if err := c.write(s.exec(cmd)); err != nil {
			return
		}
	}
}

func (s *server) exec(cmd ctl.Command) reply {
	rp := reply{Reply: cmd.Op}
	if cmd.Op == "state" {
		rp.Blocks = s.blocks()
		return rp
	}
	if err := ctl.Exec(s.gw, ag.HandlerFunc(s.serveEvent), cmd); err != nil {
		rp.Error = err.Error()
	}
	return rp
}
