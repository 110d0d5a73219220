// Package graph serves a live view of the workspace tangle graph in the
// browser. Documents and tangle targets are nodes, and a link from a
// document to a target carries the number of blocks the document
// contributes to it. Connected clients receive the full graph on connect
// and again whenever it is replaced.
package graph

import (
	"embed"
	"encoding/json"
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/tliron/commonlog"

	"weft/internal/index"
)

var log = commonlog.GetLogger("weft.graph")

// Node kinds.
const (
	KindDoc    = "doc"
	KindTarget = "target"
)

// Data holds the nodes and links of the tangle graph.
type Data struct {
	Nodes []Node `json:"nodes"`
	Links []Link `json:"links"`
}

// Node is a document or a tangle target. ID is unique within one Data.
type Node struct {
	ID    int    `json:"id"`
	Label string `json:"label"`
	Kind  string `json:"kind"`
}

// Link is a directed edge from a document node to a target node.
// Blocks is the number of source blocks the document contributes.
type Link struct {
	Source int `json:"source"`
	Target int `json:"target"`
	Blocks int `json:"blocks"`
}

// message is the WebSocket frame sent to clients. The graph is always
// replaced wholesale, so "init" is the only operation.
type message struct {
	Op    string `json:"op"`
	Graph *Data  `json:"graph"`
}

//go:embed static/*
var staticFiles embed.FS

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// Server holds the current graph and the set of connected clients.
type Server struct {
	mu    sync.Mutex
	graph Data

	clientsMu sync.Mutex
	clients   map[*websocket.Conn]bool
}

// NewServer creates a server with an empty graph.
func NewServer() *Server {
	return &Server{
		graph:   Data{Nodes: []Node{}, Links: []Link{}},
		clients: make(map[*websocket.Conn]bool),
	}
}

// Show starts serving the UI and WebSocket endpoint on addr ("localhost:0"
// picks a free port) and returns the URL where the graph can be viewed.
func (s *Server) Show(addr string) (string, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return "", err
	}

	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.FS(staticFiles)))
	mux.HandleFunc("/ws", s.handleWS)

	go func() {
		if err := http.Serve(l, mux); err != nil {
			log.Errorf("graph server: %v", err)
		}
	}()

	return "http://" + l.Addr().String() + "/static/", nil
}

// SetGraph replaces the graph and pushes the new state to every client.
func (s *Server) SetGraph(data Data) error {
	s.mu.Lock()
	s.graph = data
	s.mu.Unlock()
	return s.broadcast(message{Op: "init", Graph: &data})
}

// Snapshot returns a copy of the current graph.
func (s *Server) Snapshot() Data {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Data{
		Nodes: append([]Node{}, s.graph.Nodes...),
		Links: append([]Link{}, s.graph.Links...),
	}
}

// broadcast marshals and sends a message to all clients, dropping any
// connection that fails to accept the write.
func (s *Server) broadcast(msg message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	for conn := range s.clients {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Warningf("graph broadcast: %v", err)
			conn.Close()
			delete(s.clients, conn)
		}
	}
	return nil
}

// handleWS upgrades the connection, sends the current graph, then keeps
// the connection open until the client goes away.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("graph websocket upgrade: %v", err)
		return
	}
	s.clientsMu.Lock()
	s.clients[conn] = true
	s.clientsMu.Unlock()
	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, conn)
		s.clientsMu.Unlock()
		conn.Close()
	}()

	state := s.Snapshot()
	if data, err := json.Marshal(message{Op: "init", Graph: &state}); err == nil {
		_ = conn.WriteMessage(websocket.TextMessage, data)
	} else {
		log.Errorf("graph init marshal: %v", err)
	}

	for {
		if _, _, err := conn.NextReader(); err != nil {
			break
		}
	}
}

// Build derives the tangle graph from the index. Nodes and links come out
// in a stable order: targets sorted by name, documents in block order
// within each target.
func Build(ix *index.Index) (Data, error) {
	targets, err := ix.Targets()
	if err != nil {
		return Data{}, err
	}

	data := Data{Nodes: []Node{}, Links: []Link{}}
	ids := make(map[string]int)
	node := func(kind, label string) int {
		key := kind + ":" + label
		if id, ok := ids[key]; ok {
			return id
		}
		id := len(data.Nodes)
		ids[key] = id
		data.Nodes = append(data.Nodes, Node{ID: id, Label: label, Kind: kind})
		return id
	}

	for _, target := range targets {
		blocks, err := ix.BlocksForTarget(target)
		if err != nil {
			return Data{}, err
		}
		if len(blocks) == 0 {
			continue
		}
		targetID := node(KindTarget, target)

		counts := make(map[int]int)
		var order []int
		for _, blk := range blocks {
			docID := node(KindDoc, blk.Doc)
			if counts[docID] == 0 {
				order = append(order, docID)
			}
			counts[docID]++
		}
		for _, docID := range order {
			data.Links = append(data.Links, Link{Source: docID, Target: targetID, Blocks: counts[docID]})
		}
	}
	return data, nil
}
