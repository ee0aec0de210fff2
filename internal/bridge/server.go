package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/hashicorp/yamux"
)

// Runtime is what a bridge server fronts: the actual language runtime
// executing object-macro bodies. internal/handler.ObjectHandler satisfies
// it, so an in-process handler can be re-exported to remote engines.
type Runtime interface {
	Load(name string, code []string) error
	Call(ctx context.Context, name string, args []string) (string, error)
}

// Server accepts bridge connections and dispatches their load/call
// requests to a Runtime.
type Server struct {
	addr     string
	secret   string
	runtime  Runtime
	upgrader websocket.Upgrader
}

// NewServer returns a Server listening on addr (e.g. ":7077") once
// Start is called.
func NewServer(addr, secret string, runtime Runtime) *Server {
	return &Server{
		addr:    addr,
		secret:  secret,
		runtime: runtime,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Start serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)

	server := &http.Server{Addr: s.addr, Handler: mux}

	log.Printf("Bridge server listening on %s", s.addr)

	go func() {
		<-ctx.Done()
		server.Close()
	}()

	err := server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Handler exposes the websocket endpoint for callers that mount it on
// their own mux (tests use this with httptest).
func (s *Server) Handler() http.HandlerFunc {
	return s.handleWebSocket
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.secret != "" && r.Header.Get(secretHeader) != s.secret {
		http.Error(w, "bad bridge secret", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Upgrade error: %v", err)
		return
	}

	session, err := yamux.Server(NewWebSocketRWC(conn), nil)
	if err != nil {
		log.Printf("Yamux server error: %v", err)
		conn.Close()
		return
	}

	for {
		stream, err := session.Accept()
		if err != nil {
			if err != io.EOF {
				log.Printf("Bridge session closed: %v", err)
			}
			return
		}
		go s.serveStream(stream)
	}
}

func (s *Server) serveStream(stream io.ReadWriteCloser) {
	defer stream.Close()

	var req request
	if err := json.NewDecoder(stream).Decode(&req); err != nil {
		log.Printf("Bridge request decode: %v", err)
		return
	}

	resp := response{ID: req.ID}
	switch req.Op {
	case "load":
		if err := s.runtime.Load(req.Name, req.Code); err != nil {
			resp.Err = err.Error()
		}
	case "call":
		result, err := s.runtime.Call(context.Background(), req.Name, req.Args)
		if err != nil {
			resp.Err = err.Error()
		} else {
			resp.Result = result
		}
	default:
		resp.Err = fmt.Sprintf("unknown op %q", req.Op)
	}

	if err := json.NewEncoder(stream).Encode(&resp); err != nil {
		log.Printf("Bridge response encode: %v", err)
	}
}
