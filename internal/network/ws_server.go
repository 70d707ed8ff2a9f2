package network

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsReadLimit    = 4096
	wsReadTimeout  = 60 * time.Second
	wsWriteTimeout = 10 * time.Second
)

// Конфигурация WebSocket
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// wsTransport - кадры поверх WebSocket. Несжатые кадры идут текстом (чистый JSON),
// сжатые - бинарными сообщениями с байтом кодирования.
type wsTransport struct {
	conn *websocket.Conn
}

func newWSTransport(conn *websocket.Conn) *wsTransport {
	conn.SetReadLimit(wsReadLimit)
	conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})
	return &wsTransport{conn: conn}
}

func (t *wsTransport) ReadFrame() ([]byte, error) {
	kind, data, err := t.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	t.conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	if kind == websocket.TextMessage {
		return append([]byte{frameRaw}, data...), nil
	}
	return data, nil
}

func (t *wsTransport) WriteFrame(frame []byte) error {
	t.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if len(frame) > 0 && frame[0] == frameRaw {
		return t.conn.WriteMessage(websocket.TextMessage, frame[1:])
	}
	return t.conn.WriteMessage(websocket.BinaryMessage, frame)
}

func (t *wsTransport) Keepalive() error {
	t.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return t.conn.WriteMessage(websocket.PingMessage, nil)
}

func (t *wsTransport) Close() error {
	t.conn.SetWriteDeadline(time.Now().Add(time.Second))
	t.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return t.conn.Close()
}

func (t *wsTransport) RemoteAddr() string { return t.conn.RemoteAddr().String() }

func (t *wsTransport) Name() string { return "ws" }

// WSServer принимает WebSocket соединения и передает их шлюзу
type WSServer struct {
	gw  *Gateway
	srv *http.Server
	ln  net.Listener
}

// NewWSServer создает сервер. Соединения принимаются на /ws.
func NewWSServer(gw *Gateway) *WSServer {
	s := &WSServer{gw: gw}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.HandleConnection)
	s.srv = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	return s
}

// HandleConnection обрабатывает новое WebSocket подключение
func (s *WSServer) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.gw.log.Warn("Ошибка upgrade WebSocket: %v", err)
		return
	}
	s.gw.accept(newWSTransport(conn))
}

// Start слушает addr в отдельной горутине
func (s *WSServer) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.ln = ln
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.gw.log.Error("WebSocket сервер: %v", err)
		}
	}()
	s.gw.log.Info("🌐 WebSocket сервер запущен на %s", ln.Addr())
	return nil
}

// Addr возвращает адрес после Start
func (s *WSServer) Addr() string {
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Stop останавливает прием соединений. Открытые соединения закрывает Gateway.Close.
func (s *WSServer) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
