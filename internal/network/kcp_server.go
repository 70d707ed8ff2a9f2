package network

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/xtaci/kcp-go/v5"
)

const (
	kcpReadTimeout  = 60 * time.Second
	kcpWriteTimeout = 10 * time.Second
)

// kcpTransport - кадры с префиксом длины (uint32, big endian) поверх потокового KCP
type kcpTransport struct {
	conn *kcp.UDPSession
	r    *bufio.Reader
	wmu  sync.Mutex
}

func newKCPTransport(conn *kcp.UDPSession) *kcpTransport {
	// Настройки для игрового трафика
	conn.SetStreamMode(true)
	conn.SetWriteDelay(false)
	conn.SetNoDelay(1, 20, 2, 1)
	conn.SetWindowSize(512, 512)
	conn.SetMtu(1400)
	return &kcpTransport{conn: conn, r: bufio.NewReader(conn)}
}

func (t *kcpTransport) ReadFrame() ([]byte, error) {
	t.conn.SetReadDeadline(time.Now().Add(kcpReadTimeout))
	return readFrame(t.r)
}

func (t *kcpTransport) WriteFrame(frame []byte) error {
	t.wmu.Lock()
	defer t.wmu.Unlock()
	t.conn.SetWriteDeadline(time.Now().Add(kcpWriteTimeout))
	return writeFrame(t.conn, frame)
}

// Keepalive у KCP не нужен: клиент шлет ping, таймаут чтения закрывает молчащих
func (t *kcpTransport) Keepalive() error { return nil }

func (t *kcpTransport) Close() error { return t.conn.Close() }

func (t *kcpTransport) RemoteAddr() string { return t.conn.RemoteAddr().String() }

func (t *kcpTransport) Name() string { return "kcp" }

// readFrame читает кадр с префиксом длины
func readFrame(r io.Reader) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(header[:])
	if n == 0 || n > maxFrameSize {
		return nil, fmt.Errorf("%w: длина %d", ErrBadFrame, n)
	}
	frame := make([]byte, n)
	if _, err := io.ReadFull(r, frame); err != nil {
		return nil, err
	}
	return frame, nil
}

// writeFrame пишет кадр с префиксом длины одним вызовом Write
func writeFrame(w io.Writer, frame []byte) error {
	buf := make([]byte, 4+len(frame))
	binary.BigEndian.PutUint32(buf, uint32(len(frame)))
	copy(buf[4:], frame)
	_, err := w.Write(buf)
	return err
}

// KCPServer принимает KCP сессии и передает их шлюзу
type KCPServer struct {
	gw       *Gateway
	listener *kcp.Listener
	wg       sync.WaitGroup
	closed   chan struct{}
}

// NewKCPServer создает сервер
func NewKCPServer(gw *Gateway) *KCPServer {
	return &KCPServer{gw: gw, closed: make(chan struct{})}
}

// Start слушает addr и принимает соединения в отдельной горутине
func (s *KCPServer) Start(addr string) error {
	listener, err := kcp.ListenWithOptions(addr, nil, 0, 0)
	if err != nil {
		return fmt.Errorf("KCP listen %s: %w", addr, err)
	}
	s.listener = listener

	s.wg.Add(1)
	go s.acceptLoop()

	s.gw.log.Info("🚀 KCP сервер запущен на %s", listener.Addr())
	return nil
}

// Addr возвращает адрес после Start
func (s *KCPServer) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *KCPServer) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.AcceptKCP()
		if err != nil {
			select {
			case <-s.closed:
				return
			default:
			}
			if errors.Is(err, io.ErrClosedPipe) {
				return
			}
			s.gw.log.Error("KCP accept: %v", err)
			continue
		}
		s.gw.accept(newKCPTransport(conn))
	}
}

// Stop закрывает слушатель. Открытые соединения закрывает Gateway.Close.
func (s *KCPServer) Stop() error {
	if s.listener == nil {
		return nil
	}
	close(s.closed)
	err := s.listener.Close()
	s.wg.Wait()
	s.gw.log.Info("🛑 KCP сервер остановлен")
	return err
}
