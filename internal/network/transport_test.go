package network

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xtaci/kcp-go/v5"
)

func TestWebSocketJoin(t *testing.T) {
	f := newFixture(t, true)
	ws := NewWSServer(f.gw)
	srv := httptest.NewServer(http.HandlerFunc(ws.HandleConnection))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	// Клиент шлет чистый JSON текстом
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"hello","data":{"name":"ws"}}`)))

	conn.SetReadDeadline(time.Now().Add(waitFor))
	var welcome WelcomeResponse
	for {
		kind, data, err := conn.ReadMessage()
		require.NoError(t, err)
		require.Equal(t, websocket.TextMessage, kind)
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		if msg.Type == MsgTypeWelcome {
			require.NoError(t, json.Unmarshal(msg.Data, &welcome))
			break
		}
	}
	assert.NotZero(t, welcome.PlayerID)
	assert.Eventually(t, func() bool { return f.session.Stats().Players == 1 }, waitFor, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool {
		return f.session.Stats().Players == 0 && f.gw.ConnectedClients() == 0
	}, waitFor, 10*time.Millisecond)
}

func TestKCPJoin(t *testing.T) {
	f := newFixture(t, true)
	srv := NewKCPServer(f.gw)
	require.NoError(t, srv.Start("127.0.0.1:0"))
	defer srv.Stop()

	conn, err := kcp.DialWithOptions(srv.Addr(), nil, 0, 0)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetStreamMode(true)
	conn.SetNoDelay(1, 20, 2, 1)

	hello, err := f.codec.EncodeData(MsgTypeHello, HelloRequest{Name: "kcp"})
	require.NoError(t, err)
	require.NoError(t, writeFrame(conn, hello))

	conn.SetReadDeadline(time.Now().Add(waitFor))
	r := bufio.NewReader(conn)
	for {
		frame, err := readFrame(r)
		require.NoError(t, err)
		msg, err := f.codec.Decode(frame)
		require.NoError(t, err)
		if msg.Type == MsgTypeWelcome {
			var welcome WelcomeResponse
			require.NoError(t, decodeData(msg, &welcome))
			assert.Equal(t, "square", welcome.Map)
			return
		}
	}
}
