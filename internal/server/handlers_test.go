package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func TestHealthHandler(t *testing.T) {
	req := require.New(t)
	recorder := httptest.NewRecorder()

	HealthHandler(recorder, httptest.NewRequest(http.MethodGet, "/health", nil))

	req.Equal(http.StatusOK, recorder.Code)
	req.Equal("application/json", recorder.Header().Get("Content-Type"))

	var body map[string]string
	req.NoError(json.Unmarshal(recorder.Body.Bytes(), &body))
	req.Equal("ok", body["status"])
	req.Equal("Chat relay server is running", body["message"])
}

func TestWebSocketHandler_RejectsNonGET(t *testing.T) {
	recorder := httptest.NewRecorder()

	WebSocketHandler(recorder, httptest.NewRequest(http.MethodPost, "/ws", nil))

	require.Equal(t, http.StatusMethodNotAllowed, recorder.Code)
}

func TestWebSocketHandler_BlocksDisallowedOrigin(t *testing.T) {
	t.Cleanup(func() { SetConfig(nil) })
	SetConfig(&Config{AllowedOrigins: []string{"http://allowed.example"}})

	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.Header.Set("Origin", "http://evil.example")
	r.Header.Set("Connection", "Upgrade")
	r.Header.Set("Upgrade", "websocket")
	r.Header.Set("Sec-WebSocket-Version", "13")
	r.Header.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")
	recorder := httptest.NewRecorder()

	WebSocketHandler(recorder, r)

	require.Equal(t, http.StatusForbidden, recorder.Code)
}

func TestSetupRoutes_RegistersEndpoints(t *testing.T) {
	req := require.New(t)
	mux := SetupRoutes()

	for _, path := range []string{"/", "/health"} {
		recorder := httptest.NewRecorder()
		mux.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, path, nil))
		req.Equal(http.StatusOK, recorder.Code, "path %s", path)
	}
}

// TestWebSocket_RegisterRoundTrip exercises the full transport path: upgrade,
// hub registration, read pump dispatch, and write pump delivery.
func TestWebSocket_RegisterRoundTrip(t *testing.T) {
	req := require.New(t)
	t.Cleanup(func() { SetConfig(nil) })
	SetConfig(&Config{AllowedOrigins: []string{"*"}})

	StartHub()
	srv := httptest.NewServer(SetupRoutes())
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	header := http.Header{"Origin": {srv.URL}}
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	req.NoError(err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })

	data, err := json.Marshal(RegisterRequest{Name: "Wire", Age: 33})
	req.NoError(err)
	req.NoError(conn.WriteJSON(ClientEnvelope{Event: EventRegister, Data: data}))

	req.NoError(conn.SetReadDeadline(time.Now().Add(2 * time.Second)))

	readFrame := func() ClientEnvelope {
		var f ClientEnvelope
		req.NoError(conn.ReadJSON(&f))
		return f
	}

	result := readFrame()
	req.Equal(EventRegisterResult, result.Event)
	var ack RegisterResult
	req.NoError(json.Unmarshal(result.Data, &ack))
	req.True(ack.Success)

	list := readFrame()
	req.Equal(EventClientList, list.Event)
	var clients []ClientInfo
	req.NoError(json.Unmarshal(list.Data, &clients))
	req.Len(clients, 1)
	req.Equal("Wire", clients[0].Name)

	groups := readFrame()
	req.Equal(EventGroupList, groups.Event)
}
