package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/signal-lamp/internal/config"
	"github.com/taoyao-code/signal-lamp/internal/lampclient"
	"github.com/taoyao-code/signal-lamp/internal/protocol/qlight"
	"github.com/taoyao-code/signal-lamp/internal/simulator"
)

var testAPIConfig = cfgpkg.APIConfig{RatePerSec: 1000, Burst: 1000}

func startSim(t *testing.T, mode simulator.Mode) *simulator.Server {
	t.Helper()
	s := simulator.New(cfgpkg.SimulatorConfig{Addr: "127.0.0.1:0", Mode: string(mode)})
	require.NoError(t, s.Start())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})
	return s
}

func newRouter(t *testing.T, lamp Lamp, cfg cfgpkg.APIConfig) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterLampRoutes(r, NewLampHandler(lamp, 100*time.Millisecond, zap.NewNop()), cfg, zap.NewNop())
	return r
}

func simRouter(t *testing.T, mode simulator.Mode) (*gin.Engine, *simulator.Server) {
	t.Helper()
	s := startSim(t, mode)
	c := lampclient.New("127.0.0.1", s.Port(), lampclient.WithTimeout(time.Second))
	return newRouter(t, c, testAPIConfig), s
}

func serve(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestGetLamp(t *testing.T) {
	r, s := simRouter(t, simulator.ModeNormal)
	s.SetLamps([5]qlight.LampState{qlight.LampBlink, qlight.LampOn, qlight.LampOff, qlight.LampOff, qlight.LampOff})

	rr := serve(r, http.MethodGet, "/api/v1/lamp", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	var snap qlight.Snapshot
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snap))
	assert.True(t, snap.Valid)
	assert.Equal(t, qlight.LampBlink, snap.Red)
	assert.Equal(t, qlight.LampOn, snap.Amber)
}

func TestGetLamp_InvalidReplyIsStillReturned(t *testing.T) {
	r, _ := simRouter(t, simulator.ModeGarbage)

	rr := serve(r, http.MethodGet, "/api/v1/lamp", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"red":"ERR (0x03)"`)
	var snap qlight.Snapshot
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snap))
	assert.False(t, snap.Valid)
	assert.Equal(t, qlight.LampState(0x03), snap.Red)
	assert.NotEmpty(t, snap.Reasons)
}

func TestPutRed(t *testing.T) {
	r, s := simRouter(t, simulator.ModeNormal)

	rr := serve(r, http.MethodPut, "/api/v1/lamp/red", `{"state":"blink"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	var res qlight.WriteResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.True(t, res.Verified)
	assert.Equal(t, qlight.LampBlink, res.Snapshot.Red)
	assert.Equal(t, qlight.LampBlink, s.State().Red())

	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodPut, "/api/v1/lamp/red", `{"state":"purple"}`).Code)
	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodPut, "/api/v1/lamp/red", `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodPut, "/api/v1/lamp/red", `not json`).Code)
}

func TestPostRedShortcuts(t *testing.T) {
	r, s := simRouter(t, simulator.ModeNormal)

	for _, st := range qlight.LampStates {
		t.Run(st.Arg(), func(t *testing.T) {
			rr := serve(r, http.MethodPost, "/api/v1/lamp/red/"+st.Arg(), "")
			require.Equal(t, http.StatusOK, rr.Code)
			assert.Contains(t, rr.Body.String(), `"verified":true`)
			assert.Equal(t, st, s.State().Red())
		})
	}
	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodPost, "/api/v1/lamp/red/toggle", "").Code)
}

func TestPostRed_Unverified(t *testing.T) {
	r, _ := simRouter(t, simulator.ModeMismatch)

	rr := serve(r, http.MethodPost, "/api/v1/lamp/red/on", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"verified":false`)
}

type fakeLamp struct {
	err error
}

func (f fakeLamp) ReadLamp(context.Context) (*qlight.Response, error) {
	return nil, f.err
}

func (f fakeLamp) SetLamp(context.Context, qlight.LampState) (bool, *qlight.Response, error) {
	return false, nil, f.err
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("%w: read: i/o timeout", lampclient.ErrTimeout), http.StatusGatewayTimeout, "timeout"},
		{fmt.Errorf("%w: dial: refused", lampclient.ErrConnection), http.StatusBadGateway, "connection_error"},
		{qlight.ErrNoResponse, http.StatusBadGateway, "no_response"},
		{fmt.Errorf("%w: got 5 bytes", qlight.ErrMalformedResponse), http.StatusBadGateway, "malformed_response"},
		{fmt.Errorf("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			r := newRouter(t, fakeLamp{err: tc.err}, testAPIConfig)
			for _, req := range [][2]string{{http.MethodGet, "/api/v1/lamp"}, {http.MethodPost, "/api/v1/lamp/red/on"}} {
				rr := serve(r, req[0], req[1], "")
				assert.Equal(t, tc.status, rr.Code)
				var body map[string]string
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
				assert.Equal(t, tc.code, body["error"])
				assert.NotEmpty(t, body["request_id"])
			}
		})
	}
}

func TestLampRoutes_AuthAndRateLimit(t *testing.T) {
	cfg := cfgpkg.APIConfig{AuthEnabled: true, APIKeys: []string{"sk_test_lamp_key"}, RatePerSec: 1, Burst: 2}
	r := newRouter(t, fakeLamp{err: qlight.ErrNoResponse}, cfg)

	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/api/v1/lamp", "").Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/lamp", nil)
	req.Header.Set("X-API-Key", "sk_test_lamp_key")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadGateway, rr.Code)

	assert.Equal(t, http.StatusTooManyRequests, serve(r, http.MethodGet, "/api/v1/lamp", "").Code)
}

func TestWatch(t *testing.T) {
	r, s := simRouter(t, simulator.ModeNormal)
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/lamp/watch?poll=100ms"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))

	var first qlight.Snapshot
	require.NoError(t, conn.ReadJSON(&first))
	assert.True(t, first.Valid)
	assert.Equal(t, qlight.LampOff, first.Red)

	s.SetLamps([5]qlight.LampState{qlight.LampOn})
	require.Eventually(t, func() bool {
		var snap qlight.Snapshot
		if err := conn.ReadJSON(&snap); err != nil {
			return false
		}
		return snap.Red == qlight.LampOn
	}, 3*time.Second, 10*time.Millisecond)
}

func TestWatch_BadPoll(t *testing.T) {
	r := newRouter(t, fakeLamp{}, testAPIConfig)
	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodGet, "/api/v1/lamp/watch?poll=1ms", "").Code)
	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodGet, "/api/v1/lamp/watch?poll=soon", "").Code)
}
