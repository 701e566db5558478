package health

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfgpkg "github.com/taoyao-code/signal-lamp/internal/config"
	"github.com/taoyao-code/signal-lamp/internal/lampclient"
	"github.com/taoyao-code/signal-lamp/internal/protocol/qlight"
	"github.com/taoyao-code/signal-lamp/internal/simulator"
)

type errReader struct{ err error }

func (r errReader) ReadLamp(context.Context) (*qlight.Response, error) { return nil, r.err }

func TestLampChecker(t *testing.T) {
	s := simulator.New(cfgpkg.SimulatorConfig{Addr: "127.0.0.1:0"})
	require.NoError(t, s.Start())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})
	client := lampclient.New("127.0.0.1", s.Port(), lampclient.WithTimeout(time.Second))
	checker := NewLampChecker(client, client.Address())
	assert.Equal(t, "lamp", checker.Name())

	cases := []struct {
		mode simulator.Mode
		want Status
	}{
		{simulator.ModeNormal, StatusHealthy},
		{simulator.ModeGarbage, StatusDegraded},
		{simulator.ModeNack, StatusDegraded},
		{simulator.ModeSilent, StatusDegraded},
		{simulator.ModeShort, StatusDegraded},
	}
	for _, tc := range cases {
		t.Run(string(tc.mode), func(t *testing.T) {
			s.SetMode(tc.mode)
			res := checker.Check(context.Background())
			assert.Equal(t, tc.want, res.Status, res.Message)
			assert.Equal(t, client.Address(), res.Details["addr"])
		})
	}
}

func TestLampChecker_TransportErrorIsUnhealthy(t *testing.T) {
	checker := NewLampChecker(errReader{fmt.Errorf("%w: dial: refused", lampclient.ErrConnection)}, "10.0.0.5:20000")
	res := checker.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, res.Status)
	assert.Contains(t, res.Message, "connection error")
}

func TestHTTPRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	newEngine := func(status Status) *gin.Engine {
		r := gin.New()
		RegisterHTTPRoutes(r, NewAggregator(&mockChecker{"lamp", status}))
		return r
	}
	get := func(r *gin.Engine, path string) int {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		return rr.Code
	}

	healthy := newEngine(StatusHealthy)
	assert.Equal(t, http.StatusOK, get(healthy, "/health"))
	assert.Equal(t, http.StatusOK, get(healthy, "/health/ready"))
	assert.Equal(t, http.StatusOK, get(healthy, "/health/live"))

	degraded := newEngine(StatusDegraded)
	assert.Equal(t, http.StatusOK, get(degraded, "/health"))
	assert.Equal(t, http.StatusOK, get(degraded, "/health/ready"))

	unhealthy := newEngine(StatusUnhealthy)
	assert.Equal(t, http.StatusServiceUnavailable, get(unhealthy, "/health"))
	assert.Equal(t, http.StatusServiceUnavailable, get(unhealthy, "/health/ready"))
	assert.Equal(t, http.StatusOK, get(unhealthy, "/health/live"))
}
