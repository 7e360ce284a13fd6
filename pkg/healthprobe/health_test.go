package healthprobe

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doProbe(t *testing.T, handler http.HandlerFunc) (int, HealthResponse) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))

	return rec.Code, resp
}

func TestHealth_NoBeatYet(t *testing.T) {
	h := New(100 * time.Millisecond)

	code, resp := doProbe(t, h.Health())
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", resp.Status)
	assert.Empty(t, resp.LastBeat)
}

func TestHealth_FreshBeat(t *testing.T) {
	h := New(time.Minute)
	h.Beat()

	code, resp := doProbe(t, h.Health())
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", resp.Status)
	assert.NotEmpty(t, resp.LastBeat)
}

func TestHealth_StaleBeat(t *testing.T) {
	h := New(10 * time.Millisecond)
	h.Beat()

	time.Sleep(50 * time.Millisecond)

	code, resp := doProbe(t, h.Health())
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "degraded", resp.Status)
}

func TestHealth_StalenessDisabled(t *testing.T) {
	h := New(0)
	h.Beat()

	time.Sleep(20 * time.Millisecond)

	code, _ := doProbe(t, h.Health())
	assert.Equal(t, http.StatusOK, code)
}

func TestReady(t *testing.T) {
	h := New(time.Minute)

	code, resp := doProbe(t, h.Ready())
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "not_ready", resp.Status)

	h.SetReady(true)

	code, resp = doProbe(t, h.Ready())
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ready", resp.Status)

	h.SetReady(false)

	code, _ = doProbe(t, h.Ready())
	assert.Equal(t, http.StatusServiceUnavailable, code)
}
