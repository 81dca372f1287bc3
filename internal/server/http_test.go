package server

import (
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestHTTPService_ServesPath(t *testing.T) {
	const addr = "127.0.0.1:0"
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "rolls_total 3\n")
	})
	svc := NewHTTPService(addr, "/metrics", handler, zaptest.NewLogger(t))

	done := make(chan error, 1)
	go func() { done <- svc.Start() }()
	require.Eventually(t, func() bool { return svc.Addr() != addr }, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Get("http://" + svc.Addr() + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, "rolls_total 3\n", string(body))

	resp, err = http.Get("http://" + svc.Addr() + "/other")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	svc.Stop()
	select {
	case err := <-done:
		assert.NoError(t, err, "a clean shutdown is not an error")
	case <-time.After(5 * time.Second):
		t.Fatal("HTTP service did not stop")
	}
}
