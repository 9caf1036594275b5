package app

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"erplens/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Logging.Level = "error"
	return &cfg
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestNewWithConfig(t *testing.T) {
	cfg := testConfig(t)

	app, err := NewWithConfig(cfg)
	require.NoError(t, err)

	assert.NotNil(t, app.Service)
	assert.NotNil(t, app.Metrics)
	assert.NotNil(t, app.Logger)
	require.NotNil(t, app.Server)
	assert.Equal(t, fmt.Sprintf(":%d", cfg.Server.Port), app.Server.Addr)
	assert.Equal(t, cfg.Server.ReadTimeout, app.Server.ReadTimeout)
	assert.Equal(t, cfg.Server.WriteTimeout, app.Server.WriteTimeout)
	assert.Equal(t, cfg.Server.IdleTimeout, app.Server.IdleTimeout)
}

func TestStartAndStop(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.Port = freePort(t)

	app, err := NewWithConfig(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, app.Start(ctx, cancel))

	url := fmt.Sprintf("http://127.0.0.1:%d/api/health", cfg.Server.Port)
	var resp *http.Response
	for i := 0; i < 20; i++ {
		resp, err = http.Get(url)
		if err == nil {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, app.Stop(context.Background()))

	_, err = http.Get(url)
	assert.Error(t, err)
}

func TestStopWithoutStart(t *testing.T) {
	app, err := NewWithConfig(testConfig(t))
	require.NoError(t, err)

	assert.NoError(t, app.Stop(context.Background()))
}
