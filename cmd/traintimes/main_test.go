package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/patpending/traintimes/cache"
	"github.com/patpending/traintimes/config"
	"github.com/patpending/traintimes/dashboard"
	"github.com/patpending/traintimes/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func darwinStub(t *testing.T, status int) *httptest.Server {
	t.Helper()
	sample, err := os.ReadFile(filepath.Join("..", "..", "service", "testdata", "departures.xml"))
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		_, _ = w.Write(sample)
	}))
	t.Cleanup(server.Close)
	return server
}

func runApp(t *testing.T, endpoint string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("DARWIN_API_TOKEN", "test-token")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("darwin:\n  endpoint: "+endpoint+"\n"), 0o600))

	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ExitErrHandler = func(*cli.Context, error) {}

	err := app.Run(append([]string{"traintimes", "--config", path}, args...))
	return out.String(), err
}

func TestBoardCommand(t *testing.T) {
	server := darwinStub(t, http.StatusOK)

	out, err := runApp(t, server.URL, "board", "--station", "pad", "--num", "5")
	require.NoError(t, err)

	var board models.DepartureBoard
	require.NoError(t, json.Unmarshal([]byte(out), &board))
	assert.Equal(t, "PAD", board.CRS)
	assert.Len(t, board.Services, 3)
}

func TestBoardCommandRejectsRowCount(t *testing.T) {
	server := darwinStub(t, http.StatusOK)

	_, err := runApp(t, server.URL, "board", "--station", "PAD", "--num", "11")
	var exitErr cli.ExitCoder
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.ExitCode())
}

func TestValidateCommand(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantCode int
		wantOut  string
	}{
		{name: "valid", status: http.StatusOK, wantOut: "Darwin credentials are valid (PAD)\n"},
		{name: "invalid token", status: http.StatusUnauthorized, wantCode: 2},
		{name: "upstream error", status: http.StatusServiceUnavailable, wantCode: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := darwinStub(t, tt.status)

			out, err := runApp(t, server.URL, "validate")
			if tt.wantCode == 0 {
				require.NoError(t, err)
				assert.Equal(t, tt.wantOut, out)
				return
			}
			var exitErr cli.ExitCoder
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, tt.wantCode, exitErr.ExitCode())
		})
	}
}

func TestValidateCommandNeedsToken(t *testing.T) {
	server := darwinStub(t, http.StatusOK)
	t.Setenv("DARWIN_API_TOKEN", "")

	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ExitErrHandler = func(*cli.Context, error) {}

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("darwin:\n  endpoint: "+server.URL+"\n"), 0o600))

	err := app.Run([]string{"traintimes", "--config", path, "validate"})
	assert.ErrorContains(t, err, "Token")
}

func serveConfig(t *testing.T, token string) *config.Config {
	t.Helper()
	for _, key := range []string{"NUM_DEPARTURES", "DESTINATION_CRS", "PORT", "ADMIN_TOKEN", "REDIS_ADDR", "REDIS_PASSWORD"} {
		t.Setenv(key, "")
	}
	t.Setenv("DARWIN_API_TOKEN", token)
	t.Setenv("STATION_CRS", "PAD")

	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

func TestServeWithoutTokenServesDemo(t *testing.T) {
	cfg := serveConfig(t, "")

	server, poller, err := newDashboard(cfg, cache.NewMemoryStore(), cache.NopPublisher{}, nil)
	require.NoError(t, err)
	assert.Nil(t, poller)

	resp, err := server.App.Test(httptest.NewRequest(http.MethodGet, "/api/departures", nil), -1)
	require.NoError(t, err)

	var body dashboard.DeparturesResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.DemoMode)
	assert.Equal(t, "no live data source configured", body.APIError)
	assert.Equal(t, "PAD", body.StationCRS)
}

func TestServeWithTokenPolls(t *testing.T) {
	cfg := serveConfig(t, "test-token")

	server, poller, err := newDashboard(cfg, cache.NewMemoryStore(), cache.NopPublisher{}, nil)
	require.NoError(t, err)
	require.NotNil(t, poller)
	assert.Equal(t, poller, server.Poller)
	assert.NotNil(t, server.Fetcher)

	board, ok := poller.Board("pad")
	require.True(t, ok)
	assert.Equal(t, config.DefaultNumDepartures, board.NumDepartures)
}
