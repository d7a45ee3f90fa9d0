package studycall_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studycall/coordinator"
	"studycall/media"
	"studycall/pkg/socket"
	"studycall/studycall"
)

func testConfig(t *testing.T) studycall.Config {
	t.Helper()
	config := studycall.DefaultConfig()
	config.Coordinator.UserID = "u1"
	config.Coordinator.Token = "token"
	config.Metrics.Port = 0
	config.Control.Port = 0
	return config
}

func refuse(context.Context, string) (socket.Socket, error) {
	return nil, errors.New("connection refused")
}

func TestConfig(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*studycall.Config)
		valid  bool
	}{
		{"defaults with a user", func(*studycall.Config) {}, true},
		{"missing user", func(c *studycall.Config) { c.Coordinator.UserID = "" }, false},
		{"http signaling url", func(c *studycall.Config) { c.Signal.URL = "http://localhost:5000/ws" }, false},
		{"bad ice server", func(c *studycall.Config) { c.Peer.ICEServers = []string{"example.com"} }, false},
		{"shared port", func(c *studycall.Config) { c.Metrics.Port, c.Control.Port = 9000, 9000 }, false},
		{"control port out of range", func(c *studycall.Config) { c.Control.Port = 70000 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := testConfig(t)
			tt.modify(&config)
			if tt.valid {
				assert.NoError(t, config.Validate())
			} else {
				assert.Error(t, config.Validate())
			}
		})
	}
}

func TestClient(t *testing.T) {
	t.Run("given unreachable server when started then it runs until cancelled", func(t *testing.T) {
		client, err := studycall.New(testConfig(t), studycall.WithSource(media.NewStaticSource()), studycall.WithDialer(refuse))
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- client.Start(ctx) }()

		assert.Nil(t, client.Coordinator().State().ActiveCall)
		err = client.Coordinator().InitiateCall(context.Background(), "voice", "direct", "chat-42")
		assert.Equal(t, coordinator.KindTransport, coordinator.KindOf(err))

		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("client did not stop")
		}
	})

	t.Run("given database path when created then history is stored on disk", func(t *testing.T) {
		config := testConfig(t)
		config.Database.Path = filepath.Join(t.TempDir(), "calls.db")
		client, err := studycall.New(config, studycall.WithSource(media.NewStaticSource()), studycall.WithDialer(refuse))
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		require.NoError(t, client.Start(ctx))

		_, err = os.Stat(config.Database.Path)
		assert.NoError(t, err)
	})
}
