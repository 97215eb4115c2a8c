package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testConfigTOML = `
listen_addr = "0.0.0.0:1234"
metrics_addr = "127.0.0.1:9090"

[session]
mtu = 1000
frame_size = 1500
reassembly_max_age = "10s"
reassembly_capacity = 64
sequencer_max_wait = "2s"
sequencer_capacity = 64
queue_depth = 128

[action_queue]
max_action_confirmation_wait = "60s"
anti_batching_delay = "50ms"
queue_depth = 512
`

func writeTestConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(testConfigTOML), 0o644))
	return path
}

func TestLoadParsesConfig(t *testing.T) {
	cfg, err := Load(writeTestConfig(t))
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:1234", cfg.ListenAddr)

	sessionCfg, err := cfg.Session.ToSessionConfig()
	require.NoError(t, err)
	require.Equal(t, 1000, sessionCfg.MTU)
	require.Equal(t, 10*time.Second, sessionCfg.ReassemblyMaxAge)

	queueCfg, err := cfg.ActionQueue.ToActionQueueConfig()
	require.NoError(t, err)
	require.Equal(t, 60*time.Second, queueCfg.MaxActionConfirmationWait)
	require.Equal(t, 50*time.Millisecond, queueCfg.AntiBatchingDelay)
}

func TestActionQueueConfigDefaultsWhenEmpty(t *testing.T) {
	var c ActionQueueConfig
	queueCfg, err := c.ToActionQueueConfig()
	require.NoError(t, err)
	require.Equal(t, 150*time.Second, queueCfg.MaxActionConfirmationWait)
	require.Equal(t, 100*time.Millisecond, queueCfg.AntiBatchingDelay)
	require.Equal(t, 2048, queueCfg.QueueDepth)
}
