package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 3, cfg.NumWorkers())
}

func TestParse(t *testing.T) {
	data := []byte(`
master:
  client_addr: ":9000"
  catalog_path: /tmp/hotels.json
workers:
  - addr: "10.0.0.1:6001"
  - addr: "10.0.0.2:6001"
reducer:
  addr: ":7100"
  master_addr: "10.0.0.9:9001"
  round_timeout: 3s
logging:
  level: debug
`)
	cfg, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, ":9001", cfg.Master.ReducerAddr)
	assert.Equal(t, "/tmp/hotels.json", cfg.Master.CatalogPath)
	assert.Equal(t, []string{"10.0.0.1:6001", "10.0.0.2:6001"}, cfg.WorkerAddrs())
	assert.Equal(t, 3*time.Second, cfg.Reducer.RoundTimeout)
	assert.Equal(t, DefaultMaxFrameBytes, cfg.Transport.MaxFrameBytes)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestParseRejects(t *testing.T) {
	tests := map[string]string{
		"duplicate worker": "workers:\n  - addr: \"h:1\"\n  - addr: \"h:1\"\n",
		"bad worker addr":  "workers:\n  - addr: \"nohost\"\n",
		"negative timeout": "reducer:\n  addr: \":7000\"\n  master_addr: \"h:5001\"\n  round_timeout: -1s\n",
		"not yaml":         "master: [",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(data))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "booking.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers:\n  - addr: \"localhost:6101\"\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.NumWorkers())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
