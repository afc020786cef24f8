package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("full config", func(t *testing.T) {
		t.Parallel()
		path := writeConfig(t, "shotline.json", `{
			"device_path": "/dev/rfcomm2",
			"port": {"baud_rate": 115200, "parity": "even"},
			"listen": ":9090",
			"auto_ack": false
		}`)

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "/dev/rfcomm2", cfg.DevicePath)
		assert.Equal(t, 115200, cfg.Port.BaudRate)
		assert.Equal(t, ":9090", cfg.Listen)
		assert.False(t, cfg.AutoAckEnabled())
	})

	t.Run("partial config keeps defaults", func(t *testing.T) {
		t.Parallel()
		path := writeConfig(t, "partial.json", `{"listen": ":7070"}`)

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, Default().DevicePath, cfg.DevicePath)
		assert.Equal(t, ":7070", cfg.Listen)
		assert.True(t, cfg.AutoAckEnabled())
	})

	t.Run("rejects non-json extension", func(t *testing.T) {
		t.Parallel()
		path := writeConfig(t, "config.yaml", `{}`)
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("rejects malformed JSON", func(t *testing.T) {
		t.Parallel()
		path := writeConfig(t, "bad.json", `{not json`)
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("rejects invalid port options", func(t *testing.T) {
		t.Parallel()
		path := writeConfig(t, "badport.json", `{"port": {"data_bits": 3}}`)
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.DevicePath = ""
	assert.Error(t, cfg.Validate())
}
