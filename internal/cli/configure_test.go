package cli

import (
	"path/filepath"
	"testing"

	"github.com/harun/profiler/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureCommand(t *testing.T) {
	t.Run("help text", func(t *testing.T) {
		out, err := execute(t, "", "configure", "--help")
		require.NoError(t, err)
		assert.Contains(t, out, "interactive configuration wizard")
	})

	t.Run("saves answers", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "profiler.json")

		out, err := execute(t, "http://localhost:9009\nlocal\n\n3\n\n", "configure", "--config", path)
		require.NoError(t, err)
		assert.Contains(t, out, "Configuration saved to: "+path)

		cfg, err := config.Load(path)
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:9009", cfg.Runtime.URL)
		assert.Equal(t, "local", cfg.Runtime.InstanceID)
		assert.Equal(t, 3, cfg.Queue.Concurrency)
	})
}
