package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrioritiesCommand(t *testing.T) {
	t.Run("all kinds", func(t *testing.T) {
		out, err := execute(t, "", "priorities")
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(out), "\n")
		require.Len(t, lines, 10)
		assert.Contains(t, lines[0], "KIND")
		assert.Equal(t, []string{"column-cardinality", "10", "110", "150/50"}, strings.Fields(lines[1]))
		assert.True(t, strings.HasPrefix(lines[9], "numeric-histogram"))
	})

	t.Run("selected kinds", func(t *testing.T) {
		out, err := execute(t, "", "priorities", "topk")
		require.NoError(t, err)
		assert.Contains(t, out, "topk")
		assert.NotContains(t, out, "null-count")
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := execute(t, "", "priorities", "sparkline")
		assert.ErrorContains(t, err, "unknown query kind")
	})
}
