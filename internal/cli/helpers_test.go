package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns its stdout. Flag
// values are reset afterwards because the command tree is package global.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	cmd := GetRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	t.Cleanup(func() {
		resetFlags(cmd)
		cmd.SetIn(os.Stdin)
		cmd.SetOut(nil)
		cmd.SetErr(nil)
	})

	err := cmd.Execute()
	return out.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// writeConfig writes a quiet config file and returns its path
func writeConfig(t *testing.T, body string) string {
	t.Helper()
	if body == "" {
		body = `{"logging": {"console": false}}`
	}
	path := filepath.Join(t.TempDir(), "profiler.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}
