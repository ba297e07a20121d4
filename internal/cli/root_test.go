package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"options-analyzer/internal/config"
)

func TestNewRootCmdUsesConfigDirForStore(t *testing.T) {
	dir := t.TempDir()

	cmd := NewRootCmd(config.Default(), zerolog.Nop(), dir)
	require.NotNil(t, cmd)

	// The position store must live under the resolved config dir, not
	// the default one.
	_, err := os.Stat(filepath.Join(dir, "analyzer.db"))
	assert.NoError(t, err, "store should be created under the --config directory")
}

func TestNewRootCmdRegistersCommands(t *testing.T) {
	cmd := NewRootCmd(config.Default(), zerolog.Nop(), t.TempDir())

	want := []string{"analyze", "strategy", "positions", "monitor", "backtest", "config", "version"}
	for _, name := range want {
		found := false
		for _, sub := range cmd.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		assert.True(t, found, "missing command %s", name)
	}
}
