package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"

	"github.com/nspcc-dev/migration-contract/reconcile"
)

var testContract = util.Uint160{0xc0, 0x17, 0x4a}

// parseConfig runs the application with the given arguments and returns the
// configuration the command would use.
func parseConfig(t *testing.T, args ...string) (*config, error) {
	var (
		cfg *config
		err error
	)

	app := newApp()
	for i := range app.Commands {
		app.Commands[i].Action = func(c *cli.Context) error {
			cfg, err = loadConfig(c)
			return nil
		}
	}
	require.NoError(t, app.Run(append([]string{app.Name}, args...)))

	return cfg, err
}

func writeConfig(t *testing.T, data string) string {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Run("flags only", func(t *testing.T) {
		cfg, err := parseConfig(t, "--rpc", "http://localhost:30333", "--contract", testContract.StringLE(), "past")
		require.NoError(t, err)

		require.Equal(t, "http://localhost:30333", cfg.RPC.Endpoint)
		require.Equal(t, defaultRPCTimeout, cfg.RPC.DialTimeout)
		require.Equal(t, defaultRPCTimeout, cfg.RPC.RequestTimeout)
		require.Equal(t, defaultDecimals, *cfg.TargetDecimals)
		require.Equal(t, defaultSymbol, cfg.TargetSymbol)
		require.Equal(t, targetCheckNone, cfg.TargetCheck)
		require.Equal(t, "info", cfg.LogLevel)
		require.Empty(t, cfg.Journal)
		require.False(t, cfg.Metrics.Enabled)

		h, err := cfg.contract()
		require.NoError(t, err)
		require.Equal(t, testContract, h)
	})

	t.Run("file", func(t *testing.T) {
		path := writeConfig(t, `
rpc:
  endpoint: ws://localhost:30333/ws
  dial_timeout: 3s
  request_timeout: 1m
contract: `+address.Uint160ToString(testContract)+`
journal: /tmp/journal.db
target_decimals: 0
target_symbol: LUX
target_check: base58
target_length: 32
metrics:
  enabled: true
log_level: debug
`)
		cfg, err := parseConfig(t, "--config", path, "listen")
		require.NoError(t, err)

		require.Equal(t, "ws://localhost:30333/ws", cfg.RPC.Endpoint)
		require.Equal(t, 3*time.Second, cfg.RPC.DialTimeout)
		require.Equal(t, time.Minute, cfg.RPC.RequestTimeout)
		require.Equal(t, "/tmp/journal.db", cfg.Journal)
		require.Zero(t, *cfg.TargetDecimals)
		require.Equal(t, "LUX", cfg.TargetSymbol)
		require.True(t, cfg.Metrics.Enabled)
		require.Equal(t, defaultMetricsAddr, cfg.Metrics.Address)
		require.Equal(t, "debug", cfg.LogLevel)

		h, err := cfg.contract()
		require.NoError(t, err)
		require.Equal(t, testContract, h)

		v, err := cfg.validator()
		require.NoError(t, err)
		require.Equal(t, reconcile.Base58Target{Length: 32}, v)
	})

	t.Run("flags override file", func(t *testing.T) {
		path := writeConfig(t, `
rpc:
  endpoint: http://file:30333
contract: `+testContract.StringLE()+`
target_symbol: LUX
target_check: base58
`)
		cfg, err := parseConfig(t, "--config", path,
			"--rpc", "ws://flag:30333/ws",
			"--contract", "0x"+testContract.StringLE(),
			"--decimals", "4",
			"--target-check", "none",
			"--journal", "j.db",
			"listen", "--metrics", "127.0.0.1:2112")
		require.NoError(t, err)

		require.Equal(t, "ws://flag:30333/ws", cfg.RPC.Endpoint)
		require.Equal(t, 4, *cfg.TargetDecimals)
		require.Equal(t, "LUX", cfg.TargetSymbol)
		require.Equal(t, targetCheckNone, cfg.TargetCheck)
		require.Equal(t, "j.db", cfg.Journal)
		require.True(t, cfg.Metrics.Enabled)
		require.Equal(t, "127.0.0.1:2112", cfg.Metrics.Address)

		h, err := cfg.contract()
		require.NoError(t, err)
		require.Equal(t, testContract, h)

		v, err := cfg.validator()
		require.NoError(t, err)
		require.Equal(t, reconcile.PassThrough{}, v)
	})

	t.Run("invalid", func(t *testing.T) {
		for _, tc := range []struct {
			name string
			args []string
		}{
			{"no endpoint", []string{"--contract", testContract.StringLE()}},
			{"no contract", []string{"--rpc", "http://localhost:30333"}},
			{"bad contract", []string{"--rpc", "http://localhost:30333", "--contract", "NotAnAddress"}},
			{"negative decimals", []string{"--rpc", "http://localhost:30333", "--contract", testContract.StringLE(), "--decimals", "-1"}},
			{"unknown check", []string{"--rpc", "http://localhost:30333", "--contract", testContract.StringLE(), "--target-check", "bech32"}},
		} {
			t.Run(tc.name, func(t *testing.T) {
				_, err := parseConfig(t, append(tc.args, "past")...)
				require.Error(t, err)
			})
		}

		_, err := parseConfig(t, "--config", filepath.Join(t.TempDir(), "missing.yml"), "past")
		require.Error(t, err)

		_, err = parseConfig(t, "--config", writeConfig(t, "rpc: [1, 2"), "past")
		require.Error(t, err)
	})
}

func TestParseHeight(t *testing.T) {
	for _, s := range []string{"", "latest"} {
		h, err := parseHeight(s, 42)
		require.NoError(t, err)
		require.EqualValues(t, 42, h)
	}

	h, err := parseHeight("17", 42)
	require.NoError(t, err)
	require.EqualValues(t, 17, h)

	for _, s := range []string{"-1", "head", "4294967296"} {
		_, err := parseHeight(s, 42)
		require.Error(t, err, s)
	}
}

func TestNewLogger(t *testing.T) {
	log, err := newLogger("debug")
	require.NoError(t, err)
	require.NotNil(t, log)

	_, err = newLogger("verbose")
	require.Error(t, err)
}
