package main

import (
	"flag"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigFlagsOverrideEnv(t *testing.T) {
	req := require.New(t)
	t.Setenv("CHAT_RELAY_URL", "ws://env.example/ws")
	t.Setenv("CHAT_USERNAME", "envname")

	cfg, err := loadConfig([]string{"-addr", "ws://flag.example/ws", "-no-color"})
	req.NoError(err)
	req.Equal("ws://flag.example/ws", cfg.RelayURL)
	req.Equal("envname", cfg.Username)
	req.False(cfg.Colours)

	cfg, err = loadConfig(nil)
	req.NoError(err)
	req.Equal("ws://env.example/ws", cfg.RelayURL)
	req.True(cfg.Colours)
}

func TestLoadConfigHelpIgnoresBadEnv(t *testing.T) {
	t.Setenv("CHAT_EVENT_BUFFER", "0")

	_, err := loadConfig([]string{"-h"})
	require.ErrorIs(t, err, flag.ErrHelp)

	_, err = loadConfig(nil)
	require.ErrorContains(t, err, "CHAT_EVENT_BUFFER")
}
