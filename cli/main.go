// Package main provides the terminal chat client for the relay.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mama165/sdk-go/logs"
	"github.com/mattn/go-isatty"

	"github.com/xiaot623/relaychat/internal/config"
	"github.com/xiaot623/relaychat/internal/render"
	"github.com/xiaot623/relaychat/internal/session"
	"github.com/xiaot623/relaychat/internal/transport/ws"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	log := logs.GetLoggerFromString(cfg.LogLevel)

	tty := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())

	dialer := ws.NewDialer(ws.Options{
		HandshakeTimeout: cfg.ConnectTimeout,
		WriteTimeout:     cfg.WriteTimeout,
		ReadTimeout:      cfg.ReadTimeout,
		MaxMessageSize:   cfg.MaxMessageSize,
	})
	store := session.NewStore()
	mgr := session.NewManager(dialer.Session(), store, log, session.Options{
		URL:            cfg.RelayURL,
		ConnectTimeout: cfg.ConnectTimeout,
		EventBuffer:    cfg.EventBuffer,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := mgr.Run(ctx); err != nil {
			log.Error("Session stopped", "error", err)
		}
	}()

	term := &terminal{
		out:      os.Stdout,
		session:  mgr,
		renderer: render.Renderer{Colours: tty && cfg.Colours},
		redraw:   tty,
	}
	term.help()
	if cfg.Username != "" {
		term.handle("/join " + cfg.Username)
	}

	term.loop(ctx, readLines(os.Stdin), store.Changes(), mgr.Notices())
	mgr.Disconnect()
	return nil
}

// loadConfig parses command-line flags before reading the environment, so
// -h works regardless of the environment and set flags override it.
func loadConfig(args []string) (*config.Client, error) {
	fs := flag.NewFlagSet("chat", flag.ContinueOnError)
	addr := fs.String("addr", "", "Relay WebSocket address (default $CHAT_RELAY_URL)")
	name := fs.String("name", "", "Join with this name on startup (default $CHAT_USERNAME)")
	noColor := fs.Bool("no-color", false, "Disable coloured output")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	return config.LoadClient(func(c *config.Client) {
		if set["addr"] {
			c.RelayURL = *addr
		}
		if set["name"] {
			c.Username = *name
		}
		if *noColor {
			c.Colours = false
		}
	})
}
