// Command chattwo runs the direct-message overlay: a terminal surface for
// private tells tracked on top of the wider chat stream. The transport that
// talks to the game server is owned by the host environment; a --replay
// transcript stands in for it here.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v2"

	"github.com/Pox4ever/ChatTwo-sub000/internal/classify"
	"github.com/Pox4ever/ChatTwo-sub000/internal/command"
	"github.com/Pox4ever/ChatTwo-sub000/internal/config"
	"github.com/Pox4ever/ChatTwo-sub000/internal/ident"
	"github.com/Pox4ever/ChatTwo-sub000/internal/router"
	"github.com/Pox4ever/ChatTwo-sub000/internal/session"
	"github.com/Pox4ever/ChatTwo-sub000/internal/store"
	"github.com/Pox4ever/ChatTwo-sub000/internal/ui"
)

func main() {
	app := &cli.App{
		Name:  "chattwo",
		Usage: "direct-message overlay for the chat stream",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "data-dir",
				Usage: "directory for the chat log and state",
				Value: defaultDir("chattwo"),
			},
			&cli.StringFlag{
				Name:  "config-dir",
				Usage: "directory for config and window geometry",
				Value: defaultDir("chattwo"),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn, or error",
				Value: "info",
			},
			&cli.Uint64Flag{
				Name:  "local-world",
				Usage: "override the configured local world id",
			},
			&cli.StringFlag{
				Name:  "replay",
				Usage: "transcript file fed through the router as live events",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "chattwo:", err)
		os.Exit(1)
	}
}

func defaultDir(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "." + name
	}
	return filepath.Join(home, "."+name)
}

func run(c *cli.Context) error {
	dataDir := c.String("data-dir")
	configDir := c.String("config-dir")

	logger, closeLog, err := openLogger(dataDir, c.String("log-level"))
	if err != nil {
		return err
	}
	defer closeLog()

	cfg, err := config.Load(configDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if w := c.Uint64("local-world"); w != 0 {
		cfg.LocalWorld = uint32(w)
	}

	st, err := store.Open(dataDir, logger)
	if err != nil {
		return fmt.Errorf("open chat log: %w", err)
	}
	defer st.Close()

	geo, err := config.LoadGeometry(configDir)
	if err != nil {
		return fmt.Errorf("load window geometry: %w", err)
	}

	host := ui.New(cfg, logger)
	reg := session.New(host, st, geo, cfg.HydrateCount, logger)
	rt := router.New(reg, classify.New(logger), cfg, logger)
	runner := command.New(reg, rt, cfg, func() bool { return true }, logger)
	transport := &loggingTransport{store: st, log: logger}
	host.Bind(reg, rt, runner, transport)

	restoreWindows(reg, geo, logger)

	program := tea.NewProgram(host, tea.WithAltScreen())

	var replayDone chan struct{}
	if path := c.String("replay"); path != "" {
		replayDone = startReplay(path, rt, st, logger)
	}

	_, runErr := program.Run()

	if replayDone != nil {
		<-replayDone
	}
	reg.WaitHydration()
	if err := geo.Save(); err != nil {
		logger.Warn("geometry save failed", "error", err)
	}
	return runErr
}

// restoreWindows reopens conversations recorded as open before the last
// shutdown. The host shows at most one floating window, so the first key
// restores as a window and the rest come back as tabs (with their recorded
// open flag cleared, since a tab is not a floating window). Geometry is keyed
// by (name, world), so a correspondent whose stable id changed simply
// restores under the old key.
func restoreWindows(reg *session.Registry, geo *config.GeometryStore, logger *slog.Logger) {
	for i, key := range geo.OpenKeys() {
		id := ident.New(key.Name, key.World, 0)
		if i == 0 {
			if _, err := reg.OpenWindow(id); err != nil {
				logger.Warn("window restore failed", "name", key.Name, "world", key.World, "error", err)
			}
			continue
		}
		if _, err := reg.OpenTab(id); err != nil {
			logger.Warn("tab restore failed", "name", key.Name, "world", key.World, "error", err)
			continue
		}
		geo.SetOpen(key.Name, key.World, false)
	}
}

func openLogger(dir, level string) (*slog.Logger, func(), error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(filepath.Join(dir, "chattwo.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, nil, err
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: lvl}))
	return logger, func() { f.Close() }, nil
}
