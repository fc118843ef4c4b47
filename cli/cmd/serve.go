package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	lapseconfig "github.com/pithecene-io/lapse/cli/config"
	"github.com/pithecene-io/lapse/iox"
	"github.com/pithecene-io/lapse/log"
	"github.com/pithecene-io/lapse/server"
)

// ServeCommand returns the serve command. It serves the viewer, frames and
// manifests from a local directory until interrupted.
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve a directory over HTTP for local viewing",
		Flags: []cli.Flag{
			ConfigFlag,
			&cli.StringFlag{Name: "root", Usage: "Directory to serve", Value: "."},
			&cli.StringFlag{Name: "addr", Usage: "Listen address", Value: server.DefaultAddr},
			&cli.StringFlag{Name: "log-level", Usage: "Log level: debug, info, warn, error", Value: "info"},
		},
		Action: serveAction,
	}
}

func serveAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	sc := configVal(cfg, func(c *lapseconfig.Config) lapseconfig.ServeConfig { return c.Serve })
	root := resolveString(c, "root", sc.Root)
	addr := resolveString(c, "addr", sc.Addr)

	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return cli.Exit(fmt.Sprintf("--root %q is not a directory", root), exitConfigError)
	}

	logger := log.NewLoggerWithLevel(log.RunMeta{Mode: "serve"}, os.Stderr, c.String("log-level"))
	defer iox.DiscardErr(logger.Sync)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(root, server.Options{Logger: logger})
	if err := srv.ListenAndServe(ctx, addr); err != nil {
		return cli.Exit(fmt.Sprintf("server failed: %v", err), exitRunError)
	}
	return nil
}
