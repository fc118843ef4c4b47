package cmd

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	lapseconfig "github.com/pithecene-io/lapse/cli/config"
	"github.com/pithecene-io/lapse/cli/reader"
	"github.com/pithecene-io/lapse/cli/render"
	"github.com/pithecene-io/lapse/cli/tui"
	"github.com/pithecene-io/lapse/lode"
	"github.com/pithecene-io/lapse/pipeline"
	"github.com/pithecene-io/lapse/timeline"
	"github.com/pithecene-io/lapse/types"
)

// InspectCommand returns the inspect command with subcommands.
// Inspect loads one manifest, from storage, a local file or a URL.
func InspectCommand() *cli.Command {
	return &cli.Command{
		Name:  "inspect",
		Usage: "Inspect a manifest (manifest, timeline)",
		Subcommands: []*cli.Command{
			inspectManifestCommand(),
			inspectTimelineCommand(),
		},
	}
}

func inspectFlags(extra ...cli.Flag) []cli.Flag {
	flags := append(TUIReadOnlyFlags(), ConfigFlag)
	flags = append(flags, storageFlags()...)
	return append(flags, extra...)
}

func inspectManifestCommand() *cli.Command {
	return &cli.Command{
		Name:      "manifest",
		Usage:     "Summarize a manifest",
		ArgsUsage: "[path-or-url]",
		Flags:     inspectFlags(),
		Action:    inspectManifestAction,
	}
}

func inspectManifestAction(c *cli.Context) error {
	m, source, err := loadManifest(c)
	if err != nil {
		return err
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	resp := reader.InspectManifest(source, m)
	if c.Bool("tui") {
		return r.RenderTUI(tui.ViewInspectManifest, resp)
	}
	return r.Render(resp)
}

func inspectTimelineCommand() *cli.Command {
	return &cli.Command{
		Name:      "timeline",
		Usage:     "List frames, or scrub through them with --tui",
		ArgsUsage: "[path-or-url]",
		Flags: inspectFlags(
			&cli.StringFlag{Name: "date", Usage: "UTC capture date (YYYY-MM-DD) to list or jump to"},
		),
		Action: inspectTimelineAction,
	}
}

func inspectTimelineAction(c *cli.Context) error {
	date := c.String("date")
	if date != "" {
		if _, err := time.Parse(time.DateOnly, date); err != nil {
			return cli.Exit(fmt.Sprintf("invalid --date %q (want YYYY-MM-DD)", date), exitConfigError)
		}
	}

	m, _, err := loadManifest(c)
	if err != nil {
		return err
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	if c.Bool("tui") {
		nav := timeline.NewNavigator(m)
		if date != "" {
			nav.JumpToDate(date)
		}
		return r.RenderTUI(tui.ViewInspectTimeline, nav)
	}
	return r.Render(reader.ListFrames(m, date))
}

// loadManifest resolves the command's manifest location and loads it,
// preferring the compact form.
func loadManifest(c *cli.Context) (types.Manifest, string, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return types.Manifest{}, "", err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	src, key, desc, err := manifestSource(ctx, c, cfg, c.Args().First())
	if err != nil {
		return types.Manifest{}, "", cli.Exit(err.Error(), exitConfigError)
	}

	m, err := timeline.Load(ctx, src, key)
	if err != nil {
		return types.Manifest{}, "", cli.Exit(fmt.Sprintf("failed to load %s: %v", desc, err), exitRunError)
	}
	return m, desc, nil
}

// manifestSource maps a location argument to a source and verbose key.
// An http(s) URL is fetched remotely, any other argument is a local file,
// and no argument selects the configured store.
func manifestSource(ctx context.Context, c *cli.Context, cfg *lapseconfig.Config, location string) (timeline.Source, string, string, error) {
	switch {
	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		u, err := url.Parse(location)
		if err != nil {
			return nil, "", "", fmt.Errorf("invalid manifest URL %q: %w", location, err)
		}
		dir, file := path.Split(u.Path)
		u.Path = dir
		u.RawQuery = ""
		return &timeline.HTTPSource{BaseURL: u.String()}, verboseKeyOf(file), location, nil

	case location != "":
		dir, file := filepath.Split(location)
		if dir == "" {
			dir = "."
		}
		return timeline.StoreSource{Store: lode.NewFSStore(dir)}, verboseKeyOf(file), location, nil

	default:
		storeCfg := resolveStoreConfig(c, cfg)
		store, err := lode.OpenStore(ctx, storeCfg)
		if err != nil {
			return nil, "", "", fmt.Errorf("failed to open storage: %w", err)
		}
		key := resolveString(c, "manifest", configVal(cfg, func(c *lapseconfig.Config) string { return c.Manifest.Path }))
		if key == "" {
			key = pipeline.DefaultVerboseKey
		}
		return timeline.StoreSource{Store: store}, key, fmt.Sprintf("%s:%s", storeCfg.BackendName(), key), nil
	}
}

// verboseKeyOf maps a manifest file name, verbose or compact, to the
// verbose key.
func verboseKeyOf(file string) string {
	if file == "" {
		return pipeline.DefaultVerboseKey
	}
	return strings.TrimSuffix(file, ".gz")
}
