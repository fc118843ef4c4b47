package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/lapse/cli/reader"
	"github.com/pithecene-io/lapse/cli/render"
	"github.com/pithecene-io/lapse/cli/tui"
)

// StatsCommand returns the stats command with subcommands.
// Stats returns aggregated, derived facts from run history.
func StatsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show aggregated statistics (runs)",
		Subcommands: []*cli.Command{
			statsRunsCommand(),
		},
	}
}

func statsRunsCommand() *cli.Command {
	return &cli.Command{
		Name:   "runs",
		Usage:  "Show run statistics",
		Flags:  historyReadFlags(),
		Action: statsRunsAction,
	}
}

func statsRunsAction(c *cli.Context) error {
	records, err := readHistory(c, 0)
	if err != nil {
		return err
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	stats := reader.SummarizeRuns(records)
	if c.Bool("tui") {
		return r.RenderTUI(tui.ViewStatsRuns, stats)
	}

	return r.Render(stats)
}
