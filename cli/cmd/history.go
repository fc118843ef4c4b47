package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/lapse/lode"
)

// readHistory loads run records newest first. No matching records is an
// empty result, not an error.
func readHistory(c *cli.Context, limit int) ([]lode.HistoryRecord, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	history, err := openHistory(ctx, c, cfg)
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("failed to open run history: %v", err), exitConfigError)
	}
	if history == nil {
		return nil, cli.Exit("--history-path is required (or history.path in config)", exitConfigError)
	}

	records, err := history.List(ctx, c.String("mode"), limit)
	if errors.Is(err, lode.ErrNoHistory) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read run history: %w", err)
	}
	return records, nil
}

func historyReadFlags(extra ...cli.Flag) []cli.Flag {
	flags := append(ReadOnlyFlags(), ConfigFlag,
		&cli.StringFlag{Name: "mode", Usage: "Filter by mode: append, rebuild, clean"},
	)
	flags = append(flags, historyFlags()...)
	return append(flags, extra...)
}
