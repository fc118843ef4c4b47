// Command lapse maintains the rolling frame manifest of a timelapse site
// and renders, serves and inspects it.
//
//	lapse append --image frames/2025/01/2025-01-01-08-00-00.jpg
//	lapse rebuild --source archive
//	lapse clean
//
// Manifest commands exit 0 on success (a skipped append included), 1 when
// the operation fails, 2 on invalid flags or configuration and 3 when
// another process holds the manifest lock.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/lapse/cli/cmd"
	"github.com/pithecene-io/lapse/types"
)

// commit is set with -ldflags "-X main.commit=...".
var commit = "unknown"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		os.Exit(exitStatus(err, os.Stderr))
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "lapse",
		Usage:   "Rolling timelapse manifest builder",
		Version: fmt.Sprintf("%s (commit: %s)", types.Version, commit),
		// Errors come back from Run so exitStatus alone decides the code.
		ExitErrHandler: func(*cli.Context, error) {},
		Commands: []*cli.Command{
			cmd.AppendCommand(),
			cmd.RebuildCommand(),
			cmd.CleanCommand(),
			cmd.RenderCommand(),
			cmd.ServeCommand(),
			cmd.InspectCommand(),
			cmd.StatsCommand(),
			cmd.ListCommand(),
			cmd.VersionCommand(commit),
		},
	}
}

// exitStatus reports err on stderr and returns the process exit code. A
// cli.ExitCoder anywhere in the chain supplies its own code; anything else
// is 1.
func exitStatus(err error, stderr io.Writer) int {
	if err == nil {
		return 0
	}

	var coder cli.ExitCoder
	if !errors.As(err, &coder) {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	code := coder.ExitCode()
	// cli.Exit("", n) renders as "exit status n"; there is nothing to say.
	if msg := coder.Error(); msg != "" && msg != fmt.Sprintf("exit status %d", code) {
		fmt.Fprintln(stderr, msg)
	}
	return code
}
