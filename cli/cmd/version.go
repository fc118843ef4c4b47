package cmd

import (
	"runtime"
	"runtime/debug"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/lapse/cli/render"
	"github.com/pithecene-io/lapse/types"
)

// VersionResponse describes the binary and the formats it writes.
type VersionResponse struct {
	Version         string `json:"version"`
	Commit          string `json:"commit"`
	ManifestVersion int    `json:"manifest_version"`
	ContractVersion string `json:"contract_version"`
	GoVersion       string `json:"go_version"`
}

// VersionCommand returns the version command. commit comes from the
// linker; when it is unset the VCS stamp in the build info is used.
func VersionCommand(commit string) *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show version information",
		Flags: []cli.Flag{FormatFlag, NoColorFlag},
		Action: func(c *cli.Context) error {
			r, err := render.NewRenderer(c)
			if err != nil {
				return err
			}
			return r.Render(newVersionResponse(commit))
		},
	}
}

func newVersionResponse(commit string) VersionResponse {
	if commit == "" || commit == "unknown" {
		commit = vcsRevision()
	}
	return VersionResponse{
		Version:         types.Version,
		Commit:          commit,
		ManifestVersion: types.ManifestVersion,
		ContractVersion: types.ContractVersion,
		GoVersion:       runtime.Version(),
	}
}

// vcsRevision returns the short vcs.revision build setting, or "unknown".
func vcsRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && s.Value != "" {
			if len(s.Value) > 12 {
				return s.Value[:12]
			}
			return s.Value
		}
	}
	return "unknown"
}
