package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/barrage-archive/barrage/types"
)

// VersionCommand returns the version command.
func VersionCommand(commit string) *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show version information",
		Action: func(c *cli.Context) error {
			fmt.Fprintf(c.App.Writer, "barrage %s (commit: %s)\n", types.Version, commit)
			return nil
		},
	}
}
