package app

import (
	"fmt"
	"os"
	"runtime"

	"github.com/nspcc-dev/refs/cli/soak"
	"github.com/nspcc-dev/refs/pkg/config"
	"github.com/urfave/cli"
)

func versionPrinter(c *cli.Context) {
	_, _ = fmt.Fprintf(c.App.Writer, "refs\nVersion: %s\nGoVersion: %s\n",
		config.Version,
		runtime.Version(),
	)
}

// New creates a refs instance of [cli.App] with all commands included.
func New() *cli.App {
	cli.VersionPrinter = versionPrinter
	ctl := cli.NewApp()
	ctl.Name = "refs"
	ctl.Version = config.Version
	ctl.Usage = "shared-ownership handle toolkit"
	ctl.ErrWriter = os.Stdout

	ctl.Commands = append(ctl.Commands, soak.NewCommands()...)
	return ctl
}
