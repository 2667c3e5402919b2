// Command stylehost drives an out-of-process stylesheet compiler over the
// embedded compile protocol.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/embedstyle/stylehost/cli/cmd"
)

// version and commit are set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	app := &cli.App{
		Name:           "stylehost",
		Usage:          "Compile stylesheets through an embedded compile-protocol subprocess",
		Version:        version,
		ExitErrHandler: exitErrHandler,
		Commands: []*cli.Command{
			cmd.CompileCommand(),
			cmd.VersionCommand(version, commit),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}

	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		if msg := exitCoder.Error(); msg != "" && msg != fmt.Sprintf("exit status %d", exitCoder.ExitCode()) {
			fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(exitCoder.ExitCode())
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
