package main

import (
	"os"

	"github.com/activecm/rita-threats/commands"
	"github.com/activecm/rita-threats/config"
	"github.com/urfave/cli"
)

// Entry point of rita-threats
func main() {
	app := cli.NewApp()
	app.Name = "rita-threats"
	app.Usage = "Page through and search threat indicator feeds."

	// Change the version string with updates so that a quick help command will
	// let the testers know what version they're on
	app.Version = config.Version
	app.Flags = commands.GlobalFlags()

	cli.VersionPrinter = commands.GetVersionPrinter()

	// Define commands used with this application
	app.Commands = commands.Commands()

	app.Run(os.Args)
}
