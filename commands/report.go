package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/activecm/rita-threats/datatypes/threat"
	"github.com/activecm/rita-threats/reporting"
	"github.com/skratchdot/open-golang/open"
	"github.com/urfave/cli"
)

// openReport is swapped out in tests
var openReport = open.Run

func init() {
	command := cli.Command{
		Name:  "html-report",
		Usage: "Create an html report of the revealed threat indicators",
		UsageText: "rita-threats html-report [command-options] [kind]\n\n" +
			"If no kind is specified, a page will be created for every enabled kind.",
		Flags: []cli.Flag{
			configFlag,
			revealsFlag,
			cli.StringFlag{
				Name:  "output, o",
				Usage: "Write the report to a new directory named after `DIR`",
				Value: "rita-threats-html-report",
			},
			cli.BoolFlag{
				Name:  "no-browser",
				Usage: "Do not open the report once it is written",
			},
		},
		Action: htmlReport,
	}
	bootstrapCommands(command)
}

func htmlReport(c *cli.Context) error {
	res, err := initResources(c)
	if err != nil {
		return err
	}
	if c.Int("reveals") < 0 {
		return cli.NewExitError("--reveals must not be negative", -1)
	}

	var kinds []threat.Kind
	if name := c.Args().Get(0); name != "" {
		kind, err := res.Kind(name)
		if err != nil {
			return cli.NewExitError(err.Error(), -1)
		}
		kinds = append(kinds, kind)
	} else {
		kinds = res.Kinds()
	}

	dir, err := reporting.PrintHTML(context.Background(), res, kinds,
		c.Int("reveals"), c.String("output"), stdout(c))
	if err != nil {
		return cli.NewExitError(err.Error(), -1)
	}
	fmt.Fprintf(stdout(c), "\t[+] Report written to %s\n", dir)

	if !c.Bool("no-browser") {
		if err := openReport(filepath.Join(dir, "index.html")); err != nil {
			res.Log.WithError(err).Warn("Could not open the report in a browser")
		}
	}
	return nil
}
