package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli"
)

func init() {
	command := cli.Command{
		Name:      "find-threat",
		Usage:     "Check whether a value is among the revealed threat indicators",
		ArgsUsage: "[command options] <url|hash|domain|ip> <value>",
		UsageText: "rita-threats find-threat [command options] <kind> <value>\n\n" +
			"Options must come before the kind.",
		Flags: []cli.Flag{
			configFlag,
			revealsFlag,
		},
		Action: findThreat,
	}

	bootstrapCommands(command)
}

func findThreat(c *cli.Context) error {
	tail := c.Args().Tail()
	for _, arg := range tail {
		// once an option precedes the kind, flag parsing stops at the kind and
		// a later option would end up in the query. No indicator starts with -
		if strings.HasPrefix(arg, "-") {
			return cli.NewExitError("Options must come before the kind: "+arg, -1)
		}
	}
	query := strings.Join(tail, " ")
	if strings.TrimSpace(query) == "" {
		return cli.NewExitError("Specify a value to search for", -1)
	}

	res, err := initResources(c)
	if err != nil {
		return err
	}

	list, err := loadList(context.Background(), c, res)
	if err != nil {
		return err
	}

	if value, found := list.Find(query); found {
		fmt.Fprintf(stdout(c), "Found %s: %s\n", list.Kind().Labels.Singular, value)
		return nil
	}

	fmt.Fprintf(stdout(c), "%s not found in the first %d %s\n",
		strings.TrimSpace(query), len(list.Visible()), list.Kind().Labels.Title)
	return nil
}
