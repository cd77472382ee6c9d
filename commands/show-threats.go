package commands

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/template"

	"github.com/activecm/rita-threats/threatlist"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

func init() {
	command := cli.Command{
		Name:      "show-threats",
		Usage:     "Print the revealed threat indicators of one kind",
		ArgsUsage: "<url|hash|domain|ip>",
		Flags: []cli.Flag{
			configFlag,
			humanFlag,
			revealsFlag,
		},
		Action: showThreats,
	}

	bootstrapCommands(command)
}

func showThreats(c *cli.Context) error {
	res, err := initResources(c)
	if err != nil {
		return err
	}

	list, err := loadList(context.Background(), c, res)
	if err != nil {
		return err
	}

	view := list.Snapshot()
	if c.Bool("human-readable") {
		err = showThreatsHuman(stdout(c), view)
	} else {
		err = showThreatsCsv(stdout(c), view)
		// the hint stays off stdout so the csv can be piped
		if err == nil && view.HasMore {
			fmt.Fprintln(stderr(c), seeMore(view))
		}
	}
	if err != nil {
		return cli.NewExitError(err.Error(), -1)
	}
	return nil
}

func showThreatsHuman(w io.Writer, view threatlist.View) error {
	table := tablewriter.NewWriter(w)
	table.SetColWidth(100)
	table.SetHeader([]string{"#", view.Kind.Labels.Singular})
	for i, ind := range view.Visible {
		table.Append([]string{strconv.Itoa(i + 1), ind.Value})
	}
	table.Render()

	if view.HasMore {
		fmt.Fprintln(w, seeMore(view))
	}
	return nil
}

func showThreatsCsv(w io.Writer, view threatlist.View) error {
	out, err := template.New("threat").Parse("{{.Value}}\n")
	if err != nil {
		return err
	}

	for _, ind := range view.Visible {
		if err := out.Execute(w, ind); err != nil {
			return err
		}
	}
	return nil
}
