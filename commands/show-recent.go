package commands

import (
	"context"
	"io"
	"strconv"
	"text/template"

	"github.com/activecm/rita-threats/datatypes/threat"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

func init() {
	command := cli.Command{
		Name:  "show-recent",
		Usage: "Print the newest threat indicators of every kind with their source",
		Flags: []cli.Flag{
			configFlag,
			humanFlag,
		},
		Action: showRecent,
	}

	bootstrapCommands(command)
}

func showRecent(c *cli.Context) error {
	res, err := initResources(c)
	if err != nil {
		return err
	}
	ctx := context.Background()

	token, err := defaultToken(ctx, res)
	if err != nil {
		return cli.NewExitError("Failed to load recent threats: "+err.Error(), -1)
	}
	records, err := res.Client.Recent(ctx, token)
	if err != nil {
		res.Log.WithError(err).Error("Failed to load recent threats")
		return cli.NewExitError("Failed to load recent threats.", -1)
	}

	if c.Bool("human-readable") {
		showRecentHuman(stdout(c), records)
		return nil
	}
	if err := showRecentCsv(stdout(c), records); err != nil {
		return cli.NewExitError(err.Error(), -1)
	}
	return nil
}

func showRecentHuman(w io.Writer, records []threat.Record) {
	table := tablewriter.NewWriter(w)
	table.SetColWidth(100)
	table.SetHeader([]string{"ID", "Type", "Value", "Source", "Timestamp", "Reason"})
	for _, rec := range records {
		table.Append([]string{
			strconv.Itoa(rec.ID), rec.Type, rec.Value, rec.Source, rec.Timestamp, rec.ListingReason,
		})
	}
	table.Render()
}

func showRecentCsv(w io.Writer, records []threat.Record) error {
	tmpl := "{{.ID}},{{.Type}},{{.Value}},{{.Source}},{{.Timestamp}},{{.ListingReason}}\n"

	out, err := template.New("record").Parse(tmpl)
	if err != nil {
		return err
	}

	for _, rec := range records {
		if err := out.Execute(w, rec); err != nil {
			return err
		}
	}
	return nil
}
