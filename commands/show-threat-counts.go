package commands

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/activecm/rita-threats/datatypes/threat"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

type countResult struct {
	Kind  threat.Kind
	Count int
	Err   error
}

func init() {
	counts := cli.Command{
		Name:  "show-threat-counts",
		Usage: "Print how many indicators the backend holds for each enabled kind",
		Flags: []cli.Flag{
			configFlag,
			humanFlag,
		},
		Action: showThreatCounts,
	}

	sources := cli.Command{
		Name:  "show-sources",
		Usage: "Print how many indicators each feed source contributed",
		Flags: []cli.Flag{
			configFlag,
			humanFlag,
		},
		Action: showSources,
	}

	bootstrapCommands(counts, sources)
}

func showThreatCounts(c *cli.Context) error {
	res, err := initResources(c)
	if err != nil {
		return err
	}
	ctx := context.Background()

	var results []countResult
	for _, kind := range res.Kinds() {
		result := countResult{Kind: kind}
		creds, err := res.Credentials(kind)
		if err == nil {
			var token string
			token, err = creds.Token(ctx)
			if err == nil {
				result.Count, err = res.Client.Count(ctx, kind.CountEndpoint, kind.CountField, token)
			}
		}
		if err != nil {
			res.Log.WithField("kind", kind.Name).WithError(err).Error("Failed to count threats")
			result.Err = err
		}
		results = append(results, result)
	}

	if c.Bool("human-readable") {
		showThreatCountsHuman(stdout(c), results)
	} else {
		showThreatCountsCsv(stdout(c), results)
	}
	return nil
}

func countString(result countResult) string {
	if result.Err != nil {
		return fmt.Sprintf("Failed to count %s threats.", result.Kind.Labels.Singular)
	}
	return strconv.Itoa(result.Count)
}

func showThreatCountsHuman(w io.Writer, results []countResult) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Kind", "Count"})
	for _, result := range results {
		table.Append([]string{result.Kind.Labels.Title, countString(result)})
	}
	table.Render()
}

func showThreatCountsCsv(w io.Writer, results []countResult) {
	for _, result := range results {
		fmt.Fprintf(w, "%s,%s\n", result.Kind.Name, countString(result))
	}
}

func showSources(c *cli.Context) error {
	res, err := initResources(c)
	if err != nil {
		return err
	}
	ctx := context.Background()

	token, err := defaultToken(ctx, res)
	if err != nil {
		return cli.NewExitError("Failed to load source counts: "+err.Error(), -1)
	}
	sources, err := res.Client.SourceCounts(ctx, token)
	if err != nil {
		res.Log.WithError(err).Error("Failed to load source counts")
		return cli.NewExitError("Failed to load source counts.", -1)
	}

	w := stdout(c)
	if c.Bool("human-readable") {
		table := tablewriter.NewWriter(w)
		table.SetHeader([]string{"Source", "Count"})
		for _, src := range sources {
			table.Append([]string{src.Source, strconv.Itoa(src.Count)})
		}
		table.Render()
		return nil
	}

	for _, src := range sources {
		fmt.Fprintf(w, "%s,%d\n", src.Source, src.Count)
	}
	return nil
}
