package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/activecm/rita-threats/resources"
	"github.com/activecm/rita-threats/threatlist"
	"github.com/urfave/cli"
)

var (
	allCommands []cli.Command

	// below are some prebuilt flags that get used often in various commands

	configFlag = cli.StringFlag{
		Name:  "config, c",
		Usage: "Use a given `CONFIG_FILE` when running this command",
		Value: "",
	}

	humanFlag = cli.BoolFlag{
		Name:  "human-readable, H",
		Usage: "Print a report instead of csv",
	}

	revealsFlag = cli.IntFlag{
		Name:  "reveals, r",
		Usage: "Reveal `N` more steps of results before printing",
		Value: 0,
	}
)

// bootstrapCommands simply adds a given command to the allCommands array
func bootstrapCommands(commands ...cli.Command) {
	allCommands = append(allCommands, commands...)
}

// Commands provides all of the defined commands to the front end
func Commands() []cli.Command {
	return allCommands
}

// initResources loads the configured resources or converts the failure into
// an exit error
func initResources(c *cli.Context) (*resources.Resources, error) {
	res, err := resources.InitResources(c.String("config"))
	if err != nil {
		return nil, cli.NewExitError(err.Error(), -1)
	}
	return res, nil
}

// loadList loads the list for the kind named by the first argument and
// reveals it the requested number of times
func loadList(ctx context.Context, c *cli.Context, res *resources.Resources) (*threatlist.List, error) {
	name := c.Args().Get(0)
	if name == "" {
		return nil, cli.NewExitError("Specify a threat kind (url, hash, domain, ip)", -1)
	}
	if c.Int("reveals") < 0 {
		return nil, cli.NewExitError("--reveals must not be negative", -1)
	}

	list, err := res.NewList(name)
	if err != nil {
		return nil, cli.NewExitError(err.Error(), -1)
	}

	if err := list.Load(ctx); err != nil {
		return list, cli.NewExitError(err.Error(), -1)
	}

	for i := 0; i < c.Int("reveals"); i++ {
		list.Reveal()
	}
	return list, nil
}

// stdout returns the writer the app was configured with
func stdout(c *cli.Context) io.Writer {
	if c.App != nil && c.App.Writer != nil {
		return c.App.Writer
	}
	return os.Stdout
}

// stderr returns the writer the app sends diagnostics to
func stderr(c *cli.Context) io.Writer {
	if c.App != nil && c.App.ErrWriter != nil {
		return c.App.ErrWriter
	}
	return os.Stderr
}

// defaultToken reads the token of the default credential source
func defaultToken(ctx context.Context, res *resources.Resources) (string, error) {
	creds, err := res.DefaultCredentials()
	if err != nil {
		return "", err
	}
	return creds.Token(ctx)
}

// seeMore is the footer printed while part of a list is still hidden
func seeMore(view threatlist.View) string {
	return fmt.Sprintf("Showing %d of %d %s. See more with --reveals.",
		len(view.Visible), view.Total, view.Kind.Labels.Title)
}
