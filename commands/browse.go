package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/activecm/rita-threats/threatlist"
	"github.com/urfave/cli"
)

const browseHelp = `Commands:
  more           reveal the next step of results
  find <value>   check whether value is among the revealed results
  reload         fetch the list again
  help           show this message
  quit           leave`

func init() {
	command := cli.Command{
		Name:      "browse",
		Usage:     "Interactively page through and search threat indicators of one kind",
		ArgsUsage: "<url|hash|domain|ip>",
		Flags: []cli.Flag{
			configFlag,
		},
		Action: func(c *cli.Context) error {
			res, err := initResources(c)
			if err != nil {
				return err
			}
			name := c.Args().Get(0)
			if name == "" {
				return cli.NewExitError("Specify a threat kind (url, hash, domain, ip)", -1)
			}
			list, err := res.NewList(name)
			if err != nil {
				return cli.NewExitError(err.Error(), -1)
			}
			return browse(context.Background(), list, os.Stdin, stdout(c))
		},
	}

	bootstrapCommands(command)
}

// browse runs the interactive loop. The credential is re-read before every
// command so that a new login reloads the list. Load failures are shown
// above the prompt and the loop carries on over whatever is held.
func browse(ctx context.Context, list *threatlist.List, in io.Reader, out io.Writer) error {
	kind := list.Kind()
	scanner := bufio.NewScanner(in)

	// load failures are rendered from the snapshot, so only the write
	// error matters here
	syncCredential := func() error {
		if reloaded, _ := list.SyncCredential(ctx); reloaded {
			return renderBrowseView(out, list.Snapshot())
		}
		return nil
	}

	if err := syncCredential(); err != nil {
		return err
	}

	for {
		fmt.Fprintf(out, "%s (more, find <value>, reload, help, quit)> ", kind.Labels.Prompt)
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		verb, arg := line, ""
		if i := strings.IndexAny(line, " \t"); i >= 0 {
			verb, arg = line[:i], line[i+1:]
		}

		if err := syncCredential(); err != nil {
			return err
		}

		switch strings.ToLower(verb) {
		case "":
			continue
		case "more", "m":
			if !list.HasMore() {
				fmt.Fprintf(out, "All %d %s are shown.\n", list.Total(), kind.Labels.Title)
				continue
			}
			list.Reveal()
			if err := renderBrowseView(out, list.Snapshot()); err != nil {
				return err
			}
		case "find", "f":
			if strings.TrimSpace(arg) == "" {
				fmt.Fprintln(out, "Usage: find <value>")
				continue
			}
			if value, found := list.Find(arg); found {
				fmt.Fprintf(out, "Found %s: %s\n", kind.Labels.Singular, value)
			} else {
				fmt.Fprintf(out, "%s not found\n", kind.Labels.Singular)
			}
		case "reload", "r":
			// a failure is kept in the List and shown by the render
			list.Load(ctx)
			if err := renderBrowseView(out, list.Snapshot()); err != nil {
				return err
			}
		case "help", "h", "?":
			fmt.Fprintln(out, browseHelp)
		case "quit", "q", "exit":
			return nil
		default:
			fmt.Fprintf(out, "Unknown command %q\n%s\n", verb, browseHelp)
		}
	}
}

// renderBrowseView prints the error line, if any, then the revealed rows
// and the see more hint
func renderBrowseView(w io.Writer, view threatlist.View) error {
	if view.Err != nil {
		if _, err := fmt.Fprintln(w, view.Err.Error()); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "%s\n", view.Kind.Labels.Title); err != nil {
		return err
	}
	if err := showThreatsCsv(w, view); err != nil {
		return err
	}
	if view.HasMore {
		_, err := fmt.Fprintf(w, "Showing %d of %d. Type more to see more.\n", len(view.Visible), view.Total)
		return err
	}
	return nil
}
